// Package reddit reads the public community feed and builds cross-post
// submission links. The feed is presentation content: when Reddit is
// unreachable the service serves static sample posts instead of failing.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/neighbornudge/neighbornudge/internal/model"
)

const (
	cacheTTL     = 10 * time.Minute
	userAgent    = "NeighborNudge/1.0 (community board)"
	fetchRetries = 2
)

// Post is one entry from the subreddit feed.
type Post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	URL         string  `json:"url"`
	Selftext    string  `json:"selftext"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	FlairText   string  `json:"link_flair_text,omitempty"`
}

// Config holds feed configuration from environment variables.
type Config struct {
	Subreddit string
	Limit     int
}

// Service fetches and caches recent posts from the community subreddit.
type Service struct {
	cfg     Config
	client  *http.Client
	baseURL string
	logger  *slog.Logger

	mu        sync.RWMutex
	cached    []Post
	lastFetch time.Time
}

// NewService creates a feed service for the configured subreddit.
func NewService(cfg Config, logger *slog.Logger) *Service {
	if cfg.Subreddit == "" {
		cfg.Subreddit = "NeighborNudge"
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 25
	}
	return &Service{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://www.reddit.com",
		logger:  logger,
	}
}

// Posts returns recent community posts, serving the cache while it is fresh.
// On fetch failure it returns stale cached posts if any exist, and the
// static sample set otherwise; callers always get content.
func (s *Service) Posts(ctx context.Context) []Post {
	s.mu.RLock()
	if time.Since(s.lastFetch) < cacheTTL && s.cached != nil {
		posts := s.cached
		s.mu.RUnlock()
		return posts
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock.
	if time.Since(s.lastFetch) < cacheTTL && s.cached != nil {
		return s.cached
	}

	posts, err := s.fetch(ctx)
	if err != nil {
		s.logger.Warn("feed fetch failed, serving fallback", "subreddit", s.cfg.Subreddit, "error", err)
		if s.cached != nil {
			return s.cached
		}
		return SamplePosts()
	}

	s.cached = posts
	s.lastFetch = time.Now()
	return s.cached
}

// Search returns the posts whose title or body contains query,
// case-insensitively. An empty query returns everything.
func (s *Service) Search(ctx context.Context, query string) []Post {
	posts := s.Posts(ctx)
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return posts
	}

	var matched []Post
	for _, p := range posts {
		if strings.Contains(strings.ToLower(p.Title), query) ||
			strings.Contains(strings.ToLower(p.Selftext), query) {
			matched = append(matched, p)
		}
	}
	return matched
}

// listing mirrors the subset of Reddit's listing JSON the feed needs.
type listing struct {
	Data struct {
		Children []struct {
			Data Post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func (s *Service) fetch(ctx context.Context) ([]Post, error) {
	feedURL := fmt.Sprintf("%s/r/%s/.json?limit=%d&raw_json=1", s.baseURL, s.cfg.Subreddit, s.cfg.Limit)

	// Feed reads are idempotent, so a couple of retries are safe.
	backoff := retry.WithMaxRetries(fetchRetries, retry.NewExponential(500*time.Millisecond))

	var posts []Post
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return retry.RetryableError(fmt.Errorf("feed returned status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("feed returned status %d", resp.StatusCode)
		}

		var l listing
		if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
			return fmt.Errorf("decode feed: %w", err)
		}

		posts = posts[:0]
		for _, child := range l.Data.Children {
			posts = append(posts, child.Data)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// SubmitURL builds a pre-filled Reddit submission link for cross-posting a
// task. It performs no network call and does not touch the data model.
func (s *Service) SubmitURL(task *model.Task) string {
	title := fmt.Sprintf("[OFFER] %s - %s", task.Description, task.Location)
	body := fmt.Sprintf(`Hi r/%s!

I'm offering to help with: %s

**Location:** %s
**Posted by:** u/%s
**Contact:** %s

This task was posted through NeighborNudge - a platform for community mutual aid. If you're interested in helping or need similar assistance, check out our app!`,
		s.cfg.Subreddit, task.Description, task.Location, task.Proposer, task.ContactMethod)

	params := url.Values{}
	params.Set("title", title)
	params.Set("text", body)

	return fmt.Sprintf("%s/r/%s/submit?%s", s.baseURL, s.cfg.Subreddit, params.Encode())
}

// SamplePosts is the static fallback served when the live feed is
// unavailable. Timestamps are relative so the content always looks recent.
func SamplePosts() []Post {
	now := time.Now().Unix()
	return []Post{
		{
			ID:          "sample1",
			Title:       "Welcome to NeighborNudge Community!",
			Author:      "community_mod",
			Score:       25,
			NumComments: 8,
			CreatedUTC:  float64(now - 3600),
			URL:         "https://reddit.com/r/NeighborNudge",
			Selftext:    "Welcome to our mutual aid community! This is where neighbors help neighbors. Share your offers to help, find ways to contribute, and build stronger community connections.",
			Permalink:   "/r/NeighborNudge/comments/sample1/",
			Subreddit:   "NeighborNudge",
			FlairText:   "Welcome",
		},
		{
			ID:          "sample2",
			Title:       "How to get started with mutual aid",
			Author:      "helpful_neighbor",
			Score:       18,
			NumComments: 5,
			CreatedUTC:  float64(now - 7200),
			URL:         "https://reddit.com/r/NeighborNudge",
			Selftext:    "New to mutual aid? Here are some tips: Start small, be consistent, focus on your immediate community, and remember that every act of kindness matters.",
			Permalink:   "/r/NeighborNudge/comments/sample2/",
			Subreddit:   "NeighborNudge",
			FlairText:   "Guide",
		},
		{
			ID:          "sample3",
			Title:       "[OFFER] Free tutoring for kids in math and science",
			Author:      "science_teacher",
			Score:       12,
			NumComments: 3,
			CreatedUTC:  float64(now - 10800),
			URL:         "https://reddit.com/r/NeighborNudge",
			Selftext:    "I'm a retired science teacher offering free tutoring for elementary and middle school students. Available weekends in the downtown area.",
			Permalink:   "/r/NeighborNudge/comments/sample3/",
			Subreddit:   "NeighborNudge",
			FlairText:   "Offer",
		},
		{
			ID:          "sample4",
			Title:       "[REQUEST] Need help moving furniture this weekend",
			Author:      "moving_neighbor",
			Score:       8,
			NumComments: 6,
			CreatedUTC:  float64(now - 14400),
			URL:         "https://reddit.com/r/NeighborNudge",
			Selftext:    "Moving to a new apartment this Saturday and could use some help with heavy furniture. Pizza and drinks provided!",
			Permalink:   "/r/NeighborNudge/comments/sample4/",
			Subreddit:   "NeighborNudge",
			FlairText:   "Request",
		},
		{
			ID:          "sample5",
			Title:       "Community garden project update",
			Author:      "green_thumb",
			Score:       15,
			NumComments: 4,
			CreatedUTC:  float64(now - 18000),
			URL:         "https://reddit.com/r/NeighborNudge",
			Selftext:    "Our community garden is thriving! Thanks to everyone who has contributed time, tools, and expertise. Next workday is this Sunday.",
			Permalink:   "/r/NeighborNudge/comments/sample5/",
			Subreddit:   "NeighborNudge",
			FlairText:   "Update",
		},
	}
}
