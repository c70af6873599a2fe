package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/neighbornudge/neighbornudge/internal/nudge"
	"github.com/neighbornudge/neighbornudge/internal/reddit"
)

type RedditHandler struct {
	service *reddit.Service
}

func NewRedditHandler(s *reddit.Service) *RedditHandler {
	return &RedditHandler{service: s}
}

// Posts serves the community feed, optionally filtered by ?q=.
func (h *RedditHandler) Posts(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	var posts []reddit.Post
	if query != "" {
		posts = h.service.Search(r.Context(), query)
	} else {
		posts = h.service.Posts(r.Context())
	}

	writeJSON(w, http.StatusOK, posts)
}

// Nudge serves the daily gentle suggestion.
func Nudge(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	writeJSON(w, http.StatusOK, map[string]string{
		"nudge": nudge.OfTheDay(now),
		"date":  now.Format("2006-01-02"),
	})
}
