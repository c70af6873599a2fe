package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/neighbornudge/neighbornudge/internal/handler"
	"github.com/neighbornudge/neighbornudge/internal/ledger"
	"github.com/neighbornudge/neighbornudge/internal/middleware"
	"github.com/neighbornudge/neighbornudge/internal/reddit"
	"github.com/neighbornudge/neighbornudge/internal/store"
	ws "github.com/neighbornudge/neighbornudge/internal/websocket"
)

// Config holds the server's tunable knobs.
type Config struct {
	RateLimit       int
	RateLimitWindow time.Duration
}

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	taskH       *handler.TaskHandler
	userH       *handler.UserHandler
	redditH     *handler.RedditHandler
	rateLimiter *middleware.RateLimiter
	cfg         Config
	logger      *slog.Logger
}

func New(db *sql.DB, redditSvc *reddit.Service, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	taskStore := store.NewTaskStore(db)
	userStore := store.NewUserStore(db)

	l := ledger.New(taskStore, userStore, logger.With("component", "ledger"))

	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 30
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = time.Minute
	}

	return &Server{
		db:          db,
		hub:         hub,
		taskH:       handler.NewTaskHandler(l, taskStore, redditSvc, hub, logger.With("component", "task")),
		userH:       handler.NewUserHandler(userStore, logger.With("component", "user")),
		redditH:     handler.NewRedditHandler(redditSvc),
		rateLimiter: middleware.NewRateLimiter(),
		cfg:         cfg,
		logger:      logger,
	}
}

// Hub returns the websocket hub, for broadcasting from background jobs.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Task routes. Mutations are rate limited per client IP.
	mux.HandleFunc("POST /api/tasks", s.rateLimited(s.taskH.Create))
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("POST /api/tasks/{id}/claim", s.rateLimited(s.taskH.Claim))
	mux.HandleFunc("POST /api/tasks/{id}/complete", s.rateLimited(s.taskH.Complete))
	mux.HandleFunc("GET /api/tasks/{id}/crosspost", s.taskH.Crosspost)

	// Users and points
	mux.HandleFunc("GET /api/users/{username}", s.userH.Get)
	mux.HandleFunc("GET /api/leaderboard", s.userH.Leaderboard)

	// Community feed and daily nudge
	mux.HandleFunc("GET /api/reddit/posts", s.redditH.Posts)
	mux.HandleFunc("GET /api/nudge", handler.Nudge)

	// WebSocket
	mux.HandleFunc("GET /ws", ws.Handle(s.hub, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, s.cfg.RateLimit, s.cfg.RateLimitWindow)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
