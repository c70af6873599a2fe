package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/neighbornudge/neighbornudge/internal/model"
	"github.com/neighbornudge/neighbornudge/internal/store"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

type UserHandler struct {
	users  *store.UserStore
	logger *slog.Logger
}

func NewUserHandler(us *store.UserStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: us, logger: logger}
}

type userResponse struct {
	*model.User
	Awards []model.PointAward `json:"awards"`
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	user, err := h.users.GetByUsername(username)
	if err != nil {
		h.logger.Error("get user failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	awards, err := h.users.ListAwards(username)
	if err != nil {
		h.logger.Error("list awards failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
		return
	}

	writeJSON(w, http.StatusOK, userResponse{User: user, Awards: awards})
}

func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardSize
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}

	entries, err := h.users.Leaderboard(limit)
	if err != nil {
		h.logger.Error("leaderboard failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load leaderboard"})
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
