package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/neighbornudge/neighbornudge/internal/database"
	"github.com/neighbornudge/neighbornudge/internal/model"
	"github.com/neighbornudge/neighbornudge/internal/reddit"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	redditSvc := reddit.NewService(reddit.Config{Subreddit: "NeighborNudge"}, logger)
	srv := New(db, redditSvc, Config{}, logger)
	return srv.Router()
}

func TestHealth(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	router := setupRouter(t)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, r)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do("POST", "/api/tasks",
		`{"description":"walk Mrs. Chen's dog","location":"Elm St","contact_method":"DM u/alice","proposer":"alice"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var task model.Task
	if err := json.NewDecoder(rec.Body).Decode(&task); err != nil {
		t.Fatalf("decoding task: %v", err)
	}

	if rec := do("POST", "/api/tasks/"+task.TaskID+"/claim", `{"claimer":"bob"}`); rec.Code != http.StatusOK {
		t.Fatalf("claim: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec := do("POST", "/api/tasks/"+task.TaskID+"/complete", `{"completer":"bob"}`); rec.Code != http.StatusOK {
		t.Fatalf("complete: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = do("GET", "/api/tasks/"+task.TaskID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}
	var got model.Task
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding task: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}

	rec = do("GET", "/api/leaderboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("leaderboard: status = %d", rec.Code)
	}
	var entries []model.LeaderboardEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].RedditUsername != "bob" || entries[0].NudgePoints != 10 {
		t.Errorf("top entry = %+v, want bob with 10 points", entries[0])
	}
}

func TestNudgeRoute(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest("GET", "/api/nudge", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
