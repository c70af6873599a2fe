package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/neighbornudge/neighbornudge/internal/database"
	"github.com/neighbornudge/neighbornudge/internal/ledger"
	"github.com/neighbornudge/neighbornudge/internal/model"
	"github.com/neighbornudge/neighbornudge/internal/reddit"
	"github.com/neighbornudge/neighbornudge/internal/store"
)

type testEnv struct {
	tasks *TaskHandler
	users *UserHandler
	store struct {
		tasks *store.TaskStore
		users *store.UserStore
	}
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := store.NewTaskStore(db)
	us := store.NewUserStore(db)
	l := ledger.New(ts, us, logger)
	rs := reddit.NewService(reddit.Config{Subreddit: "NeighborNudge"}, logger)

	env := &testEnv{
		tasks: NewTaskHandler(l, ts, rs, nil, logger),
		users: NewUserHandler(us, logger),
	}
	env.store.tasks = ts
	env.store.users = us
	return env
}

func postJSON(t *testing.T, h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func propose(t *testing.T, env *testEnv, proposer string) model.Task {
	t.Helper()
	rec := postJSON(t, env.tasks.Create, "/api/tasks",
		`{"description":"rake leaves","location":"Oak St","contact_method":"DM","proposer":"`+proposer+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("propose: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var task model.Task
	if err := json.NewDecoder(rec.Body).Decode(&task); err != nil {
		t.Fatalf("decoding task: %v", err)
	}
	return task
}

func TestCreateTask(t *testing.T) {
	env := setup(t)

	task := propose(t, env, "alice")
	if task.TaskID == "" {
		t.Error("task_id should be set")
	}
	if task.Status != model.StatusOpen {
		t.Errorf("status = %q, want open", task.Status)
	}

	user, err := env.store.users.GetByUsername("alice")
	if err != nil || user == nil {
		t.Fatalf("proposer should exist after propose: %v", err)
	}
	if user.NudgePoints != ledger.ProposeAward {
		t.Errorf("proposer points = %d, want %d", user.NudgePoints, ledger.ProposeAward)
	}
}

func TestCreateTaskRejectsBadInput(t *testing.T) {
	env := setup(t)

	rec := postJSON(t, env.tasks.Create, "/api/tasks", `{"description":"","proposer":"alice"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty description: status = %d, want 400", rec.Code)
	}

	rec = postJSON(t, env.tasks.Create, "/api/tasks", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON: status = %d, want 400", rec.Code)
	}
}

func TestListTasksStatusFilter(t *testing.T) {
	env := setup(t)
	propose(t, env, "alice")
	propose(t, env, "bob")

	req := httptest.NewRequest("GET", "/api/tasks?status=open", nil)
	rec := httptest.NewRecorder()
	env.tasks.List(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var tasks []model.Task
	if err := json.NewDecoder(rec.Body).Decode(&tasks); err != nil {
		t.Fatalf("decoding tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("got %d open tasks, want 2", len(tasks))
	}

	req = httptest.NewRequest("GET", "/api/tasks?status=bogus", nil)
	rec = httptest.NewRecorder()
	env.tasks.List(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus status filter: status = %d, want 400", rec.Code)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	env := setup(t)

	req := httptest.NewRequest("GET", "/api/tasks/nope", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	env.tasks.Get(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestClaimTask(t *testing.T) {
	env := setup(t)
	task := propose(t, env, "alice")

	claim := func(taskID, claimer string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/tasks/"+taskID+"/claim", strings.NewReader(`{"claimer":"`+claimer+`"}`))
		req.SetPathValue("id", taskID)
		rec := httptest.NewRecorder()
		env.tasks.Claim(rec, req)
		return rec
	}

	// Proposer cannot claim their own task
	if rec := claim(task.TaskID, "alice"); rec.Code != http.StatusConflict {
		t.Errorf("self-claim: status = %d, want 409", rec.Code)
	}

	rec := claim(task.TaskID, "bob")
	if rec.Code != http.StatusOK {
		t.Fatalf("claim: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var claimed model.Task
	if err := json.NewDecoder(rec.Body).Decode(&claimed); err != nil {
		t.Fatalf("decoding task: %v", err)
	}
	if claimed.Status != model.StatusInProgress {
		t.Errorf("status = %q, want in_progress", claimed.Status)
	}

	// Already claimed
	if rec := claim(task.TaskID, "carol"); rec.Code != http.StatusConflict {
		t.Errorf("second claim: status = %d, want 409", rec.Code)
	}

	// Unknown task
	if rec := claim("missing", "bob"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown task: status = %d, want 404", rec.Code)
	}
}

func TestCompleteTask(t *testing.T) {
	env := setup(t)
	task := propose(t, env, "alice")

	complete := func(taskID, completer string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/tasks/"+taskID+"/complete", strings.NewReader(`{"completer":"`+completer+`"}`))
		req.SetPathValue("id", taskID)
		rec := httptest.NewRecorder()
		env.tasks.Complete(rec, req)
		return rec
	}

	rec := complete(task.TaskID, "bob")
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: status = %d, body = %s", rec.Code, rec.Body.String())
	}

	user, err := env.store.users.GetByUsername("bob")
	if err != nil || user == nil {
		t.Fatalf("completer should exist: %v", err)
	}
	if user.NudgePoints != ledger.CompleteAward {
		t.Errorf("completer points = %d, want %d", user.NudgePoints, ledger.CompleteAward)
	}

	// Completing twice is a conflict and must not double-award
	if rec := complete(task.TaskID, "bob"); rec.Code != http.StatusConflict {
		t.Errorf("double complete: status = %d, want 409", rec.Code)
	}
	user, _ = env.store.users.GetByUsername("bob")
	if user.NudgePoints != ledger.CompleteAward {
		t.Errorf("points after double complete = %d, want %d", user.NudgePoints, ledger.CompleteAward)
	}
}

func TestCrosspost(t *testing.T) {
	env := setup(t)
	task := propose(t, env, "alice")

	req := httptest.NewRequest("GET", "/api/tasks/"+task.TaskID+"/crosspost", nil)
	req.SetPathValue("id", task.TaskID)
	rec := httptest.NewRecorder()
	env.tasks.Crosspost(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if !strings.Contains(body["url"], "reddit.com") || !strings.Contains(body["url"], "submit") {
		t.Errorf("crosspost url = %q, want a reddit submit link", body["url"])
	}
}

func TestGetUser(t *testing.T) {
	env := setup(t)

	req := httptest.NewRequest("GET", "/api/users/ghost", nil)
	req.SetPathValue("username", "ghost")
	rec := httptest.NewRecorder()
	env.users.Get(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown user: status = %d, want 404", rec.Code)
	}

	propose(t, env, "alice")

	req = httptest.NewRequest("GET", "/api/users/alice", nil)
	req.SetPathValue("username", "alice")
	rec = httptest.NewRecorder()
	env.users.Get(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp userResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding user: %v", err)
	}
	if resp.NudgePoints != ledger.ProposeAward {
		t.Errorf("points = %d, want %d", resp.NudgePoints, ledger.ProposeAward)
	}
	if len(resp.Awards) != 1 {
		t.Errorf("got %d awards, want 1", len(resp.Awards))
	}
}

func TestLeaderboard(t *testing.T) {
	env := setup(t)
	propose(t, env, "alice")
	propose(t, env, "alice")
	propose(t, env, "bob")

	req := httptest.NewRequest("GET", "/api/leaderboard?limit=1", nil)
	rec := httptest.NewRecorder()
	env.users.Leaderboard(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var entries []model.LeaderboardEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding leaderboard: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].RedditUsername != "alice" || entries[0].Rank != 1 {
		t.Errorf("top entry = %+v, want alice at rank 1", entries[0])
	}

	req = httptest.NewRequest("GET", "/api/leaderboard?limit=zero", nil)
	rec = httptest.NewRecorder()
	env.users.Leaderboard(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", rec.Code)
	}
}

func TestNudge(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/nudge", nil)
	rec := httptest.NewRecorder()
	Nudge(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["nudge"] == "" {
		t.Error("nudge should not be empty")
	}
}
