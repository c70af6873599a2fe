package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/neighbornudge/neighbornudge/internal/ledger"
	"github.com/neighbornudge/neighbornudge/internal/model"
	"github.com/neighbornudge/neighbornudge/internal/reddit"
	"github.com/neighbornudge/neighbornudge/internal/store"
	"github.com/neighbornudge/neighbornudge/internal/websocket"
)

type TaskHandler struct {
	ledger *ledger.Ledger
	tasks  *store.TaskStore
	reddit *reddit.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewTaskHandler(l *ledger.Ledger, ts *store.TaskStore, rs *reddit.Service, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{ledger: l, tasks: ts, reddit: rs, hub: hub, logger: logger}
}

func (h *TaskHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type proposeRequest struct {
	Description   string `json:"description"`
	Location      string `json:"location"`
	ContactMethod string `json:"contact_method"`
	Proposer      string `json:"proposer"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	task, err := h.ledger.Propose(req.Description, req.Location, req.ContactMethod, req.Proposer)
	if err != nil {
		writeLedgerError(w, h.logger, "propose task", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionCreated, task.TaskID, nil))
	h.broadcast(websocket.NewMessage(websocket.EntityLeaderboard, websocket.ActionUpdated, "", nil))

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		tasks []model.Task
		err   error
	)
	switch {
	case q.Get("status") != "":
		status := model.TaskStatus(q.Get("status"))
		if !status.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		tasks, err = h.tasks.ListByStatus(status)
	case q.Get("proposer") != "":
		tasks, err = h.tasks.ListByProposer(q.Get("proposer"))
	case q.Get("claimer") != "":
		tasks, err = h.tasks.ListByClaimer(q.Get("claimer"))
	default:
		tasks, err = h.tasks.List()
	}
	if err != nil {
		h.logger.Error("list tasks failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get task failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	writeJSON(w, http.StatusOK, task)
}

type claimRequest struct {
	Claimer string `json:"claimer"`
}

func (h *TaskHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	task, err := h.ledger.Claim(r.PathValue("id"), req.Claimer)
	if err != nil {
		writeLedgerError(w, h.logger, "claim task", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionClaimed, task.TaskID, nil))

	writeJSON(w, http.StatusOK, task)
}

type completeRequest struct {
	Completer string `json:"completer"`
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	task, err := h.ledger.Complete(r.PathValue("id"), req.Completer)
	if err != nil {
		writeLedgerError(w, h.logger, "complete task", err)
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTask, websocket.ActionCompleted, task.TaskID, nil))
	h.broadcast(websocket.NewMessage(websocket.EntityLeaderboard, websocket.ActionUpdated, "", nil))

	writeJSON(w, http.StatusOK, task)
}

// Crosspost returns a prefilled Reddit submit link for sharing a task.
func (h *TaskHandler) Crosspost(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.GetByID(r.PathValue("id"))
	if err != nil {
		h.logger.Error("get task failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": h.reddit.SubmitURL(task)})
}
