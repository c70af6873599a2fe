// Package ledger owns the task lifecycle rules and the points that accrue
// from lifecycle transitions. Handlers call into it; it is the only writer
// of tasks and point balances.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neighbornudge/neighbornudge/internal/model"
	"github.com/neighbornudge/neighbornudge/internal/store"
)

// Points awarded per lifecycle event. Fixed amounts, not computed.
const (
	ProposeAward  = 5
	CompleteAward = 10
)

// Field length caps matching the task form.
const (
	MaxDescriptionLen = 200
	MaxLocationLen    = 100
	MaxContactLen     = 100
	MaxUsernameLen    = 50
)

// Conflict errors. Each names a distinct reason a transition was refused so
// callers can report why, not just that, an action failed.
var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrTaskNotOpen   = errors.New("task is no longer open")
	ErrSelfClaim     = errors.New("cannot claim your own task")
	ErrTaskCompleted = errors.New("task is already completed")
)

// ValidationError is a rejected input field. Raised before anything is
// written, so a validation failure never leaves partial state.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

type Ledger struct {
	tasks  *store.TaskStore
	users  *store.UserStore
	logger *slog.Logger
}

func New(tasks *store.TaskStore, users *store.UserStore, logger *slog.Logger) *Ledger {
	return &Ledger{tasks: tasks, users: users, logger: logger}
}

// Propose creates an open task and awards the proposer ProposeAward points.
// All inputs are trimmed first; any empty or over-length field rejects the
// whole operation with nothing persisted.
func (l *Ledger) Propose(description, location, contactMethod, proposer string) (*model.Task, error) {
	description = strings.TrimSpace(description)
	location = strings.TrimSpace(location)
	contactMethod = strings.TrimSpace(contactMethod)
	proposer = strings.TrimSpace(proposer)

	if err := requireField("description", description, MaxDescriptionLen); err != nil {
		return nil, err
	}
	if err := requireField("location", location, MaxLocationLen); err != nil {
		return nil, err
	}
	if err := requireField("contact_method", contactMethod, MaxContactLen); err != nil {
		return nil, err
	}
	if err := requireField("proposer", proposer, MaxUsernameLen); err != nil {
		return nil, err
	}

	task, err := l.tasks.Create(description, location, contactMethod, proposer)
	if err != nil {
		return nil, fmt.Errorf("propose: %w", err)
	}

	// Task-state correctness over point-balance correctness: the task stands
	// even if the award cannot be recorded.
	if _, err := l.users.Award(proposer, ProposeAward, model.ReasonTaskProposed, &task.TaskID); err != nil {
		l.logger.Error("propose succeeded but award failed", "task_id", task.TaskID, "proposer", proposer, "error", err)
	}

	return task, nil
}

// Claim moves an open task to in_progress on behalf of claimer. The store
// update is conditional on the task still being open, so concurrent claims
// resolve to a single winner; the loser gets ErrTaskNotOpen.
func (l *Ledger) Claim(taskID, claimer string) (*model.Task, error) {
	claimer = strings.TrimSpace(claimer)
	if err := requireField("claimer", claimer, MaxUsernameLen); err != nil {
		return nil, err
	}

	ok, err := l.tasks.Claim(taskID, claimer)
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}
	if ok {
		return l.tasks.GetByID(taskID)
	}

	// The conditional update matched nothing. Re-read to name the reason.
	task, err := l.tasks.GetByID(taskID)
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}
	switch {
	case task == nil:
		return nil, ErrTaskNotFound
	case task.Proposer == claimer:
		return nil, ErrSelfClaim
	default:
		return nil, ErrTaskNotOpen
	}
}

// Complete moves a non-terminal task to completed and awards the completer
// CompleteAward points. A second Complete on the same task is rejected and
// never awards twice. An award failure after the transition is logged, not
// surfaced, and does not roll the transition back.
func (l *Ledger) Complete(taskID, completer string) (*model.Task, error) {
	completer = strings.TrimSpace(completer)
	if err := requireField("completer", completer, MaxUsernameLen); err != nil {
		return nil, err
	}

	ok, err := l.tasks.Complete(taskID)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}
	if !ok {
		task, err := l.tasks.GetByID(taskID)
		if err != nil {
			return nil, fmt.Errorf("complete: %w", err)
		}
		if task == nil {
			return nil, ErrTaskNotFound
		}
		return nil, ErrTaskCompleted
	}

	if _, err := l.users.Award(completer, CompleteAward, model.ReasonTaskCompleted, &taskID); err != nil {
		l.logger.Error("completion succeeded but award failed", "task_id", taskID, "completer", completer, "error", err)
	}

	return l.tasks.GetByID(taskID)
}

// AwardPoints grants a positive number of points to the named user, creating
// the user on first award. No cap, no decay.
func (l *Ledger) AwardPoints(username string, points int, reason string, taskID *string) (*model.PointAward, error) {
	username = strings.TrimSpace(username)
	if err := requireField("username", username, MaxUsernameLen); err != nil {
		return nil, err
	}
	if points <= 0 {
		return nil, &ValidationError{Field: "points", Reason: "must be positive"}
	}

	award, err := l.users.Award(username, points, reason, taskID)
	if err != nil {
		return nil, fmt.Errorf("award points: %w", err)
	}
	return award, nil
}

func requireField(name, value string, maxLen int) error {
	if value == "" {
		return &ValidationError{Field: name, Reason: "is required"}
	}
	if len(value) > maxLen {
		return &ValidationError{Field: name, Reason: fmt.Sprintf("must be at most %d characters", maxLen)}
	}
	return nil
}
