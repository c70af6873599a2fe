package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/neighbornudge/neighbornudge/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var claimer sql.NullString

	err := scanner.Scan(
		&t.TaskID, &t.Description, &t.Location, &t.ContactMethod,
		&t.Proposer, &claimer, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if claimer.Valid {
		t.Claimer = &claimer.String
	}
	return &t, nil
}

const taskCols = `task_id, description, location, contact_method, proposer, claimer, status, created_at, updated_at`

// Create inserts a new open task and returns it. The task id is assigned
// here rather than by the caller.
func (s *TaskStore) Create(description, location, contactMethod, proposer string) (*model.Task, error) {
	id := uuid.NewString()

	_, err := s.db.Exec(
		`INSERT INTO tasks (task_id, description, location, contact_method, proposer, status) VALUES (?, ?, ?, ?, ?, ?)`,
		id, description, location, contactMethod, proposer, model.StatusOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(taskID string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE task_id = ?`, taskID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// List returns all tasks, newest first.
func (s *TaskStore) List() ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT ` + taskCols + ` FROM tasks ORDER BY created_at DESC, task_id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return collectTasks(rows)
}

func (s *TaskStore) ListByStatus(status model.TaskStatus) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE status = ? ORDER BY created_at DESC, task_id`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks by status: %w", err)
	}
	return collectTasks(rows)
}

func (s *TaskStore) ListByProposer(proposer string) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE proposer = ? ORDER BY created_at DESC, task_id`,
		proposer,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks by proposer: %w", err)
	}
	return collectTasks(rows)
}

func (s *TaskStore) ListByClaimer(claimer string) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE claimer = ? ORDER BY created_at DESC, task_id`,
		claimer,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks by claimer: %w", err)
	}
	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]model.Task, error) {
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Claim moves an open task to in_progress and records the claimer. The
// update is conditional on the task still being open and on the claimer not
// being the proposer, so of two concurrent claimers at most one sees a row
// affected. Returns false when the condition did not hold; the caller
// disambiguates why.
func (s *TaskStore) Claim(taskID, claimer string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE tasks SET status = ?, claimer = ?, updated_at = datetime('now')
		 WHERE task_id = ? AND status = ? AND proposer <> ?`,
		model.StatusInProgress, claimer, taskID, model.StatusOpen, claimer,
	)
	if err != nil {
		return false, fmt.Errorf("claim task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w", err)
	}
	return n == 1, nil
}

// Complete moves a non-terminal task to completed. Conditional for the same
// reason as Claim: a second completer must see zero rows affected.
func (s *TaskStore) Complete(taskID string) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE tasks SET status = ?, updated_at = datetime('now')
		 WHERE task_id = ? AND status IN (?, ?)`,
		model.StatusCompleted, taskID, model.StatusOpen, model.StatusInProgress,
	)
	if err != nil {
		return false, fmt.Errorf("complete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete rows affected: %w", err)
	}
	return n == 1, nil
}
