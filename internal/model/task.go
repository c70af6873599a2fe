package model

import "time"

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusOpen       TaskStatus = "open"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// Terminal reports whether no further transitions are allowed.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted
}

// Valid reports whether s is one of the known lifecycle states.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a help offer posted by a community member. A task is created open
// with no claimer; claiming sets the claimer exactly once and moves it to
// in_progress; completing is terminal.
type Task struct {
	TaskID        string     `json:"task_id"`
	Description   string     `json:"description"`
	Location      string     `json:"location"`
	ContactMethod string     `json:"contact_method"`
	Proposer      string     `json:"proposer"`
	Claimer       *string    `json:"claimer"`
	Status        TaskStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
