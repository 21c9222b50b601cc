package model

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusError   TaskStatus = "error"
)

// Task is one unit of deferred work in the queue. Params is opaque to the
// queue, only the handler it is addressed to knows how to decode it.
type Task struct {
	ID      string          `json:"id"`
	Handler string          `json:"handler"`
	Params  json.RawMessage `json:"params"`
	Status  TaskStatus      `json:"status"`

	// StartAt is the earliest time the task may be claimed
	StartAt time.Time `json:"startAt"`

	// Retries counts how many times the task has been re-pushed after an
	// error. The runner never bumps it on its own, handlers and operators do.
	Retries int `json:"retries"`

	// Error holds the recorded reason for tasks in error status
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GenerateID returns a lexicographically sortable unique id
func GenerateID() string {
	return ulid.Make().String()
}

// IsDue reports whether the task is eligible for dispatch at the given time
func (t *Task) IsDue(now time.Time) bool {
	return t.Status == TaskStatusPending && !t.StartAt.After(now)
}

func (t *Task) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}

func TaskFromJSON(b []byte) (*Task, error) {
	t := &Task{}
	if err := json.Unmarshal(b, t); err != nil {
		return nil, err
	}
	return t, nil
}
