package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/aiderdesk/contextmgr"
)

// Task is one unit of work: a conversation with the coding backend rooted
// in a working directory.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	WorkDir   string    `json:"work_dir,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	context *contextmgr.Manager
}

// NewTaskID returns a fresh task identifier.
func NewTaskID() string {
	return uuid.NewString()
}

// Context returns the task's context manager.
//
// Callers going through this handle bypass the registry's per-task lock;
// prefer the Manager's operation methods unless access is already
// serialized.
func (t *Task) Context() *contextmgr.Manager {
	return t.context
}

// touch advances the activity timestamp.
func (t *Task) touch() {
	t.UpdatedAt = time.Now()
}
