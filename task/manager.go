package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/randalmurphal/aiderdesk/compact"
	"github.com/randalmurphal/aiderdesk/contextmgr"
	"github.com/randalmurphal/aiderdesk/keylock"
	"github.com/randalmurphal/aiderdesk/tokens"
	"github.com/randalmurphal/aiderdesk/transcript"
)

// Errors surfaced by the task registry.
var (
	// ErrTaskNotFound indicates no open task has the given ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTaskExists indicates an open task already uses the given ID.
	ErrTaskExists = errors.New("task already open")

	// ErrNoUserPrompt indicates the transcript holds no user message to
	// redo.
	ErrNoUserPrompt = errors.New("no user prompt in transcript")
)

// Store is the persistence backend for task transcripts. The store
// package's FileStore satisfies it.
type Store interface {
	Persist(taskID string, msgs []transcript.Message) error
	Load(taskID string) ([]transcript.Message, error)
	Delete(taskID string) error
}

// DefaultLockTimeout bounds how long an operation waits for a task's lock.
const DefaultLockTimeout = 10 * time.Second

// Option configures a Manager.
type Option func(*Manager)

// WithLockTimeout sets the per-task lock acquisition timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(m *Manager) { m.lockTimeout = d }
}

// Manager is the registry of open tasks.
type Manager struct {
	store       Store
	locks       *keylock.Locker
	lockTimeout time.Duration

	mu     sync.RWMutex
	tasks  map[string]*Task
	closed bool
}

// NewManager creates a task registry backed by the given store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		locks:       keylock.New(),
		lockTimeout: DefaultLockTimeout,
		tasks:       make(map[string]*Task),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open creates a new task with an empty transcript.
func (m *Manager) Open(title, workDir string) (*Task, error) {
	return m.open(NewTaskID(), title, workDir, nil)
}

// Resume reopens a task from its stored transcript.
func (m *Manager) Resume(taskID string) (*Task, error) {
	msgs, err := m.store.Load(taskID)
	if err != nil {
		return nil, fmt.Errorf("resume task: %w", err)
	}
	return m.open(taskID, "", "", msgs)
}

func (m *Manager) open(taskID, title, workDir string, msgs []transcript.Message) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.New("task manager is closed")
	}
	if _, exists := m.tasks[taskID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrTaskExists, taskID)
	}

	cm := contextmgr.New(taskID, msgs, contextmgr.WithSaver(m.store))

	now := time.Now()
	t := &Task{
		ID:        taskID,
		Title:     title,
		WorkDir:   workDir,
		CreatedAt: now,
		UpdatedAt: now,
		context:   cm,
	}
	m.tasks[taskID] = t
	return t, nil
}

// Get returns an open task by ID.
func (m *Manager) Get(taskID string) (*Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[taskID]
	return t, ok
}

// List returns the IDs of all open tasks.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of open tasks.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}

// Close closes one task. Its transcript snapshot stays on disk; the
// context manager stops accepting mutations.
func (m *Manager) Close(taskID string) error {
	m.mu.Lock()
	t, ok := m.tasks[taskID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	delete(m.tasks, taskID)
	m.mu.Unlock()

	t.Context().Close()
	return nil
}

// Delete closes a task and removes its stored snapshot.
func (m *Manager) Delete(taskID string) error {
	if err := m.Close(taskID); err != nil {
		return err
	}
	return m.store.Delete(taskID)
}

// CloseAll closes every open task.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	tasks := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	m.tasks = make(map[string]*Task)
	m.closed = true
	m.mu.Unlock()

	for _, t := range tasks {
		t.Context().Close()
	}
}

// withTask runs fn holding the task's lock.
func (m *Manager) withTask(ctx context.Context, taskID string, fn func(*Task) error) error {
	t, ok := m.Get(taskID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout)
	defer cancel()

	return m.locks.WithLock(lockCtx, taskID, func() error {
		return fn(t)
	})
}

// Messages returns a copy of a task's transcript.
func (m *Manager) Messages(ctx context.Context, taskID string) ([]transcript.Message, error) {
	var msgs []transcript.Message
	err := m.withTask(ctx, taskID, func(t *Task) error {
		msgs = t.Context().ContextMessages()
		return nil
	})
	return msgs, err
}

// Append adds messages to a task's transcript.
func (m *Manager) Append(ctx context.Context, taskID string, msgs ...transcript.Message) error {
	return m.withTask(ctx, taskID, func(t *Task) error {
		if err := t.Context().Append(msgs...); err != nil {
			return err
		}
		t.touch()
		return nil
	})
}

// DeleteUpTo truncates a task's transcript after the anchor (a message ID
// or tool-call ID), returning the removed message IDs. This backs the
// "delete up to here" action; failures propagate so the UI can show them.
func (m *Manager) DeleteUpTo(ctx context.Context, taskID, anchor string) ([]string, error) {
	var removed []string
	err := m.withTask(ctx, taskID, func(t *Task) error {
		var opErr error
		removed, opErr = t.Context().RemoveMessagesAfter(anchor)
		if opErr != nil {
			return opErr
		}
		t.touch()
		return nil
	})
	return removed, err
}

// RedoLastPrompt removes the last user message and everything after it,
// returning the prompt text so the caller can resubmit it. Fails with
// ErrNoUserPrompt when the transcript has no user message.
func (m *Manager) RedoLastPrompt(ctx context.Context, taskID string) (string, error) {
	var prompt string
	err := m.withTask(ctx, taskID, func(t *Task) error {
		cm := t.Context()
		msgs := cm.ContextMessages()

		last := -1
		for i := len(msgs) - 1; i >= 0; i-- {
			if _, ok := msgs[i].(*transcript.UserMessage); ok {
				last = i
				break
			}
		}
		if last < 0 {
			return fmt.Errorf("%w: %s", ErrNoUserPrompt, taskID)
		}
		prompt = msgs[last].(*transcript.UserMessage).Text()

		if last == 0 {
			if _, err := cm.Clear(); err != nil {
				return err
			}
		} else {
			if _, err := cm.RemoveMessagesAfter(msgs[last-1].ID()); err != nil {
				return err
			}
		}
		t.touch()
		return nil
	})
	return prompt, err
}

// Compact truncates a task's transcript to fit the budget. Returns nil
// when the history already fits.
func (m *Manager) Compact(ctx context.Context, taskID string, budget *tokens.ContextBudget) (*compact.Result, error) {
	var res *compact.Result
	err := m.withTask(ctx, taskID, func(t *Task) error {
		planner := compact.NewPlanner(budget)
		var opErr error
		res, opErr = planner.Compact(t.Context())
		if opErr != nil {
			return opErr
		}
		if res != nil {
			t.touch()
		}
		return nil
	})
	return res, err
}
