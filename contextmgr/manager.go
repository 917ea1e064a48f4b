package contextmgr

import (
	"github.com/randalmurphal/aiderdesk/transcript"
)

// Saver persists transcript snapshots. The store package provides a
// file-backed implementation; tests supply fakes.
type Saver interface {
	// Persist durably writes the full transcript for the given task.
	Persist(taskID string, msgs []transcript.Message) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithSaver sets the persistence sink invoked on autosave.
func WithSaver(s Saver) Option {
	return func(m *Manager) { m.saver = s }
}

// WithAutosave sets the initial autosave state. Autosave defaults to
// enabled; disable it while replaying historical state so bulk loads do not
// write on every step.
func WithAutosave(enabled bool) Option {
	return func(m *Manager) { m.autosave = enabled }
}

// Manager owns the conversation transcript for one task.
//
// A Manager is not safe for concurrent use; the orchestration layer
// serializes access per task.
type Manager struct {
	taskID   string
	messages []transcript.Message
	saver    Saver
	autosave bool
	closed   bool
}

// New creates a context manager seeded with the given messages. The initial
// slice is deep-copied; the manager never aliases caller-owned data.
func New(taskID string, initial []transcript.Message, opts ...Option) *Manager {
	m := &Manager{
		taskID:   taskID,
		messages: transcript.CloneMessages(initial),
		autosave: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TaskID returns the owning task's identifier.
func (m *Manager) TaskID() string {
	return m.taskID
}

// Len returns the number of messages in the transcript.
func (m *Manager) Len() int {
	return len(m.messages)
}

// ContextMessages returns a deep copy of the current transcript. Mutating
// the returned messages never affects the manager's state.
func (m *Manager) ContextMessages() []transcript.Message {
	return transcript.CloneMessages(m.messages)
}

// EnableAutosave turns on persistence after mutating operations.
func (m *Manager) EnableAutosave() {
	m.autosave = true
}

// DisableAutosave turns off persistence after mutating operations.
func (m *Manager) DisableAutosave() {
	m.autosave = false
}

// AutosaveEnabled reports the current autosave state.
func (m *Manager) AutosaveEnabled() bool {
	return m.autosave
}

// Close marks the manager closed. Reads remain valid; further mutations
// fail with ErrManagerClosed. Closing is terminal.
func (m *Manager) Close() {
	m.closed = true
}

// Closed reports whether Close has been called.
func (m *Manager) Closed() bool {
	return m.closed
}

// Append adds messages to the end of the transcript as the conversation
// progresses. Messages are deep-copied on ingestion. Autosave fires when
// at least one message was added.
func (m *Manager) Append(msgs ...transcript.Message) error {
	if m.closed {
		return &Error{TaskID: m.taskID, Op: "append", Err: ErrManagerClosed}
	}
	if len(msgs) == 0 {
		return nil
	}

	m.messages = append(m.messages, transcript.CloneMessages(msgs)...)

	if m.autosave && m.saver != nil {
		if err := m.saver.Persist(m.taskID, m.ContextMessages()); err != nil {
			return &Error{TaskID: m.taskID, Op: "persist", Err: err}
		}
	}
	return nil
}

// Clear removes every message, returning the removed IDs. Clearing an
// already-empty transcript is a no-op and does not autosave.
func (m *Manager) Clear() ([]string, error) {
	if m.closed {
		return nil, &Error{TaskID: m.taskID, Op: "clear", Err: ErrManagerClosed}
	}
	if len(m.messages) == 0 {
		return nil, nil
	}

	removed := make([]string, len(m.messages))
	for i, msg := range m.messages {
		removed[i] = msg.ID()
	}
	m.messages = nil

	if m.autosave && m.saver != nil {
		if err := m.saver.Persist(m.taskID, nil); err != nil {
			return removed, &Error{TaskID: m.taskID, Op: "persist", Err: err}
		}
	}
	return removed, nil
}

// RemoveMessagesAfter truncates the transcript after the given anchor.
//
// The anchor is either a message ID or a tool-call ID. A message-ID anchor
// keeps that message and removes everything after it. A tool-call-ID anchor
// resolves to the tool message containing the matching result block and
// behaves the same way.
//
// When the cut point is a tool message, the nearest preceding assistant
// message is sliced: each of its tool-call blocks survives only if a result
// for it exists in a tool message up to and including the cut point. Text
// and reasoning blocks are never touched. If slicing empties the assistant
// message it is deleted and its ID is reported as removed.
//
// Returns the IDs of fully removed messages. Messages that were only
// trimmed are not reported. If nothing was removed, autosave
// is skipped.
//
// Fails with ErrEmptyTranscript on an empty transcript, ErrAnchorNotFound
// if the anchor resolves to nothing, and ErrManagerClosed after Close. On
// failure the transcript is unchanged.
func (m *Manager) RemoveMessagesAfter(anchor string) ([]string, error) {
	if m.closed {
		return nil, &Error{TaskID: m.taskID, Op: "remove", Err: ErrManagerClosed}
	}
	if len(m.messages) == 0 {
		return nil, &Error{TaskID: m.taskID, Op: "remove", Err: ErrEmptyTranscript}
	}

	cut := transcript.FindMessage(m.messages, anchor)
	if cut < 0 {
		cut = transcript.FindToolResult(m.messages, anchor)
	}
	if cut < 0 {
		return nil, &Error{TaskID: m.taskID, Op: "remove", Err: ErrAnchorNotFound}
	}

	// Build the result on a fresh slice so a failure anywhere leaves the
	// transcript untouched.
	kept := make([]transcript.Message, cut+1)
	copy(kept, m.messages[:cut+1])

	var removed []string
	for _, msg := range m.messages[cut+1:] {
		removed = append(removed, msg.ID())
	}

	if _, isTool := m.messages[cut].(*transcript.ToolMessage); isTool {
		kept, removed = sliceDanglingCalls(kept, removed)
	}

	if len(removed) == 0 {
		// Anchor was already the last message and nothing was trimmed away
		// entirely. Skip the redundant write.
		m.messages = kept
		return nil, nil
	}

	m.messages = kept

	if m.autosave && m.saver != nil {
		if err := m.saver.Persist(m.taskID, m.ContextMessages()); err != nil {
			// The in-memory truncation already took effect; surface the
			// failed write alongside the removal result.
			return removed, &Error{TaskID: m.taskID, Op: "persist", Err: err}
		}
	}

	return removed, nil
}

// sliceDanglingCalls trims tool-call blocks out of the assistant message
// nearest to the tool-message cut point at the end of kept. A call survives
// only if some tool message after the assistant (within kept) carries its
// result. If the assistant message ends up empty it is dropped from kept
// and its ID appended to removed.
func sliceDanglingCalls(kept []transcript.Message, removed []string) ([]transcript.Message, []string) {
	cut := len(kept) - 1

	// Scan backward for the nearest assistant message. Exactly one
	// assistant turn owns the calls answered by the trailing tool messages.
	for i := cut - 1; i >= 0; i-- {
		asst, ok := kept[i].(*transcript.AssistantMessage)
		if !ok {
			continue
		}

		sliced, changed := sliceAssistant(asst, kept[i+1:])
		if !changed {
			return kept, removed
		}
		if len(sliced.Content) > 0 {
			kept[i] = sliced
			return kept, removed
		}

		// Slicing emptied the turn; no ghost messages survive.
		removed = append(removed, asst.ID())
		return append(kept[:i], kept[i+1:]...), removed
	}

	return kept, removed
}

// sliceAssistant returns a copy of the assistant message with tool-call
// blocks removed when no message in tail holds their result. Non-call
// blocks are user-visible content and always survive. The second return
// reports whether any block was dropped; the input message is not mutated.
func sliceAssistant(asst *transcript.AssistantMessage, tail []transcript.Message) (*transcript.AssistantMessage, bool) {
	content := make([]transcript.Block, 0, len(asst.Content))
	changed := false

	for _, b := range asst.Content {
		call, isCall := b.(transcript.ToolCallBlock)
		if !isCall {
			content = append(content, b.CloneBlock())
			continue
		}
		if transcript.FindToolResult(tail, call.ToolCallID) >= 0 {
			content = append(content, b.CloneBlock())
			continue
		}
		changed = true
	}

	if !changed {
		return asst, false
	}

	out := asst.Clone().(*transcript.AssistantMessage)
	out.Content = content
	return out, true
}
