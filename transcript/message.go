package transcript

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the sender of a message.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in a conversation transcript.
// The interface is sealed: UserMessage, AssistantMessage, and ToolMessage
// are the only implementations.
type Message interface {
	// ID returns the process-unique, immutable message identifier.
	ID() string

	// Role returns the sender role.
	Role() Role

	// Clone returns a deep copy of the message.
	Clone() Message

	message()
}

// NewID returns a fresh message identifier. IDs are assigned at creation
// and never reused.
func NewID() string {
	return uuid.NewString()
}

// UserMessage is a prompt written by the user. Content is usually a single
// text block but may carry structured content (attached files, images).
type UserMessage struct {
	MessageID string
	Content   []Block
}

// AssistantMessage is a model turn: an ordered sequence of text, reasoning,
// and tool-call blocks, plus optional metadata reported by the backend.
type AssistantMessage struct {
	MessageID string
	Content   []Block

	// Usage is the token usage reported for this turn, if any.
	Usage *UsageReport

	// EditedFiles lists files the backend modified during this turn.
	EditedFiles []string

	// Commit describes the auto-commit created for this turn, if any.
	Commit *CommitInfo
}

// ToolMessage carries the results of tool calls issued by a preceding
// assistant message.
type ToolMessage struct {
	MessageID string
	Content   []ToolResultBlock
}

// UsageReport tracks token consumption and cost for one assistant turn.
type UsageReport struct {
	InputTokens              int     `json:"input_tokens"`
	OutputTokens             int     `json:"output_tokens"`
	CacheCreationInputTokens int     `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int     `json:"cache_read_input_tokens,omitempty"`
	CostUSD                  float64 `json:"cost_usd,omitempty"`
}

// CommitInfo describes a git commit produced by the coding backend.
type CommitInfo struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Time    time.Time `json:"time,omitempty"`
}

// NewUserMessage creates a user message with a single text block and a
// fresh ID.
func NewUserMessage(text string) *UserMessage {
	return &UserMessage{
		MessageID: NewID(),
		Content:   []Block{TextBlock{Text: text}},
	}
}

// NewAssistantMessage creates an assistant message with a fresh ID.
func NewAssistantMessage(blocks ...Block) *AssistantMessage {
	return &AssistantMessage{MessageID: NewID(), Content: blocks}
}

// NewToolMessage creates a tool message with a fresh ID.
func NewToolMessage(results ...ToolResultBlock) *ToolMessage {
	return &ToolMessage{MessageID: NewID(), Content: results}
}

func (m *UserMessage) message()      {}
func (m *AssistantMessage) message() {}
func (m *ToolMessage) message()      {}

// ID implements Message.
func (m *UserMessage) ID() string { return m.MessageID }

// ID implements Message.
func (m *AssistantMessage) ID() string { return m.MessageID }

// ID implements Message.
func (m *ToolMessage) ID() string { return m.MessageID }

// Role implements Message.
func (m *UserMessage) Role() Role { return RoleUser }

// Role implements Message.
func (m *AssistantMessage) Role() Role { return RoleAssistant }

// Role implements Message.
func (m *ToolMessage) Role() Role { return RoleTool }

// Clone implements Message.
func (m *UserMessage) Clone() Message {
	return &UserMessage{
		MessageID: m.MessageID,
		Content:   cloneBlocks(m.Content),
	}
}

// Clone implements Message.
func (m *AssistantMessage) Clone() Message {
	out := &AssistantMessage{
		MessageID: m.MessageID,
		Content:   cloneBlocks(m.Content),
	}
	if m.Usage != nil {
		usage := *m.Usage
		out.Usage = &usage
	}
	if m.EditedFiles != nil {
		out.EditedFiles = append([]string(nil), m.EditedFiles...)
	}
	if m.Commit != nil {
		commit := *m.Commit
		out.Commit = &commit
	}
	return out
}

// Clone implements Message.
func (m *ToolMessage) Clone() Message {
	out := &ToolMessage{MessageID: m.MessageID}
	if m.Content != nil {
		out.Content = make([]ToolResultBlock, len(m.Content))
		for i, r := range m.Content {
			out.Content[i] = r.Clone()
		}
	}
	return out
}

// Text extracts concatenated text from all text blocks.
func (m *UserMessage) Text() string { return blocksText(m.Content) }

// Text extracts concatenated text from all text blocks.
func (m *AssistantMessage) Text() string { return blocksText(m.Content) }

func blocksText(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		if tb, ok := b.(TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return sb.String()
}

// ToolCalls returns all tool-call blocks in content order.
func (m *AssistantMessage) ToolCalls() []ToolCallBlock {
	var calls []ToolCallBlock
	for _, b := range m.Content {
		if tc, ok := b.(ToolCallBlock); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// HasToolCall reports whether the message contains a call with the given ID.
func (m *AssistantMessage) HasToolCall(toolCallID string) bool {
	for _, b := range m.Content {
		if tc, ok := b.(ToolCallBlock); ok && tc.ToolCallID == toolCallID {
			return true
		}
	}
	return false
}

// FindResult returns the result block for the given tool call ID.
func (m *ToolMessage) FindResult(toolCallID string) (ToolResultBlock, bool) {
	for _, r := range m.Content {
		if r.ToolCallID == toolCallID {
			return r, true
		}
	}
	return ToolResultBlock{}, false
}

// CloneMessages deep-copies a transcript.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// FindMessage returns the index of the message with the given ID, or -1.
func FindMessage(msgs []Message, id string) int {
	for i, m := range msgs {
		if m.ID() == id {
			return i
		}
	}
	return -1
}

// FindToolResult returns the index of the tool message containing a result
// for the given tool call ID, or -1.
func FindToolResult(msgs []Message, toolCallID string) int {
	for i, m := range msgs {
		tm, ok := m.(*ToolMessage)
		if !ok {
			continue
		}
		if _, found := tm.FindResult(toolCallID); found {
			return i
		}
	}
	return -1
}
