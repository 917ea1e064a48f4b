package transcript

import (
	"encoding/json"
	"fmt"
)

// messageJSON is the wire shape for all message roles.
type messageJSON struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     []blockJSON  `json:"content"`
	Usage       *UsageReport `json:"usage,omitempty"`
	EditedFiles []string     `json:"edited_files,omitempty"`
	Commit      *CommitInfo  `json:"commit,omitempty"`
}

// blockJSON is the wire shape for all block kinds, discriminated by Type.
type blockJSON struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	Reasoning  string          `json:"reasoning,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	ToolName   string          `json:"tool_name,omitempty"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	IsError    bool            `json:"is_error,omitempty"`
}

func encodeBlock(b Block) blockJSON {
	switch blk := b.(type) {
	case TextBlock:
		return blockJSON{Type: BlockTypeText, Text: blk.Text}
	case ReasoningBlock:
		return blockJSON{Type: BlockTypeReasoning, Reasoning: blk.Reasoning}
	case ToolCallBlock:
		return blockJSON{
			Type:       BlockTypeToolCall,
			ToolCallID: blk.ToolCallID,
			ToolName:   blk.ToolName,
			Args:       blk.Args,
		}
	case ToolResultBlock:
		return blockJSON{
			Type:       BlockTypeToolResult,
			ToolCallID: blk.ToolCallID,
			Result:     blk.Result,
			IsError:    blk.IsError,
		}
	default:
		// Unreachable: Block is sealed.
		panic(fmt.Sprintf("transcript: unknown block type %T", b))
	}
}

func decodeBlock(bj blockJSON) (Block, error) {
	switch bj.Type {
	case BlockTypeText:
		return TextBlock{Text: bj.Text}, nil
	case BlockTypeReasoning:
		return ReasoningBlock{Reasoning: bj.Reasoning}, nil
	case BlockTypeToolCall:
		return ToolCallBlock{
			ToolCallID: bj.ToolCallID,
			ToolName:   bj.ToolName,
			Args:       bj.Args,
		}, nil
	case BlockTypeToolResult:
		return ToolResultBlock{
			ToolCallID: bj.ToolCallID,
			Result:     bj.Result,
			IsError:    bj.IsError,
		}, nil
	default:
		return nil, fmt.Errorf("unknown block type %q", bj.Type)
	}
}

// MarshalJSON implements json.Marshaler.
func (m *UserMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		ID:      m.MessageID,
		Role:    RoleUser,
		Content: encodeBlocks(m.Content),
	})
}

// MarshalJSON implements json.Marshaler.
func (m *AssistantMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(messageJSON{
		ID:          m.MessageID,
		Role:        RoleAssistant,
		Content:     encodeBlocks(m.Content),
		Usage:       m.Usage,
		EditedFiles: m.EditedFiles,
		Commit:      m.Commit,
	})
}

// MarshalJSON implements json.Marshaler.
func (m *ToolMessage) MarshalJSON() ([]byte, error) {
	content := make([]blockJSON, len(m.Content))
	for i, r := range m.Content {
		content[i] = encodeBlock(r)
	}
	return json.Marshal(messageJSON{
		ID:      m.MessageID,
		Role:    RoleTool,
		Content: content,
	})
}

func encodeBlocks(blocks []Block) []blockJSON {
	out := make([]blockJSON, len(blocks))
	for i, b := range blocks {
		out[i] = encodeBlock(b)
	}
	return out
}

// ParseMessage decodes one message from its JSON encoding. The role field
// selects the concrete message type.
func ParseMessage(data []byte) (Message, error) {
	var mj messageJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if mj.ID == "" {
		return nil, fmt.Errorf("parse message: missing id")
	}

	switch mj.Role {
	case RoleUser:
		blocks, err := decodeBlocks(mj.Content)
		if err != nil {
			return nil, fmt.Errorf("parse message %s: %w", mj.ID, err)
		}
		return &UserMessage{MessageID: mj.ID, Content: blocks}, nil

	case RoleAssistant:
		blocks, err := decodeBlocks(mj.Content)
		if err != nil {
			return nil, fmt.Errorf("parse message %s: %w", mj.ID, err)
		}
		return &AssistantMessage{
			MessageID:   mj.ID,
			Content:     blocks,
			Usage:       mj.Usage,
			EditedFiles: mj.EditedFiles,
			Commit:      mj.Commit,
		}, nil

	case RoleTool:
		results := make([]ToolResultBlock, 0, len(mj.Content))
		for _, bj := range mj.Content {
			b, err := decodeBlock(bj)
			if err != nil {
				return nil, fmt.Errorf("parse message %s: %w", mj.ID, err)
			}
			result, ok := b.(ToolResultBlock)
			if !ok {
				return nil, fmt.Errorf("parse message %s: tool message contains %q block", mj.ID, bj.Type)
			}
			results = append(results, result)
		}
		return &ToolMessage{MessageID: mj.ID, Content: results}, nil

	default:
		return nil, fmt.Errorf("parse message %s: unknown role %q", mj.ID, mj.Role)
	}
}

func decodeBlocks(bjs []blockJSON) ([]Block, error) {
	blocks := make([]Block, 0, len(bjs))
	for _, bj := range bjs {
		b, err := decodeBlock(bj)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
