package transcript

import "encoding/json"

// Block kind constants used in the JSON encoding.
const (
	BlockTypeText       = "text"
	BlockTypeReasoning  = "reasoning"
	BlockTypeToolCall   = "tool_call"
	BlockTypeToolResult = "tool_result"
)

// Block is one content block inside an assistant or tool message.
// The interface is sealed: only the four block types in this package
// implement it, so type switches over blocks are exhaustive.
type Block interface {
	// CloneBlock returns a deep copy of the block.
	CloneBlock() Block

	blockType() string
}

// TextBlock is plain response text.
type TextBlock struct {
	Text string
}

// ReasoningBlock is model reasoning emitted alongside the response.
type ReasoningBlock struct {
	Reasoning string
}

// ToolCallBlock is a tool invocation requested by the assistant.
type ToolCallBlock struct {
	// ToolCallID pairs this call with its result block.
	ToolCallID string

	// ToolName is the registered name of the tool.
	ToolName string

	// Args is the raw JSON arguments the model supplied.
	Args json.RawMessage
}

// ToolResultBlock is the outcome of one tool call.
type ToolResultBlock struct {
	// ToolCallID identifies the call this result answers.
	ToolCallID string

	// Result is the raw JSON result payload.
	Result json.RawMessage

	// IsError reports whether the tool execution failed.
	IsError bool
}

func (TextBlock) blockType() string       { return BlockTypeText }
func (ReasoningBlock) blockType() string  { return BlockTypeReasoning }
func (ToolCallBlock) blockType() string   { return BlockTypeToolCall }
func (ToolResultBlock) blockType() string { return BlockTypeToolResult }

// CloneBlock implements Block.
func (b TextBlock) CloneBlock() Block { return b }

// CloneBlock implements Block.
func (b ReasoningBlock) CloneBlock() Block { return b }

// CloneBlock implements Block.
func (b ToolCallBlock) CloneBlock() Block {
	b.Args = cloneRaw(b.Args)
	return b
}

// CloneBlock implements Block.
func (b ToolResultBlock) CloneBlock() Block {
	b.Result = cloneRaw(b.Result)
	return b
}

// Clone returns a deep copy of the result block itself (not as a Block).
// ToolMessage content is typed as []ToolResultBlock and clones through this.
func (b ToolResultBlock) Clone() ToolResultBlock {
	b.Result = cloneRaw(b.Result)
	return b
}

// cloneBlocks deep-copies a block slice.
func cloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.CloneBlock()
	}
	return out
}

// cloneRaw copies raw JSON so clones never alias the original backing array.
func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
