package tokens

import (
	"unicode/utf8"

	"github.com/randalmurphal/aiderdesk/transcript"
)

// DefaultCharsPerToken is the default character-to-token ratio.
// Approximately 4 characters equals 1 token for English text.
const DefaultCharsPerToken = 4.0

// MessageOverheadTokens is the fixed per-message overhead added for role
// framing and structural delimiters in the backend's prompt format.
const MessageOverheadTokens = 3

// Counter estimates token counts for text.
type Counter interface {
	// Count estimates the number of tokens in the given text.
	Count(text string) int

	// FitsInLimit returns true if the text fits within the token limit.
	FitsInLimit(text string, limit int) bool
}

// EstimatingCounter uses a character-to-token ratio for estimation.
type EstimatingCounter struct {
	// CharsPerToken is the average characters per token.
	// Default is 4, which works well for English text.
	CharsPerToken float64
}

// NewEstimatingCounter creates a token counter with default settings.
func NewEstimatingCounter() *EstimatingCounter {
	return &EstimatingCounter{CharsPerToken: DefaultCharsPerToken}
}

// NewEstimatingCounterWithRatio creates a token counter with a custom ratio.
// If charsPerToken is <= 0, the default ratio (4.0) is used.
func NewEstimatingCounterWithRatio(charsPerToken float64) *EstimatingCounter {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return &EstimatingCounter{CharsPerToken: charsPerToken}
}

// Count estimates the number of tokens in the given text.
func (c *EstimatingCounter) Count(text string) int {
	// Count runes rather than bytes for better accuracy on non-ASCII text.
	runeCount := utf8.RuneCountInString(text)
	return int(float64(runeCount)/c.CharsPerToken + 0.5)
}

// FitsInLimit returns true if the text fits within the token limit.
func (c *EstimatingCounter) FitsInLimit(text string, limit int) bool {
	return c.Count(text) <= limit
}

// CountMessage estimates the tokens one transcript message contributes,
// including the per-message framing overhead.
func (c *EstimatingCounter) CountMessage(msg transcript.Message) int {
	total := MessageOverheadTokens

	switch m := msg.(type) {
	case *transcript.UserMessage:
		total += c.countBlocks(m.Content)
	case *transcript.AssistantMessage:
		total += c.countBlocks(m.Content)
	case *transcript.ToolMessage:
		for _, r := range m.Content {
			total += c.Count(string(r.Result))
		}
	}
	return total
}

// CountMessages estimates the tokens for a whole transcript.
func (c *EstimatingCounter) CountMessages(msgs []transcript.Message) int {
	total := 0
	for _, m := range msgs {
		total += c.CountMessage(m)
	}
	return total
}

func (c *EstimatingCounter) countBlocks(blocks []transcript.Block) int {
	total := 0
	for _, b := range blocks {
		switch blk := b.(type) {
		case transcript.TextBlock:
			total += c.Count(blk.Text)
		case transcript.ReasoningBlock:
			total += c.Count(blk.Reasoning)
		case transcript.ToolCallBlock:
			total += c.Count(blk.ToolName) + c.Count(string(blk.Args))
		case transcript.ToolResultBlock:
			total += c.Count(string(blk.Result))
		}
	}
	return total
}

// EstimateTokens is a convenience function using the default estimator.
func EstimateTokens(text string) int {
	return NewEstimatingCounter().Count(text)
}

// ModelLimits contains context window sizes for common models.
var ModelLimits = map[string]int{
	// Claude 4 models
	"claude-opus-4":   200000,
	"claude-sonnet-4": 200000,

	// Claude 3.5 models
	"claude-3.5-sonnet": 200000,
	"claude-3.5-haiku":  200000,

	// Default fallback
	"default": 100000,
}

// GetModelLimit returns the token limit for a model, or a default if not found.
func GetModelLimit(model string) int {
	if limit, ok := ModelLimits[model]; ok {
		return limit
	}
	return ModelLimits["default"]
}
