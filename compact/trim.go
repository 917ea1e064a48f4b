package compact

import (
	"encoding/json"

	"github.com/randalmurphal/aiderdesk/tokens"
	"github.com/randalmurphal/aiderdesk/transcript"
)

// TrimToolResults returns a deep copy of the transcript with each
// tool-result payload end-truncated to at most maxTokens. The input is
// never modified; call this when assembling a request from history that
// contains oversized tool output (whole files, long command logs).
//
// Truncated results become JSON strings ending in TruncationSuffix, so the
// model can tell that content was cut.
func TrimToolResults(msgs []transcript.Message, maxTokens int, counter *tokens.EstimatingCounter) []transcript.Message {
	if counter == nil {
		counter = tokens.NewEstimatingCounter()
	}

	out := transcript.CloneMessages(msgs)
	for _, msg := range out {
		tm, ok := msg.(*transcript.ToolMessage)
		if !ok {
			continue
		}
		for i := range tm.Content {
			tm.Content[i].Result = trimResult(tm.Content[i].Result, maxTokens, counter)
		}
	}
	return out
}

// trimResult end-truncates one result payload. Payloads within the limit
// pass through unchanged.
func trimResult(result json.RawMessage, maxTokens int, counter *tokens.EstimatingCounter) json.RawMessage {
	text := string(result)
	if counter.FitsInLimit(text, maxTokens) {
		return result
	}

	// Work on the payload's text form; the truncated replacement is a
	// plain JSON string.
	var inner string
	if err := json.Unmarshal(result, &inner); err != nil {
		inner = text
	}

	keep := maxTokens - counter.Count(TruncationSuffix)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(inner)
	keepRunes := int(float64(keep) * counter.CharsPerToken)
	if keepRunes > len(runes) {
		keepRunes = len(runes)
	}

	truncated, err := json.Marshal(string(runes[:keepRunes]) + TruncationSuffix)
	if err != nil {
		return result
	}
	return truncated
}
