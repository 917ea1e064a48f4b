package tokens

import "github.com/randalmurphal/aiderdesk/transcript"

// DefaultReservePercent is the share of the context window held back for
// the model's response.
const DefaultReservePercent = 20

// ContextBudget manages the split of a model's context window between
// conversation history and response reserve.
type ContextBudget struct {
	// Window is the model's total context window in tokens.
	Window int

	// Reserve is the portion held back for response generation.
	Reserve int

	counter *EstimatingCounter
}

// NewContextBudget creates a budget for a context window, reserving the
// default 20% for the response.
func NewContextBudget(window int) *ContextBudget {
	return &ContextBudget{
		Window:  window,
		Reserve: window * DefaultReservePercent / 100,
		counter: NewEstimatingCounter(),
	}
}

// NewContextBudgetWithReserve creates a budget with an explicit reserve.
// Reserves outside [0, window] are clamped.
func NewContextBudgetWithReserve(window, reserve int) *ContextBudget {
	if reserve < 0 {
		reserve = 0
	}
	if reserve > window {
		reserve = window
	}
	return &ContextBudget{
		Window:  window,
		Reserve: reserve,
		counter: NewEstimatingCounter(),
	}
}

// WithCounter sets a custom estimating counter.
func (b *ContextBudget) WithCounter(counter *EstimatingCounter) *ContextBudget {
	b.counter = counter
	return b
}

// HistoryLimit returns the tokens available for conversation history.
func (b *ContextBudget) HistoryLimit() int {
	return b.Window - b.Reserve
}

// FitsHistory returns true if the transcript fits in the history share.
func (b *ContextBudget) FitsHistory(msgs []transcript.Message) bool {
	return b.counter.CountMessages(msgs) <= b.HistoryLimit()
}

// HistoryTokens returns the estimated token count of the transcript.
func (b *ContextBudget) HistoryTokens(msgs []transcript.Message) int {
	return b.counter.CountMessages(msgs)
}

// RemainingHistory returns the history tokens left after the transcript,
// floored at zero.
func (b *ContextBudget) RemainingHistory(msgs []transcript.Message) int {
	remaining := b.HistoryLimit() - b.counter.CountMessages(msgs)
	if remaining < 0 {
		return 0
	}
	return remaining
}
