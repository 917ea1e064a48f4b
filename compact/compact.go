// Package compact reduces a task's conversation history when it outgrows
// the model's context window.
//
// A Planner walks the transcript and finds the latest anchor whose kept
// prefix fits the history share of a tokens.ContextBudget, then drives the
// context manager's truncation at that anchor. The manager's slicing rules
// apply as usual, so compaction never leaves dangling tool calls.
//
// TrimToolResults is the complementary, non-destructive reduction: it
// clones a transcript and end-truncates oversized tool-result payloads so
// a request can be assembled without rewriting stored history.
package compact

import (
	"errors"

	"github.com/randalmurphal/aiderdesk/contextmgr"
	"github.com/randalmurphal/aiderdesk/tokens"
	"github.com/randalmurphal/aiderdesk/transcript"
)

// ErrBudgetTooSmall indicates not even the first message fits the budget.
var ErrBudgetTooSmall = errors.New("history budget smaller than first message")

// TruncationSuffix marks end-truncated tool results.
const TruncationSuffix = "...[truncated]"

// Result describes one compaction pass.
type Result struct {
	// Anchor is the message ID the transcript was cut at.
	Anchor string

	// RemovedIDs lists the messages deleted by the cut.
	RemovedIDs []string

	// TokensBefore and TokensAfter are history estimates around the pass.
	TokensBefore int
	TokensAfter  int
}

// Planner picks compaction cut points under a context budget.
type Planner struct {
	budget  *tokens.ContextBudget
	counter *tokens.EstimatingCounter
}

// NewPlanner creates a planner for the given budget.
func NewPlanner(budget *tokens.ContextBudget) *Planner {
	return &Planner{
		budget:  budget,
		counter: tokens.NewEstimatingCounter(),
	}
}

// WithCounter sets a custom estimating counter. The counter should match
// the one configured on the budget or estimates will disagree.
func (p *Planner) WithCounter(counter *tokens.EstimatingCounter) *Planner {
	p.counter = counter
	return p
}

// PlanAnchor returns the ID of the latest message at which the kept prefix
// fits the history budget. The second return is false when the whole
// transcript already fits (no compaction needed). Fails with
// ErrBudgetTooSmall when not even the first message fits.
func (p *Planner) PlanAnchor(msgs []transcript.Message) (string, bool, error) {
	if len(msgs) == 0 {
		return "", false, nil
	}

	limit := p.budget.HistoryLimit()
	total := 0
	anchor := ""

	for _, msg := range msgs {
		total += p.counter.CountMessage(msg)
		if total > limit {
			break
		}
		anchor = msg.ID()
	}

	if anchor == "" {
		return "", false, ErrBudgetTooSmall
	}
	if anchor == msgs[len(msgs)-1].ID() {
		return "", false, nil
	}
	return anchor, true, nil
}

// Compact truncates the manager's transcript to fit the budget. Returns a
// nil Result when the history already fits.
func (p *Planner) Compact(mgr *contextmgr.Manager) (*Result, error) {
	msgs := mgr.ContextMessages()

	anchor, needed, err := p.PlanAnchor(msgs)
	if err != nil {
		return nil, err
	}
	if !needed {
		return nil, nil
	}

	before := p.counter.CountMessages(msgs)
	removed, err := mgr.RemoveMessagesAfter(anchor)
	if err != nil {
		return nil, err
	}

	return &Result{
		Anchor:       anchor,
		RemovedIDs:   removed,
		TokensBefore: before,
		TokensAfter:  p.counter.CountMessages(mgr.ContextMessages()),
	}, nil
}
