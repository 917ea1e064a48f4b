// Package tokens provides token counting and context-window budgeting for
// conversation transcripts.
//
// Token estimation is based on the rule-of-thumb that approximately 4
// characters equals 1 token for English text. This provides a fast
// estimation without requiring a model-specific tokenizer; this module
// never talks to the backend tokenizer directly.
//
// # Counter
//
// The Counter interface counts plain text; EstimatingCounter additionally
// counts transcript messages by walking their content blocks:
//
//	counter := tokens.NewEstimatingCounter()
//	count := counter.Count("Hello, world!")   // ~3 tokens
//	total := counter.CountMessages(msgs)      // whole transcript
//
// # Budget
//
// ContextBudget splits a model's context window into the share available
// for conversation history and a reserve held back for the response. The
// compact package uses it to decide when and where to truncate:
//
//	budget := tokens.NewContextBudget(128000)
//	if !budget.FitsHistory(msgs) {
//	    // compaction needed
//	}
//
// # Model Limits
//
// Get context window sizes for common models:
//
//	limit := tokens.GetModelLimit("claude-opus-4")  // 200000
//	limit := tokens.GetModelLimit("unknown")        // 100000 (default)
package tokens
