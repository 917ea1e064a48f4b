// Package aiderdesk provides the conversation-history engine behind an
// Aider-based desktop coding assistant.
//
// aiderdesk is a standalone toolkit designed to be imported à la carte.
// Each subpackage can be used independently:
//
//   - transcript: typed conversation messages and content blocks
//   - contextmgr: per-task context manager with truncation and autosave
//   - store: JSONL transcript snapshots with file watching
//   - task: task registry and user-facing history actions
//   - keylock: named-resource mutex with timeout semantics
//   - tokens: token counting and context budgets for transcripts
//   - compact: budget-driven history compaction
//   - settings: TOML/YAML/JSON configuration loading
//   - tool: tool definitions with JSON Schema parameters
//
// # Quick Start
//
// Truncating a conversation at a message:
//
//	import "github.com/randalmurphal/aiderdesk/contextmgr"
//	mgr := contextmgr.New("task-1", messages)
//	removed, err := mgr.RemoveMessagesAfter("msg-3")
//
// Token counting over a transcript:
//
//	import "github.com/randalmurphal/aiderdesk/tokens"
//	counter := tokens.NewEstimatingCounter()
//	count := counter.CountMessages(messages)
//
// # Design Philosophy
//
// aiderdesk follows these principles:
//
//   - Each package usable independently
//   - Stable, semver-friendly API
//   - Sensible defaults with full configurability
//   - Interfaces for extensibility, concrete types for simplicity
package aiderdesk
