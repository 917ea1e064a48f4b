// Package transcript defines the typed conversation history model shared by
// the aiderdesk packages.
//
// A transcript is an ordered slice of Message values. Three concrete message
// types exist, one per conversation role:
//
//   - UserMessage: a prompt written by the user
//   - AssistantMessage: a model turn made of ordered content blocks
//   - ToolMessage: the results of tool calls issued by a preceding
//     assistant turn
//
// Assistant content is a sequence of Block values — text, reasoning, and
// tool calls — modeled as a sealed interface so that every consumer
// switching over block kinds breaks at compile time when a new kind is
// added.
//
// Tool pairing: a ToolCallBlock in an assistant message is answered by at
// most one ToolResultBlock carrying the same ToolCallID in a later tool
// message. Results never precede their calls.
//
// All messages and blocks support deep cloning. Code that hands transcripts
// across API boundaries clones them; nothing in this module shares live
// slices with callers.
package transcript
