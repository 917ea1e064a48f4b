// Package contextmgr maintains the conversation transcript for one task and
// performs structural edits to it.
//
// A Manager owns an ordered list of transcript messages. Messages are
// appended by the surrounding orchestration as the conversation progresses;
// the manager's job is removal. Its central operation,
// RemoveMessagesAfter, truncates the transcript at an anchor — a message ID
// or a tool-call ID — keeping the anchored message and deleting everything
// after it.
//
// When the cut lands on a tool message, the nearest preceding assistant
// message is sliced: tool-call blocks whose results fall outside the kept
// range are removed, while text and reasoning blocks always survive. An
// assistant message emptied by slicing is deleted outright, so no ghost
// turns linger in the transcript.
//
// Failed operations are atomic. If the anchor does not resolve, the
// transcript is left byte-for-byte as it was.
//
// A Manager performs no locking of its own; callers serialize access per
// task (see the keylock package). After a successful removal the manager
// invokes its persistence sink synchronously, unless autosave is disabled
// or nothing was removed.
package contextmgr
