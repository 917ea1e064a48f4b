package contextmgr

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/aiderdesk/transcript"
)

// recordingSaver captures Persist calls for assertions.
type recordingSaver struct {
	calls      int
	lastTaskID string
	lastMsgs   []transcript.Message
	err        error
}

func (s *recordingSaver) Persist(taskID string, msgs []transcript.Message) error {
	s.calls++
	s.lastTaskID = taskID
	s.lastMsgs = msgs
	return s.err
}

func user(id, text string) *transcript.UserMessage {
	return &transcript.UserMessage{
		MessageID: id,
		Content:   []transcript.Block{transcript.TextBlock{Text: text}},
	}
}

func asst(id string, blocks ...transcript.Block) *transcript.AssistantMessage {
	return &transcript.AssistantMessage{MessageID: id, Content: blocks}
}

func call(callID, name string) transcript.ToolCallBlock {
	return transcript.ToolCallBlock{
		ToolCallID: callID,
		ToolName:   name,
		Args:       json.RawMessage(`{}`),
	}
}

func toolMsg(id string, callIDs ...string) *transcript.ToolMessage {
	results := make([]transcript.ToolResultBlock, len(callIDs))
	for i, callID := range callIDs {
		results[i] = transcript.ToolResultBlock{
			ToolCallID: callID,
			Result:     json.RawMessage(`"ok"`),
		}
	}
	return &transcript.ToolMessage{MessageID: id, Content: results}
}

func ids(msgs []transcript.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID()
	}
	return out
}

func TestRemoveMessagesAfter_PlainTruncation(t *testing.T) {
	mgr := New("task-1", []transcript.Message{
		user("msg-1", "first"),
		asst("msg-2", transcript.TextBlock{Text: "reply"}),
		user("msg-3", "second"),
		asst("msg-4", transcript.TextBlock{Text: "reply two"}),
		user("msg-5", "third"),
	})

	removed, err := mgr.RemoveMessagesAfter("msg-3")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"msg-4", "msg-5"}, removed)
	assert.Equal(t, []string{"msg-1", "msg-2", "msg-3"}, ids(mgr.ContextMessages()))
}

func TestRemoveMessagesAfter_SlicesDanglingToolCalls(t *testing.T) {
	// msg-2 issues two calls; each result lives in its own tool message.
	// Cutting at the first tool message must trim the second call out of
	// msg-2 while keeping its text.
	mgr := New("task-1", []transcript.Message{
		user("msg-1", "do two things"),
		asst("msg-2",
			transcript.TextBlock{Text: "working on it"},
			call("call-1", "read_file"),
			call("call-2", "run_tests"),
		),
		toolMsg("msg-3", "call-1"),
		toolMsg("msg-4", "call-2"),
		user("msg-5", "never mind"),
	})

	removed, err := mgr.RemoveMessagesAfter("msg-3")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"msg-4", "msg-5"}, removed)

	kept := mgr.ContextMessages()
	require.Equal(t, []string{"msg-1", "msg-2", "msg-3"}, ids(kept))

	sliced, ok := kept[1].(*transcript.AssistantMessage)
	require.True(t, ok)
	assert.Equal(t, "working on it", sliced.Text())
	calls := sliced.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call-1", calls[0].ToolCallID)
}

func TestRemoveMessagesAfter_KeepsResolvedCallsIntact(t *testing.T) {
	// The call answered within the kept range survives untouched, along
	// with the reasoning block.
	mgr := New("task-1", []transcript.Message{
		user("msg-1", "go"),
		asst("msg-2",
			transcript.ReasoningBlock{Reasoning: "need the file first"},
			call("call-1", "read_file"),
		),
		toolMsg("msg-3", "call-1"),
		asst("msg-4", call("call-2", "write_file")),
		toolMsg("msg-5", "call-2"),
	})

	removed, err := mgr.RemoveMessagesAfter("msg-3")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"msg-4", "msg-5"}, removed)

	kept := mgr.ContextMessages()
	require.Equal(t, []string{"msg-1", "msg-2", "msg-3"}, ids(kept))

	sliced := kept[1].(*transcript.AssistantMessage)
	require.Len(t, sliced.Content, 2)
	assert.IsType(t, transcript.ReasoningBlock{}, sliced.Content[0])
	calls := sliced.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call-1", calls[0].ToolCallID)
}

func TestRemoveMessagesAfter_ToolCallIDAnchor(t *testing.T) {
	// Anchoring by tool-call ID resolves to the tool message holding the
	// result and behaves exactly like anchoring by that message's own ID.
	build := func() *Manager {
		return New("task-1", []transcript.Message{
			user("msg-1", "go"),
			asst("msg-2", call("call-123", "read_file"), call("call-456", "run_tests")),
			toolMsg("msg-3", "call-123"),
			toolMsg("msg-4", "call-456"),
		})
	}

	byCallID := build()
	removedByCall, err := byCallID.RemoveMessagesAfter("call-123")
	require.NoError(t, err)

	byMsgID := build()
	removedByMsg, err := byMsgID.RemoveMessagesAfter("msg-3")
	require.NoError(t, err)

	assert.Equal(t, removedByMsg, removedByCall)
	assert.Equal(t, ids(byMsgID.ContextMessages()), ids(byCallID.ContextMessages()))
}

func TestRemoveMessagesAfter_EmptiedAssistantIsDeleted(t *testing.T) {
	// msg-2 is nothing but an unanswered-in-range tool call; slicing
	// leaves it empty, so it is deleted and reported.
	mgr := New("task-1", []transcript.Message{
		user("msg-1", "go"),
		asst("msg-2", call("call-1", "read_file"), call("call-2", "run_tests")),
		toolMsg("msg-3", "call-1"),
		asst("msg-4", call("call-3", "write_file")),
		toolMsg("msg-5", "call-3"),
	})

	// Cut at msg-5: its nearest assistant msg-4 keeps call-3 (result in
	// range). Nothing removed, nothing trimmed.
	removed, err := mgr.RemoveMessagesAfter("msg-5")
	require.NoError(t, err)
	assert.Empty(t, removed)

	// Now cut so that msg-4 loses its only call.
	mgr2 := New("task-1", []transcript.Message{
		user("msg-1", "go"),
		asst("msg-2", transcript.TextBlock{Text: "first"}),
		asst("msg-3", call("call-1", "read_file"), call("call-2", "run_tests")),
		toolMsg("msg-4", "call-1"),
		toolMsg("msg-5", "call-2"),
		user("msg-6", "stop"),
	})

	// Cutting at msg-4 keeps only call-1's result; call-2 is trimmed.
	removed, err = mgr2.RemoveMessagesAfter("msg-4")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"msg-5", "msg-6"}, removed)

	kept := mgr2.ContextMessages()
	require.Equal(t, []string{"msg-1", "msg-2", "msg-3", "msg-4"}, ids(kept))

	// An assistant message holding only dangling calls disappears.
	mgr3 := New("task-1", []transcript.Message{
		user("msg-1", "go"),
		asst("msg-2", call("call-1", "read_file")),
		toolMsg("msg-3", "call-1"),
		asst("msg-4", call("call-2", "run_tests"), call("call-3", "lint")),
		toolMsg("msg-5", "call-2"),
		toolMsg("msg-6", "call-3"),
	})

	removed, err = mgr3.RemoveMessagesAfter("msg-5")
	require.NoError(t, err)
	// call-3's result (msg-6) is cut, but call-2's survives, so msg-4 keeps
	// one call and is not deleted.
	assert.ElementsMatch(t, []string{"msg-6"}, removed)
	kept = mgr3.ContextMessages()
	require.Equal(t, []string{"msg-1", "msg-2", "msg-3", "msg-4", "msg-5"}, ids(kept))
	require.Len(t, kept[3].(*transcript.AssistantMessage).ToolCalls(), 1)
}

func TestRemoveMessagesAfter_EmptiedAssistantReportedInRemovedSet(t *testing.T) {
	mgr := New("task-1", []transcript.Message{
		user("msg-1", "go"),
		asst("msg-2", call("call-1", "read_file"), call("call-2", "run_tests")),
		toolMsg("msg-3", "call-1"),
		toolMsg("msg-4", "call-2"),
	})

	// Force msg-2 empty: rebuild transcript where the assistant holds only
	// call-2 whose result is beyond the cut.
	mgr = New("task-1", []transcript.Message{
		user("msg-1", "go"),
		asst("msg-2", call("call-1", "read_file")),
		toolMsg("msg-3", "call-0"),
		toolMsg("msg-4", "call-1"),
	})

	// Cut at msg-3: msg-2's only call resolves at msg-4, which is removed,
	// so msg-2 empties and is deleted too.
	removed, err := mgr.RemoveMessagesAfter("msg-3")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"msg-2", "msg-4"}, removed)
	assert.Equal(t, []string{"msg-1", "msg-3"}, ids(mgr.ContextMessages()))
}

func TestRemoveMessagesAfter_LastMessageIsNoOp(t *testing.T) {
	saver := &recordingSaver{}
	mgr := New("task-1", []transcript.Message{user("msg-1", "only")}, WithSaver(saver))

	removed, err := mgr.RemoveMessagesAfter("msg-1")
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Equal(t, []string{"msg-1"}, ids(mgr.ContextMessages()))
	assert.Zero(t, saver.calls, "no-op removal must not autosave")
}

func TestRemoveMessagesAfter_EmptyTranscript(t *testing.T) {
	mgr := New("task-1", nil)

	_, err := mgr.RemoveMessagesAfter("anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyTranscript)
	assert.Empty(t, mgr.ContextMessages())
}

func TestRemoveMessagesAfter_AnchorNotFoundIsAtomic(t *testing.T) {
	saver := &recordingSaver{}
	original := []transcript.Message{
		user("msg-1", "go"),
		asst("msg-2", call("call-1", "read_file")),
		toolMsg("msg-3", "call-1"),
	}
	mgr := New("task-1", original, WithSaver(saver))
	before := mgr.ContextMessages()

	_, err := mgr.RemoveMessagesAfter("no-such-anchor")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnchorNotFound)
	assert.True(t, IsCallerError(err))

	after := mgr.ContextMessages()
	assert.Equal(t, before, after, "failed removal must leave the transcript untouched")
	assert.Zero(t, saver.calls)

	// Deterministic on repeat: same anchor, same error, still no change.
	_, err2 := mgr.RemoveMessagesAfter("no-such-anchor")
	assert.ErrorIs(t, err2, ErrAnchorNotFound)
	assert.Equal(t, before, mgr.ContextMessages())
}

func TestRemoveMessagesAfter_AutosaveTriggersOnRemoval(t *testing.T) {
	saver := &recordingSaver{}
	mgr := New("task-9", []transcript.Message{
		user("msg-1", "a"),
		user("msg-2", "b"),
	}, WithSaver(saver))

	removed, err := mgr.RemoveMessagesAfter("msg-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-2"}, removed)

	require.Equal(t, 1, saver.calls)
	assert.Equal(t, "task-9", saver.lastTaskID)
	assert.Equal(t, []string{"msg-1"}, ids(saver.lastMsgs))
}

func TestRemoveMessagesAfter_AutosaveDisabled(t *testing.T) {
	saver := &recordingSaver{}
	mgr := New("task-1", []transcript.Message{
		user("msg-1", "a"),
		user("msg-2", "b"),
	}, WithSaver(saver), WithAutosave(false))

	_, err := mgr.RemoveMessagesAfter("msg-1")
	require.NoError(t, err)
	assert.Zero(t, saver.calls)

	mgr2 := New("task-1", []transcript.Message{
		user("msg-1", "a"),
		user("msg-2", "b"),
	}, WithSaver(saver))
	mgr2.DisableAutosave()
	assert.False(t, mgr2.AutosaveEnabled())
	mgr2.EnableAutosave()
	assert.True(t, mgr2.AutosaveEnabled())
}

func TestRemoveMessagesAfter_PersistFailureSurfaces(t *testing.T) {
	sinkErr := errors.New("disk full")
	saver := &recordingSaver{err: sinkErr}
	mgr := New("task-1", []transcript.Message{
		user("msg-1", "a"),
		user("msg-2", "b"),
	}, WithSaver(saver))

	removed, err := mgr.RemoveMessagesAfter("msg-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, sinkErr)
	// The in-memory truncation stands even when the write fails.
	assert.Equal(t, []string{"msg-2"}, removed)
	assert.Equal(t, []string{"msg-1"}, ids(mgr.ContextMessages()))
}

func TestManager_CloneIsolation(t *testing.T) {
	mgr := New("task-1", []transcript.Message{
		asst("msg-1", transcript.TextBlock{Text: "hello"}, call("call-1", "read_file")),
	})

	first := mgr.ContextMessages()
	am := first[0].(*transcript.AssistantMessage)
	am.MessageID = "mutated"
	am.Content[0] = transcript.TextBlock{Text: "mutated"}
	am.Content = append(am.Content, transcript.TextBlock{Text: "extra"})

	second := mgr.ContextMessages()
	require.Len(t, second, 1)
	got := second[0].(*transcript.AssistantMessage)
	assert.Equal(t, "msg-1", got.MessageID)
	require.Len(t, got.Content, 2)
	assert.Equal(t, "hello", got.Text())
}

func TestManager_ConstructionCopiesInitialMessages(t *testing.T) {
	initial := []transcript.Message{user("msg-1", "hello")}
	mgr := New("task-1", initial)

	initial[0].(*transcript.UserMessage).Content[0] = transcript.TextBlock{Text: "mutated"}

	got := mgr.ContextMessages()
	assert.Equal(t, "hello", got[0].(*transcript.UserMessage).Text())
}

func TestManager_Closed(t *testing.T) {
	mgr := New("task-1", []transcript.Message{user("msg-1", "a"), user("msg-2", "b")})
	assert.False(t, mgr.Closed())

	mgr.Close()
	assert.True(t, mgr.Closed())

	// Final reads still work.
	assert.Len(t, mgr.ContextMessages(), 2)

	_, err := mgr.RemoveMessagesAfter("msg-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.Len(t, mgr.ContextMessages(), 2)
}

func TestRemoveMessagesAfter_PrefixUnmodified(t *testing.T) {
	// Everything before the cut point survives byte-for-byte, including
	// assistant metadata.
	rich := asst("msg-2", transcript.TextBlock{Text: "done"})
	rich.Usage = &transcript.UsageReport{InputTokens: 10, OutputTokens: 20}
	rich.EditedFiles = []string{"main.go"}

	mgr := New("task-1", []transcript.Message{
		user("msg-1", "go"),
		rich,
		user("msg-3", "more"),
		user("msg-4", "even more"),
	})
	before := mgr.ContextMessages()[:3]

	_, err := mgr.RemoveMessagesAfter("msg-3")
	require.NoError(t, err)
	assert.Equal(t, before, mgr.ContextMessages())
}

func TestRemoveMessagesAfter_MalformedResultLeftUntouched(t *testing.T) {
	// A result block whose call never existed is a load-time integrity
	// problem; the edit must not crash and never deletes result blocks.
	mgr := New("task-1", []transcript.Message{
		user("msg-1", "go"),
		asst("msg-2", call("call-1", "read_file")),
		toolMsg("msg-3", "orphan-call"),
		user("msg-4", "tail"),
	})

	removed, err := mgr.RemoveMessagesAfter("msg-3")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"msg-2", "msg-4"}, removed)

	kept := mgr.ContextMessages()
	// msg-2's only call (call-1) has no result in range, so it empties and
	// is deleted; the orphan result block itself survives untouched.
	require.Equal(t, []string{"msg-1", "msg-3"}, ids(kept))
	tm := kept[1].(*transcript.ToolMessage)
	require.Len(t, tm.Content, 1)
	assert.Equal(t, "orphan-call", tm.Content[0].ToolCallID)
}

func TestAppend(t *testing.T) {
	saver := &recordingSaver{}
	mgr := New("task-1", nil, WithSaver(saver))

	require.NoError(t, mgr.Append())
	assert.Zero(t, saver.calls, "empty append must not autosave")

	msg := user("msg-1", "hello")
	require.NoError(t, mgr.Append(msg))
	assert.Equal(t, 1, saver.calls)
	assert.Equal(t, []string{"msg-1"}, ids(mgr.ContextMessages()))

	// Appended messages are copied on ingestion.
	msg.Content[0] = transcript.TextBlock{Text: "mutated"}
	assert.Equal(t, "hello", mgr.ContextMessages()[0].(*transcript.UserMessage).Text())

	mgr.Close()
	err := mgr.Append(user("msg-2", "late"))
	assert.ErrorIs(t, err, ErrManagerClosed)
}

func TestClear(t *testing.T) {
	saver := &recordingSaver{}
	mgr := New("task-1", []transcript.Message{
		user("msg-1", "a"),
		user("msg-2", "b"),
	}, WithSaver(saver))

	removed, err := mgr.Clear()
	require.NoError(t, err)
	assert.Equal(t, []string{"msg-1", "msg-2"}, removed)
	assert.Empty(t, mgr.ContextMessages())
	assert.Equal(t, 1, saver.calls)
	assert.Empty(t, saver.lastMsgs)

	// A second clear is a no-op.
	removed, err = mgr.Clear()
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Equal(t, 1, saver.calls)
}

func TestRemoveMessagesAfter_ErrorMessageNamesTask(t *testing.T) {
	mgr := New("task-42", []transcript.Message{user("msg-1", "a")})

	_, err := mgr.RemoveMessagesAfter("missing")
	require.Error(t, err)

	var ctxErr *Error
	require.ErrorAs(t, err, &ctxErr)
	assert.Equal(t, "task-42", ctxErr.TaskID)
	assert.Equal(t, "remove", ctxErr.Op)
	assert.Contains(t, err.Error(), "task-42")
}
