// Package store persists task transcripts as JSONL snapshot files.
//
// Each task's transcript lives in {dir}/{taskID}.jsonl, one message per
// line in the transcript package's JSON encoding. Persist rewrites the
// whole snapshot through a temp file and rename, so readers never observe
// a half-written transcript.
//
// FileStore implements the contextmgr.Saver interface, making it the
// autosave sink for context managers.
//
// Watch observes a task's snapshot file with fsnotify and delivers the
// reloaded transcript after each rewrite, which is how external observers
// (a renderer process, another pane) stay in sync without polling.
package store
