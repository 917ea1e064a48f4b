// Package task owns the per-task orchestration around the context manager.
//
// A Task pairs its metadata (title, working directory, timestamps) with
// the contextmgr.Manager holding its conversation transcript. The Manager
// in this package is the registry of open tasks: it creates and resumes
// tasks against a persistent store, routes user actions ("delete up to
// here", "redo last prompt", compaction) to the right context manager, and
// serializes every transcript mutation through a keylock.Locker keyed by
// task ID so an edit never races an in-flight streaming append.
//
// Context managers themselves are single-writer and carry no locks; all
// cross-goroutine discipline lives here.
package task
