package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/randalmurphal/aiderdesk/transcript"
)

// pollInterval is the fallback cadence when fsnotify is unavailable.
const pollInterval = 200 * time.Millisecond

// Watch observes taskID's snapshot and delivers the reloaded transcript
// after each rewrite. The channel is closed when ctx is cancelled.
//
// Snapshots are replaced by rename, so the watcher listens on the store
// directory and reloads the whole file on create/write events for the
// task's snapshot name. Reloads that race a rewrite and fail to parse are
// skipped; the next event delivers a consistent snapshot.
func (s *FileStore) Watch(ctx context.Context, taskID string) <-chan []transcript.Message {
	ch := make(chan []transcript.Message, 8)

	go func() {
		defer close(ch)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			s.watchPolling(ctx, taskID, ch)
			return
		}
		defer watcher.Close()

		// Watching the directory survives the rename-replace of the
		// snapshot file.
		if err := watcher.Add(s.dir); err != nil {
			watcher.Close()
			s.watchPolling(ctx, taskID, ch)
			return
		}

		base := filepath.Base(s.Path(taskID))
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				s.deliver(taskID, ch)

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Usually recoverable; keep watching.
			}
		}
	}()

	return ch
}

// watchPolling reloads on a ticker when fsnotify cannot be used. Snapshots
// are re-delivered only when the file's modification time advances.
func (s *FileStore) watchPolling(ctx context.Context, taskID string, ch chan<- []transcript.Message) {
	var lastMod time.Time
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(s.Path(taskID))
			if err != nil {
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}
			lastMod = info.ModTime()
			s.deliver(taskID, ch)
		}
	}
}

// deliver reloads the snapshot and sends it without blocking.
func (s *FileStore) deliver(taskID string, ch chan<- []transcript.Message) {
	msgs, err := s.Load(taskID)
	if err != nil {
		return
	}
	select {
	case ch <- msgs:
	default:
		// Receiver is behind; it will catch up on the next event.
	}
}
