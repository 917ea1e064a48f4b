package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/randalmurphal/aiderdesk/transcript"
)

// ErrTaskNotFound indicates no snapshot exists for the task.
var ErrTaskNotFound = errors.New("no transcript snapshot for task")

// snapshotExt is the snapshot file extension.
const snapshotExt = ".jsonl"

// maxLineSize bounds a single snapshot line. Tool results can embed whole
// files, so the limit is generous.
const maxLineSize = 10 * 1024 * 1024

// FileStore persists transcripts as per-task JSONL files under a base
// directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the store's base directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the snapshot path for a task.
func (s *FileStore) Path(taskID string) string {
	return filepath.Join(s.dir, taskID+snapshotExt)
}

// Persist writes the full transcript for taskID. The write is atomic: a
// temp file is written and renamed over the snapshot.
func (s *FileStore) Persist(taskID string, msgs []transcript.Message) error {
	tmp, err := os.CreateTemp(s.dir, taskID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, msg := range msgs {
		line, err := json.Marshal(msg)
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("encode message %s: %w", msg.ID(), err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("write snapshot: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, s.Path(taskID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load restores a task's transcript. Returns ErrTaskNotFound if no
// snapshot exists. Malformed lines fail the load; a snapshot is either
// read whole or rejected.
func (s *FileStore) Load(taskID string) ([]transcript.Message, error) {
	file, err := os.Open(s.Path(taskID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	var msgs []transcript.Message
	scanner := bufio.NewScanner(file)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		msg, err := transcript.ParseMessage(line)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s line %d: %w", taskID, lineNo, err)
		}
		msgs = append(msgs, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}

	return msgs, nil
}

// Delete removes a task's snapshot. Deleting a missing snapshot is not an
// error.
func (s *FileStore) Delete(taskID string) error {
	err := os.Remove(s.Path(taskID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// List returns the task IDs with a stored snapshot, sorted.
func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, snapshotExt))
	}
	sort.Strings(ids)
	return ids, nil
}
