package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// HistoryEntry describes one line the shell executed.
type HistoryEntry struct {
	Command    string        `json:"command"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	ExitStatus int           `json:"exit_status"`
	Duration   time.Duration `json:"duration"`
}

// NewHistoryEntry creates an entry for a command that ran from start until
// finish.
func NewHistoryEntry(command string, start, finish time.Time, status int) *HistoryEntry {
	return &HistoryEntry{
		Command:    command,
		StartedAt:  start,
		FinishedAt: finish,
		ExitStatus: status,
		Duration:   finish.Sub(start),
	}
}

// Recorder stores history entries in an external datastore.
type Recorder interface {
	Record(he *HistoryEntry) error
}

// LogRecorder is a callback that implements Recorder.
type LogRecorder func(he *HistoryEntry) error

// Record implements Recorder.
func (f LogRecorder) Record(he *HistoryEntry) error {
	return f(he)
}

var _ Recorder = (LogRecorder)(nil)

// Discard drops every entry.
var Discard Recorder = LogRecorder(func(*HistoryEntry) error { return nil })

// NewJsonLinesLogRecorder creates a Recorder that exports entries in newline
// delimited JSON object format.
func NewJsonLinesLogRecorder(w io.Writer) LogRecorder {
	var mu sync.Mutex
	return func(he *HistoryEntry) error {
		entry, err := json.Marshal(he)
		if err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		_, err = fmt.Fprintln(w, string(entry))
		return err
	}
}

// ReadJSONLinesLog parses a newline delimited JSON log.
func ReadJSONLinesLog(r io.Reader, handler func(he *HistoryEntry)) error {
	decoder := json.NewDecoder(r)
	for decoder.More() {
		var entry HistoryEntry
		if err := decoder.Decode(&entry); err != nil {
			return err
		}

		handler(&entry)
	}
	return nil
}
