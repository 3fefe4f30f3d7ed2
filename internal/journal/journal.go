// Package journal keeps an append-only JSONL record of query executions:
// the generated plan, each step's outcome, and the synthesis result.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType categorizes journal entries
type EventType string

const (
	EventPlan      EventType = "plan"
	EventStep      EventType = "step"
	EventSynthesis EventType = "synthesis"
	EventError     EventType = "error"
)

// Entry is a single journaled event.
type Entry struct {
	Timestamp time.Time       `json:"timestamp"`
	Query     string          `json:"query"`
	Event     EventType       `json:"event"`
	Tool      string          `json:"tool,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Journal appends entries to one JSONL file per day.
type Journal struct {
	dir string
	mu  sync.Mutex
}

// New creates or opens a journal in the given directory.
func New(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	return &Journal{dir: dir}, nil
}

// Record appends one event.
func (j *Journal) Record(query string, event EventType, tool string, payload any, evErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := Entry{
		Timestamp: time.Now().UTC(),
		Query:     query,
		Event:     event,
		Tool:      tool,
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		entry.Payload = raw
	}
	if evErr != nil {
		entry.Error = evErr.Error()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	f, err := os.OpenFile(j.path(entry.Timestamp), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

// Day returns all entries journaled on the given day, in append order.
func (j *Journal) Day(day time.Time) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.path(day))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var entries []Entry
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("parse entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

func (j *Journal) path(at time.Time) string {
	return filepath.Join(j.dir, at.UTC().Format("2006-01-02")+".jsonl")
}
