// Package history keeps an in-memory log of answered questions for the
// current session. Nothing is persisted; restarting the process clears it.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridianlabs/salescope/pkg/analyst"
)

const maxArchivedRows = 10

// Entry is one archived question with its outcome. Rows are truncated to the
// first 10 so a large scan doesn't pin its whole result set in memory.
type Entry struct {
	ID               string           `json:"id"`
	Question         string           `json:"question"`
	AskedAt          time.Time        `json:"askedAt"`
	Analysis         string           `json:"analysis,omitempty"`
	FriendlyError    string           `json:"friendlyError,omitempty"`
	Rows             []map[string]any `json:"rows,omitempty"`
	ExecutionSeconds float64          `json:"executionTime,omitempty"`
	StepsCompleted   []string         `json:"stepsCompleted"`
}

// Log is a concurrency-safe session history.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

// New creates an empty history log.
func New() *Log {
	return &Log{}
}

// Record archives a terminal pipeline state and returns the entry.
func (l *Log) Record(state analyst.State) Entry {
	rows := state.Rows
	if len(rows) > maxArchivedRows {
		rows = rows[:maxArchivedRows]
	}

	entry := Entry{
		ID:               uuid.NewString(),
		Question:         state.Question,
		AskedAt:          state.StartedAt,
		Analysis:         state.Analysis,
		FriendlyError:    state.FriendlyError,
		Rows:             rows,
		ExecutionSeconds: state.ExecutionSeconds,
		StepsCompleted:   state.StepsCompleted,
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	return entry
}

// Entries returns a copy of all archived entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of archived entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
