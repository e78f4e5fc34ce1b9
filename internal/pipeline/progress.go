// Package pipeline runs the triage stages against an oracle and an
// item source, collecting the artifacts of a run.
package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// Entry is one line of the run's progress log.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Tag       string    `json:"tag"`
	Message   string    `json:"message"`
}

// ProgressLog is the append-only record of a run. Within a run entries
// are only ever appended, so a reader that polls Snapshot sees every
// earlier snapshot as a prefix of the later one. Reset starts a new run
// and clears the log.
type ProgressLog struct {
	mu      sync.Mutex
	session string
	entries []Entry
}

func NewProgressLog() *ProgressLog {
	return &ProgressLog{}
}

// Reset clears the log and begins a new session.
func (p *ProgressLog) Reset(session string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session = session
	p.entries = nil
}

// Session returns the identifier of the current run.
func (p *ProgressLog) Session() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Append records one event.
func (p *ProgressLog) Append(tag, format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, Entry{
		Timestamp: time.Now(),
		Tag:       tag,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Snapshot returns a copy of the entries recorded so far.
func (p *ProgressLog) Snapshot() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Len returns the number of entries recorded so far.
func (p *ProgressLog) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
