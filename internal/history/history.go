// Package history keeps recent code resolutions in memory so the widget can
// show what was scanned earlier in the session.
package history

import (
	"sync"
	"time"

	"github.com/readshelf/shelfscan/internal/barcode"
	"github.com/readshelf/shelfscan/internal/lookup"
)

// Entry is one resolved scan.
type Entry struct {
	Code       barcode.Code
	Result     *lookup.Result
	ResolvedAt time.Time
}

// Store is a mutex-guarded in-memory history, newest first.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
}

// New returns a store keeping at most limit entries; limit <= 0 means
// unbounded.
func New(limit int) *Store {
	return &Store{limit: limit}
}

// Record prepends a resolution.
func (s *Store) Record(code barcode.Code, result *lookup.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]Entry{{Code: code, Result: result, ResolvedAt: time.Now()}}, s.entries...)
	if s.limit > 0 && len(s.entries) > s.limit {
		s.entries = s.entries[:s.limit]
	}
}

// Recent returns a copy of the stored entries, newest first.
func (s *Store) Recent() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Find returns the most recent entry for code.
func (s *Store) Find(code barcode.Code) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.Code == code {
			return e, true
		}
	}
	return Entry{}, false
}
