// Package seen tracks the canonical listing URLs already written to the results log.
package seen

import (
	"sync"

	"github.com/pbaille/marktwatch/internal/domain"
)

// Tracker is a set of canonical URLs, safe for concurrent use
type Tracker struct {
	mu   sync.RWMutex
	urls map[string]struct{}
}

// New returns an empty tracker
func New() *Tracker {
	return &Tracker{urls: make(map[string]struct{})}
}

// Rebuild returns a fresh tracker holding the URL of every decoded record
func Rebuild(records []domain.Record) *Tracker {
	t := New()
	for _, r := range records {
		if r.URL == "" {
			continue
		}
		t.urls[r.URL] = struct{}{}
	}
	return t
}

// Contains reports whether url has been emitted
func (t *Tracker) Contains(url string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.urls[url]
	return ok
}

// Mark records url as emitted
func (t *Tracker) Mark(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.urls[url] = struct{}{}
}

// Clear forgets every URL
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.urls = make(map[string]struct{})
}

// Len returns the number of tracked URLs
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.urls)
}
