package finding

import (
	"sort"
	"sync"
	"time"
)

// Store is an append-only, concurrency-safe list of findings.
type Store struct {
	mu       sync.Mutex
	items    []*Finding
	keys     map[string]struct{}
	reported map[string]struct{}
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		keys:     make(map[string]struct{}),
		reported: make(map[string]struct{}),
	}
}

// Add appends f unless an identical finding is already stored or, when once
// is set, the script already has a finding. It reports whether f was added.
func (s *Store) Add(f *Finding, once bool) bool {
	if f == nil {
		return false
	}
	if f.Time.IsZero() {
		f.Time = time.Now()
	}

	key := f.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if once {
		if _, ok := s.reported[f.Script]; ok {
			return false
		}
	}
	if _, ok := s.keys[key]; ok {
		return false
	}
	s.keys[key] = struct{}{}
	s.reported[f.Script] = struct{}{}
	s.items = append(s.items, f)
	return true
}

// Reported reports whether script has at least one finding.
func (s *Store) Reported(script string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reported[script]
	return ok
}

// Len returns the number of stored findings.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// All returns the findings in insertion order.
func (s *Store) All() []*Finding {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Finding, len(s.items))
	copy(out, s.items)
	return out
}

// Sorted returns the findings ordered by descending severity, then script
// name, then URL.
func (s *Store) Sorted() []*Finding {
	out := s.All()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Severity.Score() != b.Severity.Score() {
			return a.Severity.Score() > b.Severity.Score()
		}
		if a.Script != b.Script {
			return a.Script < b.Script
		}
		return a.URL < b.URL
	})
	return out
}
