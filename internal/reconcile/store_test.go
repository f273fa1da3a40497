package reconcile

import (
	"context"
	"maps"
	"sync"
)

// record is a stand-in resource: a keyed set of packaging refs plus create-only tags.
type record struct {
	Key  string
	Refs map[string]string
	Tags map[string]string
}

func (r record) clone() record {
	return record{Key: r.Key, Refs: maps.Clone(r.Refs), Tags: maps.Clone(r.Tags)}
}

func recordKey(r record) string { return r.Key }

func mergeRecord(current, desired record) (record, bool) {
	merged := current.clone()
	if merged.Refs == nil {
		merged.Refs = map[string]string{}
	}
	changed := false
	for id, path := range desired.Refs {
		if existing, ok := merged.Refs[id]; !ok || existing != path {
			merged.Refs[id] = path
			changed = true
		}
	}
	return merged, changed
}

func recordPresent(current, desired record) bool {
	for id := range desired.Refs {
		if _, ok := current.Refs[id]; !ok {
			return false
		}
	}
	return true
}

// memStore is an atomic single-resource store with no conditional writes.
type memStore struct {
	mu      sync.Mutex
	records map[string]record
	calls   map[string]int
	// failures are consumed in order per operation before normal behavior.
	failures map[string][]error
	// afterUpdate runs under the lock after a successful update.
	afterUpdate func(records map[string]record)
}

func newMemStore() *memStore {
	return &memStore{
		records:  map[string]record{},
		calls:    map[string]int{},
		failures: map[string][]error{},
	}
}

func (s *memStore) fail(op string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], errs...)
}

func (s *memStore) next(op string) error {
	s.calls[op]++
	queue := s.failures[op]
	if len(queue) == 0 {
		return nil
	}
	s.failures[op] = queue[1:]
	return queue[0]
}

func (s *memStore) Create(_ context.Context, desired record) (record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.next("create"); err != nil {
		return record{}, err
	}
	if _, ok := s.records[desired.Key]; ok {
		return record{}, NewConflict(KindAlreadyExists, desired.Key, "resource already exists", nil)
	}
	s.records[desired.Key] = desired.clone()
	return desired.clone(), nil
}

func (s *memStore) Read(_ context.Context, desired record) (record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.next("read"); err != nil {
		return record{}, err
	}
	current, ok := s.records[desired.Key]
	if !ok {
		return record{}, NewConflict(KindNotFound, desired.Key, "no such resource", nil)
	}
	return current.clone(), nil
}

func (s *memStore) Update(_ context.Context, merged record) (record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.next("update"); err != nil {
		return record{}, err
	}
	current, ok := s.records[merged.Key]
	if !ok {
		return record{}, NewConflict(KindNotFound, merged.Key, "no such resource", nil)
	}
	updated := merged.clone()
	updated.Tags = current.Tags
	s.records[merged.Key] = updated
	if s.afterUpdate != nil {
		s.afterUpdate(s.records)
	}
	return updated.clone(), nil
}

func (s *memStore) Delete(_ context.Context, desired record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.next("delete"); err != nil {
		return err
	}
	if _, ok := s.records[desired.Key]; !ok {
		return NewConflict(KindNotFound, desired.Key, "no such resource", nil)
	}
	delete(s.records, desired.Key)
	return nil
}

func (s *memStore) get(key string) (record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[key]
	return r.clone(), ok
}

func (s *memStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

type countingObserver struct {
	mu        sync.Mutex
	outcomes  map[Outcome]int
	conflicts map[ConflictKind]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{outcomes: map[Outcome]int{}, conflicts: map[ConflictKind]int{}}
}

func (o *countingObserver) Outcome(_ string, outcome Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[outcome]++
}

func (o *countingObserver) Conflict(_ string, kind ConflictKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conflicts[kind]++
}
