package sensor

import (
	"sync"
	"sync/atomic"
	"time"

	"smartfarm-dashboard-go/internal/farmapi"
)

// Store holds the most recent snapshot. Writers replace it wholesale and
// readers can skip work when nothing changed since their last read.
type Store struct {
	mu       sync.RWMutex
	snapshot *farmapi.SensorSnapshot

	seq       atomic.Uint64
	updatedAt atomic.Int64 // unix nano
	failures  atomic.Uint64
}

func NewStore() *Store {
	return &Store{}
}

// Put replaces the stored snapshot.
func (s *Store) Put(snap *farmapi.SensorSnapshot) {
	s.mu.Lock()
	s.snapshot = snap
	s.seq.Add(1)
	s.updatedAt.Store(time.Now().UnixNano())
	s.mu.Unlock()
}

// Latest returns the stored snapshot, nil before the first Put.
func (s *Store) Latest() *farmapi.SensorSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// ReadIfNew returns the snapshot only if it was replaced after lastSeq.
func (s *Store) ReadIfNew(lastSeq uint64) (*farmapi.SensorSnapshot, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	current := s.seq.Load()
	if current <= lastSeq {
		return nil, lastSeq, false
	}
	return s.snapshot, current, true
}

func (s *Store) Seq() uint64 {
	return s.seq.Load()
}

// UpdatedAt is the time of the last Put, zero before the first one.
func (s *Store) UpdatedAt() time.Time {
	nanos := s.updatedAt.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func (s *Store) MarkFailed() {
	s.failures.Add(1)
}

func (s *Store) Failures() uint64 {
	return s.failures.Load()
}
