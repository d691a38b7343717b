package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pagelens/pdftext/internal/domain"
)

// Status of an extraction session.
type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Session holds one extraction's progress and outcome for the duration of
// the interactive session. Nothing here is ever persisted.
type Session struct {
	ID       string
	Filename string

	mu          sync.Mutex
	status      Status
	stage       domain.Stage
	events      []domain.Event
	subscribers []chan domain.Event
	outcome     *domain.ExtractionOutcome
	err         error
	finishedAt  time.Time
}

// Publish records an event and fans it out to subscribers. Slow subscribers
// lose events rather than blocking the pipeline.
func (s *Session) Publish(event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.Stage != "" {
		s.stage = event.Stage
	}
	s.events = append(s.events, event)
	for _, sub := range s.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// Subscribe returns a snapshot of past events plus a channel of future ones.
// The channel is closed when the session finishes.
func (s *Session) Subscribe() ([]domain.Event, <-chan domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]domain.Event, len(s.events))
	copy(snapshot, s.events)
	if s.status != StatusRunning {
		closed := make(chan domain.Event)
		close(closed)
		return snapshot, closed
	}
	sub := make(chan domain.Event, 64)
	s.subscribers = append(s.subscribers, sub)
	return snapshot, sub
}

// Finish marks the session terminal and closes all subscriber channels.
func (s *Session) Finish(outcome *domain.ExtractionOutcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.status = StatusFailed
		s.stage = domain.StageFailed
		s.err = err
	} else {
		s.status = StatusDone
		s.stage = domain.StageDone
		s.outcome = outcome
	}
	s.finishedAt = time.Now()
	for _, sub := range s.subscribers {
		close(sub)
	}
	s.subscribers = nil
}

// State returns the session's current status, stage, outcome and error.
func (s *Session) State() (Status, domain.Stage, *domain.ExtractionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.stage, s.outcome, s.err
}

// Store keeps sessions in memory, keyed by id, and evicts finished sessions
// after a TTL.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a session store. Finished sessions are evicted once they
// are older than ttl.
func NewStore(ttl time.Duration) *Store {
	st := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go st.janitor()
	return st
}

// Create registers a new running session.
func (st *Store) Create(filename string) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		Filename: filename,
		status:   StatusRunning,
		stage:    domain.StageValidating,
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with the given id, if it exists.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Close stops the eviction janitor.
func (st *Store) Close() {
	st.stopOnce.Do(func() { close(st.stop) })
}

func (st *Store) janitor() {
	interval := st.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-st.stop:
			return
		case <-ticker.C:
			st.evict(time.Now())
		}
	}
}

func (st *Store) evict(now time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for id, s := range st.sessions {
		s.mu.Lock()
		expired := s.status != StatusRunning && !s.finishedAt.IsZero() && now.Sub(s.finishedAt) > st.ttl
		s.mu.Unlock()
		if expired {
			delete(st.sessions, id)
		}
	}
}
