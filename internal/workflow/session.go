package workflow

import (
	"sync"
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/sfecr/compliagent/internal/analyst"
)

// Event is pushed to websocket subscribers as the workflow progresses.
// "log" events are cosmetic processing-phase lines; "stage" and "error"
// events mirror real state changes.
type Event struct {
	Type    string    `json:"type"` // "stage", "log", "error"
	Stage   Stage     `json:"stage,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Session is one workflow instance. All state access goes through the
// mutex; the long LLM calls happen outside it with the busy flag set.
type Session struct {
	mu    sync.Mutex
	state State
	subs  map[chan Event]struct{}
}

func newSession(id string) *Session {
	return &Session{
		state: State{
			SessionID: id,
			Stage:     StageSubmit,
			StageName: StageSubmit.String(),
			Entities:  []analyst.ExtractedEntity{},
		},
		subs: make(map[chan Event]struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	st := s.state
	st.StageName = st.Stage.String()
	st.Entities = append([]analyst.ExtractedEntity(nil), s.state.Entities...)
	if st.Entities == nil {
		st.Entities = []analyst.ExtractedEntity{}
	}
	return st
}

// Subscribe registers an event channel. The channel is buffered by the
// caller's size; slow subscribers drop events rather than block.
func (s *Session) Subscribe() chan Event {
	ch := make(chan Event, 32)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes an event channel.
func (s *Session) Unsubscribe(ch chan Event) {
	s.mu.Lock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
	s.mu.Unlock()
}

func (s *Session) emitLocked(ev Event) {
	ev.Time = time.Now()
	for ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) emit(ev Event) {
	s.mu.Lock()
	s.emitLocked(ev)
	s.mu.Unlock()
}

func (s *Session) closeSubscribers() {
	s.mu.Lock()
	for ch := range s.subs {
		close(ch)
	}
	s.subs = make(map[chan Event]struct{})
	s.mu.Unlock()
}

// Manager owns the live sessions. Expired sessions are evicted by the
// TTL cache; nothing survives process restart.
type Manager struct {
	sessions *cache.Cache
	logger   *zap.Logger
}

// NewManager creates a session manager with the given session TTL.
func NewManager(ttl time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cache.New(ttl, 5*time.Minute)
	c.OnEvicted(func(id string, v any) {
		if sess, ok := v.(*Session); ok {
			sess.closeSubscribers()
		}
	})
	return &Manager{sessions: c, logger: logger}
}

// Create starts a fresh session at the Submit stage.
func (m *Manager) Create() *Session {
	id := uuid.New().String()
	sess := newSession(id)
	m.sessions.SetDefault(id, sess)
	m.logger.Info("workflow session created", zap.String("session_id", id))
	return sess
}

// Get returns the session with the given id, or nil.
func (m *Manager) Get(id string) *Session {
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil
	}
	return v.(*Session)
}

// Destroy removes a session and closes its subscribers.
func (m *Manager) Destroy(id string) {
	if sess := m.Get(id); sess != nil {
		sess.closeSubscribers()
	}
	m.sessions.Delete(id)
	m.logger.Info("workflow session destroyed", zap.String("session_id", id))
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.sessions.ItemCount()
}
