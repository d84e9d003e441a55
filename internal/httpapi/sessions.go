package httpapi

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joelkehle/gtm-toolkit/internal/catalog"
	"github.com/joelkehle/gtm-toolkit/internal/toolkit"
)

type SessionConfig struct {
	TTL         time.Duration
	MaxSessions int
	Clock       func() time.Time
}

type session struct {
	tk       *toolkit.Toolkit
	lastSeen time.Time
}

// Sessions keeps one toolkit per browser tab in memory. Nothing is
// persisted; idle sessions are dropped after the TTL.
type Sessions struct {
	cat *catalog.Catalog
	cfg SessionConfig

	mu       sync.Mutex
	sessions map[string]*session
}

func NewSessions(cat *catalog.Catalog, cfg SessionConfig) *Sessions {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Sessions{cat: cat, cfg: cfg, sessions: map[string]*session{}}
}

// Create starts a session. launchStart may be zero for the default.
func (s *Sessions) Create(launchStart time.Time) (string, *toolkit.Toolkit, error) {
	now := s.cfg.Clock()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)
	if len(s.sessions) >= s.cfg.MaxSessions {
		return "", nil, newError(CodeUnavailable, "session limit reached")
	}
	tk, err := toolkit.New(s.cat, toolkit.Config{LaunchStart: launchStart, Clock: s.cfg.Clock})
	if err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	s.sessions[id] = &session{tk: tk, lastSeen: now}
	return id, tk, nil
}

// Get returns the session's toolkit and marks it as used.
func (s *Sessions) Get(id string) (*toolkit.Toolkit, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	now := s.cfg.Clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if now.Sub(sess.lastSeen) > s.cfg.TTL {
		delete(s.sessions, id)
		sess.tk.Close()
		return nil, false
	}
	sess.lastSeen = now
	return sess.tk, true
}

func (s *Sessions) Delete(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if ok {
		sess.tk.Close()
	}
	return ok
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops idle sessions and reports how many went.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.cfg.Clock())
}

func (s *Sessions) sweepLocked(now time.Time) int {
	dropped := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.cfg.TTL {
			delete(s.sessions, id)
			sess.tk.Close()
			dropped++
		}
	}
	return dropped
}

// Run sweeps on every tick until ctx is done, then closes every session.
func (s *Sessions) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Printf("sessions swept dropped=%d remaining=%d", n, s.Len())
			}
		}
	}
}

func (s *Sessions) closeAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = map[string]*session{}
	s.mu.Unlock()
	for _, sess := range all {
		sess.tk.Close()
	}
}
