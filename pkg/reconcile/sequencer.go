package reconcile

import (
	"sync"
	"time"
)

// Sequencer issues generation tokens. Tokens are strictly increasing across
// all keys and seeded from the wall clock, so tokens issued by a restarted
// process still exceed tokens persisted by an earlier run.
type Sequencer struct {
	mu     sync.Mutex
	last   int64
	latest map[Key]int64
	now    func() time.Time
}

// NewSequencer returns an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{latest: map[Key]int64{}, now: time.Now}
}

// Issue returns a fresh token for key and records it as the latest.
func (s *Sequencer) Issue(key Key) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := s.now().UnixMilli()
	if tok <= s.last {
		tok = s.last + 1
	}
	s.last = tok
	s.latest[key] = tok
	return tok
}

// Latest returns the most recent token issued for key, or 0.
func (s *Sequencer) Latest(key Key) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[key]
}

// IsCurrent reports whether token is still the latest issued for key.
// Completion handlers call it to drop superseded results.
func (s *Sequencer) IsCurrent(key Key, token int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[key] == token
}

// Forget drops the record for key. Outstanding tokens for it stop being
// current.
func (s *Sequencer) Forget(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.latest, key)
}

// ForgetProducer drops the record of every slot of producer.
func (s *Sequencer) ForgetProducer(producer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.latest {
		if k.Producer == producer {
			delete(s.latest, k)
		}
	}
}
