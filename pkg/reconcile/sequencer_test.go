package reconcile

import (
	"sync"
	"testing"
	"time"
)

func TestSequencerMonotonic(t *testing.T) {
	s := NewSequencer()
	fixed := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { return fixed }

	a := s.Issue(slot)
	b := s.Issue(slot)
	c := s.Issue(Key{Producer: "other", Slot: "result-out-0"})
	if !(a < b && b < c) {
		t.Errorf("tokens not strictly increasing: %d %d %d", a, b, c)
	}
	if a != fixed.UnixMilli() {
		t.Errorf("first token = %d, want clock seed %d", a, fixed.UnixMilli())
	}

	// A clock going backwards must not produce a smaller token.
	s.now = func() time.Time { return fixed.Add(-time.Hour) }
	if d := s.Issue(slot); d <= c {
		t.Errorf("token after clock skew = %d, want > %d", d, c)
	}
}

func TestSequencerSupersession(t *testing.T) {
	s := NewSequencer()
	first := s.Issue(slot)
	if !s.IsCurrent(slot, first) {
		t.Error("fresh token not current")
	}
	second := s.Issue(slot)
	if s.IsCurrent(slot, first) {
		t.Error("superseded token still current")
	}
	if !s.IsCurrent(slot, second) || s.Latest(slot) != second {
		t.Error("latest token not current")
	}

	s.Forget(slot)
	if s.IsCurrent(slot, second) || s.Latest(slot) != 0 {
		t.Error("Forget kept the token")
	}

	k1 := Key{Producer: "p", Slot: "a"}
	k2 := Key{Producer: "p", Slot: "b"}
	k3 := Key{Producer: "q", Slot: "a"}
	s.Issue(k1)
	s.Issue(k2)
	tok := s.Issue(k3)
	s.ForgetProducer("p")
	if s.Latest(k1) != 0 || s.Latest(k2) != 0 || s.Latest(k3) != tok {
		t.Error("ForgetProducer removed the wrong keys")
	}
}

func TestSequencerConcurrent(t *testing.T) {
	s := NewSequencer()
	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok := s.Issue(slot)
			mu.Lock()
			defer mu.Unlock()
			if seen[tok] {
				t.Errorf("duplicate token %d", tok)
			}
			seen[tok] = true
		}()
	}
	wg.Wait()
}
