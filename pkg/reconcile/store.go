package reconcile

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/recompose/pkg/cache"
	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/observability"
	"github.com/matzehuels/recompose/pkg/resolve"
)

// Key identifies one output slot of one producer.
type Key struct {
	Producer string `json:"producer"`
	Slot     string `json:"slot"`
}

func (k Key) String() string { return k.Producer + "/" + k.Slot }

// Outcome describes what a submission did to the store.
type Outcome int

const (
	// Committed means the slot changed and subscribers were notified.
	Committed Outcome = iota
	// Unchanged means the merged payload equalled the stored one.
	Unchanged
	// Rejected means the candidate was stale and discarded.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Committed:
		return "committed"
	case Unchanged:
		return "unchanged"
	case Rejected:
		return "rejected"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// MappingContext is the resolved context of a slot: which source container
// feeds it, how its design group resolved, and the strategy attached to it.
type MappingContext struct {
	SourceContainer *design.Container `json:"sourceContainer,omitempty"`
	Resolution      resolve.Result    `json:"resolution"`
	Strategy        *design.Strategy  `json:"strategy,omitempty"`
	KnowledgeMuted  bool              `json:"knowledgeMuted,omitempty"`
}

// EventKind classifies store notifications.
type EventKind int

const (
	// EventCommitted reports a new payload for Key.
	EventCommitted EventKind = iota
	// EventRemoved reports that Key (or, with an empty Slot, every slot of
	// Key.Producer) was purged.
	EventRemoved
)

// Event is delivered to subscribers after the store lock is released.
type Event struct {
	Kind    EventKind
	Key     Key
	Payload design.Payload
	Version uint64
}

type entry struct {
	payload design.Payload
	hash    string
}

// Store is the keyed registry of authoritative payloads plus the parallel
// context and knowledge registries. It is safe for concurrent use; merges
// for one key are applied in the order submissions acquire the lock.
type Store struct {
	mu        sync.Mutex
	payloads  map[Key]entry
	contexts  map[Key]MappingContext
	knowledge map[string]design.KnowledgeContext
	version   uint64
	subs      map[int]func(Event)
	nextSub   int
	logger    *log.Logger
}

// NewStore returns an empty store. A nil logger discards output.
func NewStore(logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{
		payloads:  map[Key]entry{},
		contexts:  map[Key]MappingContext{},
		knowledge: map[string]design.KnowledgeContext{},
		subs:      map[int]func(Event){},
		logger:    logger,
	}
}

// Submit merges candidate into the slot at key.
// It returns the payload now stored and what happened.
func (s *Store) Submit(key Key, candidate design.Payload) (design.Payload, Outcome) {
	s.mu.Lock()
	var cur *design.Payload
	if e, ok := s.payloads[key]; ok {
		cur = &e.payload
	}
	return s.commitLocked(key, candidate, cur)
}

// Patch shallow-merges patch onto the stored payload (or an empty one) and
// submits the result.
func (s *Store) Patch(key Key, patch design.PayloadPatch) (design.Payload, Outcome) {
	s.mu.Lock()
	var cur *design.Payload
	base := design.Payload{Status: design.StatusIdle}
	if e, ok := s.payloads[key]; ok {
		cur = &e.payload
		base = e.payload
	}
	return s.commitLocked(key, patch.Apply(base), cur)
}

// commitLocked runs the merge and stores the result. It is called with
// s.mu held and releases it.
func (s *Store) commitLocked(key Key, candidate design.Payload, cur *design.Payload) (design.Payload, Outcome) {
	merged, accepted := Merge(candidate, cur)
	if !accepted {
		s.mu.Unlock()
		s.logger.Debug("rejected stale payload", "key", key, "token", candidate.GenerationID, "current", cur.GenerationID)
		observability.Reconcile().OnReject(key.Producer, key.Slot, candidate.GenerationID, cur.GenerationID)
		return merged, Rejected
	}

	hash, err := cache.HashJSON(merged)
	if err != nil {
		// Unhashable payloads are always stored.
		hash = ""
	}
	if e, ok := s.payloads[key]; ok && hash != "" && e.hash == hash {
		s.mu.Unlock()
		observability.Reconcile().OnUnchanged(key.Producer, key.Slot)
		return merged, Unchanged
	}

	s.payloads[key] = entry{payload: merged, hash: hash}
	s.version++
	ev := Event{Kind: EventCommitted, Key: key, Payload: merged.Clone(), Version: s.version}
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.logger.Debug("committed payload", "key", key, "status", merged.Status, "version", ev.Version)
	observability.Reconcile().OnCommit(key.Producer, key.Slot, ev.Version)
	notify(subs, ev)
	return merged.Clone(), Committed
}

// Payload returns a copy of the payload stored at key.
func (s *Store) Payload(key Key) (design.Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.payloads[key]
	if !ok {
		return design.Payload{}, false
	}
	return e.payload.Clone(), true
}

// Keys returns every occupied key, sorted by producer then slot.
func (s *Store) Keys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]Key, 0, len(s.payloads))
	for k := range s.payloads {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Producer != keys[j].Producer {
			return keys[i].Producer < keys[j].Producer
		}
		return keys[i].Slot < keys[j].Slot
	})
	return keys
}

// Remove purges the payload and context of a single slot.
func (s *Store) Remove(key Key) bool {
	s.mu.Lock()
	_, had := s.payloads[key]
	_, hadCtx := s.contexts[key]
	if !had && !hadCtx {
		s.mu.Unlock()
		return false
	}
	delete(s.payloads, key)
	delete(s.contexts, key)
	s.version++
	ev := Event{Kind: EventRemoved, Key: key, Version: s.version}
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, ev)
	return true
}

// SetContext records the resolved context of a slot.
func (s *Store) SetContext(key Key, ctx MappingContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[key] = ctx
}

// Context returns the resolved context of a slot.
func (s *Store) Context(key Key) (MappingContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contexts[key]
	return c, ok
}

// SetKnowledge records the knowledge context a producer publishes.
func (s *Store) SetKnowledge(producer string, k design.KnowledgeContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knowledge[producer] = k
}

// Knowledge returns the knowledge context of a producer.
func (s *Store) Knowledge(producer string) (design.KnowledgeContext, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.knowledge[producer]
	return k, ok
}

// RemoveProducer purges every registry entry of producer and bumps the
// global version, even when nothing was stored. It returns the number of
// entries removed.
func (s *Store) RemoveProducer(producer string) int {
	s.mu.Lock()
	n := 0
	for k := range s.payloads {
		if k.Producer == producer {
			delete(s.payloads, k)
			n++
		}
	}
	for k := range s.contexts {
		if k.Producer == producer {
			delete(s.contexts, k)
			n++
		}
	}
	if _, ok := s.knowledge[producer]; ok {
		delete(s.knowledge, producer)
		n++
	}
	s.version++
	ev := Event{Kind: EventRemoved, Key: Key{Producer: producer}, Version: s.version}
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.logger.Debug("removed producer", "producer", producer, "entries", n, "version", ev.Version)
	observability.Reconcile().OnRemove(producer, n)
	notify(subs, ev)
	return n
}

// Version returns the global version. It increases on every commit and
// removal; dependents use it to invalidate derived state.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Subscribe registers fn for store events and returns a function that
// removes it. fn runs on the goroutine that changed the store, after the
// store lock has been released.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) subscribersLocked() []func(Event) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, s.subs[id])
	}
	return out
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
