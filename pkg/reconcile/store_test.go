package reconcile

import (
	"fmt"
	"sync"
	"testing"

	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/resolve"
)

var slot = Key{Producer: "remapper-1", Slot: "result-out-0"}

func TestStoreRejectsStaleToken(t *testing.T) {
	s := NewStore(nil)
	a := design.Payload{Status: design.StatusSuccess, GenerationID: 100, PreviewURL: "data:A"}
	b := design.Payload{Status: design.StatusSuccess, GenerationID: 50, PreviewURL: "data:B"}

	if _, out := s.Submit(slot, a); out != Committed {
		t.Fatalf("A outcome = %s", out)
	}
	v := s.Version()
	if _, out := s.Submit(slot, b); out != Rejected {
		t.Errorf("B outcome = %s, want rejected", out)
	}
	got, _ := s.Payload(slot)
	if got.PreviewURL != "data:A" || got.GenerationID != 100 {
		t.Errorf("stored = %+v, want A", got)
	}
	if s.Version() != v {
		t.Error("version bumped by rejected payload")
	}
}

func TestStoreGateStripsConfirmedGenerative(t *testing.T) {
	s := NewStore(nil)
	s.Submit(slot, confirmedGenerative())

	s.Submit(slot, design.Payload{
		Status:            design.StatusSuccess,
		Layers:            layers("gen-a", "0", "1"),
		GenerationAllowed: design.Bool(false),
	})
	got, _ := s.Payload(slot)
	if design.HasGenerative(got.Layers) {
		t.Error("generative layer stored with gate closed")
	}
	if got.PreviewURL != "" {
		t.Errorf("PreviewURL = %q, want empty", got.PreviewURL)
	}
}

func TestStoreIdempotentSubmission(t *testing.T) {
	s := NewStore(nil)
	var events int
	unsubscribe := s.Subscribe(func(Event) { events++ })
	defer unsubscribe()

	p := confirmedGenerative()
	s.Submit(slot, p)
	v := s.Version()

	if _, out := s.Submit(slot, p); out != Unchanged {
		t.Errorf("outcome = %s, want unchanged", out)
	}
	if s.Version() != v {
		t.Errorf("version = %d, want %d", s.Version(), v)
	}
	if events != 1 {
		t.Errorf("events = %d, want 1", events)
	}
}

func TestStorePatch(t *testing.T) {
	s := NewStore(nil)
	s.Submit(slot, design.Payload{Status: design.StatusSuccess, Layers: layers("gen-a", "0"), ScaleFactor: 0.5})

	preview, token := "data:image/png;base64,NEW", int64(10)
	got, out := s.Patch(slot, design.PayloadPatch{
		PreviewURL:     &preview,
		GenerationID:   &token,
		IsTransient:    design.Bool(true),
		IsConfirmed:    design.Bool(true),
		IsSynthesizing: design.Bool(false),
	})
	if out != Committed {
		t.Fatalf("outcome = %s", out)
	}
	if got.PreviewURL != preview || got.ScaleFactor != 0.5 || len(got.Layers) != 2 {
		t.Errorf("patched payload = %+v", got)
	}
	if got.Confirmed() {
		t.Error("transient patch confirmed the preview")
	}

	got, _ = s.Patch(slot, design.PayloadPatch{IsConfirmed: design.Bool(true), IsTransient: design.Bool(false)})
	if !got.Confirmed() || got.GenerationID != 10 {
		t.Errorf("confirm patch = %+v", got)
	}

	stale := int64(5)
	if _, out := s.Patch(slot, design.PayloadPatch{GenerationID: &stale, PreviewURL: &preview}); out != Rejected {
		t.Errorf("stale patch outcome = %s", out)
	}
}

func TestStorePatchEmptySlot(t *testing.T) {
	s := NewStore(nil)
	msg := "boom"
	status := design.StatusError
	got, out := s.Patch(slot, design.PayloadPatch{Status: &status, Error: &msg})
	if out != Committed || got.Status != design.StatusError || got.Error != "boom" {
		t.Errorf("Patch() = %+v, %s", got, out)
	}
}

func TestStoreRegistries(t *testing.T) {
	s := NewStore(nil)
	other := Key{Producer: "remapper-2", Slot: "result-out-0"}

	s.Submit(slot, design.Payload{Status: design.StatusSuccess})
	s.Submit(Key{Producer: "remapper-1", Slot: "result-out-1"}, design.Payload{Status: design.StatusSuccess})
	s.Submit(other, design.Payload{Status: design.StatusSuccess})
	s.SetContext(slot, MappingContext{Resolution: resolve.Result{Status: resolve.StatusResolved, Count: 2}})
	s.SetKnowledge("remapper-1", design.KnowledgeContext{Rules: []string{"keep logos top right"}})

	if c, ok := s.Context(slot); !ok || c.Resolution.Count != 2 {
		t.Errorf("Context() = %+v, %v", c, ok)
	}
	if k, ok := s.Knowledge("remapper-1"); !ok || len(k.Rules) != 1 {
		t.Errorf("Knowledge() = %+v, %v", k, ok)
	}

	var removed []Event
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventRemoved {
			removed = append(removed, ev)
		}
	})

	v := s.Version()
	if n := s.RemoveProducer("remapper-1"); n != 4 {
		t.Errorf("RemoveProducer() = %d, want 4", n)
	}
	if s.Version() <= v {
		t.Error("version not bumped by removal")
	}
	if _, ok := s.Payload(slot); ok {
		t.Error("payload survived producer removal")
	}
	if _, ok := s.Context(slot); ok {
		t.Error("context survived producer removal")
	}
	if _, ok := s.Knowledge("remapper-1"); ok {
		t.Error("knowledge survived producer removal")
	}
	if _, ok := s.Payload(other); !ok {
		t.Error("unrelated producer removed")
	}
	if len(removed) != 1 || removed[0].Key.Producer != "remapper-1" {
		t.Errorf("removal events = %+v", removed)
	}

	v = s.Version()
	s.RemoveProducer("never-registered")
	if s.Version() != v+1 {
		t.Error("removing an unknown producer must still bump the version")
	}
}

func TestStoreRemoveSlot(t *testing.T) {
	s := NewStore(nil)
	s.Submit(slot, design.Payload{Status: design.StatusSuccess})
	if !s.Remove(slot) {
		t.Error("Remove() = false")
	}
	if s.Remove(slot) {
		t.Error("second Remove() = true")
	}
	if len(s.Keys()) != 0 {
		t.Errorf("Keys() = %v", s.Keys())
	}
}

func TestStoreUnsubscribe(t *testing.T) {
	s := NewStore(nil)
	calls := 0
	unsubscribe := s.Subscribe(func(Event) { calls++ })
	s.Submit(slot, design.Payload{Status: design.StatusSuccess})
	unsubscribe()
	s.Submit(slot, design.Payload{Status: design.StatusIdle})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestStoreSubscriberMayReadStore(t *testing.T) {
	s := NewStore(nil)
	var seen design.Payload
	s.Subscribe(func(ev Event) {
		seen, _ = s.Payload(ev.Key)
	})
	s.Submit(slot, design.Payload{Status: design.StatusSuccess, ScaleFactor: 2})
	if seen.ScaleFactor != 2 {
		t.Error("subscriber could not read the committed payload")
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	s := NewStore(nil)
	s.Submit(slot, design.Payload{Status: design.StatusSuccess, Layers: layers("0")})
	got, _ := s.Payload(slot)
	got.Layers[0].ID = "mutated"
	again, _ := s.Payload(slot)
	if again.Layers[0].ID != "0" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestStoreConcurrentSubmissions(t *testing.T) {
	s := NewStore(nil)
	seq := NewSequencer()
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := Key{Producer: "remapper-1", Slot: fmt.Sprintf("result-out-%d", i%4)}
			tok := seq.Issue(key)
			s.Submit(key, design.Payload{Status: design.StatusSuccess, GenerationID: tok})
		}()
	}
	wg.Wait()

	for _, k := range s.Keys() {
		p, _ := s.Payload(k)
		if p.GenerationID != seq.Latest(k) {
			// A later token may have been committed before an earlier one
			// arrived; the earlier one must then have been rejected.
			if p.GenerationID < seq.Latest(k) {
				t.Errorf("%s holds token %d, latest issued %d was lost", k, p.GenerationID, seq.Latest(k))
			}
		}
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{Committed: "committed", Unchanged: "unchanged", Rejected: "rejected", Outcome(9): "Outcome(9)"} {
		if o.String() != want {
			t.Errorf("%d.String() = %q, want %q", int(o), o.String(), want)
		}
	}
}
