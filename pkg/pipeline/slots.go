package pipeline

import (
	"context"

	"github.com/matzehuels/recompose/pkg/container"
	"github.com/matzehuels/recompose/pkg/design"
	"github.com/matzehuels/recompose/pkg/observability"
	"github.com/matzehuels/recompose/pkg/reconcile"
	"github.com/matzehuels/recompose/pkg/resolve"
	"github.com/matzehuels/recompose/pkg/transform"
)

// Recompute resolves the source group of a remapper instance, transforms it
// onto the target container and submits the result to the store. Missing
// documents, unresolved groups and empty containers produce an idle payload
// carrying the reason; they are not errors.
func (r *Runner) Recompute(ctx context.Context, producer string, index int) (design.Payload, reconcile.Outcome, error) {
	m, err := r.mustMapping(producer, index)
	if err != nil {
		return design.Payload{}, reconcile.Rejected, err
	}
	key := SlotKey(producer, index)

	var (
		src, dst *design.Container
		tree     []design.Layer
	)
	if d, ok := r.Document(m.SourceDoc); ok {
		tree = d.Layers
		src = lookupContainer(d.Template, m.SourceContainer)
	}
	if d, ok := r.Document(m.TargetDoc); ok {
		dst = lookupContainer(d.Template, m.TargetContainer)
	}

	name := m.SourceContainer
	if src != nil {
		name = src.Name
	}
	res := resolve.Resolve(name, tree)
	r.Store.SetContext(key, reconcile.MappingContext{
		SourceContainer: src,
		Resolution:      res,
		Strategy:        m.Strategy,
		KnowledgeMuted:  m.KnowledgeMuted,
	})

	if !res.Status.Go() {
		r.Logger.Debug("slot not ready", "slot", key, "status", res.Status)
		p, out := r.Store.Submit(key, idlePayload(src, dst, res.Message))
		return p, out, nil
	}

	p, ok := transform.Compute(transform.Input{
		Source:            src,
		SourceLayers:      groupLayers(res.Node),
		Target:            dst,
		Strategy:          m.Strategy,
		ConfirmedPrompt:   m.ConfirmedPrompt,
		GenerationAllowed: m.GenerationAllowed,
	})
	if !ok {
		r.Logger.Debug("slot not ready", "slot", key, "reason", "container missing or empty")
		p, out := r.Store.Submit(key, idlePayload(src, dst, "source or target container is not available"))
		return p, out, nil
	}
	if m.Strategy != nil {
		p.SourceReference = m.Strategy.SourceReference
	}
	observability.Pipeline().OnTransform(ctx, key.Producer, key.Slot, p.Metrics.LayerCount, p.ScaleFactor)

	stored, outcome := r.Store.Submit(key, p)
	r.Logger.Debug("computed transform",
		"slot", key,
		"scale", p.ScaleFactor,
		"layers", p.Metrics.LayerCount,
		"outcome", outcome)
	return stored, outcome, nil
}

// RecomputeDocument recomputes every instance that reads from or writes to
// document id. Call it after reloading a document.
func (r *Runner) RecomputeDocument(ctx context.Context, id string) int {
	n := 0
	for _, producer := range r.producers() {
		for _, i := range r.Instances(producer) {
			m, ok := r.Mapping(producer, i)
			if !ok || (m.SourceDoc != id && m.TargetDoc != id) {
				continue
			}
			if _, _, err := r.Recompute(ctx, producer, i); err == nil {
				n++
			}
		}
	}
	return n
}

// Reconcile applies a partial update to a slot.
func (r *Runner) Reconcile(key reconcile.Key, patch design.PayloadPatch) (design.Payload, reconcile.Outcome) {
	return r.Store.Patch(key, patch)
}

// SetGenerationAllowed opens or closes the generation gate of an instance
// and recomputes it. Closing the gate cancels a pending synthesis.
func (r *Runner) SetGenerationAllowed(ctx context.Context, producer string, index int, allowed bool) (design.Payload, error) {
	if _, err := r.mustMapping(producer, index); err != nil {
		return design.Payload{}, err
	}
	r.UpdateMapping(producer, index, func(m Mapping) Mapping {
		m.GenerationAllowed = design.Bool(allowed)
		return m
	})
	if !allowed {
		key := SlotKey(producer, index)
		r.Debouncer.Cancel(key)
		r.Sequencer.Issue(key)
	}
	p, _, err := r.Recompute(ctx, producer, index)
	return p, err
}

// Disconnect detaches the source of an instance. Pending and in-flight
// generation for the slot is abandoned and the slot becomes idle.
func (r *Runner) Disconnect(producer string, index int) design.Payload {
	key := SlotKey(producer, index)
	r.Debouncer.Cancel(key)
	r.Sequencer.Issue(key)
	r.Sequencer.Issue(analysisKey(key))

	if _, ok := r.Mapping(producer, index); ok {
		r.UpdateMapping(producer, index, func(m Mapping) Mapping {
			m.SourceDoc = ""
			return m
		})
	}
	p, _ := r.Store.Submit(key, design.Payload{Status: design.StatusIdle, Layers: []design.TransformedLayer{}})
	r.Logger.Debug("disconnected slot", "slot", key)
	return p
}

// RemoveNode purges every trace of a producer: mapping state, pending
// triggers, tokens and store entries. It returns the number of store
// entries removed.
func (r *Runner) RemoveNode(producer string) int {
	for _, i := range r.Instances(producer) {
		r.Debouncer.Cancel(SlotKey(producer, i))
	}
	r.mu.Lock()
	delete(r.remappers, producer)
	r.mu.Unlock()

	r.Sequencer.ForgetProducer(producer)
	n := r.Store.RemoveProducer(producer)
	r.Logger.Info("removed node", "producer", producer, "entries", n)
	return n
}

func lookupContainer(tpl container.Template, ref string) *design.Container {
	if c, ok := tpl.ByID(ref); ok {
		return &c
	}
	if c, ok := tpl.ByName(ref); ok {
		return &c
	}
	return nil
}

func groupLayers(n *design.Layer) []design.Layer {
	if n == nil {
		return nil
	}
	if n.Kind == design.KindGroup {
		return n.Children
	}
	return []design.Layer{*n}
}

func idlePayload(src, dst *design.Container, reason string) design.Payload {
	return design.Payload{
		Status:          design.StatusIdle,
		SourceContainer: src,
		TargetContainer: dst,
		Layers:          []design.TransformedLayer{},
		Error:           reason,
	}
}
