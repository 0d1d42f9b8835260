package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/recompose/pkg/design"
)

var (
	hero   = &design.Container{ID: "container-0-HERO", Name: "HERO", Bounds: design.Rect{W: 100, H: 100}}
	banner = &design.Container{ID: "container-1-BANNER", Name: "BANNER", Bounds: design.Rect{W: 300, H: 50}}
)

func layers(ids ...string) []design.TransformedLayer {
	out := make([]design.TransformedLayer, 0, len(ids))
	for _, id := range ids {
		kind := design.KindLeaf
		if len(id) > 4 && id[:4] == "gen-" {
			kind = design.KindGenerative
		}
		out = append(out, design.TransformedLayer{ID: id, Kind: kind})
	}
	return out
}

// confirmedGenerative is a slot holding an accepted generated asset.
func confirmedGenerative() design.Payload {
	return design.Payload{
		Status:          design.StatusSuccess,
		TargetContainer: hero,
		Layers:          layers("gen-a", "0", "1"),
		ScaleFactor:     0.5,
		Metrics:         design.Metrics{LayerCount: 3},
		PreviewURL:      "data:image/png;base64,AAA",
		SourceReference: "data:image/png;base64,REF",
		GenerationID:    100,
		IsConfirmed:     design.Bool(true),
		IsTransient:     design.Bool(false),
		IsSynthesizing:  design.Bool(false),
	}
}

func TestMergeGateEnforcement(t *testing.T) {
	cur := confirmedGenerative()
	cand := confirmedGenerative()
	cand.GenerationAllowed = design.Bool(false)
	cand.RequiresGeneration = design.Bool(true)
	// Even a stale token cannot bypass the gate.
	cand.GenerationID = 1

	got, ok := Merge(cand, &cur)
	if !ok {
		t.Fatal("gated candidate rejected")
	}
	if design.HasGenerative(got.Layers) {
		t.Error("generative layers survived the gate")
	}
	if diff := cmp.Diff(layers("0", "1"), got.Layers); diff != "" {
		t.Errorf("layers mismatch (-want +got):\n%s", diff)
	}
	if got.PreviewURL != "" {
		t.Errorf("PreviewURL = %q, want empty", got.PreviewURL)
	}
	for name, p := range map[string]*bool{
		"IsConfirmed":        got.IsConfirmed,
		"IsTransient":        got.IsTransient,
		"IsSynthesizing":     got.IsSynthesizing,
		"RequiresGeneration": got.RequiresGeneration,
	} {
		if p != nil {
			t.Errorf("%s = %v, want unset", name, *p)
		}
	}
	if got.ScaleFactor != 0.5 || got.Metrics.LayerCount != 3 {
		t.Error("geometry or metrics not kept")
	}
	if cand.PreviewURL == "" || !design.HasGenerative(cand.Layers) {
		t.Error("candidate was modified")
	}
}

func TestMergeStaleness(t *testing.T) {
	cur := confirmedGenerative()
	tests := []struct {
		name     string
		token    int64
		accepted bool
	}{
		{"smaller", 50, false},
		{"equal", 100, true},
		{"larger", 150, true},
		{"none", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := design.Payload{Status: design.StatusSuccess, GenerationID: tt.token, PreviewURL: "data:new"}
			got, ok := Merge(cand, &cur)
			if ok != tt.accepted {
				t.Fatalf("accepted = %v, want %v", ok, tt.accepted)
			}
			if !ok {
				if diff := cmp.Diff(cur, got); diff != "" {
					t.Errorf("rejected merge changed payload (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestMergeIdleReset(t *testing.T) {
	cur := confirmedGenerative()
	cand := design.Payload{
		Status:      design.StatusIdle,
		Layers:      []design.TransformedLayer{},
		PreviewURL:  "data:leftover",
		IsConfirmed: design.Bool(true),
	}
	got, _ := Merge(cand, &cur)
	if got.Status != design.StatusIdle {
		t.Errorf("Status = %s, want idle", got.Status)
	}
	if got.PreviewURL != "" || got.IsConfirmed != nil || got.IsTransient != nil || got.IsSynthesizing != nil {
		t.Errorf("preview/confirmation state kept: %+v", got)
	}
	if len(got.Layers) != 0 {
		t.Error("idle candidate layers not adopted")
	}
}

func TestMergeSynthesisStart(t *testing.T) {
	cur := confirmedGenerative()
	cand := design.Payload{
		Status:          design.StatusSuccess,
		TargetContainer: banner,
		Layers:          layers("0"),
		ScaleFactor:     0.25,
		Metrics:         design.Metrics{LayerCount: 1},
		GenerationID:    200,
		IsSynthesizing:  design.Bool(true),
	}
	got, ok := Merge(cand, &cur)
	if !ok {
		t.Fatal("synthesis start rejected")
	}
	if !got.Synthesizing() {
		t.Error("IsSynthesizing not set")
	}
	if got.PreviewURL != cur.PreviewURL || got.SourceReference != cur.SourceReference {
		t.Error("prior asset not preserved during synthesis")
	}
	if got.GenerationID != 100 {
		t.Errorf("GenerationID = %d, want 100", got.GenerationID)
	}
	if got.TargetContainer.ID != hero.ID {
		t.Errorf("TargetContainer = %s, want %s", got.TargetContainer.ID, hero.ID)
	}
	if got.Metrics != cur.Metrics {
		t.Errorf("Metrics = %+v, want %+v", got.Metrics, cur.Metrics)
	}
	if !got.Confirmed() {
		t.Error("confirmation flag lost")
	}
}

func TestMergeConfirmationGuard(t *testing.T) {
	cur := confirmedGenerative()
	tests := []struct {
		name string
		cand design.Payload
	}{
		{"default path inherits confirmed", design.Payload{
			Status: design.StatusSuccess, GenerationID: 150, PreviewURL: "data:new", IsTransient: design.Bool(true),
		}},
		{"explicitly confirmed", design.Payload{
			Status: design.StatusSuccess, GenerationID: 150, IsTransient: design.Bool(true), IsConfirmed: design.Bool(true),
		}},
		{"geometry refresh keeps transient", design.Payload{
			Status: design.StatusSuccess, IsTransient: design.Bool(true),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Merge(tt.cand, &cur)
			if design.BoolValue(got.IsTransient) && got.Confirmed() {
				t.Errorf("transient payload is confirmed: %+v", got)
			}
		})
	}

	transientCur := confirmedGenerative()
	transientCur.IsTransient = design.Bool(true)
	transientCur.IsConfirmed = design.Bool(false)
	got, _ := Merge(design.Payload{Status: design.StatusSuccess, IsConfirmed: design.Bool(true)}, &transientCur)
	if got.Confirmed() {
		t.Error("geometry refresh confirmed a transient preview")
	}
}

func TestMergeGeometricRefresh(t *testing.T) {
	cur := confirmedGenerative()
	cand := design.Payload{
		Status:          design.StatusSuccess,
		TargetContainer: hero,
		Layers:          layers("gen-a", "0", "1", "2"),
		ScaleFactor:     0.75,
		Metrics:         design.Metrics{LayerCount: 4},
	}
	got, _ := Merge(cand, &cur)
	if got.ScaleFactor != 0.75 || got.Metrics.LayerCount != 4 || len(got.Layers) != 4 {
		t.Error("fresh geometry not adopted")
	}
	if got.PreviewURL != cur.PreviewURL || got.GenerationID != 100 || got.SourceReference != cur.SourceReference {
		t.Error("asset state not preserved")
	}
	if !got.Confirmed() || design.BoolValue(got.IsTransient) || got.Synthesizing() {
		t.Error("flags not preserved")
	}
}

func TestMergeDefaultBackfill(t *testing.T) {
	cur := confirmedGenerative()
	cand := design.Payload{
		Status:       design.StatusSuccess,
		Layers:       layers("gen-b", "0"),
		PreviewURL:   "data:image/png;base64,NEW",
		GenerationID: 300,
	}
	got, _ := Merge(cand, &cur)
	if got.PreviewURL != "data:image/png;base64,NEW" || got.GenerationID != 300 {
		t.Error("candidate asset not adopted")
	}
	if got.SourceReference != cur.SourceReference {
		t.Error("source reference not backfilled")
	}
	if !got.Confirmed() {
		t.Error("confirmation not backfilled")
	}

	cand.IsConfirmed = design.Bool(false)
	got, _ = Merge(cand, &cur)
	if got.Confirmed() {
		t.Error("explicit IsConfirmed=false overridden")
	}
}

func TestMergeEmptySlot(t *testing.T) {
	cand := design.Payload{Status: design.StatusSuccess, Layers: layers("0"), IsTransient: design.Bool(true), IsConfirmed: design.Bool(true)}
	got, ok := Merge(cand, nil)
	if !ok {
		t.Fatal("first payload rejected")
	}
	if got.Confirmed() {
		t.Error("transient first payload confirmed")
	}

	synth := design.Payload{Status: design.StatusSuccess, IsSynthesizing: design.Bool(true), GenerationID: 5}
	got, _ = Merge(synth, nil)
	if got.GenerationID != 5 || !got.Synthesizing() {
		t.Errorf("synthesis start on empty slot = %+v", got)
	}
}

func TestIsStale(t *testing.T) {
	tests := []struct {
		cand, cur int64
		want      bool
	}{
		{50, 100, true},
		{100, 100, false},
		{150, 100, false},
		{0, 100, false},
		{50, 0, false},
	}
	for _, tt := range tests {
		if got := IsStale(tt.cand, tt.cur); got != tt.want {
			t.Errorf("IsStale(%d, %d) = %v, want %v", tt.cand, tt.cur, got, tt.want)
		}
	}
}
