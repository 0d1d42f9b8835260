package design

// Status is the lifecycle state of a [Payload].
type Status string

const (
	StatusSuccess              Status = "success"
	StatusError                Status = "error"
	StatusIdle                 Status = "idle"
	StatusAwaitingConfirmation Status = "awaiting_confirmation"
)

// Metrics summarizes a transform for display and auditing.
type Metrics struct {
	Source        Size `json:"source"`
	Target        Size `json:"target"`
	LayerCount    int  `json:"layerCount"`
	OverrideCount int  `json:"overrideCount"`
}

// Payload is the unit a producer publishes on one of its output slots.
//
// Pointer-typed flags are optional: nil means "not stated by this update",
// which the reconciliation merge treats differently from false.
type Payload struct {
	Status          Status             `json:"status"`
	SourceContainer *Container         `json:"sourceContainer,omitempty"`
	TargetContainer *Container         `json:"targetContainer,omitempty"`
	Layers          []TransformedLayer `json:"layers"`
	ScaleFactor     float64            `json:"scaleFactor"`
	Metrics         Metrics            `json:"metrics"`
	Error           string             `json:"error,omitempty"`

	// PreviewURL is a data URL (or remote URL) of a generated asset.
	PreviewURL string `json:"previewUrl,omitempty"`
	// SourceReference is a PNG data URL snapshot used as style reference.
	SourceReference string `json:"sourceReference,omitempty"`
	// GenerationID is the dispatch token of the asset this payload carries.
	// Zero means no token.
	GenerationID int64 `json:"generationId,omitempty"`

	RequiresGeneration *bool `json:"requiresGeneration,omitempty"`
	IsConfirmed        *bool `json:"isConfirmed,omitempty"`
	IsTransient        *bool `json:"isTransient,omitempty"`
	IsSynthesizing     *bool `json:"isSynthesizing,omitempty"`
	GenerationAllowed  *bool `json:"generationAllowed,omitempty"`
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// BoolValue dereferences p, treating nil as false.
func BoolValue(p *bool) bool { return p != nil && *p }

// Confirmed reports whether the payload's generated asset has been accepted.
func (p *Payload) Confirmed() bool { return BoolValue(p.IsConfirmed) }

// Synthesizing reports whether a generation request is in flight.
func (p *Payload) Synthesizing() bool { return BoolValue(p.IsSynthesizing) }

// GenerationDenied reports whether the generation gate is explicitly closed.
func (p *Payload) GenerationDenied() bool {
	return p.GenerationAllowed != nil && !*p.GenerationAllowed
}

// Clone returns a deep copy of p. Containers and layer trees are copied so
// the clone can be modified without affecting p.
func (p *Payload) Clone() Payload {
	out := *p
	if p.SourceContainer != nil {
		c := *p.SourceContainer
		out.SourceContainer = &c
	}
	if p.TargetContainer != nil {
		c := *p.TargetContainer
		out.TargetContainer = &c
	}
	out.Layers = cloneLayers(p.Layers)
	out.RequiresGeneration = cloneBool(p.RequiresGeneration)
	out.IsConfirmed = cloneBool(p.IsConfirmed)
	out.IsTransient = cloneBool(p.IsTransient)
	out.IsSynthesizing = cloneBool(p.IsSynthesizing)
	out.GenerationAllowed = cloneBool(p.GenerationAllowed)
	return out
}

func cloneLayers(in []TransformedLayer) []TransformedLayer {
	if in == nil {
		return nil
	}
	out := make([]TransformedLayer, len(in))
	for i, l := range in {
		l.Children = cloneLayers(l.Children)
		out[i] = l
	}
	return out
}

func cloneBool(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// PayloadPatch is a partial update. Non-nil fields replace the
// corresponding payload field; everything else is left as is.
type PayloadPatch struct {
	Status             *Status             `json:"status,omitempty"`
	Layers             *[]TransformedLayer `json:"layers,omitempty"`
	Error              *string             `json:"error,omitempty"`
	PreviewURL         *string             `json:"previewUrl,omitempty"`
	SourceReference    *string             `json:"sourceReference,omitempty"`
	GenerationID       *int64              `json:"generationId,omitempty"`
	RequiresGeneration *bool               `json:"requiresGeneration,omitempty"`
	IsConfirmed        *bool               `json:"isConfirmed,omitempty"`
	IsTransient        *bool               `json:"isTransient,omitempty"`
	IsSynthesizing     *bool               `json:"isSynthesizing,omitempty"`
	GenerationAllowed  *bool               `json:"generationAllowed,omitempty"`
}

// Apply shallow-merges the patch onto a copy of base and returns it.
// base is not modified.
func (pp PayloadPatch) Apply(base Payload) Payload {
	out := base.Clone()
	if pp.Status != nil {
		out.Status = *pp.Status
	}
	if pp.Layers != nil {
		out.Layers = cloneLayers(*pp.Layers)
	}
	if pp.Error != nil {
		out.Error = *pp.Error
	}
	if pp.PreviewURL != nil {
		out.PreviewURL = *pp.PreviewURL
	}
	if pp.SourceReference != nil {
		out.SourceReference = *pp.SourceReference
	}
	if pp.GenerationID != nil {
		out.GenerationID = *pp.GenerationID
	}
	if pp.RequiresGeneration != nil {
		out.RequiresGeneration = Bool(*pp.RequiresGeneration)
	}
	if pp.IsConfirmed != nil {
		out.IsConfirmed = Bool(*pp.IsConfirmed)
	}
	if pp.IsTransient != nil {
		out.IsTransient = Bool(*pp.IsTransient)
	}
	if pp.IsSynthesizing != nil {
		out.IsSynthesizing = Bool(*pp.IsSynthesizing)
	}
	if pp.GenerationAllowed != nil {
		out.GenerationAllowed = Bool(*pp.GenerationAllowed)
	}
	return out
}
