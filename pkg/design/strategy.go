package design

// Method is the layout approach an analysis selected.
type Method string

const (
	MethodGeometric  Method = "GEOMETRIC"
	MethodGenerative Method = "GENERATIVE"
	MethodHybrid     Method = "HYBRID"
)

// Anchor is the vertical alignment used when scaled content does not fill its
// target exactly.
type Anchor string

const (
	AnchorTop     Anchor = "TOP"
	AnchorCenter  Anchor = "CENTER"
	AnchorBottom  Anchor = "BOTTOM"
	AnchorStretch Anchor = "STRETCH"
)

// Valid reports whether a is one of the known anchors.
func (a Anchor) Valid() bool {
	switch a {
	case AnchorTop, AnchorCenter, AnchorBottom, AnchorStretch:
		return true
	}
	return false
}

// Override replaces the rigid geometric projection for a single layer.
// Offsets are relative to the target container's origin.
type Override struct {
	LayerID         string  `json:"layerId"`
	XOffset         float64 `json:"xOffset"`
	YOffset         float64 `json:"yOffset"`
	IndividualScale float64 `json:"individualScale"`
	Rotation        float64 `json:"rotation,omitempty"`
}

// SafetyReport lists the checks an analysis ran on its own proposal.
type SafetyReport struct {
	AllowedBleed bool     `json:"allowedBleed"`
	Violations   []string `json:"violations,omitempty"`
}

// Strategy is a layout decision produced by AI analysis and consumed by the
// transform engine as an override source.
type Strategy struct {
	Method           Method        `json:"method"`
	SuggestedScale   float64       `json:"suggestedScale"`
	Anchor           Anchor        `json:"anchor"`
	GenerativePrompt string        `json:"generativePrompt"`
	Reasoning        string        `json:"reasoning"`
	Overrides        []Override    `json:"overrides,omitempty"`
	SafetyReport     *SafetyReport `json:"safetyReport,omitempty"`
	IsExplicitIntent bool          `json:"isExplicitIntent,omitempty"`
	SourceReference  string        `json:"sourceReference,omitempty"` // PNG data URL
	KnowledgeApplied bool          `json:"knowledgeApplied,omitempty"`
	KnowledgeMuted   bool          `json:"knowledgeMuted,omitempty"`
}

// OverrideFor returns the override targeting layerID, if any.
func (s *Strategy) OverrideFor(layerID string) (Override, bool) {
	if s == nil {
		return Override{}, false
	}
	for _, o := range s.Overrides {
		if o.LayerID == layerID {
			return o, true
		}
	}
	return Override{}, false
}

// ReferenceImage is a style reference kept with a knowledge context.
type ReferenceImage struct {
	Name    string `json:"name"`
	DataURL string `json:"dataUrl"`
}

// KnowledgeContext is the distilled guidance a knowledge node publishes.
type KnowledgeContext struct {
	Rules      []string         `json:"rules"`
	References []ReferenceImage `json:"references,omitempty"`
}

// Empty reports whether the context carries nothing usable.
func (k KnowledgeContext) Empty() bool { return len(k.Rules) == 0 && len(k.References) == 0 }
