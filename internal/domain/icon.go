package domain

// Tier is the visual state of a marker. Higher tiers draw above lower ones.
type Tier int

const (
	TierDefault Tier = iota
	TierHighlighted
	TierHovered
)

func (t Tier) String() string {
	switch t {
	case TierHighlighted:
		return "highlighted"
	case TierHovered:
		return "hovered"
	default:
		return "default"
	}
}

// IconStyle is the declarative description of a marker icon. Rendering
// adapters turn it into whatever the map library draws; the engine never
// builds markup itself.
type IconStyle struct {
	Tier   Tier   `json:"tier"`
	Color  string `json:"color"`
	Size   int    `json:"size"` // pixels, square
	ZIndex int    `json:"z_index"`
	Label  string `json:"label,omitempty"`
}

var iconStyles = [...]IconStyle{
	TierDefault:     {Tier: TierDefault, Color: "#2563eb", Size: 28, ZIndex: 0},
	TierHighlighted: {Tier: TierHighlighted, Color: "#f97316", Size: 36, ZIndex: 500, Label: "selected"},
	TierHovered:     {Tier: TierHovered, Color: "#dc2626", Size: 40, ZIndex: 1000},
}

// SelectIcon maps the two visual signals to a style. Hover wins over
// highlight. Equal inputs always yield equal values.
func SelectIcon(hovered, highlighted bool) IconStyle {
	switch {
	case hovered:
		return iconStyles[TierHovered]
	case highlighted:
		return iconStyles[TierHighlighted]
	default:
		return iconStyles[TierDefault]
	}
}

// StyleFor returns the fixed style of a tier.
func StyleFor(t Tier) IconStyle {
	if t < TierDefault || t > TierHovered {
		return iconStyles[TierDefault]
	}
	return iconStyles[t]
}

// TierFor derives the tier of marker id from the current hovered and
// highlighted ids. Empty ids mean "none".
func TierFor(id, hoveredID, highlightedID string) Tier {
	return SelectIcon(id != "" && id == hoveredID, id != "" && id == highlightedID).Tier
}
