package model

import "fmt"

type TreatmentKind string

const (
	TreatmentBackdrop TreatmentKind = "backdrop"
	TreatmentStroke   TreatmentKind = "stroke"
	TreatmentShadow   TreatmentKind = "shadow"
)

// Tone of a stroke outline. Dark outlines go on light backgrounds and vice versa.
type StrokeTone string

const (
	StrokeDark  StrokeTone = "dark"
	StrokeLight StrokeTone = "light"
)

// Treatment keeps overlaid text legible against its background.
// Only the fields of the active Kind are meaningful.
type Treatment struct {
	Kind TreatmentKind `json:"kind"`

	// Backdrop. E.g., 0.6
	Opacity float64 `json:"opacity,omitempty"`

	// Stroke. E.g., {dark, 2}
	StrokeTone  StrokeTone `json:"strokeTone,omitempty"`
	StrokeWidth float64    `json:"strokeWidth,omitempty"`

	// Shadow. E.g., {2, 4}
	ShadowOffset float64 `json:"shadowOffset,omitempty"`
	ShadowBlur   float64 `json:"shadowBlur,omitempty"`
}

func Backdrop(opacity float64) Treatment {
	return Treatment{Kind: TreatmentBackdrop, Opacity: opacity}
}

func Stroke(tone StrokeTone, width float64) Treatment {
	return Treatment{Kind: TreatmentStroke, StrokeTone: tone, StrokeWidth: width}
}

func Shadow(offset float64, blur float64) Treatment {
	return Treatment{Kind: TreatmentShadow, ShadowOffset: offset, ShadowBlur: blur}
}

func (t Treatment) String() string {
	switch t.Kind {
	case TreatmentBackdrop:
		return fmt.Sprintf("backdrop{opacity: %.2f}", t.Opacity)
	case TreatmentStroke:
		return fmt.Sprintf("stroke{%s, width: %.0f}", t.StrokeTone, t.StrokeWidth)
	case TreatmentShadow:
		return fmt.Sprintf("shadow{offset: %.0f, blur: %.0f}", t.ShadowOffset, t.ShadowBlur)
	default:
		return string(t.Kind)
	}
}
