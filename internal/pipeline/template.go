package pipeline

import (
	"fmt"

	"github.com/dudu/frvtface/internal/detector"
	"github.com/dudu/frvtface/internal/recognizer"
)

// TemplateBytes is the size of the binary form of a Template
const TemplateBytes = 1 + recognizer.DescriptorBytes

// EyePair holds the eye centers found in one enrolled image
type EyePair struct {
	LeftAssigned   bool
	RightAssigned  bool
	LeftX, LeftY   int
	RightX, RightY int
}

func eyePair(l detector.Landmarks) EyePair {
	if len(l) != detector.NumLandmarks {
		return EyePair{}
	}
	left := l[detector.LeftEye]
	right := l[detector.RightEye]
	return EyePair{
		LeftAssigned:  true,
		RightAssigned: true,
		LeftX:         left.X,
		LeftY:         left.Y,
		RightX:        right.X,
		RightY:        right.Y,
	}
}

// Template is the enrolled representation of one subject
type Template struct {
	Descriptor recognizer.Descriptor
	// Valid is false when no enrolled image produced reliable landmarks
	Valid    bool
	EyePairs []EyePair
}

// MarshalBinary writes a validity byte followed by the descriptor. Eye pairs
// are not part of the binary form.
func (t Template) MarshalBinary() ([]byte, error) {
	desc, err := t.Descriptor.MarshalBinary()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, TemplateBytes)
	if t.Valid {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return append(buf, desc...), nil
}

// UnmarshalBinary decodes the form written by MarshalBinary
func (t *Template) UnmarshalBinary(data []byte) error {
	if len(data) != TemplateBytes {
		return fmt.Errorf("template must be %d bytes, got %d", TemplateBytes, len(data))
	}
	if err := t.Descriptor.UnmarshalBinary(data[1:]); err != nil {
		return err
	}
	t.Valid = data[0] == 1
	t.EyePairs = nil
	return nil
}

// MatchTemplates scores two templates by cosine similarity. Anything involving
// an invalid template scores 0.
func MatchTemplates(a, b Template) float64 {
	if !a.Valid || !b.Valid {
		return 0
	}
	return recognizer.CosineSimilarity(&a.Descriptor, &b.Descriptor)
}
