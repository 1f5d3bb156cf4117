// Package emotion derives a best-effort emotional state from interaction
// records and pointer gestures, and maps it to UI, content and interaction
// adaptations.
package emotion

import (
	"errors"
	"fmt"
)

// Label is one of the ten emotional states. The zero value means no state.
type Label uint8

const (
	None Label = iota
	Curious
	Engaged
	Deciding
	Frustrated
	Contemplative
	Delighted
	Confident
	Hesitant
	Rushed
	Relaxed
)

const labelCount = int(Relaxed) + 1

var labelNames = [labelCount]string{
	None:          "",
	Curious:       "curious",
	Engaged:       "engaged",
	Deciding:      "deciding",
	Frustrated:    "frustrated",
	Contemplative: "contemplative",
	Delighted:     "delighted",
	Confident:     "confident",
	Hesitant:      "hesitant",
	Rushed:        "rushed",
	Relaxed:       "relaxed",
}

var ErrUnknownLabel = errors.New("unknown emotional label")

// Labels returns the ten states in declaration order.
func Labels() []Label {
	out := make([]Label, 0, labelCount-1)
	for l := Curious; l <= Relaxed; l++ {
		out = append(out, l)
	}
	return out
}

func (l Label) Valid() bool {
	return l >= Curious && l <= Relaxed
}

func (l Label) String() string {
	if int(l) >= labelCount {
		return fmt.Sprintf("Label(%d)", uint8(l))
	}
	return labelNames[l]
}

func ParseLabel(s string) (Label, error) {
	for i, name := range labelNames {
		if i > 0 && name == s {
			return Label(i), nil
		}
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

func (l Label) MarshalText() ([]byte, error) {
	if l != None && !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLabel, uint8(l))
	}
	return []byte(l.String()), nil
}

func (l *Label) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*l = None
		return nil
	}
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
