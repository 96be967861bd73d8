package deck

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

type Phase string

const (
	PhaseVision   Phase = "vision"
	PhaseResearch Phase = "research"
	PhaseBuild    Phase = "build"
	PhaseGrow     Phase = "grow"
)

const (
	FirstSlot         = 1
	LastSlot          = 22
	FirstVisionSlot   = 1
	LastVisionSlot    = 5
	FirstResearchSlot = 6
	LastResearchSlot  = 10
)

//go:embed layout.yaml
var layoutYAML []byte

type SlotDef struct {
	Slot  int    `yaml:"slot" json:"slot"`
	Type  string `yaml:"type" json:"type"`
	Phase Phase  `yaml:"-" json:"phase"`
}

type Layout struct {
	bySlot map[int]SlotDef
}

type layoutDoc struct {
	Phases []struct {
		Name  Phase     `yaml:"name"`
		Slots []SlotDef `yaml:"slots"`
	} `yaml:"phases"`
}

var (
	layoutOnce sync.Once
	layout     *Layout
	layoutErr  error
)

// DefaultLayout returns the embedded 22-slot layout. It panics if the embedded document is invalid.
func DefaultLayout() *Layout {
	layoutOnce.Do(func() {
		layout, layoutErr = ParseLayout(layoutYAML)
	})
	if layoutErr != nil {
		panic(layoutErr)
	}
	return layout
}

func ParseLayout(raw []byte) (*Layout, error) {
	var doc layoutDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse deck layout: %w", err)
	}
	l := &Layout{bySlot: map[int]SlotDef{}}
	for _, p := range doc.Phases {
		for _, s := range p.Slots {
			if s.Slot < FirstSlot || s.Slot > LastSlot {
				return nil, fmt.Errorf("deck layout: slot %d out of range", s.Slot)
			}
			if _, dup := l.bySlot[s.Slot]; dup {
				return nil, fmt.Errorf("deck layout: slot %d defined twice", s.Slot)
			}
			if s.Type == "" {
				return nil, fmt.Errorf("deck layout: slot %d has no type", s.Slot)
			}
			s.Phase = p.Name
			l.bySlot[s.Slot] = s
		}
	}
	if len(l.bySlot) != LastSlot {
		return nil, fmt.Errorf("deck layout: expected %d slots, got %d", LastSlot, len(l.bySlot))
	}
	return l, nil
}

func (l *Layout) Slot(slot int) (SlotDef, bool) {
	def, ok := l.bySlot[slot]
	return def, ok
}

func (l *Layout) TypeFor(slot int) string {
	return l.bySlot[slot].Type
}

func (l *Layout) Slots() []SlotDef {
	out := make([]SlotDef, 0, len(l.bySlot))
	for i := FirstSlot; i <= LastSlot; i++ {
		out = append(out, l.bySlot[i])
	}
	return out
}

func IsVisionSlot(slot int) bool {
	return slot >= FirstVisionSlot && slot <= LastVisionSlot
}

func IsResearchSlot(slot int) bool {
	return slot >= FirstResearchSlot && slot <= LastResearchSlot
}
