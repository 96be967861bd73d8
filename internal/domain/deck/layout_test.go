package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()
	slots := l.Slots()
	require.Len(t, slots, LastSlot)

	for _, s := range slots {
		switch {
		case IsVisionSlot(s.Slot):
			assert.Equal(t, PhaseVision, s.Phase, "slot %d", s.Slot)
		case IsResearchSlot(s.Slot):
			assert.Equal(t, PhaseResearch, s.Phase, "slot %d", s.Slot)
		}
	}
	assert.Equal(t, "market_research", l.TypeFor(6))
	assert.Equal(t, "trend_analysis", l.TypeFor(10))
}

func TestParseLayoutRejectsDuplicates(t *testing.T) {
	_, err := ParseLayout([]byte(`
phases:
  - name: vision
    slots:
      - { slot: 1, type: a }
      - { slot: 1, type: b }
`))
	require.Error(t, err)
}

func TestParseLayoutRejectsIncomplete(t *testing.T) {
	_, err := ParseLayout([]byte(`
phases:
  - name: vision
    slots:
      - { slot: 1, type: a }
`))
	require.Error(t, err)
}

func TestDeckCardHasContent(t *testing.T) {
	cases := map[string]bool{
		"":                  false,
		"null":              false,
		"{}":                false,
		"[]":                false,
		`""`:                false,
		" {} ":              false,
		`{"text":"pain"}`:   true,
		`"a problem"`:       true,
		`["one"]`:           true,
	}
	for raw, want := range cases {
		c := &DeckCard{CardData: datatypes.JSON(raw)}
		assert.Equal(t, want, c.HasContent(), "card_data=%q", raw)
	}
	var nilCard *DeckCard
	assert.False(t, nilCard.HasContent())
}
