package research

import (
	"fmt"
	"math"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Scores are the four evaluator criteria plus their mean.
type Scores struct {
	Depth         float64 `json:"depth"`
	Actionability float64 `json:"actionability"`
	Uniqueness    float64 `json:"uniqueness"`
	SourceQuality float64 `json:"source_quality"`
	FinalScore    float64 `json:"final_score"`
}

func (s Scores) Validate() error {
	for name, v := range map[string]float64{
		"depth":          s.Depth,
		"actionability":  s.Actionability,
		"uniqueness":     s.Uniqueness,
		"source_quality": s.SourceQuality,
	} {
		if math.IsNaN(v) || v < MinScore || v > MaxScore {
			return fmt.Errorf("score %s=%v outside [%v, %v]", name, v, MinScore, MaxScore)
		}
	}
	return nil
}

// WithFinal returns s with FinalScore set to the mean of the four criteria, rounded to two decimals.
func (s Scores) WithFinal() Scores {
	mean := (s.Depth + s.Actionability + s.Uniqueness + s.SourceQuality) / 4
	s.FinalScore = math.Round(mean*100) / 100
	return s
}

func RarityFor(finalScore float64) Rarity {
	switch {
	case finalScore >= 90:
		return RarityLegendary
	case finalScore >= 75:
		return RarityEpic
	case finalScore >= 60:
		return RarityRare
	case finalScore >= 40:
		return RarityUncommon
	default:
		return RarityCommon
	}
}
