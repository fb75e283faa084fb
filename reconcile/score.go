package reconcile

import "github.com/poiesic/regsearch/core"

// Scoring bonuses. Scores are deterministic: base trust per source plus
// additive bonuses for field completeness and active status.
const (
	fieldBonus  float32 = 0.25
	activeBonus float32 = 0.5
)

// Scoring holds the per-source base scores. A higher base reflects
// higher trust and freshness: the local store outranks upstream
// registries, which outrank unknown sources.
type Scoring struct {
	SourceBases map[string]float32
	DefaultBase float32
}

// DefaultScoring returns the built-in source trust order.
func DefaultScoring() Scoring {
	return Scoring{
		SourceBases: map[string]float32{
			"local":      3.0,
			"registry_a": 2.0,
			"registry_b": 1.0,
		},
		DefaultBase: 0.5,
	}
}

// Base returns the base score for a source.
func (s Scoring) Base(source string) float32 {
	if base, ok := s.SourceBases[source]; ok {
		return base
	}
	return s.DefaultBase
}

// Score computes a record's relevance: the source base plus a bonus per
// populated canonical field and a bonus for active status.
func (s Scoring) Score(record core.RegistryRecord) float32 {
	score := s.Base(record.Source)
	if record.Name != "" {
		score += fieldBonus
	}
	if record.Address != "" {
		score += fieldBonus
	}
	if record.LegalForm != "" {
		score += fieldBonus
	}
	if record.Status != "" {
		score += fieldBonus
	}
	if core.IsActiveStatus(record.Status) {
		score += activeBonus
	}
	return score
}
