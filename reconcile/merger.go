package reconcile

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/poiesic/regsearch/core"
)

const defaultResultCap = 20

// Merger deduplicates, scores, ranks and truncates per-source results.
// It is stateless per call and safe for concurrent use.
type Merger struct {
	scoring   Scoring
	resultCap int
	logger    *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger) error

// WithScoring overrides the source trust table.
func WithScoring(scoring Scoring) Option {
	return func(m *Merger) error {
		if scoring.DefaultBase < 0 {
			return fmt.Errorf("default base score must not be negative, got %v", scoring.DefaultBase)
		}
		m.scoring = scoring
		return nil
	}
}

// WithResultCap sets the hard cap on merged output length.
func WithResultCap(n int) Option {
	return func(m *Merger) error {
		if n < 1 {
			return fmt.Errorf("result cap must be positive, got %d", n)
		}
		m.resultCap = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Merger) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewMerger creates a merger with the default scoring and cap.
func NewMerger(opts ...Option) (*Merger, error) {
	m := &Merger{
		scoring:   DefaultScoring(),
		resultCap: defaultResultCap,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Merge reconciles per-source results into one ranked list with at most
// one record per business key and at most the configured cap of records
// in total. Failed sources contribute nothing; records without an
// extractable key are dropped.
func (m *Merger) Merge(results []core.SourceResult) []core.UnifiedRecord {
	best := make(map[string]core.UnifiedRecord)

	for _, res := range results {
		if res.Err != nil {
			continue
		}
		for _, raw := range res.Records {
			source := raw.Source
			if source == "" {
				source = res.Source
			}
			raw.Source = source

			key, err := ExtractBusinessKey(raw)
			if err != nil {
				m.logger.Debug("dropping record", "source", source, "name", raw.Name, "err", err)
				continue
			}

			candidate := core.UnifiedRecord{
				BusinessKey:  key,
				Name:         raw.Name,
				Address:      raw.Address,
				LegalForm:    raw.LegalForm,
				ActivityCode: raw.ActivityCode,
				Status:       raw.Status,
				Source:       source,
				Score:        m.scoring.Score(raw),
			}

			current, seen := best[key]
			if !seen || m.wins(candidate, current) {
				best[key] = candidate
			}
		}
	}

	merged := make([]core.UnifiedRecord, 0, len(best))
	for _, record := range best {
		merged = append(merged, record)
	}

	// Order depends only on scores and tie-break rules, never on how
	// sources were listed or when they answered.
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if bi, bj := m.scoring.Base(merged[i].Source), m.scoring.Base(merged[j].Source); bi != bj {
			return bi > bj
		}
		return merged[i].BusinessKey < merged[j].BusinessKey
	})

	if len(merged) > m.resultCap {
		merged = merged[:m.resultCap]
	}
	return merged
}

// wins reports whether candidate replaces current for the same business
// key: the higher score wins, ties go to the more trusted source.
func (m *Merger) wins(candidate, current core.UnifiedRecord) bool {
	if candidate.Score != current.Score {
		return candidate.Score > current.Score
	}
	return m.scoring.Base(candidate.Source) > m.scoring.Base(current.Source)
}
