package reconcile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/regsearch/core"
)

func newTestMerger(t *testing.T, opts ...Option) *Merger {
	t.Helper()
	m, err := NewMerger(opts...)
	require.NoError(t, err)
	return m
}

func TestScoring(t *testing.T) {
	s := DefaultScoring()

	t.Run("source trust order", func(t *testing.T) {
		assert.Greater(t, s.Base("local"), s.Base("registry_a"))
		assert.Greater(t, s.Base("registry_a"), s.Base("registry_b"))
		assert.Greater(t, s.Base("registry_b"), s.Base("somewhere_else"))
	})

	t.Run("completeness and active bonuses", func(t *testing.T) {
		sparse := core.RegistryRecord{Source: "local", Name: "ACME SA"}
		complete := core.RegistryRecord{
			Source: "local", Name: "ACME SA", Address: "1 rue de la Paix",
			LegalForm: "SA", Status: "active",
		}
		assert.Greater(t, s.Score(complete), s.Score(sparse))

		ceased := complete
		ceased.Status = "ceased"
		assert.Greater(t, s.Score(complete), s.Score(ceased))
	})
}

func TestMerge_DeduplicatesByBusinessKey(t *testing.T) {
	m := newTestMerger(t)

	complete := core.RegistryRecord{
		Ident: "542107651", Name: "ACME SA", Address: "1 rue de la Paix",
		LegalForm: "SA", Status: "active",
	}
	incomplete := core.RegistryRecord{
		Ident: "FR,542107651,00012", Name: "ACME SA", Status: "active",
	}

	merged := m.Merge([]core.SourceResult{
		{Source: "registry_a", Records: []core.RegistryRecord{incomplete}},
		{Source: "local", Records: []core.RegistryRecord{complete}},
	})

	require.Len(t, merged, 1)
	got := merged[0]
	assert.Equal(t, "542107651", got.BusinessKey)
	assert.Equal(t, "local", got.Source)
	assert.Equal(t, "1 rue de la Paix", got.Address, "the complete local record must win")
}

func TestMerge_HigherScoreReplacesLower(t *testing.T) {
	// Force the upstream record to outscore the local one through
	// completeness, despite the lower source base.
	m := newTestMerger(t, WithScoring(Scoring{
		SourceBases: map[string]float32{"local": 1.0, "registry_a": 0.9},
		DefaultBase: 0.5,
	}))

	merged := m.Merge([]core.SourceResult{
		{Source: "local", Records: []core.RegistryRecord{
			{Ident: "542107651", Name: "ACME SA"},
		}},
		{Source: "registry_a", Records: []core.RegistryRecord{
			{Ident: "542107651", Name: "ACME SA", Address: "1 rue de la Paix", LegalForm: "SA", Status: "active"},
		}},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "registry_a", merged[0].Source)
}

func TestMerge_TieGoesToTrustedSource(t *testing.T) {
	m := newTestMerger(t)

	rec := func(source string) core.RegistryRecord {
		return core.RegistryRecord{Ident: "542107651", Name: "ACME SA", Source: source}
	}

	merged := m.Merge([]core.SourceResult{
		{Source: "registry_b", Records: []core.RegistryRecord{rec("registry_b")}},
		{Source: "registry_a", Records: []core.RegistryRecord{rec("registry_a")}},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "registry_a", merged[0].Source)
}

func TestMerge_DropsUnparseableRecords(t *testing.T) {
	m := newTestMerger(t)

	merged := m.Merge([]core.SourceResult{
		{Source: "registry_a", Records: []core.RegistryRecord{
			{Ident: "no key here", Name: "Mystery Co"},
			{Ident: "542107651", Name: "ACME SA"},
		}},
	})

	require.Len(t, merged, 1)
	assert.Equal(t, "542107651", merged[0].BusinessKey)
}

func TestMerge_SkipsFailedSources(t *testing.T) {
	m := newTestMerger(t)

	merged := m.Merge([]core.SourceResult{
		{Source: "registry_a", Err: fmt.Errorf("down")},
		{Source: "local", Records: []core.RegistryRecord{
			{Ident: "542107651", Name: "ACME SA"},
		}},
	})

	require.Len(t, merged, 1)
}

func TestMerge_BoundedOutput(t *testing.T) {
	m := newTestMerger(t, WithResultCap(20))

	var records []core.RegistryRecord
	for i := 0; i < 500; i++ {
		records = append(records, core.RegistryRecord{
			Ident: fmt.Sprintf("%09d", 100000000+i),
			Name:  fmt.Sprintf("Company %d", i),
		})
	}

	merged := m.Merge([]core.SourceResult{{Source: "registry_a", Records: records}})
	assert.Len(t, merged, 20)
}

func TestMerge_OrderIndependentOfArrival(t *testing.T) {
	m := newTestMerger(t)

	results := []core.SourceResult{
		{Source: "local", Records: []core.RegistryRecord{
			{Ident: "100000001", Name: "Alpha", Address: "a", LegalForm: "SA", Status: "active"},
		}},
		{Source: "registry_a", Records: []core.RegistryRecord{
			{Ident: "100000002", Name: "Beta", Status: "active"},
		}},
		{Source: "registry_b", Records: []core.RegistryRecord{
			{Ident: "100000003", Name: "Gamma"},
		}},
	}
	reversed := []core.SourceResult{results[2], results[1], results[0]}

	first := m.Merge(results)
	second := m.Merge(reversed)
	assert.Equal(t, first, second, "output order must depend only on scores")

	// Sanity: scores are strictly descending.
	require.Len(t, first, 3)
	assert.GreaterOrEqual(t, first[0].Score, first[1].Score)
	assert.GreaterOrEqual(t, first[1].Score, first[2].Score)
}

func TestMerge_Empty(t *testing.T) {
	m := newTestMerger(t)
	assert.Empty(t, m.Merge(nil))
	assert.Empty(t, m.Merge([]core.SourceResult{{Source: "local"}}))
}
