package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/regsearch/core"
)

func staticSource(name string, records ...core.RegistryRecord) Source {
	return SourceFunc{
		SourceName: name,
		Fn: func(_ context.Context, _ string) ([]core.RegistryRecord, error) {
			return records, nil
		},
	}
}

func failingSource(name string, err error) Source {
	return SourceFunc{
		SourceName: name,
		Fn: func(_ context.Context, _ string) ([]core.RegistryRecord, error) {
			return nil, err
		},
	}
}

// stallingSource ignores its context and sleeps, simulating an upstream
// that cannot be cancelled.
func stallingSource(name string, d time.Duration) Source {
	return SourceFunc{
		SourceName: name,
		Fn: func(_ context.Context, _ string) ([]core.RegistryRecord, error) {
			time.Sleep(d)
			return []core.RegistryRecord{{Name: "late", Source: name}}, nil
		},
	}
}

func newTestOrchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(opts...)
	require.NoError(t, err)
	t.Cleanup(o.Release)
	return o
}

func TestQuery_AllSourcesSucceed(t *testing.T) {
	o := newTestOrchestrator(t)

	rec := core.RegistryRecord{Ident: "542107651", Name: "ACME SA", Source: "local"}
	results := o.Query(context.Background(), "acme", []Source{
		staticSource("local", rec),
		staticSource("registry_a"),
	})

	require.Len(t, results, 2)
	assert.Equal(t, "local", results[0].Source)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, []core.RegistryRecord{rec}, results[0].Records)
	assert.Equal(t, "registry_a", results[1].Source)
	assert.NoError(t, results[1].Err)
	assert.Empty(t, results[1].Records)
}

func TestQuery_FailureIsIsolated(t *testing.T) {
	o := newTestOrchestrator(t)

	boom := errors.New("upstream exploded")
	results := o.Query(context.Background(), "acme", []Source{
		staticSource("local", core.RegistryRecord{Name: "ACME SA", Source: "local"}),
		failingSource("registry_a", boom),
		staticSource("registry_b", core.RegistryRecord{Name: "ACME Corp", Source: "registry_b"}),
	})

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrSourceFailed)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.NoError(t, results[2].Err)
}

func TestQuery_TimeoutIsIsolated(t *testing.T) {
	o := newTestOrchestrator(t, WithSourceTimeout(50*time.Millisecond))

	start := time.Now()
	results := o.Query(context.Background(), "acme", []Source{
		stallingSource("registry_a", time.Second),
		staticSource("local", core.RegistryRecord{Name: "ACME SA", Source: "local"}),
	})
	elapsed := time.Since(start)

	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, ErrSourceTimeout)
	assert.Nil(t, results[0].Records, "late result must be discarded")
	assert.NoError(t, results[1].Err)

	// The stalled source's sleep must not delay the query.
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestQuery_AllSourcesFail(t *testing.T) {
	o := newTestOrchestrator(t)

	results := o.Query(context.Background(), "acme", []Source{
		failingSource("registry_a", errors.New("down")),
		failingSource("registry_b", errors.New("down too")),
	})

	require.Len(t, results, 2)
	for _, res := range results {
		assert.Error(t, res.Err)
	}
}

func TestQuery_NilSource(t *testing.T) {
	o := newTestOrchestrator(t)

	results := o.Query(context.Background(), "acme", []Source{nil})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrSourceRequired)
}

func TestQuery_NoSources(t *testing.T) {
	o := newTestOrchestrator(t)
	assert.Empty(t, o.Query(context.Background(), "acme", nil))
}

// recordingMonitor captures callbacks for assertions.
type recordingMonitor struct {
	mu        sync.Mutex
	started   bool
	succeeded []string
	failed    []string
	finished  int
}

func (m *recordingMonitor) Start(_ string, _ []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
}

func (m *recordingMonitor) SourceSucceeded(source string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.succeeded = append(m.succeeded, source)
}

func (m *recordingMonitor) SourceFailed(source string, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, source)
}

func (m *recordingMonitor) Finish(results []core.SourceResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = len(results)
}

func TestQueryWithMonitor(t *testing.T) {
	o := newTestOrchestrator(t)

	monitor := &recordingMonitor{}
	o.QueryWithMonitor(context.Background(), "acme", []Source{
		staticSource("local"),
		failingSource("registry_a", errors.New("down")),
	}, monitor)

	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	assert.True(t, monitor.started)
	assert.Equal(t, []string{"local"}, monitor.succeeded)
	assert.Equal(t, []string{"registry_a"}, monitor.failed)
	assert.Equal(t, 2, monitor.finished)
}
