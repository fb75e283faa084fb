package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/regsearch/core"
)

const defaultSourceTimeout = 5 * time.Second

// Orchestrator runs multi-source queries over a shared worker pool.
type Orchestrator struct {
	workers       *ants.Pool
	sourceTimeout time.Duration
	logger        *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithPoolSize sets the worker pool size for concurrent source calls.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(o *Orchestrator) error {
		if size < 1 {
			size = 1
		}

		if o.workers != nil {
			o.workers.Release()
		}

		workers, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		o.workers = workers
		return nil
	}
}

// WithSourceTimeout sets the per-source call timeout.
func WithSourceTimeout(d time.Duration) Option {
	return func(o *Orchestrator) error {
		if d <= 0 {
			return fmt.Errorf("source timeout must be positive, got %v", d)
		}
		o.sourceTimeout = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator with its own worker pool.
func NewOrchestrator(opts ...Option) (*Orchestrator, error) {
	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}

	workers, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		workers:       workers,
		sourceTimeout: defaultSourceTimeout,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(o); optErr != nil {
			o.Release()
			return nil, optErr
		}
	}

	return o, nil
}

// Query fans term out to every source concurrently and waits for all of
// them to settle. Exactly one SourceResult is produced per source.
func (o *Orchestrator) Query(ctx context.Context, term string, sources []Source) []core.SourceResult {
	return o.QueryWithMonitor(ctx, term, sources, nil)
}

// QueryWithMonitor is Query with observation hooks. The monitor
// receives a callback as each source settles.
func (o *Orchestrator) QueryWithMonitor(ctx context.Context, term string, sources []Source, monitor QueryMonitor) []core.SourceResult {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	names := make([]string, len(sources))
	for i, src := range sources {
		if src != nil {
			names[i] = src.Name()
		}
	}
	monitor.Start(term, names)

	results := make([]core.SourceResult, len(sources))
	var wg sync.WaitGroup

	for i, src := range sources {
		if src == nil {
			results[i] = core.SourceResult{Err: ErrSourceRequired}
			continue
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = o.querySource(ctx, term, src)
			if results[i].Err != nil {
				monitor.SourceFailed(results[i].Source, results[i].Err)
			} else {
				monitor.SourceSucceeded(results[i].Source, len(results[i].Records))
			}
		}
		if err := o.workers.Submit(task); err != nil {
			wg.Done()
			results[i] = core.SourceResult{
				Source: src.Name(),
				Err:    fmt.Errorf("%w: %w", ErrSourceFailed, err),
			}
			monitor.SourceFailed(src.Name(), results[i].Err)
		}
	}

	wg.Wait()
	monitor.Finish(results)
	return results
}

// querySource runs one source call under its own timeout. The call
// itself runs in a separate goroutine so a source that ignores its
// context cannot stall the query; a result arriving after the deadline
// is discarded.
func (o *Orchestrator) querySource(ctx context.Context, term string, src Source) core.SourceResult {
	name := src.Name()

	callCtx, cancel := context.WithTimeout(ctx, o.sourceTimeout)
	defer cancel()

	type outcome struct {
		records []core.RegistryRecord
		err     error
	}
	done := make(chan outcome, 1)

	go func() {
		records, err := src.Search(callCtx, term)
		done <- outcome{records: records, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				o.logger.Warn("source timed out", "source", name, "term", term)
				return core.SourceResult{Source: name, Err: fmt.Errorf("%w: %s", ErrSourceTimeout, name)}
			}
			o.logger.Warn("source failed", "source", name, "term", term, "err", out.err)
			return core.SourceResult{Source: name, Err: fmt.Errorf("%w: %s: %w", ErrSourceFailed, name, out.err)}
		}
		return core.SourceResult{Source: name, Records: out.records}
	case <-callCtx.Done():
		if errors.Is(callCtx.Err(), context.Canceled) {
			return core.SourceResult{Source: name, Err: fmt.Errorf("%w: %s: %w", ErrSourceFailed, name, callCtx.Err())}
		}
		o.logger.Warn("source timed out", "source", name, "term", term)
		return core.SourceResult{Source: name, Err: fmt.Errorf("%w: %s", ErrSourceTimeout, name)}
	}
}

// Release releases the worker pool. The orchestrator should not be
// used after calling Release.
func (o *Orchestrator) Release() {
	if o.workers != nil {
		o.workers.Release()
	}
}
