// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package regsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/regsearch/cache"
	"github.com/poiesic/regsearch/config"
	"github.com/poiesic/regsearch/core"
	"github.com/poiesic/regsearch/pool"
	"github.com/poiesic/regsearch/query"
	"github.com/poiesic/regsearch/ratelimit"
	"github.com/poiesic/regsearch/reconcile"
	"github.com/poiesic/regsearch/registry"
	"github.com/poiesic/regsearch/storage"
	"github.com/poiesic/regsearch/storage/badger"
)

// LocalSourceName is the name of the built-in source backed by the
// local record store.
const LocalSourceName = "local"

const localSearchLimit = 100

// Service aggregates registry search across the local store and the
// configured upstream sources, behind admission control and a shared
// result cache.
type Service struct {
	backend      *badger.Backend
	records      storage.RecordRepository
	connPool     *pool.Pool
	cache        *cache.Cache
	limiter      *ratelimit.Limiter
	orchestrator *query.Orchestrator
	merger       *reconcile.Merger

	sources  map[string]query.Source
	order    []string
	cacheTTL time.Duration
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	inMemory     bool
	extraSources []query.Source
	logger       *slog.Logger
}

// WithMemoryStore uses an in-memory database instead of cfg.DBPath.
// Intended for tests and one-shot commands.
func WithMemoryStore() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// WithSources registers additional sources beyond the configured ones.
func WithSources(sources ...query.Source) ServiceOption {
	return func(o *serviceOptions) {
		o.extraSources = append(o.extraSources, sources...)
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewService wires a Service from configuration: local store, cache
// backend pool, TTL cache, rate limiter, orchestrator and reconciler.
func NewService(cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(cfg.DBPath, options.inMemory)
	if err != nil {
		return nil, err
	}

	records := badger.NewRecordRepository(backend)

	connPool, err := pool.New(badger.NewCacheFactory(backend),
		pool.WithLogger(options.logger),
		pool.WithBounds(cfg.Pool.MinConns, cfg.Pool.MaxConns),
		pool.WithAcquireTimeout(cfg.Pool.AcquireTimeout),
		pool.WithMaxConnAge(cfg.Pool.MaxConnAge),
		pool.WithHealthInterval(cfg.Pool.HealthInterval),
	)
	if err != nil {
		backend.Close()
		return nil, err
	}

	resultCache, err := cache.New(connPool, cache.WithLogger(options.logger))
	if err != nil {
		connPool.Close()
		backend.Close()
		return nil, err
	}

	limiter, err := ratelimit.New(
		ratelimit.WithLogger(options.logger),
		ratelimit.WithBreaker(cfg.RateLimit.BreakerThreshold, cfg.RateLimit.BreakerTimeout),
	)
	if err != nil {
		connPool.Close()
		backend.Close()
		return nil, err
	}

	orchestrator, err := query.NewOrchestrator(
		query.WithLogger(options.logger),
		query.WithPoolSize(cfg.Query.Workers),
		query.WithSourceTimeout(cfg.Query.SourceTimeout),
	)
	if err != nil {
		connPool.Close()
		backend.Close()
		return nil, err
	}

	scoring := reconcile.DefaultScoring()
	for _, src := range cfg.Sources {
		if src.BaseScore > 0 {
			scoring.SourceBases[src.Name] = src.BaseScore
		}
	}
	merger, err := reconcile.NewMerger(
		reconcile.WithLogger(options.logger),
		reconcile.WithScoring(scoring),
	)
	if err != nil {
		orchestrator.Release()
		connPool.Close()
		backend.Close()
		return nil, err
	}

	s := &Service{
		backend:      backend,
		records:      records,
		connPool:     connPool,
		cache:        resultCache,
		limiter:      limiter,
		orchestrator: orchestrator,
		merger:       merger,
		sources:      make(map[string]query.Source),
		cacheTTL:     cfg.Cache.TTL,
		logger:       options.logger,
	}

	s.addSource(localSource{records: records})
	for _, src := range cfg.Sources {
		client, err := registry.NewClient(src.Name, src.BaseURL, clientOptions(src)...)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.addSource(client)
	}
	for _, src := range options.extraSources {
		s.addSource(src)
	}

	return s, nil
}

func clientOptions(src config.SourceConfig) []registry.Option {
	var opts []registry.Option
	if src.Timeout > 0 {
		opts = append(opts, registry.WithTimeout(src.Timeout))
	}
	return opts
}

func (s *Service) addSource(src query.Source) {
	if _, exists := s.sources[src.Name()]; !exists {
		s.order = append(s.order, src.Name())
	}
	s.sources[src.Name()] = src
}

// Search runs one aggregated search. Admission control runs first; a
// rejection is returned as *RateLimitError before any source work. A
// cached answer is served when fresh. Otherwise all selected sources
// are queried in parallel and reconciled; sources that failed are
// reported in the response but do not fail the search unless every
// source failed.
func (s *Service) Search(ctx context.Context, term string, sourceNames []string, tier core.Tier) (*core.SearchResponse, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, core.ErrEmptyTerm
	}

	key := core.KeyFromTerm(term)

	decision := s.limiter.Check(key, tier)
	if !decision.Allowed {
		s.logger.Debug("search rejected", "key", key, "reason", decision.Reason)
		return nil, NewRateLimitError(decision)
	}
	rateInfo := core.RateLimitInfo{Remaining: decision.Remaining, ResetTime: decision.ResetTime}

	selected, err := s.selectSources(sourceNames)
	if err != nil {
		return nil, err
	}

	if resp := s.fromCache(ctx, key, rateInfo); resp != nil {
		return resp, nil
	}

	results := s.orchestrator.Query(ctx, term, selected)
	merged := s.merger.Merge(results)

	counts := make(map[string]int, len(results))
	var sourceErrors []core.SourceError
	var failures []error
	for _, res := range results {
		if res.Err != nil {
			sourceErrors = append(sourceErrors, core.SourceError{Source: res.Source, Message: res.Err.Error()})
			failures = append(failures, fmt.Errorf("%s: %w", res.Source, res.Err))
			continue
		}
		counts[res.Source] = len(res.Records)
	}

	if len(failures) == len(results) {
		s.limiter.ReportFailure(key)
		return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(failures...))
	}
	s.limiter.ReportSuccess(key)

	// Only complete answers are cached. A degraded merge would otherwise
	// be served for the full TTL with an empty errors list, hiding the
	// missing sources from every later caller.
	if len(sourceErrors) == 0 {
		s.cache.Set(ctx, key, storage.MarshalUnifiedRecords(merged), s.cacheTTL)
	}

	return &core.SearchResponse{
		Results:      merged,
		SourceCounts: counts,
		Errors:       sourceErrors,
		RateLimit:    rateInfo,
	}, nil
}

// fromCache answers a search from the cache, or nil on a miss. Source
// counts are recomputed from the cached records.
func (s *Service) fromCache(ctx context.Context, key string, rateInfo core.RateLimitInfo) *core.SearchResponse {
	res := s.cache.Get(ctx, key)
	if !res.Found {
		return nil
	}

	records, err := storage.UnmarshalUnifiedRecords(res.Value)
	if err != nil {
		s.logger.Warn("discarding undecodable cached response", "key", key, "err", err)
		s.cache.Delete(ctx, key)
		return nil
	}

	counts := make(map[string]int, 4)
	for _, record := range records {
		counts[record.Source]++
	}

	return &core.SearchResponse{
		Results:      records,
		SourceCounts: counts,
		RateLimit:    rateInfo,
		FromCache:    true,
		UsedFallback: res.UsedFallback,
	}
}

// selectSources resolves requested source names, defaulting to all
// registered sources in registration order.
func (s *Service) selectSources(names []string) ([]query.Source, error) {
	if len(names) == 0 {
		selected := make([]query.Source, 0, len(s.order))
		for _, name := range s.order {
			selected = append(selected, s.sources[name])
		}
		if len(selected) == 0 {
			return nil, ErrNoSources
		}
		return selected, nil
	}

	selected := make([]query.Source, 0, len(names))
	for _, name := range names {
		src, ok := s.sources[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
		}
		selected = append(selected, src)
	}
	return selected, nil
}

// Seed loads registry records into the local store.
func (s *Service) Seed(ctx context.Context, records ...*core.RegistryRecord) error {
	return s.records.AddRecords(ctx, records...)
}

// Records exposes the local record repository.
func (s *Service) Records() storage.RecordRepository {
	return s.records
}

// Stats is an operational snapshot of the service's moving parts.
type Stats struct {
	Pool        pool.Stats  `json:"pool"`
	Cache       cache.Stats `json:"cache"`
	LimiterKeys int         `json:"limiterKeys"`
	Sources     []string    `json:"sources"`
}

// Stats returns a snapshot of pool, cache and limiter state.
func (s *Service) Stats() Stats {
	return Stats{
		Pool:        s.connPool.Stats(),
		Cache:       s.cache.Stats(),
		LimiterKeys: s.limiter.Keys(),
		Sources:     append([]string(nil), s.order...),
	}
}

// Close shuts the service down in dependency order: stop accepting
// source work, drain the connection pool, then close storage.
func (s *Service) Close() error {
	s.orchestrator.Release()

	if err := s.connPool.Close(); err != nil {
		s.logger.Error("error closing connection pool", "err", err)
	}

	if err := s.records.Close(); err != nil {
		s.logger.Error("error closing record repository", "err", err)
	}

	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// localSource adapts the record repository to the Source interface.
type localSource struct {
	records storage.RecordRepository
}

var _ query.Source = localSource{}

func (s localSource) Name() string { return LocalSourceName }

func (s localSource) Search(ctx context.Context, term string) ([]core.RegistryRecord, error) {
	found, err := s.records.SearchByName(ctx, term, localSearchLimit)
	if err != nil {
		return nil, err
	}
	records := make([]core.RegistryRecord, 0, len(found))
	for _, record := range found {
		records = append(records, *record)
	}
	return records, nil
}
