package query

import (
	"context"

	"github.com/poiesic/regsearch/core"
)

// Source is any origin of search records: the local store or an
// upstream registry. Implementations must honor ctx cancellation where
// they can, but the orchestrator does not rely on it.
type Source interface {
	// Name returns the source identifier used in results and errors.
	Name() string

	// Search returns zero or more raw records matching term.
	Search(ctx context.Context, term string) ([]core.RegistryRecord, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc struct {
	SourceName string
	Fn         func(ctx context.Context, term string) ([]core.RegistryRecord, error)
}

var _ Source = SourceFunc{}

// Name implements Source.
func (s SourceFunc) Name() string { return s.SourceName }

// Search implements Source.
func (s SourceFunc) Search(ctx context.Context, term string) ([]core.RegistryRecord, error) {
	return s.Fn(ctx, term)
}
