package query

import "github.com/poiesic/regsearch/core"

// QueryMonitor provides hooks to observe the fan-out process.
// Implement this interface to track per-source outcomes during a query.
type QueryMonitor interface {
	Start(term string, sources []string)
	SourceSucceeded(source string, records int)
	SourceFailed(source string, err error)
	Finish(results []core.SourceResult)
}

// noopMonitor is a no-op implementation of QueryMonitor
type noopMonitor struct{}

var _ QueryMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ []string)      {}
func (n *noopMonitor) SourceSucceeded(_ string, _ int) {}
func (n *noopMonitor) SourceFailed(_ string, _ error)  {}
func (n *noopMonitor) Finish(_ []core.SourceResult)    {}
