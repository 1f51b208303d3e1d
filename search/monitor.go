package search

import "github.com/poiesic/ragprep/core"

// QueryMonitor provides hooks to observe a query.
// Implement this interface to trace intermediate steps, e.g. in a verbose CLI.
type QueryMonitor interface {
	Start(query string, k int)
	AfterEmbedding(dimension int)
	AfterSearch(candidates []*core.ChunkMatch)
	KeywordHit(match *core.ChunkMatch)
	Finish(results []*core.ChunkMatch)
}

// noopMonitor is a no-op implementation of QueryMonitor
type noopMonitor struct{}

var _ QueryMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)            {}
func (n *noopMonitor) AfterEmbedding(_ int)             {}
func (n *noopMonitor) AfterSearch(_ []*core.ChunkMatch) {}
func (n *noopMonitor) KeywordHit(_ *core.ChunkMatch)    {}
func (n *noopMonitor) Finish(_ []*core.ChunkMatch)      {}
