package search

import "github.com/poiesic/pdfingest/core"

type SearchMonitor interface {
	Start(query string)
	AfterSemanticSearch(matches []*core.Match)
	VerbatimHit(match *core.Match)
	Finish(results []*core.Match)
}

type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                      {}
func (n *noopMonitor) AfterSemanticSearch(_ []*core.Match) {}
func (n *noopMonitor) VerbatimHit(_ *core.Match)           {}
func (n *noopMonitor) Finish(_ []*core.Match)              {}
