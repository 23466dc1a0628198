package sim

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/kilianp07/gridplan/core/model"
)

// CommodityGraph captures supply dependencies between balanced commodities:
// an edge from c to i means some process producing c consumes i, so serving
// c's demand creates demand for i.
type CommodityGraph struct {
	g   *simple.DirectedGraph
	ids map[model.CommodityID]int64
	rev map[int64]model.CommodityID
	// order is the topological investment order, demand side first.
	// Empty when the graph is cyclic.
	order []model.CommodityID
	// cycle holds the commodities of one strongly connected component
	// when the graph cannot be ordered.
	cycle []model.CommodityID
}

// NewCommodityGraph builds the dependency graph over the model's balanced
// commodities. Node IDs follow lexical commodity order so traversal results
// are reproducible.
func NewCommodityGraph(m *model.Model) *CommodityGraph {
	cg := &CommodityGraph{
		g:   simple.NewDirectedGraph(),
		ids: make(map[model.CommodityID]int64),
		rev: make(map[int64]model.CommodityID),
	}
	var next int64
	for _, id := range m.CommodityIDs() {
		if !m.Commodities[id].Balanced() {
			continue
		}
		cg.ids[id] = next
		cg.rev[next] = id
		cg.g.AddNode(simple.Node(next))
		next++
	}
	for _, pid := range m.ProcessIDs() {
		p := m.Processes[pid]
		for _, out := range p.Flows {
			if !out.Output() {
				continue
			}
			from, ok := cg.ids[out.Commodity]
			if !ok {
				continue
			}
			for _, in := range p.Flows {
				if !in.Input() {
					continue
				}
				to, ok := cg.ids[in.Commodity]
				if !ok || from == to {
					continue
				}
				if !cg.g.HasEdgeFromTo(from, to) {
					cg.g.SetEdge(cg.g.NewEdge(simple.Node(from), simple.Node(to)))
				}
			}
		}
	}
	cg.sortNodes()
	return cg
}

func (cg *CommodityGraph) sortNodes() {
	sorted, err := topo.SortStabilized(cg.g, func(nodes []graph.Node) {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
	})
	if err != nil {
		if un, ok := err.(topo.Unorderable); ok && len(un) > 0 {
			for _, n := range un[0] {
				cg.cycle = append(cg.cycle, cg.rev[n.ID()])
			}
			sort.Slice(cg.cycle, func(i, j int) bool { return cg.cycle[i] < cg.cycle[j] })
		}
		return
	}
	cg.order = make([]model.CommodityID, len(sorted))
	for i, n := range sorted {
		cg.order[i] = cg.rev[n.ID()]
	}
}

// Order returns the commodities in investment order, final demands first.
// The error names a dependency cycle when one exists; callers then fall back
// to bounded frontier iteration.
func (cg *CommodityGraph) Order() ([]model.CommodityID, error) {
	if cg.order == nil {
		return nil, fmt.Errorf("commodity dependency cycle involving %v", cg.cycle)
	}
	return cg.order, nil
}

// Inputs returns the commodities consumed by producers of c, in lexical
// order.
func (cg *CommodityGraph) Inputs(c model.CommodityID) []model.CommodityID {
	id, ok := cg.ids[c]
	if !ok {
		return nil
	}
	var out []model.CommodityID
	it := cg.g.From(id)
	for it.Next() {
		out = append(out, cg.rev[it.Node().ID()])
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortFrontier orders a frontier set for deterministic processing: by
// topological position when one exists, lexically otherwise.
func (cg *CommodityGraph) SortFrontier(frontier map[model.CommodityID]bool) []model.CommodityID {
	out := make([]model.CommodityID, 0, len(frontier))
	for c := range frontier {
		out = append(out, c)
	}
	if cg.order == nil {
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}
	pos := make(map[model.CommodityID]int, len(cg.order))
	for i, c := range cg.order {
		pos[c] = i
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := pos[out[i]], pos[out[j]]
		if pi != pj {
			return pi < pj
		}
		return out[i] < out[j]
	})
	return out
}
