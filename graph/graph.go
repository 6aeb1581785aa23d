package graph

import (
	"sort"

	"github.com/mohitkumar/flowcanvas/model"
)

// Graph is the resolved view of one workflow's node collection. It is built
// from scratch by Build and not modified afterwards.
type Graph struct {
	nodes []*model.Node
	index map[int64]*model.Node
	arms  map[int64][]*model.Node
	entry *model.Node
}

// Build resolves the upstream and downstream references of nodes. The
// relation fields of every node are reset first, so a node never keeps a
// relation from an earlier build. References to ids missing from the
// collection are left unresolved.
func Build(nodes []*model.Node) *Graph {
	g := &Graph{
		nodes: nodes,
		index: make(map[int64]*model.Node, len(nodes)),
		arms:  make(map[int64][]*model.Node),
	}
	for _, n := range nodes {
		g.index[n.Id] = n
	}
	for _, n := range nodes {
		n.Upstream = nil
		n.Downstream = nil
		if n.UpstreamId != nil {
			n.Upstream = g.index[*n.UpstreamId]
		}
		if n.DownstreamId != nil {
			n.Downstream = g.index[*n.DownstreamId]
		}
		if n.BranchIndex != nil && n.UpstreamId != nil {
			g.arms[*n.UpstreamId] = append(g.arms[*n.UpstreamId], n)
		}
	}
	for _, arm := range g.arms {
		sort.SliceStable(arm, func(i, j int) bool {
			return *arm[i].BranchIndex < *arm[j].BranchIndex
		})
	}
	g.entry = findEntry(nodes)
	return g
}

func findEntry(nodes []*model.Node) *model.Node {
	for _, n := range nodes {
		if n.UpstreamId == nil {
			return n
		}
	}
	// only stale references left
	for _, n := range nodes {
		if n.Upstream == nil {
			return n
		}
	}
	return nil
}

// Entry returns the start of the main chain, nil for an empty workflow.
func (g *Graph) Entry() *model.Node {
	return g.entry
}

func (g *Graph) Get(id int64) (*model.Node, bool) {
	n, ok := g.index[id]
	return n, ok
}

func (g *Graph) Nodes() []*model.Node {
	return g.nodes
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

type Arm struct {
	Index int
	Entry *model.Node
}

// Branches returns the arms spawned by controller, ordered by branch index.
func (g *Graph) Branches(controller *model.Node) []Arm {
	if controller == nil {
		return nil
	}
	heads := g.arms[controller.Id]
	out := make([]Arm, 0, len(heads))
	for _, h := range heads {
		out = append(out, Arm{Index: *h.BranchIndex, Entry: h})
	}
	return out
}

// Arm returns the head of the arm with the given index, if any.
func (g *Graph) Arm(controllerId int64, branchIndex int) *model.Node {
	for _, h := range g.arms[controllerId] {
		if *h.BranchIndex == branchIndex {
			return h
		}
	}
	return nil
}
