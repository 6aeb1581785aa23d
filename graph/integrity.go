package graph

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	api "github.com/mohitkumar/flowcanvas/api/v1"
	"github.com/mohitkumar/flowcanvas/model"
)

// CheckIntegrity reports every structural violation found in g. branching
// tells whether an instruction type may spawn arms; nil skips that check.
// The result is nil or a *multierror.Error.
func CheckIntegrity(g *Graph, branching func(instructionType string) bool) error {
	var result *multierror.Error
	report := func(id int64, format string, args ...any) {
		result = multierror.Append(result, api.IntegrityError{NodeId: id, Reason: fmt.Sprintf(format, args...)})
	}

	claims := make(map[int64]int64)
	armIndexes := make(map[int64]map[int]int64)
	roots := 0
	for _, n := range g.Nodes() {
		if n.UpstreamId != nil && n.Upstream == nil {
			report(n.Id, "upstream %d does not exist", *n.UpstreamId)
		}
		if n.DownstreamId != nil && n.Downstream == nil {
			report(n.Id, "downstream %d does not exist", *n.DownstreamId)
		}
		if n.DownstreamId != nil {
			if other, ok := claims[*n.DownstreamId]; ok {
				report(n.Id, "downstream %d is already claimed by node %d", *n.DownstreamId, other)
			} else {
				claims[*n.DownstreamId] = n.Id
			}
		}
		if n.Downstream != nil && !model.SameId(n.Downstream.UpstreamId, &n.Id) {
			report(n.Id, "downstream %d does not point back", n.Downstream.Id)
		}
		if n.UpstreamId == nil {
			roots++
			if roots > 1 {
				report(n.Id, "more than one top level entry")
			}
			if n.BranchIndex != nil {
				report(n.Id, "branch index %d without upstream", *n.BranchIndex)
			}
		}
		if n.Upstream == nil {
			continue
		}
		if n.BranchIndex == nil {
			if !model.SameId(n.Upstream.DownstreamId, &n.Id) {
				report(n.Id, "upstream %d does not point back", n.Upstream.Id)
			}
			continue
		}
		if branching != nil && !branching(n.Upstream.Type) {
			report(n.Id, "upstream %d of type %s can not spawn branches", n.Upstream.Id, n.Upstream.Type)
		}
		seen, ok := armIndexes[n.Upstream.Id]
		if !ok {
			seen = make(map[int]int64)
			armIndexes[n.Upstream.Id] = seen
		}
		if other, dup := seen[*n.BranchIndex]; dup {
			report(n.Id, "branch index %d already used by node %d", *n.BranchIndex, other)
		} else {
			seen[*n.BranchIndex] = n.Id
		}
	}

	for _, id := range findCycles(g) {
		result = multierror.Append(result, api.CycleDetectedError{NodeId: id})
	}
	return result.ErrorOrNil()
}

// findCycles returns one node id per downstream cycle.
func findCycles(g *Graph) []int64 {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[int64]int, g.Len())
	var cycles []int64
	for _, start := range g.Nodes() {
		if state[start.Id] != 0 {
			continue
		}
		var path []*model.Node
		n := start
		for n != nil && state[n.Id] == 0 {
			state[n.Id] = visiting
			path = append(path, n)
			n = n.Downstream
		}
		if n != nil && state[n.Id] == visiting {
			cycles = append(cycles, n.Id)
		}
		for _, p := range path {
			state[p.Id] = done
		}
	}
	return cycles
}
