package graph

import (
	"iter"

	api "github.com/mohitkumar/flowcanvas/api/v1"
	"github.com/mohitkumar/flowcanvas/model"
)

// Chain yields the nodes from entry following downstream links. Every call
// of the returned sequence starts a fresh traversal. If a node id repeats the
// sequence yields a CycleDetectedError and stops.
func Chain(entry *model.Node) iter.Seq2[*model.Node, error] {
	return func(yield func(*model.Node, error) bool) {
		visited := make(map[int64]bool)
		for n := entry; n != nil; n = n.Downstream {
			if visited[n.Id] {
				yield(nil, api.CycleDetectedError{NodeId: n.Id})
				return
			}
			visited[n.Id] = true
			if !yield(n, nil) {
				return
			}
		}
	}
}

// Walk collects Chain(entry). A nil entry is an empty branch.
func Walk(entry *model.Node) ([]*model.Node, error) {
	var list []*model.Node
	for n, err := range Chain(entry) {
		if err != nil {
			return list, err
		}
		list = append(list, n)
	}
	return list, nil
}
