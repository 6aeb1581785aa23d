package graph

import (
	api "github.com/mohitkumar/flowcanvas/api/v1"
	"github.com/mohitkumar/flowcanvas/model"
)

type Step struct {
	Node *model.Node  `json:"node"`
	Arms []ArmOutline `json:"arms,omitempty"`
}

type ArmOutline struct {
	Index int    `json:"branchIndex"`
	Steps []Step `json:"steps"`
}

// Outline walks the main chain and, recursively, every arm spawned along it.
func Outline(g *Graph) ([]Step, error) {
	return outline(g, g.Entry(), make(map[int64]bool))
}

func outline(g *Graph, entry *model.Node, seen map[int64]bool) ([]Step, error) {
	chain, err := Walk(entry)
	if err != nil {
		return nil, err
	}
	steps := make([]Step, 0, len(chain))
	for _, n := range chain {
		if seen[n.Id] {
			return nil, api.CycleDetectedError{NodeId: n.Id}
		}
		seen[n.Id] = true
		step := Step{Node: n}
		for _, arm := range g.Branches(n) {
			armSteps, err := outline(g, arm.Entry, seen)
			if err != nil {
				return nil, err
			}
			step.Arms = append(step.Arms, ArmOutline{Index: arm.Index, Steps: armSteps})
		}
		steps = append(steps, step)
	}
	return steps, nil
}
