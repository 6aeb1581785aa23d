package graph

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	api "github.com/mohitkumar/flowcanvas/api/v1"
	"github.com/mohitkumar/flowcanvas/model"
	"github.com/stretchr/testify/require"
)

func onlyControllers(instructionType string) bool {
	return instructionType == "condition" || instructionType == "parallel"
}

func TestCheckIntegrityValid(t *testing.T) {
	nodes := []*model.Node{
		node(1, "start", 0, 2),
		node(2, "condition", 1, 3),
		node(3, "end", 2, 0),
		arm(node(4, "calculate", 2, 0), 0),
	}
	require.NoError(t, CheckIntegrity(Build(nodes), onlyControllers))
}

func TestCheckIntegrityReportsEverything(t *testing.T) {
	nodes := []*model.Node{
		node(1, "start", 0, 2),
		node(2, "calculate", 1, 99),
		node(3, "end", 0, 0),
		arm(node(4, "query", 2, 0), 0),
		arm(node(5, "query", 2, 0), 0),
	}
	err := CheckIntegrity(Build(nodes), onlyControllers)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))

	reasons := make(map[int64][]string)
	for _, e := range merr.Errors {
		var ie api.IntegrityError
		require.True(t, errors.As(e, &ie))
		reasons[ie.NodeId] = append(reasons[ie.NodeId], ie.Reason)
	}
	require.Contains(t, reasons[2], "downstream 99 does not exist")
	require.Contains(t, reasons[3], "more than one top level entry")
	require.Contains(t, reasons[4], "upstream 2 of type calculate can not spawn branches")
	require.Contains(t, reasons[5], "branch index 0 already used by node 4")
}

func TestCheckIntegrityReportsCycle(t *testing.T) {
	nodes := []*model.Node{
		node(1, "start", 0, 2),
		node(2, "calculate", 3, 3),
		node(3, "calculate", 2, 2),
	}
	err := CheckIntegrity(Build(nodes), nil)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))

	cycles := 0
	for _, e := range merr.Errors {
		if errors.As(e, &api.CycleDetectedError{}) {
			cycles++
		}
	}
	require.Equal(t, 1, cycles)
}
