package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/mohitkumar/flowcanvas/model"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
)

func TestEditRecorder(t *testing.T) {
	require.NoError(t, Register())
	defer Unregister()

	r := EditRecorder{}
	r.OnNodeAdded("wf", &model.Node{Id: 1, Type: "start"})
	r.OnNodeAdded("wf", &model.Node{Id: 2, Type: "end"})
	r.OnNodeRemoved("wf", []int64{3, 4, 5})
	RecordRebuild(context.Background(), 3*time.Millisecond, 7)

	rows, err := view.RetrieveData("flowcanvas/nodes_inserted")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = view.RetrieveData("flowcanvas/nodes_removed")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, float64(3), rows[0].Data.(*view.SumData).Value)

	rows, err = view.RetrieveData("flowcanvas/graph_nodes")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, float64(7), rows[0].Data.(*view.LastValueData).Value)
}
