package metrics

import (
	"context"
	"time"

	"github.com/mohitkumar/flowcanvas/model"
	"go.opencensus.io/plugin/ochttp"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	NodesInserted  = stats.Int64("flowcanvas/nodes_inserted", "Number of nodes inserted into workflows", stats.UnitDimensionless)
	NodesRemoved   = stats.Int64("flowcanvas/nodes_removed", "Number of nodes removed from workflows", stats.UnitDimensionless)
	ConfigsUpdated = stats.Int64("flowcanvas/configs_updated", "Number of node config updates", stats.UnitDimensionless)
	RebuildLatency = stats.Float64("flowcanvas/graph_rebuild_ms", "Time spent reloading and rebuilding a workflow graph", stats.UnitMilliseconds)
	GraphNodes     = stats.Int64("flowcanvas/graph_nodes", "Size of a rebuilt workflow graph", stats.UnitDimensionless)

	KeyInstruction = tag.MustNewKey("instruction")
)

var Views = []*view.View{
	{
		Name:        "flowcanvas/nodes_inserted",
		Measure:     NodesInserted,
		Description: "Inserted nodes by instruction type",
		TagKeys:     []tag.Key{KeyInstruction},
		Aggregation: view.Count(),
	},
	{
		Name:        "flowcanvas/nodes_removed",
		Measure:     NodesRemoved,
		Description: "Removed nodes, arm subtrees included",
		Aggregation: view.Sum(),
	},
	{
		Name:        "flowcanvas/configs_updated",
		Measure:     ConfigsUpdated,
		Description: "Config updates by instruction type",
		TagKeys:     []tag.Key{KeyInstruction},
		Aggregation: view.Count(),
	},
	{
		Name:        "flowcanvas/graph_rebuild_ms",
		Measure:     RebuildLatency,
		Description: "Graph rebuild latency distribution",
		Aggregation: view.Distribution(0, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000),
	},
	{
		Name:        "flowcanvas/graph_nodes",
		Measure:     GraphNodes,
		Description: "Last rebuilt graph size",
		Aggregation: view.LastValue(),
	},
}

func Register() error {
	if err := view.Register(ochttp.DefaultServerViews...); err != nil {
		return err
	}
	return view.Register(Views...)
}

func Unregister() {
	view.Unregister(ochttp.DefaultServerViews...)
	view.Unregister(Views...)
}

func RecordRebuild(ctx context.Context, took time.Duration, nodes int) {
	stats.Record(ctx, RebuildLatency.M(float64(took)/float64(time.Millisecond)), GraphNodes.M(int64(nodes)))
}

// EditRecorder counts edits as they are reported by sessions.
type EditRecorder struct{}

func (EditRecorder) OnNodeAdded(workflowId string, node *model.Node) {
	_ = stats.RecordWithTags(context.Background(), []tag.Mutator{tag.Upsert(KeyInstruction, node.Type)}, NodesInserted.M(1))
}

func (EditRecorder) OnNodeRemoved(workflowId string, removed []int64) {
	stats.Record(context.Background(), NodesRemoved.M(int64(len(removed))))
}

func (EditRecorder) OnNodeUpdated(workflowId string, node *model.Node) {
	_ = stats.RecordWithTags(context.Background(), []tag.Mutator{tag.Upsert(KeyInstruction, node.Type)}, ConfigsUpdated.M(1))
}
