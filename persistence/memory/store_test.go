package memory

import (
	"context"
	"errors"
	"testing"

	api "github.com/mohitkumar/flowcanvas/api/v1"
	"github.com/mohitkumar/flowcanvas/graph"
	"github.com/mohitkumar/flowcanvas/model"
	"github.com/stretchr/testify/require"
)

func chainIds(t *testing.T, wf *model.Workflow) []int64 {
	t.Helper()
	g := graph.Build(wf.Nodes)
	list, err := graph.Walk(g.Entry())
	require.NoError(t, err)
	var ids []int64
	for _, n := range list {
		ids = append(ids, n.Id)
	}
	return ids
}

func TestMemoryStoreWorkflows(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	wf, err := store.CreateWorkflow(ctx, model.Workflow{Title: "orders"})
	require.NoError(t, err)
	require.NotEmpty(t, wf.Id)

	got, err := store.GetWorkflow(ctx, wf.Id)
	require.NoError(t, err)
	require.Equal(t, "orders", got.Title)
	require.Empty(t, got.Nodes)

	list, err := store.ListWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, store.DeleteWorkflow(ctx, wf.Id))
	_, err = store.GetWorkflow(ctx, wf.Id)
	require.True(t, errors.As(err, &api.WorkflowNotFoundError{}))
	require.Error(t, store.DeleteWorkflow(ctx, wf.Id))
}

func TestMemoryStoreNodes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	wf, err := store.CreateWorkflow(ctx, model.Workflow{Title: "orders"})
	require.NoError(t, err)

	start, err := store.CreateNode(ctx, model.NodeCreateRequest{WorkflowId: wf.Id, Type: "start", Config: map[string]any{}})
	require.NoError(t, err)
	end, err := store.CreateNode(ctx, model.NodeCreateRequest{WorkflowId: wf.Id, Type: "end", UpstreamId: model.Int64(start.Id)})
	require.NoError(t, err)
	calc, err := store.CreateNode(ctx, model.NodeCreateRequest{WorkflowId: wf.Id, Type: "calculate", UpstreamId: model.Int64(start.Id)})
	require.NoError(t, err)
	require.Equal(t, end.Id, *calc.DownstreamId)

	got, err := store.GetWorkflow(ctx, wf.Id)
	require.NoError(t, err)
	require.Equal(t, []int64{start.Id, calc.Id, end.Id}, chainIds(t, got))

	updated, err := store.UpdateNodeConfig(ctx, wf.Id, calc.Id, map[string]any{"expression": "1+1"})
	require.NoError(t, err)
	require.Equal(t, "1+1", updated.Config["expression"])

	removed, err := store.RemoveNode(ctx, wf.Id, calc.Id)
	require.NoError(t, err)
	require.Equal(t, []int64{calc.Id}, removed)
	got, err = store.GetWorkflow(ctx, wf.Id)
	require.NoError(t, err)
	require.Equal(t, []int64{start.Id, end.Id}, chainIds(t, got))

	_, err = store.RemoveNode(ctx, wf.Id, calc.Id)
	require.True(t, errors.As(err, &api.NodeNotFoundError{}))
	_, err = store.CreateNode(ctx, model.NodeCreateRequest{WorkflowId: "missing", Type: "end"})
	require.True(t, errors.As(err, &api.WorkflowNotFoundError{}))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	wf, _ := store.CreateWorkflow(ctx, model.Workflow{Title: "t"})
	n, err := store.CreateNode(ctx, model.NodeCreateRequest{WorkflowId: wf.Id, Type: "start", Config: map[string]any{"a": 1}})
	require.NoError(t, err)
	n.Config["a"] = 2

	got, err := store.GetWorkflow(ctx, wf.Id)
	require.NoError(t, err)
	require.Equal(t, 1, got.Nodes[0].Config["a"])
}
