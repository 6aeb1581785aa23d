package flow

import (
	"context"
	"errors"
	"sync"
	"testing"

	api "github.com/mohitkumar/flowcanvas/api/v1"
	"github.com/mohitkumar/flowcanvas/graph"
	"github.com/mohitkumar/flowcanvas/instruction"
	"github.com/mohitkumar/flowcanvas/model"
	"github.com/mohitkumar/flowcanvas/persistence"
	"github.com/mohitkumar/flowcanvas/persistence/memory"
	"github.com/stretchr/testify/require"
)

// spyStore counts the node writes and can be told to fail them.
type spyStore struct {
	persistence.Store
	mu         sync.Mutex
	creates    int
	removes    int
	updates    int
	failWrites error
	failReads  error
}

func (s *spyStore) GetWorkflow(ctx context.Context, id string) (*model.Workflow, error) {
	s.mu.Lock()
	failReads := s.failReads
	s.mu.Unlock()
	if failReads != nil {
		return nil, failReads
	}
	return s.Store.GetWorkflow(ctx, id)
}

func (s *spyStore) CreateNode(ctx context.Context, req model.NodeCreateRequest) (*model.Node, error) {
	s.mu.Lock()
	s.creates++
	failWrites := s.failWrites
	s.mu.Unlock()
	if failWrites != nil {
		return nil, failWrites
	}
	return s.Store.CreateNode(ctx, req)
}

func (s *spyStore) RemoveNode(ctx context.Context, workflowId string, nodeId int64) ([]int64, error) {
	s.mu.Lock()
	s.removes++
	failWrites := s.failWrites
	s.mu.Unlock()
	if failWrites != nil {
		return nil, failWrites
	}
	return s.Store.RemoveNode(ctx, workflowId, nodeId)
}

func (s *spyStore) UpdateNodeConfig(ctx context.Context, workflowId string, nodeId int64, config map[string]any) (*model.Node, error) {
	s.mu.Lock()
	s.updates++
	failWrites := s.failWrites
	s.mu.Unlock()
	if failWrites != nil {
		return nil, failWrites
	}
	return s.Store.UpdateNodeConfig(ctx, workflowId, nodeId, config)
}

type recordingListener struct {
	added   []int64
	removed [][]int64
	updated []int64
}

func (l *recordingListener) OnNodeAdded(workflowId string, node *model.Node) {
	l.added = append(l.added, node.Id)
}

func (l *recordingListener) OnNodeRemoved(workflowId string, removed []int64) {
	l.removed = append(l.removed, removed)
}

func (l *recordingListener) OnNodeUpdated(workflowId string, node *model.Node) {
	l.updated = append(l.updated, node.Id)
}

func newRegistry(t *testing.T) *instruction.Registry {
	r, err := instruction.NewRegistry(instruction.Builtin()...)
	require.NoError(t, err)
	return r
}

func newSession(t *testing.T, listeners ...EditListener) (*Session, *spyStore) {
	store := &spyStore{Store: memory.NewMemoryStore()}
	wf, err := store.CreateWorkflow(context.Background(), model.Workflow{Title: "test"})
	require.NoError(t, err)
	s, err := NewSession(context.Background(), wf.Id, store, newRegistry(t), nil, listeners...)
	require.NoError(t, err)
	return s, store
}

func ids(nodes []*model.Node) []int64 {
	out := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Id)
	}
	return out
}

func TestAddNodeAppendsToChain(t *testing.T) {
	l := &recordingListener{}
	s, _ := newSession(t, l)
	ctx := context.Background()
	require.Nil(t, s.Graph().Entry())

	start, err := s.AddNode(ctx, InsertRequest{Type: "start"})
	require.NoError(t, err)
	calc, err := s.AddNode(ctx, InsertRequest{Type: "calculate", Upstream: start})
	require.NoError(t, err)
	end, err := s.AddNode(ctx, InsertRequest{Type: "end", Upstream: calc})
	require.NoError(t, err)

	require.Equal(t, []int64{1, 2, 3}, []int64{start.Id, calc.Id, end.Id})
	walked, err := graph.Walk(s.Graph().Entry())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, ids(walked))
	got, ok := s.Graph().Get(3)
	require.True(t, ok)
	require.Same(t, end, got)
	require.Equal(t, []int64{1, 2, 3}, l.added)
	require.Len(t, s.Workflow().Nodes, 3)
}

func TestAddNodeInsertsInMiddle(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	start, err := s.AddNode(ctx, InsertRequest{Type: "start"})
	require.NoError(t, err)
	_, err = s.AddNode(ctx, InsertRequest{Type: "end", Upstream: start})
	require.NoError(t, err)

	delay, err := s.AddNode(ctx, InsertRequest{Type: "delay", Upstream: start})
	require.NoError(t, err)
	walked, err := graph.Walk(s.Graph().Entry())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 3, 2}, ids(walked))
	require.Equal(t, int64(1), delay.Upstream.Id)
	require.Equal(t, int64(2), delay.Downstream.Id)
}

func TestAddNodeMergesOptionConfig(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	n, err := s.AddNode(ctx, InsertRequest{Type: "condition", OptionKey: "branch"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"rejectOnFalse": false}, n.Config)

	plain, err := s.AddNode(ctx, InsertRequest{Type: "calculate", Upstream: n})
	require.NoError(t, err)
	require.Empty(t, plain.Config)
}

func TestAddNodePreconditionsDoNotTouchStore(t *testing.T) {
	s, store := newSession(t)
	ctx := context.Background()
	calc, err := s.AddNode(ctx, InsertRequest{Type: "calculate"})
	require.NoError(t, err)
	require.Equal(t, 1, store.creates)

	testCases := map[string]struct {
		req    InsertRequest
		target any
	}{
		"unknown type": {
			req:    InsertRequest{Type: "teleport"},
			target: &api.InstructionNotFoundError{},
		},
		"unknown option": {
			req:    InsertRequest{Type: "condition", OptionKey: "sideways"},
			target: &api.InvalidOptionError{},
		},
		"upstream outside the graph": {
			req:    InsertRequest{Type: "end", Upstream: &model.Node{Id: 99}},
			target: &api.NodeNotFoundError{},
		},
		"branch without upstream": {
			req:    InsertRequest{Type: "end", BranchIndex: model.Int(0)},
			target: &api.InvalidBranchError{},
		},
		"branch under non branching upstream": {
			req:    InsertRequest{Type: "end", Upstream: calc, BranchIndex: model.Int(0)},
			target: &api.InvalidBranchError{},
		},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := s.AddNode(ctx, tc.req)
			require.Error(t, err)
			require.ErrorAs(t, err, tc.target)
		})
	}
	require.Equal(t, 1, store.creates)
	require.Equal(t, 1, s.Graph().Len())
}

func TestAddNodeBranchArm(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	cond, err := s.AddNode(ctx, InsertRequest{Type: "condition", OptionKey: "branch"})
	require.NoError(t, err)
	after, err := s.AddNode(ctx, InsertRequest{Type: "end", Upstream: cond})
	require.NoError(t, err)
	yes, err := s.AddNode(ctx, InsertRequest{Type: "calculate", Upstream: cond, BranchIndex: model.Int(1)})
	require.NoError(t, err)
	no, err := s.AddNode(ctx, InsertRequest{Type: "delay", Upstream: cond, BranchIndex: model.Int(0)})
	require.NoError(t, err)

	g := s.Graph()
	arms := g.Branches(g.Entry())
	require.Len(t, arms, 2)
	require.Equal(t, 0, arms[0].Index)
	require.Equal(t, no.Id, arms[0].Entry.Id)
	require.Equal(t, yes.Id, arms[1].Entry.Id)

	walked, err := graph.Walk(g.Entry())
	require.NoError(t, err)
	require.Equal(t, []int64{cond.Id, after.Id}, ids(walked))
	require.NoError(t, s.CheckIntegrity())
}

func TestPersistenceFailureLeavesGraphUnchanged(t *testing.T) {
	l := &recordingListener{}
	s, store := newSession(t, l)
	ctx := context.Background()
	start, err := s.AddNode(ctx, InsertRequest{Type: "start"})
	require.NoError(t, err)
	before := s.Graph()

	boom := api.StorageLayerError{Message: "disk on fire"}
	store.failWrites = boom
	_, err = s.AddNode(ctx, InsertRequest{Type: "end", Upstream: start})
	require.ErrorIs(t, err, boom)
	_, err = s.RemoveNode(ctx, start.Id)
	require.ErrorIs(t, err, boom)
	_, err = s.UpdateNodeConfig(ctx, start.Id, map[string]any{})
	require.ErrorIs(t, err, boom)

	require.Same(t, before, s.Graph())
	require.Equal(t, 1, s.Graph().Len())
	require.Nil(t, start.Downstream)
	require.Equal(t, []int64{start.Id}, l.added)
	require.Empty(t, l.removed)
	require.Empty(t, l.updated)
}

func TestReloadFailureAfterCreateIsReported(t *testing.T) {
	l := &recordingListener{}
	s, store := newSession(t, l)
	ctx := context.Background()

	loadErr := errors.New("connection reset")
	store.failReads = loadErr
	_, err := s.AddNode(ctx, InsertRequest{Type: "start"})
	require.ErrorIs(t, err, loadErr)
	require.Equal(t, 1, store.creates)
	require.Empty(t, l.added)

	store.failReads = nil
	require.NoError(t, s.Refresh(ctx))
	require.Equal(t, 1, s.Graph().Len())
}

func TestRemoveNode(t *testing.T) {
	l := &recordingListener{}
	s, _ := newSession(t, l)
	ctx := context.Background()
	start, err := s.AddNode(ctx, InsertRequest{Type: "start"})
	require.NoError(t, err)
	par, err := s.AddNode(ctx, InsertRequest{Type: "parallel", OptionKey: "all", Upstream: start})
	require.NoError(t, err)
	end, err := s.AddNode(ctx, InsertRequest{Type: "end", Upstream: par})
	require.NoError(t, err)
	a0, err := s.AddNode(ctx, InsertRequest{Type: "query", Upstream: par, BranchIndex: model.Int(0)})
	require.NoError(t, err)
	a0next, err := s.AddNode(ctx, InsertRequest{Type: "update", Upstream: a0})
	require.NoError(t, err)

	removed, err := s.RemoveNode(ctx, par.Id)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{par.Id, a0.Id, a0next.Id}, removed)

	walked, err := graph.Walk(s.Graph().Entry())
	require.NoError(t, err)
	require.Equal(t, []int64{start.Id, end.Id}, ids(walked))
	require.Equal(t, [][]int64{removed}, l.removed)

	_, err = s.RemoveNode(ctx, par.Id)
	require.ErrorAs(t, err, &api.NodeNotFoundError{})
}

func TestUpdateNodeConfig(t *testing.T) {
	l := &recordingListener{}
	s, store := newSession(t, l)
	ctx := context.Background()
	calc, err := s.AddNode(ctx, InsertRequest{Type: "calculate"})
	require.NoError(t, err)

	_, err = s.UpdateNodeConfig(ctx, calc.Id, map[string]any{"expression": "1 +"})
	require.ErrorAs(t, err, &api.InvalidConfigError{})
	require.Equal(t, 0, store.updates)

	n, err := s.UpdateNodeConfig(ctx, calc.Id, map[string]any{"expression": "a * 2"})
	require.NoError(t, err)
	require.Equal(t, "a * 2", n.Config["expression"])
	require.Equal(t, "a * 2", s.Nodes()[0].Config["expression"])
	require.Equal(t, []int64{calc.Id}, l.updated)
}

func TestOutlineFollowsArms(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	cond, err := s.AddNode(ctx, InsertRequest{Type: "condition", OptionKey: "branch"})
	require.NoError(t, err)
	_, err = s.AddNode(ctx, InsertRequest{Type: "end", Upstream: cond})
	require.NoError(t, err)
	_, err = s.AddNode(ctx, InsertRequest{Type: "calculate", Upstream: cond, BranchIndex: model.Int(1)})
	require.NoError(t, err)

	steps, err := s.Outline()
	require.NoError(t, err)
	require.Len(t, steps, 2)
	require.Len(t, steps[0].Arms, 1)
	require.Equal(t, 1, steps[0].Arms[0].Index)
	require.Equal(t, "calculate", steps[0].Arms[0].Steps[0].Node.Type)
}

func TestInsertAfterLastNodeOfLoadedWorkflow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStore()
	wf, err := store.CreateWorkflow(ctx, model.Workflow{Title: "loaded"})
	require.NoError(t, err)
	_, err = store.CreateNode(ctx, model.NodeCreateRequest{WorkflowId: wf.Id, Type: "start"})
	require.NoError(t, err)
	_, err = store.CreateNode(ctx, model.NodeCreateRequest{WorkflowId: wf.Id, Type: "calculate", UpstreamId: model.Int64(1)})
	require.NoError(t, err)

	s, err := NewSession(ctx, wf.Id, store, newRegistry(t), nil)
	require.NoError(t, err)
	entry := s.Graph().Entry()
	require.Equal(t, int64(1), entry.Id)
	walked, err := graph.Walk(entry)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, ids(walked))

	created, err := s.AddNode(ctx, InsertRequest{Upstream: walked[1], Type: "end"})
	require.NoError(t, err)
	require.Equal(t, int64(3), created.Id)
	require.Equal(t, int64(2), *created.UpstreamId)

	walked, err = graph.Walk(s.Graph().Entry())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, ids(walked))
}
