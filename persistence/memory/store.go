package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	api "github.com/mohitkumar/flowcanvas/api/v1"
	"github.com/mohitkumar/flowcanvas/graph"
	"github.com/mohitkumar/flowcanvas/model"
	"github.com/mohitkumar/flowcanvas/persistence"
)

var _ persistence.Store = new(memoryStore)

type memoryStore struct {
	mu        sync.Mutex
	workflows map[string]*model.Workflow
	nodes     map[string]map[int64]*model.Node
	seq       int64
}

func NewMemoryStore() *memoryStore {
	return &memoryStore{
		workflows: make(map[string]*model.Workflow),
		nodes:     make(map[string]map[int64]*model.Node),
	}
}

func (s *memoryStore) CreateWorkflow(ctx context.Context, wf model.Workflow) (*model.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(wf.Id) == 0 {
		wf.Id = uuid.New().String()
	}
	now := time.Now()
	wf.CreatedAt = now
	wf.UpdatedAt = now
	wf.Nodes = nil
	s.workflows[wf.Id] = &wf
	s.nodes[wf.Id] = make(map[int64]*model.Node)
	out := wf
	return &out, nil
}

func (s *memoryStore) GetWorkflow(ctx context.Context, id string) (*model.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, api.WorkflowNotFoundError{WorkflowId: id}
	}
	out := *wf
	out.Nodes = s.sortedNodes(id)
	return &out, nil
}

func (s *memoryStore) ListWorkflows(ctx context.Context) ([]*model.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		c := *wf
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) DeleteWorkflow(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.workflows[id]; !ok {
		return api.WorkflowNotFoundError{WorkflowId: id}
	}
	delete(s.workflows, id)
	delete(s.nodes, id)
	return nil
}

func (s *memoryStore) CreateNode(ctx context.Context, req model.NodeCreateRequest) (*model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes, ok := s.nodes[req.WorkflowId]
	if !ok {
		return nil, api.WorkflowNotFoundError{WorkflowId: req.WorkflowId}
	}
	created := &model.Node{
		Id:          s.seq + 1,
		WorkflowId:  req.WorkflowId,
		Type:        req.Type,
		UpstreamId:  req.UpstreamId,
		BranchIndex: req.BranchIndex,
		Config:      req.Config,
	}
	changed, err := graph.SpliceInsert(s.sortedNodes(req.WorkflowId), created)
	if err != nil {
		return nil, err
	}
	s.seq++
	for _, c := range changed {
		nodes[c.Id] = c
	}
	s.touch(req.WorkflowId)
	return nodes[created.Id].Clone(), nil
}

func (s *memoryStore) RemoveNode(ctx context.Context, workflowId string, nodeId int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes, ok := s.nodes[workflowId]
	if !ok {
		return nil, api.WorkflowNotFoundError{WorkflowId: workflowId}
	}
	if _, ok := nodes[nodeId]; !ok {
		return nil, api.NodeNotFoundError{WorkflowId: workflowId, NodeId: nodeId}
	}
	changed, removed, err := graph.SpliceRemove(s.sortedNodes(workflowId), nodeId)
	if err != nil {
		return nil, err
	}
	for _, id := range removed {
		delete(nodes, id)
	}
	for _, c := range changed {
		nodes[c.Id] = c
	}
	s.touch(workflowId)
	return removed, nil
}

func (s *memoryStore) UpdateNodeConfig(ctx context.Context, workflowId string, nodeId int64, config map[string]any) (*model.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes, ok := s.nodes[workflowId]
	if !ok {
		return nil, api.WorkflowNotFoundError{WorkflowId: workflowId}
	}
	n, ok := nodes[nodeId]
	if !ok {
		return nil, api.NodeNotFoundError{WorkflowId: workflowId, NodeId: nodeId}
	}
	c := n.Clone()
	c.Config = config
	nodes[nodeId] = c
	s.touch(workflowId)
	return c.Clone(), nil
}

// sortedNodes returns copies ordered by id, so callers never share records
// with the store.
func (s *memoryStore) sortedNodes(workflowId string) []*model.Node {
	nodes := s.nodes[workflowId]
	out := make([]*model.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}

func (s *memoryStore) touch(workflowId string) {
	if wf, ok := s.workflows[workflowId]; ok {
		wf.UpdatedAt = time.Now()
	}
}
