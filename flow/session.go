package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	api "github.com/mohitkumar/flowcanvas/api/v1"
	"github.com/mohitkumar/flowcanvas/graph"
	"github.com/mohitkumar/flowcanvas/instruction"
	"github.com/mohitkumar/flowcanvas/logger"
	"github.com/mohitkumar/flowcanvas/metrics"
	"github.com/mohitkumar/flowcanvas/model"
	"github.com/mohitkumar/flowcanvas/persistence"
	"go.uber.org/zap"
)

// EditListener is told about every edit after the store confirmed it and
// the session graph was rebuilt.
type EditListener interface {
	OnNodeAdded(workflowId string, node *model.Node)
	OnNodeRemoved(workflowId string, removed []int64)
	OnNodeUpdated(workflowId string, node *model.Node)
}

// Executor runs the mutations of one workflow. The default runs them on the
// calling goroutine; flow.Service hands them to partition lanes.
type Executor interface {
	Execute(ctx context.Context, key string, fn func() error) error
}

type inlineExecutor struct{}

func (inlineExecutor) Execute(ctx context.Context, key string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// InsertRequest places a new node after Upstream, or at the top level when
// Upstream is nil. BranchIndex starts an arm of a branching upstream.
type InsertRequest struct {
	Upstream    *model.Node
	BranchIndex *int
	Type        string
	OptionKey   string
}

// Session is the editing context of one workflow. Readers get the graph of
// the last confirmed state; a rebuild swaps in a new graph and never mutates
// the nodes of the previous one.
type Session struct {
	workflowId string
	store      persistence.Store
	registry   *instruction.Registry
	executor   Executor
	listeners  []EditListener

	mu       sync.RWMutex
	workflow *model.Workflow
	graph    *graph.Graph
}

func NewSession(ctx context.Context, workflowId string, store persistence.Store, registry *instruction.Registry, executor Executor, listeners ...EditListener) (*Session, error) {
	if executor == nil {
		executor = inlineExecutor{}
	}
	s := &Session{
		workflowId: workflowId,
		store:      store,
		registry:   registry,
		executor:   executor,
		listeners:  listeners,
	}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) WorkflowId() string {
	return s.workflowId
}

func (s *Session) Workflow() *model.Workflow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.workflow
}

func (s *Session) Graph() *graph.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

func (s *Session) Nodes() []*model.Node {
	return s.Graph().Nodes()
}

func (s *Session) Registry() *instruction.Registry {
	return s.registry
}

// Refresh reloads the workflow from the store and rebuilds the graph.
func (s *Session) Refresh(ctx context.Context) error {
	return s.executor.Execute(ctx, s.workflowId, func() error {
		return s.reload(ctx)
	})
}

func (s *Session) reload(ctx context.Context) error {
	start := time.Now()
	wf, err := s.store.GetWorkflow(ctx, s.workflowId)
	if err != nil {
		return err
	}
	g := graph.Build(wf.Nodes)
	s.mu.Lock()
	s.workflow = wf
	s.graph = g
	s.mu.Unlock()
	metrics.RecordRebuild(ctx, time.Since(start), g.Len())
	logger.Debug("workflow graph rebuilt", zap.String("workflow", s.workflowId), zap.Int("nodes", g.Len()))
	return nil
}

// AddNode inserts a node. Type, option, upstream and branch are checked
// before the store is involved; the graph is rebuilt only once the store has
// created the node, and the returned node is the one of the rebuilt graph.
func (s *Session) AddNode(ctx context.Context, req InsertRequest) (*model.Node, error) {
	config, err := s.registry.ResolveConfig(req.Type, req.OptionKey)
	if err != nil {
		return nil, err
	}
	if err := s.registry.ValidateConfig(req.Type, config); err != nil {
		return nil, err
	}

	var added *model.Node
	err = s.executor.Execute(ctx, s.workflowId, func() error {
		createReq, err := s.prepareInsert(req, config)
		if err != nil {
			return err
		}
		created, err := s.store.CreateNode(ctx, createReq)
		if err != nil {
			logger.Error("error creating node", zap.String("workflow", s.workflowId), zap.String("type", req.Type), zap.Error(err))
			return err
		}
		if err := s.reload(ctx); err != nil {
			return fmt.Errorf("node %d created but workflow %s could not be reloaded: %w", created.Id, s.workflowId, err)
		}
		added = created
		if n, ok := s.Graph().Get(created.Id); ok {
			added = n
		}
		for _, l := range s.listeners {
			l.OnNodeAdded(s.workflowId, added)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *Session) prepareInsert(req InsertRequest, config map[string]any) (model.NodeCreateRequest, error) {
	createReq := model.NodeCreateRequest{
		WorkflowId: s.workflowId,
		Type:       req.Type,
		Config:     config,
	}
	g := s.Graph()
	var upstream *model.Node
	if req.Upstream != nil {
		var ok bool
		upstream, ok = g.Get(req.Upstream.Id)
		if !ok {
			return createReq, api.NodeNotFoundError{WorkflowId: s.workflowId, NodeId: req.Upstream.Id}
		}
		createReq.UpstreamId = model.Int64(upstream.Id)
	}
	if req.BranchIndex != nil {
		if upstream == nil {
			return createReq, api.InvalidBranchError{Reason: "a branch needs an upstream node"}
		}
		ins, err := s.registry.Get(upstream.Type)
		if err != nil || !ins.Branching {
			return createReq, api.InvalidBranchError{Reason: fmt.Sprintf("instruction %q of node %d can not spawn branches", upstream.Type, upstream.Id)}
		}
		if *req.BranchIndex < 0 {
			return createReq, api.InvalidBranchError{Reason: fmt.Sprintf("branch index %d is negative", *req.BranchIndex)}
		}
		createReq.BranchIndex = model.Int(*req.BranchIndex)
	}
	return createReq, nil
}

// RemoveNode deletes a node together with the arms it spawned and returns
// the ids of every removed node.
func (s *Session) RemoveNode(ctx context.Context, nodeId int64) ([]int64, error) {
	var removed []int64
	err := s.executor.Execute(ctx, s.workflowId, func() error {
		if _, ok := s.Graph().Get(nodeId); !ok {
			return api.NodeNotFoundError{WorkflowId: s.workflowId, NodeId: nodeId}
		}
		var err error
		removed, err = s.store.RemoveNode(ctx, s.workflowId, nodeId)
		if err != nil {
			logger.Error("error removing node", zap.String("workflow", s.workflowId), zap.Int64("node", nodeId), zap.Error(err))
			return err
		}
		if err := s.reload(ctx); err != nil {
			return fmt.Errorf("node %d removed but workflow %s could not be reloaded: %w", nodeId, s.workflowId, err)
		}
		for _, l := range s.listeners {
			l.OnNodeRemoved(s.workflowId, removed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// UpdateNodeConfig replaces the config of a node once it passes the
// validator of the node's instruction.
func (s *Session) UpdateNodeConfig(ctx context.Context, nodeId int64, config map[string]any) (*model.Node, error) {
	var updated *model.Node
	err := s.executor.Execute(ctx, s.workflowId, func() error {
		n, ok := s.Graph().Get(nodeId)
		if !ok {
			return api.NodeNotFoundError{WorkflowId: s.workflowId, NodeId: nodeId}
		}
		if err := s.registry.ValidateConfig(n.Type, config); err != nil {
			return err
		}
		stored, err := s.store.UpdateNodeConfig(ctx, s.workflowId, nodeId, config)
		if err != nil {
			logger.Error("error updating node config", zap.String("workflow", s.workflowId), zap.Int64("node", nodeId), zap.Error(err))
			return err
		}
		if err := s.reload(ctx); err != nil {
			return fmt.Errorf("node %d updated but workflow %s could not be reloaded: %w", nodeId, s.workflowId, err)
		}
		updated = stored
		if n, ok := s.Graph().Get(nodeId); ok {
			updated = n
		}
		for _, l := range s.listeners {
			l.OnNodeUpdated(s.workflowId, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Outline returns the nested chain of the current graph.
func (s *Session) Outline() ([]graph.Step, error) {
	return graph.Outline(s.Graph())
}

// CheckIntegrity audits the current graph.
func (s *Session) CheckIntegrity() error {
	return graph.CheckIntegrity(s.Graph(), s.branching)
}

func (s *Session) branching(instructionType string) bool {
	ins, err := s.registry.Get(instructionType)
	return err == nil && ins.Branching
}
