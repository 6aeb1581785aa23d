package persistence

import (
	"context"

	"github.com/mohitkumar/flowcanvas/model"
)

const WORKFLOW_PREFIX string = "WORKFLOW"
const NODES_PREFIX string = "NODES"
const NODE_SEQUENCE string = "NODE_SEQ"

type WorkflowDao interface {
	CreateWorkflow(ctx context.Context, wf model.Workflow) (*model.Workflow, error)
	// GetWorkflow returns the workflow together with all of its nodes.
	GetWorkflow(ctx context.Context, id string) (*model.Workflow, error)
	ListWorkflows(ctx context.Context) ([]*model.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
}

// NodeDao is the node resource. CreateNode and RemoveNode keep the
// neighbouring links consistent (graph.SpliceInsert / graph.SpliceRemove)
// in the same write as the node itself.
type NodeDao interface {
	CreateNode(ctx context.Context, req model.NodeCreateRequest) (*model.Node, error)
	RemoveNode(ctx context.Context, workflowId string, nodeId int64) ([]int64, error)
	UpdateNodeConfig(ctx context.Context, workflowId string, nodeId int64, config map[string]any) (*model.Node, error)
}

type Store interface {
	WorkflowDao
	NodeDao
}
