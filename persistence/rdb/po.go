package rdb

import (
	"time"

	"github.com/mohitkumar/flowcanvas/model"
)

type WorkflowPo struct {
	ID          string    `gorm:"column:id;primaryKey;size:64"`
	Title       string    `gorm:"column:title;size:255"`
	Description string    `gorm:"column:description"`
	Enabled     bool      `gorm:"column:enabled"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (WorkflowPo) TableName() string {
	return "workflows"
}

type NodePo struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	WorkflowID   string         `gorm:"column:workflow_id;size:64;index"`
	Type         string         `gorm:"column:type;size:64"`
	UpstreamID   *int64         `gorm:"column:upstream_id"`
	DownstreamID *int64         `gorm:"column:downstream_id"`
	BranchIndex  *int           `gorm:"column:branch_index"`
	Config       map[string]any `gorm:"column:config;serializer:json"`
}

func (NodePo) TableName() string {
	return "workflow_nodes"
}

func (p *WorkflowPo) toModel() *model.Workflow {
	return &model.Workflow{
		Id:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Enabled:     p.Enabled,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (p *NodePo) toModel() *model.Node {
	config := p.Config
	if config == nil {
		config = make(map[string]any)
	}
	return &model.Node{
		Id:           p.ID,
		WorkflowId:   p.WorkflowID,
		Type:         p.Type,
		UpstreamId:   p.UpstreamID,
		DownstreamId: p.DownstreamID,
		BranchIndex:  p.BranchIndex,
		Config:       config,
	}
}

func nodePo(n *model.Node) *NodePo {
	return &NodePo{
		ID:           n.Id,
		WorkflowID:   n.WorkflowId,
		Type:         n.Type,
		UpstreamID:   n.UpstreamId,
		DownstreamID: n.DownstreamId,
		BranchIndex:  n.BranchIndex,
		Config:       n.Config,
	}
}
