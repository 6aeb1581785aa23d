package rdb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	api "github.com/mohitkumar/flowcanvas/api/v1"
	"github.com/mohitkumar/flowcanvas/graph"
	"github.com/mohitkumar/flowcanvas/logger"
	"github.com/mohitkumar/flowcanvas/model"
	"github.com/mohitkumar/flowcanvas/persistence"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var _ persistence.Store = new(gormStore)

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *gormStore {
	return &gormStore{db: db}
}

func (s *gormStore) Migrate() error {
	return s.db.AutoMigrate(&WorkflowPo{}, &NodePo{})
}

func storageError(err error) error {
	return api.StorageLayerError{Message: err.Error()}
}

func (s *gormStore) CreateWorkflow(ctx context.Context, wf model.Workflow) (*model.Workflow, error) {
	now := time.Now()
	po := &WorkflowPo{
		ID:          wf.Id,
		Title:       wf.Title,
		Description: wf.Description,
		Enabled:     wf.Enabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if len(po.ID) == 0 {
		po.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(po).Error; err != nil {
		logger.Error("error in saving workflow", zap.String("workflow", po.ID), zap.Error(err))
		return nil, storageError(err)
	}
	return po.toModel(), nil
}

func (s *gormStore) GetWorkflow(ctx context.Context, id string) (*model.Workflow, error) {
	db := s.db.WithContext(ctx)
	wf, err := s.getWorkflow(db, id)
	if err != nil {
		return nil, err
	}
	wf.Nodes, err = s.getNodes(db, id)
	if err != nil {
		return nil, err
	}
	return wf, nil
}

func (s *gormStore) ListWorkflows(ctx context.Context) ([]*model.Workflow, error) {
	var pos []*WorkflowPo
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&pos).Error; err != nil {
		return nil, storageError(err)
	}
	out := make([]*model.Workflow, 0, len(pos))
	for _, po := range pos {
		out = append(out, po.toModel())
	}
	return out, nil
}

func (s *gormStore) DeleteWorkflow(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&WorkflowPo{}, "id = ?", id)
		if res.Error != nil {
			return storageError(res.Error)
		}
		if res.RowsAffected == 0 {
			return api.WorkflowNotFoundError{WorkflowId: id}
		}
		if err := tx.Where("workflow_id = ?", id).Delete(&NodePo{}).Error; err != nil {
			return storageError(err)
		}
		return nil
	})
}

func (s *gormStore) CreateNode(ctx context.Context, req model.NodeCreateRequest) (*model.Node, error) {
	var result *model.Node
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.getWorkflow(tx, req.WorkflowId); err != nil {
			return err
		}
		nodes, err := s.getNodes(tx, req.WorkflowId)
		if err != nil {
			return err
		}
		po := &NodePo{
			WorkflowID:  req.WorkflowId,
			Type:        req.Type,
			UpstreamID:  req.UpstreamId,
			BranchIndex: req.BranchIndex,
			Config:      req.Config,
		}
		if err := tx.Create(po).Error; err != nil {
			return storageError(err)
		}
		changed, err := graph.SpliceInsert(nodes, po.toModel())
		if err != nil {
			return err
		}
		if err := s.saveNodes(tx, changed); err != nil {
			return err
		}
		result = changed[0]
		return s.touch(tx, req.WorkflowId)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *gormStore) RemoveNode(ctx context.Context, workflowId string, nodeId int64) ([]int64, error) {
	var removed []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.getWorkflow(tx, workflowId); err != nil {
			return err
		}
		nodes, err := s.getNodes(tx, workflowId)
		if err != nil {
			return err
		}
		changed, ids, err := graph.SpliceRemove(nodes, nodeId)
		if err != nil {
			var notFound api.NodeNotFoundError
			if errors.As(err, &notFound) {
				notFound.WorkflowId = workflowId
				return notFound
			}
			return err
		}
		if err := tx.Where("workflow_id = ? AND id IN ?", workflowId, ids).Delete(&NodePo{}).Error; err != nil {
			return storageError(err)
		}
		if err := s.saveNodes(tx, changed); err != nil {
			return err
		}
		removed = ids
		return s.touch(tx, workflowId)
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *gormStore) UpdateNodeConfig(ctx context.Context, workflowId string, nodeId int64, config map[string]any) (*model.Node, error) {
	var result *model.Node
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var po NodePo
		err := tx.Where("workflow_id = ? AND id = ?", workflowId, nodeId).First(&po).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return api.NodeNotFoundError{WorkflowId: workflowId, NodeId: nodeId}
			}
			return storageError(err)
		}
		po.Config = config
		if err := tx.Save(&po).Error; err != nil {
			return storageError(err)
		}
		result = po.toModel()
		return s.touch(tx, workflowId)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *gormStore) getWorkflow(db *gorm.DB, id string) (*model.Workflow, error) {
	var po WorkflowPo
	if err := db.Where("id = ?", id).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, api.WorkflowNotFoundError{WorkflowId: id}
		}
		return nil, storageError(err)
	}
	return po.toModel(), nil
}

func (s *gormStore) getNodes(db *gorm.DB, workflowId string) ([]*model.Node, error) {
	var pos []*NodePo
	if err := db.Where("workflow_id = ?", workflowId).Order("id asc").Find(&pos).Error; err != nil {
		return nil, storageError(err)
	}
	nodes := make([]*model.Node, 0, len(pos))
	for _, po := range pos {
		nodes = append(nodes, po.toModel())
	}
	return nodes, nil
}

func (s *gormStore) saveNodes(tx *gorm.DB, nodes []*model.Node) error {
	for _, n := range nodes {
		po := nodePo(n)
		err := tx.Model(&NodePo{}).Where("id = ?", po.ID).Updates(map[string]any{
			"upstream_id":   po.UpstreamID,
			"downstream_id": po.DownstreamID,
			"branch_index":  po.BranchIndex,
		}).Error
		if err != nil {
			return storageError(err)
		}
	}
	return nil
}

func (s *gormStore) touch(tx *gorm.DB, workflowId string) error {
	if err := tx.Model(&WorkflowPo{}).Where("id = ?", workflowId).Update("updated_at", time.Now()).Error; err != nil {
		return storageError(err)
	}
	return nil
}
