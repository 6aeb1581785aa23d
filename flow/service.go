package flow

import (
	"context"
	"sync"
	"time"

	"github.com/mohitkumar/flowcanvas/instruction"
	"github.com/mohitkumar/flowcanvas/logger"
	"github.com/mohitkumar/flowcanvas/model"
	"github.com/mohitkumar/flowcanvas/partition"
	"github.com/mohitkumar/flowcanvas/persistence"
	"github.com/mohitkumar/flowcanvas/util"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

type ServiceConfig struct {
	Partitions    int
	Lanes         int
	LaneCapacity  int
	SessionTTL    time.Duration
	AuditInterval time.Duration
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.Lanes <= 0 {
		c.Lanes = 4
	}
	if c.Partitions <= 0 {
		c.Partitions = 71
	}
	if c.LaneCapacity <= 0 {
		c.LaneCapacity = 64
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = 10 * time.Minute
	}
	return c
}

// Service owns the open sessions. Each workflow has at most one session and
// its mutations run on the partition lane of the workflow id.
type Service struct {
	store     persistence.Store
	registry  *instruction.Registry
	lanes     *partition.Lanes
	sessions  *cache.Cache
	listeners []EditListener
	auditor   *util.TickWorker
	openLock  sync.Mutex
}

func NewService(store persistence.Store, registry *instruction.Registry, conf ServiceConfig, wg *sync.WaitGroup, listeners ...EditListener) *Service {
	conf = conf.withDefaults()
	s := &Service{
		store:     store,
		registry:  registry,
		lanes:     partition.NewLanes(partition.RingConfig{PartitionCount: conf.Partitions, Lanes: conf.Lanes}, conf.LaneCapacity, wg),
		sessions:  cache.New(conf.SessionTTL, conf.SessionTTL/2),
		listeners: listeners,
	}
	if conf.AuditInterval > 0 {
		s.auditor = util.NewTickWorker("integrity-audit", conf.AuditInterval, s.audit, wg)
	}
	return s
}

func (s *Service) Start() {
	s.lanes.Start()
	if s.auditor != nil {
		s.auditor.Start()
	}
}

func (s *Service) Stop() error {
	if s.auditor != nil {
		s.auditor.Stop()
	}
	s.sessions.Flush()
	return s.lanes.Stop()
}

func (s *Service) Registry() *instruction.Registry {
	return s.registry
}

// Session returns the open session of a workflow, loading it on first use.
func (s *Service) Session(ctx context.Context, workflowId string) (*Session, error) {
	if sess, ok := s.cached(workflowId); ok {
		return sess, nil
	}
	s.openLock.Lock()
	defer s.openLock.Unlock()
	if sess, ok := s.cached(workflowId); ok {
		return sess, nil
	}
	sess, err := NewSession(ctx, workflowId, s.store, s.registry, s.lanes, s.listeners...)
	if err != nil {
		return nil, err
	}
	s.sessions.Set(workflowId, sess, cache.DefaultExpiration)
	logger.Info("workflow session opened", zap.String("workflow", workflowId))
	return sess, nil
}

func (s *Service) cached(workflowId string) (*Session, bool) {
	v, ok := s.sessions.Get(workflowId)
	if !ok {
		return nil, false
	}
	sess := v.(*Session)
	// sliding expiry
	s.sessions.Set(workflowId, sess, cache.DefaultExpiration)
	return sess, true
}

func (s *Service) CreateWorkflow(ctx context.Context, req model.WorkflowCreateRequest) (*model.Workflow, error) {
	wf, err := s.store.CreateWorkflow(ctx, model.Workflow{
		Title:       req.Title,
		Description: req.Description,
		Enabled:     true,
	})
	if err != nil {
		logger.Error("error creating workflow", zap.String("title", req.Title), zap.Error(err))
		return nil, err
	}
	return wf, nil
}

func (s *Service) ListWorkflows(ctx context.Context) ([]*model.Workflow, error) {
	return s.store.ListWorkflows(ctx)
}

func (s *Service) DeleteWorkflow(ctx context.Context, workflowId string) error {
	err := s.lanes.Execute(ctx, workflowId, func() error {
		if err := s.store.DeleteWorkflow(ctx, workflowId); err != nil {
			return err
		}
		s.sessions.Delete(workflowId)
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("workflow deleted", zap.String("workflow", workflowId))
	return nil
}

func (s *Service) OpenSessions() int {
	return s.sessions.ItemCount()
}

func (s *Service) audit() {
	for id, item := range s.sessions.Items() {
		sess := item.Object.(*Session)
		if err := sess.CheckIntegrity(); err != nil {
			logger.Warn("workflow graph is inconsistent", zap.String("workflow", id), zap.Error(err))
		}
	}
}
