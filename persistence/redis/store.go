package redis

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	api "github.com/mohitkumar/flowcanvas/api/v1"
	"github.com/mohitkumar/flowcanvas/graph"
	"github.com/mohitkumar/flowcanvas/logger"
	"github.com/mohitkumar/flowcanvas/model"
	"github.com/mohitkumar/flowcanvas/persistence"
	"github.com/mohitkumar/flowcanvas/util"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxWatchRetries = 5

var _ persistence.Store = new(redisStore)

// hashReader is satisfied by both the client and a watched transaction.
type hashReader interface {
	HGet(ctx context.Context, key, field string) *rd.StringCmd
	HGetAll(ctx context.Context, key string) *rd.MapStringStringCmd
}

type redisStore struct {
	*baseDao
	workflowEncoderDecoder util.EncoderDecoder[model.Workflow]
	nodeEncoderDecoder     util.EncoderDecoder[model.Node]
}

func NewRedisStore(conf Config) *redisStore {
	return &redisStore{
		baseDao:                newBaseDao(conf),
		workflowEncoderDecoder: util.NewJsonEncoderDecoder[model.Workflow](),
		nodeEncoderDecoder:     util.NewJsonEncoderDecoder[model.Node](),
	}
}

func (r *redisStore) Ping(ctx context.Context) error {
	return r.redisClient.Ping(ctx).Err()
}

func (r *redisStore) workflowKey() string {
	return r.getNamespaceKey(persistence.WORKFLOW_PREFIX)
}

func (r *redisStore) nodesKey(workflowId string) string {
	return r.getNamespaceKey(persistence.NODES_PREFIX, workflowId)
}

func (r *redisStore) CreateWorkflow(ctx context.Context, wf model.Workflow) (*model.Workflow, error) {
	if len(wf.Id) == 0 {
		wf.Id = uuid.New().String()
	}
	now := time.Now()
	wf.CreatedAt = now
	wf.UpdatedAt = now
	wf.Nodes = nil
	data, err := r.workflowEncoderDecoder.Encode(wf)
	if err != nil {
		return nil, err
	}
	if err := r.redisClient.HSet(ctx, r.workflowKey(), wf.Id, string(data)).Err(); err != nil {
		logger.Error("error in saving workflow", zap.String("workflow", wf.Id), zap.Error(err))
		return nil, api.StorageLayerError{Message: err.Error()}
	}
	return &wf, nil
}

func (r *redisStore) GetWorkflow(ctx context.Context, id string) (*model.Workflow, error) {
	wf, err := r.getWorkflow(ctx, r.redisClient, id)
	if err != nil {
		return nil, err
	}
	nodes, err := r.getNodes(ctx, r.redisClient, id)
	if err != nil {
		return nil, err
	}
	wf.Nodes = nodes
	return wf, nil
}

func (r *redisStore) ListWorkflows(ctx context.Context) ([]*model.Workflow, error) {
	values, err := r.redisClient.HGetAll(ctx, r.workflowKey()).Result()
	if err != nil {
		return nil, api.StorageLayerError{Message: err.Error()}
	}
	out := make([]*model.Workflow, 0, len(values))
	for id, v := range values {
		wf, err := r.workflowEncoderDecoder.Decode([]byte(v))
		if err != nil {
			logger.Warn("skipping undecodable workflow", zap.String("workflow", id), zap.Error(err))
			continue
		}
		out = append(out, wf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *redisStore) DeleteWorkflow(ctx context.Context, id string) error {
	var cmd *rd.IntCmd
	_, err := r.redisClient.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		cmd = pipe.HDel(ctx, r.workflowKey(), id)
		pipe.Del(ctx, r.nodesKey(id))
		return nil
	})
	if err != nil {
		return api.StorageLayerError{Message: err.Error()}
	}
	if cmd.Val() == 0 {
		return api.WorkflowNotFoundError{WorkflowId: id}
	}
	return nil
}

func (r *redisStore) CreateNode(ctx context.Context, req model.NodeCreateRequest) (*model.Node, error) {
	id, err := r.redisClient.Incr(ctx, r.getNamespaceKey(persistence.NODE_SEQUENCE)).Result()
	if err != nil {
		return nil, api.StorageLayerError{Message: err.Error()}
	}
	created := &model.Node{
		Id:          id,
		WorkflowId:  req.WorkflowId,
		Type:        req.Type,
		UpstreamId:  req.UpstreamId,
		BranchIndex: req.BranchIndex,
		Config:      req.Config,
	}
	var result *model.Node
	err = r.withWatch(ctx, req.WorkflowId, func(tx *rd.Tx) error {
		if _, err := r.getWorkflow(ctx, tx, req.WorkflowId); err != nil {
			return err
		}
		nodes, err := r.getNodes(ctx, tx, req.WorkflowId)
		if err != nil {
			return err
		}
		changed, err := graph.SpliceInsert(nodes, created)
		if err != nil {
			return err
		}
		if err := r.saveNodes(ctx, tx, req.WorkflowId, changed, nil); err != nil {
			return err
		}
		result = changed[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *redisStore) RemoveNode(ctx context.Context, workflowId string, nodeId int64) ([]int64, error) {
	var removed []int64
	err := r.withWatch(ctx, workflowId, func(tx *rd.Tx) error {
		if _, err := r.getWorkflow(ctx, tx, workflowId); err != nil {
			return err
		}
		nodes, err := r.getNodes(ctx, tx, workflowId)
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
		if err := r.saveNodes(ctx, tx, workflowId, changed, ids); err != nil {
			return err
		}
		removed = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *redisStore) UpdateNodeConfig(ctx context.Context, workflowId string, nodeId int64, config map[string]any) (*model.Node, error) {
	var result *model.Node
	err := r.withWatch(ctx, workflowId, func(tx *rd.Tx) error {
		val, err := tx.HGet(ctx, r.nodesKey(workflowId), strconv.FormatInt(nodeId, 10)).Result()
		if err != nil {
			if errors.Is(err, rd.Nil) {
				return api.NodeNotFoundError{WorkflowId: workflowId, NodeId: nodeId}
			}
			return api.StorageLayerError{Message: err.Error()}
		}
		n, err := r.nodeEncoderDecoder.Decode([]byte(val))
		if err != nil {
			return err
		}
		n.Config = config
		if err := r.saveNodes(ctx, tx, workflowId, []*model.Node{n}, nil); err != nil {
			return err
		}
		result = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withWatch runs fn optimistically on the workflow's node hash and retries
// when another client changed it in between.
func (r *redisStore) withWatch(ctx context.Context, workflowId string, fn func(tx *rd.Tx) error) error {
	key := r.nodesKey(workflowId)
	for i := 0; i < maxWatchRetries; i++ {
		err := r.redisClient.Watch(ctx, fn, key)
		if errors.Is(err, rd.TxFailedErr) {
			logger.Debug("node hash changed concurrently, retrying", zap.String("workflow", workflowId), zap.Int("attempt", i+1))
			continue
		}
		return err
	}
	return api.StorageLayerError{Message: "too many concurrent modifications of workflow " + workflowId}
}

func (r *redisStore) saveNodes(ctx context.Context, tx *rd.Tx, workflowId string, nodes []*model.Node, removed []int64) error {
	key := r.nodesKey(workflowId)
	values := make([]string, 0, 2*len(nodes))
	for _, n := range nodes {
		data, err := r.nodeEncoderDecoder.Encode(*n)
		if err != nil {
			return err
		}
		values = append(values, strconv.FormatInt(n.Id, 10), string(data))
	}
	fields := make([]string, 0, len(removed))
	for _, id := range removed {
		fields = append(fields, strconv.FormatInt(id, 10))
	}
	_, err := tx.TxPipelined(ctx, func(pipe rd.Pipeliner) error {
		if len(fields) > 0 {
			pipe.HDel(ctx, key, fields...)
		}
		if len(values) > 0 {
			pipe.HSet(ctx, key, values)
		}
		return nil
	})
	if err != nil {
		logger.Error("error in saving nodes", zap.String("workflow", workflowId), zap.Error(err))
		return api.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (r *redisStore) getWorkflow(ctx context.Context, c hashReader, id string) (*model.Workflow, error) {
	val, err := c.HGet(ctx, r.workflowKey(), id).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, api.WorkflowNotFoundError{WorkflowId: id}
		}
		return nil, api.StorageLayerError{Message: err.Error()}
	}
	return r.workflowEncoderDecoder.Decode([]byte(val))
}

func (r *redisStore) getNodes(ctx context.Context, c hashReader, workflowId string) ([]*model.Node, error) {
	values, err := c.HGetAll(ctx, r.nodesKey(workflowId)).Result()
	if err != nil {
		return nil, api.StorageLayerError{Message: err.Error()}
	}
	nodes := make([]*model.Node, 0, len(values))
	for _, v := range values {
		n, err := r.nodeEncoderDecoder.Decode([]byte(v))
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Id < nodes[j].Id })
	return nodes, nil
}
