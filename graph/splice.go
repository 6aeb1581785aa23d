package graph

import (
	"sort"

	api "github.com/mohitkumar/flowcanvas/api/v1"
	"github.com/mohitkumar/flowcanvas/model"
)

// SpliceInsert computes the link changes that place created right after its
// upstream, in front of whatever followed the upstream in the same arm. The
// created node must already carry its id. nodes is not modified; the changed
// records are returned as copies with created first.
func SpliceInsert(nodes []*model.Node, created *model.Node) ([]*model.Node, error) {
	index := make(map[int64]*model.Node, len(nodes))
	for _, n := range nodes {
		if n.Id != created.Id {
			index[n.Id] = n
		}
	}
	changes := newChangeSet(index)
	c := created.Clone()
	c.DownstreamId = nil

	var prev *model.Node
	switch {
	case c.UpstreamId == nil:
		if c.BranchIndex != nil {
			return nil, api.InvalidBranchError{Reason: "branch index requires an upstream node"}
		}
		for _, n := range nodes {
			if n.Id != c.Id && n.UpstreamId == nil {
				prev = n
				break
			}
		}
	default:
		up, ok := index[*c.UpstreamId]
		if !ok {
			return nil, api.NodeNotFoundError{WorkflowId: c.WorkflowId, NodeId: *c.UpstreamId}
		}
		if c.BranchIndex == nil {
			if up.DownstreamId != nil {
				prev = index[*up.DownstreamId]
			}
			changes.get(up.Id).DownstreamId = model.Int64(c.Id)
		} else {
			for _, n := range nodes {
				if n.Id != c.Id && model.SameId(n.UpstreamId, c.UpstreamId) &&
					n.BranchIndex != nil && *n.BranchIndex == *c.BranchIndex {
					prev = n
					break
				}
			}
		}
	}
	if prev != nil {
		c.DownstreamId = model.Int64(prev.Id)
		p := changes.get(prev.Id)
		p.UpstreamId = model.Int64(c.Id)
		p.BranchIndex = nil
	}
	return append([]*model.Node{c}, changes.list()...), nil
}

// SpliceRemove computes the changes that take node id out of its chain: the
// node and every arm it spawned are removed, its downstream takes its place
// (upstream and branch index included).
func SpliceRemove(nodes []*model.Node, id int64) ([]*model.Node, []int64, error) {
	index := make(map[int64]*model.Node, len(nodes))
	heads := make(map[int64][]*model.Node)
	for _, n := range nodes {
		index[n.Id] = n
		if n.UpstreamId != nil && n.BranchIndex != nil {
			heads[*n.UpstreamId] = append(heads[*n.UpstreamId], n)
		}
	}
	target, ok := index[id]
	if !ok {
		return nil, nil, api.NodeNotFoundError{NodeId: id}
	}

	removed := map[int64]bool{id: true}
	var collect func(entry *model.Node)
	collect = func(entry *model.Node) {
		for n := entry; n != nil && !removed[n.Id]; {
			removed[n.Id] = true
			for _, h := range heads[n.Id] {
				collect(h)
			}
			if n.DownstreamId == nil {
				break
			}
			n = index[*n.DownstreamId]
		}
	}
	for _, h := range heads[id] {
		collect(h)
	}

	changes := newChangeSet(index)
	if target.DownstreamId != nil {
		if down, ok := index[*target.DownstreamId]; ok && !removed[down.Id] {
			d := changes.get(down.Id)
			d.UpstreamId = copyId(target.UpstreamId)
			d.BranchIndex = nil
			if target.BranchIndex != nil {
				d.BranchIndex = model.Int(*target.BranchIndex)
			}
		}
	}
	if target.UpstreamId != nil && target.BranchIndex == nil {
		if up, ok := index[*target.UpstreamId]; ok && !removed[up.Id] && model.SameId(up.DownstreamId, &id) {
			changes.get(up.Id).DownstreamId = copyId(target.DownstreamId)
		}
	}

	ids := make([]int64, 0, len(removed))
	for k := range removed {
		ids = append(ids, k)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return changes.list(), ids, nil
}

func copyId(id *int64) *int64 {
	if id == nil {
		return nil
	}
	return model.Int64(*id)
}

type changeSet struct {
	index   map[int64]*model.Node
	changed map[int64]*model.Node
}

func newChangeSet(index map[int64]*model.Node) *changeSet {
	return &changeSet{index: index, changed: make(map[int64]*model.Node)}
}

func (cs *changeSet) get(id int64) *model.Node {
	if c, ok := cs.changed[id]; ok {
		return c
	}
	c := cs.index[id].Clone()
	cs.changed[id] = c
	return c
}

func (cs *changeSet) list() []*model.Node {
	out := make([]*model.Node, 0, len(cs.changed))
	for _, c := range cs.changed {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out
}
