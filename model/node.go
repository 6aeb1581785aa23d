package model

// Node is a single workflow step as persisted. Upstream and Downstream are
// resolved from the id references by graph.Build and are never persisted.
type Node struct {
	Id           int64          `json:"id"`
	WorkflowId   string         `json:"workflowId"`
	Type         string         `json:"type"`
	UpstreamId   *int64         `json:"upstreamId"`
	DownstreamId *int64         `json:"downstreamId"`
	BranchIndex  *int           `json:"branchIndex"`
	Config       map[string]any `json:"config"`

	Upstream   *Node `json:"-"`
	Downstream *Node `json:"-"`
}

// IsBranchHead reports whether the node starts an arm of its upstream.
func (n *Node) IsBranchHead() bool {
	return n.BranchIndex != nil
}

// Clone copies the persisted fields. Resolved relations are not copied and
// the config map is copied one level deep.
func (n *Node) Clone() *Node {
	c := &Node{
		Id:         n.Id,
		WorkflowId: n.WorkflowId,
		Type:       n.Type,
	}
	if n.UpstreamId != nil {
		c.UpstreamId = Int64(*n.UpstreamId)
	}
	if n.DownstreamId != nil {
		c.DownstreamId = Int64(*n.DownstreamId)
	}
	if n.BranchIndex != nil {
		c.BranchIndex = Int(*n.BranchIndex)
	}
	if n.Config != nil {
		c.Config = make(map[string]any, len(n.Config))
		for k, v := range n.Config {
			c.Config[k] = v
		}
	}
	return c
}

type NodeCreateRequest struct {
	WorkflowId  string         `json:"workflowId" validate:"required"`
	Type        string         `json:"type" validate:"required"`
	UpstreamId  *int64         `json:"upstreamId"`
	BranchIndex *int           `json:"branchIndex"`
	Config      map[string]any `json:"config"`
}

func Int64(v int64) *int64 {
	return &v
}

func Int(v int) *int {
	return &v
}

// SameId compares two nullable id references.
func SameId(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
