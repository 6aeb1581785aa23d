package partition

import (
	"fmt"

	"github.com/buraksezer/consistent"
	"github.com/spaolacci/murmur3"
)

type hasher struct{}

func (h hasher) Sum64(data []byte) uint64 {
	return murmur3.Sum64(data)
}

type RingConfig struct {
	PartitionCount int
	Lanes          int
}

type lane struct {
	id   int
	name string
}

func (l lane) String() string {
	return l.name
}

// Ring maps keys (workflow ids) onto a fixed set of lanes.
type Ring struct {
	RingConfig
	hring *consistent.Consistent
}

func NewRing(c RingConfig) *Ring {
	if c.Lanes <= 0 {
		c.Lanes = 1
	}
	if c.PartitionCount < c.Lanes {
		c.PartitionCount = c.Lanes
	}
	cfg := consistent.Config{
		PartitionCount:    c.PartitionCount,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            hasher{},
	}
	members := make([]consistent.Member, 0, c.Lanes)
	for i := 0; i < c.Lanes; i++ {
		members = append(members, lane{id: i, name: fmt.Sprintf("lane-%d", i)})
	}
	return &Ring{
		RingConfig: c,
		hring:      consistent.New(members, cfg),
	}
}

func (r *Ring) Lane(key string) int {
	return r.hring.LocateKey([]byte(key)).(lane).id
}

func (r *Ring) Partition(key string) int {
	return r.hring.FindPartitionID([]byte(key))
}
