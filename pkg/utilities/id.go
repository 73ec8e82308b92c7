package utilities

import (
	"github.com/bwmarrin/snowflake"
	"github.com/caarlos0/env/v11"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// RequestIDs hands out snowflake IDs for request correlation from a single
// node, so IDs issued by one process never collide.
type RequestIDs struct {
	node *snowflake.Node
}

// NewRequestIDs builds a generator for the given snowflake node ID.
func NewRequestIDs(nodeID int64) (*RequestIDs, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &RequestIDs{node: node}, nil
}

// RequestIDsFromEnv reads the node ID from SNOWFLAKE_NODE. An unset or
// invalid node falls back to node 1.
func RequestIDsFromEnv() *RequestIDs {
	var cfg struct {
		Node int64 `env:"SNOWFLAKE_NODE" envDefault:"1"`
	}
	if err := env.Parse(&cfg); err != nil {
		cfg.Node = 1
	}
	ids, err := NewRequestIDs(cfg.Node)
	if err != nil {
		ids, _ = NewRequestIDs(1)
	}
	return ids
}

// Next returns a new ID. A nil generator degrades to KSUIDs.
func (g *RequestIDs) Next() string {
	if g == nil || g.node == nil {
		return NewKSUID()
	}
	return g.node.Generate().String()
}
