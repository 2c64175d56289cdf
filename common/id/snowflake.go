package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new time-ordered int64 ID. Used for HTTP request IDs and
// MCP session IDs; event identity stays on the source-assigned delivery ID.
func New() int64 {
	return node.Generate().Int64()
}

// NewString returns a new ID in snowflake's base58 string form.
func NewString() string {
	return node.Generate().Base58()
}
