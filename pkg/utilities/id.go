package utilities

import (
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
	nodeErr  error
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// snowflakeNode lazily builds the process-wide node. The node must be shared:
// two nodes with the same id can hand out the same id within one millisecond.
func snowflakeNode() (*snowflake.Node, error) {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				nodeID = n
			}
		}
		node, nodeErr = snowflake.NewNode(nodeID)
		if nodeErr != nil {
			// out of range node ids fall back to node 1
			node, nodeErr = snowflake.NewNode(1)
		}
	})
	return node, nodeErr
}

// NewSnowflakeID returns a new snowflake id for rows keyed by application ids.
func NewSnowflakeID() (int64, error) {
	n, err := snowflakeNode()
	if err != nil {
		return 0, err
	}
	return n.Generate().Int64(), nil
}
