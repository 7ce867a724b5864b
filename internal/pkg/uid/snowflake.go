package uid

import (
	"hash/fnv"
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates time-ordered int64 ids.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a generator. The node number comes from SNOWFLAKE_NODE
// when set, otherwise it is derived from the hostname.
func NewSnowflake() (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeNumber())
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: node}, nil
}

// Generate returns the next id.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}

func nodeNumber() int64 {
	var maxNode int64 = -1
	maxNode ^= maxNode << snowflake.NodeBits

	if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 && n <= maxNode {
			return n
		}
	}

	host, err := os.Hostname()
	if err != nil {
		return 0
	}

	h := fnv.New32a()
	//nolint:errcheck // hash writes never fail
	h.Write([]byte(host))

	return int64(h.Sum32()) & maxNode
}
