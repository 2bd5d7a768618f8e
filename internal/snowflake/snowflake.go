// Package snowflake issues the time-ordered 63-bit IDs used for bans and
// notes created by the panel.
package snowflake

import (
	"fmt"
	"sync"
	"time"
)

// Epoch is 2020-01-01 00:00:00 UTC in Unix milliseconds.
const Epoch int64 = 1577836800000

const (
	nodeBits     = 10
	sequenceBits = 12

	MaxNode     = (1 << nodeBits) - 1
	maxSequence = (1 << sequenceBits) - 1

	nodeShift      = sequenceBits
	timestampShift = sequenceBits + nodeBits
)

// Generator produces unique IDs for one node. It is safe for concurrent use.
type Generator struct {
	mu       sync.Mutex
	node     int64
	sequence int64
	lastTime int64
	clock    func() time.Time
}

// NewGenerator creates a generator for node, which must be in [0, MaxNode].
func NewGenerator(node int64) (*Generator, error) {
	if node < 0 || node > MaxNode {
		return nil, fmt.Errorf("snowflake: node must be between 0 and %d", MaxNode)
	}
	return &Generator{node: node, clock: time.Now}, nil
}

func (g *Generator) millis() int64 {
	return g.clock().UnixMilli() - Epoch
}

// Generate returns the next ID. IDs from one generator strictly increase,
// even if the wall clock steps backwards.
func (g *Generator) Generate() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.millis()
	if now < g.lastTime {
		now = g.lastTime
	}

	if now == g.lastTime {
		g.sequence = (g.sequence + 1) & maxSequence
		if g.sequence == 0 {
			// Sequence exhausted; borrow the next millisecond.
			now++
		}
	} else {
		g.sequence = 0
	}
	g.lastTime = now

	return now<<timestampShift | g.node<<nodeShift | g.sequence
}

// Time returns the creation time embedded in id.
func Time(id int64) time.Time {
	return time.UnixMilli((id >> timestampShift) + Epoch)
}

// Node returns the node that generated id.
func Node(id int64) int64 {
	return (id >> nodeShift) & MaxNode
}
