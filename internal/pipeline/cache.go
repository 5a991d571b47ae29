// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"github.com/pdiddy/deduction-engine/internal/prooftree"
	"github.com/pdiddy/deduction-engine/internal/treebank"
)

// DefaultTreeCacheSize is used when PipelineConfig.TreeCacheSize is unset.
const DefaultTreeCacheSize = 100

// treeCache holds reusable trees per (depth, flags) key. A bucket that is
// full is cleared before the next insert. It is not safe for concurrent use.
type treeCache struct {
	max     int
	buckets map[treebank.Key][]*prooftree.ProofTree
}

func newTreeCache(max int) *treeCache {
	if max <= 0 {
		max = DefaultTreeCacheSize
	}
	return &treeCache{max: max, buckets: map[treebank.Key][]*prooftree.ProofTree{}}
}

func (c *treeCache) put(key treebank.Key, t *prooftree.ProofTree) {
	if len(c.buckets[key]) >= c.max {
		c.buckets[key] = nil
	}
	c.buckets[key] = append(c.buckets[key], t)
}

// pop removes and returns the most recent tree under key.
func (c *treeCache) pop(key treebank.Key) (*prooftree.ProofTree, bool) {
	b := c.buckets[key]
	if len(b) == 0 {
		return nil, false
	}
	t := b[len(b)-1]
	c.buckets[key] = b[:len(b)-1]
	return t, true
}

func (c *treeCache) len() int {
	n := 0
	for _, b := range c.buckets {
		n += len(b)
	}
	return n
}
