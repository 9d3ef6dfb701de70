// Package cache provides the read-through statement cache that sits in front
// of the ledger. The ledger never reads from it; it only sends invalidation
// signals after it changes a student's challans.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"github.com/mmynk/feeledger/internal/models"
)

// Loader builds a statement from the source of truth.
type Loader func(ctx context.Context, studentID string) (*models.Statement, error)

// StatementCache is an LRU of student statements keyed by student ID.
//
// Every Invalidate bumps the generation of the named students (a purge bumps
// the epoch). A load only stores its result if neither changed while it ran,
// so a statement read before a change never outlives the change's signal.
type StatementCache struct {
	lru *lru.Cache

	mu          sync.Mutex
	epoch       uint64
	generations map[string]uint64
}

// NewStatementCache creates a cache holding up to size statements.
func NewStatementCache(size int) (*StatementCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create statement cache: %w", err)
	}
	return &StatementCache{lru: c, generations: make(map[string]uint64)}, nil
}

// Get returns the cached statement for studentID, loading and caching it on a miss.
// Load errors are returned and nothing is cached.
func (c *StatementCache) Get(ctx context.Context, studentID string, load Loader) (*models.Statement, error) {
	if v, ok := c.lru.Get(studentID); ok {
		return v.(*models.Statement), nil
	}

	c.mu.Lock()
	epoch, gen := c.epoch, c.generations[studentID]
	c.mu.Unlock()

	stmt, err := load(ctx, studentID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || c.generations[studentID] != gen {
		slog.Debug("Statement changed while loading, not caching", "student_id", studentID)
		return stmt, nil
	}
	c.lru.Add(studentID, stmt)
	return stmt, nil
}

// Invalidate drops the statements of the given students.
// With no IDs every entry is dropped.
func (c *StatementCache) Invalidate(_ context.Context, studentIDs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(studentIDs) == 0 {
		c.epoch++
		clear(c.generations)
		c.lru.Purge()
		slog.Debug("Statement cache purged")
		return nil
	}
	for _, id := range studentIDs {
		c.generations[id]++
		c.lru.Remove(id)
	}
	slog.Debug("Statement cache invalidated", "student_ids", studentIDs)
	return nil
}

// Len returns the number of cached statements.
func (c *StatementCache) Len() int {
	return c.lru.Len()
}
