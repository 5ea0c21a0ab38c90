package evalcache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/park285/chess-evalboard/internal/eval"
)

const defaultMemoryCapacity = 512

// Memory is a bounded in-process LRU. Entries expire after ttl when ttl > 0.
type Memory struct {
	lru *expirable.LRU[string, eval.Result]
}

func NewMemory(capacity int, ttl time.Duration) *Memory {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &Memory{lru: expirable.NewLRU[string, eval.Result](capacity, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) (eval.Result, bool, error) {
	r, ok := m.lru.Get(key)
	return r, ok, nil
}

func (m *Memory) Put(_ context.Context, key string, r eval.Result) error {
	m.lru.Add(key, r)
	return nil
}

func (m *Memory) Len() int { return m.lru.Len() }
