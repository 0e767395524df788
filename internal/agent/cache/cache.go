// Package cache memoizes expensive model and retrieval results.
package cache

import (
	"container/list"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/jan-sahayak/server/internal/agent/metrics"
	"github.com/jan-sahayak/server/internal/agent/model"
)

const (
	NamespaceLLM = "llm"
	NamespaceRAG = "rag"
)

// Fingerprint is a deterministic digest of (query, context). Distinct pairs
// may collide; callers accept that approximation.
func Fingerprint(query, context string) string {
	d := xxhash.New()
	_, _ = d.WriteString(query)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(context)
	return strconv.FormatUint(d.Sum64(), 16)
}

type entry[V any] struct {
	key   string
	value V
}

// FIFO is a bounded map evicting in insertion order. Overwriting an existing
// key keeps its original position. Safe for concurrent use.
type FIFO[V any] struct {
	mu        sync.Mutex
	namespace string
	capacity  int
	order     *list.List
	items     map[string]*list.Element
}

// NewFIFO returns an empty cache. A capacity below 1 is raised to 1.
func NewFIFO[V any](namespace string, capacity int) *FIFO[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &FIFO[V]{
		namespace: namespace,
		capacity:  capacity,
		order:     list.New(),
		items:     make(map[string]*list.Element, capacity),
	}
}

func (c *FIFO[V]) Get(key string) (V, bool) {
	var (
		value V
		ok    bool
	)
	c.mu.Lock()
	if el, found := c.items[key]; found {
		value, ok = el.Value.(*entry[V]).value, true
	}
	c.mu.Unlock()

	if !ok {
		metrics.CacheLookups.WithLabelValues(c.namespace, "miss").Inc()
		return value, false
	}
	metrics.CacheLookups.WithLabelValues(c.namespace, "hit").Inc()
	return value, true
}

func (c *FIFO[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[V]).value = value
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*entry[V]).key)
		metrics.CacheEvictions.WithLabelValues(c.namespace).Inc()
	}
	c.items[key] = c.order.PushBack(&entry[V]{key: key, value: value})
}

func (c *FIFO[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *FIFO[V]) Capacity() int {
	return c.capacity
}

// Clear drops every entry.
func (c *FIFO[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// Service bundles the two namespaces shared by every pipeline.
type Service struct {
	// Analysis holds specialist Analysis Results keyed by route and fingerprint.
	Analysis *FIFO[any]
	// Retrieval holds formatted retrieval context keyed by fingerprint.
	Retrieval *FIFO[string]
}

func NewService(cfg model.CacheConfig) *Service {
	return &Service{
		Analysis:  NewFIFO[any](NamespaceLLM, cfg.LLMCapacity),
		Retrieval: NewFIFO[string](NamespaceRAG, cfg.RAGCapacity),
	}
}

// Clear flushes both namespaces.
func (s *Service) Clear() {
	s.Analysis.Clear()
	s.Retrieval.Clear()
}
