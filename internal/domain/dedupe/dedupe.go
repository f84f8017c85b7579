// Package dedupe maps client idempotency keys to the batch job they created,
// so a resubmitted upload returns the original job instead of a new one.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultMaxSize = 10000

// Index records which job an idempotency key produced.
type Index interface {
	// Claim atomically binds key to jobID unless key is already bound.
	// It returns the bound job id and whether this call made the binding.
	Claim(ctx context.Context, key, jobID string) (string, bool)

	// Release unbinds key, allowing it to be claimed again. Use it when the
	// job behind a fresh claim could not be accepted (e.g. queue backpressure).
	Release(ctx context.Context, key string)

	Size() int64
}

// node is a single entry in the linked list, newest first.
type node struct {
	key   string
	jobID string
	next  *node
}

func (n *node) reset() {
	n.key = ""
	n.jobID = ""
	n.next = nil
}

// inMemoryIndex implements Index with a map plus, in bounded mode, a linked
// list for evicting the oldest key and a sync.Pool for nodes.
type inMemoryIndex struct {
	mu       sync.Mutex
	keys     map[string]*node
	head     *node
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryIndex creates an in-memory index.
func NewInMemoryIndex(opts ...Option) Index {
	d := &inMemoryIndex{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.keys = make(map[string]*node)
	d.nodePool = sync.Pool{New: func() interface{} { return &node{} }}
	return d
}

// Claim binds key to jobID unless already bound.
func (d *inMemoryIndex) Claim(ctx context.Context, key, jobID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.keys[key]; ok {
		return n.jobID, false
	}
	if d.maxSize > 0 && len(d.keys) >= d.maxSize {
		d.evictOldest()
	}

	n := d.nodePool.Get().(*node)
	n.key = key
	n.jobID = jobID
	if d.maxSize > 0 {
		n.next = d.head
		d.head = n
	}
	d.keys[key] = n
	d.size.Add(1)
	return jobID, true
}

// Release unbinds key.
func (d *inMemoryIndex) Release(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.keys[key]
	if !ok {
		return
	}
	delete(d.keys, key)
	if d.maxSize > 0 {
		if d.head == n {
			d.head = n.next
		} else {
			cur := d.head
			for cur != nil && cur.next != n {
				cur = cur.next
			}
			if cur != nil {
				cur.next = n.next
			}
		}
	}
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}

// evictOldest removes the tail of the list.
// Must be called with d.mu held.
func (d *inMemoryIndex) evictOldest() {
	if d.head == nil {
		return
	}
	var prev *node
	cur := d.head
	for cur.next != nil {
		prev = cur
		cur = cur.next
	}
	if prev == nil {
		d.head = nil
	} else {
		prev.next = nil
	}
	delete(d.keys, cur.key)
	cur.reset()
	d.nodePool.Put(cur)
	d.size.Add(-1)
}

// Size returns the current number of keys.
func (d *inMemoryIndex) Size() int64 {
	return d.size.Load()
}
