// Package queue implements the three-band priority queue feeding the crawler
// worker loop.
package queue

import (
	"sync"
	"time"
)

// Priority orders tasks across bands. Within a band, FIFO holds.
type Priority int

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

// String returns the band label used in logs and metrics.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Task is one unit of crawl work referencing one player. Tasks live only in
// memory; they are never persisted.
type Task struct {
	AddedAt     time.Time
	PlayerID    string
	DisplayName string
	Region      string
	Priority    Priority
	Retries     int
}

type band struct {
	mu    sync.RWMutex
	tasks []Task
}

func (b *band) push(t Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append(b.tasks, t)
}

func (b *band) pushAll(ts []Task) {
	if len(ts) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append(b.tasks, ts...)
}

func (b *band) pop() (Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.tasks) == 0 {
		return Task{}, false
	}
	t := b.tasks[0]
	b.tasks = b.tasks[1:]
	return t, true
}

func (b *band) size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tasks)
}

func (b *band) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = nil
}

// dedupe keeps the first occurrence of each player id, preserving order.
func (b *band) dedupe() {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]struct{}, len(b.tasks))
	kept := b.tasks[:0]
	for _, t := range b.tasks {
		if _, dup := seen[t.PlayerID]; dup {
			continue
		}
		seen[t.PlayerID] = struct{}{}
		kept = append(kept, t)
	}
	b.tasks = kept
}

// TaskQueue is three FIFO bands with strict high > medium > low preemption on
// every pop. All operations are non-blocking; each band has its own lock, so
// no operation ever holds two locks at once.
type TaskQueue struct {
	high   band
	medium band
	low    band
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

// Push appends the task to the band named by its priority.
func (q *TaskQueue) Push(t Task) {
	q.bandFor(t.Priority).push(t)
}

// PushBatch partitions the tasks by priority and appends each partition in
// order, taking each band lock once.
func (q *TaskQueue) PushBatch(tasks []Task) {
	var high, medium, low []Task
	for _, t := range tasks {
		switch t.Priority {
		case PriorityHigh:
			high = append(high, t)
		case PriorityMedium:
			medium = append(medium, t)
		default:
			low = append(low, t)
		}
	}
	q.high.pushAll(high)
	q.medium.pushAll(medium)
	q.low.pushAll(low)
}

// Pop returns the front of the highest non-empty band, or false when all
// bands are empty. Never blocks.
func (q *TaskQueue) Pop() (Task, bool) {
	if t, ok := q.high.pop(); ok {
		return t, true
	}
	if t, ok := q.medium.pop(); ok {
		return t, true
	}
	return q.low.pop()
}

// Size returns the per-band depths.
func (q *TaskQueue) Size() (high, medium, low int) {
	return q.high.size(), q.medium.size(), q.low.size()
}

// TotalSize returns the combined depth of all bands.
func (q *TaskQueue) TotalSize() int {
	h, m, l := q.Size()
	return h + m + l
}

// IsEmpty reports whether all bands are empty.
func (q *TaskQueue) IsEmpty() bool {
	return q.TotalSize() == 0
}

// Clear drops all queued tasks.
func (q *TaskQueue) Clear() {
	q.high.clear()
	q.medium.clear()
	q.low.clear()
}

// RemoveDuplicates rewrites each band keeping only the first occurrence of
// each player id. Run periodically to bound growth when the match graph
// revisits players.
func (q *TaskQueue) RemoveDuplicates() {
	q.high.dedupe()
	q.medium.dedupe()
	q.low.dedupe()
}

func (q *TaskQueue) bandFor(p Priority) *band {
	switch p {
	case PriorityHigh:
		return &q.high
	case PriorityMedium:
		return &q.medium
	default:
		return &q.low
	}
}
