package cleansky

import (
	"container/heap"
	"sync"
	"time"
)

// queueEntry is a Task waiting in the priority queue, tagged with its public id and
// the enqueue sequence number used to break priority ties FIFO.
type queueEntry struct {
	task Task
	id   string
	seq  uint64

	index int // Index within the heap
}

// taskHeap implements heap.Interface over queueEntries, ordered by priority
// ascending, then by enqueue sequence for FIFO behavior across sources.
type taskHeap []*queueEntry

func (h taskHeap) Len() int { return len(h) }

// Less prioritizes lower priority numbers, then earlier enqueues.
func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority < h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i // Maintain index within the heap.
	h[j].index = j
}

// Push adds an entry to the heap.
func (h *taskHeap) Push(x any) {
	n := len(*h)
	entry := x.(*queueEntry)
	entry.index = n
	*h = append(*h, entry)
}

// Pop removes and returns the highest-priority entry.
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1 // For safety.
	*h = old[0 : n-1]
	return entry
}

// taskQueue is the engine's pending-task store: a mutex-guarded priority heap with
// eligibility gating on each entry's scheduled time.
type taskQueue struct {
	mu      sync.Mutex
	entries taskHeap
	nextSeq uint64
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{entries: make(taskHeap, 0)}
	heap.Init(&q.entries)
	return q
}

// push adds a task under the given public id.
func (q *taskQueue) push(task Task, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry := &queueEntry{task: task, id: id, seq: q.nextSeq}
	q.nextSeq++
	heap.Push(&q.entries, entry)
}

// popEligible removes and returns the best eligible entry at the given instant.
// When nothing is eligible it returns nil alongside the earliest time at which a
// deferred entry becomes eligible (zero when the queue is empty).
//
// Entries with a future ScheduledTime can shadow dispatchable ones at the heap head,
// so selection scans for the heap-least entry among the eligible set. Queue sizes are
// small (bounded by in-flight ingestion work), which keeps the scan cheap.
func (q *taskQueue) popEligible(now time.Time) (*queueEntry, time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var best *queueEntry
	var nextDue time.Time
	for _, entry := range q.entries {
		if !entry.task.eligibleAt(now) {
			if nextDue.IsZero() || entry.task.ScheduledTime.Before(nextDue) {
				nextDue = entry.task.ScheduledTime
			}
			continue
		}
		if best == nil || q.entries.Less(entry.index, best.index) {
			best = entry
		}
	}
	if best == nil {
		return nil, nextDue
	}
	heap.Remove(&q.entries, best.index)
	return best, time.Time{}
}

// len returns the number of queued tasks, eligible or not.
func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.entries.Len()
}
