package cleansky

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePriorityOrder(t *testing.T) {
	q := newTaskQueue()
	now := time.Now()

	q.push(Task{Source: SourceWeather, Priority: 3}, "p3")
	q.push(Task{Source: SourceSatellite, Priority: 1}, "p1")
	q.push(Task{Source: SourceAirNow, Priority: 2}, "p2")

	var order []string
	for i := 0; i < 3; i++ {
		entry, _ := q.popEligible(now)
		require.NotNil(t, entry)
		order = append(order, entry.id)
	}
	assert.Equal(t, []string{"p1", "p2", "p3"}, order)
	assert.Equal(t, 0, q.len())
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := newTaskQueue()
	now := time.Now()

	// Same priority across different sources must come out in enqueue order.
	q.push(Task{Source: SourceSatellite, Priority: 2}, "first")
	q.push(Task{Source: SourceWeather, Priority: 2}, "second")
	q.push(Task{Source: SourceAirNow, Priority: 2}, "third")

	var order []string
	for i := 0; i < 3; i++ {
		entry, _ := q.popEligible(now)
		require.NotNil(t, entry)
		order = append(order, entry.id)
	}
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestQueueDeferredEntryNotEligible(t *testing.T) {
	q := newTaskQueue()
	now := time.Now()
	due := now.Add(100 * time.Millisecond)

	q.push(Task{Source: SourceWeather, Priority: 1, ScheduledTime: due}, "deferred")

	entry, nextDue := q.popEligible(now)
	assert.Nil(t, entry)
	assert.Equal(t, due, nextDue)
	assert.Equal(t, 1, q.len())

	entry, _ = q.popEligible(due.Add(time.Millisecond))
	require.NotNil(t, entry)
	assert.Equal(t, "deferred", entry.id)
}

func TestQueueDeferredHeadDoesNotShadowEligible(t *testing.T) {
	q := newTaskQueue()
	now := time.Now()

	// A higher-priority but deferred entry sits at the heap head; the eligible
	// lower-priority entry must still dispatch.
	q.push(Task{Source: SourceSatellite, Priority: 1, ScheduledTime: now.Add(time.Hour)}, "deferred")
	q.push(Task{Source: SourceWeather, Priority: 3}, "eligible")

	entry, _ := q.popEligible(now)
	require.NotNil(t, entry)
	assert.Equal(t, "eligible", entry.id)
	assert.Equal(t, 1, q.len())
}

func TestQueueEmptyPop(t *testing.T) {
	q := newTaskQueue()

	entry, nextDue := q.popEligible(time.Now())
	assert.Nil(t, entry)
	assert.True(t, nextDue.IsZero())
}
