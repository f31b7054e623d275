package cleansky

import (
	"github.com/rs/zerolog/log"
)

// ResultObserver receives every finalized TaskResult, invoked synchronously by the
// dispatcher after stats and audit have been updated. Implementations must be fast;
// a slow observer stalls result finalization for its task's executor.
type ResultObserver interface {
	OnResult(TaskResult)
}

// ResultObserverFunc adapts a plain function into a ResultObserver.
type ResultObserverFunc func(TaskResult)

// OnResult calls the wrapped function.
func (f ResultObserverFunc) OnResult(result TaskResult) {
	f(result)
}

// ChannelObserver forwards results onto a buffered channel for callers that prefer
// to await results instead of registering a callback. When the buffer is full the
// result is dropped with a warning rather than blocking the engine.
type ChannelObserver struct {
	ch chan TaskResult
}

// NewChannelObserver creates a ChannelObserver with the given buffer size.
func NewChannelObserver(buffer int) *ChannelObserver {
	return &ChannelObserver{ch: make(chan TaskResult, buffer)}
}

// Results returns the receive side of the observer's channel.
func (o *ChannelObserver) Results() <-chan TaskResult {
	return o.ch
}

// OnResult enqueues the result for the channel's reader, dropping on a full buffer.
func (o *ChannelObserver) OnResult(result TaskResult) {
	select {
	case o.ch <- result:
	default:
		log.Warn().Str("task_id", result.TaskID).
			Msg("Result observer channel full, dropping result")
	}
}
