package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config sizes the queue between the engine and the sink.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull trades completeness for latency: a full queue loses the
	// event instead of stalling the login or refresh that produced it.
	DropIfFull bool
}

// queued pairs an event with the values of the request that produced it.
type queued struct {
	ctx   context.Context
	event Event
}

// Dispatcher moves events off the request path. One worker goroutine feeds
// the sink in enqueue order. The sink sees the emitting request's context
// values (request logger, client metadata) but never its cancellation, so a
// finished request does not abort delivery of its own events.
//
// A nil *Dispatcher is valid and discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	queue      chan queued
	stop       chan struct{}
	stopped    sync.WaitGroup
	closing    atomic.Bool
	closeOnce  sync.Once
	dropped    atomic.Uint64
}

// NewDispatcher starts the worker. It returns nil when cfg.Enabled is false.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan queued, max(cfg.BufferSize, 1)),
		stop:       make(chan struct{}),
	}
	d.stopped.Add(1)
	go d.work()
	return d
}

func (d *Dispatcher) work() {
	defer d.stopped.Done()

	for {
		select {
		case q := <-d.queue:
			d.sink.Emit(q.ctx, q.event)
		case <-d.stop:
			d.flush()
			return
		}
	}
}

// flush delivers whatever is still queued once stop is closed.
func (d *Dispatcher) flush() {
	for {
		select {
		case q := <-d.queue:
			d.sink.Emit(q.ctx, q.event)
		default:
			return
		}
	}
}

// Emit queues event for the sink. A full queue either drops the event or
// waits until there is room, ctx ends, or the dispatcher closes; both
// drop paths are counted in [Dispatcher.Dropped].
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	q := queued{ctx: context.WithoutCancel(ctx), event: event}

	if d.dropIfFull {
		select {
		case d.queue <- q:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- q:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.stop:
	}
}

// Close rejects further events and returns once the queue is flushed.
// It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		d.stopped.Wait()
	})
}

// Dropped counts events lost to a full queue or a canceled emitter.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
