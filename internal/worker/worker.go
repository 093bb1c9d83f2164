package worker

import (
	"context"
	"sync"
	"time"

	"cart-service/internal/models"
	"cart-service/internal/util"

	"go.uber.org/zap"
)

// Snapshot is one committed cart transition
type Snapshot struct {
	SessionID string
	Action    string
	Prev      models.CartState
	Next      models.CartState
}

// Sink consumes snapshots, e.g. storage or event publishing
type Sink func(ctx context.Context, snap Snapshot) error

// SnapshotWorker runs sinks off the request path. Snapshots are processed one
// at a time in the order they were enqueued; a full queue drops new snapshots
// instead of blocking the dispatcher.
type SnapshotWorker struct {
	queue   chan Snapshot
	sinks   map[string]Sink
	order   []string
	timeout time.Duration
	logger  *zap.Logger
	done    chan struct{}
	once    sync.Once
}

// NewSnapshotWorker creates a worker with the given queue capacity
func NewSnapshotWorker(size int, timeout time.Duration) *SnapshotWorker {
	if size <= 0 {
		size = 1
	}
	return &SnapshotWorker{
		queue:   make(chan Snapshot, size),
		sinks:   make(map[string]Sink),
		timeout: timeout,
		logger:  util.GetLogger(),
		done:    make(chan struct{}),
	}
}

// AddSink registers a named sink. Sinks run in registration order.
// Must be called before Start.
func (w *SnapshotWorker) AddSink(name string, sink Sink) {
	if _, ok := w.sinks[name]; !ok {
		w.order = append(w.order, name)
	}
	w.sinks[name] = sink
}

// Enqueue hands a snapshot to the worker without blocking
func (w *SnapshotWorker) Enqueue(snap Snapshot) bool {
	select {
	case w.queue <- snap:
		return true
	default:
		util.PersistQueueDropped.Inc()
		w.logger.Warn("Snapshot queue full, dropping",
			zap.String("session_id", snap.SessionID),
			zap.String("action", snap.Action))
		return false
	}
}

// Start processes snapshots until ctx is cancelled, then drains what is left
func (w *SnapshotWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting snapshot worker", zap.Strings("sinks", w.order))
	defer w.once.Do(func() { close(w.done) })

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case snap := <-w.queue:
			w.process(snap)
		}
	}
}

// Wait blocks until Start has returned
func (w *SnapshotWorker) Wait() {
	<-w.done
}

func (w *SnapshotWorker) drain() {
	for {
		select {
		case snap := <-w.queue:
			w.process(snap)
		default:
			return
		}
	}
}

func (w *SnapshotWorker) process(snap Snapshot) {
	for _, name := range w.order {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := w.sinks[name](ctx, snap)
		cancel()
		if err != nil {
			w.logger.Error("Snapshot sink failed",
				zap.String("sink", name),
				zap.String("session_id", snap.SessionID),
				zap.Error(err))
		}
	}
}
