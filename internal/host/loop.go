package host

import (
	"context"
	"log/slog"
	"sync"
)

// Loop is the single owner loop. Closures posted from any goroutine run one
// at a time, in order, on the goroutine that called Run.
//
// The queue is unbounded so that a handler may post follow-up work without
// blocking on itself.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{} // buffered, size 1
	logger *slog.Logger
}

// NewLoop creates an empty loop. A nil logger uses slog.Default().
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		tasks:  make([]func(), 0, 16),
		signal: make(chan struct{}, 1),
		logger: logger,
	}
}

// Post appends fn to the queue. Returns false once the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.tasks = append(l.tasks, fn)

	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of queued closures.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// Stop closes the queue. Closures already queued still run; Run returns once
// they are drained.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.signal)
}

// Run executes queued closures until ctx is cancelled or the loop is stopped
// and drained. A panicking closure is logged and the loop continues.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if fn, ok := l.next(); ok {
			l.run(fn)
			continue
		}

		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case _, ok := <-l.signal:
			if !ok && l.Len() == 0 {
				return nil
			}
		}
	}
}

// Drain runs every queued closure on the calling goroutine and returns how
// many ran. Used where no goroutine is dedicated to Run.
func (l *Loop) Drain() int {
	n := 0
	for {
		fn, ok := l.next()
		if !ok {
			return n
		}
		l.run(fn)
		n++
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	if len(l.tasks) == 0 {
		l.tasks = l.tasks[:0]
	}
	return fn, true
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("loop task panicked", "panic", r)
		}
	}()
	fn()
}
