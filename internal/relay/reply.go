package relay

import (
	"context"
	"sync"
)

// Reply is a one-shot result of an outstanding query.
//
// Continuations registered with Then run exactly once, on the goroutine that
// settles the reply, or immediately on the caller's goroutine if the reply
// has already settled.
type Reply[T any] struct {
	mu      sync.Mutex
	settled bool
	val     T
	err     error
	conts   []func()
	done    chan struct{}
}

// NewReply creates an unsettled reply.
func NewReply[T any]() *Reply[T] {
	return &Reply[T]{done: make(chan struct{})}
}

// Resolve settles the reply with v. Returns false if already settled.
func (r *Reply[T]) Resolve(v T) bool {
	return r.settle(v, nil)
}

// Reject settles the reply with err. Returns false if already settled.
func (r *Reply[T]) Reject(err error) bool {
	var zero T
	return r.settle(zero, err)
}

func (r *Reply[T]) settle(v T, err error) bool {
	r.mu.Lock()
	if r.settled {
		r.mu.Unlock()
		return false
	}
	r.settled = true
	r.val, r.err = v, err
	conts := r.conts
	r.conts = nil
	close(r.done)
	r.mu.Unlock()

	for _, fn := range conts {
		fn()
	}
	return true
}

// Then registers the success and failure continuations. Either may be nil.
func (r *Reply[T]) Then(ok func(T), fail func(error)) {
	cont := func() {
		if r.err != nil {
			if fail != nil {
				fail(r.err)
			}
			return
		}
		if ok != nil {
			ok(r.val)
		}
	}

	r.mu.Lock()
	if !r.settled {
		r.conts = append(r.conts, cont)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	cont()
}

// Done is closed once the reply settles.
func (r *Reply[T]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the reply settles or ctx is done.
func (r *Reply[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
