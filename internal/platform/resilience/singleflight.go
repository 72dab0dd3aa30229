package resilience

import (
	"context"
	"fmt"
	"sync"
)

// SingleFlight shares one execution of fn among concurrent callers of the
// same key. The zero value is ready to use.
type SingleFlight[T any] struct {
	mu       sync.Mutex
	inflight map[string]*flight[T]
}

type flight[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Do returns fn's result for key. shared is true when the caller joined an
// execution started by someone else. fn runs on its own goroutine and is not
// tied to any caller: each caller stops waiting when its own ctx is done,
// while fn carries on for the rest. fn must therefore bound itself, e.g.
// with a context derived from context.WithoutCancel plus a timeout. The key
// is forgotten as soon as fn returns, so errors are never cached.
func (g *SingleFlight[T]) Do(ctx context.Context, key string, fn func() (T, error)) (val T, err error, shared bool) {
	g.mu.Lock()
	f, shared := g.inflight[key]
	if !shared {
		if g.inflight == nil {
			g.inflight = make(map[string]*flight[T])
		}
		f = &flight[T]{done: make(chan struct{})}
		g.inflight[key] = f
		go g.run(key, f, fn)
	}
	g.mu.Unlock()

	select {
	case <-f.done:
		return f.val, f.err, shared
	case <-ctx.Done():
		return val, ctx.Err(), shared
	}
}

func (g *SingleFlight[T]) run(key string, f *flight[T], fn func() (T, error)) {
	defer func() {
		if r := recover(); r != nil {
			f.err = fmt.Errorf("singleflight %q: panic: %v", key, r)
		}
		g.mu.Lock()
		delete(g.inflight, key)
		g.mu.Unlock()
		close(f.done)
	}()
	f.val, f.err = fn()
}
