package ocr

import (
	"context"
	"sync"
)

type closer interface {
	Close() error
}

// clientPool hands out exclusive clients. Clients returned after close are
// closed instead of pooled.
type clientPool[T closer] struct {
	mu      sync.Mutex
	clients chan T
	closed  chan struct{}
	done    bool
}

func newClientPool[T closer](size int) *clientPool[T] {
	return &clientPool[T]{
		clients: make(chan T, size),
		closed:  make(chan struct{}),
	}
}

// get blocks until a client is free, ctx ends or the pool is closed
func (p *clientPool[T]) get(ctx context.Context) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-p.closed:
		return zero, ErrEngineClosed
	case client := <-p.clients:
		return client, nil
	}
}

func (p *clientPool[T]) put(client T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		client.Close()
		return
	}
	p.clients <- client
}

// close closes every idle client; checked out clients are closed on put
func (p *clientPool[T]) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return
	}
	p.done = true
	close(p.closed)
	for {
		select {
		case client := <-p.clients:
			client.Close()
		default:
			return
		}
	}
}
