package parallel

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	ErrPoolFull   = errors.New("pool queue is full")
	ErrPoolClosed = errors.New("pool is closed")
)

// Pool runs submitted tasks on a fixed set of workers. Submit never blocks:
// when all workers are busy the task waits in a bounded queue, and when the
// queue is full it is refused.
type Pool struct {
	g     errgroup.Group
	queue chan func()

	mx     sync.RWMutex
	closed bool
}

func NewPool(workers, queue int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	p := &Pool{
		queue: make(chan func(), queue),
	}
	for range workers {
		p.g.Go(p.work)
	}
	return p
}

func (p *Pool) Submit(task func()) error {
	p.mx.RLock()
	defer p.mx.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// Close refuses new tasks, lets the queued ones finish and waits for the
// workers. It is safe to call Close repeatedly.
func (p *Pool) Close() error {
	p.mx.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mx.Unlock()
	return p.g.Wait()
}

func (p *Pool) work() error {
	for task := range p.queue {
		p.exec(task)
	}
	return nil
}

// exec keeps the worker alive when a task panics
func (p *Pool) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("recovered from %v", r)
			slog.Error("pool task panicked", "error", err, "stack", string(debug.Stack()))
		}
	}()
	task()
}
