package service

import (
	"log"
	"sync"
)

// Dispatcher runs functions on a specific execution context.
// ConnectionManager delivers listener notifications through one, so a caller
// can route them onto its own UI loop.
type Dispatcher interface {
	Post(fn func())
}

// SerialQueue runs posted functions one at a time, in posting order, on a
// dedicated goroutine.
type SerialQueue struct {
	name  string
	tasks chan func()
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewSerialQueue(name string, size int) *SerialQueue {
	q := &SerialQueue{
		name:  name,
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *SerialQueue) run() {
	defer close(q.done)
	for fn := range q.tasks {
		q.safeRun(fn)
	}
}

func (q *SerialQueue) safeRun(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("❌ [%s] task panicked: %v", q.name, p)
		}
	}()
	fn()
}

// Post queues fn. Posting to a closed queue drops fn.
func (q *SerialQueue) Post(fn func()) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		log.Printf("⚠️ [%s] queue closed, dropping task", q.name)
		return
	}
	q.tasks <- fn
}

// Close runs the already queued tasks and stops the goroutine.
func (q *SerialQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	<-q.done
}
