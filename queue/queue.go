package queue

import (
	"sync"

	"github.com/jonwraymond/dispatchops/provider"
)

// Queue is an unbounded FIFO of messages waiting to be submitted.
// It is safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []provider.Message
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Push appends msg and returns the queue length after the push.
func (q *Queue) Push(msg provider.Message) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, msg)
	return len(q.items)
}

// PushFront puts msgs back at the head of the queue, keeping their order.
func (q *Queue) PushFront(msgs ...provider.Message) {
	if len(msgs) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	items := make([]provider.Message, 0, len(msgs)+len(q.items))
	items = append(items, msgs...)
	q.items = append(items, q.items...)
}

// PopAll removes and returns everything queued, oldest first.
func (q *Queue) PopAll() []provider.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
