// ABOUTME: Block queues bridging the producer and real-time callback timing domains
// ABOUTME: Bounded FIFO with timed put/get, plus an unbounded capture-side queue
package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/soundweave/soundweave-go/pkg/audio"
)

var (
	// ErrQueueFull is returned when a put cannot complete within its timeout.
	ErrQueueFull = errors.New("queue: full")
	// ErrQueueEmpty is returned when a get cannot complete within its timeout.
	ErrQueueEmpty = errors.New("queue: empty")
	// ErrQueueClosed is returned for puts after Close.
	ErrQueueClosed = errors.New("queue: closed")
	// ErrQueueDrained is returned by gets once the queue is closed and empty.
	// It marks end of stream, as opposed to a transient ErrQueueEmpty.
	ErrQueueDrained = errors.New("queue: drained")
)

// Bounded is a fixed-capacity FIFO of audio blocks. It supports one producer
// and one consumer; only the producer may call Close. Broader sharing needs
// external synchronization.
type Bounded struct {
	blocks chan audio.Block

	mu     sync.Mutex
	closed bool
}

// NewBounded creates a queue holding at most capacity blocks.
func NewBounded(capacity int) *Bounded {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded{blocks: make(chan audio.Block, capacity)}
}

// Cap returns the fixed capacity in blocks.
func (q *Bounded) Cap() int { return cap(q.blocks) }

// Len returns the number of blocks currently queued.
func (q *Bounded) Len() int { return len(q.blocks) }

// Put enqueues a block, waiting up to timeout for room. A timeout <= 0 makes
// the put non-blocking.
func (q *Bounded) Put(b audio.Block, timeout time.Duration) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return ErrQueueClosed
	}

	// The single producer is also the only closer, so the send below cannot
	// race a close of the channel.
	if timeout <= 0 {
		select {
		case q.blocks <- b:
			return nil
		default:
			return ErrQueueFull
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case q.blocks <- b:
		return nil
	case <-timer.C:
		return ErrQueueFull
	}
}

// TryPut enqueues a block without blocking.
func (q *Bounded) TryPut(b audio.Block) error { return q.Put(b, 0) }

// Get dequeues the oldest block, waiting up to timeout for one to arrive.
// A timeout <= 0 makes the get non-blocking. Once the queue is closed and
// empty, Get returns ErrQueueDrained.
func (q *Bounded) Get(timeout time.Duration) (audio.Block, error) {
	if timeout <= 0 {
		select {
		case b, ok := <-q.blocks:
			if !ok {
				return audio.Block{}, ErrQueueDrained
			}
			return b, nil
		default:
			return audio.Block{}, ErrQueueEmpty
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case b, ok := <-q.blocks:
		if !ok {
			return audio.Block{}, ErrQueueDrained
		}
		return b, nil
	case <-timer.C:
		return audio.Block{}, ErrQueueEmpty
	}
}

// TryGet dequeues without blocking.
func (q *Bounded) TryGet() (audio.Block, error) { return q.Get(0) }

// Close marks the end of the stream. Queued blocks remain readable; once
// they are drained, gets report ErrQueueDrained. Close is idempotent.
func (q *Bounded) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.blocks)
	}
}

// Unbounded is a grow-as-needed FIFO for the capture path, where dropping a
// block would lose recorded audio. Single producer, single consumer.
type Unbounded struct {
	mu     sync.Mutex
	blocks []audio.Block
	closed bool
	wake   chan struct{}
}

// NewUnbounded creates an empty unbounded queue.
func NewUnbounded() *Unbounded {
	return &Unbounded{wake: make(chan struct{}, 1)}
}

// Put enqueues a block. It never blocks and never drops.
func (q *Unbounded) Put(b audio.Block) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.blocks = append(q.blocks, b)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len returns the number of blocks currently queued.
func (q *Unbounded) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.blocks)
}

// Get dequeues the oldest block, waiting up to timeout for one to arrive.
// A timeout <= 0 makes the get non-blocking.
func (q *Unbounded) Get(timeout time.Duration) (audio.Block, error) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if len(q.blocks) > 0 {
			b := q.blocks[0]
			q.blocks = q.blocks[1:]
			q.mu.Unlock()
			return b, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return audio.Block{}, ErrQueueDrained
		}
		remain := time.Until(deadline)
		if timeout <= 0 || remain <= 0 {
			return audio.Block{}, ErrQueueEmpty
		}

		timer := time.NewTimer(remain)
		select {
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Close marks the end of the stream; queued blocks remain readable.
func (q *Unbounded) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}
