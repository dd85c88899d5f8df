package backend

import (
	"sync"
	"time"
)

// batcher accumulates items and hands them to flushFn in slices, either when
// maxSize items are pending or when interval elapses since the first pending
// item. flushFn runs on the batcher goroutine.
type batcher[T any] struct {
	feed     chan T
	maxSize  int
	interval time.Duration
	flushFn  func([]T)

	closeOnce sync.Once
	done      chan struct{}
}

func newBatcher[T any](maxSize int, interval time.Duration, flushFn func([]T)) *batcher[T] {
	b := &batcher[T]{
		feed:     make(chan T, maxSize*2),
		maxSize:  maxSize,
		interval: interval,
		flushFn:  flushFn,
		done:     make(chan struct{}),
	}
	go b.loop()
	return b
}

// Add queues one item. Never blocks: when the feed buffer is full (a stalled
// flush) the item is dropped and Add reports false. Add must not be called
// after Stop.
func (b *batcher[T]) Add(item T) bool {
	select {
	case b.feed <- item:
		return true
	default:
		return false
	}
}

// Stop flushes whatever is pending and shuts the goroutine down. Add must not
// be called after Stop.
func (b *batcher[T]) Stop() {
	b.closeOnce.Do(func() { close(b.feed) })
	<-b.done
}

func (b *batcher[T]) loop() {
	defer close(b.done)

	pending := make([]T, 0, b.maxSize)
	timer := time.NewTimer(b.interval)
	timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		b.flushFn(pending)
		pending = make([]T, 0, b.maxSize)
	}

	for {
		select {
		case item, ok := <-b.feed:
			if !ok {
				timer.Stop()
				flush()
				return
			}
			pending = append(pending, item)
			if len(pending) == 1 {
				timer.Reset(b.interval)
			}
			if len(pending) >= b.maxSize {
				timer.Stop()
				flush()
			}
		case <-timer.C:
			flush()
		}
	}
}
