
package engine

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"
)

// tokenBucket admits task starts at a bounded rate: at most `limit` starts
// per `interval`, with burst capacity equal to the limit.
type tokenBucket struct {
	mu           sync.Mutex
	capacity     float64
	tokens       float64
	refillPerSec float64
	last         time.Time
}

func newTokenBucket(limit int, interval time.Duration) *tokenBucket {
	if limit <= 0 || interval <= 0 {
		return nil
	}
	c := float64(limit)
	return &tokenBucket{
		capacity:     c,
		tokens:       c,
		refillPerSec: c / interval.Seconds(),
		last:         time.Now(),
	}
}

// take blocks until a token is available or ctx is done. A nil bucket
// admits everything.
func (b *tokenBucket) take(ctx context.Context) bool {
	if b == nil {
		return true
	}
	for {
		b.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(b.last).Seconds()
		if elapsed > 0 {
			b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillPerSec)
			b.last = now
		}
		ok := false
		if b.tokens >= 1.0 {
			b.tokens -= 1.0
			ok = true
		}
		b.mu.Unlock()

		if ok {
			return true
		}
		toNext := time.Duration((1.0 / b.refillPerSec) * float64(time.Second))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(toNext):
		}
	}
}

// Dispatcher runs independent fetch tasks under two admission constraints:
// at most C tasks in flight, and at most R task starts per rolling
// interval. A task failure is contained at the task boundary; it is logged
// and never aborts sibling tasks or Drain.
type Dispatcher struct {
	sem    chan struct{}
	bucket *tokenBucket
	wg     sync.WaitGroup
}

func NewDispatcher(concurrency, rateLimit int, rateInterval time.Duration) *Dispatcher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Dispatcher{
		sem:    make(chan struct{}, concurrency),
		bucket: newTokenBucket(rateLimit, rateInterval),
	}
}

// Submit enqueues a task. Results are the task's own business (it writes
// them wherever the caller arranged); the Dispatcher retains nothing.
func (d *Dispatcher) Submit(ctx context.Context, name string, task func(ctx context.Context) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		select {
		case d.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-d.sem }()

		if !d.bucket.take(ctx) {
			return
		}
		if err := d.runTask(ctx, task); err != nil {
			log.Printf("[dispatch] task %s: %v", name, err)
		}
	}()
}

func (d *Dispatcher) runTask(ctx context.Context, task func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return task(ctx)
}

// Drain blocks until every submitted task has completed, successfully or
// not.
func (d *Dispatcher) Drain() {
	d.wg.Wait()
}
