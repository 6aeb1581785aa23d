package partition

import (
	"context"
	"fmt"
	"sync"

	"github.com/mohitkumar/flowcanvas/logger"
	"github.com/mohitkumar/flowcanvas/util"
	"go.uber.org/zap"
)

type job struct {
	fn   func() error
	done chan error
}

// Lanes serializes work per key: every key is bound to one lane and each
// lane runs its jobs one after the other.
type Lanes struct {
	ring    *Ring
	workers []*util.Worker
	mu      sync.RWMutex
	stopped bool
}

func NewLanes(c RingConfig, capacity int, wg *sync.WaitGroup) *Lanes {
	ring := NewRing(c)
	l := &Lanes{ring: ring}
	for i := 0; i < ring.Lanes; i++ {
		l.workers = append(l.workers, util.NewWorker(fmt.Sprintf("lane-%d", i), wg, runJob, capacity))
	}
	return l
}

func runJob(task util.Task) error {
	j := task.(job)
	j.done <- j.fn()
	return nil
}

func (l *Lanes) Start() {
	for _, w := range l.workers {
		w.Start()
	}
	logger.Info("lanes started", zap.Int("lanes", len(l.workers)))
}

func (l *Lanes) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return nil
	}
	l.stopped = true
	for _, w := range l.workers {
		w.Stop()
	}
	return nil
}

// Execute runs fn on the lane of key and waits for its result. A cancelled
// ctx stops the wait, not the job: once queued, fn still runs.
func (l *Lanes) Execute(ctx context.Context, key string, fn func() error) error {
	l.mu.RLock()
	if l.stopped {
		l.mu.RUnlock()
		return fmt.Errorf("lanes are stopped")
	}
	w := l.workers[l.ring.Lane(key)]
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case w.Sender() <- j:
	case <-ctx.Done():
		l.mu.RUnlock()
		return ctx.Err()
	}
	l.mu.RUnlock()
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
