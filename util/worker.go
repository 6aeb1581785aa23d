package util

import (
	"sync"

	"github.com/mohitkumar/flowcanvas/logger"
	"go.uber.org/zap"
)

type Task any

// Worker runs the tasks sent to it one at a time, in order, on a single
// goroutine.
type Worker struct {
	name     string
	stop     chan struct{}
	wg       *sync.WaitGroup
	handler  func(Task) error
	taskChan chan Task
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		for {
			select {
			case task := <-w.taskChan:
				err := w.handler(task)
				if err != nil {
					logger.Error("error in executing task in worker", zap.String("worker", w.name), zap.Error(err))
				}
			case <-w.stop:
				logger.Info("stopping worker", zap.String("worker", w.name))
				return
			}
		}
	}()
}

func (w *Worker) Sender() chan<- Task {
	return w.taskChan
}

func (w *Worker) Name() string {
	return w.name
}

func (w *Worker) Stop() {
	close(w.stop)
}

func NewWorker(name string, wg *sync.WaitGroup, handler func(Task) error, capacity int) *Worker {
	ch := make(chan Task, capacity)
	stop := make(chan struct{})
	return &Worker{
		taskChan: ch,
		name:     name,
		wg:       wg,
		stop:     stop,
		handler:  handler,
	}
}
