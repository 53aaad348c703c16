package worker

import (
	"context"
	"errors"

	"github.com/fornellas/slogxt/log"
)

type worker struct {
	name  string
	errCh chan error
}

// WorkerManager runs the goroutines backing one machine connection (line receiver,
// status poller, event consumers) and coordinates their shutdown: when any worker
// returns, the shared context is cancelled, which stops all the others.
type WorkerManager struct {
	workers    []worker
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func NewWorkerManager(ctx context.Context) *WorkerManager {
	ctx, cancelFunc := context.WithCancel(ctx)
	return &WorkerManager{
		ctx:        ctx,
		cancelFunc: cancelFunc,
	}
}

// StartWorker starts a new worker with the given name and function. The worker
// function receives the manager's context, with a logging group set to the worker
// name.
func (m *WorkerManager) StartWorker(name string, fn func(context.Context) error) {
	errCh := make(chan error, 1)
	go func() {
		ctx, logger := log.MustWithGroup(m.ctx, name)
		logger.Debug("Starting")
		err := fn(ctx)
		logger.Debug("Finished", "err", err)
		errCh <- err
		m.cancelFunc()
	}()
	m.workers = append([]worker{{name: name, errCh: errCh}}, m.workers...)
}

// Cancel cancels the shared context, requesting all workers to stop.
func (m *WorkerManager) Cancel() {
	m.cancelFunc()
}

// Wait blocks until all workers have completed and returns their joined errors.
func (m *WorkerManager) Wait() (err error) {
	logger := log.MustLogger(m.ctx)
	logger.Debug("Waiting for workers")
	for _, worker := range m.workers {
		workerErr := <-worker.errCh
		if errors.Is(workerErr, context.Canceled) {
			workerErr = nil
		}
		err = errors.Join(err, workerErr)
	}
	logger.Debug("All workers finished", "err", err)
	m.workers = nil
	return
}
