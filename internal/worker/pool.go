// Package worker provides the dispatcher/worker pool that runs pipeline
// tasks off the request path. Submission is non-blocking: a full queue is
// reported to the caller instead of silently dropping work.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrQueueFull is returned by SubmitTask when the task queue is at capacity.
var ErrQueueFull = errors.New("task queue is full")

// Task is a unit of long-running work. Execute observes ctx for shutdown;
// task-level cancellation (a user canceling one job) is carried inside the
// task itself.
type Task interface {
	Execute(ctx context.Context) error
	ID() string
}

// Worker pulls tasks from its own channel, registering that channel with
// the shared pool whenever it is idle.
type Worker struct {
	id          int
	workerPool  chan chan Task
	taskChannel chan Task
	quit        chan struct{}
	wg          *sync.WaitGroup
	logger      *logrus.Logger
}

// NewWorker creates a worker attached to the dispatcher's pool.
func NewWorker(id int, workerPool chan chan Task, wg *sync.WaitGroup, logger *logrus.Logger) *Worker {
	return &Worker{
		id:          id,
		workerPool:  workerPool,
		taskChannel: make(chan Task),
		quit:        make(chan struct{}),
		wg:          wg,
		logger:      logger,
	}
}

// Start runs the worker loop in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			w.workerPool <- w.taskChannel

			select {
			case task := <-w.taskChannel:
				log := w.logger.WithFields(logrus.Fields{"worker": w.id, "task_id": task.ID()})
				log.Info("Worker started task")
				if err := task.Execute(ctx); err != nil {
					log.WithError(err).Error("Task finished with error")
				} else {
					log.Info("Task finished")
				}
			case <-w.quit:
				w.logger.WithField("worker", w.id).Info("Worker stopping")
				return
			}
		}
	}()
}

// Stop signals the worker to exit after its current task.
func (w *Worker) Stop() {
	close(w.quit)
}

// Dispatcher owns the task queue and the worker pool.
type Dispatcher struct {
	maxWorkers int
	workerPool chan chan Task
	taskQueue  chan Task
	workers    []*Worker
	wg         sync.WaitGroup
	quit       chan struct{}
	logger     *logrus.Logger
}

// NewDispatcher creates a dispatcher with a bounded task queue.
func NewDispatcher(maxWorkers, taskQueueSize int, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		maxWorkers: maxWorkers,
		workerPool: make(chan chan Task, maxWorkers),
		taskQueue:  make(chan Task, taskQueueSize),
		workers:    make([]*Worker, 0, maxWorkers),
		quit:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the workers and the dispatch loop. ctx is the process
// lifetime; canceling it is equivalent to Stop for in-flight tasks.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.WithField("workers", d.maxWorkers).Info("Dispatcher starting")
	for i := 1; i <= d.maxWorkers; i++ {
		worker := NewWorker(i, d.workerPool, &d.wg, d.logger)
		d.workers = append(d.workers, worker)
		worker.Start(ctx)
	}
	go d.dispatch()
}

func (d *Dispatcher) dispatch() {
	for {
		select {
		case task := <-d.taskQueue:
			go func(task Task) {
				// A worker that quits between registering its channel and
				// receiving would otherwise strand this send forever.
				select {
				case taskChannel := <-d.workerPool:
					select {
					case taskChannel <- task:
					case <-d.quit:
						d.logger.WithField("task_id", task.ID()).Warn("Dispatcher stopping, task dropped")
					}
				case <-d.quit:
					d.logger.WithField("task_id", task.ID()).Warn("Dispatcher stopping, task dropped")
				}
			}(task)
		case <-d.quit:
			return
		}
	}
}

// SubmitTask enqueues a task, failing fast when the queue is full so the
// caller can surface backpressure instead of hanging the request.
func (d *Dispatcher) SubmitTask(task Task) error {
	select {
	case d.taskQueue <- task:
		d.logger.WithField("task_id", task.ID()).Debug("Task queued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop shuts the dispatch loop down and waits for every worker to finish
// its current task.
func (d *Dispatcher) Stop() {
	d.logger.Info("Dispatcher shutting down")
	close(d.quit)
	for _, worker := range d.workers {
		worker.Stop()
	}
	d.wg.Wait()
	d.logger.Info("Dispatcher stopped")
}
