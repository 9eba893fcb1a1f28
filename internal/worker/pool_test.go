package worker

import (
	"context"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTask struct {
	id      string
	counter *atomic.Int32
	done    *sync.WaitGroup
}

func (t *countingTask) ID() string { return t.id }

func (t *countingTask) Execute(ctx context.Context) error {
	t.counter.Add(1)
	t.done.Done()
	return nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDispatcherRunsAllSubmittedTasks(t *testing.T) {
	d := NewDispatcher(3, 32, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	d.Run(ctx)
	defer func() {
		cancel()
		d.Stop()
	}()

	var counter atomic.Int32
	var done sync.WaitGroup
	const n = 20
	done.Add(n)
	for i := 0; i < n; i++ {
		require.NoError(t, d.SubmitTask(&countingTask{id: "t", counter: &counter, done: &done}))
	}

	waitDone := make(chan struct{})
	go func() {
		done.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(5 * time.Second):
		t.Fatal("tasks did not complete")
	}
	assert.Equal(t, int32(n), counter.Load())
}

func TestSubmitTaskFailsFastWhenQueueFull(t *testing.T) {
	// Never run, so nothing drains the queue.
	d := NewDispatcher(1, 2, testLogger())

	var counter atomic.Int32
	var done sync.WaitGroup
	task := &countingTask{id: "t", counter: &counter, done: &done}

	require.NoError(t, d.SubmitTask(task))
	require.NoError(t, d.SubmitTask(task))
	assert.ErrorIs(t, d.SubmitTask(task), ErrQueueFull)
}

func TestStopWaitsForInFlightTask(t *testing.T) {
	d := NewDispatcher(1, 4, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Run(ctx)

	started := make(chan struct{})
	finished := make(chan struct{})
	require.NoError(t, d.SubmitTask(&funcTask{fn: func(context.Context) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		close(finished)
		return nil
	}}))

	<-started
	d.Stop()

	select {
	case <-finished:
	default:
		t.Fatal("Stop returned before the in-flight task finished")
	}
}

func TestStopReleasesQueuedTaskDispatch(t *testing.T) {
	base := runtime.NumGoroutine()

	d := NewDispatcher(1, 4, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Run(ctx)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, d.SubmitTask(&funcTask{fn: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	<-started

	// Queued behind the busy worker: its dispatch goroutine is parked
	// waiting for a worker channel when Stop arrives.
	require.NoError(t, d.SubmitTask(&funcTask{fn: func(context.Context) error { return nil }}))

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= base
	}, 2*time.Second, 10*time.Millisecond, "dispatch goroutine still parked after Stop")
}

type funcTask struct {
	fn func(context.Context) error
}

func (t *funcTask) ID() string                        { return "func" }
func (t *funcTask) Execute(ctx context.Context) error { return t.fn(ctx) }
