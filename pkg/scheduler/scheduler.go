// Package scheduler runs tasks at a fixed cadence.
package scheduler

import (
	"context"
	"sync"
	"time"
)

// Task is a unit of work run by a Job.
type Task interface {
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to a Task.
type TaskFunc func(ctx context.Context) error

// Run calls f(ctx).
func (f TaskFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Every runs task each time interval elapses, until the returned Job is cancelled or ctx is done.
// Runs never overlap: a tick or trigger that fires while the task is still running is skipped.
func Every(ctx context.Context, interval time.Duration, task Task) *Job {
	ctx2, cancel := context.WithCancel(ctx)
	j := &Job{
		task:     task,
		interval: interval,
		state:    stateScheduled,
		cancel:   cancel,
		trigger:  make(chan struct{}, 1),
		ran:      make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go j.run(ctx2)
	return j
}

// Job is the cancellable handle of a scheduled Task.
type Job struct {
	task     Task
	interval time.Duration
	state    state
	cancel   context.CancelFunc
	trigger  chan struct{}
	ran      chan struct{}
	done     chan struct{}
	runs     int
	err      error
	lock     sync.RWMutex
}

func (j *Job) run(ctx context.Context) {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.setState(stateCanceled)
			return
		case <-ticker.C:
		case <-j.trigger:
		}
		j.execute(ctx)
		// skip whatever fired while the task was running
		select {
		case <-ticker.C:
		default:
		}
		select {
		case <-j.trigger:
		default:
		}
	}
}

func (j *Job) execute(ctx context.Context) {
	j.setState(stateRunning)
	err := j.task.Run(ctx)

	j.lock.Lock()
	j.runs++
	j.err = nil
	if err != nil {
		j.err = &TaskError{Run: j.runs, Err: err}
	}
	if j.state == stateRunning {
		j.state = stateScheduled
	}
	j.lock.Unlock()

	select {
	case j.ran <- struct{}{}:
	default:
	}
}

// Trigger runs the task now, out of cadence. If a run is already pending, Trigger has no effect.
func (j *Job) Trigger() {
	select {
	case j.trigger <- struct{}{}:
	default:
	}
}

// Ran receives a value after a run completes. Runs completing before the value is read are coalesced.
func (j *Job) Ran() <-chan struct{} {
	return j.ran
}

// Cancel stops the job and waits for a running task to return. Cancel is safe to call more than once.
func (j *Job) Cancel() {
	j.cancel()
	<-j.done
}

// Result returns the number of completed runs and, if the last run failed, a *TaskError.
// Once the job is stopped, the error is ErrCanceled.
func (j *Job) Result() (runs int, err error) {
	j.lock.RLock()
	defer j.lock.RUnlock()
	if j.state == stateCanceled {
		return j.runs, ErrCanceled
	}
	return j.runs, j.err
}

func (j *Job) setState(s state) {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.state = s
}

type state int

const (
	stateScheduled state = iota
	stateRunning
	stateCanceled
)
