package scheduler

import (
	"errors"
	"strconv"
)

var (
	ErrCanceled = errors.New("job canceled")
	ErrFailed   = errors.New("task failed")
)

// TaskError reports the failure of one run of a task.
type TaskError struct {
	Run int
	Err error
}

func (e *TaskError) Error() string {
	msg := "run " + strconv.Itoa(e.Run) + ": " + ErrFailed.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TaskError) Is(err error) bool {
	return err == ErrFailed
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
