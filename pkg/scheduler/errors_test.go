package scheduler

import (
	"errors"
	"fmt"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestTaskError_Is(t *testing.T) {
	err1 := &TaskError{Run: 3, Err: errors.New("err1")}
	assert.ErrorIs(t, err1, ErrFailed)
	assert.Equal(t, "run 3: task failed: err1", err1.Error())

	err2 := &TaskError{Run: 1}
	assert.ErrorIs(t, err2, ErrFailed)
	assert.Equal(t, "run 1: task failed", err2.Error())
	assert.NotErrorIs(t, err2, ErrCanceled)
}

func TestTaskError_Unwrap(t *testing.T) {
	cause := errors.New("fetch: timeout")
	err := fmt.Errorf("cycle: %w", &TaskError{Run: 2, Err: cause})
	assert.ErrorIs(t, err, ErrFailed)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cycle: run 2: task failed: fetch: timeout", err.Error())

	var target *TaskError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, 2, target.Run)
	assert.Equal(t, cause, errors.Unwrap(target))
}
