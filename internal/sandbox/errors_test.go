package sandbox

import (
	"errors"
	"fmt"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "with path",
			err:      newError(CodeNotFound, "delete", "/dataset/sb", "no such sandbox", nil),
			expected: "delete /dataset/sb: no such sandbox",
		},
		{
			name:     "without path",
			err:      newError(CodeTimeout, "verify", "", "cluster did not respond after retries", nil),
			expected: "verify: cluster did not respond after retries",
		},
		{
			name:     "with cause",
			err:      newError(CodeInvalidSchema, "create", "/dataset/t", "cannot derive sandbox schema", errors.New("reserved family")),
			expected: "create /dataset/t: cannot derive sandbox schema: reserved family",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestError_ErrdefsClasses(t *testing.T) {
	tests := []struct {
		code  Code
		check func(error) bool
	}{
		{CodeNotFound, errdefs.IsNotFound},
		{CodeAlreadyExists, errdefs.IsAlreadyExists},
		{CodeConflict, errdefs.IsConflict},
		{CodeInvalidSchema, errdefs.IsFailedPrecondition},
		{CodeUnresolvedPath, errdefs.IsInvalidArgument},
		{CodeInvalidArgument, errdefs.IsInvalidArgument},
		{CodeTimeout, errdefs.IsDeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", newError(tt.code, "op", "/p", "msg", nil))
			assert.True(t, tt.check(err))
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestError_IsHelpers(t *testing.T) {
	err := newError(CodeConflict, "create", "/p", "busy", nil)

	assert.True(t, IsConflict(err))
	assert.False(t, IsNotFound(err))
	assert.False(t, IsAlreadyExists(err))
	assert.False(t, IsInvalidSchema(err))
	assert.False(t, IsUnresolvedPath(err))
	assert.False(t, IsTimeout(err))
	assert.False(t, IsInvalidArgument(err))
	assert.False(t, IsConflict(errors.New("plain")))
	assert.False(t, IsConflict(nil))
}

func TestError_UnwrapReachesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := newError(CodeTimeout, "create", "/p", "gave up", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, errdefs.ErrDeadlineExceeded)
}

func TestCodeOf_JoinedErrorReportsPrimary(t *testing.T) {
	primary := newError(CodeTimeout, "create", "/p", "gave up", nil)
	err := errors.Join(primary, errors.New("rollback: drop table failed"))

	assert.Equal(t, CodeTimeout, CodeOf(err))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
