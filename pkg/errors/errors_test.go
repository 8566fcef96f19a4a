package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, ErrorTypeIO, "failed to write sidecar")

	require.NotNil(t, err)
	assert.Equal(t, ErrorTypeIO, err.Type)
	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "io: failed to write sidecar: disk full", err.Error())
	assert.NotEmpty(t, err.Stack)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeIO, "nothing"))
}

func TestWrapContextErrorsBecomeCanceled(t *testing.T) {
	err := Wrap(context.Canceled, ErrorTypeIO, "read aborted")
	assert.Equal(t, ErrorTypeCanceled, err.Type)

	err = Wrap(fmt.Errorf("flush: %w", context.DeadlineExceeded), ErrorTypeInternal, "flush aborted")
	assert.Equal(t, ErrorTypeCanceled, err.Type)
}

func TestWrapKeepsExistingStack(t *testing.T) {
	inner := New(ErrorTypeMalformedInput, "no header")
	outer := Wrap(inner, ErrorTypeMalformedInput, "preamble")
	assert.Equal(t, inner.Stack, outer.Stack)
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ""},
		{"structured", New(ErrorTypeConfig, "bad"), ErrorTypeConfig},
		{"wrapped structured", fmt.Errorf("ctx: %w", New(ErrorTypeIO, "x")), ErrorTypeIO},
		{"schema violation", NewSchemaViolation(3, 2, 3), ErrorTypeSchemaViolation},
		{"wrapped schema violation", fmt.Errorf("batch: %w", NewSchemaViolation(3, 2, 3)), ErrorTypeSchemaViolation},
		{"canceled", context.Canceled, ErrorTypeCanceled},
		{"plain", stderrors.New("boom"), ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.err))
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 2, ExitCode(New(ErrorTypeInvalidInput, "x")))
	assert.Equal(t, 2, ExitCode(New(ErrorTypeConfig, "x")))
	assert.Equal(t, 3, ExitCode(New(ErrorTypeMalformedInput, "x")))
	assert.Equal(t, 4, ExitCode(NewSchemaViolation(1, 1, 2)))
	assert.Equal(t, 5, ExitCode(New(ErrorTypeIO, "x")))
	assert.Equal(t, 130, ExitCode(context.Canceled))
	assert.Equal(t, 1, ExitCode(stderrors.New("x")))
}

func TestSchemaViolationMessage(t *testing.T) {
	err := NewSchemaViolation(5, 2, 3)
	assert.Equal(t, "schema_violation: line 5 has 2 fields, header declares 3 columns", err.Error())
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeIO, "x").WithDetail("path", "/tmp/a").WithDetail("line", 4)
	assert.Equal(t, "/tmp/a", err.Details["path"])
	assert.Equal(t, 4, err.Details["line"])
}
