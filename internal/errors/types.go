// Package errors defines the error taxonomy shared by every build task.
//
// Compile errors come from the style compiler or script bundler and are
// recoverable: they are reported to the user and the task still ends.
// I/O, render, config, and internal errors fail the task that produced them
// and, through it, the enclosing series or parallel composite.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeCompile  ErrorType = "compile"
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeRender   ErrorType = "render"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeInternal ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeStyleCompile   = "ERR_STYLE_COMPILE"
	ErrCodeScriptBundle   = "ERR_SCRIPT_BUNDLE"
	ErrCodeFileNotFound   = "ERR_FILE_NOT_FOUND"
	ErrCodeWriteFailed    = "ERR_WRITE_FAILED"
	ErrCodeCleanFailed    = "ERR_CLEAN_FAILED"
	ErrCodeImageOptimize  = "ERR_IMAGE_OPTIMIZE"
	ErrCodeRenderFailed   = "ERR_RENDER_FAILED"
	ErrCodeConfigInvalid  = "ERR_CONFIG_INVALID"
	ErrCodeToolMissing    = "ERR_TOOL_MISSING"
	ErrCodeTaskPanic      = "ERR_TASK_PANIC"
	ErrCodeUnknownTask    = "ERR_UNKNOWN_TASK"
	ErrCodeServerState    = "ERR_SERVER_STATE"
	ErrCodeInternalError  = "ERR_INTERNAL"
)

// BuildError is a structured error with location context.
type BuildError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	FilePath    string
	Line        int
	Column      int
	Recoverable bool
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// Is matches another BuildError with the same type and code.
func (e *BuildError) Is(target error) bool {
	var t *BuildError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithLocation adds file location information.
func (e *BuildError) WithLocation(filePath string, line, column int) *BuildError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// NewCompileError creates a recoverable style or script compile error.
func NewCompileError(code, message string, cause error) *BuildError {
	return &BuildError{
		Type:        ErrorTypeCompile,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeIO,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewRenderError creates a style-guide render error.
func NewRenderError(code, message string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeRender,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *BuildError {
	return &BuildError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *BuildError {
	return &BuildError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Recoverable
	}

	return false
}

// IsCompileError checks if an error came from a compiler or bundler.
func IsCompileError(err error) bool {
	return hasType(err, ErrorTypeCompile)
}

// IsIOError checks if an error is an I/O failure.
func IsIOError(err error) bool {
	return hasType(err, ErrorTypeIO)
}

// IsRenderError checks if an error came from the style-guide renderer.
func IsRenderError(err error) bool {
	return hasType(err, ErrorTypeRender)
}

func hasType(err error, t ErrorType) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Type == t
	}

	return false
}

// ErrFileNotFound creates a missing input error.
func ErrFileNotFound(path string, cause error) *BuildError {
	return NewIOError(ErrCodeFileNotFound, "file not found", cause).WithLocation(path, 0, 0)
}

// ErrWriteFailed creates an output write error.
func ErrWriteFailed(path string, cause error) *BuildError {
	return NewIOError(ErrCodeWriteFailed, "failed to write output", cause).WithLocation(path, 0, 0)
}

// ErrUnknownTask creates an error for a task name the orchestrator does not expose.
func ErrUnknownTask(name string) *BuildError {
	return NewConfigError(ErrCodeUnknownTask, "unknown task: "+name)
}
