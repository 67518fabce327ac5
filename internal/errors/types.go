// Package errors defines the structured error kinds used across the deck
// tool. Every failure that crosses a package boundary is a *DeckError so the
// command layer and the watch loop can decide, by kind, whether the failure
// is fatal (configuration, bind) or survivable (a single broken build).
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig    ErrorType = "config"
	ErrorTypeIO        ErrorType = "io"
	ErrorTypeParse     ErrorType = "parse"
	ErrorTypeRender    ErrorType = "render"
	ErrorTypeBuild     ErrorType = "build"
	ErrorTypeWatch     ErrorType = "watch"
	ErrorTypeNetwork   ErrorType = "network"
	ErrorTypeBroadcast ErrorType = "broadcast"
	ErrorTypeDeploy    ErrorType = "deploy"
)

// Common error codes.
const (
	ErrCodeConfigInvalid  = "ERR_CONFIG_INVALID"
	ErrCodeConfigRead     = "ERR_CONFIG_READ"
	ErrCodeConfigMissing  = "ERR_CONFIG_MISSING_KEY"
	ErrCodeCopyFailed     = "ERR_COPY_FAILED"
	ErrCodeReadFailed     = "ERR_READ_FAILED"
	ErrCodeWriteFailed    = "ERR_WRITE_FAILED"
	ErrCodeInvalidUTF8    = "ERR_INVALID_UTF8"
	ErrCodeTemplateLoad   = "ERR_TEMPLATE_LOAD"
	ErrCodeTemplateRender = "ERR_TEMPLATE_RENDER"
	ErrCodeFragmentRender = "ERR_FRAGMENT_RENDER"
	ErrCodeIndexRender    = "ERR_INDEX_RENDER"
	ErrCodeWatchSetup     = "ERR_WATCH_SETUP"
	ErrCodeWatchEvent     = "ERR_WATCH_EVENT"
	ErrCodeBind           = "ERR_BIND"
	ErrCodeDeployFailed   = "ERR_DEPLOY_FAILED"
	ErrCodeDeployTarget   = "ERR_DEPLOY_TARGET"
)

// DeckError is a structured error type with context.
type DeckError struct {
	Type    ErrorType
	Code    string
	Message string
	Path    string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *DeckError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *DeckError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison on type and code.
func (e *DeckError) Is(target error) bool {
	var t *DeckError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithPath attaches the filesystem path the error concerns.
func (e *DeckError) WithPath(path string) *DeckError {
	e.Path = path

	return e
}

// WithContext adds context information to the error.
func (e *DeckError) WithContext(key string, value interface{}) *DeckError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

func newError(kind ErrorType, code, message string, cause error) *DeckError {
	return &DeckError{
		Type:    kind,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string, cause error) *DeckError {
	return newError(ErrorTypeConfig, code, message, cause)
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *DeckError {
	return newError(ErrorTypeIO, code, message, cause)
}

// NewParseError creates a markup parse error.
func NewParseError(code, message string, cause error) *DeckError {
	return newError(ErrorTypeParse, code, message, cause)
}

// NewRenderError creates a template or fragment render error.
func NewRenderError(code, message string, cause error) *DeckError {
	return newError(ErrorTypeRender, code, message, cause)
}

// NewBuildError creates a build error. The cause is usually a render or
// parse error.
func NewBuildError(code, message string, cause error) *DeckError {
	return newError(ErrorTypeBuild, code, message, cause)
}

// NewWatchError creates a watcher error.
func NewWatchError(code, message string, cause error) *DeckError {
	return newError(ErrorTypeWatch, code, message, cause)
}

// NewNetworkError creates a network error.
func NewNetworkError(code, message string, cause error) *DeckError {
	return newError(ErrorTypeNetwork, code, message, cause)
}

// NewDeployError creates a deploy error.
func NewDeployError(code, message string, cause error) *DeckError {
	return newError(ErrorTypeDeploy, code, message, cause)
}

// IsType reports whether any error in err's chain is a DeckError of kind.
func IsType(err error, kind ErrorType) bool {
	for err != nil {
		var de *DeckError
		if !errors.As(err, &de) {
			return false
		}
		if de.Type == kind {
			return true
		}
		err = de.Cause
	}

	return false
}

// TypeOf returns the kind of the outermost DeckError in err's chain, or the
// empty string.
func TypeOf(err error) ErrorType {
	var de *DeckError
	if errors.As(err, &de) {
		return de.Type
	}

	return ""
}

// As finds the first error in err's chain that matches target; see errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is reports whether any error in err's chain matches target; see errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
