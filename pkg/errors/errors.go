// Package errors provides standardized error handling for the nodeflow system.
// It implements the structured error taxonomy used by the graph interpreter
// (parameter, validation, execution, resource) with proper wrapping and
// classification following Go 1.20+ error handling practices.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common error conditions
var (
	// Task-related errors
	ErrTaskNotFound   = errors.New("task not found")
	ErrTaskNotRunning = errors.New("task is not running")
	ErrQueueFull      = errors.New("task queue is full")

	// Graph-related errors
	ErrInvalidGraph    = errors.New("invalid graph")
	ErrUnknownNodeType = errors.New("unknown node type")

	// System-related errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrPlaneClosed   = errors.New("status plane is closed")
)

// Stage identifies which interpreter stage produced an error.
type Stage string

const (
	StageParameters Stage = "parameters"
	StageValidation Stage = "validation"
	StageExecution  Stage = "execution"
)

// ParameterError reports a missing or illegal node parameter. It is raised
// during node construction (stage 1); the interpreter collects every
// ParameterError before aborting so the caller gets full diagnostics.
type ParameterError struct {
	NodeID string
	Key    string
	Msg    string
}

func (e *ParameterError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("node %s: parameter %q: %s", e.NodeID, e.Key, e.Msg)
	}
	return fmt.Sprintf("node %s: %s", e.NodeID, e.Msg)
}

// NewParameterError builds a ParameterError for a node's parameter.
func NewParameterError(nodeID, key, msg string) *ParameterError {
	return &ParameterError{NodeID: nodeID, Key: key, Msg: msg}
}

// ParameterErrors aggregates all stage-1 failures across a graph.
type ParameterErrors struct {
	Errors []*ParameterError
}

func (e *ParameterErrors) Error() string {
	if len(e.Errors) == 0 {
		return "parameter validation failed"
	}
	parts := make([]string, 0, len(e.Errors))
	for _, pe := range e.Errors {
		parts = append(parts, pe.Error())
	}
	return fmt.Sprintf("parameter validation failed:\n- %s", strings.Join(parts, "\n- "))
}

// ValidationError reports a stage-2 failure: a port schema outside its
// pattern, a required column absent, a result column collision, or a
// malformed loop pair.
type ValidationError struct {
	NodeID    string
	ErrInputs []string // input port names that failed, when known
	Msg       string
}

func (e *ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("validation: %s", e.Msg)
	}
	if len(e.ErrInputs) > 0 {
		return fmt.Sprintf("node %s: inputs %v: %s", e.NodeID, e.ErrInputs, e.Msg)
	}
	return fmt.Sprintf("node %s: %s", e.NodeID, e.Msg)
}

// NewValidationError builds a ValidationError for a node.
func NewValidationError(nodeID, msg string, errInputs ...string) *ValidationError {
	return &ValidationError{NodeID: nodeID, ErrInputs: errInputs, Msg: msg}
}

// ExecutionError reports a stage-3 runtime failure such as divide-by-zero or
// an output that drifted from its inferred schema.
type ExecutionError struct {
	NodeID string
	Msg    string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Msg, e.Err)
	}
	return fmt.Sprintf("node %s: %s", e.NodeID, e.Msg)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// NewExecutionError builds an ExecutionError for a node.
func NewExecutionError(nodeID, msg string) *ExecutionError {
	return &ExecutionError{NodeID: nodeID, Msg: msg}
}

// WrapExecutionError attaches a node id and message to an underlying error.
func WrapExecutionError(nodeID, msg string, err error) *ExecutionError {
	return &ExecutionError{NodeID: nodeID, Msg: msg, Err: err}
}

// ResourceError reports a transient infrastructure failure (queue
// unavailable, status plane write failure). Retryable at the submission
// boundary.
type ResourceError struct {
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource failure: %s: %v", e.Op, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError wraps an infrastructure error with the failing operation.
func NewResourceError(op string, err error) *ResourceError {
	return &ResourceError{Op: op, Err: err}
}

// Type check helpers

func IsParameterError(err error) bool {
	var pe *ParameterError
	var pes *ParameterErrors
	return errors.As(err, &pe) || errors.As(err, &pes)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}

func IsResourceError(err error) bool {
	var re *ResourceError
	return errors.As(err, &re)
}

// JoinErrors combines multiple errors into a single error
func JoinErrors(errs ...error) error {
	return errors.Join(errs...)
}

// Wrap adds context to an error while preserving the original error
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error while preserving the original error
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New creates a new error with the given message
func New(message string) error {
	return errors.New(message)
}
