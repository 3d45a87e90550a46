// Classification helpers map taxonomy errors to the fields a terminal
// FAILURE status carries (kind, node_id, stage) and to retry decisions at
// the submission boundary.
package errors

import "errors"

// NodeID extracts the failing node id from a taxonomy error, or "" if the
// error is not attributable to a single node.
func NodeID(err error) string {
	var pe *ParameterError
	if errors.As(err, &pe) {
		return pe.NodeID
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.NodeID
	}
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.NodeID
	}
	return ""
}

// Kind returns the taxonomy name for an error, used as the "kind" field of a
// terminal FAILURE status.
func Kind(err error) string {
	switch {
	case IsParameterError(err):
		return "ParameterError"
	case IsValidationError(err):
		return "ValidationError"
	case IsExecutionError(err):
		return "ExecutionError"
	case IsResourceError(err):
		return "ResourceError"
	default:
		return "InternalError"
	}
}

// ErrorStage maps a taxonomy error to the interpreter stage it belongs to.
func ErrorStage(err error) Stage {
	switch {
	case IsParameterError(err):
		return StageParameters
	case IsValidationError(err):
		return StageValidation
	default:
		return StageExecution
	}
}

// IsRetryable reports whether retrying the operation could help. Only
// infrastructure failures qualify; graph errors are deterministic.
func IsRetryable(err error) bool {
	return IsResourceError(err)
}
