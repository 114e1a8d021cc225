package schema

import "fmt"

// Error codes for structured error reporting.
const (
	ErrCodeMalformedInput      = "MALFORMED_INPUT"
	ErrCodeDanglingReference   = "DANGLING_REFERENCE"
	ErrCodeStructuralViolation = "STRUCTURAL_VIOLATION"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeExecution           = "EXECUTION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeStore               = "STORE_ERROR"
)

// FlowportError is the structured error type for all flowport operations.
// Anything representable as data (classification gaps, mapping gaps, cycle
// warnings) is never raised as a FlowportError; only structurally impossible
// input aborts a single-document pipeline.
type FlowportError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	NodeID  string         `json:"node_id,omitempty"`
	EdgeID  string         `json:"edge_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *FlowportError) Error() string {
	switch {
	case e.NodeID != "":
		return fmt.Sprintf("[%s] node %s: %s", e.Code, e.NodeID, e.Message)
	case e.EdgeID != "":
		return fmt.Sprintf("[%s] edge %s: %s", e.Code, e.EdgeID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *FlowportError) Unwrap() error {
	return e.Cause
}

// NewError creates a new FlowportError.
func NewError(code, message string) *FlowportError {
	return &FlowportError{Code: code, Message: message}
}

// NewErrorf creates a new FlowportError with a formatted message.
func NewErrorf(code, format string, args ...any) *FlowportError {
	return &FlowportError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithNode attaches a node ID to the error.
func (e *FlowportError) WithNode(nodeID string) *FlowportError {
	e.NodeID = nodeID
	return e
}

// WithEdge attaches an edge ID to the error.
func (e *FlowportError) WithEdge(edgeID string) *FlowportError {
	e.EdgeID = edgeID
	return e
}

// WithCause attaches an underlying cause.
func (e *FlowportError) WithCause(err error) *FlowportError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *FlowportError) WithDetails(details map[string]any) *FlowportError {
	e.Details = details
	return e
}
