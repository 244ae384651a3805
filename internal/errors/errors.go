package errors

import (
	"errors"
	"fmt"
)

// ValidationError represents an error when user input fails validation
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// NotFoundError represents an error when a record does not exist
type NotFoundError struct {
	Kind string
	Key  string
}

// Error returns the error message
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// ConflictError represents an error when an operation collides with existing
// state: a duplicate profile, an already linked token, a status already set
type ConflictError struct {
	Kind    string
	Key     string
	Message string
}

// Error returns the error message
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict for %s: %s", e.Kind, e.Key, e.Message)
}

// ExternalToolError represents a failed invocation of the peer management tool
type ExternalToolError struct {
	Operation string
	PeerID    string
	Output    string
	Err       error
}

// Error returns the error message
func (e *ExternalToolError) Error() string {
	return fmt.Sprintf("peer tool %s failed for %s: %v (output: %s)", e.Operation, e.PeerID, e.Err, e.Output)
}

// Unwrap returns the underlying error
func (e *ExternalToolError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsConflict reports whether err is a ConflictError
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsExternalTool reports whether err is an ExternalToolError
func IsExternalTool(err error) bool {
	var ete *ExternalToolError
	return errors.As(err, &ete)
}
