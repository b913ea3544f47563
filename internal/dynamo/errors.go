package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for layout operations.
var (
	// ErrDuplicateID indicates a node or link id already present in the simulation.
	ErrDuplicateID = errors.New("dynamo: duplicate id")

	// ErrUnknownNodeReference indicates a link endpoint that does not resolve to a node.
	ErrUnknownNodeReference = errors.New("dynamo: link references unknown node")

	// ErrInvalidConfig indicates a non-finite or out-of-range configuration value.
	ErrInvalidConfig = errors.New("dynamo: invalid config")

	// ErrNodeNotFound indicates an operation on a node id that does not exist.
	ErrNodeNotFound = errors.New("dynamo: node not found")

	// ErrLinkNotFound indicates an operation on a link id that does not exist.
	ErrLinkNotFound = errors.New("dynamo: link not found")

	// ErrNotInitialized indicates an operation that needs loaded data.
	ErrNotInitialized = errors.New("dynamo: simulation not initialized")
)

// MutationError wraps a rejected mutation with the operation and id involved.
type MutationError struct {
	Op      string
	ID      string
	Wrapped error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.ID, e.Wrapped)
}

func (e *MutationError) Unwrap() error {
	return e.Wrapped
}

// InvalidConfigError names the offending config field.
type InvalidConfigError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("%v: %s=%g %s", ErrInvalidConfig, e.Field, e.Value, e.Reason)
}

func (e *InvalidConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Rejected builds a MutationError for op on id.
func Rejected(op, id string, err error) error {
	return &MutationError{Op: op, ID: id, Wrapped: err}
}
