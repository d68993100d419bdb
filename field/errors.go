package field

import "errors"

// Error kinds surfaced by field managers, per the engine's error
// taxonomy. Typed accessors (AsTyped, TryGetVarying/TryGetUniform)
// signal a missing or mismatched field by returning an invalid span,
// not one of these errors — these are for the add/remove boundary
// where a caller-visible failure is appropriate.
var (
	// ErrInvalidIdentifier is returned when a field name is not a
	// valid identifier ([A-Za-z][A-Za-z0-9_]*).
	ErrInvalidIdentifier = errors.New("field: invalid identifier")

	// ErrFieldOfDifferentType is returned when adding a field whose
	// name already exists with a different TensorType.
	ErrFieldOfDifferentType = errors.New("field: field of different type already exists")

	// ErrFieldDoesNotExist names the missing-field error kind. No
	// function in this package returns it: the TryGet lookups report a
	// missing field with ok == false.
	ErrFieldDoesNotExist = errors.New("field: field does not exist")
)
