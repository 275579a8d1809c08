package mainvolume

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when StepCount is set to 0, to a value
	// above the configured maximum or to something that is not a number.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfRange is returned when CurrentStep would leave [0, StepCount).
	ErrOutOfRange = errors.New("step out of range")

	ErrUnknownProperty  = errors.New("unknown property")
	ErrReadOnlyProperty = errors.New("read-only property")

	// ErrRateLimited is returned when StepCount is written faster than the
	// service accepts.
	ErrRateLimited = errors.New("too many step count changes")
)

// PropertyError describes a rejected get or set on a property.
type PropertyError struct {
	Op       string
	Property string
	Value    any
	Err      error
}

func (e *PropertyError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Property, e.Err)
	}
	return fmt.Sprintf("%s %s=%v: %v", e.Op, e.Property, e.Value, e.Err)
}

func (e *PropertyError) Unwrap() error {
	return e.Err
}

func propertyError(op, property string, value any, err error) error {
	return &PropertyError{Op: op, Property: property, Value: value, Err: err}
}
