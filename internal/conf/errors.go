package conf

import (
	"fmt"
	"strings"
)

// InvalidArgumentError is returned when a parameter key is neither a
// string nor a Name.
type InvalidArgumentError struct {
	Type string
}

// Error implements the error interface.
func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid parameter type %s", e.Type)
}

// UnknownParameterError is returned when a name has neither an explicit
// value nor a default.
type UnknownParameterError struct {
	Name Name
}

// Error implements the error interface.
func (e UnknownParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s", e.Name)
}

// UnknownBaseParameterError is returned when a reference default names a
// base parameter that has no default.
type UnknownBaseParameterError struct {
	Name Name
	Base Name
}

// Error implements the error interface.
func (e UnknownBaseParameterError) Error() string {
	return fmt.Sprintf("unknown base parameter %s for parameter %s", e.Base, e.Name)
}

// InvalidDefaultError is returned for a malformed reference default.
type InvalidDefaultError struct {
	Name  Name
	Value any
}

// Error implements the error interface.
func (e InvalidDefaultError) Error() string {
	return fmt.Sprintf("invalid default %#v for parameter %s", e.Value, e.Name)
}

// CyclicDefaultError is returned when reference defaults refer back to
// themselves. Chain lists the names visited, ending with the repeat.
type CyclicDefaultError struct {
	Chain []Name
}

// Error implements the error interface.
func (e CyclicDefaultError) Error() string {
	names := make([]string, len(e.Chain))
	for i, n := range e.Chain {
		names[i] = string(n)
	}
	return fmt.Sprintf("cyclic default: %s", strings.Join(names, " -> "))
}

// TypeMismatchError is returned when a parameter's value does not have
// the type the caller asked for.
type TypeMismatchError struct {
	Name  Name
	Want  string
	Value any
}

// Error implements the error interface.
func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("parameter %s: expected %s, got %T", e.Name, e.Want, e.Value)
}
