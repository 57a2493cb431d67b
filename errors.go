package swappable

import (
	"fmt"
)

// ConstructionError means T's constructor could not produce an instance.
// Op is the holder operation that attempted the construction (new, init, reload).
type ConstructionError struct {
	Name string
	Op   string
	Err  error
}

func (e ConstructionError) Error() string {
	return fmt.Sprintf("construct instance for %q during %s: %v", e.Name, e.Op, e.Err)
}

func (e ConstructionError) Unwrap() error {
	return e.Err
}

// DuplicateError means a singleton with the same name is already registered.
type DuplicateError struct {
	Name string
}

func (e DuplicateError) Error() string {
	return fmt.Sprintf("duplicate singleton: %q", e.Name)
}

// NotRegisteredError means looking up a name that was never registered.
type NotRegisteredError struct {
	Name string
}

func (e NotRegisteredError) Error() string {
	return fmt.Sprintf("singleton not registered: %q", e.Name)
}

// TypeMismatchError means Lookup[Opt, T] found a singleton of a different type.
type TypeMismatchError struct {
	Name     string
	Expected string
	Actual   string
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("singleton type mismatch for %q: expected=%s actual=%s",
		e.Name, e.Expected, e.Actual)
}
