package forest

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycleDetected matches a *CycleError.
	ErrCycleDetected = errors.New("parent cycle detected")
	// ErrDuplicateName matches a *DuplicateError.
	ErrDuplicateName = errors.New("duplicate record name")
	// ErrNotFound is returned by queries naming a record the forest does not hold.
	ErrNotFound = errors.New("record not found")
)

// CycleError reports records whose parent links loop back on themselves.
// Names lists the cycle members in parent-link order, starting with the
// member that comes first in the input.
type CycleError struct {
	Names []string
}

func (e *CycleError) Error() string {
	if len(e.Names) == 0 {
		return ErrCycleDetected.Error()
	}
	return fmt.Sprintf("%s: %s -> %s", ErrCycleDetected, strings.Join(e.Names, " -> "), e.Names[0])
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}

// DuplicateError reports two records sharing a name. First and Second are
// input positions.
type DuplicateError struct {
	Name   string
	First  int
	Second int
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q at positions %d and %d", ErrDuplicateName, e.Name, e.First, e.Second)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicateName
}
