package guard

import "fmt"

// ReleaseError is returned when the work succeeded but the lock could not be released.
// The lock stays in the store until its ttl runs out.
type ReleaseError struct {
	Resource string
	Err      error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("failed to release lock for %q: %v", e.Resource, e.Err)
}

func (e *ReleaseError) Unwrap() error {
	return e.Err
}
