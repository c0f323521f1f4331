package helper

import "fmt"

// NewError wraps an error with the operation that produced it.
// All packages use this for uniform "error in <operation>: <cause>" messages.
func NewError(operation string, err error) error {
	return fmt.Errorf("error in %s: %w", operation, err)
}
