package helper

import "fmt"

// NewError wraps err with the operation that failed.
// It returns nil if err is nil so it can be used on any return path.
func NewError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", operation, err)
}
