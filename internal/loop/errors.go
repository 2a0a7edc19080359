package loop

import "fmt"

// PanicError reports a panic raised by work passed to Await
type PanicError struct {
	Value any
}

// Error returns the error message
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in awaited work: %v", e.Value)
}
