package pricing

import "fmt"

// ValidationError reports malformed or out-of-range numeric input. It is
// returned before any state is touched; callers surface it to the user.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Msg)
}
