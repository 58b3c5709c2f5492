package analytics

import "fmt"

// AggregationError marks a report generation that failed, as opposed to one
// that legitimately produced zeroes from empty data. It wraps the underlying
// cause: a failed historical query or an inconsistent snapshot.
type AggregationError struct {
	Report string
	Err    error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s report failed: %v", e.Report, e.Err)
}

func (e *AggregationError) Unwrap() error { return e.Err }

// NewError wraps err as a failed generation of the named report.
func NewError(report string, err error) *AggregationError {
	return &AggregationError{Report: report, Err: err}
}

func failf(report, format string, args ...interface{}) *AggregationError {
	return &AggregationError{Report: report, Err: fmt.Errorf(format, args...)}
}
