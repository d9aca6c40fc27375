package evloop

// TimeoutError reports that a scheduled deadline elapsed before the
// awaited condition was satisfied - a request timeout or an exhausted
// backend reconnect backoff. Its Cause/Unwrap shape follows the teacher
// repo's own error types (see the TypeError/RangeError family in the
// source eventloop package), trading their JS-error-name framing for
// this proxy's two actual timeout sources.
type TimeoutError struct {
	Cause   error
	Message string
}

func (e *TimeoutError) Error() string {
	if e.Message == "" {
		return "evloop: timed out"
	}
	return e.Message
}

func (e *TimeoutError) Unwrap() error { return e.Cause }
