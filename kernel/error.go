package kernel

// Error describes a kernel error. All kernel errors must be defined as global
// variables that are pointers to the Error structure. This requirement stems
// from the fact that the Go allocator is not available to us so we cannot use
// errors.New.
//
// Errors that are raised on behalf of a lower-level failure record it in
// Cause. Since the wrapping error is itself a global, setting Cause
// overwrites the cause of any previous report of the same error.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string

	// Cause optionally points to the error that triggered this one.
	Cause *Error
}

// Error implements the error interface. When a Cause is attached its message
// is appended; this allocates and must only be used once the Go runtime is up.
func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}

	return e.Message + ": " + e.Cause.Error()
}

// Unwrap returns the error that caused e (if any) so that errors.Is can
// match wrapped kernel errors.
func (e *Error) Unwrap() error {
	if e.Cause == nil {
		return nil
	}

	return e.Cause
}
