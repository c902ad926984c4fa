// Package results defines the operation result envelope returned by
// application services. A service either succeeds with a typed payload or
// fails with a typed failure payload; transport-level errors travel on the
// normal error return instead.
package results

// OperationResult carries exactly one of Success or Failure. Both nil means
// the operation had nothing to report.
type OperationResult struct {
	Success any
	Failure any
}

// SuccessResult wraps a success payload.
func SuccessResult(payload any) OperationResult {
	return OperationResult{Success: payload}
}

// FailureResult wraps a failure payload.
func FailureResult(payload any) OperationResult {
	return OperationResult{Failure: payload}
}
