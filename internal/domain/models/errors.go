package models

import "fmt"

// Reason is a machine-distinguishable failure tag. Tests and clients assert
// on the tag, not on the HTTP status it maps to.
type Reason string

const (
	ReasonMissingField       Reason = "ERR_MISSING_FIELD"
	ReasonShape              Reason = "ERR_SHAPE"
	ReasonBatchSize          Reason = "ERR_BATCH_SIZE"
	ReasonFeatureCount       Reason = "ERR_FEATURE_COUNT"
	ReasonNonFinite          Reason = "ERR_NON_FINITE"
	ReasonServiceUnavailable Reason = "ERR_SERVICE_UNAVAILABLE"
	ReasonComputation        Reason = "ERR_COMPUTATION"
)

// RequestError carries a tagged failure reason through the serving core.
type RequestError struct {
	Reason  Reason
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsValidation reports whether the error is a client-fault validation
// failure, as opposed to a service or computation failure.
func (e *RequestError) IsValidation() bool {
	switch e.Reason {
	case ReasonMissingField, ReasonShape, ReasonBatchSize, ReasonFeatureCount, ReasonNonFinite:
		return true
	}
	return false
}

// NewRequestError builds a tagged request error.
func NewRequestError(reason Reason, format string, a ...interface{}) *RequestError {
	return &RequestError{Reason: reason, Message: fmt.Sprintf(format, a...)}
}

// ComputationError wraps an unexpected numeric failure. The whole batch
// fails atomically; partial results are never returned.
func ComputationError(err error, op string) *RequestError {
	return &RequestError{Reason: ReasonComputation, Message: op + " failed", Err: err}
}

// UnavailableError is returned for every request while the model artifacts
// are not loaded. It is distinct from per-request computation failures.
func UnavailableError() *RequestError {
	return &RequestError{Reason: ReasonServiceUnavailable, Message: "model or scaler not loaded"}
}
