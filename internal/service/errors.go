package service

import "errors"

type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindBadRequest
	KindNotFound
	KindProviderConfiguration
	KindProviderOperation
	KindNotImplemented
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad_request"
	case KindNotFound:
		return "not_found"
	case KindProviderConfiguration:
		return "provider_configuration"
	case KindProviderOperation:
		return "provider_operation"
	case KindNotImplemented:
		return "not_implemented"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Error is returned by the orchestration layer. Message is safe to show to
// the caller; Err, when set, is only logged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf reports the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

var (
	errUnauthorized     = newError(KindUnauthorized, "Unauthorized")
	errBookingNotFound  = newError(KindNotFound, "Booking not found")
	errNotBookingOwner  = newError(KindUnauthorized, "Unauthorized to access this booking")
	errIntentMismatch   = newError(KindBadRequest, "Payment intent does not match booking")
	errMissingIntentReq = newError(KindBadRequest, "Missing required fields: booking_id, amount")
	errMissingConfirm   = newError(KindBadRequest, "Missing required fields: payment_intent_id, booking_id")
	errInvalidAmount    = newError(KindBadRequest, "Amount must be greater than zero")
)
