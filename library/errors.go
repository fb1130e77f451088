package library

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected business conditions. Callers match with
// errors.Is; messages are surfaced verbatim to the operator shell.
var (
	ErrInvalidPatron      = errors.New("invalid patron ID: must be exactly 6 digits")
	ErrBookNotFound       = errors.New("book not found")
	ErrUnavailable        = errors.New("this book is currently not available")
	ErrLimitReached       = errors.New("maximum borrowing limit of 5 books reached")
	ErrAlreadyBorrowed    = errors.New("this book is already borrowed by you")
	ErrNotBorrowed        = errors.New("this book was not borrowed by you or has already been returned")
	ErrNothingOwed        = errors.New("no late fees are owed for this book")
	ErrInvalidTransaction = errors.New("invalid transaction ID")
	ErrInvalidAmount      = errors.New("refund amount must be greater than 0 and at most 15.00")
	ErrGatewayUnavailable = errors.New("payment service is unavailable, please try again later")
	ErrDuplicateISBN      = errors.New("a book with this ISBN already exists")
	ErrDuplicateCard      = errors.New("a patron with this card number already exists")
	ErrBadCredentials     = errors.New("card number or password is incorrect")
)

// DeclinedError carries the gateway's reason text for a business decline.
// A transport failure is deliberately not a DeclinedError; it surfaces as
// ErrGatewayUnavailable without gateway-provided detail.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment failed: %s", e.Reason)
}

// RefundFailedError carries the gateway's reason for rejecting a refund.
type RefundFailedError struct {
	Reason string
}

func (e *RefundFailedError) Error() string {
	return fmt.Sprintf("refund failed: %s", e.Reason)
}

// ValidationError reports malformed caller input (title length, ISBN shape,
// non-positive copies). It never reaches the store or the gateway.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ErrorKind buckets errors into the four categories the operations expose.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindExternal
)

// Classify maps an operation error onto its kind. External errors may be
// transient in principle; this system performs no automatic retry.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidPatron),
		errors.Is(err, ErrInvalidTransaction),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrBadCredentials):
		return KindValidation
	case errors.Is(err, ErrBookNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, ErrLimitReached),
		errors.Is(err, ErrAlreadyBorrowed),
		errors.Is(err, ErrNotBorrowed),
		errors.Is(err, ErrNothingOwed),
		errors.Is(err, ErrDuplicateISBN),
		errors.Is(err, ErrDuplicateCard):
		return KindConflict
	case errors.Is(err, ErrGatewayUnavailable):
		return KindExternal
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	var de *DeclinedError
	if errors.As(err, &de) {
		return KindExternal
	}
	var re *RefundFailedError
	if errors.As(err, &re) {
		return KindExternal
	}
	return KindExternal
}
