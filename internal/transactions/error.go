package transactions

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrDecode indicates malformed input: bad hex, a malformed tree,
	// witness or transaction encoding, or a bad key encoding.
	ErrDecode ErrorCode = iota

	// ErrTreeFull indicates that the commitment tree cannot take another
	// commitment.
	ErrTreeFull

	// ErrMissingPath indicates that a witness does not resolve to an
	// authentication path, usually because its tree is empty.
	ErrMissingPath

	// ErrInsufficientBalance indicates that the candidate notes do not
	// cover the amount plus the fee.
	ErrInsufficientBalance

	// ErrBadAddress indicates a destination or change address that does
	// not decode for the active network.
	ErrBadAddress

	// ErrProving indicates that building or proving the transaction
	// failed.
	ErrProving
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDecode:              "ErrDecode",
	ErrTreeFull:            "ErrTreeFull",
	ErrMissingPath:         "ErrMissingPath",
	ErrInsufficientBalance: "ErrInsufficientBalance",
	ErrBadAddress:          "ErrBadAddress",
	ErrProving:             "ErrProving",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for the failures of the wallet operations.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error.
func (e Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error given a set of arguments.
func NewError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether err is an Error with a matching error code.
func IsError(err error, code ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode == code
}
