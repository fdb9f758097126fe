// Package common defines the error codes shared by every layer of the
// security engine. Callers should use errors.Is to match these values.
package common

import "errors"

// ErrorCode is the closed set of results an engine operation can report.
// A nil error means ErrNone; every non-nil result carries one of the codes
// below, either directly or wrapped.
type ErrorCode uint8

const (
	ErrNone         ErrorCode = 0x00
	ErrInvalidUser  ErrorCode = 0x01
	ErrInvalidPass  ErrorCode = 0x02
	ErrUserExists   ErrorCode = 0x03
	ErrSystemFull   ErrorCode = 0x04
	ErrTimeout      ErrorCode = 0x05
	ErrSystemLocked ErrorCode = 0x06
	ErrNoPermission ErrorCode = 0x07
	ErrChecksum     ErrorCode = 0x08
)

var codeNames = [...]string{
	ErrNone:         "none",
	ErrInvalidUser:  "invalid user",
	ErrInvalidPass:  "invalid password",
	ErrUserExists:   "user exists",
	ErrSystemFull:   "system full",
	ErrTimeout:      "timeout",
	ErrSystemLocked: "system locked",
	ErrNoPermission: "no permission",
	ErrChecksum:     "checksum mismatch",
}

// Error implements the error interface.
func (c ErrorCode) Error() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "unknown error"
}

// Valid reports whether c is one of the defined codes.
func (c ErrorCode) Valid() bool {
	return int(c) < len(codeNames)
}

// CodeOf maps an error returned by the engine to its wire code.
//
// nil maps to ErrNone. Errors that carry no code (for example an I/O failure
// of the byte store) map to ErrChecksum: the persistent state can no longer
// be trusted for this session.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrNone
	}
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}
	return ErrChecksum
}
