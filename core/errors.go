package core

import "errors"

// Error kinds surfaced across the HTTP, escrow, and registry layers. Callers
// should compare with errors.Is; handlers map these to HTTP status codes
// (see server/errors.go).
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrDepositUnverified  = errors.New("deposit unverified")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrUpstreamFailure    = errors.New("upstream failure")
	ErrInternal           = errors.New("internal error")
)

// Codec-specific argument errors. All wrap ErrInvalidArgument so callers can
// use errors.Is(err, ErrInvalidArgument) without caring which one fired.
var (
	ErrInvalidType              = wrapArg("invalid type")
	ErrInvalidBackground        = wrapArg("invalid background")
	ErrUnknownAttribute         = wrapArg("unknown attribute")
	ErrAttributeIndexOutOfRange = wrapArg("attribute index out of range")
	ErrCountMismatch            = wrapArg("attribute count mismatch")
	ErrInvalidLength            = wrapArg("invalid payload length")
	ErrInvalidTypeIndex         = wrapArg("invalid type index")
	ErrInvalidBackgroundIndex   = wrapArg("invalid background index")
)

func wrapArg(msg string) error { return &argError{msg: msg} }

type argError struct{ msg string }

func (e *argError) Error() string { return e.msg }
func (e *argError) Unwrap() error { return ErrInvalidArgument }
