package core

import "errors"

type ErrorKind string

const (
	KindNotFound  ErrorKind = "not_found"
	KindMalformed ErrorKind = "malformed"
	KindConflict  ErrorKind = "conflict"
	KindTransport ErrorKind = "transport"
)

// Error is a sentinel carrying a kind. Callers wrap it with fmt.Errorf and
// match it with errors.Is.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	ErrNoSessionsDirectory   = newError(KindNotFound, "sessions directory not found")
	ErrNoSessionFiles        = newError(KindNotFound, "no session files found")
	ErrNoRateLimitsFound     = newError(KindNotFound, "no rate limits found in session file")
	ErrNoUsageForAccount     = newError(KindNotFound, "no usage data found for account")
	ErrNoBindingsForAccount  = newError(KindNotFound, "no usage bindings found for account")
	ErrNoValidBoundFiles     = newError(KindNotFound, "no valid bound session files found")
	ErrNoCurrentAccount      = newError(KindNotFound, "no current account in auth state")
	ErrNoSessionMeta         = newError(KindNotFound, "no session_meta found")
	ErrMissingAccountID      = newError(KindNotFound, "missing account id")
	ErrUsageFileNotFound     = newError(KindNotFound, "usage source file not found")
	ErrMissingRateLimitData  = newError(KindNotFound, "missing primary/weekly rate_limit data")
	ErrMissingUsageFields    = newError(KindNotFound, "missing usage fields in rate_limit entry")
	ErrMissingResetTimestamp = newError(KindNotFound, "missing reset timestamp")

	ErrInvalidTimestamp = newError(KindMalformed, "invalid reset timestamp")
	ErrInvalidPercent   = newError(KindMalformed, "invalid used_percent in rate_limits")
	ErrInvalidLimit     = newError(KindMalformed, "invalid limit value")

	ErrSessionAlreadyBoundElsewhere = newError(KindConflict, "session file already bound to another account")

	ErrTransport = newError(KindTransport, "usage request failed")
)

// KindOf returns the kind of the first core.Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
