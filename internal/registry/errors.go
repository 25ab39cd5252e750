package registry

import "errors"

// Registry misuse is treated as a caller bug or a stale-connection race:
// callers log these and continue rather than crashing the router.
var (
	ErrDuplicateSession     = errors.New("connection already has a registered session")
	ErrUnknownSession       = errors.New("unknown session")
	ErrInvalidParticipantID = errors.New("invalid participant ID")
	ErrNilSink              = errors.New("event sink cannot be nil")
)
