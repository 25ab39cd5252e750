package store

import "errors"

var (
	ErrStoreClosed        = errors.New("store is closed")
	ErrTooFewParticipants = errors.New("conversation requires at least two participants")
)
