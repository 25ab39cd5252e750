package types

import "errors"

var (
	ErrInvalidParticipantID = errors.New("participant ID must be 1-64 characters, alphanumeric + underscore/hyphen only")
	ErrEmptyBody            = errors.New("message body cannot be empty")
	ErrBodyTooLarge         = errors.New("message body exceeds 64KB limit")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)
