package types

import "regexp"

// Compiled once at package initialization; participant IDs are validated
// on every registration and send.
var participantIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxBodyBytes bounds message body size at ingestion.
const MaxBodyBytes = 65536

// IsValidParticipantID checks if a participant ID meets format requirements.
func IsValidParticipantID(id string) bool {
	if len(id) < 1 || len(id) > 64 {
		return false
	}
	return participantIDRegex.MatchString(id)
}

// ValidateBody ensures a message body is non-empty and within bounds.
func ValidateBody(body string) error {
	if len(body) == 0 {
		return ErrEmptyBody
	}
	if len(body) > MaxBodyBytes {
		return ErrBodyTooLarge
	}
	return nil
}
