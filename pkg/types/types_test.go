package types

import (
	"strings"
	"testing"
)

func TestIsValidParticipantID(t *testing.T) {
	testCases := []struct {
		name     string
		id       string
		expected bool
	}{
		{"simple", "u1", true},
		{"with underscore", "user_one", true},
		{"with hyphen", "user-one", true},
		{"mixed case", "UserOne42", true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", 65), false},
		{"max length", strings.Repeat("a", 64), true},
		{"spaces", "user one", false},
		{"colon", "user:one", false},
		{"unicode", "usér", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidParticipantID(tc.id); got != tc.expected {
				t.Errorf("IsValidParticipantID(%q) = %v, want %v", tc.id, got, tc.expected)
			}
		})
	}
}

func TestValidateBody(t *testing.T) {
	if err := ValidateBody("hi"); err != nil {
		t.Errorf("expected valid body, got %v", err)
	}

	if err := ValidateBody(""); err != ErrEmptyBody {
		t.Errorf("expected ErrEmptyBody, got %v", err)
	}

	if err := ValidateBody(strings.Repeat("x", MaxBodyBytes)); err != nil {
		t.Errorf("body at limit should be valid, got %v", err)
	}

	if err := ValidateBody(strings.Repeat("x", MaxBodyBytes+1)); err != ErrBodyTooLarge {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestConversationHasParticipant(t *testing.T) {
	conversation := &Conversation{ParticipantIDs: []string{"u1", "u2"}}

	if !conversation.HasParticipant("u1") {
		t.Error("expected u1 to be a participant")
	}
	if conversation.HasParticipant("u3") {
		t.Error("u3 should not be a participant")
	}
}
