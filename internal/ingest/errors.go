package ingest

import "errors"

var (
	ErrNotAMember = errors.New("sender is not a member of the conversation")
)
