package resolver

import "errors"

var (
	ErrInvalidPair = errors.New("one-to-one conversation requires two distinct participants")
)
