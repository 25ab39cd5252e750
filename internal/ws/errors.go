package ws

import "errors"

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrRegisterExpected = errors.New("first frame must be register")
)
