package correlation

import "errors"

var (
	ErrTokenNotFound = errors.New("handshake token not found or already used")
	ErrTimeout       = errors.New("handshake was not resolved in time")
)
