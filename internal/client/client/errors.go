package client

import "errors"

var (
	ErrUnavailable = errors.New("remote unavailable")
	ErrBadRecord   = errors.New("malformed remote record")
)
