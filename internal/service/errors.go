package service

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session closed")
	ErrInvalidToken    = errors.New("invalid or expired session token")
	ErrInvalidImage    = errors.New("image could not be decoded")
	ErrImageTooLarge   = errors.New("image exceeds upload limit")
	ErrStaleImport     = errors.New("grid changed while the image was decoding")
	ErrInvalidAction   = errors.New("invalid action data")
	ErrInternalServer  = errors.New("internal server error")
)
