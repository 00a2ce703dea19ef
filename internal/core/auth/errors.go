package auth

import "errors"

// Signature verification errors.
// Callers map all of them to 401; they differ only in what gets logged.
var (
	ErrMissingSignature = errors.New("request signature required")
	ErrInvalidFormat    = errors.New("invalid signature header format")
	ErrUnknownKey       = errors.New("unknown key id")
	ErrInvalidSignature = errors.New("invalid request signature")
	ErrStaleTimestamp   = errors.New("request timestamp outside tolerance")
)
