package treelstm

import "github.com/pkg/errors"

// Errors returned by the scorer. Callers check them with errors.Cause.
var (
	ErrConfiguration   = errors.New("invalid configuration")
	ErrInvalidParse    = errors.New("invalid parse")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrSerialization   = errors.New("invalid checkpoint")
	ErrInvalidUpdate   = errors.New("invalid update")
	ErrNoSentence      = errors.New("no sentence initialized")
)
