package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrCannotDecode is wrapped by every DecodeError.
	ErrCannotDecode = errors.New("cannot decode type")

	// ErrCannotEncode is wrapped by every EncodeError.
	ErrCannotEncode = errors.New("cannot encode type")
)

// DecodeError reports a raw value that no decode path accepts.
type DecodeError struct {
	// Path locates the value, e.g. $.items[2].
	Path string
	// Type is the kind of the type being decoded.
	Type    string
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: cannot decode %s: %s", e.Path, e.Type, e.Message)
}

func (e *DecodeError) Unwrap() error { return ErrCannotDecode }

// EncodeError reports a value that no encode path accepts.
type EncodeError struct {
	Path    string
	Type    string
	Message string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%s: cannot encode %s: %s", e.Path, e.Type, e.Message)
}

func (e *EncodeError) Unwrap() error { return ErrCannotEncode }
