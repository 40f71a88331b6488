package message

import "errors"

var (
	ErrTooSmall                     = errors.New("too small bytes buffer")
	ErrInvalidOptionHeaderExt       = errors.New("invalid option header ext")
	ErrInvalidTokenLen              = errors.New("invalid token length")
	ErrInvalidValueLength           = errors.New("invalid value length")
	ErrOptionTruncated              = errors.New("option truncated")
	ErrOptionUnexpectedExtendMarker = errors.New("option unexpected extend marker")
	ErrOptionNotFound               = errors.New("option not found")
	ErrMessageTruncated             = errors.New("message is truncated")
	ErrMessageInvalidVersion        = errors.New("message has invalid version")
	ErrInvalidEncoding              = errors.New("invalid encoding")
)
