package message

import (
	"encoding/binary"
	"encoding/hex"
)

// MaxTokenSize maximum of token size that can be used in message
const MaxTokenSize = 8

// Token correlates a response with its request.
type Token []byte

func (t Token) String() string {
	return hex.EncodeToString(t)
}

// TokenFromUint64 encodes v as an 8-byte big-endian token.
func TokenFromUint64(v uint64) Token {
	t := make(Token, MaxTokenSize)
	binary.BigEndian.PutUint64(t, v)
	return t
}

// Uint64 decodes a token produced by TokenFromUint64. Shorter tokens are zero-extended.
func (t Token) Uint64() (uint64, error) {
	if len(t) == 0 || len(t) > MaxTokenSize {
		return 0, ErrInvalidTokenLen
	}
	var v uint64
	for _, b := range t {
		v = v<<8 | uint64(b)
	}
	return v, nil
}
