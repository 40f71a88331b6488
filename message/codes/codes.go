package codes

import (
	"fmt"
	"strings"
)

// A Code is an unsigned 8-bit number split into a 3-bit class (0-7) and a 5-bit detail (0-31).
type Code uint8

// Request codes.
const (
	Empty  Code = 0
	GET    Code = 1
	POST   Code = 2
	PUT    Code = 3
	DELETE Code = 4
)

// Response codes.
const (
	Created                 Code = 65
	Deleted                 Code = 66
	Valid                   Code = 67
	Changed                 Code = 68
	Content                 Code = 69
	Continue                Code = 95
	BadRequest              Code = 128
	Unauthorized            Code = 129
	BadOption               Code = 130
	Forbidden               Code = 131
	NotFound                Code = 132
	MethodNotAllowed        Code = 133
	NotAcceptable           Code = 134
	RequestEntityIncomplete Code = 136
	PreconditionFailed      Code = 140
	RequestEntityTooLarge   Code = 141
	UnsupportedMediaType    Code = 143
	InternalServerError     Code = 160
	NotImplemented          Code = 161
	BadGateway              Code = 162
	ServiceUnavailable      Code = 163
	GatewayTimeout          Code = 164
	ProxyingNotSupported    Code = 165
)

// Class returns the 3-bit class of the code (2 for success, 4 for client errors, 5 for server errors).
func (c Code) Class() uint8 {
	return uint8(c) >> 5
}

// Detail returns the 5-bit detail of the code.
func (c Code) Detail() uint8 {
	return uint8(c) & 0x1f
}

// IsRequest reports whether c is a method code.
func (c Code) IsRequest() bool {
	return c != Empty && c.Class() == 0
}

// IsSuccess reports whether c belongs to the 2.xx class.
func (c Code) IsSuccess() bool {
	return c.Class() == 2
}

// Dotted formats the code in the "c.dd" notation of RFC 7252.
func (c Code) Dotted() string {
	return fmt.Sprintf("%d.%02d", c.Class(), c.Detail())
}

// ParseMethod converts a method name (case insensitive) to its code.
func ParseMethod(s string) (Code, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GET":
		return GET, nil
	case "POST":
		return POST, nil
	case "PUT":
		return PUT, nil
	case "DELETE":
		return DELETE, nil
	}
	return Empty, fmt.Errorf("unknown method %q", s)
}
