package client

import (
	"strconv"
	"time"

	"github.com/plgd-dev/coaps/message"
	"github.com/plgd-dev/coaps/message/codes"
)

// CorrelationID matches a response to its request. It travels as the CoAP token.
type CorrelationID uint64

func (id CorrelationID) String() string {
	return strconv.FormatUint(uint64(id), 16)
}

// Request describes one exchange to submit.
type Request struct {
	Code          codes.Code
	Path          string
	ContentFormat message.MediaType
	Payload       []byte
	// NonConfirmable sends the request as NON instead of CON.
	NonConfirmable bool
}

// Response is a decoded response matched to its exchange.
type Response struct {
	CorrelationID CorrelationID
	Code          codes.Code
	Options       message.Options
	Payload       []byte
}

// ContentFormat returns the media type tag of the payload.
func (r *Response) ContentFormat() (message.MediaType, error) {
	return r.Options.ContentFormat()
}

// Result is delivered exactly once per submitted exchange: either Response or Err is set.
type Result struct {
	Response *Response
	Err      error
}

// CompletionFunc receives the result of an exchange. It runs on a background goroutine.
type CompletionFunc = func(Result)

// PendingExchange is an in-flight request awaiting its completion.
type PendingExchange struct {
	ID         CorrelationID
	Request    Request
	EnqueuedAt time.Time
	handler    CompletionFunc
}
