package client

import (
	"fmt"

	"github.com/plgd-dev/coaps/message"
	"github.com/plgd-dev/coaps/message/codes"
	coapsErrors "github.com/plgd-dev/coaps/pkg/errors"
)

// Inbound is the outcome of decoding one datagram.
type Inbound struct {
	// Response is nil when the datagram completes no exchange (empty ACK, reset, ping).
	Response *Response
	// Reply is sent back to the peer when set (ACK of a separate response, reset of a ping).
	Reply []byte
}

// Codec maps requests to datagrams and datagrams back to correlated responses.
type Codec interface {
	EncodeRequest(id CorrelationID, req Request) ([]byte, error)
	DecodeResponse(data []byte) (Inbound, error)
}

// CoapCodec encodes exchanges as CoAP messages carrying the correlation ID in the token.
type CoapCodec struct {
	getMID func() uint16
}

// NewCoapCodec creates a codec; getMID allocates message IDs and defaults to message.GetMID.
func NewCoapCodec(getMID func() uint16) *CoapCodec {
	if getMID == nil {
		getMID = message.GetMID
	}
	return &CoapCodec{getMID: getMID}
}

// EncodeRequest builds a CON request, or NON when req.NonConfirmable is set. CON requests are
// not retransmitted; a lost one completes with ErrExchangeTimeout at the end of its lifetime.
func (c *CoapCodec) EncodeRequest(id CorrelationID, req Request) ([]byte, error) {
	if !req.Code.IsRequest() {
		return nil, fmt.Errorf("invalid request code %v", req.Code)
	}
	msg := message.Message{
		Type:      message.Confirmable,
		Code:      req.Code,
		MessageID: c.getMID(),
		Token:     message.TokenFromUint64(uint64(id)),
		Payload:   req.Payload,
	}
	if req.NonConfirmable {
		msg.Type = message.NonConfirmable
	}
	opts, err := message.Options(nil).SetPath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", req.Path, err)
	}
	if req.Payload != nil {
		opts = opts.SetContentFormat(req.ContentFormat)
	}
	msg.Options = opts
	return msg.Marshal()
}

func emptyMessage(typ message.Type, mid uint16) []byte {
	msg := message.Message{Type: typ, Code: codes.Empty, MessageID: mid}
	data, err := msg.Marshal()
	if err != nil {
		return nil
	}
	return data
}

func (c *CoapCodec) DecodeResponse(data []byte) (Inbound, error) {
	var msg message.Message
	if err := msg.Unmarshal(data); err != nil {
		return Inbound{}, fmt.Errorf("%w: %w", coapsErrors.ErrMalformedResponse, err)
	}
	switch {
	case msg.Type == message.Reset, msg.Type == message.Acknowledgement && msg.Code == codes.Empty:
		return Inbound{}, nil
	case msg.IsPing():
		return Inbound{Reply: emptyMessage(message.Reset, msg.MessageID)}, nil
	case msg.Code.IsRequest():
		// requests from the peer are not served
		var reply []byte
		if msg.Type == message.Confirmable {
			reply = emptyMessage(message.Reset, msg.MessageID)
		}
		return Inbound{Reply: reply}, nil
	}

	var reply []byte
	if msg.Type == message.Confirmable {
		reply = emptyMessage(message.Acknowledgement, msg.MessageID)
	}
	id, err := msg.Token.Uint64()
	if err != nil {
		return Inbound{Reply: reply}, fmt.Errorf("%w: invalid token %v: %w", coapsErrors.ErrMalformedResponse, msg.Token, err)
	}
	return Inbound{
		Response: &Response{
			CorrelationID: CorrelationID(id),
			Code:          msg.Code,
			Options:       msg.Options,
			Payload:       msg.Payload,
		},
		Reply: reply,
	}, nil
}
