package message

import (
	"encoding/binary"
	"fmt"

	"github.com/plgd-dev/coaps/message/codes"
)

const headerSize = 4

// Message is a CoAP message as carried in a single datagram (RFC 7252, section 3).
type Message struct {
	Type      Type
	Code      codes.Code
	MessageID uint16
	Token     Token
	Options   Options
	Payload   []byte
}

func (r *Message) String() string {
	if r == nil {
		return "nil"
	}
	buf := fmt.Sprintf("Type: %v, Code: %v, MessageID: %v, Token: %v", r.Type, r.Code, r.MessageID, r.Token)
	if path, err := r.Options.Path(); err == nil {
		buf = fmt.Sprintf("%s, Path: %v", buf, path)
	}
	if cf, err := r.Options.ContentFormat(); err == nil {
		buf = fmt.Sprintf("%s, ContentFormat: %v", buf, cf)
	}
	if len(r.Payload) > 0 {
		buf = fmt.Sprintf("%s, PayloadLen: %v", buf, len(r.Payload))
	}
	return buf
}

// IsEmpty reports whether the message carries only a header (code 0.00).
func (r *Message) IsEmpty() bool {
	return r.Code == codes.Empty && len(r.Token) == 0 && len(r.Options) == 0 && len(r.Payload) == 0
}

// IsPing reports whether the message is a CoAP ping (empty confirmable message).
func (r *Message) IsPing() bool {
	return r.Type == Confirmable && r.IsEmpty()
}

// Marshal encodes the message.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|Ver| T |  TKL  |      Code     |          Message ID           |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|   Token (if any, TKL bytes) ...
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|   Options (if any) ...
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|1 1 1 1 1 1 1 1|    Payload (if any) ...
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
func (r *Message) Marshal() ([]byte, error) {
	if !ValidateType(r.Type) {
		return nil, fmt.Errorf("invalid Type(%v)", r.Type)
	}
	if len(r.Token) > MaxTokenSize {
		return nil, ErrInvalidTokenLen
	}
	buf := make([]byte, headerSize, headerSize+len(r.Token)+len(r.Payload)+16)
	buf[0] = (1 << 6) | byte(r.Type)<<4 | byte(0xf&len(r.Token))
	buf[1] = byte(r.Code)
	binary.BigEndian.PutUint16(buf[2:], r.MessageID)
	buf = append(buf, r.Token...)
	buf, err := r.Options.Marshal(buf)
	if err != nil {
		return nil, err
	}
	if len(r.Payload) > 0 {
		buf = append(buf, payloadMarker)
		buf = append(buf, r.Payload...)
	}
	return buf, nil
}

// Unmarshal decodes data into the message. The message does not retain data.
func (r *Message) Unmarshal(data []byte) error {
	if len(data) < headerSize {
		return ErrMessageTruncated
	}
	if data[0]>>6 != 1 {
		return ErrMessageInvalidVersion
	}
	typ := Type((data[0] >> 4) & 0x3)
	tokenLen := int(data[0] & 0xf)
	if tokenLen > MaxTokenSize {
		return ErrInvalidTokenLen
	}
	code := codes.Code(data[1])
	messageID := binary.BigEndian.Uint16(data[2:4])
	data = data[headerSize:]
	if len(data) < tokenLen {
		return ErrMessageTruncated
	}
	var token Token
	if tokenLen > 0 {
		token = append(Token(nil), data[:tokenLen]...)
	}
	data = data[tokenLen:]

	options, proc, err := Options(nil).Unmarshal(data)
	if err != nil {
		return err
	}
	data = data[proc:]
	var payload []byte
	if len(data) > 0 {
		// data[0] is the payload marker
		if len(data) == 1 {
			return fmt.Errorf("payload marker followed by empty payload: %w", ErrMessageTruncated)
		}
		payload = append([]byte(nil), data[1:]...)
	}

	r.Type = typ
	r.Code = code
	r.MessageID = messageID
	r.Token = token
	r.Options = options
	r.Payload = payload
	return nil
}
