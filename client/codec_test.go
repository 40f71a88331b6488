package client_test

import (
	"testing"

	"github.com/plgd-dev/coaps/client"
	"github.com/plgd-dev/coaps/message"
	"github.com/plgd-dev/coaps/message/codes"
	coapsErrors "github.com/plgd-dev/coaps/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCoapCodecDecodeResponse(t *testing.T) {
	codec := client.NewCoapCodec(nil)
	marshal := func(m message.Message) []byte {
		data, err := m.Marshal()
		require.NoError(t, err)
		return data
	}
	var withCF message.Message
	withCF.Type = message.NonConfirmable
	withCF.Code = codes.Content
	withCF.MessageID = 5
	withCF.Token = message.TokenFromUint64(0xabcdef)
	withCF.Options = withCF.Options.SetContentFormat(message.AppCBOR)
	withCF.Payload = []byte{0xa0}

	tests := []struct {
		name      string
		data      []byte
		wantID    client.CorrelationID
		wantResp  bool
		wantReply message.Type
		hasReply  bool
		wantErr   error
	}{
		{
			name: "reset",
			data: marshal(message.Message{Type: message.Reset, Code: codes.Empty, MessageID: 1}),
		},
		{
			name: "empty ack",
			data: marshal(message.Message{Type: message.Acknowledgement, Code: codes.Empty, MessageID: 1}),
		},
		{
			name:      "ping",
			data:      marshal(message.Message{Type: message.Confirmable, Code: codes.Empty, MessageID: 1}),
			hasReply:  true,
			wantReply: message.Reset,
		},
		{
			name:     "piggybacked",
			data:     marshal(message.Message{Type: message.Acknowledgement, Code: codes.Changed, MessageID: 1, Token: message.TokenFromUint64(42)}),
			wantResp: true,
			wantID:   42,
		},
		{
			name:      "separate",
			data:      marshal(message.Message{Type: message.Confirmable, Code: codes.NotFound, MessageID: 1, Token: message.TokenFromUint64(43)}),
			wantResp:  true,
			wantID:    43,
			hasReply:  true,
			wantReply: message.Acknowledgement,
		},
		{
			name:     "content format",
			data:     marshal(withCF),
			wantResp: true,
			wantID:   0xabcdef,
		},
		{
			name:    "truncated",
			data:    []byte{0x40},
			wantErr: coapsErrors.ErrMalformedResponse,
		},
		{
			name:    "missing token",
			data:    marshal(message.Message{Type: message.NonConfirmable, Code: codes.Content, MessageID: 1}),
			wantErr: coapsErrors.ErrMalformedResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := codec.DecodeResponse(tt.data)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, in.Response)
				return
			}
			require.NoError(t, err)
			if tt.hasReply {
				var reply message.Message
				require.NoError(t, reply.Unmarshal(in.Reply))
				require.Equal(t, tt.wantReply, reply.Type)
				require.Equal(t, uint16(1), reply.MessageID)
			} else {
				require.Empty(t, in.Reply)
			}
			if !tt.wantResp {
				require.Nil(t, in.Response)
				return
			}
			require.NotNil(t, in.Response)
			require.Equal(t, tt.wantID, in.Response.CorrelationID)
		})
	}
}

func TestResponseContentFormat(t *testing.T) {
	codec := client.NewCoapCodec(nil)
	var m message.Message
	m.Type = message.Acknowledgement
	m.Code = codes.Content
	m.Token = message.TokenFromUint64(1)
	m.Options = m.Options.SetContentFormat(message.AppJSON)
	m.Payload = []byte("{}")
	data, err := m.Marshal()
	require.NoError(t, err)
	in, err := codec.DecodeResponse(data)
	require.NoError(t, err)
	cf, err := in.Response.ContentFormat()
	require.NoError(t, err)
	require.Equal(t, message.AppJSON, cf)
	require.Equal(t, "1", in.Response.CorrelationID.String())
}

func TestCoapCodecEncodeRequest(t *testing.T) {
	codec := client.NewCoapCodec(func() uint16 { return 1 })
	_, err := codec.EncodeRequest(1, client.Request{Code: codes.Empty})
	require.Error(t, err)
	data, err := codec.EncodeRequest(client.CorrelationID(0xff), client.Request{Code: codes.DELETE, Path: "/a"})
	require.NoError(t, err)
	var m message.Message
	require.NoError(t, m.Unmarshal(data))
	require.Equal(t, codes.DELETE, m.Code)
	id, err := m.Token.Uint64()
	require.NoError(t, err)
	require.Equal(t, uint64(0xff), id)
	require.Empty(t, m.Payload)
}
