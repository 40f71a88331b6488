package message

import (
	"testing"

	"github.com/plgd-dev/coaps/message/codes"
	"github.com/stretchr/testify/require"
)

func TestMessageMarshal(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		want    []byte
		wantErr bool
	}{
		{
			name: "confirmable GET with path",
			msg: func() Message {
				opts, err := Options(nil).SetPath("/temperature")
				require.NoError(t, err)
				return Message{Type: Confirmable, Code: codes.GET, MessageID: 0x7d34, Options: opts}
			}(),
			want: append([]byte{0x40, 0x01, 0x7d, 0x34, 0xbb}, []byte("temperature")...),
		},
		{
			name: "piggybacked response",
			msg:  Message{Type: Acknowledgement, Code: codes.Content, MessageID: 0x7d34, Payload: []byte("22.3 C")},
			want: append([]byte{0x60, 0x45, 0x7d, 0x34, 0xff}, []byte("22.3 C")...),
		},
		{
			name: "token",
			msg:  Message{Type: NonConfirmable, Code: codes.POST, MessageID: 1, Token: Token{0xaa, 0xbb}},
			want: []byte{0x52, 0x02, 0x00, 0x01, 0xaa, 0xbb},
		},
		{
			name:    "token too long",
			msg:     Message{Token: make(Token, 9)},
			wantErr: true,
		},
		{
			name:    "invalid type",
			msg:     Message{Type: 4},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.msg.Marshal()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)

			var decoded Message
			require.NoError(t, decoded.Unmarshal(got))
			require.Equal(t, tt.msg.Type, decoded.Type)
			require.Equal(t, tt.msg.Code, decoded.Code)
			require.Equal(t, tt.msg.MessageID, decoded.MessageID)
			require.Equal(t, tt.msg.Token, decoded.Token)
			require.Equal(t, tt.msg.Payload, decoded.Payload)
		})
	}
}

func TestMessageUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{name: "short", data: []byte{0x40, 0x01}, want: ErrMessageTruncated},
		{name: "version", data: []byte{0x80, 0x01, 0, 0}, want: ErrMessageInvalidVersion},
		{name: "token length", data: []byte{0x49, 0x01, 0, 0}, want: ErrInvalidTokenLen},
		{name: "token truncated", data: []byte{0x44, 0x01, 0, 0, 1}, want: ErrMessageTruncated},
		{name: "option truncated", data: []byte{0x40, 0x01, 0, 0, 0xb5, 'a'}, want: ErrOptionTruncated},
		{name: "extend marker", data: []byte{0x40, 0x01, 0, 0, 0xf1, 'a'}, want: ErrOptionUnexpectedExtendMarker},
		{name: "empty payload", data: []byte{0x40, 0x01, 0, 0, 0xff}, want: ErrMessageTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Message
			err := m.Unmarshal(tt.data)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMessageOptionsRoundTrip(t *testing.T) {
	opts, err := Options(nil).SetPath("/secure/a")
	require.NoError(t, err)
	opts = opts.SetContentFormat(AppCBOR)
	opts = opts.Add(Option{ID: NoResponse, Value: []byte{26}})
	opts = opts.Add(Option{ID: ProxyURI, Value: make([]byte, 300)})

	m := Message{Type: Confirmable, Code: codes.POST, MessageID: 42, Token: TokenFromUint64(7), Options: opts, Payload: []byte("test0")}
	data, err := m.Marshal()
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, decoded.Unmarshal(data))
	path, err := decoded.Options.Path()
	require.NoError(t, err)
	require.Equal(t, "/secure/a", path)
	cf, err := decoded.Options.ContentFormat()
	require.NoError(t, err)
	require.Equal(t, AppCBOR, cf)
	require.Equal(t, [][]byte{{26}}, decoded.Options.Find(NoResponse))
	require.Len(t, decoded.Options.Find(ProxyURI)[0], 300)
	id, err := decoded.Token.Uint64()
	require.NoError(t, err)
	require.Equal(t, uint64(7), id)
	require.Equal(t, []byte("test0"), decoded.Payload)
	require.Contains(t, decoded.String(), "Path: /secure/a")
}

func TestMessagePing(t *testing.T) {
	m := Message{Type: Confirmable, MessageID: 5}
	require.True(t, m.IsPing())
	m.Type = Acknowledgement
	require.False(t, m.IsPing())
	require.True(t, m.IsEmpty())
}
