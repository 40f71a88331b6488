package codes

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeClassDetail(t *testing.T) {
	tests := []struct {
		code      Code
		dotted    string
		isRequest bool
		isSuccess bool
	}{
		{code: Empty, dotted: "0.00"},
		{code: POST, dotted: "0.02", isRequest: true},
		{code: Content, dotted: "2.05", isSuccess: true},
		{code: Changed, dotted: "2.04", isSuccess: true},
		{code: NotFound, dotted: "4.04"},
		{code: InternalServerError, dotted: "5.00"},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			require.Equal(t, tt.dotted, tt.code.Dotted())
			require.Equal(t, tt.isRequest, tt.code.IsRequest())
			require.Equal(t, tt.isSuccess, tt.code.IsSuccess())
		})
	}
}

func TestString(t *testing.T) {
	require.Equal(t, "Content", Content.String())
	require.Equal(t, "Code(17)", Code(17).String())
}

func TestParseMethod(t *testing.T) {
	c, err := ParseMethod("post")
	require.NoError(t, err)
	require.Equal(t, POST, c)
	_, err = ParseMethod("PATCH")
	require.Error(t, err)
}
