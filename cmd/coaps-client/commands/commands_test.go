package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/plgd-dev/coaps/test/server"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func newServer(t *testing.T) *server.Server {
	srv, err := server.New(server.Config{PSKIdentity: []byte("Client_identity"), PSKSecret: []byte("secretPSK")})
	require.NoError(t, err)
	srv.Serve()
	t.Cleanup(func() {
		_ = srv.Close()
	})
	return srv
}

func TestPost(t *testing.T) {
	for _, cbor := range []bool{false, true} {
		srv := newServer(t)
		args := []string{"post", "--peer", srv.Addr(), "--log-level", "error", "-n", "5", "--timeout", "20s"}
		if cbor {
			args = append(args, "--cbor")
		}
		out, err := runCmd(t, args...)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 5)
		require.Contains(t, out, `2.04 Changed "test4"`)
		require.Len(t, srv.Received(), 5)
	}
	useCBOR = false
}

func TestGet(t *testing.T) {
	srv := newServer(t)
	out, err := runCmd(t, "get", "--peer", srv.Addr(), "--log-level", "error", "--path", "/a")
	require.NoError(t, err)
	require.Equal(t, "/a: 2.05 Content \"/a\"\n", out)
}

func TestPostMethod(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "put non-confirmable",
			args: []string{"--method", "put", "--non"},
			want: `2.04 Changed "test0"`,
		},
		{
			name:    "rejected method",
			args:    []string{"--method", "DELETE"},
			want:    `4.05 MethodNotAllowed ""`,
			wantErr: true,
		},
		{
			name:    "unknown method",
			args:    []string{"--method", "PATCH"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t)
			args := append([]string{"post", "--peer", srv.Addr(), "--log-level", "error", "-n", "1", "--timeout", "20s"}, tt.args...)
			out, err := runCmd(t, args...)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			if tt.want != "" {
				require.Contains(t, out, tt.want)
			}
		})
	}
}

func TestInvalidConfig(t *testing.T) {
	_, err := runCmd(t, "get", "--peer", "nohostport")
	require.Error(t, err)
	_, err = runCmd(t, "post", "--config", "/nonexistent/client.toml")
	require.Error(t, err)
}
