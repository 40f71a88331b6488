package log_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/plgd-dev/coaps/pkg/log"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "default", level: ""},
		{name: "debug", level: "debug"},
		{name: "upper", level: "WARN"},
		{name: "invalid", level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := log.New(&bytes.Buffer{}, tt.level, false)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoggerFactory(t *testing.T) {
	var buf bytes.Buffer
	l, err := log.New(&buf, "debug", false)
	require.NoError(t, err)

	logger := log.NewLoggerFactory(l).NewLogger("dtls")
	logger.Tracef("dropped %d", 1)
	logger.Debugf("flight %d", 3)
	logger.Warn("retransmit")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "dtls", entry["scope"])
	require.Equal(t, "debug", entry["level"])
	require.Equal(t, "flight 3", entry["message"])

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	require.Equal(t, "warn", entry["level"])
}
