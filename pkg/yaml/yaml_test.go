package yaml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	b, err := Encode(map[string]any{
		"gateway": map[string]any{"fps": 60, "codec": "h264"},
	}, 2)
	require.Nil(t, err)
	require.Equal(t, "gateway:\n  codec: h264\n  fps: 60\n", string(b))
}

func TestMerge(t *testing.T) {
	m := map[string]any{}

	require.Nil(t, Merge(m, []byte("gateway:\n  fps: 60\n  codec: h264\nlog:\n  level: info\n")))
	require.Nil(t, Merge(m, []byte(`{gateway: {fps: 30}}`)))
	require.Nil(t, Merge(m, []byte(`{log: debug}`)))

	require.Equal(t, map[string]any{
		"gateway": map[string]any{"fps": 30, "codec": "h264"},
		"log":     "debug",
	}, m)

	require.NotNil(t, Merge(m, []byte(`{gateway: [}`)))
}
