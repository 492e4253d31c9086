package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecoderArgs(t *testing.T) {
	args := NewDecoderArgs("ffmpeg", "hevc", 1920, 1080)
	require.Equal(
		t,
		`ffmpeg -hide_banner -v error -fflags nobuffer -flags low_delay -probesize 32 -f hevc -i pipe:0 -an -pix_fmt rgba -vf "scale=1920:1080" -f rawvideo pipe:1`,
		args.String(),
	)

	args.AddFilter("format=rgba")
	require.Contains(t, args.String(), `-vf "scale=1920:1080,format=rgba"`)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		codec  string
		format string
	}{
		{"avc1.640028", "h264"},
		{"hev1.1.6.L93.B0", "hevc"},
	}
	for _, test := range tests {
		format, err := Format(test.codec)
		require.Nil(t, err)
		require.Equal(t, test.format, format)
	}

	_, err := Format("av01.0.08M.08")
	require.NotNil(t, err)
}

func TestVersionInvalidPath(t *testing.T) {
	_, err := Version("/invalid/path/to/ffmpeg")
	require.NotNil(t, err)
}
