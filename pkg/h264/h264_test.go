package h264

import (
	"encoding/base64"
	"testing"

	"github.com/rinsuki-lab/alvr-dive/pkg/h264/annexb"
	"github.com/stretchr/testify/require"
)

func TestParseSPS(t *testing.T) {
	nal := []byte{0x00, 0x00, 0x01, 0x67, 0x64, 0x00, 0x28, 0xAC}

	sps, err := ParseSPS(nal)
	require.Nil(t, err)
	require.Equal(t, "avc1.640028", sps.Codec())
	require.Equal(t, uint32(0), sps.ID)
}

func TestParseSPSReal(t *testing.T) {
	tests := []struct {
		name  string
		sps   string
		codec string
	}{
		{"Amcrest AD410", "Z0IAMukAUAHjQgAAB9IAAOqcCAA=", "avc1.420032"},
		{"Dahua", "Z01AMqaAKAC1kAA=", "avc1.4d4032"},
		{"Reolink", "Z2QAM6wVFKAoAPGQ", "avc1.640033"},
		{"TP-Link", "Z2QAKKwa0AoAt03AQEBQAAADABAAAAMB6PFCKg==", "avc1.640028"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b, err := base64.StdEncoding.DecodeString(test.sps)
			require.Nil(t, err)

			sps, err := ParseSPS(annexb.Join(b))
			require.Nil(t, err)
			require.Equal(t, test.codec, sps.Codec())
		})
	}
}

func TestParseSPSResolution(t *testing.T) {
	b, err := base64.StdEncoding.DecodeString("Z2QAM6wVFKAoAPGQ") // Reolink
	require.Nil(t, err)

	pps := []byte{0x68, 0xEE, 0x3C, 0x80}

	sps, err := ParseSPS(annexb.Join(b, pps))
	require.Nil(t, err)
	require.Equal(t, 2560, sps.Width)
	require.Equal(t, 1920, sps.Height)
	require.Equal(t, "High 5.1, 2560x1920", sps.String())
}

func TestParseSPSErrors(t *testing.T) {
	tests := []struct {
		name string
		nal  []byte
		err  error
	}{
		{"no zeros", []byte{0x67, 0x64, 0x00, 0x28, 0xAC}, annexb.ErrMalformedStartCode},
		{"one zero", []byte{0x00, 0x01, 0x67, 0x64, 0x00, 0x28, 0xAC}, annexb.ErrMalformedStartCode},
		{"only zeros", []byte{0x00, 0x00, 0x00}, annexb.ErrMalformedStartCode},
		{"forbidden bit", []byte{0x00, 0x00, 0x01, 0xE7, 0x64, 0x00, 0x28, 0xAC}, annexb.ErrMalformedHeader},
		{"ref idc", []byte{0x00, 0x00, 0x01, 0x27, 0x64, 0x00, 0x28, 0xAC}, annexb.ErrMalformedHeader},
		{"pps type", []byte{0x00, 0x00, 0x01, 0x68, 0xEE, 0x3C, 0x80}, annexb.ErrUnexpectedType},
		{"idr type", []byte{0x00, 0x00, 0x00, 0x01, 0x65, 0x88, 0x84}, annexb.ErrUnexpectedType},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseSPS(test.nal)
			require.ErrorIs(t, err, test.err)
		})
	}

	// truncated after header
	_, err := ParseSPS([]byte{0x00, 0x00, 0x01, 0x67, 0x64})
	require.NotNil(t, err)
}

func TestIsFirstSlice(t *testing.T) {
	require.True(t, IsFirstSlice([]byte{0x65, 0x88}))
	require.False(t, IsFirstSlice([]byte{0x41, 0x5A}))
	require.True(t, IsVCL(NALUType([]byte{0x41})))
	require.False(t, IsVCL(NALUType([]byte{0x67})))
}
