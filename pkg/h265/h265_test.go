package h265

import (
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/rinsuki-lab/alvr-dive/pkg/bits"
	"github.com/rinsuki-lab/alvr-dive/pkg/h264/annexb"
	"github.com/stretchr/testify/require"
)

// x265 default VPS for Main profile
const vpsHex = "40010c01ffff01600000030090000003000003005d959809"

func TestParseConfigReal(t *testing.T) {
	tests := []struct {
		name   string
		sps    string
		codec  string
		width  int
		height int
		str    string
	}{
		{
			"main tier 5120x1440",
			"QgEBAWAAAAMAAAMAAAMAAAMAmaAAoAgBaH+KrTuiS7/8AAQABbAgApMuADN/mAE=",
			"hev1.1.6.L153", 5120, 1440, "Main@Main 5.1, 5120x1440, 8-bit",
		},
		{
			"high tier 640x360",
			"QgEBIUAAAAMAkAAAAwAAAwCWoAUCAWlnpbkShc1AQIC4QAAAAwBAAAAFFEn/eEAOpgAV+V8IBBA=",
			"hev1.1.2.H150.90", 640, 360, "Main@High 5.0, 640x360, 8-bit",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b, err := base64.StdEncoding.DecodeString(test.sps)
			require.Nil(t, err)

			cfg, err := ParseConfig(annexb.Join(b))
			require.Nil(t, err)
			require.Nil(t, cfg.VPS)
			require.Equal(t, test.codec, cfg.Codec())
			require.Equal(t, test.width, cfg.Width())
			require.Equal(t, test.height, cfg.Height())
			require.Equal(t, test.str, cfg.String())
		})
	}
}

func TestParseConfigSynthetic(t *testing.T) {
	vps, err := hex.DecodeString(vpsHex)
	require.Nil(t, err)

	pps := []byte{0x44, 0x01, 0xC1, 0x72, 0xB4, 0x62, 0x40}

	cfg, err := ParseConfig(annexb.Join(vps, testSPS(4), pps))
	require.Nil(t, err)

	require.Equal(t, "hev1.1.6.L93.B0", cfg.Codec())
	require.Equal(t, "hev1.1.6.L93.90", cfg.VPS.ProfileTierLevel.Codec())
	require.Equal(t, 1920, cfg.Width())
	require.Equal(t, 1080, cfg.Height())

	ptl := cfg.SPS.ProfileTierLevel
	require.Equal(t, ProfileSpace0, ptl.ProfileSpace)
	require.Equal(t, TierMain, ptl.Tier)
	require.True(t, ptl.Compatible(1))
	require.True(t, ptl.Compatible(2))
	require.False(t, ptl.Compatible(0))
	require.True(t, ptl.Constraints.ProgressiveSource)
	require.False(t, ptl.Constraints.InterlacedSource)
	require.True(t, ptl.Constraints.NonPacked)
	require.True(t, ptl.Constraints.FrameOnly)
	require.Nil(t, ptl.Constraints.RangeExtension)
}

func TestParseConfigThreeByteStartCode(t *testing.T) {
	nal := append([]byte{0, 0, 1}, testSPS(0)...)

	cfg, err := ParseConfig(nal)
	require.Nil(t, err)
	require.Equal(t, 1088, cfg.Height())
}

func TestCodecProfileSpace(t *testing.T) {
	ptl := ProfileTierLevel{
		ProfileSpace:       ProfileSpaceB,
		Tier:               TierHigh,
		ProfileIDC:         ProfileRangeExtensions,
		CompatibilityFlags: 1 << (31 - 4),
		LevelIDC:           120,
	}
	ptl.Constraints = ptl.decodeConstraints(0x9C_00_00_00_00_01)

	require.Equal(t, "hev1.B4.10.H120.9C.0.0.0.0.1", ptl.Codec())
	require.NotNil(t, ptl.Constraints.RangeExtension)
	require.True(t, ptl.Constraints.RangeExtension.Max12Bit)
	require.True(t, ptl.Constraints.RangeExtension.Max10Bit)
	require.False(t, ptl.Constraints.RangeExtension.Max8Bit)
	require.False(t, ptl.Constraints.RangeExtension.Max14Bit)
}

func TestParseConfigErrors(t *testing.T) {
	vps, err := hex.DecodeString(vpsHex)
	require.Nil(t, err)

	badVPS := append([]byte{}, vps...)
	badVPS[5] = 0xFE

	sps := testSPS(4)

	tests := []struct {
		name string
		nal  []byte
		err  error
	}{
		{"no start code", sps, annexb.ErrMalformedStartCode},
		{"short start code", append([]byte{0, 1}, sps...), annexb.ErrMalformedStartCode},
		{"forbidden bit", annexb.Join([]byte{0xC2, 0x01, 0x01}), annexb.ErrMalformedHeader},
		{"temporal id", annexb.Join([]byte{0x42, 0x00, 0x01}), annexb.ErrMalformedHeader},
		{"short header", annexb.Join([]byte{0x42}), annexb.ErrMalformedHeader},
		{"idr slice", annexb.Join(sps, []byte{0x26, 0x01, 0xAF}), annexb.ErrUnexpectedType},
		{"no sps", annexb.Join(vps), annexb.ErrUnexpectedType},
		{"vps reserved bits", annexb.Join(badVPS, sps), ErrInvalidParameterSet},
		{"truncated ptl", annexb.Join(sps[:8]), bits.ErrOutOfRange},
		{"truncated vps", annexb.Join(vps[:4]), bits.ErrOutOfRange},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseConfig(test.nal)
			require.ErrorIs(t, err, test.err)
		})
	}
}

func TestNALUType(t *testing.T) {
	require.Equal(t, byte(NALUTypeVPS), NALUType([]byte{0x40, 0x01}))
	require.Equal(t, byte(NALUTypeSPS), NALUType([]byte{0x42, 0x01}))
	require.True(t, IsKeyframe(NALUType([]byte{0x26, 0x01})))
	require.False(t, IsKeyframe(NALUType([]byte{0x02, 0x01})))
	require.True(t, IsFirstSlice([]byte{0x26, 0x01, 0xAF}))
	require.False(t, IsFirstSlice([]byte{0x02, 0x01, 0x50}))
}

// testSPS - Main profile 1920x1088 SPS with bottom conformance window offset
func testSPS(bottom uint32) []byte {
	w := bits.NewWriter()
	w.WriteBits(0, 4)  // sps_video_parameter_set_id
	w.WriteBits(0, 3)  // sps_max_sub_layers_minus1
	w.WriteBit(1)      // sps_temporal_id_nesting_flag
	w.WriteBits(0, 2)  // general_profile_space
	w.WriteBit(0)      // general_tier_flag
	w.WriteBits(1, 5)  // general_profile_idc
	w.WriteBits(0x60000000, 32)
	w.WriteBits64(0xB00000000000, 48)
	w.WriteBits(93, 8) // general_level_idc
	w.WriteUEGolomb(0) // sps_seq_parameter_set_id
	w.WriteUEGolomb(1) // chroma_format_idc
	w.WriteUEGolomb(1920)
	w.WriteUEGolomb(1088)
	if bottom > 0 {
		w.WriteBit(1)
		w.WriteUEGolomb(0)
		w.WriteUEGolomb(0)
		w.WriteUEGolomb(0)
		w.WriteUEGolomb(bottom)
	} else {
		w.WriteBit(0)
	}
	w.WriteUEGolomb(0) // bit_depth_luma_minus8
	w.WriteUEGolomb(0) // bit_depth_chroma_minus8
	w.WriteBit(1)      // rbsp_stop_one_bit

	return append([]byte{0x42, 0x01}, addEmulationPrevention(w.Bytes())...)
}

func addEmulationPrevention(b []byte) []byte {
	var out []byte
	var zeros int
	for _, c := range b {
		if zeros >= 2 && c <= 3 {
			out = append(out, 3)
			zeros = 0
		}
		out = append(out, c)
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}
