package h265

import (
	"fmt"

	"github.com/pkg/errors"
	bitreader "github.com/rinsuki-lab/alvr-dive/pkg/bits"
	"github.com/rinsuki-lab/alvr-dive/pkg/h264/annexb"
)

// https://www.itu.int/rec/T-REC-H.265

var ErrInvalidParameterSet = errors.New("h265: invalid parameter set")

type VPS struct {
	ID                 uint8
	MaxLayersMinus1    uint8
	MaxSubLayersMinus1 uint8
	TemporalIDNesting  bool
	ProfileTierLevel   ProfileTierLevel
}

type SPS struct {
	VPSID              uint8
	MaxSubLayersMinus1 uint8
	TemporalIDNesting  bool
	ProfileTierLevel   ProfileTierLevel

	ID                  uint32
	ChromaFormatIDC     uint32
	SeparateColourPlane bool

	PicWidth  uint32 // pic_width_in_luma_samples
	PicHeight uint32 // pic_height_in_luma_samples

	// conformance window offsets: left, right, top, bottom
	ConfWindow [4]uint32

	BitDepthLuma   uint8
	BitDepthChroma uint8
}

// Width after conformance window cropping
func (s *SPS) Width() int {
	sub, _ := s.subsampling()
	return int(s.PicWidth) - sub*int(s.ConfWindow[0]+s.ConfWindow[1])
}

// Height after conformance window cropping
func (s *SPS) Height() int {
	_, sub := s.subsampling()
	return int(s.PicHeight) - sub*int(s.ConfWindow[2]+s.ConfWindow[3])
}

// subsampling - SubWidthC and SubHeightC
func (s *SPS) subsampling() (int, int) {
	if s.SeparateColourPlane {
		return 1, 1
	}
	switch s.ChromaFormatIDC {
	case 1:
		return 2, 2
	case 2:
		return 2, 1
	}
	return 1, 1
}

// Config - parameter sets from decoder configuration NAL
type Config struct {
	VPS *VPS // nil if config has no VPS
	SPS *SPS
}

// Codec - descriptor like hev1.1.6.L93.B0
func (c *Config) Codec() string {
	return c.SPS.ProfileTierLevel.Codec()
}

func (c *Config) Width() int {
	return c.SPS.Width()
}

func (c *Config) Height() int {
	return c.SPS.Height()
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"%s, %dx%d, %d-bit", &c.SPS.ProfileTierLevel, c.Width(), c.Height(), c.SPS.BitDepthLuma,
	)
}

// ParseConfig parses AnnexB buffer with VPS, SPS and PPS, like config NAL from server
func ParseConfig(nal []byte) (*Config, error) {
	if err := annexb.ReadStartCode(bitreader.NewReader(nal)); err != nil {
		return nil, err
	}

	var units [][]byte
	annexb.Scan(nal, func(unit []byte) {
		units = append(units, unit)
	})

	c := &Config{}

	for _, unit := range units {
		typ, err := readHeader(unit)
		if err != nil {
			return nil, err
		}

		switch typ {
		case NALUTypeVPS:
			if c.VPS, err = parseVPS(annexb.RemoveEmulationPrevention(unit[2:])); err != nil {
				return nil, err
			}
		case NALUTypeSPS:
			if c.SPS, err = parseSPS(annexb.RemoveEmulationPrevention(unit[2:])); err != nil {
				return nil, err
			}
		case NALUTypePPS, NALUTypeAUD, NALUTypePrefixSEI, NALUTypeSuffixSEI:
		default:
			return nil, errors.Wrapf(annexb.ErrUnexpectedType, "h265: nal_unit_type %d", typ)
		}
	}

	if c.SPS == nil {
		return nil, errors.Wrap(annexb.ErrUnexpectedType, "h265: no SPS in config")
	}

	return c, nil
}

// readHeader - forbidden_zero_bit, nal_unit_type, nuh_layer_id, nuh_temporal_id_plus1
func readHeader(unit []byte) (byte, error) {
	r := bitreader.NewReader(unit)

	if err := annexb.ReadForbiddenBit(r); err != nil {
		return 0, err
	}

	typ, _ := r.ReadBits8(6)
	_, _ = r.ReadBits8(6) // nuh_layer_id
	tid, err := r.ReadBits8(3)
	if err != nil {
		return 0, errors.Wrap(annexb.ErrMalformedHeader, "h265: short header")
	}
	if tid == 0 {
		return 0, errors.Wrap(annexb.ErrMalformedHeader, "h265: nuh_temporal_id_plus1 is 0")
	}

	return typ, nil
}

func parseVPS(rbsp []byte) (*VPS, error) {
	r := bitreader.NewReader(rbsp)

	v := &VPS{}
	v.ID, _ = r.ReadBits8(4)
	_ = r.Skip(2) // vps_base_layer_internal_flag, vps_base_layer_available_flag
	v.MaxLayersMinus1, _ = r.ReadBits8(6)
	v.MaxSubLayersMinus1, _ = r.ReadBits8(3)
	v.TemporalIDNesting, _ = r.ReadFlag()

	reserved, err := r.ReadBits(16)
	if err != nil {
		return nil, errors.Wrap(err, "h265: vps header")
	}
	if reserved != 0xFFFF {
		return nil, errors.Wrapf(ErrInvalidParameterSet, "vps_reserved_0xffff_16bits is 0x%04X", reserved)
	}
	if v.MaxSubLayersMinus1 > 6 {
		return nil, errors.Wrapf(ErrInvalidParameterSet, "vps_max_sub_layers_minus1 %d", v.MaxSubLayersMinus1)
	}

	if v.ProfileTierLevel, err = readProfileTierLevel(r, v.MaxSubLayersMinus1); err != nil {
		return nil, err
	}

	return v, nil
}

func parseSPS(rbsp []byte) (*SPS, error) {
	r := bitreader.NewReader(rbsp)

	s := &SPS{}
	s.VPSID, _ = r.ReadBits8(4)
	s.MaxSubLayersMinus1, _ = r.ReadBits8(3)

	var err error
	if s.TemporalIDNesting, err = r.ReadFlag(); err != nil {
		return nil, errors.Wrap(err, "h265: sps header")
	}
	if s.MaxSubLayersMinus1 > 6 {
		return nil, errors.Wrapf(ErrInvalidParameterSet, "sps_max_sub_layers_minus1 %d", s.MaxSubLayersMinus1)
	}

	if s.ProfileTierLevel, err = readProfileTierLevel(r, s.MaxSubLayersMinus1); err != nil {
		return nil, err
	}

	if s.ID, err = r.ReadUEGolomb(); err != nil {
		return nil, errors.Wrap(err, "h265: sps_seq_parameter_set_id")
	}
	if s.ID > 15 {
		return nil, errors.Wrapf(ErrInvalidParameterSet, "sps_seq_parameter_set_id %d", s.ID)
	}

	if s.ChromaFormatIDC, err = r.ReadUEGolomb(); err != nil {
		return nil, errors.Wrap(err, "h265: chroma_format_idc")
	}
	if s.ChromaFormatIDC > 3 {
		return nil, errors.Wrapf(ErrInvalidParameterSet, "chroma_format_idc %d", s.ChromaFormatIDC)
	}
	if s.ChromaFormatIDC == 3 {
		s.SeparateColourPlane, _ = r.ReadFlag()
	}

	s.PicWidth, _ = r.ReadUEGolomb()
	s.PicHeight, _ = r.ReadUEGolomb()

	if conf, _ := r.ReadFlag(); conf {
		for i := range s.ConfWindow {
			s.ConfWindow[i], _ = r.ReadUEGolomb()
		}
	}

	luma, _ := r.ReadUEGolomb()
	chroma, err := r.ReadUEGolomb()
	if err != nil {
		return nil, errors.Wrap(err, "h265: sps picture format")
	}
	if luma > 8 || chroma > 8 {
		return nil, errors.Wrapf(ErrInvalidParameterSet, "bit depth minus8 %d/%d", luma, chroma)
	}
	s.BitDepthLuma = uint8(luma) + 8
	s.BitDepthChroma = uint8(chroma) + 8

	if s.Width() <= 0 || s.Height() <= 0 {
		return nil, errors.Wrapf(ErrInvalidParameterSet, "picture size %dx%d", s.Width(), s.Height())
	}

	return s, nil
}
