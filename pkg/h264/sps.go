package h264

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/pkg/errors"
	"github.com/rinsuki-lab/alvr-dive/pkg/bits"
	"github.com/rinsuki-lab/alvr-dive/pkg/h264/annexb"
)

// http://www.itu.int/rec/T-REC-H.264
// https://www.rfc-editor.org/rfc/rfc6381#section-3.3

// SPS holds fields from the beginning of sequence parameter set,
// enough for codec string
type SPS struct {
	ProfileIDC  uint8
	Constraints uint8 // constraint_set0..5 flags and reserved_zero_2bits
	LevelIDC    uint8
	ID          uint32

	// from full SPS decoding, zero if it failed
	Width  int
	Height int
}

// ParseSPS parses SPS NAL unit with start code, like config NAL from server
func ParseSPS(nal []byte) (*SPS, error) {
	r := bits.NewReader(nal)

	if err := annexb.ReadStartCode(r); err != nil {
		return nil, err
	}

	if err := annexb.ReadForbiddenBit(r); err != nil {
		return nil, err
	}

	// parameter sets always have highest importance
	if refIDC, err := r.ReadBits8(2); err != nil {
		return nil, errors.Wrap(annexb.ErrMalformedHeader, "h264: short header")
	} else if refIDC != 0b11 {
		return nil, errors.Wrapf(annexb.ErrMalformedHeader, "h264: nal_ref_idc %02b", refIDC)
	}

	pos, _ := r.Pos()

	if typ, err := r.ReadBits8(5); err != nil {
		return nil, errors.Wrap(annexb.ErrMalformedHeader, "h264: short header")
	} else if typ != NALUTypeSPS {
		return nil, errors.Wrapf(annexb.ErrUnexpectedType, "h264: nal_unit_type %d", typ)
	}

	s := &SPS{}

	var err error
	if s.ProfileIDC, err = r.ReadByte(); err != nil {
		return nil, errors.Wrap(err, "h264: profile_idc")
	}
	if s.Constraints, err = r.ReadByte(); err != nil {
		return nil, errors.Wrap(err, "h264: constraint flags")
	}
	if s.LevelIDC, err = r.ReadByte(); err != nil {
		return nil, errors.Wrap(err, "h264: level_idc")
	}
	if s.ID, err = r.ReadUEGolomb(); err != nil {
		return nil, errors.Wrap(err, "h264: seq_parameter_set_id")
	}

	s.Width, s.Height = resolution(nal[pos-1:])

	return s, nil
}

// Codec - string for decoder configuration, like avc1.640028
func (s *SPS) Codec() string {
	return fmt.Sprintf("avc1.%02x%02x%02x", s.ProfileIDC, s.Constraints, s.LevelIDC)
}

func (s *SPS) Profile() string {
	switch s.ProfileIDC {
	case 0x42:
		return "Baseline"
	case 0x4D:
		return "Main"
	case 0x58:
		return "Extended"
	case 0x64:
		return "High"
	}
	return fmt.Sprintf("0x%02X", s.ProfileIDC)
}

func (s *SPS) String() string {
	return fmt.Sprintf(
		"%s %d.%d, %dx%d", s.Profile(), s.LevelIDC/10, s.LevelIDC%10, s.Width, s.Height,
	)
}

// resolution from full SPS walk, config NAL may also have PPS after SPS
func resolution(b []byte) (int, int) {
	if units, err := annexb.Split(append([]byte(annexb.StartCode), b...)); err == nil {
		b = units[0]
	}

	var sps h264.SPS
	if err := sps.Unmarshal(b); err != nil {
		return 0, 0
	}
	return sps.Width(), sps.Height()
}
