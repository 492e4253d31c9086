package gateway

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/rinsuki-lab/alvr-dive/pkg/h264"
	"github.com/rinsuki-lab/alvr-dive/pkg/h264/annexb"
	"github.com/rinsuki-lab/alvr-dive/pkg/h265"
	"github.com/rinsuki-lab/alvr-dive/pkg/protocol"
)

// AccessUnit - one coded picture without parameter sets, AnnexB with 4 bytes start codes
type AccessUnit struct {
	Key bool
	NAL []byte
}

// Stream - elementary stream prepared for replay
type Stream struct {
	Codec protocol.Codec
	Info  string // human readable codec info
	Init  []byte // parameter sets for CreateDecoder
	Units []*AccessUnit
}

func OpenStream(path string, codec protocol.Codec) (*Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseStream(data, codec)
}

// ParseStream splits AnnexB elementary stream into access units
// and collects first parameter set of each type
func ParseStream(data []byte, codec protocol.Codec) (*Stream, error) {
	var kind func(unit []byte) naluKind
	switch codec {
	case protocol.CodecH264:
		kind = kindH264
	case protocol.CodecHEVC:
		kind = kindH265
	default:
		return nil, errors.Errorf("gateway: unsupported codec %s", codec)
	}

	params := map[byte][]byte{}

	s := &Stream{Codec: codec}

	var units [][]byte
	var key, vcl bool

	flush := func() {
		if vcl {
			s.Units = append(s.Units, &AccessUnit{Key: key, NAL: annexb.Join(units...)})
		}
		units = units[:0]
		key, vcl = false, false
	}

	annexb.Scan(data, func(unit []byte) {
		switch k := kind(unit); k.typ {
		case kindParameterSet:
			if _, ok := params[k.nalu]; !ok {
				params[k.nalu] = unit
			}
			if vcl {
				flush()
			}
		case kindDelimiter:
			if vcl {
				flush()
			}
		case kindSlice:
			if vcl && k.first {
				flush()
			}
			units = append(units, unit)
			vcl = true
			key = key || k.key
		case kindSuffix:
			units = append(units, unit)
		case kindPrefix:
			if vcl {
				flush()
			}
			units = append(units, unit)
		}
	})
	flush()

	if len(params) == 0 {
		return nil, errors.New("gateway: no parameter sets in stream")
	}

	types := make([]byte, 0, len(params))
	for typ := range params {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	ps := make([][]byte, 0, len(types))
	for _, typ := range types {
		ps = append(ps, params[typ])
	}
	s.Init = annexb.Join(ps...)

	// same parsing as client will do, so broken file fails early
	switch codec {
	case protocol.CodecH264:
		sps, err := h264.ParseSPS(s.Init)
		if err != nil {
			return nil, err
		}
		s.Info = sps.String()
	case protocol.CodecHEVC:
		conf, err := h265.ParseConfig(s.Init)
		if err != nil {
			return nil, err
		}
		s.Info = conf.String()
	}

	if s.NextKey(0) < 0 {
		return nil, errors.New("gateway: no keyframes in stream")
	}

	return s, nil
}

// NextKey returns index of first keyframe starting from i with wrap around, or -1
func (s *Stream) NextKey(i int) int {
	n := len(s.Units)
	for j := 0; j < n; j++ {
		k := (i + j) % n
		if s.Units[k].Key {
			return k
		}
	}
	return -1
}

const (
	kindOther byte = iota
	kindParameterSet
	kindDelimiter
	kindSlice
	kindPrefix // SEI before slices
	kindSuffix // SEI after slices
)

type naluKind struct {
	typ   byte
	nalu  byte
	key   bool
	first bool
}

func kindH264(unit []byte) naluKind {
	typ := h264.NALUType(unit)
	switch {
	case h264.IsParameterSet(typ):
		return naluKind{typ: kindParameterSet, nalu: typ}
	case typ == h264.NALUTypeAUD:
		return naluKind{typ: kindDelimiter, nalu: typ}
	case h264.IsVCL(typ):
		return naluKind{
			typ: kindSlice, nalu: typ,
			key: typ == h264.NALUTypeIFrame, first: h264.IsFirstSlice(unit),
		}
	}
	return naluKind{typ: kindPrefix, nalu: typ}
}

func kindH265(unit []byte) naluKind {
	if len(unit) < 2 {
		return naluKind{typ: kindOther}
	}
	typ := h265.NALUType(unit)
	switch {
	case h265.IsParameterSet(typ):
		return naluKind{typ: kindParameterSet, nalu: typ}
	case typ == h265.NALUTypeAUD:
		return naluKind{typ: kindDelimiter, nalu: typ}
	case typ == h265.NALUTypeSuffixSEI:
		return naluKind{typ: kindSuffix, nalu: typ}
	case h265.IsVCL(typ):
		return naluKind{
			typ: kindSlice, nalu: typ,
			key: h265.IsKeyframe(typ), first: h265.IsFirstSlice(unit),
		}
	}
	return naluKind{typ: kindPrefix, nalu: typ}
}
