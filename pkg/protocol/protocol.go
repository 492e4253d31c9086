// Package protocol - websocket framing between streaming server and client
package protocol

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// server to client binary messages, first 4 bytes little-endian
const (
	TypeFrameReady    = 1
	TypeCreateDecoder = 2
)

type Codec uint32

const (
	CodecH264 Codec = 0
	CodecHEVC Codec = 1
)

func (c Codec) String() string {
	switch c {
	case CodecH264:
		return "h264"
	case CodecHEVC:
		return "hevc"
	}
	return "codec(" + strconv.FormatUint(uint64(c), 10) + ")"
}

// ParseCodec from config name
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "h264", "avc":
		return CodecH264, nil
	case "h265", "hevc":
		return CodecHEVC, nil
	}
	return 0, errors.Errorf("protocol: unknown codec name %q", s)
}

const (
	headerFrameReady    = 24
	headerCreateDecoder = 8
)

var (
	ErrShortMessage   = errors.New("protocol: short message")
	ErrUnknownMessage = errors.New("protocol: unknown message")
)

type CreateDecoder struct {
	Codec Codec
	NAL   []byte // parameter sets with start codes
}

type FrameReady struct {
	Timestamp uint64
	NAL       []byte
}

// Parse server message, returned NAL is a view into b
func Parse(b []byte) (any, error) {
	if len(b) < 4 {
		return nil, errors.Wrapf(ErrShortMessage, "%d bytes", len(b))
	}

	switch typ := binary.LittleEndian.Uint32(b); typ {
	case TypeFrameReady:
		if len(b) < headerFrameReady {
			return nil, errors.Wrapf(ErrShortMessage, "frame ready %d bytes", len(b))
		}
		// server writes u128 at 8..24, client reads it as low | high << 32
		low := binary.LittleEndian.Uint64(b[8:])
		high := binary.LittleEndian.Uint64(b[16:])
		return &FrameReady{Timestamp: low | high<<32, NAL: b[headerFrameReady:]}, nil

	case TypeCreateDecoder:
		if len(b) < headerCreateDecoder {
			return nil, errors.Wrapf(ErrShortMessage, "create decoder %d bytes", len(b))
		}
		codec := Codec(binary.LittleEndian.Uint32(b[4:]))
		return &CreateDecoder{Codec: codec, NAL: b[headerCreateDecoder:]}, nil

	default:
		return nil, errors.Wrapf(ErrUnknownMessage, "type %d", typ)
	}
}

// Marshal server message: *CreateDecoder or *FrameReady
func Marshal(msg any) []byte {
	switch msg := msg.(type) {
	case *CreateDecoder:
		b := make([]byte, headerCreateDecoder+len(msg.NAL))
		binary.LittleEndian.PutUint32(b, TypeCreateDecoder)
		binary.LittleEndian.PutUint32(b[4:], uint32(msg.Codec))
		copy(b[headerCreateDecoder:], msg.NAL)
		return b

	case *FrameReady:
		// server sets only first byte of type and u128 microseconds at 8..24
		b := make([]byte, headerFrameReady+len(msg.NAL))
		b[0] = TypeFrameReady
		binary.LittleEndian.PutUint64(b[8:], msg.Timestamp)
		copy(b[headerFrameReady:], msg.NAL)
		return b
	}
	return nil
}
