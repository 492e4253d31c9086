// Package annexb - universal for H264 and H265
package annexb

import (
	"bytes"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/pkg/errors"
	"github.com/rinsuki-lab/alvr-dive/pkg/bits"
)

const StartCode = "\x00\x00\x00\x01"

var (
	ErrMalformedStartCode = errors.New("annexb: malformed start code")
	ErrMalformedHeader    = errors.New("annexb: malformed nal header")
	ErrUnexpectedType     = errors.New("annexb: unexpected nal type")
)

// ReadStartCode consumes zero bytes and the terminating 0x01 byte.
// At least two zero bytes are required (3 or 4 bytes start code).
func ReadStartCode(r *bits.Reader) error {
	var zeros int
	for {
		b, err := r.ReadByte()
		if err != nil {
			return errors.Wrapf(ErrMalformedStartCode, "%d zero bytes and no terminator", zeros)
		}
		if b != 0 {
			if zeros < 2 {
				return errors.Wrapf(ErrMalformedStartCode, "only %d zero bytes", zeros)
			}
			if b != 1 {
				return errors.Wrapf(ErrMalformedStartCode, "terminator 0x%02x", b)
			}
			return nil
		}
		zeros++
	}
}

// ReadForbiddenBit reads the first bit of NAL header, it must be zero
func ReadForbiddenBit(r *bits.Reader) error {
	b, err := r.ReadBit()
	if err != nil {
		return errors.Wrap(ErrMalformedHeader, "empty nal")
	}
	if b != 0 {
		return errors.Wrap(ErrMalformedHeader, "forbidden_zero_bit not 0")
	}
	return nil
}

// CheckFrame validates start code and forbidden bit of coded frame
func CheckFrame(nal []byte) error {
	r := bits.NewReader(nal)
	if err := ReadStartCode(r); err != nil {
		return err
	}
	return ReadForbiddenBit(r)
}

// Split returns NAL units without start codes
func Split(b []byte) ([][]byte, error) {
	var au h264.AnnexB
	if err := au.Unmarshal(b); err != nil {
		return nil, errors.Wrap(ErrMalformedStartCode, err.Error())
	}
	return au, nil
}

// Scan calls fn for every NAL unit (without start code) in long AnnexB stream.
// Unlike Split it has no limit on units count, so it can be used for whole files.
func Scan(b []byte, fn func(unit []byte)) {
	i := bytes.Index(b, []byte(StartCode[1:]))
	if i < 0 {
		return
	}
	b = b[i+3:]

	for len(b) > 0 {
		j := bytes.Index(b, []byte(StartCode[1:]))
		if j < 0 {
			fn(b)
			return
		}

		unit := b[:j]
		// 4 bytes start code leaves zero at the end of previous unit
		for len(unit) > 0 && unit[len(unit)-1] == 0 {
			unit = unit[:len(unit)-1]
		}
		if len(unit) > 0 {
			fn(unit)
		}

		b = b[j+3:]
	}
}

// Join NAL units with 4 bytes start codes
func Join(units ...[]byte) []byte {
	n := 0
	for _, unit := range units {
		n += len(StartCode) + len(unit)
	}

	b := make([]byte, 0, n)
	for _, unit := range units {
		b = append(b, StartCode...)
		b = append(b, unit...)
	}
	return b
}

// Prepend parameter sets to frame, result is always a new slice
func Prepend(ps, frame []byte) []byte {
	b := make([]byte, len(ps)+len(frame))
	i := copy(b, ps)
	copy(b[i:], frame)
	return b
}

// RemoveEmulationPrevention replaces 00 00 03 with 00 00
func RemoveEmulationPrevention(b []byte) []byte {
	dst := make([]byte, 0, len(b))
	var zeros int
	for i, c := range b {
		if zeros >= 2 && c == 3 && (i+1 == len(b) || b[i+1] <= 3) {
			zeros = 0
			continue
		}
		dst = append(dst, c)
		if c == 0 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return dst
}
