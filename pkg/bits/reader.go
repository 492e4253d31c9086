package bits

import "github.com/pkg/errors"

var (
	ErrOutOfRange     = errors.New("bits: out of range")
	ErrInvalidWidth   = errors.New("bits: invalid width")
	ErrGolombOverflow = errors.New("bits: exp-golomb code too long")
)

// Reader reads big-endian bit fields from a byte slice.
// First error is sticky: all following reads return it.
type Reader struct {
	buf  []byte // total buf
	byte byte   // current byte
	bits byte   // bits left in byte
	pos  int    // current pos in buf
	err  error
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) ReadBit() (byte, error) {
	if r.err != nil {
		return 0, r.err
	}

	if r.bits == 0 {
		if r.pos >= len(r.buf) {
			r.err = ErrOutOfRange
			return 0, r.err
		}
		r.byte = r.buf[r.pos]
		r.pos++
		r.bits = 7
	} else {
		r.bits--
	}

	return (r.byte >> r.bits) & 0b1, nil
}

// ReadBits reads n bits, 1 <= n <= 32, most-significant first
func (r *Reader) ReadBits(n byte) (res uint32, err error) {
	if n == 0 || n > 32 {
		return 0, ErrInvalidWidth
	}
	if err = r.ensure(int(n)); err != nil {
		return 0, err
	}
	for i := n - 1; i != 255; i-- {
		b, _ := r.ReadBit()
		res |= uint32(b) << i
	}
	return
}

func (r *Reader) ReadBits8(n byte) (uint8, error) {
	if n > 8 {
		return 0, ErrInvalidWidth
	}
	v, err := r.ReadBits(n)
	return uint8(v), err
}

func (r *Reader) ReadBits64(n byte) (res uint64, err error) {
	if n == 0 || n > 64 {
		return 0, ErrInvalidWidth
	}
	if err = r.ensure(int(n)); err != nil {
		return 0, err
	}
	for i := n - 1; i != 255; i-- {
		b, _ := r.ReadBit()
		res |= uint64(b) << i
	}
	return
}

//goland:noinspection GoStandardMethods
func (r *Reader) ReadByte() (byte, error) {
	return r.ReadBits8(8)
}

func (r *Reader) ReadFlag() (bool, error) {
	b, err := r.ReadBit()
	return b == 1, err
}

// Skip moves cursor forward by n bits
func (r *Reader) Skip(n int) error {
	if err := r.ensure(n); err != nil {
		return err
	}
	for ; n > 0; n-- {
		_, _ = r.ReadBit()
	}
	return nil
}

// ReadUEGolomb - ReadExponentialGolomb (unsigned)
func (r *Reader) ReadUEGolomb() (uint32, error) {
	var size byte
	for {
		b, err := r.ReadBit()
		if err != nil {
			return 0, err
		}
		if b != 0 {
			break
		}
		if size++; size > 31 {
			r.err = ErrGolombOverflow
			return 0, r.err
		}
	}
	if size == 0 {
		return 0, nil
	}
	suffix, err := r.ReadBits(size)
	if err != nil {
		return 0, err
	}
	return (1 << size) - 1 + suffix, nil
}

// Left returns unread bits count
func (r *Reader) Left() int {
	return (len(r.buf)-r.pos)*8 + int(r.bits)
}

// Pos returns current byte index and bits left in it
func (r *Reader) Pos() (int, byte) {
	return r.pos, r.bits
}

func (r *Reader) ensure(n int) error {
	if r.err != nil {
		return r.err
	}
	if n > r.Left() {
		r.err = ErrOutOfRange
		return r.err
	}
	return nil
}
