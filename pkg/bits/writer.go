package bits

type Writer struct {
	buf  []byte // total buf
	byte byte   // current byte
	bits byte   // bits left in byte
	len  int    // current len of buf
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) WriteBit(b byte) {
	if w.bits == 0 {
		if w.len != 0 {
			w.buf = append(w.buf, w.byte)
		}

		w.byte = 0
		w.bits = 7
		w.len++
	} else {
		w.bits--
	}

	w.byte |= (b & 0b1) << w.bits
}

func (w *Writer) WriteBits(v uint32, n byte) {
	for i := n - 1; i != 255; i-- {
		w.WriteBit(byte(v>>i) & 0b1)
	}
}

func (w *Writer) WriteBits64(v uint64, n byte) {
	for i := n - 1; i != 255; i-- {
		w.WriteBit(byte(v>>i) & 0b1)
	}
}

// WriteUEGolomb - WriteExponentialGolomb (unsigned)
func (w *Writer) WriteUEGolomb(v uint32) {
	x := uint64(v) + 1

	var size byte
	for tmp := x; tmp > 1; tmp >>= 1 {
		size++
	}

	w.WriteBits64(0, size)
	w.WriteBits64(x, size+1)
}

// Bytes returns written data, last byte is padded with zero bits
func (w *Writer) Bytes() []byte {
	if w.len == 0 {
		return nil
	}
	return append(w.buf, w.byte)
}
