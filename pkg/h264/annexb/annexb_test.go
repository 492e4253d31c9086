package annexb

import (
	"testing"

	"github.com/rinsuki-lab/alvr-dive/pkg/bits"
	"github.com/stretchr/testify/require"
)

func TestReadStartCode(t *testing.T) {
	for _, b := range [][]byte{
		{0, 0, 1, 0x67},
		{0, 0, 0, 1, 0x67},
	} {
		r := bits.NewReader(b)
		require.Nil(t, ReadStartCode(r))

		v, err := r.ReadByte()
		require.Nil(t, err)
		require.Equal(t, byte(0x67), v)
	}

	for _, b := range [][]byte{
		{0x67, 0x64},
		{0, 1, 0x67},
		{0, 0, 2, 0x67},
		{0, 0, 0},
		{},
	} {
		err := ReadStartCode(bits.NewReader(b))
		require.ErrorIs(t, err, ErrMalformedStartCode, "%x", b)
	}
}

func TestCheckFrame(t *testing.T) {
	require.Nil(t, CheckFrame([]byte{0, 0, 1, 0x65, 0x88}))
	require.ErrorIs(t, CheckFrame([]byte{0, 0, 1, 0xE5}), ErrMalformedHeader)
	require.ErrorIs(t, CheckFrame([]byte{0, 0, 1}), ErrMalformedHeader)
	require.ErrorIs(t, CheckFrame([]byte{1, 0x65}), ErrMalformedStartCode)
}

func TestSplitJoin(t *testing.T) {
	sps := []byte{0x67, 0x64, 0x00, 0x28}
	pps := []byte{0x68, 0xEE, 0x3C, 0x80}

	b := Join(sps, pps)
	require.Equal(t, []byte{0, 0, 0, 1, 0x67, 0x64, 0x00, 0x28, 0, 0, 0, 1, 0x68, 0xEE, 0x3C, 0x80}, b)

	units, err := Split(b)
	require.Nil(t, err)
	require.Equal(t, [][]byte{sps, pps}, units)

	_, err = Split([]byte{0x67, 0x64})
	require.ErrorIs(t, err, ErrMalformedStartCode)
}

func TestPrepend(t *testing.T) {
	ps := []byte{0, 0, 1, 0x67}
	frame := []byte{0, 0, 1, 0x65}

	b := Prepend(ps, frame)
	require.Equal(t, []byte{0, 0, 1, 0x67, 0, 0, 1, 0x65}, b)

	b[3] = 0
	require.Equal(t, byte(0x67), ps[3])
}

func TestRemoveEmulationPrevention(t *testing.T) {
	src := []byte{0x42, 0, 0, 3, 1, 0, 0, 3, 0, 0xAA, 0, 0, 3}
	require.Equal(t, []byte{0x42, 0, 0, 1, 0, 0, 0, 0xAA, 0, 0}, RemoveEmulationPrevention(src))

	// 03 after two zeros followed by big byte is kept
	src = []byte{0, 0, 3, 0x80}
	require.Equal(t, src, RemoveEmulationPrevention(src))
}

func TestScan(t *testing.T) {
	b := []byte{0, 0, 0, 1, 0x67, 0x42, 0, 0, 1, 0x68, 0xCE, 0, 0, 0, 1, 0x65, 0x88, 0x84}

	var units [][]byte
	Scan(b, func(unit []byte) {
		units = append(units, unit)
	})
	require.Equal(t, [][]byte{{0x67, 0x42}, {0x68, 0xCE}, {0x65, 0x88, 0x84}}, units)

	units = nil
	Scan([]byte{0x65, 0x88}, func(unit []byte) {
		units = append(units, unit)
	})
	require.Nil(t, units)
}
