// Package pose - head-mounted display tracking uplink record
package pose

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

const (
	// MessageType - tag of tracking record, client to server
	MessageType = 1

	Size = 4 + 8 + 21*4

	offsetFloats = 12
)

var ErrShortRecord = errors.New("pose: short record")

type Quat struct {
	X, Y, Z, W float32
}

type Vec3 struct {
	X, Y, Z float32
}

// Fov - angles in radians, left and up are negative for symmetric view
type Fov struct {
	Left, Right, Up, Down float32
}

const (
	EyeLeft = iota
	EyeRight
)

// Sample - viewer pose for one render tick, nil fields are sent as zeros
type Sample struct {
	Orientation     Quat
	Position        Vec3
	LinearVelocity  *Vec3
	AngularVelocity *Vec3
	Eyes            [2]*Fov
}

// Encode - fixed size little-endian record with timestamp in microseconds
func Encode(ts uint64, s *Sample) []byte {
	return AppendEncode(make([]byte, 0, Size), ts, s)
}

func AppendEncode(b []byte, ts uint64, s *Sample) []byte {
	b = binary.LittleEndian.AppendUint32(b, MessageType)
	b = binary.LittleEndian.AppendUint64(b, ts)

	b = appendFloats(b, s.Orientation.X, s.Orientation.Y, s.Orientation.Z, s.Orientation.W)
	b = appendFloats(b, s.Position.X, s.Position.Y, s.Position.Z)
	b = appendVec3(b, s.LinearVelocity)
	b = appendVec3(b, s.AngularVelocity)

	for _, fov := range s.Eyes {
		if fov != nil {
			b = appendFloats(b, fov.Left, fov.Right, fov.Up, fov.Down)
		} else {
			b = appendFloats(b, 0, 0, 0, 0)
		}
	}

	return b
}

// Decode - record from client, velocities and eyes are always non-nil
func Decode(b []byte) (uint64, *Sample, error) {
	if len(b) < Size {
		return 0, nil, ErrShortRecord
	}

	ts := binary.LittleEndian.Uint64(b[4:])

	var f [21]float32
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[offsetFloats+i*4:]))
	}

	s := &Sample{
		Orientation:     Quat{f[0], f[1], f[2], f[3]},
		Position:        Vec3{f[4], f[5], f[6]},
		LinearVelocity:  &Vec3{f[7], f[8], f[9]},
		AngularVelocity: &Vec3{f[10], f[11], f[12]},
		Eyes: [2]*Fov{
			{f[13], f[14], f[15], f[16]},
			{f[17], f[18], f[19], f[20]},
		},
	}

	return ts, s, nil
}

// FovFromProjection - eye angles from projection matrix elements [0] and [5]
func FovFromProjection(m0, m5 float64) *Fov {
	fovX := float32(math.Atan(1/m0) * 2)
	fovY := float32(math.Atan(1/m5) * 2)
	return &Fov{Left: -fovX, Right: fovX, Up: -fovY, Down: fovY}
}

func appendVec3(b []byte, v *Vec3) []byte {
	if v == nil {
		return appendFloats(b, 0, 0, 0)
	}
	return appendFloats(b, v.X, v.Y, v.Z)
}

func appendFloats(b []byte, f ...float32) []byte {
	for _, v := range f {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}
