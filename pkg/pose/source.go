package pose

import (
	"math"
	"time"
)

// Source - pose provider for render loop
type Source interface {
	Sample(elapsed time.Duration) *Sample
}

// StaticSource - headless viewer standing at Position, optionally turning around Y axis
type StaticSource struct {
	Position Vec3
	FovX     float64 // degrees
	FovY     float64 // degrees
	YawRate  float64 // degrees per second
}

func (s *StaticSource) Sample(elapsed time.Duration) *Sample {
	yaw := s.YawRate * elapsed.Seconds() * math.Pi / 180
	sin, cos := math.Sincos(yaw / 2)

	// same math as client with projection matrix from symmetric frustum
	m0 := 1 / math.Tan(s.FovX*math.Pi/360)
	m5 := 1 / math.Tan(s.FovY*math.Pi/360)

	return &Sample{
		Orientation:     Quat{Y: float32(sin), W: float32(cos)},
		Position:        s.Position,
		AngularVelocity: &Vec3{Y: float32(s.YawRate * math.Pi / 180)},
		Eyes:            [2]*Fov{FovFromProjection(m0, m5), FovFromProjection(m0, m5)},
	}
}
