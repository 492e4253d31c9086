// Package decoder - video decode capabilities for session
package decoder

import (
	"github.com/pkg/errors"
	"github.com/rinsuki-lab/alvr-dive/pkg/session"
)

var ErrClosed = errors.New("decoder: closed")

// New returns factory by config name: null or ffmpeg
func New(name, ffmpegBin string) (session.DecoderFactory, error) {
	switch name {
	case "", "null":
		return NewNull, nil
	case "ffmpeg":
		if ffmpegBin == "" {
			ffmpegBin = "ffmpeg"
		}
		return func(cb session.Callbacks) (session.Decoder, error) {
			return NewFFmpeg(ffmpegBin, cb), nil
		}, nil
	}
	return nil, errors.Errorf("decoder: unknown type %q", name)
}
