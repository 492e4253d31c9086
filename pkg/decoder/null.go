package decoder

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rinsuki-lab/alvr-dive/pkg/h264/annexb"
	"github.com/rinsuki-lab/alvr-dive/pkg/session"
)

// Null decoder acknowledges every chunk without decoding.
// It checks that stream starts with key chunk, like real decoders do.
type Null struct {
	cb     session.Callbacks
	config session.DecoderConfig

	chunks chan *session.Chunk
	done   chan struct{}
	once   sync.Once
}

func NewNull(cb session.Callbacks) (session.Decoder, error) {
	return &Null{cb: cb}, nil
}

func (d *Null) Configure(cfg session.DecoderConfig) error {
	if cfg.Codec == "" {
		return errors.New("null: empty codec")
	}
	if d.chunks != nil {
		return errors.New("null: already configured")
	}

	d.config = cfg
	d.chunks = make(chan *session.Chunk, 64)
	d.done = make(chan struct{})

	go d.worker()

	return nil
}

func (d *Null) Decode(chunk *session.Chunk) error {
	if d.chunks == nil {
		return errors.New("null: not configured")
	}

	select {
	case <-d.done:
		return ErrClosed
	default:
	}

	select {
	case d.chunks <- chunk:
		return nil
	default:
		return errors.New("null: queue overflow")
	}
}

func (d *Null) Close() error {
	d.once.Do(func() {
		if d.done != nil {
			close(d.done)
		}
	})
	return nil
}

func (d *Null) worker() {
	var started bool

	for {
		select {
		case <-d.done:
			return
		case chunk := <-d.chunks:
			if !started {
				if chunk.Type != session.ChunkKey {
					d.cb.Error(errors.New("null: first chunk is not key"))
					return
				}
				started = true
			}

			if err := annexb.CheckFrame(chunk.Data); err != nil {
				d.cb.Error(err)
				return
			}

			d.cb.Output(session.NewFrame(chunk.Timestamp, d.config.Width, d.config.Height, nil, nil))
		}
	}
}
