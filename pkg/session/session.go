// Package session - decoder lifecycle driven by server messages and decoder callbacks
package session

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rinsuki-lab/alvr-dive/pkg/bits"
	"github.com/rinsuki-lab/alvr-dive/pkg/h264"
	"github.com/rinsuki-lab/alvr-dive/pkg/h264/annexb"
	"github.com/rinsuki-lab/alvr-dive/pkg/h265"
	"github.com/rinsuki-lab/alvr-dive/pkg/protocol"
)

type State byte

const (
	StateUninitialized State = iota
	StateAwaitingKeyframe
	StateStreaming
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingKeyframe:
		return "awaiting_keyframe"
	case StateStreaming:
		return "streaming"
	case StateFaulted:
		return "faulted"
	}
	return "unknown"
}

var (
	ErrUnsupportedCodec     = errors.New("session: unsupported codec")
	ErrDecoderConfiguration = errors.New("session: decoder configuration failure")
	ErrDecodeFailure        = errors.New("session: decode failure")
)

type OutputKind byte

const (
	OutputText   OutputKind = iota // text message to server
	OutputNotify                   // user visible message
	OutputClose                    // close transport
)

type Output struct {
	Kind OutputKind
	Text string
}

// events from decoder callbacks, gen is decoder generation
type frameDecoded struct {
	gen   uint64
	frame *Frame
}

type decodeError struct {
	gen uint64
	err error
}

const DefaultQueueSize = 16

// Session is not safe for concurrent use, except decoder callbacks,
// which only post events to the queue returned by Events.
type Session struct {
	factory DecoderFactory

	state   State
	decoder Decoder
	gen     uint64
	config  DecoderConfig
	prefix  []byte // parameter sets for first key frame
	last    *Frame

	outputs []Output

	events    chan any
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
}

func New(factory DecoderFactory, queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Session{
		factory: factory,
		events:  make(chan any, queueSize),
		done:    make(chan struct{}),
	}
}

func (s *Session) State() State {
	return s.state
}

// Config of current decoder
func (s *Session) Config() DecoderConfig {
	return s.config
}

// Events - decoder callbacks queue, each value should be passed to Handle
func (s *Session) Events() <-chan any {
	return s.events
}

// Dropped - decoded frames released because queue was full
func (s *Session) Dropped() uint64 {
	return s.dropped.Load()
}

// LastFrame - most recent decoded frame, owned by session
func (s *Session) LastFrame() *Frame {
	return s.last
}

// Drain returns side effects of handled events
func (s *Session) Drain() []Output {
	outputs := s.outputs
	s.outputs = nil
	return outputs
}

// Handle processes server message or decoder event
func (s *Session) Handle(event any) error {
	switch ev := event.(type) {
	case *protocol.CreateDecoder:
		return s.createDecoder(ev)
	case *protocol.FrameReady:
		return s.frameReady(ev)
	case *frameDecoded:
		s.frameDecoded(ev)
		return nil
	case *decodeError:
		if ev.gen != s.gen {
			return nil // from closed decoder
		}
		return s.decodeFailed(ev.err)
	}
	return errors.Errorf("session: unknown event %T", event)
}

// Close releases decoder and last frame, should be called on transport close
func (s *Session) Close() (err error) {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	if s.decoder != nil {
		err = s.decoder.Close()
		s.decoder = nil
	}
	s.gen++
	if s.last != nil {
		s.last.Close()
		s.last = nil
	}
	s.prefix = nil
	s.state = StateUninitialized
	s.drain()
	return
}

// drain releases frames left in the queue after Close
func (s *Session) drain() {
	for {
		select {
		case ev := <-s.events:
			if ev, ok := ev.(*frameDecoded); ok {
				ev.frame.Close()
			}
		default:
			return
		}
	}
}

func (s *Session) createDecoder(msg *protocol.CreateDecoder) error {
	s.closeDecoder()
	s.state = StateUninitialized

	cfg := DecoderConfig{OptimizeForLatency: true}

	switch msg.Codec {
	case protocol.CodecH264:
		sps, err := h264.ParseSPS(msg.NAL)
		if err != nil {
			return s.parseFailed(err)
		}
		cfg.Codec, cfg.Width, cfg.Height = sps.Codec(), sps.Width, sps.Height

	case protocol.CodecHEVC:
		conf, err := h265.ParseConfig(msg.NAL)
		if err != nil {
			return s.parseFailed(err)
		}
		cfg.Codec, cfg.Width, cfg.Height = conf.Codec(), conf.Width(), conf.Height()

	default:
		err := errors.Wrapf(ErrUnsupportedCodec, "%s", msg.Codec)
		s.notify(err)
		return err
	}

	dec, err := s.factory(s.callbacks(s.gen))
	if err == nil {
		if err = dec.Configure(cfg); err != nil {
			_ = dec.Close()
		}
	}
	if err != nil {
		err = errors.Wrapf(ErrDecoderConfiguration, "%s: %v", cfg.Codec, err)
		s.notify(err)
		return err
	}

	s.decoder = dec
	s.config = cfg
	s.prefix = bytes.Clone(msg.NAL)
	s.state = StateAwaitingKeyframe

	return nil
}

func (s *Session) frameReady(msg *protocol.FrameReady) error {
	if s.decoder == nil {
		return nil // nothing to do without decoder
	}

	r := bits.NewReader(msg.NAL)
	if err := annexb.ReadStartCode(r); err != nil {
		s.notify(err)
		s.outputs = append(s.outputs, Output{Kind: OutputClose})
		return err
	}
	if err := annexb.ReadForbiddenBit(r); err != nil {
		s.notify(err)
		return err
	}

	chunk := &Chunk{Timestamp: msg.Timestamp}

	if s.state == StateAwaitingKeyframe {
		chunk.Type = ChunkKey
		chunk.Data = annexb.Prepend(s.prefix, msg.NAL)
		s.prefix = nil
		s.state = StateStreaming
	} else {
		chunk.Type = ChunkDelta
		chunk.Data = msg.NAL
	}

	if err := s.decoder.Decode(chunk); err != nil {
		return s.decodeFailed(err)
	}

	return nil
}

func (s *Session) frameDecoded(ev *frameDecoded) {
	if ev.gen != s.gen {
		ev.frame.Close()
		return
	}

	s.text(protocol.Decoded(ev.frame.Timestamp))

	if s.last != nil {
		s.last.Close()
	}
	s.last = ev.frame
}

func (s *Session) decodeFailed(err error) error {
	s.closeDecoder()
	s.state = StateFaulted
	s.text(protocol.TextRequestIDR)
	return errors.Wrap(ErrDecodeFailure, err.Error())
}

func (s *Session) parseFailed(err error) error {
	s.notify(err)
	// protocol desync, can't be fixed locally
	if errors.Is(err, annexb.ErrMalformedStartCode) || errors.Is(err, annexb.ErrMalformedHeader) {
		s.outputs = append(s.outputs, Output{Kind: OutputClose})
	}
	return err
}

// closeDecoder also invalidates callbacks of old decoder
func (s *Session) closeDecoder() {
	if s.decoder != nil {
		_ = s.decoder.Close()
		s.decoder = nil
	}
	s.gen++
	s.prefix = nil
}

func (s *Session) callbacks(gen uint64) Callbacks {
	return Callbacks{
		Output: func(frame *Frame) {
			select {
			case <-s.done:
				frame.Close()
				return
			default:
			}
			select {
			case s.events <- &frameDecoded{gen: gen, frame: frame}:
			default:
				frame.Close()
				s.dropped.Add(1)
			}
		},
		Error: func(err error) {
			ev := &decodeError{gen: gen, err: err}
			select {
			case s.events <- ev:
			default:
				// errors can't be dropped, but decoder goroutine mustn't block
				go func() {
					select {
					case s.events <- ev:
					case <-s.done:
					}
				}()
			}
		},
	}
}

func (s *Session) text(text string) {
	s.outputs = append(s.outputs, Output{Kind: OutputText, Text: text})
}

func (s *Session) notify(err error) {
	s.outputs = append(s.outputs, Output{Kind: OutputNotify, Text: err.Error()})
}
