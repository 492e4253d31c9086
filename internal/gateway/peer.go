package gateway

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rinsuki-lab/alvr-dive/internal/metrics"
	"github.com/rinsuki-lab/alvr-dive/pkg/pose"
	"github.com/rinsuki-lab/alvr-dive/pkg/protocol"
	"github.com/rs/zerolog"
)

const writeTimeout = 5 * time.Second

type peer struct {
	ws       *websocket.Conn
	stream   *Stream
	interval time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger

	start time.Time
	cmds  chan string
	done  chan struct{}

	eyes *[2]pose.Fov // last view config from client
}

func newPeer(ws *websocket.Conn, stream *Stream, interval time.Duration, m *metrics.Metrics) *peer {
	return &peer{
		ws:       ws,
		stream:   stream,
		interval: interval,
		metrics:  m,
		log:      log.With().Str("peer", uuid.NewString()[:8]).Logger(),
		start:    time.Now(),
		cmds:     make(chan string, 4),
		done:     make(chan struct{}),
	}
}

// run reads client messages until connection closed, frames are written by separate goroutine
func (p *peer) run() error {
	writerDone := make(chan struct{})
	go func() {
		p.writer()
		close(writerDone)
	}()

	defer func() {
		close(p.done)
		<-writerDone
		_ = p.ws.Close()
	}()

	for {
		typ, b, err := p.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		switch typ {
		case websocket.TextMessage:
			p.handleText(string(b))
		case websocket.BinaryMessage:
			p.handleBinary(b)
		}
	}
}

func (p *peer) handleText(s string) {
	msg, err := protocol.ParseText(s)
	if err != nil {
		p.log.Warn().Err(err).Msg("[gateway] unknown text")
		return
	}

	switch msg.Kind {
	case "hello", "idr":
		p.log.Debug().Msgf("[gateway] %s", msg.Kind)
		select {
		case p.cmds <- msg.Kind:
		default:
			// writer already has pending restart
		}
	case "decoded":
		p.metrics.DecodedAcks.Inc()
		p.log.Trace().Uint64("ts", msg.Timestamp).Msg("[gateway] decoded")
	case "alive":
		p.log.Trace().Uint64("ts", msg.Timestamp).Msg("[gateway] alive")
	}
}

func (p *peer) handleBinary(b []byte) {
	if len(b) < 4 || binary.LittleEndian.Uint32(b) != pose.MessageType {
		p.log.Warn().Int("size", len(b)).Msg("[gateway] unknown binary")
		return
	}

	ts, sample, err := pose.Decode(b)
	if err != nil {
		p.log.Warn().Err(err).Msg("[gateway] pose")
		return
	}

	p.metrics.PosesReceived.Inc()

	eyes := [2]pose.Fov{*sample.Eyes[pose.EyeLeft], *sample.Eyes[pose.EyeRight]}
	if p.eyes == nil || *p.eyes != eyes {
		p.eyes = &eyes
		l, r := eyes[pose.EyeLeft], eyes[pose.EyeRight]
		p.log.Info().
			Floats32("left", []float32{l.Left, l.Right, l.Up, l.Down}).
			Floats32("right", []float32{r.Left, r.Right, r.Up, r.Down}).
			Msg("[gateway] views config")
	}

	p.log.Trace().Uint64("ts", ts).
		Floats32("orientation", []float32{sample.Orientation.X, sample.Orientation.Y, sample.Orientation.Z, sample.Orientation.W}).
		Msg("[gateway] pose")
}

func (p *peer) writer() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var streaming bool
	var i int

	for {
		select {
		case <-p.done:
			return

		case cmd := <-p.cmds:
			if cmd == "hello" {
				if err := p.write(websocket.TextMessage, []byte("dive gateway: "+p.stream.Info)); err != nil {
					p.fail(err)
					return
				}
			}

			msg := &protocol.CreateDecoder{Codec: p.stream.Codec, NAL: p.stream.Init}
			if err := p.write(websocket.BinaryMessage, protocol.Marshal(msg)); err != nil {
				p.fail(err)
				return
			}

			i = p.stream.NextKey(i)
			streaming = true

		case <-ticker.C:
			if !streaming {
				continue
			}

			msg := &protocol.FrameReady{
				Timestamp: uint64(time.Since(p.start).Microseconds()),
				NAL:       p.stream.Units[i].NAL,
			}
			if err := p.write(websocket.BinaryMessage, protocol.Marshal(msg)); err != nil {
				p.fail(err)
				return
			}

			p.metrics.FramesSent.Inc()
			i = (i + 1) % len(p.stream.Units)
		}
	}
}

func (p *peer) write(typ int, b []byte) error {
	_ = p.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.ws.WriteMessage(typ, b)
}

// fail unblocks reader
func (p *peer) fail(err error) {
	p.log.Debug().Err(errors.Wrap(err, "write")).Msg("[gateway] peer")
	_ = p.ws.Close()
}
