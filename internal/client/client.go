package client

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rinsuki-lab/alvr-dive/internal/app"
	"github.com/rinsuki-lab/alvr-dive/internal/metrics"
	"github.com/rinsuki-lab/alvr-dive/pkg/decoder"
	"github.com/rinsuki-lab/alvr-dive/pkg/discovery"
	"github.com/rinsuki-lab/alvr-dive/pkg/ffmpeg"
	"github.com/rinsuki-lab/alvr-dive/pkg/pose"
	"github.com/rinsuki-lab/alvr-dive/pkg/protocol"
	"github.com/rinsuki-lab/alvr-dive/pkg/session"
	"github.com/rs/zerolog"
)

type Config struct {
	URL             string        `yaml:"url"`
	Decoder         string        `yaml:"decoder"`
	FFmpeg          string        `yaml:"ffmpeg"`
	RefreshRate     int           `yaml:"refresh_rate"`
	Fov             float64       `yaml:"fov"`
	YawRate         float64       `yaml:"yaw_rate"`
	DiscoverTimeout time.Duration `yaml:"discover_timeout"`
	Queue           int           `yaml:"queue"`
}

var ErrClosedBySession = errors.New("client: transport closed by session")

func Init() {
	var cfg struct {
		Mod Config `yaml:"client"`
	}

	// default config
	cfg.Mod = Config{
		Decoder:         "null",
		FFmpeg:          "ffmpeg",
		RefreshRate:     90,
		Fov:             100,
		DiscoverTimeout: 3 * time.Second,
		Queue:           session.DefaultQueueSize,
	}

	app.LoadConfig(&cfg)

	log = app.GetLogger("client")
	config = cfg.Mod
}

// Run connects with config from Init and blocks until connection closed
func Run(ctx context.Context) error {
	factory, err := decoder.New(config.Decoder, config.FFmpeg)
	if err != nil {
		return err
	}

	if config.Decoder == "ffmpeg" {
		version, err := ffmpeg.Version(config.FFmpeg)
		if err != nil {
			return errors.Wrap(err, "client: ffmpeg")
		}
		log.Info().Str("version", version).Msg("[client] ffmpeg")
	}

	source := &pose.StaticSource{FovX: config.Fov, FovY: config.Fov, YawRate: config.YawRate}

	return NewClient(config, factory, source, metrics.Default).Run(ctx)
}

// replaced by app logger in Init
var log = zerolog.Nop()
var config Config

type Client struct {
	config  Config
	factory session.DecoderFactory
	source  pose.Source
	metrics *metrics.Metrics
	log     zerolog.Logger

	ws      *websocket.Conn
	start   time.Time
	dropped uint64
}

func NewClient(config Config, factory session.DecoderFactory, source pose.Source, m *metrics.Metrics) *Client {
	if config.RefreshRate <= 0 {
		config.RefreshRate = 90
	}
	return &Client{
		config:  config,
		factory: factory,
		source:  source,
		metrics: m,
		log:     log.With().Str("session", uuid.NewString()[:8]).Logger(),
	}
}

type message struct {
	typ  int
	data []byte
}

func (c *Client) Run(ctx context.Context) (err error) {
	url := c.config.URL
	if url == "" {
		c.log.Debug().Msg("[client] discover gateway")
		if url, err = discovery.Lookup(ctx, c.config.DiscoverTimeout); err != nil {
			return err
		}
	}

	c.log.Info().Str("url", url).Msg("[client] connect")

	header := http.Header{"User-Agent": []string{app.UserAgent}}
	if c.ws, _, err = websocket.DefaultDialer.DialContext(ctx, url, header); err != nil {
		return errors.Wrap(err, "client: dial")
	}
	defer c.ws.Close()

	sess := session.New(c.factory, c.config.Queue)
	defer func() {
		if err := sess.Close(); err != nil {
			c.log.Debug().Err(err).Msg("[client] close decoder")
		}
		c.metrics.SessionState.Set(float64(sess.State()))
	}()

	disp := session.NewDispatcher(sess)
	disp.OnText = func(text string) {
		c.log.Info().Msgf("[client] hud: %s", text)
	}
	disp.OnMessage = func(msg any) {
		switch msg := msg.(type) {
		case *protocol.CreateDecoder:
			c.log.Debug().Stringer("codec", msg.Codec).Int("size", len(msg.NAL)).Msg("[client] create decoder")
		case *protocol.FrameReady:
			c.metrics.FramesReceived.Inc()
			c.metrics.FrameSize.Observe(float64(len(msg.NAL)))
			c.log.Trace().Uint64("ts", msg.Timestamp).Int("size", len(msg.NAL)).Msg("[client] frame ready")
		}
	}

	c.start = time.Now()

	if err = c.write(protocol.TextHello); err != nil {
		return err
	}
	if err = c.write(protocol.Alive(c.now())); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)

	inbound := make(chan message, 16)
	readErr := make(chan error, 1)

	go func() {
		for {
			typ, data, err := c.ws.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case inbound <- message{typ: typ, data: data}:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(c.config.RefreshRate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return nil

		case err = <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Info().Msg("[client] closed by server")
				return nil
			}
			return errors.Wrap(err, "client: read")

		case msg := <-inbound:
			switch msg.typ {
			case websocket.TextMessage:
				disp.HandleText(string(msg.data))
			case websocket.BinaryMessage:
				if err = disp.HandleBinary(msg.data); err != nil {
					c.log.Debug().Err(err).Msg("[client] handle")
				}
			}

		case ev := <-sess.Events():
			if err = sess.Handle(ev); err != nil {
				c.log.Debug().Err(err).Msg("[client] decoder event")
			}

		case <-ticker.C:
			if err = c.tick(); err != nil {
				return err
			}
		}

		if err = c.flush(sess); err != nil {
			return err
		}
	}
}

// tick - render loop step: keepalive and current pose
func (c *Client) tick() error {
	ts := c.now()

	if err := c.write(protocol.Alive(ts)); err != nil {
		return err
	}

	sample := c.source.Sample(time.Since(c.start))
	if err := c.writeBinary(pose.Encode(ts, sample)); err != nil {
		return err
	}

	c.metrics.PosesSent.Inc()
	return nil
}

// flush executes session outputs
func (c *Client) flush(sess *session.Session) error {
	for _, out := range sess.Drain() {
		switch out.Kind {
		case session.OutputText:
			switch {
			case out.Text == protocol.TextRequestIDR:
				c.metrics.IDRRequests.Inc()
				c.metrics.DecodeErrors.Inc()
				c.log.Warn().Msg("[client] decode failure, request idr")
			case strings.HasPrefix(out.Text, "decoded:"):
				c.metrics.FramesDecoded.Inc()
			}
			if err := c.write(out.Text); err != nil {
				return err
			}
		case session.OutputNotify:
			c.log.Warn().Msgf("[client] %s", out.Text)
		case session.OutputClose:
			return ErrClosedBySession
		}
	}

	if dropped := sess.Dropped(); dropped > c.dropped {
		c.metrics.FramesDropped.Add(float64(dropped - c.dropped))
		c.dropped = dropped
	}

	c.metrics.SessionState.Set(float64(sess.State()))

	return nil
}

func (c *Client) now() uint64 {
	return uint64(time.Since(c.start).Microseconds())
}

func (c *Client) write(text string) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return errors.Wrap(err, "client: write")
	}
	return nil
}

func (c *Client) writeBinary(b []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return errors.Wrap(err, "client: write")
	}
	return nil
}
