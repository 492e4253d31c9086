package gateway

import (
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rinsuki-lab/alvr-dive/internal/api"
	"github.com/rinsuki-lab/alvr-dive/internal/app"
	"github.com/rinsuki-lab/alvr-dive/internal/metrics"
	"github.com/rinsuki-lab/alvr-dive/pkg/discovery"
	"github.com/rinsuki-lab/alvr-dive/pkg/protocol"
	"github.com/rs/zerolog"
)

type Config struct {
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
	Origin string `yaml:"origin"`
	File   string `yaml:"file"`
	Codec  string `yaml:"codec"`
	FPS    int    `yaml:"fps"`
	MDNS   bool   `yaml:"mdns"`
	Name   string `yaml:"name"`
}

func Init() {
	var cfg struct {
		Mod Config `yaml:"gateway"`
	}

	// default config
	cfg.Mod = Config{
		Listen: ":5999",
		Path:   "/websocket",
		Codec:  "h264",
		FPS:    60,
		MDNS:   true,
		Name:   "dive",
	}

	app.LoadConfig(&cfg)

	log = app.GetLogger("gateway")

	if cfg.Mod.File == "" {
		log.Error().Msg("[gateway] file is required")
		return
	}

	codec, err := protocol.ParseCodec(cfg.Mod.Codec)
	if err != nil {
		log.Error().Err(err).Msg("[gateway] codec")
		return
	}

	stream, err := OpenStream(cfg.Mod.File, codec)
	if err != nil {
		log.Error().Err(err).Str("file", cfg.Mod.File).Msg("[gateway] open")
		return
	}

	log.Info().Str("file", cfg.Mod.File).Str("codec", stream.Info).
		Int("frames", len(stream.Units)).Msg("[gateway] stream")

	srv := NewServer(stream, cfg.Mod, metrics.Default)

	ln, err := net.Listen("tcp", cfg.Mod.Listen)
	if err != nil {
		log.Error().Err(err).Msg("[gateway] listen")
		return
	}

	log.Info().Str("addr", cfg.Mod.Listen).Msg("[gateway] listen")

	if cfg.Mod.MDNS {
		port := ln.Addr().(*net.TCPAddr).Port
		if mdnsServer, err = discovery.NewServer(cfg.Mod.Name, port, cfg.Mod.Path); err != nil {
			log.Warn().Err(err).Msg("[gateway] mdns")
		} else {
			log.Debug().Str("name", cfg.Mod.Name).Msg("[gateway] mdns advertise")
		}
	}

	go func() {
		server := http.Server{
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		if err := server.Serve(ln); err != nil {
			log.Fatal().Err(err).Msg("[gateway] serve")
		}
	}()
}

// Close stops mDNS advertisement
func Close() {
	if mdnsServer != nil {
		_ = mdnsServer.Shutdown()
	}
}

// replaced by app logger in Init
var log = zerolog.Nop()
var mdnsServer *mdns.Server

// Server replays stream to every connected client
type Server struct {
	stream  *Stream
	config  Config
	metrics *metrics.Metrics
}

func NewServer(stream *Stream, config Config, m *metrics.Metrics) *Server {
	if config.FPS <= 0 {
		config.FPS = 60
	}
	if config.Path == "" {
		config.Path = "/websocket"
	}
	return &Server{stream: stream, config: config, metrics: m}
}

func (s *Server) Handler() http.Handler {
	r := api.NewRouter("", "", s.config.Origin)
	r.Get(s.config.Path, s.handleWS)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		api.ResponseJSON(w, map[string]any{
			"codec":  s.stream.Info,
			"frames": len(s.stream.Units),
			"path":   s.config.Path,
		})
	})
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := api.NewUpgrader(s.config.Origin).Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Caller().Msgf("host=%s origin=%s", r.Host, r.Header.Get("Origin"))
		return
	}

	p := newPeer(ws, s.stream, time.Second/time.Duration(s.config.FPS), s.metrics)

	s.metrics.Clients.Inc()
	defer s.metrics.Clients.Dec()

	p.log.Info().Str("remote", r.RemoteAddr).Msg("[gateway] client connected")
	err = p.run()
	p.log.Info().Err(err).Msg("[gateway] client disconnected")
}
