package app

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Log section of config. Reserved keys below, any other key is a module level:
//
//	log:
//	  level: info    # trace, debug, info, warn, error, disabled
//	  output: stderr # stderr, stdout, empty - only MemoryLog
//	  format: ""     # color, text, json, empty - color if output is terminal
//	  time: UNIXMS   # UNIXMS, UNIXMICRO, UNIXNANO, empty - no timestamps
//	  client: debug  # module level
const (
	keyLevel  = "level"
	keyOutput = "output"
	keyFormat = "format"
	keyTime   = "time"

	defaultLevel  = "info"
	defaultOutput = "stderr"
	defaultTime   = zerolog.TimeFormatUnixMs

	consoleTime = "15:04:05.000"
)

// MemoryLog holds last memoryChunks * chunkSize bytes (2 MiB) for /api/log
const (
	memoryChunks = 32
	chunkSize    = 1 << 16
)

var MemoryLog = newBuffer(memoryChunks)

var Logger zerolog.Logger

var modules = map[string]string{
	keyLevel:  defaultLevel,
	keyOutput: defaultOutput,
	keyFormat: "",
	keyTime:   defaultTime,
}

// GetLogger returns Logger with module level, if one is configured
func GetLogger(module string) zerolog.Logger {
	s, ok := modules[module]
	if !ok {
		return Logger
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		Logger.Warn().Err(err).Str("module", module).Msg("[app] log level")
		return Logger
	}
	return Logger.Level(lvl)
}

func initLogger() {
	var cfg struct {
		Mod map[string]string `yaml:"log"`
	}

	cfg.Mod = modules

	LoadConfig(&cfg)

	Logger = newLogger(modules)
}

func newLogger(conf map[string]string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(conf[keyLevel])
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(newWriter(conf)).Level(lvl)

	if tf := conf[keyTime]; tf != "" {
		zerolog.TimeFieldFormat = tf
		logger = logger.With().Timestamp().Logger()
	}
	return logger
}

// newWriter always copies to MemoryLog
func newWriter(conf map[string]string) io.Writer {
	var out *os.File
	switch conf[keyOutput] {
	case "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		return MemoryLog
	}

	if conf[keyFormat] == "json" {
		return zerolog.MultiLevelWriter(out, MemoryLog)
	}

	console := newConsole(out, conf[keyFormat], conf[keyTime] != "")
	return zerolog.MultiLevelWriter(console, MemoryLog)
}

func newConsole(out *os.File, format string, withTime bool) *zerolog.ConsoleWriter {
	console := &zerolog.ConsoleWriter{Out: out}

	switch format {
	case "text":
		console.NoColor = true
	case "color":
	default:
		console.NoColor = !isatty.IsTerminal(out.Fd())
	}

	if withTime {
		console.TimeFormat = consoleTime
	} else {
		console.PartsOrder = []string{
			zerolog.LevelFieldName,
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		}
	}
	return console
}

// circularBuffer - ring of fixed size chunks, oldest chunk is overwritten.
// Logger writes from any goroutine while API reads it.
type circularBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
	r, w   int
}

func newBuffer(chunks int) *circularBuffer {
	b := &circularBuffer{chunks: make([][]byte, 0, chunks)}
	b.chunks = append(b.chunks, make([]byte, 0, chunkSize))
	return b
}

func (b *circularBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.chunks[b.w])+len(p) > chunkSize {
		b.next()
	}

	b.chunks[b.w] = append(b.chunks[b.w], p...)
	return len(p), nil
}

// next moves write index, pushing read index when ring is full
func (b *circularBuffer) next() {
	b.w = (b.w + 1) % cap(b.chunks)
	if b.w == b.r {
		b.r = (b.r + 1) % cap(b.chunks)
	}

	if b.w == len(b.chunks) {
		b.chunks = append(b.chunks, make([]byte, 0, chunkSize))
	} else {
		b.chunks[b.w] = b.chunks[b.w][:0]
	}
}

func (b *circularBuffer) WriteTo(w io.Writer) (n int64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := b.r; ; i = (i + 1) % cap(b.chunks) {
		var nn int
		nn, err = w.Write(b.chunks[i])
		n += int64(nn)
		if err != nil || i == b.w {
			return
		}
	}
}

func (b *circularBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = b.chunks[:1]
	b.chunks[0] = b.chunks[0][:0]
	b.r, b.w = 0, 0
}
