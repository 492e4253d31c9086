package app

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCircularBuffer(t *testing.T) {
	buf := newBuffer(2)

	_, err := buf.Write([]byte("hello"))
	require.Nil(t, err)
	_, err = buf.Write([]byte("world"))
	require.Nil(t, err)

	var out bytes.Buffer
	_, err = buf.WriteTo(&out)
	require.Nil(t, err)
	require.Equal(t, "helloworld", out.String())

	buf.Reset()
	out.Reset()
	_, _ = buf.WriteTo(&out)
	require.Zero(t, out.Len())
}

func TestCircularBufferOverflow(t *testing.T) {
	buf := newBuffer(2)

	chunk := bytes.Repeat([]byte{'a'}, chunkSize)
	_, _ = buf.Write(chunk)
	_, _ = buf.Write(bytes.Repeat([]byte{'b'}, chunkSize))
	_, _ = buf.Write([]byte("c"))

	// first chunk overwritten
	var out bytes.Buffer
	_, err := buf.WriteTo(&out)
	require.Nil(t, err)
	require.Equal(t, chunkSize+1, out.Len())
	require.Equal(t, byte('b'), out.Bytes()[0])
	require.Equal(t, byte('c'), out.Bytes()[chunkSize])
}

func TestGetLogger(t *testing.T) {
	prev := modules
	t.Cleanup(func() { modules = prev })

	modules = map[string]string{
		"client":  "debug",
		"gateway": "warn",
		"api":     "bad level",
	}

	Logger = zerolog.New(nil).Level(zerolog.InfoLevel)

	require.Equal(t, zerolog.DebugLevel, GetLogger("client").GetLevel())
	require.Equal(t, zerolog.WarnLevel, GetLogger("gateway").GetLevel())
	require.Equal(t, zerolog.InfoLevel, GetLogger("api").GetLevel())
	require.Equal(t, zerolog.InfoLevel, GetLogger("discovery").GetLevel())
}

func TestNewLogger(t *testing.T) {
	MemoryLog.Reset()
	t.Cleanup(MemoryLog.Reset)

	// empty output keeps log only in memory
	logger := newLogger(map[string]string{keyLevel: "warn"})
	require.Equal(t, zerolog.WarnLevel, logger.GetLevel())
	require.Equal(t, MemoryLog, newWriter(map[string]string{}))

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	var out bytes.Buffer
	_, _ = MemoryLog.WriteTo(&out)
	require.NotContains(t, out.String(), "hidden")
	require.Contains(t, out.String(), `"message":"shown"`)

	// bad level falls back to info
	require.Equal(t, zerolog.InfoLevel, newLogger(map[string]string{keyLevel: "loud"}).GetLevel())
}

func TestNewConsole(t *testing.T) {
	console := newConsole(os.Stderr, "text", true)
	require.True(t, console.NoColor)
	require.Equal(t, consoleTime, console.TimeFormat)

	console = newConsole(os.Stderr, "color", false)
	require.False(t, console.NoColor)
	require.Equal(t, []string{zerolog.LevelFieldName, zerolog.CallerFieldName, zerolog.MessageFieldName}, console.PartsOrder)
}

func TestMemoryLogSize(t *testing.T) {
	require.Equal(t, memoryChunks, cap(MemoryLog.chunks))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("DIVE_TEST_FPS", "72")

	path := filepath.Join(t.TempDir(), "dive.yaml")
	err := os.WriteFile(path, []byte("gateway:\n  fps: ${DIVE_TEST_FPS}\n  name: ${DIVE_TEST_NAME:dive}\n"), 0644)
	require.Nil(t, err)

	ConfigPath = ""
	initConfig([]string{
		`{gateway: {listen: ":5999", fps: 60}}`,
		path,
		"log.level=debug",
		"/invalid/path/dive.yaml",
	})

	var cfg struct {
		Gateway struct {
			Listen string `yaml:"listen"`
			FPS    int    `yaml:"fps"`
			Name   string `yaml:"name"`
		} `yaml:"gateway"`
		Log map[string]string `yaml:"log"`
	}
	LoadConfig(&cfg)

	require.Equal(t, ":5999", cfg.Gateway.Listen)
	require.Equal(t, 72, cfg.Gateway.FPS)
	require.Equal(t, "dive", cfg.Gateway.Name)
	require.Equal(t, "debug", cfg.Log["level"])
	require.Equal(t, path, ConfigPath)

	merged := MergedConfig()
	require.Equal(t, map[string]any{"listen": ":5999", "fps": 72, "name": "dive"}, merged["gateway"])
	require.Equal(t, map[string]any{"level": "debug"}, merged["log"])
}

func TestParseConfString(t *testing.T) {
	require.Equal(t, "{client: {url: ws://10.0.0.2:5999/websocket}}", string(parseConfString("client.url=ws://10.0.0.2:5999/websocket")))
	require.Nil(t, parseConfString("dive.yaml"))
	require.Nil(t, parseConfString("level=debug"))
}
