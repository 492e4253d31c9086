package session

// DecoderConfig - everything decoder knows about the stream before first frame
type DecoderConfig struct {
	Codec  string // avc1.640028, hev1.1.6.L93.B0
	Width  int    // zero if unknown
	Height int

	OptimizeForLatency bool
}

type ChunkType byte

const (
	ChunkDelta ChunkType = iota
	ChunkKey
)

func (t ChunkType) String() string {
	if t == ChunkKey {
		return "key"
	}
	return "delta"
}

// Chunk - encoded access unit in AnnexB format. Decoder may keep Data but must not modify it.
type Chunk struct {
	Type      ChunkType
	Timestamp uint64
	Data      []byte
}

// Frame - decoded picture, must be closed after use
type Frame struct {
	Timestamp uint64
	Width     int
	Height    int
	Data      []byte

	release func()
}

func NewFrame(ts uint64, width, height int, data []byte, release func()) *Frame {
	return &Frame{Timestamp: ts, Width: width, Height: height, Data: data, release: release}
}

func (f *Frame) Close() {
	if f.release != nil {
		f.release()
		f.release = nil
	}
	f.Data = nil
}

// Decoder - asynchronous video decode capability.
// Output and Error callbacks may be called from any goroutine.
type Decoder interface {
	Configure(cfg DecoderConfig) error
	Decode(chunk *Chunk) error
	Close() error
}

type Callbacks struct {
	Output func(frame *Frame)
	Error  func(err error)
}

type DecoderFactory func(cb Callbacks) (Decoder, error)
