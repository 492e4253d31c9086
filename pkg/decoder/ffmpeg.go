package decoder

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rinsuki-lab/alvr-dive/pkg/ffmpeg"
	"github.com/rinsuki-lab/alvr-dive/pkg/session"
	"github.com/rinsuki-lab/alvr-dive/pkg/shell"
)

// FFmpeg decodes AnnexB stream with ffmpeg process into RGBA frames.
// Frames are matched with chunks timestamps in FIFO order.
type FFmpeg struct {
	bin string
	cb  session.Callbacks

	cmd    *shell.Command
	stdin  io.WriteCloser
	stderr bytes.Buffer

	chunks chan *session.Chunk
	size   int // RGBA frame size
	width  int
	height int

	mu         sync.Mutex
	timestamps []uint64

	pool   sync.Pool
	closed atomic.Bool
	failed atomic.Bool
}

func NewFFmpeg(bin string, cb session.Callbacks) *FFmpeg {
	return &FFmpeg{bin: bin, cb: cb}
}

func (d *FFmpeg) Configure(cfg session.DecoderConfig) error {
	format, err := ffmpeg.Format(cfg.Codec)
	if err != nil {
		return err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.Errorf("ffmpeg: unknown frame size for %s", cfg.Codec)
	}
	if d.cmd != nil {
		return errors.New("ffmpeg: already configured")
	}

	args := ffmpeg.NewDecoderArgs(d.bin, format, cfg.Width, cfg.Height)

	d.cmd = shell.NewCommand(args.String())
	d.cmd.Stderr = &d.stderr

	if d.stdin, err = d.cmd.StdinPipe(); err != nil {
		return err
	}
	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return err
	}

	if err = d.cmd.Start(); err != nil {
		return errors.Wrap(err, "ffmpeg")
	}

	d.width, d.height = cfg.Width, cfg.Height
	d.size = cfg.Width * cfg.Height * 4
	d.pool.New = func() any {
		b := make([]byte, d.size)
		return &b
	}
	d.chunks = make(chan *session.Chunk, 64)

	go d.writer()
	go d.reader(stdout)
	go func() {
		<-d.cmd.Done()
		d.fail(errors.Errorf("ffmpeg: exited: %v %s", d.cmd.Wait(), bytes.TrimSpace(d.stderr.Bytes())))
	}()

	return nil
}

func (d *FFmpeg) Decode(chunk *session.Chunk) error {
	if d.chunks == nil {
		return errors.New("ffmpeg: not configured")
	}
	if d.closed.Load() || d.failed.Load() {
		return ErrClosed
	}

	// timestamp only for accepted chunk
	d.mu.Lock()
	defer d.mu.Unlock()

	select {
	case d.chunks <- chunk:
		d.timestamps = append(d.timestamps, chunk.Timestamp)
		return nil
	default:
		return errors.New("ffmpeg: input queue overflow")
	}
}

func (d *FFmpeg) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	if d.cmd == nil {
		return nil
	}
	if d.chunks != nil {
		close(d.chunks)
	}
	return d.cmd.Close()
}

func (d *FFmpeg) writer() {
	for chunk := range d.chunks {
		if _, err := d.stdin.Write(chunk.Data); err != nil {
			d.fail(errors.Wrap(err, "ffmpeg: write"))
			break
		}
	}
	_ = d.stdin.Close()
}

func (d *FFmpeg) reader(r io.Reader) {
	for {
		buf := d.pool.Get().(*[]byte)

		if _, err := io.ReadFull(r, *buf); err != nil {
			d.pool.Put(buf)
			d.fail(errors.Wrap(err, "ffmpeg: read"))
			return
		}

		d.mu.Lock()
		var ts uint64
		if len(d.timestamps) > 0 {
			ts = d.timestamps[0]
			d.timestamps = d.timestamps[1:]
		}
		d.mu.Unlock()

		d.cb.Output(session.NewFrame(ts, d.width, d.height, *buf, func() {
			d.pool.Put(buf)
		}))
	}
}

// fail reports only first error and nothing after Close
func (d *FFmpeg) fail(err error) {
	if d.closed.Load() || !d.failed.CompareAndSwap(false, true) {
		return
	}
	d.cb.Error(err)
}
