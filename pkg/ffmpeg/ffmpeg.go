package ffmpeg

import (
	"bytes"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Args struct {
	Bin     string   // ffmpeg
	Global  string   // -hide_banner -v error
	Input   string   // -f h264 -i pipe:0
	Codecs  []string // -pix_fmt rgba
	Filters []string // scale=1920:1080
	Output  string   // -f rawvideo pipe:1
}

// Format - ffmpeg demuxer name for codec descriptor
func Format(codec string) (string, error) {
	switch {
	case strings.HasPrefix(codec, "avc1."), strings.HasPrefix(codec, "avc3."):
		return "h264", nil
	case strings.HasPrefix(codec, "hev1."), strings.HasPrefix(codec, "hvc1."):
		return "hevc", nil
	}
	return "", errors.Errorf("ffmpeg: unsupported codec %q", codec)
}

// NewDecoderArgs - AnnexB elementary stream from stdin to raw RGBA frames on stdout
func NewDecoderArgs(bin, format string, width, height int) *Args {
	a := &Args{
		Bin:    bin,
		Global: "-hide_banner -v error",
		Input:  "-fflags nobuffer -flags low_delay -probesize 32 -f " + format + " -i pipe:0",
		Output: "-f rawvideo pipe:1",
	}
	a.AddCodec("-an -pix_fmt rgba")
	a.AddFilter("scale=" + strconv.Itoa(width) + ":" + strconv.Itoa(height))
	return a
}

func (a *Args) AddCodec(codec string) {
	a.Codecs = append(a.Codecs, codec)
}

func (a *Args) AddFilter(filter string) {
	a.Filters = append(a.Filters, filter)
}

func (a *Args) String() string {
	b := bytes.NewBuffer(make([]byte, 0, 512))

	b.WriteString(a.Bin)

	if a.Global != "" {
		b.WriteByte(' ')
		b.WriteString(a.Global)
	}

	b.WriteByte(' ')
	b.WriteString(a.Input)

	for _, codec := range a.Codecs {
		b.WriteByte(' ')
		b.WriteString(codec)
	}

	if len(a.Filters) > 0 {
		for i, filter := range a.Filters {
			if i == 0 {
				b.WriteString(` -vf "`)
			} else {
				b.WriteByte(',')
			}
			b.WriteString(filter)
		}
		b.WriteByte('"')
	}

	b.WriteByte(' ')
	b.WriteString(a.Output)

	return b.String()
}

// Version - third word from first line of `ffmpeg -version`
func Version(bin string) (string, error) {
	cmd := exec.Command(bin, "-version")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", err
	}
	firstLine, _, _ := strings.Cut(out.String(), "\n")
	fields := strings.Fields(firstLine)
	if len(fields) < 3 {
		return "", errors.Errorf("ffmpeg: can't parse version %q", firstLine)
	}
	return fields[2], nil
}
