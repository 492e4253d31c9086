package protocol

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// client to server text messages
const (
	TextHello      = "hello"
	TextRequestIDR = "idr"

	prefixAlive   = "alive:"
	prefixDecoded = "decoded:"
)

func Alive(us uint64) string {
	return prefixAlive + strconv.FormatUint(us, 10)
}

func Decoded(ts uint64) string {
	return prefixDecoded + strconv.FormatUint(ts, 10)
}

type Text struct {
	Kind      string // hello, idr, alive, decoded or empty for unknown
	Timestamp uint64
}

// ParseText - client message on server side
func ParseText(s string) (Text, error) {
	switch {
	case s == TextHello:
		return Text{Kind: "hello"}, nil
	case s == TextRequestIDR:
		return Text{Kind: "idr"}, nil
	case strings.HasPrefix(s, prefixAlive):
		ts, err := strconv.ParseUint(s[len(prefixAlive):], 10, 64)
		if err != nil {
			return Text{}, errors.Wrap(err, "protocol: alive")
		}
		return Text{Kind: "alive", Timestamp: ts}, nil
	case strings.HasPrefix(s, prefixDecoded):
		ts, err := strconv.ParseUint(s[len(prefixDecoded):], 10, 64)
		if err != nil {
			return Text{}, errors.Wrap(err, "protocol: decoded")
		}
		return Text{Kind: "decoded", Timestamp: ts}, nil
	}
	return Text{}, errors.Wrapf(ErrUnknownMessage, "text %q", s)
}
