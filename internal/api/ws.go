package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// NewUpgrader returns websocket upgrader with origin policy:
// - empty - same origin, port ignored
// - "*"   - any origin
// - other - exact origin host
func NewUpgrader(origin string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 512 * 1024, // 512K, keyframes are large
		CheckOrigin: func(r *http.Request) bool {
			return CheckOrigin(origin, r)
		},
	}
}

func CheckOrigin(allowed string, r *http.Request) bool {
	if allowed == "*" {
		return true
	}

	origin := r.Header["Origin"]
	if len(origin) == 0 {
		return true
	}
	o, err := url.Parse(origin[0])
	if err != nil {
		return false
	}

	if allowed != "" {
		return o.Host == allowed
	}

	if o.Host == r.Host {
		return true
	}
	log.Trace().Msgf("[api] ws origin=%s, host=%s", o.Host, r.Host)
	// same host with different port
	if i := strings.IndexByte(o.Host, ':'); i > 0 {
		return o.Host[:i] == r.Host || o.Host[:i] == hostname(r.Host)
	}
	return false
}

func hostname(host string) string {
	if i := strings.LastIndexByte(host, ':'); i > 0 && !strings.HasSuffix(host, "]") {
		return host[:i]
	}
	return host
}
