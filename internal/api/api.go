package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rinsuki-lab/alvr-dive/internal/app"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Listen   string `yaml:"listen"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
			BasePath string `yaml:"base_path"`
			Origin   string `yaml:"origin"`
		} `yaml:"api"`
	}

	// default config
	cfg.Mod.Listen = ":1984"

	// load config from YAML
	app.LoadConfig(&cfg)

	log = app.GetLogger("api")

	basePath = cfg.Mod.BasePath
	listenAddr = cfg.Mod.Listen

	Router = NewRouter(cfg.Mod.Username, cfg.Mod.Password, cfg.Mod.Origin)

	HandleFunc("api", apiHandler)
	HandleFunc("api/exit", exitHandler)
	HandleFunc("api/log", logHandler)
}

// Serve starts API listener, should be called after all modules register their paths
func Serve() {
	if listenAddr == "" || Router == nil {
		return
	}
	go listen("tcp", listenAddr)
}

// NewRouter returns chi router with common middlewares:
// trace logging, optional basic auth and optional CORS
func NewRouter(username, password, origin string) chi.Router {
	r := chi.NewRouter()

	if log.Trace().Enabled() {
		r.Use(middlewareLog) // 1st
	}

	if username != "" {
		r.Use(middlewareAuth(username, password)) // 2nd
	}

	if origin == "*" {
		r.Use(middlewareCORS) // 3rd
	}

	return r
}

func listen(network, address string) {
	ln, err := net.Listen(network, address)
	if err != nil {
		log.Error().Err(err).Msg("[api] listen")
		return
	}

	log.Info().Stringer("addr", ln.Addr()).Msg("[api] listen")

	server := http.Server{
		Handler:           Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err = server.Serve(ln); err != nil {
		log.Fatal().Err(err).Msg("[api] serve")
	}
}

const (
	MimeJSON = "application/json"
	MimeText = "text/plain"
)

var Router chi.Router

// HandleFunc handle pattern with relative path:
// - "api/log"  => "{basepath}/api/log"
// - "/metrics" => "/metrics"
func HandleFunc(pattern string, handler http.HandlerFunc) {
	Handle(pattern, handler)
}

func Handle(pattern string, handler http.Handler) {
	if Router == nil {
		return
	}
	if len(pattern) == 0 || pattern[0] != '/' {
		pattern = basePath + "/" + pattern
	}
	log.Trace().Str("path", pattern).Msg("[api] register path")
	Router.Handle(pattern, handler)
}

// ResponseJSON important always add Content-Type
// so go won't need to call http.DetectContentType
func ResponseJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", MimeJSON)
	_ = json.NewEncoder(w).Encode(v)
}

func Response(w http.ResponseWriter, body any, contentType string) {
	w.Header().Set("Content-Type", contentType)

	switch v := body.(type) {
	case []byte:
		_, _ = w.Write(v)
	case string:
		_, _ = w.Write([]byte(v))
	default:
		_, _ = fmt.Fprint(w, body)
	}
}

var basePath string
var listenAddr string
var log zerolog.Logger

func middlewareLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Trace().Msgf("[api] %s %s %s", r.Method, r.URL, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

func middlewareAuth(username, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.RemoteAddr, "127.") && !strings.HasPrefix(r.RemoteAddr, "[::1]") {
				user, pass, ok := r.BasicAuth()
				if !ok || user != username || pass != password {
					w.Header().Set("Www-Authenticate", `Basic realm="dive"`)
					http.Error(w, "Unauthorized", http.StatusUnauthorized)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func middlewareCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		next.ServeHTTP(w, r)
	})
}

var mu sync.Mutex

func apiHandler(w http.ResponseWriter, r *http.Request) {
	mu.Lock()
	app.Info["host"] = r.Host
	info := make(map[string]any, len(app.Info))
	for k, v := range app.Info {
		info[k] = v
	}
	mu.Unlock()

	ResponseJSON(w, info)
}

func exitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		http.Error(w, "", http.StatusBadRequest)
		return
	}

	s := r.URL.Query().Get("code")
	code, err := strconv.Atoi(s)

	// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html#tag_18_08_02
	if err != nil || code < 0 || code > 125 {
		http.Error(w, "Code must be in the range [0, 125]", http.StatusBadRequest)
		return
	}

	os.Exit(code)
}

func logHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		w.Header().Set("Content-Type", "application/jsonlines")
		_, _ = app.MemoryLog.WriteTo(w)
	case "DELETE":
		app.MemoryLog.Reset()
		Response(w, "OK", MimeText)
	default:
		http.Error(w, "Method not allowed", http.StatusBadRequest)
	}
}
