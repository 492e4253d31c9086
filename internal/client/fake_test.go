package client

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// newFakeServer upgrades connection, waits for hello and runs fn
func newFakeServer(fn func(ws *websocket.Conn)) http.Handler {
	upgrader := &websocket.Upgrader{}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		for {
			_, b, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if string(b) == "hello" {
				fn(ws)
			}
		}
	})
}
