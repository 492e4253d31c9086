package session

import (
	"github.com/rinsuki-lab/alvr-dive/pkg/protocol"
)

// Dispatcher routes websocket messages from server to session
type Dispatcher struct {
	Session *Session

	// OnText receives server diagnostics, like HUD messages
	OnText func(text string)
	// OnMessage is called for every parsed binary message before session handles it
	OnMessage func(msg any)
}

func NewDispatcher(s *Session) *Dispatcher {
	return &Dispatcher{Session: s}
}

func (d *Dispatcher) HandleText(text string) {
	if d.OnText != nil {
		d.OnText(text)
	}
}

// HandleBinary - parse errors aren't fatal for the transport,
// session errors are also reflected in session outputs
func (d *Dispatcher) HandleBinary(b []byte) error {
	msg, err := protocol.Parse(b)
	if err != nil {
		return err
	}
	if d.OnMessage != nil {
		d.OnMessage(msg)
	}
	return d.Session.Handle(msg)
}
