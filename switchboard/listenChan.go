////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package switchboard

import (
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/relaychat/client/catalog"
)

// chanListener forwards heard events into a buffered channel. Events are
// dropped, with a warning, if the consumer falls behind; the stores are
// re-synchronized by the next REST fetch in that case.
type chanListener struct {
	ch   chan Event
	name string
}

func (cl *chanListener) Hear(e Event) {
	select {
	case cl.ch <- e:
	default:
		jww.WARN.Printf("Listener %q dropped event %q: channel full",
			cl.name, e.Name)
	}
}

func (cl *chanListener) Name() string { return cl.name }

// RegisterChannel registers a channel-backed listener with the given buffer
// size and returns the receive side alongside the listener ID.
func (sw *Switchboard) RegisterChannel(name catalog.EventType,
	conversationID, listenerName string, buffer int) (<-chan Event, string) {
	cl := &chanListener{ch: make(chan Event, buffer), name: listenerName}
	id := sw.Register(name, conversationID, cl)
	return cl.ch, id
}
