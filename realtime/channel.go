////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package realtime maintains the single websocket channel shared by the
// whole process. The channel is constructed once at wiring time and handed
// to every component that needs it; components attach listeners through the
// switchboard but never dial a second connection, since duplicate
// connections mean duplicate event delivery.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/relaychat/client/catalog"
	"gitlab.com/relaychat/client/faults"
	"gitlab.com/relaychat/client/stoppable"
	"gitlab.com/relaychat/client/switchboard"
)

const (
	// reconnectDelay between redial attempts; attempts are unlimited until
	// Close.
	reconnectDelay = time.Second

	// DefaultAckTimeout bounds how long EmitWithAck waits for the server.
	DefaultAckTimeout = 10 * time.Second

	dialTimeout = 10 * time.Second
)

// frame is the wire format of one channel event in either direction.
// Outbound frames carry an ID when an acknowledgement is expected; the ack
// comes back with the same ID.
type frame struct {
	Event          catalog.EventType `json:"event"`
	ConversationID string            `json:"conversationId,omitempty"`
	ID             string            `json:"id,omitempty"`
	OK             *bool             `json:"ok,omitempty"`
	Data           json.RawMessage   `json:"data,omitempty"`
}

// Channel is the process-wide realtime connection. All functions are thread
// safe.
type Channel struct {
	wsURL  string
	jar    http.CookieJar
	events *switchboard.Switchboard

	mux      sync.Mutex
	conn     *websocket.Conn
	writeMux sync.Mutex
	stop     *stoppable.Single

	ackMux sync.Mutex
	acks   map[string]chan frame
}

// NewChannel builds an unconnected channel. jar must be the REST client's
// cookie jar so the handshake presents the session cookies; decoded push
// events are spoken onto events.
func NewChannel(wsURL string, jar http.CookieJar,
	events *switchboard.Switchboard) *Channel {
	return &Channel{
		wsURL:  wsURL,
		jar:    jar,
		events: events,
		acks:   make(map[string]chan frame),
	}
}

// IsConnected reports whether a live connection exists.
func (ch *Channel) IsConnected() bool {
	ch.mux.Lock()
	defer ch.mux.Unlock()
	return ch.conn != nil
}

// Open dials the channel and starts the read pump with its reconnect loop.
// Opening an already-open channel is an error: a second connection for one
// identity is a correctness bug, not merely wasteful. The session gate must
// only call this while authenticated.
func (ch *Channel) Open() error {
	ch.mux.Lock()
	if ch.stop != nil && !ch.stop.IsStopped() {
		ch.mux.Unlock()
		return errors.New("realtime channel is already open")
	}

	conn, err := ch.dial()
	if err != nil {
		ch.mux.Unlock()
		return err
	}

	stop := stoppable.NewSingle("realtimeReadPump")
	ch.conn = conn
	ch.stop = stop
	ch.mux.Unlock()

	jww.INFO.Printf("Realtime channel connected to %s", ch.wsURL)
	go ch.run(conn, stop)
	return nil
}

// Close tears the connection down and stops reconnecting. Pending acks fail
// with RealtimeSendFailed.
func (ch *Channel) Close() error {
	ch.mux.Lock()
	stop := ch.stop
	conn := ch.conn
	ch.conn = nil
	ch.mux.Unlock()

	if stop == nil {
		return nil
	}
	if err := stop.Close(); err != nil {
		return err
	}
	if conn != nil {
		_ = conn.Close()
	}

	ch.failPendingAcks()
	return stoppable.WaitForStopped(stop, 5*time.Second)
}

func (ch *Channel) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		Jar:              ch.jar,
		HandshakeTimeout: dialTimeout,
	}
	conn, _, err := dialer.Dial(ch.wsURL, nil)
	if err != nil {
		return nil, faults.Wrap(faults.NetworkUnavailable,
			"realtime handshake failed", err)
	}
	return conn, nil
}

// run pumps inbound frames until the connection drops, then redials every
// reconnectDelay until Close. Redelivery after a reconnect is expected; the
// stores deduplicate.
func (ch *Channel) run(conn *websocket.Conn, stop *stoppable.Single) {
	defer stop.ToStopped()

	for {
		ch.pump(conn, stop)

		if stop.IsStopping() {
			return
		}

		jww.WARN.Printf("Realtime channel dropped; reconnecting in %s",
			reconnectDelay)

		for {
			select {
			case <-stop.Quit():
				return
			case <-time.After(reconnectDelay):
			}

			next, err := ch.dial()
			if err == nil {
				conn = next
				ch.mux.Lock()
				ch.conn = conn
				ch.mux.Unlock()
				jww.INFO.Print("Realtime channel reconnected")
				break
			}
			jww.DEBUG.Printf("Redial failed: %+v", err)
		}
	}
}

// pump reads frames off one connection until it errors.
func (ch *Channel) pump(conn *websocket.Conn, stop *stoppable.Single) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if !stop.IsStopping() {
				jww.DEBUG.Printf("Read pump ended: %+v", err)
			}
			ch.mux.Lock()
			if ch.conn == conn {
				ch.conn = nil
			}
			ch.mux.Unlock()
			_ = conn.Close()
			return
		}
		ch.route(f)
	}
}

// route hands an inbound frame to its ack waiter or the switchboard.
func (ch *Channel) route(f frame) {
	if f.Event == catalog.Ack {
		ch.ackMux.Lock()
		waiter, ok := ch.acks[f.ID]
		delete(ch.acks, f.ID)
		ch.ackMux.Unlock()

		if ok {
			waiter <- f
		} else {
			jww.DEBUG.Printf("Ack %s had no waiter", f.ID)
		}
		return
	}

	ch.events.Speak(switchboard.Event{
		Name:           f.Event,
		ConversationID: f.ConversationID,
		Payload:        f.Data,
	})
}

// Emit sends a fire-and-forget event.
func (ch *Channel) Emit(event catalog.EventType, conversationID string,
	payload interface{}) error {
	f := frame{Event: event, ConversationID: conversationID}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrapf(err, "failed to encode %s payload", event)
		}
		f.Data = data
	}
	return ch.write(f)
}

// EmitWithAck sends an event and waits for its correlated acknowledgement.
// A nack or a timeout yields RealtimeSendFailed; the caller decides whether
// to retry.
func (ch *Channel) EmitWithAck(event catalog.EventType, conversationID string,
	payload interface{}, timeout time.Duration) (json.RawMessage, error) {
	f := frame{
		Event:          event,
		ConversationID: conversationID,
		ID:             uuid.NewString(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode %s payload", event)
		}
		f.Data = data
	}

	waiter := make(chan frame, 1)
	ch.ackMux.Lock()
	ch.acks[f.ID] = waiter
	ch.ackMux.Unlock()

	if err := ch.write(f); err != nil {
		ch.ackMux.Lock()
		delete(ch.acks, f.ID)
		ch.ackMux.Unlock()
		return nil, err
	}

	select {
	case ack, ok := <-waiter:
		if !ok {
			return nil, faults.New(faults.RealtimeSendFailed,
				"channel closed while awaiting ack of "+string(event))
		}
		if ack.OK != nil && !*ack.OK {
			return nil, faults.New(faults.RealtimeSendFailed,
				"server rejected "+string(event))
		}
		return ack.Data, nil
	case <-time.After(timeout):
		ch.ackMux.Lock()
		delete(ch.acks, f.ID)
		ch.ackMux.Unlock()
		return nil, faults.New(faults.RealtimeSendFailed,
			"acknowledgement of "+string(event)+" timed out")
	}
}

func (ch *Channel) write(f frame) error {
	ch.mux.Lock()
	conn := ch.conn
	ch.mux.Unlock()

	if conn == nil {
		return faults.New(faults.RealtimeSendFailed,
			"realtime channel is not connected")
	}

	// gorilla/websocket permits one concurrent writer
	ch.writeMux.Lock()
	defer ch.writeMux.Unlock()
	if err := conn.WriteJSON(f); err != nil {
		return faults.Wrap(faults.RealtimeSendFailed,
			"failed to write "+string(f.Event), err)
	}
	return nil
}

func (ch *Channel) failPendingAcks() {
	ch.ackMux.Lock()
	defer ch.ackMux.Unlock()
	for id, waiter := range ch.acks {
		close(waiter)
		delete(ch.acks, id)
	}
}

// JoinConversation subscribes to a conversation's room so its events are
// pushed to this client.
func (ch *Channel) JoinConversation(conversationID string) error {
	return ch.Emit(catalog.ConversationJoin, conversationID,
		map[string]string{"conversationId": conversationID})
}

// LeaveConversation unsubscribes from a conversation's room.
func (ch *Channel) LeaveConversation(conversationID string) error {
	return ch.Emit(catalog.ConversationLeave, conversationID,
		map[string]string{"conversationId": conversationID})
}
