////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package switchboard routes realtime channel events to registered
// listeners. It replaces window-level custom events with a typed bus so
// cross-cutting signals (push merges, forced logout, toasts) have explicit
// subscribers.
package switchboard

import (
	"encoding/json"
	"strconv"
	"sync"

	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/relaychat/client/catalog"
)

// AnyConversation matches events for every conversation when used as the
// conversation filter in Register.
const AnyConversation = ""

// Event is a single decoded frame from the realtime channel.
type Event struct {
	Name           catalog.EventType `json:"event"`
	ConversationID string            `json:"conversationId,omitempty"`
	Payload        json.RawMessage   `json:"data,omitempty"`
}

// Listener hears events routed by the switchboard.
type Listener interface {
	Hear(e Event)
	// Name returns a name for debugging.
	Name() string
}

type listenerRecord struct {
	l  Listener
	id string
}

// Switchboard routes events to listeners registered by event type and
// conversation. All functions are thread safe.
type Switchboard struct {
	listeners map[catalog.EventType]map[string][]*listenerRecord
	lastID    int
	mux       sync.RWMutex
}

// New returns an empty Switchboard.
func New() *Switchboard {
	return &Switchboard{
		listeners: make(map[catalog.EventType]map[string][]*listenerRecord),
	}
}

// Register adds a listener to the switchboard. Returns the ID of the new
// listener; keep it around to Unregister later.
//
// name: catalog.NoType to hear all event types, or a specific type.
// conversationID: AnyConversation to hear all conversations, or a specific
// conversation's events.
// If an event matches multiple listeners, all of them hear it.
func (sw *Switchboard) Register(name catalog.EventType, conversationID string,
	newListener Listener) string {
	sw.mux.Lock()
	defer sw.mux.Unlock()

	sw.lastID++
	if sw.listeners[name] == nil {
		sw.listeners[name] = make(map[string][]*listenerRecord)
	}

	record := &listenerRecord{
		l:  newListener,
		id: strconv.Itoa(sw.lastID),
	}
	sw.listeners[name][conversationID] =
		append(sw.listeners[name][conversationID], record)

	return record.id
}

// RegisterFunc registers a bare function as a listener.
func (sw *Switchboard) RegisterFunc(name catalog.EventType,
	conversationID, listenerName string, hear func(e Event)) string {
	return sw.Register(name, conversationID,
		&funcListener{hear: hear, name: listenerName})
}

// Unregister removes the listener with the given ID. Removing an unknown ID
// is a no-op.
func (sw *Switchboard) Unregister(listenerID string) {
	sw.mux.Lock()
	defer sw.mux.Unlock()

	for name, perConv := range sw.listeners {
		for conv, records := range perConv {
			for i, record := range records {
				if record.id == listenerID {
					sw.listeners[name][conv] =
						append(records[:i], records[i+1:]...)
					// IDs are unique per listener, so the loop can
					// terminate early.
					return
				}
			}
		}
	}
}

func (sw *Switchboard) matches(name catalog.EventType,
	conversationID string) []*listenerRecord {
	return sw.listeners[name][conversationID]
}

// Speak routes an event to every matching listener: exact (type, conv),
// type with any conversation, any type with the conversation, and full
// wildcards.
func (sw *Switchboard) Speak(e Event) {
	sw.mux.RLock()
	defer sw.mux.RUnlock()

	matched := make([]*listenerRecord, 0)
	matched = append(matched, sw.matches(e.Name, e.ConversationID)...)
	if e.ConversationID != AnyConversation {
		matched = append(matched, sw.matches(e.Name, AnyConversation)...)
	}
	if e.Name != catalog.NoType {
		matched = append(matched, sw.matches(catalog.NoType, e.ConversationID)...)
		if e.ConversationID != AnyConversation {
			matched = append(matched,
				sw.matches(catalog.NoType, AnyConversation)...)
		}
	}

	if len(matched) == 0 {
		jww.DEBUG.Printf("Event %q (conversation %q) matched no listeners",
			e.Name, e.ConversationID)
		return
	}

	for _, record := range matched {
		jww.TRACE.Printf("Hearing event %q on listener %s (%s)",
			e.Name, record.id, record.l.Name())
		record.l.Hear(e)
	}
}

type funcListener struct {
	hear func(e Event)
	name string
}

func (fl *funcListener) Hear(e Event) { fl.hear(e) }
func (fl *funcListener) Name() string { return fl.name }
