////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package client assembles the relaychat client: the REST surface, the
// session gate, the realtime channel, and the per-identity stores. One
// Messenger is constructed at application start and injected wherever it is
// needed; every component shares its single channel connection.
package client

import (
	"sync"

	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/relaychat/client/conversations"
	"gitlab.com/relaychat/client/features"
	"gitlab.com/relaychat/client/messages"
	"gitlab.com/relaychat/client/models"
	"gitlab.com/relaychat/client/realtime"
	"gitlab.com/relaychat/client/rest"
	"gitlab.com/relaychat/client/session"
	"gitlab.com/relaychat/client/switchboard"
)

// Params configures a Messenger.
type Params struct {
	// APIURL is the REST root, e.g. "http://localhost:4000/api".
	APIURL string
	// WSURL is the realtime endpoint, e.g. "ws://localhost:4000/ws".
	WSURL string
	// Flags overrides the default feature rollout when not nil.
	Flags *features.Set
}

// Messenger is the top-level client object.
type Messenger struct {
	rest      *rest.Client
	gate      *session.Gate
	events    *switchboard.Switchboard
	channel   *realtime.Channel
	convs     *conversations.Store
	timelines *messages.Timelines
	flags     *features.Set

	unreadMux   sync.Mutex
	unreadTotal int
}

// NewMessenger wires a Messenger. No network traffic happens until Start or
// a login.
func NewMessenger(p Params) (*Messenger, error) {
	restClient, err := rest.NewClient(p.APIURL)
	if err != nil {
		return nil, err
	}

	flags := p.Flags
	if flags == nil {
		flags = features.Defaults()
	}

	m := &Messenger{
		rest:      restClient,
		events:    switchboard.New(),
		timelines: messages.NewTimelines(),
		flags:     flags,
	}
	m.convs = conversations.NewStore(restClient.CreateConversation)
	m.channel = realtime.NewChannel(p.WSURL, restClient.Jar(), m.events)
	m.gate = session.NewGate(restClient)

	// Per-identity state is discarded, not hidden, on every
	// present-to-absent transition.
	m.gate.AddTeardown(func() {
		if err := m.channel.Close(); err != nil {
			jww.WARN.Printf("Channel close on logout: %+v", err)
		}
		m.convs.Clear()
		m.timelines.Clear()
		m.setUnread(0)
	})

	// The channel opens only after the gate holds an identity; the
	// transport rejects unauthenticated handshakes.
	m.gate.AddListener(func(identity models.Identity, present bool) {
		if !present {
			return
		}
		m.timelines.SetSelf(identity.ID)
		if !m.flags.Enabled(features.RealtimeUpdates) {
			return
		}
		if err := m.channel.Open(); err != nil {
			jww.ERROR.Printf("Failed to open realtime channel: %+v", err)
		}
	})

	m.registerPushListeners()
	return m, nil
}

// Start resumes a session from an existing cookie, if one is live. Safe to
// call on a fresh client with no session.
func (m *Messenger) Start() (models.Identity, bool) {
	return m.gate.Resume()
}

// Stop closes the realtime channel. Session and stores are left as they
// are; use Logout to end the session.
func (m *Messenger) Stop() error {
	return m.channel.Close()
}

// Session returns the session gate.
func (m *Messenger) Session() *session.Gate { return m.gate }

// Events returns the switchboard for attaching push listeners.
func (m *Messenger) Events() *switchboard.Switchboard { return m.events }

// Channel returns the shared realtime channel.
func (m *Messenger) Channel() *realtime.Channel { return m.channel }

// Features returns the feature gate.
func (m *Messenger) Features() *features.Set { return m.flags }

// REST exposes the raw REST client.
func (m *Messenger) REST() *rest.Client { return m.rest }

// UnreadTotal returns the last pushed global unread counter.
func (m *Messenger) UnreadTotal() int {
	m.unreadMux.Lock()
	defer m.unreadMux.Unlock()
	return m.unreadTotal
}

func (m *Messenger) setUnread(n int) {
	m.unreadMux.Lock()
	m.unreadTotal = n
	m.unreadMux.Unlock()
}
