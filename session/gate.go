////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package session owns the authenticated identity and its transitions.
//
// The gate is the only component allowed to decide that the session is gone:
// feature code never sees 401s, only the logout broadcast. Dependent state
// (conversation index, timelines, the realtime channel) registers teardown
// callbacks that run on every present-to-absent transition, before state
// listeners observe the new state, so no stale data from a departing
// identity survives into the next login.
package session

import (
	"strconv"
	"sync"

	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/relaychat/client/models"
	"gitlab.com/relaychat/client/rest"
)

// Listener observes identity transitions. present reports the new state;
// identity is the zero value when present is false.
type Listener func(identity models.Identity, present bool)

// Gate is the session gate. All functions are thread safe.
type Gate struct {
	rest *rest.Client

	mux      sync.Mutex
	identity models.Identity
	present  bool

	lastID    int
	listeners map[string]Listener
	teardowns []func()
}

// NewGate wires a gate onto the REST client. Renewal failures inside the
// client surface here as a forced logout.
func NewGate(restClient *rest.Client) *Gate {
	g := &Gate{
		rest:      restClient,
		listeners: make(map[string]Listener),
	}
	restClient.SetExpiredCallback(func() {
		g.ForceLogout("session renewal failed")
	})
	return g
}

// Current returns the authenticated identity, if any.
func (g *Gate) Current() (models.Identity, bool) {
	g.mux.Lock()
	defer g.mux.Unlock()
	return g.identity, g.present
}

// AddListener registers a transition listener and returns its ID.
func (g *Gate) AddListener(l Listener) string {
	g.mux.Lock()
	defer g.mux.Unlock()
	g.lastID++
	id := strconv.Itoa(g.lastID)
	g.listeners[id] = l
	return id
}

// RemoveListener drops the listener with the given ID.
func (g *Gate) RemoveListener(id string) {
	g.mux.Lock()
	defer g.mux.Unlock()
	delete(g.listeners, id)
}

// AddTeardown registers a callback run on every present-to-absent
// transition, before listeners are notified. Used to discard per-identity
// state and close the realtime channel.
func (g *Gate) AddTeardown(f func()) {
	g.mux.Lock()
	defer g.mux.Unlock()
	g.teardowns = append(g.teardowns, f)
}

// Login authenticates and transitions to present. Fails with
// AuthenticationExpired on bad credentials or NetworkUnavailable when the
// server cannot be reached. Logging in over a live session tears the old
// identity down first.
func (g *Gate) Login(email, password string) (models.Identity, error) {
	identity, err := g.rest.Login(rest.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return models.Identity{}, err
	}

	g.toPresent(identity)
	return identity, nil
}

// Register creates an account and transitions to present.
func (g *Gate) Register(req rest.RegisterRequest) (models.Identity, error) {
	identity, err := g.rest.Register(req)
	if err != nil {
		return models.Identity{}, err
	}

	g.toPresent(identity)
	return identity, nil
}

// Resume restores a session from an existing cookie by fetching /user/me.
// Absence of a live session is not an error; the gate just stays absent.
func (g *Gate) Resume() (models.Identity, bool) {
	identity, err := g.rest.Me()
	if err != nil {
		jww.DEBUG.Printf("No session to resume: %+v", err)
		return models.Identity{}, false
	}

	g.toPresent(identity)
	return identity, true
}

// RefreshIdentity re-fetches the profile fields of the current identity
// without a transition. Used on user:updated pushes.
func (g *Gate) RefreshIdentity() (models.Identity, error) {
	identity, err := g.rest.Me()
	if err != nil {
		return models.Identity{}, err
	}

	g.mux.Lock()
	if g.present {
		g.identity = identity
	}
	g.mux.Unlock()
	return identity, nil
}

// Logout ends the session server-side and transitions to absent. The local
// transition happens even if the REST call fails; the cookie may already be
// dead.
func (g *Gate) Logout() error {
	err := g.rest.Logout()
	if err != nil {
		jww.WARN.Printf("Server logout failed, discarding session anyway: %+v",
			err)
	}
	g.toAbsent()
	return err
}

// ForceLogout transitions to absent without a REST call. Invoked on renewal
// failure and on the user:logout push.
func (g *Gate) ForceLogout(reason string) {
	jww.INFO.Printf("Forced logout: %s", reason)
	g.toAbsent()
}

func (g *Gate) toPresent(identity models.Identity) {
	g.mux.Lock()
	wasPresent := g.present
	teardowns, listeners := g.snapshot()
	g.mux.Unlock()

	// Identity switch without an intervening logout still discards the old
	// identity's state.
	if wasPresent {
		for _, f := range teardowns {
			f()
		}
	}

	g.mux.Lock()
	g.identity = identity
	g.present = true
	g.mux.Unlock()

	jww.INFO.Printf("Session present for %s", identity.ID)
	for _, l := range listeners {
		l(identity, true)
	}
}

func (g *Gate) toAbsent() {
	g.mux.Lock()
	if !g.present {
		g.mux.Unlock()
		return
	}
	g.identity = models.Identity{}
	g.present = false
	teardowns, listeners := g.snapshot()
	g.mux.Unlock()

	for _, f := range teardowns {
		f()
	}
	for _, l := range listeners {
		l(models.Identity{}, false)
	}
}

// snapshot copies callback slices so they run outside the lock. Callers must
// hold g.mux.
func (g *Gate) snapshot() ([]func(), []Listener) {
	teardowns := make([]func(), len(g.teardowns))
	copy(teardowns, g.teardowns)

	listeners := make([]Listener, 0, len(g.listeners))
	for _, l := range g.listeners {
		listeners = append(listeners, l)
	}
	return teardowns, listeners
}
