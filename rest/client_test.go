////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package rest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/relaychat/client/faults"
)

// Tests that a 401 triggers one renewal and the original request is replayed
// with the renewed session.
func TestClient_RenewAndReplay(t *testing.T) {
	var refreshes, meCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "fresh", Path: "/"})
	})
	mux.HandleFunc("/user/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		if cookie, err := r.Cookie("session"); err != nil || cookie.Value != "fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":"u1","email":"a@b.c","isActive":true}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	identity, err := c.Me()
	require.NoError(t, err)
	require.Equal(t, "u1", identity.ID)
	require.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	require.Equal(t, int32(2), atomic.LoadInt32(&meCalls))
}

// Tests that concurrent 401s share a single renewal in flight.
func TestClient_RenewSingleFlight(t *testing.T) {
	var refreshes int32
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
		<-release
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "fresh", Path: "/"})
	})
	mux.HandleFunc("/user/me", func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("session"); err != nil || cookie.Value != "fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"id":"u1","email":"a@b.c","isActive":true}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Me()
		}(i)
	}

	// Give every caller time to hit the 401 and queue on the renewal
	for atomic.LoadInt32(&refreshes) == 0 {
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&refreshes))
	for i := range errs {
		require.NoError(t, errs[i])
	}
}

// Tests that a failed renewal surfaces AuthenticationExpired and fires the
// expiry callback exactly once.
func TestClient_RenewFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/user/me", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	var expired int32
	c.SetExpiredCallback(func() { atomic.AddInt32(&expired, 1) })

	_, err = c.Me()
	require.Error(t, err)
	require.Equal(t, faults.AuthenticationExpired, faults.KindOf(err))
	require.Equal(t, int32(1), atomic.LoadInt32(&expired))
}

// Tests that a 401 from login itself is a credential failure, never a
// renewal.
func TestClient_LoginNoRenew(t *testing.T) {
	var refreshes int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshes, 1)
	})
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"bad credentials"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Login(LoginRequest{Email: "a@b.c", Password: "nope"})
	require.Error(t, err)
	require.Equal(t, faults.AuthenticationExpired, faults.KindOf(err))
	require.Equal(t, int32(0), atomic.LoadInt32(&refreshes))
}

func TestClient_StatusMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/conversations/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"no such conversation"}`))
	})
	mux.HandleFunc("/conversations/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Conversation("gone")
	require.Equal(t, faults.ValidationRejected, faults.KindOf(err))
	require.Contains(t, err.Error(), "no such conversation")

	_, err = c.Conversation("boom")
	require.Equal(t, faults.ServerFault, faults.KindOf(err))
}

func TestClient_NetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Conversations()
	require.Equal(t, faults.NetworkUnavailable, faults.KindOf(err))
}
