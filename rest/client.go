////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package rest implements the HTTP half of the backend contract. Session
// credentials travel as transport-level cookies; callers never see tokens.
//
// Any authenticated request answered with 401 triggers exactly one silent
// session renewal. Concurrent 401s share the renewal in flight, and the
// original request is replayed once after it succeeds. If renewal fails, the
// registered expiry callback fires so the session gate can force a logout.
package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/relaychat/client/faults"
)

const defaultTimeout = 10 * time.Second

// refreshPath is the renewal endpoint. A 401 from the auth endpoints
// themselves is a credential failure, not an expired session, and is never
// replayed.
const refreshPath = "/auth/refresh"

// Client is a cookie-session HTTP client for the chat backend.
type Client struct {
	baseURL *url.URL
	http    *http.Client

	// Single-flight state for session renewal.
	renewalMux sync.Mutex
	renewal    *renewalFlight

	// expiredCb is invoked after a renewal attempt fails. Set once at wiring
	// time by the session gate.
	expiredCb func()
}

type renewalFlight struct {
	done chan struct{}
	err  error
}

// NewClient returns a Client rooted at the given base URL, e.g.
// "http://localhost:4000/api". The cookie jar is shared with the realtime
// dialer so both transports present the same session.
func NewClient(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid base URL %q", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build cookie jar")
	}

	return &Client{
		baseURL: u,
		http: &http.Client{
			Jar:     jar,
			Timeout: defaultTimeout,
		},
	}, nil
}

// SetExpiredCallback registers the function run when session renewal fails.
// The session gate uses this to force the absent state and broadcast logout.
func (c *Client) SetExpiredCallback(cb func()) {
	c.expiredCb = cb
}

// Jar exposes the cookie jar so the realtime dialer can present the same
// session cookies.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() *url.URL {
	return c.baseURL
}

// resolve joins path onto the base URL.
func (c *Client) resolve(path string) string {
	ref := &url.URL{Path: c.baseURL.Path + path}
	return c.baseURL.ResolveReference(ref).String()
}

// send performs a single HTTP round trip. The body is passed as bytes so it
// can be replayed after a session renewal.
func (c *Client) send(method, path string, body []byte,
	contentType string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, c.resolve(path), reader)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s %s", method, path)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, faults.Wrap(faults.NetworkUnavailable,
			"no response from server", err)
	}
	return resp, nil
}

// do performs a request with the 401 renew-and-replay interceptor and
// decodes a JSON response into out when out is not nil.
func (c *Client) do(method, path string, body []byte, contentType string,
	out interface{}) error {
	resp, err := c.send(method, path, body, contentType)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && !isAuthPath(path) {
		drain(resp)

		if err = c.renewSession(); err != nil {
			return faults.Wrap(faults.AuthenticationExpired,
				"session renewal failed", err)
		}

		jww.DEBUG.Printf("Replaying %s %s after session renewal", method, path)
		resp, err = c.send(method, path, body, contentType)
		if err != nil {
			return err
		}
	}
	defer drain(resp)

	if resp.StatusCode >= 400 {
		return statusFault(resp)
	}

	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode %s %s response",
			method, path)
	}
	return nil
}

// renewSession performs POST /auth/refresh, sharing a single renewal between
// concurrent callers. On failure the expiry callback runs exactly once, from
// the initiating caller.
func (c *Client) renewSession() error {
	c.renewalMux.Lock()
	if c.renewal != nil {
		flight := c.renewal
		c.renewalMux.Unlock()
		<-flight.done
		return flight.err
	}

	flight := &renewalFlight{done: make(chan struct{})}
	c.renewal = flight
	c.renewalMux.Unlock()

	jww.INFO.Print("Session expired; attempting silent renewal")

	resp, err := c.send(http.MethodPost, refreshPath, nil, "")
	if err == nil {
		drain(resp)
		if resp.StatusCode >= 400 {
			err = statusFault(resp)
		}
	}

	flight.err = err
	close(flight.done)

	c.renewalMux.Lock()
	c.renewal = nil
	c.renewalMux.Unlock()

	if err != nil {
		jww.WARN.Printf("Session renewal failed: %+v", err)
		if c.expiredCb != nil {
			c.expiredCb()
		}
	}
	return err
}

// statusFault maps an error response to the fault taxonomy, pulling the
// server's message out of the body when one is present.
func statusFault(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&payload)

	msg := payload.Message
	if msg == "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = resp.Status
	}

	return faults.New(faults.FromStatus(resp.StatusCode), msg)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func isAuthPath(path string) bool {
	switch path {
	case "/auth/login", "/auth/register", refreshPath:
		return true
	}
	return false
}

// get performs a GET and decodes the JSON response into out.
func (c *Client) get(path string, out interface{}) error {
	return c.do(http.MethodGet, path, nil, "", out)
}

// post marshals in as JSON, performs a POST, and decodes into out. Both in
// and out may be nil.
func (c *Client) post(path string, in, out interface{}) error {
	body, contentType, err := encodeJSON(in)
	if err != nil {
		return err
	}
	return c.do(http.MethodPost, path, body, contentType, out)
}

// patch marshals in as JSON, performs a PATCH, and decodes into out.
func (c *Client) patch(path string, in, out interface{}) error {
	body, contentType, err := encodeJSON(in)
	if err != nil {
		return err
	}
	return c.do(http.MethodPatch, path, body, contentType, out)
}

// delete performs a DELETE.
func (c *Client) delete(path string) error {
	return c.do(http.MethodDelete, path, nil, "", nil)
}

func encodeJSON(in interface{}) ([]byte, string, error) {
	if in == nil {
		return nil, "", nil
	}
	body, err := json.Marshal(in)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to encode request body")
	}
	return body, "application/json", nil
}
