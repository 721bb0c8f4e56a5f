////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import (
	"sync/atomic"

	jww "github.com/spf13/jwalterweatherman"
)

// Single coordinates the shutdown of one goroutine. Close signals through
// the quit channel; the goroutine acknowledges by calling ToStopped on its
// way out. The quit channel is closed rather than sent to, so any number of
// select loops may watch it.
type Single struct {
	name   string
	status uint32
	quit   chan struct{}
}

// NewSingle returns a running Single with the given name.
func NewSingle(name string) *Single {
	return &Single{
		name: name,
		quit: make(chan struct{}),
	}
}

// Name returns the name given at construction.
func (s *Single) Name() string {
	return s.name
}

// GetStatus returns the current lifecycle status.
func (s *Single) GetStatus() Status {
	return Status(atomic.LoadUint32(&s.status))
}

// IsRunning returns true while neither Close nor ToStopped has run.
func (s *Single) IsRunning() bool {
	return s.GetStatus() == Running
}

// IsStopping returns true between Close and the goroutine's acknowledgement.
func (s *Single) IsStopping() bool {
	return s.GetStatus() == Stopping
}

// IsStopped returns true once the goroutine has acknowledged shutdown.
func (s *Single) IsStopped() bool {
	return s.GetStatus() == Stopped
}

// Quit returns the channel closed when Close is called. Receive from it in
// the goroutine's select loop.
func (s *Single) Quit() <-chan struct{} {
	return s.quit
}

// Close requests shutdown and returns without waiting for the
// acknowledgement (see WaitForStopped for that). Extra calls are no-ops.
func (s *Single) Close() error {
	if atomic.CompareAndSwapUint32(
		&s.status, uint32(Running), uint32(Stopping)) {
		jww.TRACE.Printf("Stoppable %q: %s -> %s", s.name, Running, Stopping)
		close(s.quit)
	}
	return nil
}

// ToStopped is the goroutine's acknowledgement that it has wound down.
// Panics when called before Close or twice; both are lifecycle bugs in the
// caller.
func (s *Single) ToStopped() {
	if !atomic.CompareAndSwapUint32(
		&s.status, uint32(Stopping), uint32(Stopped)) {
		jww.FATAL.Panicf("Stoppable %q acknowledged shutdown out of order "+
			"(status %s)", s.name, s.GetStatus())
	}
	jww.TRACE.Printf("Stoppable %q: %s -> %s", s.name, Stopping, Stopped)
}
