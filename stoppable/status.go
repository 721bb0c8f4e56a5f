////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import (
	"time"

	"github.com/pkg/errors"
)

// pollPeriod is the duration to wait between polls of a stoppable's status
// in WaitForStopped.
const pollPeriod = 100 * time.Millisecond

// Status holds the current status of a Stoppable.
type Status uint32

const (
	Running Status = iota
	Stopping
	Stopped
)

// String prints a string representation of the Status. This functions
// satisfies the fmt.Stringer interface.
func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "INVALID STATUS " + string(rune(s))
	}
}

// Stoppable interface for stopping a goroutine. All functions are thread safe.
type Stoppable interface {
	Name() string
	GetStatus() Status
	IsRunning() bool
	IsStopping() bool
	IsStopped() bool
	Close() error
}

// WaitForStopped polls the stoppable until it reports stopped or the timeout
// elapses.
func WaitForStopped(s Stoppable, timeout time.Duration) error {
	done := time.NewTimer(timeout)
	defer done.Stop()
	tick := time.NewTicker(pollPeriod)
	defer tick.Stop()

	for {
		if s.IsStopped() {
			return nil
		}
		select {
		case <-done.C:
			return errors.Errorf("timed out after %s waiting for stoppable "+
				"%q to stop; status: %s", timeout, s.Name(), s.GetStatus())
		case <-tick.C:
		}
	}
}
