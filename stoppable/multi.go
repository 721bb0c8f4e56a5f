////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// Error message.
const closeMultiErr = "multi stoppable %q failed to close %d/%d stoppables"

// Multi holds a list of stoppables that are stopped as a group. It adheres
// to the Stoppable interface.
type Multi struct {
	stoppables []Stoppable
	name       string
	mux        sync.RWMutex
	once       sync.Once
}

// NewMulti returns a new multi Stoppable.
func NewMulti(name string) *Multi {
	return &Multi{name: name}
}

// Add adds the given Stoppable to the list of stoppables.
func (m *Multi) Add(stoppable Stoppable) {
	m.mux.Lock()
	m.stoppables = append(m.stoppables, stoppable)
	m.mux.Unlock()
}

// Name returns the name of the Multi Stoppable and the names of all
// stoppables it contains.
func (m *Multi) Name() string {
	m.mux.RLock()
	names := make([]string, len(m.stoppables))
	for i, s := range m.stoppables {
		names[i] = s.Name()
	}
	m.mux.RUnlock()

	return m.name + "{" + strings.Join(names, ", ") + "}"
}

// GetStatus returns the lowest status of all of the Stoppable children. The
// status is not the status of all Stoppables, but the status of the
// least-stopped among them.
func (m *Multi) GetStatus() Status {
	lowest := Stopped
	m.mux.RLock()
	for _, s := range m.stoppables {
		if status := s.GetStatus(); status < lowest {
			lowest = status
		}
	}
	m.mux.RUnlock()

	if len(m.stoppables) == 0 {
		return Stopped
	}

	return lowest
}

// IsRunning returns true if any of the contained stoppables are running.
func (m *Multi) IsRunning() bool {
	return m.GetStatus() == Running
}

// IsStopping returns true if the least-stopped contained stoppable is
// stopping.
func (m *Multi) IsStopping() bool {
	return m.GetStatus() == Stopping
}

// IsStopped returns true if all of the contained stoppables are stopped.
func (m *Multi) IsStopped() bool {
	return m.GetStatus() == Stopped
}

// Close issues a close to all the contained stoppables concurrently and
// returns an error if any of them fail to close.
func (m *Multi) Close() error {
	var err error

	m.once.Do(func() {
		var numErrors uint32
		var wg sync.WaitGroup

		m.mux.Lock()
		for _, s := range m.stoppables {
			wg.Add(1)
			go func(s Stoppable) {
				if closeErr := s.Close(); closeErr != nil {
					jww.ERROR.Printf("Failed to close stoppable %q in %q: %+v",
						s.Name(), m.name, closeErr)
					atomic.AddUint32(&numErrors, 1)
				}
				wg.Done()
			}(s)
		}
		m.mux.Unlock()

		wg.Wait()

		if numErrors > 0 {
			err = errors.Errorf(
				closeMultiErr, m.name, numErrors, len(m.stoppables))
			jww.ERROR.Print(err.Error())
		}
	})

	return err
}
