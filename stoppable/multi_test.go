////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package stoppable

import (
	"testing"
	"time"
)

// Tests that a Multi closes all of its children and reports stopped once
// every child has wound down.
func TestMulti_Close(t *testing.T) {
	multi := NewMulti("channel")

	for i := 0; i < 3; i++ {
		single := NewSingle("pump")
		go func(s *Single) {
			<-s.Quit()
			s.ToStopped()
		}(single)
		multi.Add(single)
	}

	if !multi.IsRunning() {
		t.Errorf("Multi reports status %s before close, expected %s",
			multi.GetStatus(), Running)
	}

	if err := multi.Close(); err != nil {
		t.Errorf("Close returned an error: %+v", err)
	}

	if err := WaitForStopped(multi, time.Second); err != nil {
		t.Errorf("Multi did not stop: %+v", err)
	}
}

// Tests that an empty Multi reports stopped.
func TestMulti_GetStatus_Empty(t *testing.T) {
	multi := NewMulti("empty")
	if !multi.IsStopped() {
		t.Errorf("Empty multi reports status %s, expected %s",
			multi.GetStatus(), Stopped)
	}
}
