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

// Tests that NewSingle returns a Single with the given name and running
// status.
func TestNewSingle(t *testing.T) {
	name := "readPump"
	single := NewSingle(name)

	if single.Name() != name {
		t.Errorf("Name does not match expected.\nexpected: %s\nreceived: %s",
			name, single.Name())
	}

	if !single.IsRunning() {
		t.Errorf("New single reports status %s, expected %s",
			single.GetStatus(), Running)
	}
}

// Tests that the quit channel is triggered by Close and the status winds down
// once the consuming goroutine acknowledges.
func TestSingle_Close(t *testing.T) {
	single := NewSingle("worker")

	acked := make(chan struct{})
	go func() {
		<-single.Quit()
		single.ToStopped()
		close(acked)
	}()

	if err := single.Close(); err != nil {
		t.Errorf("Close returned an error: %+v", err)
	}

	select {
	case <-acked:
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for the goroutine to observe quit.")
	}

	if !single.IsStopped() {
		t.Errorf("Single reports status %s, expected %s",
			single.GetStatus(), Stopped)
	}
}

// Tests that a second Close is a no-op and does not error.
func TestSingle_Close_Twice(t *testing.T) {
	single := NewSingle("worker")
	go func() {
		<-single.Quit()
		single.ToStopped()
	}()

	if err := single.Close(); err != nil {
		t.Errorf("First Close returned an error: %+v", err)
	}
	if err := single.Close(); err != nil {
		t.Errorf("Second Close returned an error: %+v", err)
	}
}

// Tests that closing the quit channel wakes every watcher, not just one,
// since a goroutine may select on Quit from more than one loop.
func TestSingle_Close_WakesAllWatchers(t *testing.T) {
	single := NewSingle("worker")

	const watchers = 3
	woke := make(chan struct{}, watchers)
	for i := 0; i < watchers; i++ {
		go func() {
			<-single.Quit()
			woke <- struct{}{}
		}()
	}

	if err := single.Close(); err != nil {
		t.Errorf("Close returned an error: %+v", err)
	}

	for i := 0; i < watchers; i++ {
		select {
		case <-woke:
		case <-time.After(time.Second):
			t.Fatalf("Watcher %d never observed quit.", i)
		}
	}
}

// Tests that WaitForStopped times out when the stoppable never acknowledges.
func TestWaitForStopped_Timeout(t *testing.T) {
	single := NewSingle("stuck")

	err := WaitForStopped(single, 150*time.Millisecond)
	if err == nil {
		t.Error("WaitForStopped did not time out on a running stoppable.")
	}
}
