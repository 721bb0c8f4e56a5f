////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package seen turns viewport visibility into at-most-once mark-seen
// signals. The visibility observer itself (intersection callbacks) is a
// boundary input; the tracker only decides what to emit.
package seen

import (
	"sync"

	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/relaychat/client/messages"
	"gitlab.com/relaychat/client/models"
)

// EmitFunc delivers a mark-seen signal for one message ID. Wired to
// POST /messages/{id}/seen or the channel's message:seen event.
type EmitFunc func(messageID string)

// Tracker suppresses repeat emissions while a message stays in view.
// Eviction from the viewport re-arms the message, so a signal lost in
// transit gets another chance when the message scrolls back in. All
// functions are thread safe.
type Tracker struct {
	selfID string
	emit   EmitFunc

	mux     sync.Mutex
	inView  map[string]struct{} // emitted and still visible
	stopped bool
}

// NewTracker returns a tracker emitting on behalf of selfID.
func NewTracker(selfID string, emit EmitFunc) *Tracker {
	return &Tracker{
		selfID: selfID,
		emit:   emit,
		inView: make(map[string]struct{}),
	}
}

// Observe receives the set of entries currently intersecting the viewport.
// For every confirmed message authored by someone else and still unseen, it
// emits exactly one signal per visibility episode. Entries absent from the
// set are evicted and re-armed.
func (t *Tracker) Observe(visible []messages.Entry) {
	t.mux.Lock()
	defer t.mux.Unlock()

	if t.stopped {
		return
	}

	current := make(map[string]struct{}, len(visible))
	var emits []string

	for i := range visible {
		e := &visible[i]
		if e.Pending || e.ID == "" {
			continue
		}
		current[e.ID] = struct{}{}

		if e.SenderID == t.selfID || e.Status == models.Seen {
			continue
		}
		if _, already := t.inView[e.ID]; already {
			continue
		}
		t.inView[e.ID] = struct{}{}
		emits = append(emits, e.ID)
	}

	// Evict everything that scrolled out so re-entry can emit again.
	for id := range t.inView {
		if _, still := current[id]; !still {
			delete(t.inView, id)
		}
	}

	for _, id := range emits {
		jww.TRACE.Printf("Marking message %s seen", id)
		t.emit(id)
	}
}

// Stop ceases emission, e.g. when navigating away from the conversation.
// Buffered timeline state is untouched; a new tracker resumes on return.
func (t *Tracker) Stop() {
	t.mux.Lock()
	t.stopped = true
	t.mux.Unlock()
}
