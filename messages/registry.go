////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messages

import "sync"

// Timelines is the registry of per-conversation timelines. Navigating away
// from a conversation keeps its buffered timeline; only a logout discards
// them, because they belong to the departing identity.
type Timelines struct {
	mux            sync.RWMutex
	selfID         string
	byConversation map[string]*Timeline
}

// NewTimelines returns an empty registry.
func NewTimelines() *Timelines {
	return &Timelines{
		byConversation: make(map[string]*Timeline),
	}
}

// SetSelf records the local identity stamped onto optimistic sends. Called
// by the session gate on login.
func (t *Timelines) SetSelf(id string) {
	t.mux.Lock()
	t.selfID = id
	t.mux.Unlock()
}

// Get returns the timeline for a conversation, creating it if needed.
func (t *Timelines) Get(conversationID string) *Timeline {
	t.mux.RLock()
	tl, ok := t.byConversation[conversationID]
	t.mux.RUnlock()
	if ok {
		return tl
	}

	t.mux.Lock()
	defer t.mux.Unlock()
	if tl, ok = t.byConversation[conversationID]; !ok {
		tl = NewTimeline(conversationID, t.selfID)
		t.byConversation[conversationID] = tl
	}
	return tl
}

// Peek returns the timeline only if it already exists.
func (t *Timelines) Peek(conversationID string) (*Timeline, bool) {
	t.mux.RLock()
	defer t.mux.RUnlock()
	tl, ok := t.byConversation[conversationID]
	return tl, ok
}

// Remove drops one conversation's timeline, e.g. on conversation deletion.
func (t *Timelines) Remove(conversationID string) {
	t.mux.Lock()
	delete(t.byConversation, conversationID)
	t.mux.Unlock()
}

// Clear discards every timeline. Run on logout.
func (t *Timelines) Clear() {
	t.mux.Lock()
	t.byConversation = make(map[string]*Timeline)
	t.selfID = ""
	t.mux.Unlock()
}
