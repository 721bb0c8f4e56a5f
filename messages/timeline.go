////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package messages holds the per-conversation message timeline: an ordered,
// deduplicated merge of REST-fetched history, optimistic local sends, server
// acknowledgements, and realtime pushes.
package messages

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/relaychat/client/models"
)

// Entry is a timeline element. Confirmed entries carry a server-assigned
// message ID. A pending entry is a local send awaiting acknowledgement; it
// has no server ID and is identified by its client-generated correlation ID.
type Entry struct {
	models.Message

	// Pending is true until the server acknowledges the send.
	Pending bool
	// Failed is set by FailSend. The entry stays in the timeline; the
	// caller decides whether to retry or retract.
	Failed bool
	// CorrelationID matches an acknowledgement to its optimistic entry.
	// Matching by content would break on duplicated content.
	CorrelationID string
}

// sortKey is a stable tiebreak for entries sharing a timestamp.
func (e *Entry) sortKey() string {
	if e.ID != "" {
		return e.ID
	}
	return e.CorrelationID
}

// Draft is a locally-composed message before it has been sent.
type Draft struct {
	Content    string
	Attachment *models.Attachment
}

// Timeline is the ordered message history of one conversation. All
// functions are thread safe.
type Timeline struct {
	conversationID string
	selfID         string

	mux           sync.RWMutex
	entries       []*Entry
	byID          map[string]*Entry // confirmed entries by server ID
	byCorrelation map[string]*Entry // pending entries by correlation ID
	sent          map[string]struct{} // server IDs of locally-sent messages
}

// NewTimeline returns an empty timeline for one conversation. selfID is the
// local identity, used to stamp optimistic sends.
func NewTimeline(conversationID, selfID string) *Timeline {
	return &Timeline{
		conversationID: conversationID,
		selfID:         selfID,
		byID:           make(map[string]*Entry),
		byCorrelation:  make(map[string]*Entry),
		sent:           make(map[string]struct{}),
	}
}

// ConversationID returns the conversation this timeline belongs to.
func (tl *Timeline) ConversationID() string {
	return tl.conversationID
}

// Messages returns a snapshot of the timeline ordered by createdAt
// ascending.
func (tl *Timeline) Messages() []Entry {
	tl.mux.RLock()
	defer tl.mux.RUnlock()

	out := make([]Entry, len(tl.entries))
	for i, e := range tl.entries {
		out[i] = *e
	}
	return out
}

// Len returns the number of entries, pending included.
func (tl *Timeline) Len() int {
	tl.mux.RLock()
	defer tl.mux.RUnlock()
	return len(tl.entries)
}

// Last returns the newest confirmed message. Pending entries are excluded:
// they have no stable identity outside this timeline yet.
func (tl *Timeline) Last() (models.Message, bool) {
	tl.mux.RLock()
	defer tl.mux.RUnlock()

	for i := len(tl.entries) - 1; i >= 0; i-- {
		if !tl.entries[i].Pending {
			return tl.entries[i].Message, true
		}
	}
	return models.Message{}, false
}

// Replace swaps the confirmed history for a fresh REST fetch, keeping any
// still-pending local sends. Seen state only moves forward: an entry the
// client already saw as seen does not revert if the fetch lags behind.
func (tl *Timeline) Replace(msgs []models.Message) {
	tl.mux.Lock()
	defer tl.mux.Unlock()

	pending := make([]*Entry, 0)
	for _, e := range tl.entries {
		if e.Pending {
			pending = append(pending, e)
		}
	}

	prevSeen := make(map[string]struct{})
	for id, e := range tl.byID {
		if e.Status == models.Seen {
			prevSeen[id] = struct{}{}
		}
	}

	tl.entries = tl.entries[:0]
	tl.byID = make(map[string]*Entry, len(msgs))

	for _, msg := range msgs {
		if _, dup := tl.byID[msg.ID]; dup {
			jww.WARN.Printf("Fetch for %s contained message %s twice",
				tl.conversationID, msg.ID)
			continue
		}
		e := &Entry{Message: msg}
		if _, seen := prevSeen[msg.ID]; seen {
			e.Status = models.Seen
		}
		tl.entries = append(tl.entries, e)
		tl.byID[msg.ID] = e
	}

	tl.entries = append(tl.entries, pending...)
	tl.resort()
}

// AppendLocal adds an optimistic entry for a local send and returns its
// snapshot. The entry carries no server ID until ReconcileSent runs.
func (tl *Timeline) AppendLocal(draft Draft) Entry {
	e := &Entry{
		Message: models.Message{
			Content:        draft.Content,
			Attachment:     draft.Attachment,
			SenderID:       tl.selfID,
			ConversationID: tl.conversationID,
			Status:         models.Unseen,
			CreatedAt:      time.Now(),
		},
		Pending:       true,
		CorrelationID: uuid.NewString(),
	}

	tl.mux.Lock()
	tl.byCorrelation[e.CorrelationID] = e
	tl.entries = append(tl.entries, e)
	tl.resort()
	tl.mux.Unlock()

	return *e
}

// ReconcileSent replaces the optimistic entry with the server-confirmed
// message. If a realtime push already delivered the same message ID, the
// pending entry is dropped instead, leaving exactly one entry. Unknown
// correlation IDs are ignored: the entry may have been retracted.
func (tl *Timeline) ReconcileSent(correlationID string,
	serverMsg models.Message) {
	tl.mux.Lock()
	defer tl.mux.Unlock()

	e, ok := tl.byCorrelation[correlationID]
	if !ok {
		jww.DEBUG.Printf("Reconcile for unknown correlation %s ignored",
			correlationID)
		return
	}
	delete(tl.byCorrelation, correlationID)
	tl.sent[serverMsg.ID] = struct{}{}

	if existing, merged := tl.byID[serverMsg.ID]; merged {
		// The push beat the acknowledgement; drop the optimistic entry.
		tl.remove(e)
		if serverMsg.Status == models.Seen {
			existing.Status = models.Seen
		}
		tl.resort()
		return
	}

	prevStatus := e.Status
	e.Message = serverMsg
	if prevStatus == models.Seen {
		e.Status = models.Seen
	}
	e.Pending = false
	e.Failed = false
	e.CorrelationID = ""
	tl.byID[serverMsg.ID] = e
	tl.resort()
}

// FailSend marks a pending entry as failed. The entry is not removed; the
// caller decides between retrying the identical payload and retracting.
func (tl *Timeline) FailSend(correlationID string) {
	tl.mux.Lock()
	defer tl.mux.Unlock()

	if e, ok := tl.byCorrelation[correlationID]; ok {
		e.Failed = true
	}
}

// RetractLocal removes a pending entry. Used when the caller gives up on a
// failed send.
func (tl *Timeline) RetractLocal(correlationID string) {
	tl.mux.Lock()
	defer tl.mux.Unlock()

	e, ok := tl.byCorrelation[correlationID]
	if !ok {
		return
	}
	delete(tl.byCorrelation, correlationID)
	tl.remove(e)
}

// MergeRemote inserts a pushed message, deduplicating by server ID.
// Applying the same message twice is a no-op apart from forward-only status
// convergence. Messages for other conversations are rejected.
func (tl *Timeline) MergeRemote(msg models.Message) {
	if msg.ConversationID != tl.conversationID {
		jww.WARN.Printf("Dropping message %s for conversation %s pushed at "+
			"timeline %s", msg.ID, msg.ConversationID, tl.conversationID)
		return
	}

	tl.mux.Lock()
	defer tl.mux.Unlock()

	if existing, ok := tl.byID[msg.ID]; ok {
		if msg.Status == models.Seen {
			existing.Status = models.Seen
		}
		return
	}

	e := &Entry{Message: msg}
	tl.byID[msg.ID] = e
	tl.entries = append(tl.entries, e)
	tl.resort()
}

// MarkSeen transitions the given confirmed messages to seen. Transitions
// only move forward; unknown IDs are ignored.
func (tl *Timeline) MarkSeen(ids []string) {
	tl.mux.Lock()
	defer tl.mux.Unlock()

	for _, id := range ids {
		if e, ok := tl.byID[id]; ok {
			e.Status = models.Seen
		}
	}
}

// CheckIfSent reports whether the given server ID belongs to a message this
// client sent. Used to divert push echoes of own sends away from new-message
// handling.
func (tl *Timeline) CheckIfSent(id string) bool {
	tl.mux.RLock()
	defer tl.mux.RUnlock()
	_, ok := tl.sent[id]
	return ok
}

// Pending returns snapshots of all unacknowledged local sends.
func (tl *Timeline) Pending() []Entry {
	tl.mux.RLock()
	defer tl.mux.RUnlock()

	out := make([]Entry, 0, len(tl.byCorrelation))
	for _, e := range tl.entries {
		if e.Pending {
			out = append(out, *e)
		}
	}
	return out
}

// resort restores createdAt-ascending order. Insert-then-resort keeps the
// ordering stable under out-of-order arrival. Callers must hold tl.mux.
func (tl *Timeline) resort() {
	sort.SliceStable(tl.entries, func(i, j int) bool {
		a, b := tl.entries[i], tl.entries[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.sortKey() < b.sortKey()
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// remove drops the entry from the slice and the ID map. Callers must hold
// tl.mux.
func (tl *Timeline) remove(target *Entry) {
	for i, e := range tl.entries {
		if e == target {
			tl.entries = append(tl.entries[:i], tl.entries[i+1:]...)
			break
		}
	}
	if target.ID != "" {
		if e, ok := tl.byID[target.ID]; ok && e == target {
			delete(tl.byID, target.ID)
		}
	}
}

// RemoveMessage drops a confirmed message, e.g. after a delete operation or
// a removal push.
func (tl *Timeline) RemoveMessage(id string) {
	tl.mux.Lock()
	defer tl.mux.Unlock()

	if e, ok := tl.byID[id]; ok {
		tl.remove(e)
	}
}

// ApplyEdit rewrites the content of a confirmed message in place.
func (tl *Timeline) ApplyEdit(msg models.Message) {
	tl.mux.Lock()
	defer tl.mux.Unlock()

	if e, ok := tl.byID[msg.ID]; ok {
		prevStatus := e.Status
		e.Message = msg
		if prevStatus == models.Seen {
			e.Status = models.Seen
		}
		tl.resort()
	}
}
