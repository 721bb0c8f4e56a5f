////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package conversations maintains the ordered index of conversation
// summaries, merging REST fetches, local activity, and realtime pushes.
package conversations

import (
	"sort"
	"sync"

	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/relaychat/client/models"
)

// CreateFunc performs the get-or-create REST call for a counterpart.
type CreateFunc func(counterpartID string) (models.ConversationSummary, error)

// Store is the conversation index. Exactly one summary exists per
// conversation ID; List returns most-recently-active first. All functions
// are thread safe.
type Store struct {
	mux   sync.RWMutex
	order []string // conversation IDs, most recent first
	byID  map[string]models.ConversationSummary

	create   CreateFunc
	inflight map[string]*createFlight

	// generation increments on Clear so a create that was in flight across
	// a logout cannot write the old identity's conversation into the new
	// index.
	generation uint64
}

type createFlight struct {
	done    chan struct{}
	summary models.ConversationSummary
	err     error
}

// NewStore returns an empty index. create backs GetOrCreate and may be nil
// for a read-only index.
func NewStore(create CreateFunc) *Store {
	return &Store{
		byID:     make(map[string]models.ConversationSummary),
		create:   create,
		inflight: make(map[string]*createFlight),
	}
}

// List returns all summaries, most recently active first.
func (s *Store) List() []models.ConversationSummary {
	s.mux.RLock()
	defer s.mux.RUnlock()

	list := make([]models.ConversationSummary, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.byID[id])
	}
	return list
}

// Get looks a summary up by conversation ID.
func (s *Store) Get(id string) (models.ConversationSummary, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	summary, ok := s.byID[id]
	return summary, ok
}

// Len returns the number of indexed conversations.
func (s *Store) Len() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return len(s.order)
}

// Replace swaps the entire index for a fresh REST fetch. The fetch is
// authoritative; local state is dropped.
func (s *Store) Replace(list []models.ConversationSummary) {
	sorted := make([]models.ConversationSummary, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})

	s.mux.Lock()
	defer s.mux.Unlock()

	s.order = s.order[:0]
	s.byID = make(map[string]models.ConversationSummary, len(sorted))
	for _, summary := range sorted {
		if _, dup := s.byID[summary.ID]; dup {
			jww.WARN.Printf("Fetch contained conversation %s twice; "+
				"keeping the first", summary.ID)
			continue
		}
		s.order = append(s.order, summary.ID)
		s.byID[summary.ID] = summary
	}
}

// Upsert inserts a summary at the head or replaces an existing one in
// place, moving it to the head if its activity is newer.
func (s *Store) Upsert(summary models.ConversationSummary) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.upsert(summary)
}

// ApplyUpdated merges a conversation:updated (or :created) push. Unknown
// conversations insert at the head: a push can precede the REST fetch that
// would have contained it. Known ones are replaced in place and move to the
// head only if updatedAt increased. The summary's updatedAt never regresses.
func (s *Store) ApplyUpdated(summary models.ConversationSummary) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.upsert(summary)
}

// upsert implements the merge. Callers must hold s.mux.
func (s *Store) upsert(summary models.ConversationSummary) {
	existing, ok := s.byID[summary.ID]
	if !ok {
		s.order = append([]string{summary.ID}, s.order...)
		s.byID[summary.ID] = summary
		return
	}

	advanced := summary.UpdatedAt.After(existing.UpdatedAt)
	if !advanced {
		// Replace the fields (a stale push may legitimately overwrite a
		// local optimistic unread reset) but keep the newer timestamp.
		summary.UpdatedAt = existing.UpdatedAt
	}
	s.byID[summary.ID] = summary

	if advanced {
		s.moveToHead(summary.ID)
	}
}

// Remove drops a conversation from the index. Unknown IDs are a no-op.
func (s *Store) Remove(id string) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.byID[id]; !ok {
		return
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Joined zeroes the unread count when the local user opens a conversation.
// This is optimistic; the authoritative count is whatever the next fetch or
// push reports, and a late push reflecting pre-join state may restore it.
func (s *Store) Joined(id string) {
	s.mux.Lock()
	defer s.mux.Unlock()

	summary, ok := s.byID[id]
	if !ok {
		return
	}
	summary.UnreadCount = 0
	s.byID[id] = summary
}

// Bump refreshes the denormalized lastMessage projection from timeline
// activity and moves the conversation to the head. Pending (unconfirmed)
// messages must not be passed here.
func (s *Store) Bump(conversationID string, msg models.Message) {
	s.mux.Lock()
	defer s.mux.Unlock()

	summary, ok := s.byID[conversationID]
	if !ok {
		jww.DEBUG.Printf("Bump for unindexed conversation %s ignored",
			conversationID)
		return
	}

	last := msg
	summary.LastMessage = &last
	if msg.CreatedAt.After(summary.UpdatedAt) {
		summary.UpdatedAt = msg.CreatedAt
	}
	s.byID[conversationID] = summary
	s.moveToHead(conversationID)
}

// Clear empties the index. Run on logout so the departing identity's
// conversations are discarded, not merely hidden.
func (s *Store) Clear() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.order = nil
	s.byID = make(map[string]models.ConversationSummary)
	s.inflight = make(map[string]*createFlight)
	s.generation++
}

// moveToHead moves id to the front of the order. Callers must hold s.mux.
func (s *Store) moveToHead(id string) {
	for i, existing := range s.order {
		if existing == id {
			if i == 0 {
				return
			}
			copy(s.order[1:i+1], s.order[:i])
			s.order[0] = id
			return
		}
	}
	s.order = append([]string{id}, s.order...)
}
