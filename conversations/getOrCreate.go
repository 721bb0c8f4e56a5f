////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package conversations

import (
	"github.com/pkg/errors"

	"gitlab.com/relaychat/client/models"
)

// GetOrCreate returns the conversation with the given counterpart, creating
// it server-side if it does not exist. Idempotent: a second caller arriving
// while the first's request is in flight waits on the same result instead of
// creating a duplicate conversation.
func (s *Store) GetOrCreate(counterpartID string) (
	models.ConversationSummary, error) {
	if s.create == nil {
		return models.ConversationSummary{},
			errors.New("store has no create function")
	}

	s.mux.Lock()
	// Already indexed: return it without a round trip.
	for _, id := range s.order {
		if s.byID[id].Counterpart.ID == counterpartID {
			summary := s.byID[id]
			s.mux.Unlock()
			return summary, nil
		}
	}

	// Join an in-flight create for the same counterpart.
	if flight, ok := s.inflight[counterpartID]; ok {
		s.mux.Unlock()
		<-flight.done
		return flight.summary, flight.err
	}

	flight := &createFlight{done: make(chan struct{})}
	s.inflight[counterpartID] = flight
	gen := s.generation
	s.mux.Unlock()

	summary, err := s.create(counterpartID)

	s.mux.Lock()
	// Clear may have replaced the inflight map while the create was out;
	// only remove the flight if it is still the registered one.
	if s.inflight[counterpartID] == flight {
		delete(s.inflight, counterpartID)
	}
	stale := s.generation != gen
	if err == nil && !stale {
		s.upsert(summary)
	}
	s.mux.Unlock()

	if stale && err == nil {
		// The index was cleared mid-flight; the result belongs to the
		// departed identity and must not resurface.
		summary = models.ConversationSummary{}
		err = errors.New("conversation index was cleared during create")
	}

	flight.summary, flight.err = summary, err
	close(flight.done)

	return summary, err
}
