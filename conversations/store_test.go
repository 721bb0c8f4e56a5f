////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package conversations

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/relaychat/client/models"
)

func summary(id, counterpart string, unread int,
	updatedAt time.Time) models.ConversationSummary {
	return models.ConversationSummary{
		ID:          id,
		Counterpart: models.Identity{ID: counterpart},
		UnreadCount: unread,
		UpdatedAt:   updatedAt,
	}
}

func ids(list []models.ConversationSummary) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.ID
	}
	return out
}

func TestStore_ApplyUpdated_UnknownInsertsAtHead(t *testing.T) {
	s := NewStore(nil)
	now := time.Now()

	s.Replace([]models.ConversationSummary{
		summary("c1", "u1", 0, now.Add(-time.Hour)),
	})

	// Push arrives before any fetch observed c2
	s.ApplyUpdated(summary("c2", "u2", 1, now))

	require.Equal(t, []string{"c2", "c1"}, ids(s.List()))
}

func TestStore_ApplyUpdated_MoveToHeadOnlyIfNewer(t *testing.T) {
	s := NewStore(nil)
	now := time.Now()

	s.Replace([]models.ConversationSummary{
		summary("c1", "u1", 0, now),
		summary("c2", "u2", 0, now.Add(-time.Minute)),
	})

	// Older push for c2: fields replace, position holds, updatedAt holds
	s.ApplyUpdated(summary("c2", "u2", 7, now.Add(-2*time.Minute)))
	require.Equal(t, []string{"c1", "c2"}, ids(s.List()))

	got, _ := s.Get("c2")
	require.Equal(t, 7, got.UnreadCount)
	require.True(t, got.UpdatedAt.Equal(now.Add(-time.Minute)),
		"updatedAt must never regress")

	// Newer push moves it to the head
	s.ApplyUpdated(summary("c2", "u2", 8, now.Add(time.Minute)))
	require.Equal(t, []string{"c2", "c1"}, ids(s.List()))
}

// Scenario C: joined zeroes the unread count, and a later stale push may
// legitimately restore it. Accepted behavior, not a bug.
func TestStore_Joined_StalePushOverwrites(t *testing.T) {
	s := NewStore(nil)
	now := time.Now()

	s.Replace([]models.ConversationSummary{summary("c1", "u1", 3, now)})

	s.Joined("c1")
	got, _ := s.Get("c1")
	require.Equal(t, 0, got.UnreadCount)

	s.ApplyUpdated(summary("c1", "u1", 5, now.Add(-time.Second)))
	got, _ = s.Get("c1")
	require.Equal(t, 5, got.UnreadCount)
}

func TestStore_Remove(t *testing.T) {
	s := NewStore(nil)
	now := time.Now()
	s.Replace([]models.ConversationSummary{
		summary("c1", "u1", 0, now),
		summary("c2", "u2", 0, now.Add(-time.Minute)),
	})

	s.Remove("c1")
	require.Equal(t, []string{"c2"}, ids(s.List()))

	s.Remove("never-existed")
	require.Equal(t, 1, s.Len())
}

func TestStore_Bump(t *testing.T) {
	s := NewStore(nil)
	now := time.Now()
	s.Replace([]models.ConversationSummary{
		summary("c1", "u1", 0, now),
		summary("c2", "u2", 0, now.Add(-time.Minute)),
	})

	msg := models.Message{
		ID:             "m9",
		Content:        "newest",
		SenderID:       "u2",
		ConversationID: "c2",
		Status:         models.Unseen,
		CreatedAt:      now.Add(time.Minute),
	}
	s.Bump("c2", msg)

	require.Equal(t, []string{"c2", "c1"}, ids(s.List()))
	got, _ := s.Get("c2")
	require.NotNil(t, got.LastMessage)
	require.Equal(t, "m9", got.LastMessage.ID)
	require.True(t, got.UpdatedAt.Equal(msg.CreatedAt))
}

// Two concurrent GetOrCreate calls for the same counterpart must yield the
// same conversation and a single create round trip.
func TestStore_GetOrCreate_Idempotent(t *testing.T) {
	var creates int32
	release := make(chan struct{})

	s := NewStore(func(counterpartID string) (models.ConversationSummary, error) {
		atomic.AddInt32(&creates, 1)
		<-release
		return summary("c-new", counterpartID, 0, time.Now()), nil
	})

	const callers = 4
	results := make([]string, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := s.GetOrCreate("u7")
			results[i], errs[i] = got.ID, err
		}(i)
	}

	for atomic.LoadInt32(&creates) == 0 {
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&creates))
	for i, id := range results {
		require.NoError(t, errs[i])
		require.Equal(t, "c-new", id)
	}
	require.Equal(t, 1, s.Len())
}

// Once indexed, GetOrCreate returns the cached summary with no round trip.
func TestStore_GetOrCreate_Cached(t *testing.T) {
	var creates int32
	s := NewStore(func(counterpartID string) (models.ConversationSummary, error) {
		atomic.AddInt32(&creates, 1)
		return summary("c-new", counterpartID, 0, time.Now()), nil
	})

	first, err := s.GetOrCreate("u7")
	require.NoError(t, err)
	second, err := s.GetOrCreate("u7")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, int32(1), atomic.LoadInt32(&creates))
}

// A create that is still in flight when Clear runs must not write the old
// identity's conversation into the fresh index.
func TestStore_GetOrCreate_ClearedMidFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	s := NewStore(func(counterpartID string) (models.ConversationSummary, error) {
		close(entered)
		<-release
		return summary("c-old", counterpartID, 0, time.Now()), nil
	})

	var got models.ConversationSummary
	var err error
	done := make(chan struct{})
	go func() {
		got, err = s.GetOrCreate("u7")
		close(done)
	}()

	<-entered
	s.Clear()
	close(release)
	<-done

	require.Error(t, err)
	require.Empty(t, got.ID)
	require.Zero(t, s.Len(), "cleared index must stay empty")
}

// After Clear, a new GetOrCreate for the same counterpart performs its own
// create instead of joining or colliding with the abandoned flight.
func TestStore_GetOrCreate_FreshFlightAfterClear(t *testing.T) {
	var creates int32
	entered := make(chan struct{})
	release := make(chan struct{})

	s := NewStore(func(counterpartID string) (models.ConversationSummary, error) {
		if atomic.AddInt32(&creates, 1) == 1 {
			close(entered)
			<-release
			return summary("c-old", counterpartID, 0, time.Now()), nil
		}
		return summary("c-new", counterpartID, 0, time.Now()), nil
	})

	firstDone := make(chan struct{})
	go func() {
		_, _ = s.GetOrCreate("u7")
		close(firstDone)
	}()

	<-entered
	s.Clear()

	got, err := s.GetOrCreate("u7")
	require.NoError(t, err)
	require.Equal(t, "c-new", got.ID)

	close(release)
	<-firstDone

	require.Equal(t, int32(2), atomic.LoadInt32(&creates))
	require.Equal(t, 1, s.Len())
	indexed, ok := s.Get("c-new")
	require.True(t, ok)
	require.Equal(t, "c-new", indexed.ID)
	_, ok = s.Get("c-old")
	require.False(t, ok)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore(nil)
	s.Replace([]models.ConversationSummary{
		summary("c1", "u1", 2, time.Now()),
	})

	s.Clear()
	require.Zero(t, s.Len())
	_, ok := s.Get("c1")
	require.False(t, ok)
}
