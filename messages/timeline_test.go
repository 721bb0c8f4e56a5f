////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package messages

import (
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/relaychat/client/models"
)

var baseTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func msg(id string, offset time.Duration) models.Message {
	return models.Message{
		ID:             id,
		Content:        "msg " + id,
		SenderID:       "other",
		ConversationID: "c1",
		Status:         models.Unseen,
		CreatedAt:      baseTime.Add(offset),
	}
}

func timelineIDs(tl *Timeline) []string {
	entries := tl.Messages()
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

// Optimistic send acknowledged by the server yields exactly one confirmed
// entry (Scenario A).
func TestTimeline_ReconcileSent(t *testing.T) {
	tl := NewTimeline("c1", "me")

	pending := tl.AppendLocal(Draft{Content: "hi"})
	require.True(t, pending.Pending)
	require.Empty(t, pending.ID)
	require.NotEmpty(t, pending.CorrelationID)
	require.Equal(t, "me", pending.SenderID)

	confirmed := models.Message{
		ID:             "m1",
		Content:        "hi",
		SenderID:       "me",
		ConversationID: "c1",
		Status:         models.Unseen,
		CreatedAt:      baseTime,
	}
	tl.ReconcileSent(pending.CorrelationID, confirmed)

	entries := tl.Messages()
	require.Len(t, entries, 1)
	require.Equal(t, "m1", entries[0].ID)
	require.False(t, entries[0].Pending)
	require.True(t, tl.CheckIfSent("m1"))
	require.Empty(t, tl.Pending())
}

// A duplicated remote merge is a no-op (Scenario B).
func TestTimeline_MergeRemote_Dedup(t *testing.T) {
	tl := NewTimeline("c1", "me")

	tl.MergeRemote(msg("m1", 0))
	tl.MergeRemote(msg("m1", 0))

	require.Equal(t, []string{"m1"}, timelineIDs(tl))
}

// The push echo of an own send can beat the REST acknowledgement; the
// reconcile must still leave exactly one entry with the server ID.
func TestTimeline_PushBeatsAck(t *testing.T) {
	tl := NewTimeline("c1", "me")

	pending := tl.AppendLocal(Draft{Content: "hi"})

	echo := models.Message{
		ID:             "m1",
		Content:        "hi",
		SenderID:       "me",
		ConversationID: "c1",
		Status:         models.Unseen,
		CreatedAt:      baseTime,
	}
	tl.MergeRemote(echo)
	tl.ReconcileSent(pending.CorrelationID, echo)

	require.Equal(t, []string{"m1"}, timelineIDs(tl))
	require.True(t, tl.CheckIfSent("m1"))
}

// Identical content must not confuse reconciliation; matching is by
// correlation ID.
func TestTimeline_ReconcileSent_DuplicateContent(t *testing.T) {
	tl := NewTimeline("c1", "me")

	first := tl.AppendLocal(Draft{Content: "ok"})
	second := tl.AppendLocal(Draft{Content: "ok"})
	require.NotEqual(t, first.CorrelationID, second.CorrelationID)

	tl.ReconcileSent(second.CorrelationID, models.Message{
		ID: "m2", Content: "ok", SenderID: "me", ConversationID: "c1",
		Status: models.Unseen, CreatedAt: baseTime,
	})

	require.Len(t, tl.Pending(), 1)
	require.Equal(t, first.CorrelationID, tl.Pending()[0].CorrelationID)
}

// Rendering order is createdAt ascending no matter the merge order.
func TestTimeline_OrderingInvariant(t *testing.T) {
	msgs := make([]models.Message, 20)
	for i := range msgs {
		msgs[i] = msg(string(rune('a'+i)), time.Duration(i)*time.Minute)
	}

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 10; trial++ {
		tl := NewTimeline("c1", "me")
		perm := rng.Perm(len(msgs))
		for _, i := range perm {
			tl.MergeRemote(msgs[i])
		}

		entries := tl.Messages()
		require.Len(t, entries, len(msgs))
		require.True(t, sort.SliceIsSorted(entries, func(i, j int) bool {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}), "permutation %d broke ordering", trial)
	}
}

// Seen state never reverts: not by duplicate pushes, not by a stale fetch.
func TestTimeline_SeenMonotonic(t *testing.T) {
	tl := NewTimeline("c1", "me")

	m := msg("m1", 0)
	tl.MergeRemote(m)
	tl.MarkSeen([]string{"m1"})

	// Duplicate push still claiming unseen
	tl.MergeRemote(m)
	require.Equal(t, models.Seen, tl.Messages()[0].Status)

	// Stale fetch still claiming unseen
	tl.Replace([]models.Message{m})
	require.Equal(t, models.Seen, tl.Messages()[0].Status)

	// Unknown IDs are ignored
	tl.MarkSeen([]string{"m404"})
}

// A fetch replaces confirmed history but keeps unacknowledged local sends.
func TestTimeline_Replace_KeepsPending(t *testing.T) {
	tl := NewTimeline("c1", "me")

	tl.MergeRemote(msg("m1", 0))
	pending := tl.AppendLocal(Draft{Content: "in flight"})

	tl.Replace([]models.Message{msg("m1", 0), msg("m2", time.Minute)})

	entries := tl.Messages()
	require.Len(t, entries, 3)
	require.Equal(t, 1, len(tl.Pending()))
	require.Equal(t, pending.CorrelationID, tl.Pending()[0].CorrelationID)
}

// A failed send stays in the timeline for the caller to retry or retract.
func TestTimeline_FailSend(t *testing.T) {
	tl := NewTimeline("c1", "me")

	pending := tl.AppendLocal(Draft{Content: "hi"})
	tl.FailSend(pending.CorrelationID)

	got := tl.Pending()
	require.Len(t, got, 1)
	require.True(t, got[0].Failed)

	tl.RetractLocal(pending.CorrelationID)
	require.Zero(t, tl.Len())
}

func TestTimeline_Last_ExcludesPending(t *testing.T) {
	tl := NewTimeline("c1", "me")

	_, ok := tl.Last()
	require.False(t, ok)

	tl.MergeRemote(msg("m1", 0))
	tl.AppendLocal(Draft{Content: "pending newest"})

	last, ok := tl.Last()
	require.True(t, ok)
	require.Equal(t, "m1", last.ID)
}

func TestTimeline_MergeRemote_WrongConversation(t *testing.T) {
	tl := NewTimeline("c1", "me")

	wrong := msg("m1", 0)
	wrong.ConversationID = "c2"
	tl.MergeRemote(wrong)

	require.Zero(t, tl.Len())
}

func TestTimeline_EditAndRemove(t *testing.T) {
	tl := NewTimeline("c1", "me")
	tl.MergeRemote(msg("m1", 0))
	tl.MergeRemote(msg("m2", time.Minute))
	tl.MarkSeen([]string{"m1"})

	edited := msg("m1", 0)
	edited.Content = "edited"
	tl.ApplyEdit(edited)

	entries := tl.Messages()
	require.Equal(t, "edited", entries[0].Content)
	require.Equal(t, models.Seen, entries[0].Status, "edit must not revert seen")

	tl.RemoveMessage("m2")
	require.Equal(t, []string{"m1"}, timelineIDs(tl))
}
