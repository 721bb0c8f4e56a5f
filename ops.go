////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package client

import (
	"io"

	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/relaychat/client/faults"
	"gitlab.com/relaychat/client/features"
	"gitlab.com/relaychat/client/messages"
	"gitlab.com/relaychat/client/models"
	"gitlab.com/relaychat/client/seen"
)

/* Conversation index */

// RefreshConversations fetches the full index from the server and replaces
// the local one.
func (m *Messenger) RefreshConversations() (
	[]models.ConversationSummary, error) {
	list, err := m.rest.Conversations()
	if err != nil {
		return nil, err
	}
	m.convs.Replace(list)
	return m.convs.List(), nil
}

// Conversations returns the cached index, most recently active first.
func (m *Messenger) Conversations() []models.ConversationSummary {
	return m.convs.List()
}

// GetOrCreateConversation returns the conversation with the counterpart,
// creating it if needed. Idempotent under concurrent calls.
func (m *Messenger) GetOrCreateConversation(counterpartID string) (
	models.ConversationSummary, error) {
	return m.convs.GetOrCreate(counterpartID)
}

// DeleteConversation removes a conversation server-side and locally.
func (m *Messenger) DeleteConversation(id string) error {
	if err := m.rest.DeleteConversation(id); err != nil {
		return err
	}
	m.convs.Remove(id)
	m.timelines.Remove(id)
	return nil
}

/* Timelines */

// OpenConversation loads a conversation's history, joins its realtime room,
// and reports it read. Returning to a conversation reuses the buffered
// timeline, refreshed by the fetch.
func (m *Messenger) OpenConversation(id string) (*messages.Timeline, error) {
	resp, err := m.rest.Messages(id)
	if err != nil {
		return nil, err
	}

	tl := m.timelines.Get(id)
	tl.Replace(resp.Messages)

	m.convs.Joined(id)
	if err := m.rest.MarkConversationRead(id); err != nil {
		jww.WARN.Printf("Mark-read for %s failed: %+v", id, err)
	}
	if m.channel.IsConnected() {
		if err := m.channel.JoinConversation(id); err != nil {
			jww.WARN.Printf("Join for %s failed: %+v", id, err)
		}
	}
	return tl, nil
}

// CloseConversation leaves the conversation's realtime room. The buffered
// timeline is kept for the next visit.
func (m *Messenger) CloseConversation(id string) {
	if m.channel.IsConnected() {
		if err := m.channel.LeaveConversation(id); err != nil {
			jww.DEBUG.Printf("Leave for %s failed: %+v", id, err)
		}
	}
}

// Timeline returns the buffered timeline for a conversation, creating an
// empty one if none exists yet.
func (m *Messenger) Timeline(conversationID string) *messages.Timeline {
	return m.timelines.Get(conversationID)
}

/* Sending */

// SendText performs an optimistic send: the draft lands in the timeline
// immediately, then is reconciled with the server-confirmed message. On
// failure the pending entry is marked failed and kept; the caller may
// RetrySend or RetractSend.
func (m *Messenger) SendText(conversationID, content string) (
	messages.Entry, error) {
	if err := m.flags.Check(features.Messages); err != nil {
		return messages.Entry{}, err
	}

	tl := m.timelines.Get(conversationID)
	pending := tl.AppendLocal(messages.Draft{Content: content})

	return m.completeSend(tl, pending, conversationID, content)
}

// RetrySend re-sends a failed pending text entry with its identical
// payload. Attachment uploads are rejected: their file payload is consumed
// on the first attempt, so a replay would silently degrade to a text send.
// Retract the entry and call SendAttachment again instead.
func (m *Messenger) RetrySend(conversationID, correlationID string) (
	messages.Entry, error) {
	tl := m.timelines.Get(conversationID)
	for _, pending := range tl.Pending() {
		if pending.CorrelationID == correlationID {
			if pending.Attachment != nil {
				return messages.Entry{}, faults.New(faults.ValidationRejected,
					"attachment uploads cannot be replayed; retract the "+
						"entry and send the attachment again")
			}
			return m.completeSend(tl, pending, conversationID,
				pending.Content)
		}
	}
	return messages.Entry{}, faults.New(faults.Unknown,
		"no pending send with correlation ID "+correlationID)
}

// RetractSend drops a failed pending entry.
func (m *Messenger) RetractSend(conversationID, correlationID string) {
	m.timelines.Get(conversationID).RetractLocal(correlationID)
}

func (m *Messenger) completeSend(tl *messages.Timeline,
	pending messages.Entry, conversationID, content string) (
	messages.Entry, error) {
	confirmed, err := m.rest.SendText(conversationID, content)
	if err != nil {
		tl.FailSend(pending.CorrelationID)
		return pending, err
	}

	tl.ReconcileSent(pending.CorrelationID, confirmed)
	m.convs.Bump(conversationID, confirmed)

	pending.Message = confirmed
	pending.Pending = false
	pending.Failed = false
	return pending, nil
}

// SendAttachment uploads a file as a message. Gated client-side.
func (m *Messenger) SendAttachment(conversationID, filename string,
	file io.Reader, kind models.AttachmentKind, caption string) (
	messages.Entry, error) {
	if err := m.flags.Check(features.Attachments); err != nil {
		return messages.Entry{}, err
	}

	tl := m.timelines.Get(conversationID)
	pending := tl.AppendLocal(messages.Draft{
		Content:    caption,
		Attachment: &models.Attachment{Kind: kind},
	})

	confirmed, err := m.rest.SendAttachment(
		conversationID, filename, file, kind, caption)
	if err != nil {
		tl.FailSend(pending.CorrelationID)
		return pending, err
	}

	tl.ReconcileSent(pending.CorrelationID, confirmed)
	m.convs.Bump(conversationID, confirmed)

	pending.Message = confirmed
	pending.Pending = false
	return pending, nil
}

/* Message operations */

// EditMessage rewrites a message's content. Gated client-side.
func (m *Messenger) EditMessage(conversationID, id, content string) error {
	if err := m.flags.Check(features.MessageEdit); err != nil {
		return err
	}

	edited, err := m.rest.EditMessage(id, content)
	if err != nil {
		return err
	}
	if tl, ok := m.timelines.Peek(conversationID); ok {
		tl.ApplyEdit(edited)
	}
	return nil
}

// DeleteMessage removes a message. Gated client-side.
func (m *Messenger) DeleteMessage(conversationID, id string) error {
	if err := m.flags.Check(features.MessageDelete); err != nil {
		return err
	}

	if err := m.rest.DeleteMessage(id); err != nil {
		return err
	}
	if tl, ok := m.timelines.Peek(conversationID); ok {
		tl.RemoveMessage(id)
	}
	return nil
}

/* Seen state */

// MarkMessageSeen reports a viewed message and applies the transition
// optimistically. The remote broadcast converges to the same state.
func (m *Messenger) MarkMessageSeen(conversationID, id string) error {
	ids, err := m.reportSeen(id)
	if err != nil {
		return err
	}
	if tl, ok := m.timelines.Peek(conversationID); ok {
		tl.MarkSeen(ids)
	}
	return nil
}

// reportSeen prefers the channel's acknowledged message:seen, which returns
// the full set of IDs the server transitioned; REST covers the channel
// being down or the emit failing.
func (m *Messenger) reportSeen(id string) ([]string, error) {
	if m.channel.IsConnected() {
		ids, err := m.channel.MarkSeen(id, 0)
		if err == nil {
			return ids, nil
		}
		jww.DEBUG.Printf("Channel mark-seen for %s failed; using REST: %+v",
			id, err)
	}
	if err := m.rest.MarkMessageSeen(id); err != nil {
		return nil, err
	}
	return []string{id}, nil
}

// SeenTracker builds a viewport tracker for one conversation, emitting
// through MarkMessageSeen. Stop it when navigating away.
func (m *Messenger) SeenTracker(conversationID string) *seen.Tracker {
	identity, _ := m.gate.Current()
	return seen.NewTracker(identity.ID, func(messageID string) {
		if err := m.MarkMessageSeen(conversationID, messageID); err != nil {
			jww.WARN.Printf("Mark-seen for %s failed: %+v", messageID, err)
		}
	})
}

/* Users */

// SearchUsers queries the server-backed user search. Gated client-side.
func (m *Messenger) SearchUsers(query string) ([]models.Identity, error) {
	if err := m.flags.Check(features.UserSearch); err != nil {
		return nil, err
	}
	return m.rest.SearchUsers(query)
}

// UpdateProfile patches the local user's profile. Gated client-side.
func (m *Messenger) UpdateProfile(fields map[string]string) (
	models.Identity, error) {
	if err := m.flags.Check(features.EditProfile); err != nil {
		return models.Identity{}, err
	}
	return m.rest.UpdateProfile(fields)
}
