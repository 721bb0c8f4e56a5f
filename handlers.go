////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package client

import (
	"encoding/json"

	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/relaychat/client/catalog"
	"gitlab.com/relaychat/client/models"
	"gitlab.com/relaychat/client/switchboard"
)

// registerPushListeners routes every inbound channel event into the stores.
// Listeners live for the life of the Messenger; the stores they touch are
// cleared on logout, so events for a dead identity hit empty state at
// worst.
func (m *Messenger) registerPushListeners() {
	any := switchboard.AnyConversation

	m.events.RegisterFunc(
		catalog.ConversationCreated, any, "index-created", m.onConversation)
	m.events.RegisterFunc(
		catalog.ConversationUpdated, any, "index-updated", m.onConversation)
	m.events.RegisterFunc(catalog.ConversationJoined, any, "index-joined",
		m.onConversationJoined)
	m.events.RegisterFunc(catalog.ConversationRemoved, any, "index-removed",
		m.onConversationRemoved)

	m.events.RegisterFunc(catalog.MessageNew, any, "timeline-new",
		m.onMessageNew)
	m.events.RegisterFunc(catalog.MessageSeenUpdate, any, "timeline-seen",
		m.onMessageSeen)

	m.events.RegisterFunc(catalog.UserLogout, any, "forced-logout",
		func(e switchboard.Event) {
			m.gate.ForceLogout("server broadcast user:logout")
		})
	m.events.RegisterFunc(catalog.UserUpdated, any, "identity-refresh",
		func(e switchboard.Event) {
			if _, err := m.gate.RefreshIdentity(); err != nil {
				jww.WARN.Printf("Profile re-fetch failed: %+v", err)
			}
		})
	m.events.RegisterFunc(catalog.UserUnreadCount, any, "unread-counter",
		m.onUnreadCount)
}

// onConversation handles conversation:created and conversation:updated. The
// merge is identical: unknown summaries insert at the head, known ones
// replace in place.
func (m *Messenger) onConversation(e switchboard.Event) {
	var summary models.ConversationSummary
	if err := json.Unmarshal(e.Payload, &summary); err != nil {
		jww.WARN.Printf("Undecodable %s payload: %+v", e.Name, err)
		return
	}
	m.convs.ApplyUpdated(summary)
}

func (m *Messenger) onConversationJoined(e switchboard.Event) {
	id := e.ConversationID
	if id == "" {
		var payload struct {
			ConversationID string `json:"conversationId"`
		}
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			jww.WARN.Printf("Undecodable %s payload: %+v", e.Name, err)
			return
		}
		id = payload.ConversationID
	}
	m.convs.Joined(id)
}

func (m *Messenger) onConversationRemoved(e switchboard.Event) {
	id := e.ConversationID
	if id == "" {
		var payload struct {
			ConversationID string `json:"conversationId"`
		}
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			jww.WARN.Printf("Undecodable %s payload: %+v", e.Name, err)
			return
		}
		id = payload.ConversationID
	}
	m.convs.Remove(id)
	m.timelines.Remove(id)
}

// onMessageNew merges a pushed message into its timeline and refreshes the
// index projection. Echoes of own sends are merged for dedup but do not
// re-bump the index; the send path already did.
func (m *Messenger) onMessageNew(e switchboard.Event) {
	var msg models.Message
	if err := json.Unmarshal(e.Payload, &msg); err != nil {
		jww.WARN.Printf("Undecodable %s payload: %+v", e.Name, err)
		return
	}

	tl := m.timelines.Get(msg.ConversationID)
	ownEcho := tl.CheckIfSent(msg.ID)
	tl.MergeRemote(msg)

	if !ownEcho {
		m.convs.Bump(msg.ConversationID, msg)
	}
}

// onMessageSeen converges seen state from a remote broadcast. The broadcast
// and the local optimistic mark both move forward only; neither can revert
// the other.
func (m *Messenger) onMessageSeen(e switchboard.Event) {
	var payload struct {
		MessageIDs     []string `json:"messageIds"`
		ConversationID string   `json:"conversationId"`
	}
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		jww.WARN.Printf("Undecodable %s payload: %+v", e.Name, err)
		return
	}

	conversationID := payload.ConversationID
	if conversationID == "" {
		conversationID = e.ConversationID
	}

	if tl, ok := m.timelines.Peek(conversationID); ok {
		tl.MarkSeen(payload.MessageIDs)
	}
}

func (m *Messenger) onUnreadCount(e switchboard.Event) {
	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		jww.WARN.Printf("Undecodable %s payload: %+v", e.Name, err)
		return
	}
	m.setUnread(payload.Count)
}
