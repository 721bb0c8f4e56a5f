////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package catalog

// EventType names a realtime channel event. The empty string acts as a
// wildcard for listeners that want every event.
type EventType string

const (
	// NoType - Used as a wildcard for listeners to hear all event types.
	NoType EventType = ""

	/* Inbound push events */

	// ConversationCreated - A conversation now exists that the client may
	// not have fetched yet.
	ConversationCreated EventType = "conversation:created"
	// ConversationUpdated - A conversation summary changed (new activity,
	// unread count, counterpart profile).
	ConversationUpdated EventType = "conversation:updated"
	// ConversationJoined - The local user opened the conversation on some
	// device; unread count resets.
	ConversationJoined EventType = "conversation:joined"
	// ConversationRemoved - The conversation was deleted.
	ConversationRemoved EventType = "conversation:removed"

	// MessageNew - A message was delivered to one of the local user's
	// conversations.
	MessageNew EventType = "message:new"
	// MessageSeenUpdate - A set of messages transitioned to seen for some
	// participant.
	MessageSeenUpdate EventType = "message:seen:update"

	// UserLogout - The server revoked this session; the client must tear
	// down.
	UserLogout EventType = "user:logout"
	// UserUpdated - The local user's profile changed; re-fetch /user/me.
	UserUpdated EventType = "user:updated"
	// UserUnreadCount - Global unread counter across all conversations.
	UserUnreadCount EventType = "user:unread-count"

	/* Outbound events */

	// ConversationJoin - Subscribe to a conversation's room.
	ConversationJoin EventType = "conversation:join"
	// ConversationLeave - Unsubscribe from a conversation's room.
	ConversationLeave EventType = "conversation:leave"
	// MessageSend - Send a message over the channel; acked with the
	// persisted message.
	MessageSend EventType = "message:send"
	// MessageSeen - Mark a message seen over the channel; acked with the
	// affected message IDs.
	MessageSeen EventType = "message:seen"

	// Ack - Correlated acknowledgement of an outbound event.
	Ack EventType = "ack"
)
