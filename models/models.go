////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package models holds the wire-level data types shared by the REST surface,
// the realtime channel, and the in-memory stores.
package models

import "time"

// Identity is an authenticated or referenced user as the backend reports it.
// Immutable except for profile fields, which are refreshed by re-fetch.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
	FullName  string `json:"fullName,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	IsActive  bool   `json:"isActive"`
}

// Status is the per-message seen flag. Transitions only move forward,
// Unseen to Seen.
type Status string

const (
	Unseen Status = "unseen"
	Seen   Status = "seen"
)

// AttachmentKind discriminates the media type of an attachment.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "IMAGE"
	AttachmentVideo AttachmentKind = "VIDEO"
	AttachmentFile  AttachmentKind = "FILE"
	AttachmentAudio AttachmentKind = "AUDIO"
)

// Attachment is the media half of a message. Exactly one of a message's
// Content and Attachment is expected to be set.
type Attachment struct {
	URL  string         `json:"url"`
	Kind AttachmentKind `json:"kind"`
}

// Message is a single chat message. ID is server-assigned once persisted;
// a not-yet-acknowledged local send carries only a client correlation ID
// (see the messages package) and must not leak a fake server ID.
type Message struct {
	ID             string      `json:"id"`
	Content        string      `json:"content,omitempty"`
	Attachment     *Attachment `json:"attachment,omitempty"`
	SenderID       string      `json:"senderId"`
	ConversationID string      `json:"conversationId"`
	Status         Status      `json:"status"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// ConversationSummary is the lightweight per-conversation record used for
// list rendering. LastMessage is a denormalized projection of the newest
// message in the conversation's timeline; when both are loaded the timeline
// wins.
type ConversationSummary struct {
	ID          string    `json:"id"`
	Counterpart Identity  `json:"user"`
	LastMessage *Message  `json:"lastMessage,omitempty"`
	UnreadCount int       `json:"unreadCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
