////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package rest

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"gitlab.com/relaychat/client/models"
)

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest carries registration fields.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
	FullName string `json:"fullName,omitempty"`
}

// MessagesResponse is the combined payload of the message-history endpoint.
type MessagesResponse struct {
	User     models.Identity  `json:"user"`
	Messages []models.Message `json:"messages"`
}

/* Auth */

func (c *Client) Login(req LoginRequest) (models.Identity, error) {
	var identity models.Identity
	err := c.post("/auth/login", req, &identity)
	return identity, err
}

func (c *Client) Register(req RegisterRequest) (models.Identity, error) {
	var identity models.Identity
	err := c.post("/auth/register", req, &identity)
	return identity, err
}

func (c *Client) Logout() error {
	return c.post("/auth/logout", nil, nil)
}

// Me fetches the authenticated identity. A fault of kind
// AuthenticationExpired means there is no live session.
func (c *Client) Me() (models.Identity, error) {
	var identity models.Identity
	err := c.get("/user/me", &identity)
	return identity, err
}

// SearchUsers queries the server-backed user search.
func (c *Client) SearchUsers(query string) ([]models.Identity, error) {
	var results []models.Identity
	err := c.get("/user/search?q="+url.QueryEscape(query), &results)
	return results, err
}

// UpdateProfile patches the local user's profile fields.
func (c *Client) UpdateProfile(fields map[string]string) (models.Identity, error) {
	var identity models.Identity
	err := c.patch("/user/me", fields, &identity)
	return identity, err
}

/* Conversations */

func (c *Client) Conversations() ([]models.ConversationSummary, error) {
	var list []models.ConversationSummary
	err := c.get("/conversations", &list)
	return list, err
}

func (c *Client) Conversation(id string) (models.ConversationSummary, error) {
	var summary models.ConversationSummary
	err := c.get("/conversations/"+url.PathEscape(id), &summary)
	return summary, err
}

// CreateConversation gets or creates the conversation with the given
// counterpart. The endpoint is idempotent server-side; client-side in-flight
// dedup lives in the conversations store.
func (c *Client) CreateConversation(counterpartID string) (
	models.ConversationSummary, error) {
	var summary models.ConversationSummary
	err := c.post("/conversations/"+url.PathEscape(counterpartID), nil, &summary)
	return summary, err
}

func (c *Client) DeleteConversation(id string) error {
	return c.delete("/conversations/" + url.PathEscape(id))
}

// MarkConversationRead reports that the local user opened the conversation.
func (c *Client) MarkConversationRead(id string) error {
	return c.post("/conversations/"+url.PathEscape(id)+"/read", nil, nil)
}

/* Messages */

func (c *Client) Messages(conversationID string) (MessagesResponse, error) {
	var resp MessagesResponse
	err := c.get(
		"/messages/"+url.PathEscape(conversationID)+"/messages", &resp)
	return resp, err
}

func (c *Client) SendText(conversationID, content string) (
	models.Message, error) {
	var msg models.Message
	err := c.post("/messages/"+url.PathEscape(conversationID)+"/send",
		map[string]string{"content": content}, &msg)
	return msg, err
}

// SendAttachment uploads a file as multipart form data, with an optional
// caption.
func (c *Client) SendAttachment(conversationID string, filename string,
	file io.Reader, kind models.AttachmentKind, content string) (
	models.Message, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return models.Message{}, errors.Wrap(err, "failed to build form file")
	}
	if _, err = io.Copy(part, file); err != nil {
		return models.Message{}, errors.Wrap(err, "failed to buffer upload")
	}
	if content != "" {
		if err = w.WriteField("content", content); err != nil {
			return models.Message{}, err
		}
	}
	if err = w.WriteField("attachmentType", string(kind)); err != nil {
		return models.Message{}, err
	}
	if err = w.Close(); err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	err = c.do(http.MethodPost,
		"/messages/"+url.PathEscape(conversationID)+"/messages",
		buf.Bytes(), w.FormDataContentType(), &msg)
	return msg, err
}

func (c *Client) EditMessage(id, content string) (models.Message, error) {
	var msg models.Message
	err := c.patch("/messages/"+url.PathEscape(id),
		map[string]string{"content": content}, &msg)
	return msg, err
}

func (c *Client) DeleteMessage(id string) error {
	return c.delete("/messages/" + url.PathEscape(id))
}

// MarkMessageSeen reports the local user has viewed the message.
func (c *Client) MarkMessageSeen(id string) error {
	return c.post("/messages/"+url.PathEscape(id)+"/seen", nil, nil)
}
