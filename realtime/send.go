////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

package realtime

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/relaychat/client/catalog"
	"gitlab.com/relaychat/client/models"
)

// SendMessage sends a text message over the channel and returns the
// persisted message from the acknowledgement.
func (ch *Channel) SendMessage(conversationID, content string,
	timeout time.Duration) (models.Message, error) {
	if timeout <= 0 {
		timeout = DefaultAckTimeout
	}

	data, err := ch.EmitWithAck(catalog.MessageSend, conversationID,
		map[string]string{
			"content":        content,
			"conversationId": conversationID,
		}, timeout)
	if err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	if err = json.Unmarshal(data, &msg); err != nil {
		return models.Message{},
			errors.Wrap(err, "failed to decode message:send ack")
	}
	return msg, nil
}

// MarkSeen marks a message seen over the channel and returns the full set
// of message IDs the server transitioned.
func (ch *Channel) MarkSeen(messageID string, timeout time.Duration) (
	[]string, error) {
	if timeout <= 0 {
		timeout = DefaultAckTimeout
	}

	data, err := ch.EmitWithAck(catalog.MessageSeen, "",
		map[string]string{"messageId": messageID}, timeout)
	if err != nil {
		return nil, err
	}

	var payload struct {
		MessageIDs []string `json:"messageIds"`
	}
	if err = json.Unmarshal(data, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode message:seen ack")
	}
	return payload.MessageIDs, nil
}
