////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Handles message sending commands

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"gitlab.com/relaychat/client"
	"gitlab.com/relaychat/client/features"
	"gitlab.com/relaychat/client/models"
)

func init() {
	sendCmd.Flags().StringP("to", "t", "",
		"Counterpart user ID; a conversation is created if none exists")
	viper.BindPFlag("to", sendCmd.Flags().Lookup("to"))
	sendCmd.Flags().StringP("conversation", "", "",
		"Conversation ID to send into")
	viper.BindPFlag("conversation", sendCmd.Flags().Lookup("conversation"))
	sendCmd.Flags().StringP("message", "m", "",
		"Message contents")
	viper.BindPFlag("message", sendCmd.Flags().Lookup("message"))
	sendCmd.Flags().StringP("file", "f", "",
		"Path of a file to attach instead of text")
	viper.BindPFlag("file", sendCmd.Flags().Lookup("file"))

	rootCmd.AddCommand(sendCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message, creating the conversation if needed",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		m := initMessenger()
		requireSession(m)

		conversationID := viper.GetString("conversation")
		if conversationID == "" {
			to := viper.GetString("to")
			if to == "" {
				jww.FATAL.Panicf("Pass --conversation or --to")
			}
			summary, err := m.GetOrCreateConversation(to)
			if err != nil {
				jww.FATAL.Panicf("Failed to open conversation: %+v", err)
			}
			conversationID = summary.ID
		}

		if path := viper.GetString("file"); path != "" {
			sendFile(m, conversationID, path)
			return
		}

		entry, err := m.SendText(conversationID, viper.GetString("message"))
		if err != nil {
			jww.FATAL.Panicf("Send failed: %+v", err)
		}
		fmt.Printf("Sent %s\n", entry.ID)
	},
}

func sendFile(m *client.Messenger, conversationID, path string) {
	m.Features().Enable(features.Attachments)

	f, err := os.Open(path)
	if err != nil {
		jww.FATAL.Panicf("Failed to open %s: %+v", path, err)
	}
	defer f.Close()

	entry, err := m.SendAttachment(conversationID, filepath.Base(path), f,
		attachmentKind(path), viper.GetString("message"))
	if err != nil {
		jww.FATAL.Panicf("Upload failed: %+v", err)
	}
	fmt.Printf("Sent %s\n", entry.ID)
}

// attachmentKind guesses the media type from the file extension. The server
// re-checks the real content type on upload.
func attachmentKind(path string) models.AttachmentKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return models.AttachmentImage
	case ".mp4", ".mov", ".webm":
		return models.AttachmentVideo
	case ".mp3", ".ogg", ".wav", ".m4a":
		return models.AttachmentAudio
	default:
		return models.AttachmentFile
	}
}
