////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Handles conversation listing and history commands

package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
)

func init() {
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(historyCmd)
}

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List conversations, most recently active first",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		m := initMessenger()
		requireSession(m)

		list, err := m.RefreshConversations()
		if err != nil {
			jww.FATAL.Panicf("Failed to fetch conversations: %+v", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWITH\tUNREAD\tLAST")
		for _, summary := range list {
			last := ""
			if summary.LastMessage != nil {
				last = summary.LastMessage.Content
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", summary.ID,
				summary.Counterpart.Username, summary.UnreadCount, last)
		}
		w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "Print a conversation's messages, oldest first",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		m := initMessenger()
		requireSession(m)

		tl, err := m.OpenConversation(args[0])
		if err != nil {
			jww.FATAL.Panicf("Failed to load conversation: %+v", err)
		}

		identity, _ := m.Session().Current()
		for _, entry := range tl.Messages() {
			who := "them"
			if entry.SenderID == identity.ID {
				who = "me"
			}
			body := entry.Content
			if entry.Attachment != nil {
				body = fmt.Sprintf("[%s] %s",
					entry.Attachment.Kind, entry.Attachment.URL)
			}
			fmt.Printf("%s  %-4s  %s\n",
				entry.CreatedAt.Format("2006-01-02 15:04"), who, body)
		}
	},
}
