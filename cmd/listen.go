////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Handles the long-running event listener command

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"gitlab.com/relaychat/client/catalog"
	"gitlab.com/relaychat/client/models"
	"gitlab.com/relaychat/client/switchboard"
)

func init() {
	rootCmd.AddCommand(listenCmd)
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Stay connected and print realtime events until interrupted",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		m := initMessenger()
		requireSession(m)

		events, listenerID := m.Events().RegisterChannel(catalog.NoType,
			switchboard.AnyConversation, "cliListener", 64)
		defer m.Events().Unregister(listenerID)

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

		jww.INFO.Printf("Listening; interrupt to stop")
		for {
			select {
			case e := <-events:
				printEvent(e)
			case <-interrupt:
				if err := m.Stop(); err != nil {
					jww.WARN.Printf("Channel shutdown: %+v", err)
				}
				return
			}
		}
	},
}

func printEvent(e switchboard.Event) {
	switch e.Name {
	case catalog.MessageNew:
		var msg models.Message
		if err := json.Unmarshal(e.Payload, &msg); err == nil {
			fmt.Printf("[%s] %s: %s\n",
				msg.ConversationID, msg.SenderID, msg.Content)
			return
		}
	case catalog.MessageSeenUpdate:
		fmt.Printf("[%s] seen update\n", e.ConversationID)
		return
	}
	fmt.Printf("[%s] %s %s\n", e.ConversationID, e.Name, string(e.Payload))
}
