////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Handles account registration and session commands

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"gitlab.com/relaychat/client/rest"
)

func init() {
	registerCmd.Flags().StringP("username", "u", "",
		"Username for the new account")
	viper.BindPFlag("username", registerCmd.Flags().Lookup("username"))
	registerCmd.Flags().StringP("fullName", "n", "",
		"Display name for the new account")
	viper.BindPFlag("fullName", registerCmd.Flags().Lookup("fullName"))

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(logoutCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and establish a session cookie",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		m := initMessenger()

		identity, err := m.Session().Login(
			viper.GetString("email"), viper.GetString("password"))
		if err != nil {
			jww.FATAL.Panicf("Login failed: %+v", err)
		}
		fmt.Printf("Logged in as %s (%s)\n", identity.Email, identity.ID)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new account and log in",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		m := initMessenger()

		identity, err := m.Session().Register(rest.RegisterRequest{
			Email:    viper.GetString("email"),
			Password: viper.GetString("password"),
			Username: viper.GetString("username"),
			FullName: viper.GetString("fullName"),
		})
		if err != nil {
			jww.FATAL.Panicf("Registration failed: %+v", err)
		}
		fmt.Printf("Registered %s (%s)\n", identity.Email, identity.ID)
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the identity of the current session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		m := initMessenger()
		requireSession(m)

		identity, _ := m.Session().Current()
		fmt.Printf("%s\t%s\t%s\n",
			identity.ID, identity.Email, identity.Username)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		m := initMessenger()
		requireSession(m)

		if err := m.Session().Logout(); err != nil {
			jww.WARN.Printf("Server-side logout failed: %+v", err)
		}
		fmt.Println("Logged out")
	},
}
