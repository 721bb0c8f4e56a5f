////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Relay Chat                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file                                                               //
////////////////////////////////////////////////////////////////////////////////

// Package cmd initializes the CLI and config parsers as well as the logger.
package cmd

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/spf13/viper"

	"gitlab.com/relaychat/client"
)

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "relaychat",
	Short: "Command line client for the relaychat messaging server",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// initMessenger builds a Messenger from the configured endpoints. It does
// not log in; commands that need a session call requireSession.
func initMessenger() *client.Messenger {
	initLog(viper.GetUint("logLevel"), viper.GetString("log"))

	m, err := client.NewMessenger(client.Params{
		APIURL: viper.GetString("api"),
		WSURL:  viper.GetString("ws"),
	})
	if err != nil {
		jww.FATAL.Panicf("Failed to build client: %+v", err)
	}
	return m
}

// requireSession logs in with the configured credentials, or resumes an
// existing cookie session when no credentials were given.
func requireSession(m *client.Messenger) {
	email := viper.GetString("email")
	password := viper.GetString("password")

	if email != "" {
		identity, err := m.Session().Login(email, password)
		if err != nil {
			jww.FATAL.Panicf("Login failed: %+v", err)
		}
		jww.INFO.Printf("Logged in as %s (%s)", identity.Email, identity.ID)
		return
	}

	if identity, ok := m.Start(); ok {
		jww.INFO.Printf("Resumed session for %s", identity.Email)
		return
	}
	jww.FATAL.Panicf("No session; pass --email and --password")
}

func initLog(threshold uint, logPath string) {
	if logPath != "-" && logPath != "" {
		// Disable stdout output
		jww.SetStdoutOutput(ioutil.Discard)
		// Use log file
		logOutput, err := os.OpenFile(logPath,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			panic(err.Error())
		}
		jww.SetLogOutput(logOutput)
	}

	if threshold > 1 {
		jww.INFO.Printf("log level set to: TRACE")
		jww.SetStdoutThreshold(jww.LevelTrace)
		jww.SetLogThreshold(jww.LevelTrace)
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else if threshold == 1 {
		jww.INFO.Printf("log level set to: DEBUG")
		jww.SetStdoutThreshold(jww.LevelDebug)
		jww.SetLogThreshold(jww.LevelDebug)
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	} else {
		jww.SetStdoutThreshold(jww.LevelInfo)
		jww.SetLogThreshold(jww.LevelInfo)
	}
}

func initConfig() {
	configFile := viper.GetString("config")
	if configFile == "" {
		return
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Unable to read config file (%s): %s\n",
			configFile, err.Error())
		os.Exit(1)
	}
}

// init is the initialization function for Cobra which defines commands
// and flags.
func init() {
	// NOTE: The point of init() is to be declarative. There is one init in
	// each sub command. Do not put variable declarations here, and ensure
	// all the Flags are of the *P variety, unless there's a very good
	// reason not to have them as local params to sub command.
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "",
		"Path to a YAML config file")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.PersistentFlags().StringP("api", "a",
		"http://localhost:4000/api", "REST endpoint of the server")
	viper.BindPFlag("api", rootCmd.PersistentFlags().Lookup("api"))

	rootCmd.PersistentFlags().StringP("ws", "w",
		"ws://localhost:4000/ws", "Realtime endpoint of the server")
	viper.BindPFlag("ws", rootCmd.PersistentFlags().Lookup("ws"))

	rootCmd.PersistentFlags().StringP("email", "e", "",
		"Account email; omit to resume an existing session")
	viper.BindPFlag("email", rootCmd.PersistentFlags().Lookup("email"))

	rootCmd.PersistentFlags().StringP("password", "p", "",
		"Account password")
	viper.BindPFlag("password", rootCmd.PersistentFlags().Lookup("password"))

	rootCmd.PersistentFlags().UintP("logLevel", "v", 0,
		"Verbose mode for debugging (0 = info, 1 = debug, 2 = trace)")
	viper.BindPFlag("logLevel", rootCmd.PersistentFlags().Lookup("logLevel"))

	rootCmd.PersistentFlags().StringP("log", "l", "-",
		"Path to the log output path (- is stdout)")
	viper.BindPFlag("log", rootCmd.PersistentFlags().Lookup("log"))
}
