package main

import (
	"github.com/spf13/cobra"

	"github.com/assistkit/assistpanel/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive assistant panel",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	return tui.Run(app.Controller())
}
