// assistpanel - terminal client for an embedded assistant service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/assistkit/assistpanel"
)

var (
	version   = "dev"
	serverURL string
	basePath  string
)

var rootCmd = &cobra.Command{
	Use:   "assistpanel",
	Short: "Terminal client for an embedded assistant service",
	Long: `assistpanel talks to the chat API an admin site embeds its assistant
panel against.

  assistpanel chat       Open the interactive panel
  assistpanel list       List chat sessions
  assistpanel check      Check the assistant's configuration
  assistpanel serve      Start the local demo server`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "assistant server URL (default $ASSISTPANEL_SERVER or http://localhost:7080)")
	rootCmd.PersistentFlags().StringVar(&basePath, "base", "", "API base path (default $ASSISTPANEL_BASE or /ai-assistant)")
}

func buildApp() (*assistpanel.App, error) {
	return assistpanel.NewBuilder().
		WithConfig(assistpanel.Config{ServerURL: serverURL, BasePath: basePath}).
		Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
