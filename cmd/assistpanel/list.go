package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/assistkit/assistpanel/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List chat sessions",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	chats, err := app.Client().ListChats(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing chats: %w\nIs the server running? Start a demo one with: assistpanel serve", err)
	}
	model.SortChats(chats)

	if len(chats) == 0 {
		fmt.Println("No chats found.")
		return nil
	}

	now := time.Now().UTC()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
	for _, c := range chats {
		title := c.Title
		if title == "" {
			title = "Untitled"
		}
		stamp := c.UpdatedAt
		if _, ok := model.ParseTimestamp(stamp); !ok {
			stamp = c.CreatedAt
		}
		rel := model.RelativeTime(stamp, now)
		if rel == "" {
			rel = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, model.Truncate(title, 50), rel)
	}
	return w.Flush()
}
