package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the assistant's configuration",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}

	st, err := app.Client().CheckSettings(cmd.Context())
	if err != nil {
		return fmt.Errorf("checking settings: %w", err)
	}

	if st.Configured {
		fmt.Println("✅ assistant is configured")
	} else {
		fmt.Println("❌ assistant is not configured")
	}
	if st.Provider != "" {
		fmt.Printf("   provider: %s\n", st.Provider)
	}
	if st.Model != "" {
		fmt.Printf("   model:    %s\n", st.Model)
	}
	if st.TimeoutSec > 0 {
		fmt.Printf("   timeout:  %ds\n", st.TimeoutSec)
	}
	if st.ServerTime != "" {
		fmt.Printf("   server time: %s\n", st.ServerTime)
	}
	return nil
}
