package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume [session-id]",
	Short: "Resume a suspended session from its latest checkpoint",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		engine, checkpoints, err := buildEngine(cfg, logger)
		if err != nil {
			return err
		}
		defer checkpoints.Close()

		if len(args) == 0 {
			sessions, err := checkpoints.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions on record.")
				return nil
			}
			fmt.Println("Known sessions (most recent first):")
			for _, id := range sessions {
				fmt.Println(" ", id)
			}
			return nil
		}

		s, err := engine.Resume(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Resumed session %s (%s)\n", s.SessionID, s.Status)

		return converse(cmd, engine, s, bufio.NewScanner(os.Stdin))
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
