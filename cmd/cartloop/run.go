package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cartloop/cartloop/internal/session"
)

// sessionRunner is the slice of the engine the conversation loop needs.
type sessionRunner interface {
	Run(ctx context.Context, s *session.State) error
	Submit(ctx context.Context, s *session.State, input string) error
}

var runCmd = &cobra.Command{
	Use:   "run [request]",
	Short: "Start a shopping session from a free-text request",
	Example: `  cartloop run "5kg basmati rice and a fabric conditioner"
  cartloop run   # prompts for the request`,
	Args: cobra.ArbitraryArgs,
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

		reader := bufio.NewScanner(os.Stdin)

		request := strings.Join(args, " ")
		if strings.TrimSpace(request) == "" {
			fmt.Print("What do you need? ")
			if !reader.Scan() {
				return nil
			}
			request = reader.Text()
		}

		ctx := cmd.Context()
		s, err := engine.Start(ctx, request)
		if err != nil {
			return err
		}
		fmt.Printf("Session %s\n", s.SessionID)

		return converse(cmd, engine, s, reader)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// converse drives the suspend/resume conversation loop: advance the session,
// print new messages, and solicit input while the session is suspended.
func converse(cmd *cobra.Command, engine sessionRunner, s *session.State, reader *bufio.Scanner) error {
	printed := 0
	flush := func() {
		for ; printed < len(s.Messages); printed++ {
			fmt.Println(s.Messages[printed].Text)
		}
	}

	if err := engine.Run(cmd.Context(), s); err != nil {
		flush()
		return err
	}
	flush()

	for s.AwaitingInput {
		fmt.Print("> ")
		if !reader.Scan() {
			fmt.Println("\nSession suspended. Resume later with: cartloop resume", s.SessionID)
			return nil
		}
		input := strings.TrimSpace(reader.Text())
		if input == "" {
			continue
		}

		if err := engine.Submit(cmd.Context(), s, input); err != nil {
			flush()
			return err
		}
		flush()
	}

	return nil
}
