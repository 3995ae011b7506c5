package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var errCommandFailed = errors.New("command failed")

func newMsgCommand(ctx *commandContext) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "msg <command>...",
		Short: "Run a sway command and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			ok, raw, err := client.RunCommand(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintln(os.Stdout, string(raw))
			}
			if !ok {
				return errCommandFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress the reply payload, only set the exit code")
	return cmd
}

func newTickCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tick [payload]",
		Short: "Broadcast a tick event to subscribers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			payload := ""
			if len(args) == 1 {
				payload = args[0]
			}
			ok, _, err := client.Tick(payload)
			if err != nil {
				return err
			}
			if !ok {
				return errCommandFailed
			}
			return nil
		},
	}
}
