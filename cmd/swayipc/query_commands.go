package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/efosmark/swayipc/internal/ipc"
)

// newQueryCommands builds one subcommand per raw query operation. Output
// is the compositor's JSON reply, unparsed.
func newQueryCommands(ctx *commandContext) []*cobra.Command {
	queries := []struct {
		use   string
		short string
		run   func(*ipc.Client) ([]byte, error)
	}{
		{"workspaces", "List workspaces", (*ipc.Client).Workspaces},
		{"outputs", "List outputs, including the scratchpad output", (*ipc.Client).Outputs},
		{"tree", "Dump the full node tree", (*ipc.Client).Tree},
		{"marks", "List marks currently in use", (*ipc.Client).Marks},
		{"version", "Show compositor version information", (*ipc.Client).Version},
		{"binding-modes", "List available binding modes", (*ipc.Client).BindingModes},
		{"binding-state", "Show the currently active binding mode", (*ipc.Client).BindingState},
		{"config", "Dump the last loaded config file", (*ipc.Client).ConfigContents},
		{"inputs", "List input devices", (*ipc.Client).Inputs},
		{"seats", "List seats", (*ipc.Client).Seats},
	}

	cmds := make([]*cobra.Command, 0, len(queries)+1)
	for _, q := range queries {
		cmds = append(cmds, &cobra.Command{
			Use:   q.use,
			Short: q.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				client, err := ctx.dial()
				if err != nil {
					return err
				}
				defer client.Close()
				raw, err := q.run(client)
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, string(raw))
				return nil
			},
		})
	}

	cmds = append(cmds, &cobra.Command{
		Use:   "bar [bar-id]",
		Short: "List bar IDs, or show one bar's config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.dial()
			if err != nil {
				return err
			}
			defer client.Close()
			barID := ""
			if len(args) == 1 {
				barID = args[0]
			}
			raw, err := client.BarConfig(barID)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(raw))
			return nil
		},
	})

	return cmds
}
