package main

import (
	"github.com/spf13/cobra"

	"github.com/efosmark/swayipc/internal/config"
	"github.com/efosmark/swayipc/internal/ipc"
	"github.com/efosmark/swayipc/internal/logging"
)

// commandContext carries the persistent flags and lazily-loaded config
// shared by every subcommand.
type commandContext struct {
	socketFlag *string
	configFlag *string
	cfg        config.Config
}

func (c *commandContext) loadConfig() error {
	if *c.configFlag == "" {
		c.cfg = config.Default()
	} else {
		cfg, err := config.Load(*c.configFlag)
		if err != nil {
			return err
		}
		c.cfg = cfg
	}
	if *c.socketFlag != "" {
		c.cfg.Socket = *c.socketFlag
	}
	return nil
}

func (c *commandContext) dial() (*ipc.Client, error) {
	return ipc.Dial(c.cfg.Socket)
}

func newRootCommand() *cobra.Command {
	var socketFlag string
	var configFlag string

	ctx := &commandContext{socketFlag: &socketFlag, configFlag: &configFlag}

	rootCmd := &cobra.Command{
		Use:           "swayipc",
		Short:         "Control and observe sway over its IPC socket",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.loadConfig(); err != nil {
				return err
			}
			logging.Configure(logging.ProfileRuntime, ctx.cfg.Log.Level, ctx.cfg.Log.Format)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Path to the sway IPC socket (default: $SWAYSOCK)")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newMsgCommand(ctx))
	rootCmd.AddCommand(newTickCommand(ctx))
	for _, cmd := range newQueryCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newSubscribeCommand(ctx))

	return rootCmd
}
