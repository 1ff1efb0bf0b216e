package main

import (
	"github.com/spf13/cobra"

	"github.com/Raikerian/go-unet-dataloader/internal/app"
)

// newCmdRun returns a command that streams the configured number of epochs.
func newCmdRun() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Iterate the data loader for run.epochs epochs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication(cmd, app.RunModule)
			if err != nil {
				return err
			}

			return a.Run(cmd.Context())
		},
	}
}
