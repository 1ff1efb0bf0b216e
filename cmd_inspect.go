package main

import (
	"github.com/spf13/cobra"

	"github.com/Raikerian/go-unet-dataloader/internal/app"
)

// newCmdInspect returns a command that prints how the dataset is split between tasks and workers.
func newCmdInspect() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the shard plan of this task without reading any example",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApplication(cmd, app.InspectModule(cmd.OutOrStdout()))
			if err != nil {
				return err
			}

			return a.Run(cmd.Context())
		},
	}
}
