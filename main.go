// Package main provides the entry point for the UNet HDF5 data loader.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Raikerian/go-unet-dataloader/internal/app"
	"github.com/Raikerian/go-unet-dataloader/internal/config"
	"github.com/Raikerian/go-unet-dataloader/internal/dataset"
	"github.com/Raikerian/go-unet-dataloader/internal/hdf5io"
	"github.com/Raikerian/go-unet-dataloader/internal/infrastructure"
	"github.com/Raikerian/go-unet-dataloader/internal/streaming"
	pkginfra "github.com/Raikerian/go-unet-dataloader/pkg/infrastructure"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unetloader",
		Short: "Shard and stream HDF5 UNet datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv("UNET_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}
	cmd.PersistentFlags().String("config", defaultConfig, "Path to the YAML config (env UNET_CONFIG)")

	cmd.AddCommand(newCmdRun())
	cmd.AddCommand(newCmdInspect())

	return cmd
}

// newApplication wires the data loader modules for the config at the --config path, plus extra.
func newApplication(cmd *cobra.Command, extra ...fx.Option) (*app.Application, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	modules := append([]fx.Option{
		// Core modules
		config.Module,
		infrastructure.LoggerModule,

		// Data modules
		streaming.Module,
		hdf5io.Module,
		dataset.Module,

		fx.Supply(configPath),
		fx.WithLogger(pkginfra.NewFxLogger),
	}, extra...)

	a := app.New(modules...)
	if err := a.Err(); err != nil {
		return nil, err
	}

	return a, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
