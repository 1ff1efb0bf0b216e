package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/Raikerian/go-unet-dataloader/internal/config"
	"github.com/Raikerian/go-unet-dataloader/internal/dataset"
)

// InspectModule writes the shard plan of this task to out as YAML on start, then shuts the
// application down. No example is read.
func InspectModule(out io.Writer) fx.Option {
	return fx.Module("inspect",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, p *dataset.Processor, sd fx.Shutdowner) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					isTraining := cfg.Run.IsTraining == nil || *cfg.Run.IsTraining
					if err := WritePlan(out, p, isTraining); err != nil {
						return err
					}

					return sd.Shutdown()
				},
			})
		}),
	)
}

// WritePlan shards the dataset for this task and encodes the resulting plan to out.
func WritePlan(out io.Writer, p *dataset.Processor, isTraining bool) error {
	plan, err := p.ShardPlan(isTraining)
	if err != nil {
		return fmt.Errorf("failed to shard dataset: %w", err)
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("failed to encode shard plan: %w", err)
	}

	return enc.Close()
}
