package streaming

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-unet-dataloader/internal/config"
)

// Module provides the streaming Topology.
var Module = fx.Module("streaming",
	fx.Provide(NewTopologyProvider),
)

// NewTopologyProvider builds the static topology and logs where this process sits in the fleet.
func NewTopologyProvider(cfg *config.Config, logger *zap.Logger) (Topology, error) {
	t, err := NewStaticTopology(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Streaming topology resolved",
		zap.Bool("isStreamer", t.IsStreamer()),
		zap.Bool("isAppliance", t.IsAppliance()),
		zap.Int("numTasks", NumTasks(t)),
		zap.Int("taskID", TaskID(t)))

	return t, nil
}
