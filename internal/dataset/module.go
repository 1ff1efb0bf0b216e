package dataset

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-unet-dataloader/internal/config"
	"github.com/Raikerian/go-unet-dataloader/internal/hdf5io"
	"github.com/Raikerian/go-unet-dataloader/internal/streaming"
)

// Module provides the data processor with the one-example-per-file layout.
var Module = fx.Module("dataset",
	fx.Provide(
		NewLayout,
		NewProcessorProvider,
	),
)

// NewLayout returns the layout used for HDF5 UNet datasets.
func NewLayout() Layout {
	return FileLayout{}
}

// NewProcessorParams holds dependencies for NewProcessorProvider.
type NewProcessorParams struct {
	fx.In
	Cfg         *config.Config
	Topology    streaming.Topology
	Layout      Layout
	Reader      hdf5io.ExampleReader
	WorkerCache *hdf5io.WorkerCache `optional:"true"`
	Logger      *zap.Logger
}

// NewProcessorProvider creates the Processor from the Fx graph.
func NewProcessorProvider(params NewProcessorParams) (*Processor, error) {
	return NewProcessor(params.Cfg, params.Topology, params.Layout, params.Reader, params.WorkerCache, params.Logger)
}
