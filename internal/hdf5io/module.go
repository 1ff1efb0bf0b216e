package hdf5io

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-unet-dataloader/internal/config"
)

// Module provides the HDF5 example reader and the worker cache.
var Module = fx.Module("hdf5io",
	fx.Provide(
		NewReaderProvider,
		NewWorkerCacheProvider,
	),
)

// NewReaderProvider creates a Reader for the configured image shape and dataset keys.
func NewReaderProvider(cfg *config.Config, logger *zap.Logger) ExampleReader {
	d := cfg.Dataset
	logger.Info("Creating HDF5 reader",
		zap.String("imageKey", d.ImageKey),
		zap.String("labelKey", d.LabelKey),
		zap.Ints("imageShape", d.ImageShape))

	return NewReader(d.ImageKey, d.LabelKey, d.ImageHeight(), d.ImageWidth(), d.Channels())
}

// NewWorkerCacheProvider creates the WorkerCache rooted at dataset.worker_cache_dir.
func NewWorkerCacheProvider(cfg *config.Config, logger *zap.Logger) *WorkerCache {
	return NewWorkerCache(cfg.Dataset.WorkerCacheDir, cfg.Dataset.FilePattern, logger)
}
