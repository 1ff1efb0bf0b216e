package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-unet-dataloader/internal/config"
	"github.com/Raikerian/go-unet-dataloader/internal/dataset"
	"github.com/Raikerian/go-unet-dataloader/internal/loader"
)

// RunModule drains the configured number of epochs once the application starts
// and shuts the application down when done.
var RunModule = fx.Module("runner",
	fx.Provide(NewRunner),
	fx.Invoke(registerRunnerHooks),
)

// Stats summarizes a finished run.
type Stats struct {
	Epochs   int
	Batches  int
	Examples int
	Elapsed  time.Duration
}

// Runner consumes batches from the processor's data loader in the background.
type Runner struct {
	processor  *dataset.Processor
	epochs     int
	isTraining bool
	logger     *zap.Logger
	shutdowner fx.Shutdowner

	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	stats Stats
	err   error
}

// NewRunnerParams holds dependencies for NewRunner.
type NewRunnerParams struct {
	fx.In
	Cfg        *config.Config
	Processor  *dataset.Processor
	Logger     *zap.Logger
	Shutdowner fx.Shutdowner
}

// NewRunner creates a Runner from the run section of the config.
func NewRunner(params NewRunnerParams) *Runner {
	return &Runner{
		processor:  params.Processor,
		epochs:     params.Cfg.Run.Epochs,
		isTraining: params.Cfg.Run.IsTraining == nil || *params.Cfg.Run.IsTraining,
		logger:     params.Logger,
		shutdowner: params.Shutdowner,
		done:       make(chan struct{}),
	}
}

// Stats returns what has been consumed so far.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stats
}

// Err returns the error that ended the run, if any. Interruption is not an error.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.err
}

// Start creates the data loader and begins consuming it.
func (r *Runner) Start() error {
	l, err := r.processor.CreateDataLoader(r.isTraining)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	go r.run(ctx, l)

	return nil
}

// Stop interrupts the run and waits for it to wind down.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) run(ctx context.Context, l *loader.Loader) {
	defer close(r.done)

	start := time.Now()
	lastEpoch := -1
	err := l.Run(ctx, r.epochs, func(b loader.Batch) error {
		r.mu.Lock()
		r.stats.Batches++
		r.stats.Examples += len(b.Indices)
		if b.Epoch != lastEpoch {
			r.stats.Epochs++
			lastEpoch = b.Epoch
		}
		r.mu.Unlock()

		r.logger.Debug("Batch",
			zap.Int("epoch", b.Epoch),
			zap.Int("number", b.Number),
			zap.Ints("imageShape", b.Images.Shape),
			zap.Ints("labelShape", b.Labels.Shape),
			zap.Stringer("dtype", b.Images.DType))

		return nil
	})

	r.mu.Lock()
	r.stats.Elapsed = time.Since(start)
	stats := r.stats
	if err != nil && !errors.Is(err, context.Canceled) {
		r.err = err
	}
	r.mu.Unlock()

	switch {
	case errors.Is(err, context.Canceled):
		r.logger.Info("Run interrupted", zap.Int("batches", stats.Batches))

		return
	case err != nil:
		r.logger.Error("Run failed", zap.Error(err), zap.Int("batches", stats.Batches))
		r.shutdown(1)

		return
	}

	r.logger.Info("Run finished",
		zap.Int("epochs", stats.Epochs),
		zap.Int("batches", stats.Batches),
		zap.Int("examples", stats.Examples),
		zap.Duration("elapsed", stats.Elapsed))
	r.shutdown(0)
}

func (r *Runner) shutdown(code int) {
	if err := r.shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
		r.logger.Warn("Failed to request shutdown", zap.Error(err))
	}
}

func registerRunnerHooks(lc fx.Lifecycle, r *Runner, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting data loader run", zap.Int("epochs", r.epochs), zap.Bool("isTraining", r.isTraining))

			if err := r.Start(); err != nil {
				logger.Error("Failed to start data loader run", zap.Error(err))

				return err
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping data loader run")

			return r.Stop(ctx)
		},
	})
}
