// Package loader batches dataset examples with a pool of loading workers.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Raikerian/go-unet-dataloader/pkg/tensor"
)

// ErrStop may be returned by an iteration callback to end iteration without error.
var ErrStop = errors.New("stop iteration")

// ErrEmpty is returned by Stream when an epoch would yield no batches.
var ErrEmpty = errors.New("loader yields no batches")

// Dataset is the indexable source a Loader batches.
type Dataset interface {
	Len() int
	// Example loads example index on behalf of worker workerID.
	Example(workerID, index int) (image, label tensor.Tensor, err error)
}

// Batch is a stacked group of examples.
type Batch struct {
	Epoch   int
	Number  int
	Indices []int
	Images  tensor.Tensor
	Labels  tensor.Tensor
}

// Options configures a Loader.
type Options struct {
	BatchSize         int
	DropLast          bool
	NumWorkers        int
	PrefetchFactor    int
	PersistentWorkers bool
	// Fast keeps one stream running across epochs instead of restarting per epoch.
	Fast    bool
	Sampler Sampler
	// WorkerInitFn runs in every worker before it loads its first batch.
	WorkerInitFn func(workerID, numWorkers int) error
	Logger       *zap.Logger
}

// Loader yields batches of a Dataset in sampler order.
type Loader struct {
	ds          Dataset
	opts        Options
	logger      *zap.Logger
	epoch       int
	initialized bool
}

// New creates a Loader.
func New(ds Dataset, opts Options) (*Loader, error) {
	if opts.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", opts.BatchSize)
	}
	if opts.NumWorkers < 0 {
		return nil, fmt.Errorf("num workers must be >= 0, got %d", opts.NumWorkers)
	}
	if opts.NumWorkers > 0 && opts.PrefetchFactor < 1 {
		return nil, fmt.Errorf("prefetch factor must be >= 1 with workers, got %d", opts.PrefetchFactor)
	}
	if opts.NumWorkers == 0 {
		opts.PersistentWorkers = false
	}
	if opts.Sampler == nil {
		opts.Sampler = NewSequentialSampler(ds)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{ds: ds, opts: opts, logger: logger}, nil
}

// Options returns the effective options.
func (l *Loader) Options() Options { return l.opts }

// Len returns the number of batches per epoch.
func (l *Loader) Len() int {
	return numBatches(l.ds.Len(), l.opts.BatchSize, l.opts.DropLast)
}

func numBatches(n, size int, dropLast bool) int {
	if dropLast {
		return n / size
	}

	return (n + size - 1) / size
}

func (l *Loader) split(indices []int) [][]int {
	out := make([][]int, 0, numBatches(len(indices), l.opts.BatchSize, l.opts.DropLast))
	for start := 0; start < len(indices); start += l.opts.BatchSize {
		end := min(start+l.opts.BatchSize, len(indices))
		if end-start < l.opts.BatchSize && l.opts.DropLast {
			break
		}
		out = append(out, indices[start:end])
	}

	return out
}

// Iterate runs one epoch, calling fn with each batch in order.
// Returning ErrStop from fn ends the epoch early without error.
func (l *Loader) Iterate(ctx context.Context, fn func(Batch) error) error {
	epoch := l.epoch
	l.epoch++

	batches := l.split(l.opts.Sampler.Indices(epoch))
	l.logger.Debug("Starting epoch",
		zap.Int("epoch", epoch),
		zap.Int("batches", len(batches)),
		zap.Int("workers", l.opts.NumWorkers))

	var err error
	if l.opts.NumWorkers == 0 {
		err = l.iterateInline(ctx, epoch, batches, fn)
	} else {
		err = l.iterateParallel(ctx, epoch, batches, fn)
	}
	if errors.Is(err, ErrStop) {
		return nil
	}

	return err
}

// Stream iterates epochs back to back until ctx is done or fn returns ErrStop.
func (l *Loader) Stream(ctx context.Context, fn func(Batch) error) error {
	if l.Len() == 0 {
		return ErrEmpty
	}
	stopped := false
	wrapped := func(b Batch) error {
		err := fn(b)
		if errors.Is(err, ErrStop) {
			stopped = true
		}

		return err
	}

	for !stopped {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.Iterate(ctx, wrapped); err != nil {
			return err
		}
	}

	return nil
}

// Run consumes epochs epochs, through Stream when the loader is Fast and epoch by epoch otherwise.
func (l *Loader) Run(ctx context.Context, epochs int, fn func(Batch) error) error {
	if !l.opts.Fast {
		for range epochs {
			if err := l.Iterate(ctx, fn); err != nil {
				return err
			}
		}

		return nil
	}

	remaining := epochs * l.Len()
	if remaining == 0 {
		return nil
	}

	return l.Stream(ctx, func(b Batch) error {
		if err := fn(b); err != nil {
			return err
		}
		remaining--
		if remaining == 0 {
			return ErrStop
		}

		return nil
	})
}

func (l *Loader) iterateInline(ctx context.Context, epoch int, batches [][]int, fn func(Batch) error) error {
	for k, idx := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := l.load(0, epoch, k, idx)
		if err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
	}

	return nil
}

func (l *Loader) iterateParallel(ctx context.Context, epoch int, batches [][]int, fn func(Batch) error) error {
	n := l.opts.NumWorkers
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(wctx)

	runInit := !l.opts.PersistentWorkers || !l.initialized
	var inits atomic.Int32

	// Each worker may run at most PrefetchFactor batches ahead of the consumer.
	tokens := make([]chan struct{}, n)
	for w := range tokens {
		tokens[w] = make(chan struct{}, l.opts.PrefetchFactor)
	}
	slots := make([]chan Batch, len(batches))
	for k := range slots {
		slots[k] = make(chan Batch, 1)
	}

	for w := 0; w < n; w++ {
		g.Go(func() error {
			if runInit && l.opts.WorkerInitFn != nil {
				if err := l.opts.WorkerInitFn(w, n); err != nil {
					return fmt.Errorf("worker %d init: %w", w, err)
				}
			}
			inits.Add(1)
			for k := w; k < len(batches); k += n {
				select {
				case tokens[w] <- struct{}{}:
				case <-gctx.Done():
					return gctx.Err()
				}
				b, err := l.load(w, epoch, k, batches[k])
				if err != nil {
					return err
				}
				slots[k] <- b
			}

			return nil
		})
	}

	var consumeErr error
consume:
	for k := range batches {
		select {
		case b := <-slots[k]:
			<-tokens[k%n]
			if err := fn(b); err != nil {
				consumeErr = err

				break consume
			}
		case <-gctx.Done():
			break consume
		}
	}

	cancel()
	waitErr := g.Wait()
	// Persistent workers stay initialized even when the consumer stops the epoch early.
	if int(inits.Load()) == n {
		l.initialized = true
	}
	if consumeErr != nil {
		return consumeErr
	}
	if waitErr != nil && !errors.Is(waitErr, context.Canceled) {
		return waitErr
	}

	return ctx.Err()
}

func (l *Loader) load(workerID, epoch, number int, indices []int) (Batch, error) {
	images := make([]tensor.Tensor, len(indices))
	labels := make([]tensor.Tensor, len(indices))
	for i, idx := range indices {
		img, lbl, err := l.ds.Example(workerID, idx)
		if err != nil {
			return Batch{}, fmt.Errorf("loading example %d: %w", idx, err)
		}
		images[i], labels[i] = img, lbl
	}

	imgBatch, err := tensor.Stack(images)
	if err != nil {
		return Batch{}, fmt.Errorf("stacking images of batch %d: %w", number, err)
	}
	lblBatch, err := tensor.Stack(labels)
	if err != nil {
		return Batch{}, fmt.Errorf("stacking labels of batch %d: %w", number, err)
	}

	return Batch{
		Epoch:   epoch,
		Number:  number,
		Indices: indices,
		Images:  imgBatch,
		Labels:  lblBatch,
	}, nil
}
