package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/go-unet-dataloader/pkg/tensor"
	"github.com/Raikerian/go-unet-dataloader/pkg/test"
)

// exampleLog records which worker loaded each example.
type exampleLog struct {
	mu      sync.Mutex
	workers map[int]int
}

func (e *exampleLog) worker(index int) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.workers[index]
}

// newDataset returns a dataset of n scalar examples: image index, label -index.
// hook runs before every load and may fail it.
func newDataset(t *testing.T, n int, hook func(workerID, index int) error) (*test.MockDataset, *exampleLog) {
	t.Helper()

	log := &exampleLog{workers: make(map[int]int)}
	ds := test.NewMockDataset(t)
	ds.EXPECT().Len().Return(n).Maybe()
	ds.EXPECT().Example(mock.Anything, mock.Anything).RunAndReturn(
		func(workerID, index int) (tensor.Tensor, tensor.Tensor, error) {
			if hook != nil {
				if err := hook(workerID, index); err != nil {
					return tensor.Tensor{}, tensor.Tensor{}, err
				}
			}
			log.mu.Lock()
			log.workers[index] = workerID
			log.mu.Unlock()

			img := tensor.Tensor{Shape: []int{1}, Data: []float32{float32(index)}}
			lbl := tensor.Tensor{Shape: []int{1}, Data: []float32{float32(-index)}}

			return img, lbl, nil
		}).Maybe()

	return ds, log
}

func plainDataset(t *testing.T, n int) *test.MockDataset {
	ds, _ := newDataset(t, n, nil)

	return ds
}

func failingAt(index int) func(int, int) error {
	return func(_, i int) error {
		if i == index {
			return errors.New("corrupt file")
		}

		return nil
	}
}

func collect(t *testing.T, l *Loader) []Batch {
	t.Helper()

	var out []Batch
	require.NoError(t, l.Iterate(context.Background(), func(b Batch) error {
		out = append(out, b)

		return nil
	}))

	return out
}

func TestNew(t *testing.T) {
	ds := plainDataset(t, 4)

	_, err := New(ds, Options{BatchSize: 0})
	assert.Error(t, err)

	_, err = New(ds, Options{BatchSize: 1, NumWorkers: -1})
	assert.Error(t, err)

	_, err = New(ds, Options{BatchSize: 1, NumWorkers: 2, PrefetchFactor: 0})
	assert.Error(t, err)

	l, err := New(ds, Options{BatchSize: 1, PersistentWorkers: true})
	require.NoError(t, err)
	assert.False(t, l.Options().PersistentWorkers)
	assert.IsType(t, &SequentialSampler{}, l.Options().Sampler)
}

func TestIterateInline(t *testing.T) {
	t.Run("DropLast", func(t *testing.T) {
		l, err := New(plainDataset(t, 10), Options{BatchSize: 4, DropLast: true})
		require.NoError(t, err)
		assert.Equal(t, 2, l.Len())

		batches := collect(t, l)
		require.Len(t, batches, 2)
		assert.Equal(t, []int{0, 1, 2, 3}, batches[0].Indices)
		assert.Equal(t, []int{4, 1}, batches[1].Images.Shape)
		assert.Equal(t, []float32{4, 5, 6, 7}, batches[1].Images.Data)
		assert.Equal(t, []float32{-4, -5, -6, -7}, batches[1].Labels.Data)
	})

	t.Run("KeepLast", func(t *testing.T) {
		l, err := New(plainDataset(t, 10), Options{BatchSize: 4})
		require.NoError(t, err)
		assert.Equal(t, 3, l.Len())

		batches := collect(t, l)
		require.Len(t, batches, 3)
		assert.Equal(t, []int{8, 9}, batches[2].Indices)
	})

	t.Run("EpochCounter", func(t *testing.T) {
		l, err := New(plainDataset(t, 2), Options{BatchSize: 2})
		require.NoError(t, err)

		assert.Equal(t, 0, collect(t, l)[0].Epoch)
		assert.Equal(t, 1, collect(t, l)[0].Epoch)
	})
}

func TestIterateParallel(t *testing.T) {
	t.Run("OrderedAndRoundRobin", func(t *testing.T) {
		// Early batches are slowest so later ones finish first.
		ds, log := newDataset(t, 24, func(_, i int) error {
			time.Sleep(time.Duration(24-i) * 200 * time.Microsecond)

			return nil
		})

		l, err := New(ds, Options{BatchSize: 3, NumWorkers: 3, PrefetchFactor: 2, Logger: zaptest.NewLogger(t)})
		require.NoError(t, err)

		batches := collect(t, l)
		require.Len(t, batches, 8)
		for k, b := range batches {
			assert.Equal(t, k, b.Number)
			assert.Equal(t, []int{3 * k, 3*k + 1, 3*k + 2}, b.Indices)
			assert.Equal(t, k%3, log.worker(3*k), "batch %d should be loaded by worker %d", k, k%3)
		}
	})

	t.Run("WorkerErrorStopsEpoch", func(t *testing.T) {
		ds, _ := newDataset(t, 40, failingAt(13))

		l, err := New(ds, Options{BatchSize: 2, NumWorkers: 4, PrefetchFactor: 1})
		require.NoError(t, err)

		var seen []int
		err = l.Iterate(context.Background(), func(b Batch) error {
			seen = append(seen, b.Number)

			return nil
		})
		assert.ErrorContains(t, err, "corrupt file")
		assert.Less(t, len(seen), 20)
	})

	t.Run("CallbackErrorStopsEpoch", func(t *testing.T) {
		l, err := New(plainDataset(t, 40), Options{BatchSize: 2, NumWorkers: 2, PrefetchFactor: 2})
		require.NoError(t, err)

		boom := errors.New("boom")
		err = l.Iterate(context.Background(), func(b Batch) error {
			if b.Number == 3 {
				return boom
			}

			return nil
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("ErrStop", func(t *testing.T) {
		l, err := New(plainDataset(t, 40), Options{BatchSize: 2, NumWorkers: 2, PrefetchFactor: 2})
		require.NoError(t, err)

		count := 0
		err = l.Iterate(context.Background(), func(Batch) error {
			count++
			if count == 5 {
				return ErrStop
			}

			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 5, count)
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		l, err := New(plainDataset(t, 40), Options{BatchSize: 2, NumWorkers: 2, PrefetchFactor: 2})
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		err = l.Iterate(ctx, func(b Batch) error {
			if b.Number == 2 {
				cancel()
			}

			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWorkerInit(t *testing.T) {
	for _, tc := range []struct {
		name       string
		persistent bool
		want       int32
	}{
		{"Persistent", true, 2},
		{"PerEpoch", false, 6},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			l, err := New(plainDataset(t, 8), Options{
				BatchSize:         2,
				NumWorkers:        2,
				PrefetchFactor:    1,
				PersistentWorkers: tc.persistent,
				WorkerInitFn: func(workerID, numWorkers int) error {
					assert.Equal(t, 2, numWorkers)
					calls.Add(1)

					return nil
				},
			})
			require.NoError(t, err)

			for range 3 {
				collect(t, l)
			}
			assert.Equal(t, tc.want, calls.Load())
		})
	}

	t.Run("Failure", func(t *testing.T) {
		l, err := New(plainDataset(t, 8), Options{
			BatchSize:      2,
			NumWorkers:     2,
			PrefetchFactor: 1,
			WorkerInitFn:   func(int, int) error { return errors.New("no buffer") },
		})
		require.NoError(t, err)

		err = l.Iterate(context.Background(), func(Batch) error { return nil })
		assert.ErrorContains(t, err, "no buffer")
	})
}

func TestStream(t *testing.T) {
	t.Run("RunsAcrossEpochs", func(t *testing.T) {
		l, err := New(plainDataset(t, 4), Options{BatchSize: 2, NumWorkers: 1, PrefetchFactor: 2})
		require.NoError(t, err)

		var epochs []int
		err = l.Stream(context.Background(), func(b Batch) error {
			epochs = append(epochs, b.Epoch)
			if len(epochs) == 5 {
				return ErrStop
			}

			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 0, 1, 1, 2}, epochs)
	})

	t.Run("Empty", func(t *testing.T) {
		l, err := New(plainDataset(t, 1), Options{BatchSize: 2, DropLast: true})
		require.NoError(t, err)

		assert.ErrorIs(t, l.Stream(context.Background(), func(Batch) error { return nil }), ErrEmpty)
	})
}

func TestSamplers(t *testing.T) {
	ds := plainDataset(t, 10)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, NewSequentialSampler(ds).Indices(3))

	r := NewRandomSampler(ds, 11)
	first := r.Indices(0)
	assert.ElementsMatch(t, NewSequentialSampler(ds).Indices(0), first)
	assert.Equal(t, first, NewRandomSampler(ds, 11).Indices(0))
	assert.NotEqual(t, first, r.Indices(1))
	assert.Equal(t, uint64(11), r.Seed())
}

func TestRun(t *testing.T) {
	for _, fast := range []bool{false, true} {
		l, err := New(plainDataset(t, 6), Options{BatchSize: 2, NumWorkers: 2, PrefetchFactor: 1, Fast: fast})
		require.NoError(t, err)

		count := 0
		require.NoError(t, l.Run(context.Background(), 3, func(Batch) error {
			count++

			return nil
		}))
		assert.Equal(t, 9, count, "fast=%v", fast)
	}
}

func TestPersistentWorkersSurviveEarlyStop(t *testing.T) {
	for _, tc := range []struct {
		name string
		stop error
	}{
		{"ErrStop", ErrStop},
		{"CallbackError", errors.New("step failed")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			l, err := New(plainDataset(t, 12), Options{
				BatchSize:         2,
				NumWorkers:        3,
				PrefetchFactor:    1,
				PersistentWorkers: true,
				WorkerInitFn: func(int, int) error {
					calls.Add(1)

					return nil
				},
			})
			require.NoError(t, err)

			err = l.Iterate(context.Background(), func(Batch) error { return tc.stop })
			if errors.Is(tc.stop, ErrStop) {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tc.stop)
			}

			assert.Len(t, collect(t, l), 6)
			assert.Equal(t, int32(3), calls.Load())
		})
	}
}

func TestPrefetchBound(t *testing.T) {
	const (
		workers  = 3
		prefetch = 2
	)

	var started atomic.Int32
	ds, _ := newDataset(t, 30, func(int, int) error {
		started.Add(1)

		return nil
	})

	// One example per batch, so every Example call starts a batch.
	l, err := New(ds, Options{BatchSize: 1, NumWorkers: workers, PrefetchFactor: prefetch})
	require.NoError(t, err)

	consumed := 0
	maxAhead := 0
	require.NoError(t, l.Iterate(context.Background(), func(Batch) error {
		// A slow consumer lets the workers fill every prefetch slot.
		time.Sleep(2 * time.Millisecond)
		consumed++
		maxAhead = max(maxAhead, int(started.Load())-consumed)

		return nil
	}))

	assert.Equal(t, 30, consumed)
	assert.LessOrEqual(t, maxAhead, prefetch*workers)
	assert.GreaterOrEqual(t, maxAhead, workers)
}
