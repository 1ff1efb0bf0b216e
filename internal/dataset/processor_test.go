package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Raikerian/go-unet-dataloader/internal/config"
	"github.com/Raikerian/go-unet-dataloader/internal/hdf5io"
	"github.com/Raikerian/go-unet-dataloader/internal/loader"
	"github.com/Raikerian/go-unet-dataloader/internal/streaming"
	"github.com/Raikerian/go-unet-dataloader/internal/testutil"
	"github.com/Raikerian/go-unet-dataloader/pkg/tensor"
	"github.com/Raikerian/go-unet-dataloader/pkg/test"
)

const side = 4

func testConfig(dirs ...string) *config.Config {
	cfg := &config.Config{
		Dataset: config.DatasetConfig{
			DataDir:    dirs,
			NumClasses: 2,
			ImageShape: []int{side, side, 1},
			Loss:       config.LossBCE,
			BatchSize:  2,
		},
	}
	cfg.ApplyDefaults()

	return cfg
}

func noShuffle(cfg *config.Config) *config.Config {
	off := false
	cfg.Dataset.Shuffle = &off

	return cfg
}

func newTestProcessor(t *testing.T, cfg *config.Config, topo streaming.Topology) *Processor {
	t.Helper()

	d := cfg.Dataset
	reader := hdf5io.NewReader(d.ImageKey, d.LabelKey, d.ImageHeight(), d.ImageWidth(), d.Channels())
	p, err := NewProcessor(cfg, topo, FileLayout{}, reader, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	return p
}

func single() streaming.Topology { return &streaming.StaticTopology{Streamers: 1} }

func streamer(n, rank int) streaming.Topology {
	return &streaming.StaticTopology{Streamer: true, Streamers: n, Rank: rank}
}

func names(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}

	return out
}

func TestNewProcessor(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDataset(t, dir, 2, side, side, 1)

	t.Run("Defaults", func(t *testing.T) {
		p := newTestProcessor(t, testConfig(dir), streamer(2, 1))

		assert.Equal(t, 2, p.NumTasks())
		assert.Equal(t, 1, p.TaskID())
		assert.Equal(t, 1, p.BatchSize())
		assert.Equal(t, 20, p.ShuffleBuffer())
		assert.Equal(t, tensor.Float32, p.OutputType())
		assert.Equal(t, 0, p.Len())
		assert.Equal(t, 0, p.NumExamples())
		assert.Empty(t, p.FilesInThisTask())
		assert.False(t, p.DisableSharding())
	})

	t.Run("MixedPrecision", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.Dataset.MixedPrecision = true
		assert.Equal(t, tensor.Float16, newTestProcessor(t, cfg, single()).OutputType())

		cfg.Dataset.UseBfloat16 = true
		assert.Equal(t, tensor.BFloat16, newTestProcessor(t, cfg, single()).OutputType())
	})

	t.Run("WorkerCacheOutsideAppliance", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.Dataset.UseWorkerCache = true
		topo := test.NewMockTopology(t)
		topo.EXPECT().IsStreamer().Return(true).Once()
		topo.EXPECT().IsAppliance().Return(false).Once()

		_, err := NewProcessor(cfg, topo, FileLayout{}, nil, nil, nil)
		assert.ErrorIs(t, err, ErrWorkerCacheUnsupported)
	})

	t.Run("ImageShapeWithoutChannels", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.Dataset.ImageShape = []int{side, side}

		_, err := NewProcessor(cfg, single(), FileLayout{}, nil, nil, nil)
		assert.ErrorContains(t, err, "image_shape must have 3 entries")
	})

	t.Run("WorkerCacheIgnoredWhenNotStreaming", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.Dataset.UseWorkerCache = true

		p, err := NewProcessor(cfg, single(), FileLayout{}, nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{dir}, p.DataDir())
	})

	t.Run("WorkerCacheOnAppliance", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.Dataset.UseWorkerCache = true
		cacheRoot := t.TempDir()
		wc := hdf5io.NewWorkerCache(cacheRoot, "*.h5", zaptest.NewLogger(t))
		topo := &streaming.StaticTopology{Streamer: true, Appliance: true, Streamers: 1}

		p, err := NewProcessor(cfg, topo, FileLayout{}, nil, wc, nil)
		require.NoError(t, err)
		require.Len(t, p.DataDir(), 1)
		assert.Equal(t, cacheRoot, filepath.Dir(p.DataDir()[0]))
	})
}

func TestShardFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDataset(t, dir, 10, side, side, 1)

	t.Run("StridedAcrossTasks", func(t *testing.T) {
		p := newTestProcessor(t, noShuffle(testConfig(dir)), streamer(3, 1))
		_, err := p.CreateDataLoader(true)
		require.NoError(t, err)

		assert.Equal(t, 10, p.NumExamples())
		assert.Equal(t, []string{"example-001.h5", "example-004.h5", "example-007.h5"}, names(p.FilesInThisTask()))
		assert.Equal(t, 3, p.Len())
		assert.False(t, p.DisableSharding())
	})

	t.Run("TasksCoverDatasetOnce", func(t *testing.T) {
		var all []string
		for rank := range 3 {
			p := newTestProcessor(t, noShuffle(testConfig(dir)), streamer(3, rank))
			require.NoError(t, p.ShardFiles(true))
			all = append(all, names(p.FilesInThisTask())...)
		}
		assert.Len(t, all, 10)
		assert.ElementsMatch(t, names(mustDiscover(t, dir)), all)
	})

	t.Run("DuplicateActWorkerData", func(t *testing.T) {
		cfg := noShuffle(testConfig(dir))
		cfg.Dataset.DuplicateActWorkerData = true
		p := newTestProcessor(t, cfg, streamer(3, 2))
		require.NoError(t, p.ShardFiles(true))

		assert.Len(t, p.FilesInThisTask(), 10)
	})
}

func mustDiscover(t *testing.T, dir string) []string {
	t.Helper()

	files, err := hdf5io.Discover([]string{dir}, "*.h5")
	require.NoError(t, err)

	return files
}

func TestDisableSharding(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDataset(t, dir, 4, side, side, 1)

	// 4 examples over 2 tasks leaves 2 per task, smaller than a batch of 3.
	cfg := noShuffle(testConfig(dir))
	cfg.Dataset.BatchSize = 6
	cfg.Dataset.NumWorkers = 2
	p := newTestProcessor(t, cfg, streamer(2, 0))

	plan, err := p.ShardPlan(true)
	require.NoError(t, err)
	assert.True(t, plan.DisableSharding)
	assert.Equal(t, 3, plan.BatchSize)
	assert.Len(t, plan.FilesInThisTask, 4)
	require.Len(t, plan.Partitions, 2)
	assert.Len(t, plan.Partitions[0], 4)
	assert.Len(t, plan.Partitions[1], 4)
}

func TestShuffleSeedWithDuplicatedData(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDataset(t, dir, 12, side, side, 1)

	order := func(seed int64, rank int) []string {
		cfg := testConfig(dir)
		cfg.Dataset.ShuffleSeed = &seed
		cfg.Dataset.DuplicateActWorkerData = true
		p := newTestProcessor(t, cfg, streamer(4, rank))

		plan, err := p.ShardPlan(true)
		require.NoError(t, err)

		return names(plan.FilesInThisTask)
	}

	first := order(5, 1)
	assert.Len(t, first, 12)
	assert.Equal(t, first, order(5, 1), "same seed and task must give the same order")
	assert.NotEqual(t, first, order(5, 2), "task id must be mixed into the seed")
	// shuffle_seed + task_id: seed 5 on task 1 matches seed 4 on task 2.
	assert.Equal(t, first, order(4, 2))
}

func TestShuffleSeedWhenShardingDisabled(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDataset(t, dir, 4, side, side, 1)

	// 4 examples over 2 tasks is smaller than a batch of 3, so sharding is disabled.
	load := func(seed *int64, rank int) ([]string, uint64) {
		cfg := testConfig(dir)
		cfg.Dataset.BatchSize = 6
		cfg.Dataset.ShuffleSeed = seed
		p := newTestProcessor(t, cfg, streamer(2, rank))

		l, err := p.CreateDataLoader(true)
		require.NoError(t, err)
		require.True(t, p.DisableSharding())
		sampler, ok := l.Options().Sampler.(*loader.RandomSampler)
		require.True(t, ok)

		return names(p.FilesInThisTask()), sampler.Seed()
	}

	order, seed := load(nil, 1)
	assert.Equal(t, uint64(1), seed, "unset shuffle_seed falls back to the task id")

	zero := int64(0)
	sameOrder, sameSeed := load(&zero, 1)
	assert.Equal(t, order, sameOrder)
	assert.Equal(t, seed, sameSeed)

	seven := int64(7)
	_, seeded := load(&seven, 1)
	assert.Equal(t, uint64(8), seeded)
}

func TestDefaultSeed(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDataset(t, dir, 6, side, side, 1)

	p := newTestProcessor(t, testConfig(dir), single())
	l, err := p.CreateDataLoader(true)
	require.NoError(t, err)

	sampler, ok := l.Options().Sampler.(*loader.RandomSampler)
	require.True(t, ok)
	assert.Equal(t, DefaultSeed, sampler.Seed())

	other := newTestProcessor(t, testConfig(dir), single())
	l2, err := other.CreateDataLoader(true)
	require.NoError(t, err)
	assert.Equal(t, sampler.Indices(0), l2.Options().Sampler.Indices(0))
}

func TestCreateDataLoaderLogs(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDataset(t, dir, 4, side, side, 1)

	observed := func(t *testing.T, cfg *config.Config, topo streaming.Topology) (*Processor, *observer.ObservedLogs) {
		core, logs := observer.New(zapcore.InfoLevel)
		d := cfg.Dataset
		reader := hdf5io.NewReader(d.ImageKey, d.LabelKey, d.ImageHeight(), d.ImageWidth(), d.Channels())
		p, err := NewProcessor(cfg, topo, FileLayout{}, reader, nil, zap.New(core))
		require.NoError(t, err)

		return p, logs
	}

	t.Run("DatasetTooSmall", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.Dataset.BatchSize = 6
		p, logs := observed(t, cfg, streamer(2, 0))

		_, err := p.CreateDataLoader(true)
		require.NoError(t, err)

		warnings := logs.FilterMessageSnippet("Dataset too small").FilterLevelExact(zapcore.WarnLevel).AllUntimed()
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0].Message, "using duplicate data for activation workers")
		assert.Equal(t, int64(4), warnings[0].ContextMap()["datasetSize"])
		assert.Equal(t, int64(2), warnings[0].ContextMap()["numTasks"])
		assert.Equal(t, int64(3), warnings[0].ContextMap()["batchSize"])
		assert.Zero(t, logs.FilterMessage("Using FastDataLoader").Len())
	})

	t.Run("FastDataLoader", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.Dataset.UseFastDataloader = true
		p, logs := observed(t, cfg, single())

		l, err := p.CreateDataLoader(true)
		require.NoError(t, err)
		assert.True(t, l.Options().Fast)

		assert.Equal(t, 1, logs.FilterMessage("Using FastDataLoader").Len())
		assert.Zero(t, logs.FilterMessageSnippet("Dataset too small").Len())
	})
}

func TestWorkerInit(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDataset(t, dir, 7, side, side, 1)

	p := newTestProcessor(t, noShuffle(testConfig(dir)), single())
	require.NoError(t, p.ShardFiles(true))

	require.NoError(t, p.WorkerInit(1, 3))
	parts := p.DataPartitions()
	require.Len(t, parts, 3)
	assert.Equal(t, []string{"example-000.h5", "example-003.h5", "example-006.h5"}, names(parts[0]))
	assert.Equal(t, []string{"example-001.h5", "example-004.h5"}, names(parts[1]))
	assert.Equal(t, []string{"example-002.h5", "example-005.h5"}, names(parts[2]))

	t.Run("SingleProcess", func(t *testing.T) {
		require.NoError(t, p.WorkerInit(0, 0))
		assert.Len(t, p.DataPartitions(), 1)
	})

	t.Run("UninitializedWorker", func(t *testing.T) {
		_, _, err := p.Example(5, 0)
		assert.ErrorContains(t, err, "not been initialized")
	})

	t.Run("IndexOutOfRange", func(t *testing.T) {
		_, _, err := p.Example(0, 7)
		assert.ErrorContains(t, err, "out of range")
	})
}

func TestCreateDataLoader(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteDataset(t, dir, 9, side, side, 1)

	for _, tc := range []struct {
		name    string
		workers int
	}{
		{"InProcess", 0},
		{"Workers", 3},
	} {
		workers := tc.workers
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(dir)
			cfg.Dataset.NormalizeDataMethod = config.NormalizeZeroOne
			cfg.Dataset.NumWorkers = workers
			cfg.Dataset.PrefetchFactor = 1
			seed := int64(3)
			cfg.Dataset.ShuffleSeed = &seed
			p := newTestProcessor(t, cfg, single())

			l, err := p.CreateDataLoader(true)
			require.NoError(t, err)
			assert.Equal(t, 4, l.Len())
			if workers == 0 {
				assert.Equal(t, 2, l.Options().PrefetchFactor)
				assert.False(t, l.Options().PersistentWorkers)
				assert.Len(t, p.DataPartitions(), 1)
			}

			seen := map[int]int{}
			err = l.Run(context.Background(), 2, func(b loader.Batch) error {
				assert.Equal(t, []int{2, 1, side, side}, b.Images.Shape)
				assert.Equal(t, []int{2, 1, side, side}, b.Labels.Shape)
				for i, idx := range b.Indices {
					seen[idx]++
					// Every pixel of example-00N holds N, flips do not change that.
					n := float32(exampleNumber(t, p.FilesInThisTask()[idx]))
					assert.InDelta(t, n/255, b.Images.Data[i*side*side], 1e-6)
				}

				return nil
			})
			require.NoError(t, err)

			// drop_last keeps 8 of 9 examples per epoch.
			total := 0
			for _, c := range seen {
				assert.LessOrEqual(t, c, 2)
				total += c
			}
			assert.Equal(t, 16, total)
		})
	}

	t.Run("SSCELabels", func(t *testing.T) {
		cfg := noShuffle(testConfig(dir))
		cfg.Dataset.Loss = config.LossSSCE
		cfg.Dataset.BatchSize = 3
		p := newTestProcessor(t, cfg, single())

		l, err := p.CreateDataLoader(false)
		require.NoError(t, err)

		err = l.Iterate(context.Background(), func(b loader.Batch) error {
			assert.Equal(t, []int{3, side, side}, b.Labels.Shape)
			assert.Equal(t, tensor.Int32, b.Labels.DType)
			assert.Equal(t, float32(0), b.Labels.Data[0])
			assert.Equal(t, float32(1), b.Labels.Data[1])

			return nil
		})
		require.NoError(t, err)
	})

	t.Run("NoFiles", func(t *testing.T) {
		p := newTestProcessor(t, testConfig(t.TempDir()), single())

		_, err := p.CreateDataLoader(true)
		assert.ErrorIs(t, err, hdf5io.ErrNoFiles)
	})
}

func exampleNumber(t *testing.T, path string) int {
	t.Helper()

	var n int
	_, err := fmt.Sscanf(filepath.Base(path), "example-%03d.h5", &n)
	require.NoError(t, err)

	return n
}
