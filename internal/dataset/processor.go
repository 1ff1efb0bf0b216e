// Package dataset shards HDF5 image/label files across streamers and loader workers
// and hands preprocessed examples to the batch loader.
package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/Raikerian/go-unet-dataloader/internal/config"
	"github.com/Raikerian/go-unet-dataloader/internal/hdf5io"
	"github.com/Raikerian/go-unet-dataloader/internal/loader"
	"github.com/Raikerian/go-unet-dataloader/internal/preprocess"
	"github.com/Raikerian/go-unet-dataloader/internal/streaming"
	"github.com/Raikerian/go-unet-dataloader/pkg/tensor"
)

// ErrWorkerCacheUnsupported is returned when the worker cache is requested outside an appliance.
var ErrWorkerCacheUnsupported = errors.New("use_worker_cache not supported for non-appliance runs")

// DefaultSeed seeds shuffling and augmentation when shuffle_seed is unset, so unseeded runs
// still repeat the same order.
const DefaultSeed uint64 = 67280421310721

// workerState is what one loader worker keeps between batches.
type workerState struct {
	buffer    *hdf5io.Buffer
	augmenter *preprocess.Augmenter
}

// Processor is the HDF5 UNet data processor.
// It owns the task shard of the dataset and creates data loaders over it.
type Processor struct {
	logger  *zap.Logger
	layout  Layout
	reader  hdf5io.ExampleReader
	process *preprocess.Pipeline

	dataDir     []string
	filePattern string

	numClasses          int
	height, width       int
	channels            int
	lossType            string
	normalizeDataMethod string
	augmentData         bool
	outputType          tensor.DType

	shuffleSeed   *int64
	baseSeed      uint64
	batchSize     int
	shuffle       bool
	shuffleBuffer int

	numWorkers        int
	dropLast          bool
	prefetchFactor    int
	persistentWorkers bool
	bufferSize        int

	numTasks int
	taskID   int

	useFastDataloader      bool
	duplicateActWorkerData bool

	// Set by CreateDataLoader.
	isTraining      bool
	numExamples     int
	allFiles        []string
	filesInThisTask []string
	disableSharding bool

	mu             sync.Mutex
	dataPartitions map[int][]string
	workers        map[int]*workerState
	workerInits    map[int]uint64
}

// NewProcessor creates a Processor for the dataset described by cfg.
// wc may be nil when the worker cache is not used.
func NewProcessor(
	cfg *config.Config,
	topo streaming.Topology,
	layout Layout,
	reader hdf5io.ExampleReader,
	wc *hdf5io.WorkerCache,
	logger *zap.Logger,
) (*Processor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := cfg.Dataset
	if len(d.ImageShape) != 3 {
		return nil, fmt.Errorf("dataset.image_shape must have 3 entries (H, W, C), got %v", d.ImageShape)
	}

	dataDir := slices.Clone([]string(d.DataDir))
	if d.UseWorkerCache && topo.IsStreamer() {
		if !topo.IsAppliance() {
			return nil, ErrWorkerCacheUnsupported
		}
		if wc == nil {
			return nil, errors.New("use_worker_cache requested but no worker cache is configured")
		}
		cached, err := wc.Materialize(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create worker cache: %w", err)
		}
		dataDir = cached
	}

	outputType := tensor.Float32
	if d.MixedPrecision {
		outputType = tensor.Float16
		if d.UseBfloat16 {
			outputType = tensor.BFloat16
		}
	}

	baseSeed := DefaultSeed
	if d.ShuffleSeed != nil {
		baseSeed = uint64(*d.ShuffleSeed)
	}

	p := &Processor{
		logger:              logger,
		layout:              layout,
		reader:              reader,
		dataDir:             dataDir,
		filePattern:         d.FilePattern,
		numClasses:          d.NumClasses,
		height:              d.ImageHeight(),
		width:               d.ImageWidth(),
		channels:            d.Channels(),
		lossType:            d.Loss,
		normalizeDataMethod: d.NormalizeDataMethod,
		augmentData:         d.AugmentData == nil || *d.AugmentData,
		outputType:          outputType,
		shuffleSeed:         d.ShuffleSeed,
		baseSeed:            baseSeed,
		batchSize:           streaming.StreamingBatchSize(topo, d.BatchSize),
		shuffle:             d.Shuffle == nil || *d.Shuffle,
		shuffleBuffer:       d.ShuffleBuffer,
		numWorkers:          d.NumWorkers,
		dropLast:            d.DropLast == nil || *d.DropLast,
		prefetchFactor:      d.PrefetchFactor,
		persistentWorkers:   d.PersistentWorkers == nil || *d.PersistentWorkers,
		bufferSize:          d.BufferSize,
		numTasks:            streaming.NumTasks(topo),
		taskID:              streaming.TaskID(topo),
		useFastDataloader:   d.UseFastDataloader,
		// Each activation worker can access the entire dataset when true.
		duplicateActWorkerData: d.DuplicateActWorkerData,
		dataPartitions:         make(map[int][]string),
		workers:                make(map[int]*workerState),
		workerInits:            make(map[int]uint64),
	}
	if p.shuffleBuffer <= 0 {
		p.shuffleBuffer = 10 * p.batchSize
	}
	if p.bufferSize <= 0 {
		p.bufferSize = 1
	}
	p.process = preprocess.NewPipeline(preprocess.Options{
		Height:              p.height,
		Width:               p.width,
		Channels:            p.channels,
		NumClasses:          p.numClasses,
		Loss:                p.lossType,
		NormalizeDataMethod: p.normalizeDataMethod,
		Augment:             p.augmentData,
		OutputType:          p.outputType,
	})

	return p, nil
}

// Len returns the number of examples on this task.
func (p *Processor) Len() int {
	return len(p.filesInThisTask)
}

// NumExamples returns the number of examples discovered across all tasks.
func (p *Processor) NumExamples() int { return p.numExamples }

// DataDir returns the directories the dataset is read from, after worker caching.
func (p *Processor) DataDir() []string { return p.dataDir }

// FilesInThisTask returns the files owned by this task in example order.
func (p *Processor) FilesInThisTask() []string { return p.filesInThisTask }

// DisableSharding reports whether the dataset was too small to shard and is duplicated instead.
func (p *Processor) DisableSharding() bool { return p.disableSharding }

// BatchSize returns the per-streamer batch size.
func (p *Processor) BatchSize() int { return p.batchSize }

// NumTasks returns the size of the task dimension.
func (p *Processor) NumTasks() int { return p.numTasks }

// TaskID returns this process' task index.
func (p *Processor) TaskID() int { return p.taskID }

// OutputType returns the dtype of produced image tensors.
func (p *Processor) OutputType() tensor.DType { return p.outputType }

// ShuffleBuffer returns the shuffle buffer size in samples.
func (p *Processor) ShuffleBuffer() int { return p.shuffleBuffer }

// DataPartitions returns a copy of the per-worker file partitions computed by the last WorkerInit.
func (p *Processor) DataPartitions() map[int][]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[int][]string, len(p.dataPartitions))
	for w, files := range p.dataPartitions {
		out[w] = slices.Clone(files)
	}

	return out
}

// ShardFiles runs the layout's task sharding and records the result.
func (p *Processor) ShardFiles(isTraining bool) error {
	all, inTask, err := p.layout.ShardFiles(p, isTraining)
	if err != nil {
		return err
	}
	p.numExamples = len(all)
	p.filesInThisTask = inTask
	p.allFiles = all

	return nil
}

func (p *Processor) maybeShardDataset(numWorkers int) map[int][]string {
	partitions := make(map[int][]string, numWorkers)
	for w := range numWorkers {
		partitions[w] = p.layout.ShardDataset(p, w, numWorkers)
	}

	return partitions
}

// WorkerInit prepares worker workerID of numWorkers: it computes the data partitions of every worker,
// fills the worker's example buffer from its partition and seeds its augmenter.
func (p *Processor) WorkerInit(workerID, numWorkers int) error {
	if numWorkers < 1 {
		workerID, numWorkers = 0, 1
	}
	partitions := p.maybeShardDataset(numWorkers)

	p.mu.Lock()
	p.dataPartitions = partitions
	generation := p.workerInits[workerID]
	p.workerInits[workerID] = generation + 1
	p.mu.Unlock()

	buffer := hdf5io.NewBuffer(p.reader, p.bufferSize)
	if err := buffer.Load(partitions[workerID]); err != nil {
		return fmt.Errorf("failed to load buffer for worker %d: %w", workerID, err)
	}
	seed := p.baseSeed + uint64(p.taskID)<<40 + uint64(workerID)<<20 + generation
	state := &workerState{
		buffer:    buffer,
		augmenter: preprocess.NewAugmenter(seed),
	}

	p.mu.Lock()
	p.workers[workerID] = state
	p.mu.Unlock()

	p.logger.Debug("Worker initialized",
		zap.Int("workerID", workerID),
		zap.Int("numWorkers", numWorkers),
		zap.Int("partitionFiles", len(partitions[workerID])),
		zap.Int("buffered", buffer.Len()))

	return nil
}

func (p *Processor) worker(workerID int) (*workerState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, ok := p.workers[workerID]
	if !ok {
		return nil, fmt.Errorf("worker %d has not been initialized", workerID)
	}

	return state, nil
}

// Example loads, augments and preprocesses example index of this task on behalf of a worker.
func (p *Processor) Example(workerID, index int) (tensor.Tensor, tensor.Tensor, error) {
	if index < 0 || index >= len(p.filesInThisTask) {
		return tensor.Tensor{}, tensor.Tensor{}, fmt.Errorf("example index %d out of range [0, %d)", index, len(p.filesInThisTask))
	}
	state, err := p.worker(workerID)
	if err != nil {
		return tensor.Tensor{}, tensor.Tensor{}, err
	}

	ex, err := state.buffer.ReadExample(p.filesInThisTask[index])
	if err != nil {
		return tensor.Tensor{}, tensor.Tensor{}, err
	}

	var aug *preprocess.Augmenter
	if p.isTraining {
		aug = state.augmenter
	}

	return p.process.Process(ex, aug)
}

// prepare shards the files for this task and builds the sampler over them.
func (p *Processor) prepare(isTraining bool) (loader.Sampler, error) {
	p.isTraining = isTraining
	p.disableSharding = false
	if err := p.ShardFiles(isTraining); err != nil {
		return nil, err
	}

	if p.batchSize > p.numExamples/p.numTasks {
		p.logger.Warn("Dataset too small for the number of tasks and batch size, using duplicate data for activation workers",
			zap.Int("datasetSize", p.numExamples),
			zap.Int("numTasks", p.numTasks),
			zap.Int("batchSize", p.batchSize))
		p.disableSharding = true
		p.filesInThisTask = slices.Clone(p.allFiles)
	}

	if !p.shuffle {
		return loader.NewSequentialSampler(p), nil
	}

	samplerSeed := p.baseSeed
	if p.duplicateActWorkerData || p.disableSharding {
		seed := int64(p.taskID)
		if p.shuffleSeed != nil {
			seed = *p.shuffleSeed + int64(p.taskID)
		}
		rng := rand.New(rand.NewPCG(uint64(seed), 0))
		rng.Shuffle(len(p.filesInThisTask), func(i, j int) {
			p.filesInThisTask[i], p.filesInThisTask[j] = p.filesInThisTask[j], p.filesInThisTask[i]
		})
		samplerSeed = uint64(seed)
	}

	return loader.NewRandomSampler(p, samplerSeed), nil
}

// Plan describes how the dataset is split for this task without reading any example.
type Plan struct {
	NumExamples     int              `yaml:"num_examples"`
	NumTasks        int              `yaml:"num_tasks"`
	TaskID          int              `yaml:"task_id"`
	BatchSize       int              `yaml:"batch_size"`
	DisableSharding bool             `yaml:"disable_sharding"`
	FilesInThisTask []string         `yaml:"files_in_this_task"`
	Partitions      map[int][]string `yaml:"worker_partitions"`
}

// ShardPlan shards the dataset as CreateDataLoader would and reports the resulting assignment.
func (p *Processor) ShardPlan(isTraining bool) (*Plan, error) {
	if _, err := p.prepare(isTraining); err != nil {
		return nil, err
	}
	numWorkers := max(p.numWorkers, 1)

	return &Plan{
		NumExamples:     p.numExamples,
		NumTasks:        p.numTasks,
		TaskID:          p.taskID,
		BatchSize:       p.batchSize,
		DisableSharding: p.disableSharding,
		FilesInThisTask: slices.Clone(p.filesInThisTask),
		Partitions:      p.maybeShardDataset(numWorkers),
	}, nil
}

// CreateDataLoader shards the dataset and builds the loader that batches this task's examples.
func (p *Processor) CreateDataLoader(isTraining bool) (*loader.Loader, error) {
	sampler, err := p.prepare(isTraining)
	if err != nil {
		return nil, err
	}

	if p.useFastDataloader {
		p.logger.Info("Using FastDataLoader")
	}

	prefetchFactor := p.prefetchFactor
	persistentWorkers := p.persistentWorkers
	if p.numWorkers == 0 {
		prefetchFactor = 2
		persistentWorkers = false
	}

	l, err := loader.New(p, loader.Options{
		BatchSize:         p.batchSize,
		DropLast:          p.dropLast,
		NumWorkers:        p.numWorkers,
		PrefetchFactor:    prefetchFactor,
		PersistentWorkers: persistentWorkers,
		Fast:              p.useFastDataloader,
		Sampler:           sampler,
		WorkerInitFn:      p.WorkerInit,
		Logger:            p.logger,
	})
	if err != nil {
		return nil, err
	}

	// Workers never start without num_workers, so initialize the single in-process worker here.
	if p.numWorkers == 0 {
		if err := p.WorkerInit(0, 1); err != nil {
			return nil, err
		}
	}

	p.logger.Info("Data loader created",
		zap.Bool("isTraining", isTraining),
		zap.Int("numExamples", p.numExamples),
		zap.Int("filesInThisTask", len(p.filesInThisTask)),
		zap.Int("taskID", p.taskID),
		zap.Int("numTasks", p.numTasks),
		zap.Int("batchSize", p.batchSize),
		zap.Int("batches", l.Len()),
		zap.Bool("disableSharding", p.disableSharding),
		zap.Stringer("dtype", p.outputType))

	return l, nil
}
