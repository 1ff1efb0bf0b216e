package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Loss types understood by the label encoder.
const (
	LossBCE           = "bce"
	LossMultilabelBCE = "multilabel_bce"
	LossSSCE          = "ssce"
)

// Normalization methods understood by the preprocessor.
const (
	NormalizeNone          = ""
	NormalizeZeroCentered  = "zero_centered"
	NormalizeZeroOne       = "zero_one"
	NormalizeStandardScore = "standard_score"
)

// StringList accepts either a single YAML scalar or a sequence of scalars.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = StringList{node.Value}

		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list

		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}

// DatasetConfig stores the input parameters of the HDF5 data processor.
type DatasetConfig struct {
	DataDir             StringList `yaml:"data_dir" toml:"data_dir"`
	FilePattern         string     `yaml:"file_pattern" toml:"file_pattern"`
	ImageKey            string     `yaml:"image_key" toml:"image_key"`
	LabelKey            string     `yaml:"label_key" toml:"label_key"`
	NumClasses          int        `yaml:"num_classes" toml:"num_classes"`
	ImageShape          []int      `yaml:"image_shape" toml:"image_shape"` // H, W, C
	Loss                string     `yaml:"loss" toml:"loss"`
	NormalizeDataMethod string     `yaml:"normalize_data_method" toml:"normalize_data_method"`
	AugmentData         *bool      `yaml:"augment_data" toml:"augment_data"`

	BatchSize     int    `yaml:"batch_size" toml:"batch_size"`
	Shuffle       *bool  `yaml:"shuffle" toml:"shuffle"`
	ShuffleBuffer int    `yaml:"shuffle_buffer" toml:"shuffle_buffer"`
	ShuffleSeed   *int64 `yaml:"shuffle_seed" toml:"shuffle_seed"`

	NumWorkers        int   `yaml:"num_workers" toml:"num_workers"`
	DropLast          *bool `yaml:"drop_last" toml:"drop_last"`
	PrefetchFactor    int   `yaml:"prefetch_factor" toml:"prefetch_factor"`
	PersistentWorkers *bool `yaml:"persistent_workers" toml:"persistent_workers"`
	BufferSize        int   `yaml:"buffer_size" toml:"buffer_size"`

	MixedPrecision bool `yaml:"mixed_precision" toml:"mixed_precision"`
	UseBfloat16    bool `yaml:"use_bfloat16" toml:"use_bfloat16"`

	UseWorkerCache         bool   `yaml:"use_worker_cache" toml:"use_worker_cache"`
	WorkerCacheDir         string `yaml:"worker_cache_dir" toml:"worker_cache_dir"`
	UseFastDataloader      bool   `yaml:"use_fast_dataloader" toml:"use_fast_dataloader"`
	DuplicateActWorkerData bool   `yaml:"duplicate_act_worker_data" toml:"duplicate_act_worker_data"`
}

// StreamingConfig describes where this process sits in the streamer fleet.
type StreamingConfig struct {
	IsStreamer   bool `yaml:"is_streamer" toml:"is_streamer"`
	IsAppliance  bool `yaml:"is_appliance" toml:"is_appliance"`
	NumStreamers int  `yaml:"num_streamers" toml:"num_streamers"`
	Rank         int  `yaml:"rank" toml:"rank"`
}

// RunConfig controls the command line runner.
type RunConfig struct {
	Epochs     int   `yaml:"epochs" toml:"epochs"`
	IsTraining *bool `yaml:"is_training" toml:"is_training"`
}

// Config stores the application configuration.
type Config struct {
	Dataset   DatasetConfig   `yaml:"dataset" toml:"dataset"`
	Streaming StreamingConfig `yaml:"streaming" toml:"streaming"`
	Run       RunConfig       `yaml:"run" toml:"run"`
	LogLevel  string          `yaml:"log_level" toml:"log_level"`
}

// LoadConfig loads the configuration from the given file path, fills defaults and validates it.
// Files ending in .toml are parsed as TOML, everything else as YAML.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filePath, err)
	}

	return &cfg, nil
}

func boolPtr(v bool) *bool { return &v }

// ApplyDefaults fills every optional field that was left unset.
func (c *Config) ApplyDefaults() {
	d := &c.Dataset
	if d.FilePattern == "" {
		d.FilePattern = "*.h5"
	}
	if d.ImageKey == "" {
		d.ImageKey = "image"
	}
	if d.LabelKey == "" {
		d.LabelKey = "label"
	}
	if d.AugmentData == nil {
		d.AugmentData = boolPtr(true)
	}
	if d.Shuffle == nil {
		d.Shuffle = boolPtr(true)
	}
	if d.ShuffleBuffer <= 0 {
		d.ShuffleBuffer = 10 * d.BatchSize
	}
	if d.DropLast == nil {
		d.DropLast = boolPtr(true)
	}
	if d.PrefetchFactor <= 0 {
		d.PrefetchFactor = 10
	}
	if d.PersistentWorkers == nil {
		d.PersistentWorkers = boolPtr(true)
	}
	if d.BufferSize <= 0 {
		d.BufferSize = 64
	}
	if d.WorkerCacheDir == "" {
		d.WorkerCacheDir = filepath.Join(os.TempDir(), "unet-worker-cache")
	}

	if c.Streaming.NumStreamers <= 0 {
		c.Streaming.NumStreamers = 1
	}
	if c.Run.Epochs <= 0 {
		c.Run.Epochs = 1
	}
	if c.Run.IsTraining == nil {
		c.Run.IsTraining = boolPtr(true)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	d := c.Dataset
	var errs []error

	if len(d.DataDir) == 0 {
		errs = append(errs, errors.New("dataset.data_dir is required"))
	}
	if d.NumClasses < 1 {
		errs = append(errs, fmt.Errorf("dataset.num_classes must be >= 1, got %d", d.NumClasses))
	}
	if len(d.ImageShape) != 3 {
		errs = append(errs, fmt.Errorf("dataset.image_shape must have 3 entries (H, W, C), got %d", len(d.ImageShape)))
	} else {
		for i, v := range d.ImageShape {
			if v <= 0 {
				errs = append(errs, fmt.Errorf("dataset.image_shape[%d] must be positive, got %d", i, v))
			}
		}
	}
	switch d.Loss {
	case LossBCE, LossMultilabelBCE, LossSSCE:
	default:
		errs = append(errs, fmt.Errorf("dataset.loss %q is not one of bce, multilabel_bce, ssce", d.Loss))
	}
	switch d.NormalizeDataMethod {
	case NormalizeNone, NormalizeZeroCentered, NormalizeZeroOne, NormalizeStandardScore:
	default:
		errs = append(errs, fmt.Errorf("dataset.normalize_data_method %q is not supported", d.NormalizeDataMethod))
	}
	if d.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("dataset.batch_size must be >= 1, got %d", d.BatchSize))
	}
	if d.NumWorkers < 0 {
		errs = append(errs, fmt.Errorf("dataset.num_workers must be >= 0, got %d", d.NumWorkers))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	if c.Streaming.Rank < 0 || c.Streaming.Rank >= c.Streaming.NumStreamers {
		errs = append(errs, fmt.Errorf("streaming.rank %d out of range for %d streamers",
			c.Streaming.Rank, c.Streaming.NumStreamers))
	}

	return errors.Join(errs...)
}

// ImageHeight returns the target image height.
func (d DatasetConfig) ImageHeight() int { return d.ImageShape[0] }

// ImageWidth returns the target image width.
func (d DatasetConfig) ImageWidth() int { return d.ImageShape[1] }

// Channels returns the number of image channels.
func (d DatasetConfig) Channels() int { return d.ImageShape[2] }
