// Package streaming describes the position of this process in the streamer fleet.
package streaming

import (
	"fmt"
	"os"
	"strconv"

	"github.com/Raikerian/go-unet-dataloader/internal/config"
)

// Environment variables that override the streaming section of the config.
const (
	EnvIsStreamer    = "UNET_IS_STREAMER"
	EnvIsAppliance   = "UNET_IS_APPLIANCE"
	EnvNumStreamers  = "UNET_NUM_STREAMERS"
	EnvStreamingRank = "UNET_STREAMING_RANK"
)

// Topology reports the streamer count and rank of the current process.
type Topology interface {
	IsStreamer() bool
	IsAppliance() bool
	NumStreamers() int
	StreamingRank() int
}

// NumTasks is the size of the task dimension: the streamer count when running as a streamer, else 1.
func NumTasks(t Topology) int {
	if t.IsStreamer() {
		return t.NumStreamers()
	}

	return 1
}

// TaskID is the rank of this process in the task dimension.
func TaskID(t Topology) int {
	if t.IsStreamer() {
		return t.StreamingRank()
	}

	return 0
}

// StaticTopology is a Topology fixed at construction time.
type StaticTopology struct {
	Streamer  bool
	Appliance bool
	Streamers int
	Rank      int
}

var _ Topology = (*StaticTopology)(nil)

func (s *StaticTopology) IsStreamer() bool   { return s.Streamer }
func (s *StaticTopology) IsAppliance() bool  { return s.Appliance }
func (s *StaticTopology) NumStreamers() int  { return s.Streamers }
func (s *StaticTopology) StreamingRank() int { return s.Rank }

// NewStaticTopology builds a topology from the config and the UNET_* environment overrides.
func NewStaticTopology(cfg *config.Config) (*StaticTopology, error) {
	t := &StaticTopology{
		Streamer:  cfg.Streaming.IsStreamer,
		Appliance: cfg.Streaming.IsAppliance,
		Streamers: cfg.Streaming.NumStreamers,
		Rank:      cfg.Streaming.Rank,
	}

	if err := overrideBool(EnvIsStreamer, &t.Streamer); err != nil {
		return nil, err
	}
	if err := overrideBool(EnvIsAppliance, &t.Appliance); err != nil {
		return nil, err
	}
	if err := overrideInt(EnvNumStreamers, &t.Streamers); err != nil {
		return nil, err
	}
	if err := overrideInt(EnvStreamingRank, &t.Rank); err != nil {
		return nil, err
	}

	if t.Streamers < 1 {
		return nil, fmt.Errorf("number of streamers must be >= 1, got %d", t.Streamers)
	}
	if t.Rank < 0 || t.Rank >= t.Streamers {
		return nil, fmt.Errorf("streaming rank %d out of range [0, %d)", t.Rank, t.Streamers)
	}

	return t, nil
}

func overrideBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = b

	return nil
}

func overrideInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	*dst = n

	return nil
}

// StreamingBatchSize splits the global batch size across streamers, rounding up.
func StreamingBatchSize(t Topology, batchSize int) int {
	n := NumTasks(t)
	if n <= 1 {
		return batchSize
	}
	per := (batchSize + n - 1) / n
	if per < 1 {
		per = 1
	}

	return per
}
