package hdf5io

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-hdf5/hdf5"
)

// ErrShapeMismatch is returned when a stored image or label does not match the configured shape.
var ErrShapeMismatch = errors.New("shape mismatch")

// Example is one decoded image/label pair.
// Image is laid out HWC and Label HW, both row-major, as stored on disk.
type Example struct {
	Path  string
	Image []float32
	Label []float32
}

// ExampleReader loads a single example from a file path.
type ExampleReader interface {
	ReadExample(path string) (*Example, error)
}

// Reader reads examples stored one per HDF5 file under two datasets.
type Reader struct {
	imageKey string
	labelKey string
	height   int
	width    int
	channels int
}

var _ ExampleReader = (*Reader)(nil)

// NewReader creates a Reader that expects images of shape (height, width, channels).
func NewReader(imageKey, labelKey string, height, width, channels int) *Reader {
	return &Reader{
		imageKey: imageKey,
		labelKey: labelKey,
		height:   height,
		width:    width,
		channels: channels,
	}
}

// ReadExample opens path and reads its image and label datasets as float32.
func (r *Reader) ReadExample(path string) (*Example, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	image, err := readFloat32(f, r.imageKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if want := r.height * r.width * r.channels; len(image) != want {
		return nil, fmt.Errorf("%s: %w: image %q has %d elements, expected %d (%dx%dx%d)",
			path, ErrShapeMismatch, r.imageKey, len(image), want, r.height, r.width, r.channels)
	}

	label, err := readFloat32(f, r.labelKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if want := r.height * r.width; len(label) != want {
		return nil, fmt.Errorf("%s: %w: label %q has %d elements, expected %d (%dx%d)",
			path, ErrShapeMismatch, r.labelKey, len(label), want, r.height, r.width)
	}

	return &Example{Path: path, Image: image, Label: label}, nil
}

func readFloat32(f *hdf5.File, key string) ([]float32, error) {
	ds, err := f.Root().OpenDataset(key)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %q: %w", key, err)
	}
	values, err := ds.ReadFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %q: %w", key, err)
	}

	return values, nil
}
