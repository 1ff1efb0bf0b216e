package preprocess

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Raikerian/go-unet-dataloader/internal/config"
	"github.com/Raikerian/go-unet-dataloader/internal/hdf5io"
	"github.com/Raikerian/go-unet-dataloader/pkg/tensor"
)

// ErrLabelOutOfRange is returned when a label value is not a valid class id.
var ErrLabelOutOfRange = errors.New("label out of range")

// Options configures a Pipeline.
type Options struct {
	Height, Width, Channels int
	NumClasses              int
	Loss                    string
	NormalizeDataMethod     string
	Augment                 bool
	OutputType              tensor.DType
}

// Pipeline turns decoded examples into model-ready tensors.
type Pipeline struct {
	opts Options
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Process copies ex, then augments (when aug is non-nil and augmentation is enabled), normalizes,
// transposes the image to CHW and encodes the label for the configured loss.
func (p *Pipeline) Process(ex *hdf5io.Example, aug *Augmenter) (image, label tensor.Tensor, err error) {
	o := p.opts
	img := slices.Clone(ex.Image)
	lbl := slices.Clone(ex.Label)

	if o.Augment && aug != nil {
		aug.Apply(img, lbl, o.Height, o.Width, o.Channels)
	}
	if err := Normalize(img, o.NormalizeDataMethod); err != nil {
		return tensor.Tensor{}, tensor.Tensor{}, err
	}

	image = tensor.Tensor{
		Shape: []int{o.Channels, o.Height, o.Width},
		DType: o.OutputType,
		Data:  ToCHW(img, o.Height, o.Width, o.Channels),
	}
	tensor.Round(o.OutputType, image.Data)

	label, err = EncodeLabel(lbl, o.Loss, o.NumClasses, o.Height, o.Width, o.OutputType)
	if err != nil {
		return tensor.Tensor{}, tensor.Tensor{}, fmt.Errorf("%s: %w", ex.Path, err)
	}

	return image, label, nil
}

// ToCHW transposes an HWC buffer into a new CHW buffer.
func ToCHW(x []float32, h, w, c int) []float32 {
	out := make([]float32, len(x))
	for y := 0; y < h; y++ {
		for xx := 0; xx < w; xx++ {
			for k := 0; k < c; k++ {
				out[k*h*w+y*w+xx] = x[(y*w+xx)*c+k]
			}
		}
	}

	return out
}

// EncodeLabel shapes a HW label for the loss:
// bce gives a (1,H,W) binary mask, multilabel_bce a (num_classes,H,W) one-hot,
// and ssce an (H,W) map of class ids.
func EncodeLabel(lbl []float32, loss string, numClasses, h, w int, floatType tensor.DType) (tensor.Tensor, error) {
	switch loss {
	case config.LossBCE:
		out := tensor.New(floatType, 1, h, w)
		for i, v := range lbl {
			if v > 0 {
				out.Data[i] = 1
			}
		}

		return out, nil
	case config.LossMultilabelBCE:
		out := tensor.New(floatType, numClasses, h, w)
		for i, v := range lbl {
			cls, err := classID(v, numClasses)
			if err != nil {
				return tensor.Tensor{}, err
			}
			out.Data[cls*h*w+i] = 1
		}

		return out, nil
	case config.LossSSCE:
		out := tensor.New(tensor.Int32, h, w)
		for i, v := range lbl {
			cls, err := classID(v, numClasses)
			if err != nil {
				return tensor.Tensor{}, err
			}
			out.Data[i] = float32(cls)
		}

		return out, nil
	default:
		return tensor.Tensor{}, fmt.Errorf("unsupported loss %q", loss)
	}
}

func classID(v float32, numClasses int) (int, error) {
	cls := int(v)
	if float32(cls) != v || cls < 0 || cls >= numClasses {
		return 0, fmt.Errorf("%w: %v not in [0, %d)", ErrLabelOutOfRange, v, numClasses)
	}

	return cls, nil
}
