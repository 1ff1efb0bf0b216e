// Package preprocess normalizes, augments and encodes UNet examples.
package preprocess

import (
	"fmt"
	"math"

	"github.com/Raikerian/go-unet-dataloader/internal/config"
)

// Normalize rescales x in place with the given method.
//
//	zero_centered:  x/127.5 - 1, mapping [0, 255] to [-1, 1]
//	zero_one:       x/255, mapping [0, 255] to [0, 1]
//	standard_score: (x - mean) / std over the whole image
func Normalize(x []float32, method string) error {
	switch method {
	case config.NormalizeNone:
	case config.NormalizeZeroCentered:
		for i, v := range x {
			x[i] = v/127.5 - 1
		}
	case config.NormalizeZeroOne:
		for i, v := range x {
			x[i] = v / 255
		}
	case config.NormalizeStandardScore:
		standardScore(x)
	default:
		return fmt.Errorf("unsupported normalize_data_method %q", method)
	}

	return nil
}

func standardScore(x []float32) {
	if len(x) == 0 {
		return
	}

	var sum float64
	for _, v := range x {
		sum += float64(v)
	}
	mean := sum / float64(len(x))

	var sq float64
	for _, v := range x {
		d := float64(v) - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(x)))

	for i, v := range x {
		d := float64(v) - mean
		if std > 0 {
			d /= std
		}
		x[i] = float32(d)
	}
}
