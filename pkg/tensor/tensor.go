// Package tensor provides the dense float tensors handed to the training loop.
package tensor

import (
	"fmt"
	"math"
	"slices"

	"github.com/x448/float16"
)

// DType is the element type a consumer should interpret Data as.
// Data is always held as float32; half types are rounded to their precision.
type DType int

const (
	Float32 DType = iota
	Float16
	BFloat16
	Int32
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	case Int32:
		return "int32"
	default:
		return fmt.Sprintf("DType(%d)", int(d))
	}
}

// Tensor is a row-major dense tensor.
type Tensor struct {
	Shape []int
	DType DType
	Data  []float32
}

// New allocates a zeroed tensor.
func New(dtype DType, shape ...int) Tensor {
	return Tensor{Shape: slices.Clone(shape), DType: dtype, Data: make([]float32, NumElements(shape))}
}

// NumElements is the product of shape.
func NumElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}

	return n
}

// Len returns the number of elements.
func (t Tensor) Len() int { return len(t.Data) }

// Stack joins same-shaped tensors along a new leading dimension.
func Stack(ts []Tensor) (Tensor, error) {
	if len(ts) == 0 {
		return Tensor{}, fmt.Errorf("stack of zero tensors")
	}
	first := ts[0]
	out := New(first.DType, append([]int{len(ts)}, first.Shape...)...)
	size := first.Len()
	for i, t := range ts {
		if !slices.Equal(t.Shape, first.Shape) || t.DType != first.DType {
			return Tensor{}, fmt.Errorf("tensor %d has shape %v %s, expected %v %s",
				i, t.Shape, t.DType, first.Shape, first.DType)
		}
		copy(out.Data[i*size:(i+1)*size], t.Data)
	}

	return out, nil
}

// Round rounds every value in x to the precision of dtype in place.
func Round(dtype DType, x []float32) {
	switch dtype {
	case Float16:
		for i, v := range x {
			x[i] = float16.Fromfloat32(v).Float32()
		}
	case BFloat16:
		for i, v := range x {
			x[i] = roundBFloat16(v)
		}
	}
}

// roundBFloat16 keeps the top 16 bits of v, rounding to nearest even.
func roundBFloat16(v float32) float32 {
	if math.IsNaN(float64(v)) {
		return v
	}
	bits := math.Float32bits(v)
	bits += 0x7FFF + ((bits >> 16) & 1)

	return math.Float32frombits(bits & 0xFFFF0000)
}
