package preprocess

import (
	"math/rand/v2"
)

// Augmenter applies random flips jointly to an image and its label.
// It is not safe for concurrent use; each loader worker owns one.
type Augmenter struct {
	rng *rand.Rand
}

// NewAugmenter creates an Augmenter whose flips are fully determined by seed.
func NewAugmenter(seed uint64) *Augmenter {
	return &Augmenter{rng: rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))}
}

// Apply flips image (HWC) and label (HW) horizontally and vertically, each with probability 1/2.
func (a *Augmenter) Apply(image, label []float32, h, w, c int) {
	if a.rng.IntN(2) == 1 {
		FlipHorizontal(image, h, w, c)
		FlipHorizontal(label, h, w, 1)
	}
	if a.rng.IntN(2) == 1 {
		FlipVertical(image, h, w, c)
		FlipVertical(label, h, w, 1)
	}
}

// FlipHorizontal mirrors an HWC buffer left to right in place.
func FlipHorizontal(x []float32, h, w, c int) {
	for y := 0; y < h; y++ {
		row := x[y*w*c : (y+1)*w*c]
		for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
			for k := 0; k < c; k++ {
				row[l*c+k], row[r*c+k] = row[r*c+k], row[l*c+k]
			}
		}
	}
}

// FlipVertical mirrors an HWC buffer top to bottom in place.
func FlipVertical(x []float32, h, w, c int) {
	stride := w * c
	for t, b := 0, h-1; t < b; t, b = t+1, b-1 {
		top := x[t*stride : (t+1)*stride]
		bot := x[b*stride : (b+1)*stride]
		for i := range top {
			top[i], bot[i] = bot[i], top[i]
		}
	}
}
