// Package testutil writes HDF5 fixtures for tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/stretchr/testify/require"
)

// WriteExample writes an HDF5 file holding image and label datasets and returns its path.
func WriteExample(t testing.TB, dir, name string, image, label []uint8) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := hdf5.Create(path)
	require.NoError(t, err)

	_, err = f.Root().CreateDataset("image", image)
	require.NoError(t, err)
	_, err = f.Root().CreateDataset("label", label)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	return path
}

// WriteDataset writes n examples of shape (h, w, c) named example-000.h5, example-001.h5, ...
// Every pixel of example i holds the value i (mod 256), labels alternate between 0 and 1.
func WriteDataset(t testing.TB, dir string, n, h, w, c int) []string {
	t.Helper()

	paths := make([]string, n)
	for i := range n {
		image := Fill(h*w*c, uint8(i%256))
		label := make([]uint8, h*w)
		for j := range label {
			label[j] = uint8(j % 2)
		}
		paths[i] = WriteExample(t, dir, fmt.Sprintf("example-%03d.h5", i), image, label)
	}

	return paths
}

// Fill returns a slice of n copies of v.
func Fill(n int, v uint8) []uint8 {
	out := make([]uint8, n)
	for i := range out {
		out[i] = v
	}

	return out
}
