package hdf5io

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Buffer holds the LRU cache of decoded examples for one loader worker.
// Cached examples are shared; callers must copy before modifying Image or Label.
type Buffer struct {
	*lru.Cache[string, *Example]
	reader ExampleReader
	size   int
}

var _ ExampleReader = (*Buffer)(nil)

// NewBuffer creates a Buffer holding at most size examples in front of reader.
func NewBuffer(reader ExampleReader, size int) *Buffer {
	lruCache, err := lru.New[string, *Example](size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}

	return &Buffer{
		Cache:  lruCache,
		reader: reader,
		size:   size,
	}
}

// ReadExample returns the buffered example for path, reading it on a miss.
func (b *Buffer) ReadExample(path string) (*Example, error) {
	if ex, ok := b.Cache.Get(path); ok {
		return ex, nil
	}

	ex, err := b.reader.ReadExample(path)
	if err != nil {
		return nil, err
	}
	b.Cache.Add(path, ex)

	return ex, nil
}

// Load fills the buffer with the leading files of a worker partition, stopping once it is full.
func (b *Buffer) Load(paths []string) error {
	for i, p := range paths {
		if i >= b.size {
			break
		}
		if _, err := b.ReadExample(p); err != nil {
			return err
		}
	}

	return nil
}
