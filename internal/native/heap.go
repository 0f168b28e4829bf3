package native

import (
	"fmt"
	"slices"
)

const (
	heapAlign    = 8
	heapReserved = heapAlign // address 0 is never handed out
	pageSize     = 64 * 1024
)

type span struct {
	start, size uint32
}

// heap is a first-fit allocator over a growable byte slice.
type heap struct {
	mem   []byte
	spans []span // allocated, sorted by start
}

func newHeap() *heap {
	return &heap{mem: make([]byte, pageSize)}
}

func (h *heap) malloc(size uint32) uint32 {
	if size == 0 {
		size = 1
	}
	size = (size + heapAlign - 1) &^ (heapAlign - 1)

	start := uint32(heapReserved)
	at := len(h.spans)
	for i, s := range h.spans {
		if s.start-start >= size {
			at = i
			break
		}
		start = s.start + s.size
	}
	for uint64(start)+uint64(size) > uint64(len(h.mem)) {
		h.mem = append(h.mem, make([]byte, pageSize)...)
	}
	h.spans = slices.Insert(h.spans, at, span{start: start, size: size})
	return start
}

func (h *heap) free(ptr uint32) error {
	i, found := slices.BinarySearchFunc(h.spans, ptr, func(s span, p uint32) int {
		return int(int64(s.start) - int64(p))
	})
	if !found {
		return fmt.Errorf("%w: %#x", ErrInvalidFree, ptr)
	}
	h.spans = slices.Delete(h.spans, i, i+1)
	return nil
}

func (h *heap) live() int {
	return len(h.spans)
}

func (h *heap) Read(ptr, n uint32) ([]byte, error) {
	if uint64(ptr)+uint64(n) > uint64(len(h.mem)) {
		return nil, fmt.Errorf("%w: read %d bytes at %#x", ErrOutOfBounds, n, ptr)
	}
	return slices.Clone(h.mem[ptr : ptr+n]), nil
}

func (h *heap) Write(ptr uint32, b []byte) error {
	if uint64(ptr)+uint64(len(b)) > uint64(len(h.mem)) {
		return fmt.Errorf("%w: write %d bytes at %#x", ErrOutOfBounds, len(b), ptr)
	}
	copy(h.mem[ptr:], b)
	return nil
}
