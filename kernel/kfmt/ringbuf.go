package kfmt

import "io"

// ringBufferSize defines the size of the ring buffer that captures Printf
// output emitted before the UART driver attaches an output sink. It must be
// large enough to hold the boot banner and the translation listing printed
// while the MMU is brought up. The size must always be a power of 2.
const ringBufferSize = 4096

// ringBuffer is a fixed-size byte FIFO that overwrites its oldest contents
// when full.
type ringBuffer struct {
	buffer         [ringBufferSize]byte
	rIndex, wIndex int
}

// Len returns the number of unread bytes in the buffer.
func (rb *ringBuffer) Len() int {
	return (rb.wIndex - rb.rIndex) & (ringBufferSize - 1)
}

// Write writes len(p) bytes from p to the ringBuffer, discarding the oldest
// unread bytes if there is not enough room.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[rb.wIndex] = b
		rb.wIndex = (rb.wIndex + 1) & (ringBufferSize - 1)
		if rb.rIndex == rb.wIndex {
			rb.rIndex = (rb.rIndex + 1) & (ringBufferSize - 1)
		}
	}

	return len(p), nil
}

// Read reads up to len(p) bytes into p. It returns the number of bytes read
// (0 <= n <= len(p)) and io.EOF once the buffer has been drained.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.rIndex == rb.wIndex {
		return 0, io.EOF
	}

	// Only the contiguous chunk up to the write index or the end of the
	// backing array is returned; callers loop for the remainder.
	chunkEnd := rb.wIndex
	if rb.rIndex > rb.wIndex {
		chunkEnd = ringBufferSize
	}

	n := copy(p, rb.buffer[rb.rIndex:chunkEnd])
	rb.rIndex = (rb.rIndex + n) & (ringBufferSize - 1)
	return n, nil
}
