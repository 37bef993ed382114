// Package memtest provides memory for tests that hand raw addresses to kernel
// code. Kernel code turns uintptr values back into pointers; under the race
// detector checkptr only tolerates that for memory the Go runtime does not
// manage, so regions handed out here never come from the Go heap, a stack or
// the data segment on hosts that support anonymous mappings.
package memtest

import (
	"pikernel/kernel/mm"
	"testing"
	"unsafe"
)

// Alloc returns a zeroed region of size bytes that starts on a translation
// granule boundary. The region is released once tb and its subtests finish.
func Alloc(tb testing.TB, size uintptr) []byte {
	tb.Helper()

	mapping, err := mapRegion(size + mm.PageSize)
	if err != nil {
		tb.Fatalf("failed to allocate %d bytes of test memory: %v", size, err)
	}
	tb.Cleanup(func() {
		if err := unmapRegion(mapping); err != nil {
			tb.Errorf("failed to release test memory: %v", err)
		}
	})

	base := Addr(mapping)
	offset := ((base + mm.PageSize - 1) &^ (mm.PageSize - 1)) - base
	return mapping[offset : offset+size : offset+size]
}

// Addr returns the address of the first byte of region.
func Addr(region []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(region)))
}
