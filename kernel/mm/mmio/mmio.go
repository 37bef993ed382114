// Package mmio provides access to memory-mapped device registers.
//
// Accesses go through sync/atomic so that the compiler neither elides nor
// merges them; every call results in exactly one 32-bit load or store.
package mmio

import (
	"sync/atomic"
	"unsafe"
)

// Read returns the 32-bit register value at addr.
func Read(addr uintptr) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(addr)))
}

// Write stores val to the 32-bit register at addr.
func Write(addr uintptr, val uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(addr)), val)
}

// ReadBits reads the register at addr and returns the width-bit field that
// starts at bit offset.
func ReadBits(addr uintptr, offset, width uint) uint32 {
	return Field(Read(addr), offset, width)
}

// Field extracts the width-bit field starting at bit offset from val.
func Field(val uint32, offset, width uint) uint32 {
	if width >= 32 {
		return val >> offset
	}
	return (val >> offset) & (1<<width - 1)
}
