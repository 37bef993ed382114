//go:build linux || darwin || freebsd

package main

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
	"pikernel/kernel/mm"
)

// tableStorage is an anonymous mapping holding translation tables. The
// mapping is over-allocated so that the tables can start on a translation
// granule boundary regardless of the host page size.
type tableStorage struct {
	mapping []byte
	tables  []byte
}

func allocStorage(size uintptr) (*tableStorage, error) {
	mapping, err := unix.Mmap(-1,
		0,
		int(size+mm.PageSize),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap %d bytes of table storage: %w", size, err)
	}

	base := uintptr(unsafe.Pointer(&mapping[0]))
	offset := ((base + mm.PageSize - 1) &^ (mm.PageSize - 1)) - base

	return &tableStorage{
		mapping: mapping,
		tables:  mapping[offset : offset+size],
	}, nil
}

// addr returns the granule-aligned address of the tables.
func (s *tableStorage) addr() uintptr {
	return uintptr(unsafe.Pointer(&s.tables[0]))
}

// bytes returns the raw contents of the tables.
func (s *tableStorage) bytes() []byte {
	return s.tables
}

func (s *tableStorage) release() error {
	s.tables = nil
	return unix.Munmap(s.mapping)
}
