//go:build !(linux || darwin || freebsd)

package main

import (
	"unsafe"

	"pikernel/kernel/mm"
)

// tableStorage holds translation tables in a granule-aligned window of a Go
// allocated buffer on hosts without anonymous mmap support.
type tableStorage struct {
	buf    []byte
	tables []byte
}

func allocStorage(size uintptr) (*tableStorage, error) {
	buf := make([]byte, size+mm.PageSize)
	base := uintptr(unsafe.Pointer(&buf[0]))
	offset := ((base + mm.PageSize - 1) &^ (mm.PageSize - 1)) - base

	return &tableStorage{buf: buf, tables: buf[offset : offset+size]}, nil
}

func (s *tableStorage) addr() uintptr {
	return uintptr(unsafe.Pointer(&s.tables[0]))
}

func (s *tableStorage) bytes() []byte {
	return s.tables
}

func (s *tableStorage) release() error {
	s.buf, s.tables = nil, nil
	return nil
}
