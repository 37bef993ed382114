//go:build linux || darwin || freebsd

package memtest

import "golang.org/x/sys/unix"

func mapRegion(size uintptr) ([]byte, error) {
	return unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

func unmapRegion(region []byte) error {
	return unix.Munmap(region)
}
