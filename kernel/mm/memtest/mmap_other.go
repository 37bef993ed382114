//go:build !linux && !darwin && !freebsd

package memtest

// Without anonymous mappings the region comes from the Go heap, which is fine
// unless checkptr is enabled.
func mapRegion(size uintptr) ([]byte, error) {
	return make([]byte, size), nil
}

func unmapRegion([]byte) error {
	return nil
}
