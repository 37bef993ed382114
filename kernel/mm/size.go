package mm

// Size represents a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// HumanReadable splits s into a value and a binary unit suffix, using the
// largest unit that s covers at least once. The value is rounded up so a
// region is never reported smaller than it is.
func (s Size) HumanReadable() (uint64, string) {
	switch {
	case s >= Gb:
		return divCeil(s, Gb), "GiB"
	case s >= Mb:
		return divCeil(s, Mb), "MiB"
	case s >= Kb:
		return divCeil(s, Kb), "KiB"
	default:
		return uint64(s), "Byte"
	}
}

func divCeil(s, unit Size) uint64 {
	return uint64((s + unit - 1) / unit)
}
