package vmm

import (
	"io"
	"pikernel/kernel"
	"pikernel/kernel/kfmt"
	"pikernel/kernel/mm"
)

var (
	// ErrAddressOutOfRange is returned when resolving a virtual address
	// above the last address of an address space.
	ErrAddressOutOfRange = &kernel.Error{Module: "vmm", Message: "virtual address exceeds the address space"}

	// ErrAddressUnmapped is returned when no translation descriptor covers
	// a virtual address. This can only happen if the catch-all descriptor
	// of an address space does not span all of it.
	ErrAddressUnmapped = &kernel.Error{Module: "vmm", Message: "virtual address not covered by any translation descriptor"}
)

// MemoryType selects the memory attributes of a mapping.
type MemoryType uint8

const (
	// MemoryNormal is write-back cacheable DRAM.
	MemoryNormal MemoryType = iota

	// MemoryDevice is non-cacheable, non-gathering, non-reordering memory
	// used for peripheral registers.
	MemoryDevice
)

// String returns the short tag used when printing translation descriptors.
func (mt MemoryType) String() string {
	if mt == MemoryDevice {
		return "Dev"
	}
	return "RAM"
}

// AccessPermission controls whether a mapping can be written to. Mappings
// are only ever accessible from EL1.
type AccessPermission uint8

const (
	// AccessReadOnly allows reads only.
	AccessReadOnly AccessPermission = iota

	// AccessReadWrite allows both reads and writes.
	AccessReadWrite
)

// String returns the short tag used when printing translation descriptors.
func (ap AccessPermission) String() string {
	if ap == AccessReadWrite {
		return "RW"
	}
	return "RO"
}

// AttributeFields describes the memory type and permissions of a mapping.
type AttributeFields struct {
	Memory MemoryType
	Access AccessPermission

	// ExecuteNever prevents instruction fetches from the mapping at EL1.
	// Fetches from EL0 are never allowed.
	ExecuteNever bool
}

// ExecuteString returns "PXN" for execute-never mappings and "PX" otherwise.
func (af AttributeFields) ExecuteString() string {
	if af.ExecuteNever {
		return "PXN"
	}
	return "PX"
}

// VirtualRange is an inclusive range of virtual addresses.
type VirtualRange struct {
	Start uintptr
	End   uintptr
}

// Contains returns true if addr lies inside the range.
func (r VirtualRange) Contains(addr uintptr) bool {
	return addr >= r.Start && addr <= r.End
}

// Overlaps returns true if the two ranges share at least one address.
func (r VirtualRange) Overlaps(other VirtualRange) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// Size returns the number of bytes covered by the range. A range spanning
// the entire 64-bit address space reports a size of 0.
func (r VirtualRange) Size() mm.Size {
	return mm.Size(r.End - r.Start + 1)
}

// GranuleAligned returns true if the range is made up of whole pages: it
// starts on a granule boundary and ends on the last byte of a granule.
func (r VirtualRange) GranuleAligned() bool {
	return mm.PageAligned(r.Start) && mm.PageAligned(r.End+1)
}

// RangeFn computes a virtual range on demand. Ranges that depend on
// link-time addresses are only known once the kernel image has been placed.
type RangeFn func() VirtualRange

// FixedRange returns a RangeFn for a range known in advance. The returned
// closure is heap-allocated, so it must not be used before the Go allocator
// is available; static kernel layouts use function literals instead.
func FixedRange(start, end uintptr) RangeFn {
	return func() VirtualRange {
		return VirtualRange{Start: start, End: end}
	}
}

// Relocation optionally moves the physical output of a translation
// descriptor. The zero value describes an identity mapping.
type Relocation struct {
	// Base is the physical address the start of the range maps to.
	Base uintptr

	// Enabled is set when Base should be used.
	Enabled bool
}

// RelocateTo returns a Relocation that maps the start of a range to base.
func RelocateTo(base uintptr) Relocation {
	return Relocation{Base: base, Enabled: true}
}

// TranslationDescriptor describes a named region of the virtual address
// space together with the attributes used to map it.
type TranslationDescriptor struct {
	Label      string
	Range      RangeFn
	Attributes AttributeFields
	Relocation Relocation
}

// outputAddress returns the physical address that virtAddr (which must lie
// inside r) maps to.
func (td *TranslationDescriptor) outputAddress(r VirtualRange, virtAddr uintptr) uintptr {
	if !td.Relocation.Enabled {
		return virtAddr
	}
	return td.Relocation.Base + (virtAddr - r.Start)
}

// AddressSpace is an ordered list of translation descriptors covering the
// virtual addresses [0, MaxVirtAddr].
//
// Descriptors may overlap; lookups return the first descriptor (in list
// order) whose range contains an address. This allows a small override, such
// as a relocated device window, to sit inside a broad default range. By
// convention the last descriptor covers [0, MaxVirtAddr] so that every
// address in the space resolves to something.
type AddressSpace struct {
	MaxVirtAddr uintptr
	Descriptors []TranslationDescriptor
}

// Size returns the number of bytes covered by the address space.
func (as *AddressSpace) Size() uint64 {
	return uint64(as.MaxVirtAddr) + 1
}

// Lookup returns the first descriptor whose range contains virtAddr.
func (as *AddressSpace) Lookup(virtAddr uintptr) (*TranslationDescriptor, *kernel.Error) {
	if virtAddr > as.MaxVirtAddr {
		return nil, ErrAddressOutOfRange
	}

	for index := range as.Descriptors {
		if as.Descriptors[index].Range().Contains(virtAddr) {
			return &as.Descriptors[index], nil
		}
	}

	return nil, ErrAddressUnmapped
}

// Resolve returns the physical address that virtAddr translates to and the
// attributes of the mapping.
func (as *AddressSpace) Resolve(virtAddr uintptr) (uintptr, AttributeFields, *kernel.Error) {
	td, err := as.Lookup(virtAddr)
	if err != nil {
		return 0, AttributeFields{}, err
	}

	return td.outputAddress(td.Range(), virtAddr), td.Attributes, nil
}

// Print writes a line for each translation descriptor to w, in lookup order.
// Each line holds the left aligned label, the inclusive virtual range, its
// size and the memory type, access and execute attributes. Relocation targets
// are not shown.
func (as *AddressSpace) Print(w io.Writer) {
	for index := range as.Descriptors {
		var (
			td         = &as.Descriptors[index]
			r          = td.Range()
			size, unit = r.Size().HumanReadable()
		)

		kfmt.Fprintf(w, "%-28s: 0x%8X - 0x%8X | %3d %s | %s %s %s\n",
			td.Label, r.Start, r.End, size, unit,
			td.Attributes.Memory.String(), td.Attributes.Access.String(), td.Attributes.ExecuteString(),
		)
	}
}
