package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"pikernel/kernel/mm"
	"pikernel/kernel/mm/vmm"
)

// Bounds of the sample kernel image used with the built-in layout. They match
// the load address used by the Raspberry Pi firmware for 64-bit kernels.
const (
	sampleCodeStart = 0x8_0000
	sampleCodeEnd   = 0x10_0000
)

// layoutFile is the TOML representation of an address space.
type layoutFile struct {
	MaxVirtAddr uint64         `toml:"max_virt_addr"`
	Regions     []regionConfig `toml:"region"`
}

// regionConfig describes a single translation descriptor. Regions are
// matched in file order.
type regionConfig struct {
	Label        string  `toml:"label"`
	Start        uint64  `toml:"start"`
	End          uint64  `toml:"end"`
	Memory       string  `toml:"memory"`
	Access       string  `toml:"access"`
	ExecuteNever bool    `toml:"execute_never"`
	RelocateTo   *uint64 `toml:"relocate_to"`
}

// loadAddressSpace builds the address space described by the layout file at
// path, or the kernel layout with a sample image if path is empty.
func loadAddressSpace(path string) (*vmm.AddressSpace, error) {
	if path == "" {
		if err := vmm.SetKernelImage(sampleCodeStart, sampleCodeEnd); err != nil {
			return nil, err
		}
		logrus.Debugf("Using kernel layout with sample image [0x%x, 0x%x)", sampleCodeStart, sampleCodeEnd)
		return vmm.KernelAddressSpace(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout %s: %w", path, err)
	}

	lf, err := decodeLayout(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode layout %s: %w", path, err)
	}

	return lf.addressSpace()
}

// decodeLayout parses a TOML layout. Unknown keys are rejected so that typos
// do not silently change the attributes of a region.
func decodeLayout(data string) (*layoutFile, error) {
	var lf layoutFile
	md, err := toml.Decode(data, &lf)
	if err != nil {
		return nil, err
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	return &lf, nil
}

// addressSpace validates the layout and converts it to a vmm.AddressSpace.
func (lf *layoutFile) addressSpace() (*vmm.AddressSpace, error) {
	if lf.MaxVirtAddr == 0 {
		return nil, errors.New("max_virt_addr must be set")
	}
	if len(lf.Regions) == 0 {
		return nil, errors.New("at least one region is required")
	}

	space := &vmm.AddressSpace{MaxVirtAddr: uintptr(lf.MaxVirtAddr)}
	for index, rc := range lf.Regions {
		td, err := rc.descriptor(lf.MaxVirtAddr)
		if err != nil {
			return nil, fmt.Errorf("region %d (%q): %w", index, rc.Label, err)
		}
		space.Descriptors = append(space.Descriptors, td)
	}

	checkCoverage(space)
	return space, nil
}

func (rc *regionConfig) descriptor(maxVirtAddr uint64) (vmm.TranslationDescriptor, error) {
	var td vmm.TranslationDescriptor

	if rc.Label == "" {
		return td, errors.New("label must be set")
	}
	if rc.Start > rc.End {
		return td, fmt.Errorf("start 0x%x is above end 0x%x", rc.Start, rc.End)
	}
	if rc.End > maxVirtAddr {
		return td, fmt.Errorf("end 0x%x is above max_virt_addr 0x%x", rc.End, maxVirtAddr)
	}

	// Tables hold one descriptor per granule, so a region sharing a granule
	// with another would silently lose part of its attributes.
	r := vmm.VirtualRange{Start: uintptr(rc.Start), End: uintptr(rc.End)}
	if !r.GranuleAligned() {
		return td, fmt.Errorf("range 0x%x-0x%x does not start and end on a %d KiB granule boundary", rc.Start, rc.End, mm.PageSize>>10)
	}

	memory, err := parseMemoryType(rc.Memory)
	if err != nil {
		return td, err
	}
	access, err := parseAccess(rc.Access)
	if err != nil {
		return td, err
	}

	td.Label = rc.Label
	td.Range = vmm.FixedRange(r.Start, r.End)
	td.Attributes = vmm.AttributeFields{Memory: memory, Access: access, ExecuteNever: rc.ExecuteNever}

	if rc.RelocateTo != nil {
		if !mm.PageAligned(uintptr(*rc.RelocateTo)) {
			return td, fmt.Errorf("relocate_to 0x%x is not aligned to the translation granule", *rc.RelocateTo)
		}
		td.Relocation = vmm.RelocateTo(uintptr(*rc.RelocateTo))
	}

	return td, nil
}

func parseMemoryType(s string) (vmm.MemoryType, error) {
	switch strings.ToLower(s) {
	case "normal", "":
		return vmm.MemoryNormal, nil
	case "device":
		return vmm.MemoryDevice, nil
	default:
		return 0, fmt.Errorf("unknown memory type %q (expected normal or device)", s)
	}
}

func parseAccess(s string) (vmm.AccessPermission, error) {
	switch strings.ToLower(s) {
	case "ro", "":
		return vmm.AccessReadOnly, nil
	case "rw":
		return vmm.AccessReadWrite, nil
	default:
		return 0, fmt.Errorf("unknown access permission %q (expected ro or rw)", s)
	}
}

// checkCoverage reports overlapping regions and warns when no region spans
// the entire address space. Such layouts are still accepted; unmapped
// addresses make the table build fail.
func checkCoverage(space *vmm.AddressSpace) {
	whole := vmm.VirtualRange{Start: 0, End: space.MaxVirtAddr}
	covered := false

	for i := range space.Descriptors {
		r := space.Descriptors[i].Range()
		if r == whole {
			covered = true
		}

		for j := 0; j < i; j++ {
			if other := space.Descriptors[j].Range(); other.Overlaps(r) {
				logrus.Debugf("Region %q overlaps %q; %q takes precedence", space.Descriptors[i].Label, space.Descriptors[j].Label, space.Descriptors[j].Label)
			}
		}
	}

	if !covered {
		logrus.Warnf("No region covers [0x0, 0x%x]; unmapped addresses will fail the table build", space.MaxVirtAddr)
	}
}
