package vmm

import (
	"pikernel/kernel"
	"pikernel/kernel/kfmt"
	"pikernel/kernel/mm"
)

const (
	// KernelTableBlocks is the number of level 2 entries needed to cover
	// the kernel address space.
	KernelTableBlocks = int((mm.MaxVirtAddr + 1) >> mm.BlockShift)

	// KernelTablesSize is the size of the granule-aligned region that the
	// linker script must reserve for the kernel translation tables.
	KernelTablesSize = uintptr(KernelTableBlocks)*mm.TableSize + uintptr(KernelTableBlocks)<<mm.PointerShift
)

var (
	// ErrMisalignedKernelImage is returned when the kernel code bounds are
	// not granule aligned or describe an empty range. Tables are built with
	// one descriptor per granule so a shared page would inherit the
	// attributes of whichever region its first byte belongs to.
	ErrMisalignedKernelImage = &kernel.Error{Module: "vmm", Message: "kernel code bounds must be non-empty and granule aligned"}

	// Bounds of the kernel code and read-only data; set from link-time
	// symbols before the tables are built.
	kernelCodeStart, kernelCodeEnd uintptr

	// kernelAddressSpace describes the kernel's virtual memory layout on
	// the Raspberry Pi 4. All mappings are identity mappings except for a
	// window that aliases the GPIO block into low memory.
	kernelAddressSpace = AddressSpace{
		MaxVirtAddr: mm.MaxVirtAddr,
		Descriptors: []TranslationDescriptor{
			{
				Label: "Kernel code and RO data",
				Range: func() VirtualRange {
					return VirtualRange{Start: kernelCodeStart, End: kernelCodeEnd - 1}
				},
				Attributes: AttributeFields{Memory: MemoryNormal, Access: AccessReadOnly},
			},
			{
				Label: "Device MMIO",
				Range: func() VirtualRange {
					return VirtualRange{Start: mm.MMIOStart, End: mm.MMIOEnd}
				},
				Attributes: AttributeFields{Memory: MemoryDevice, Access: AccessReadWrite, ExecuteNever: true},
			},
			{
				Label: "Remapped MMIO",
				Range: func() VirtualRange {
					return VirtualRange{Start: remappedMMIOStart, End: remappedMMIOEnd}
				},
				Attributes: AttributeFields{Memory: MemoryDevice, Access: AccessReadWrite, ExecuteNever: true},
				Relocation: Relocation{Base: mm.GPIOStart, Enabled: true},
			},
			{
				Label: "Other memory",
				Range: func() VirtualRange {
					return VirtualRange{Start: 0, End: mm.MaxVirtAddr}
				},
				Attributes: AttributeFields{Memory: MemoryNormal, Access: AccessReadWrite, ExecuteNever: true},
			},
		},
	}

	kernelTables TranslationTables
	kernelMMU    MMU

	// layoutWriter logs each translation as an info line, indented under
	// the line that introduces the list.
	layoutWriter = kfmt.PrefixWriter{Prefix: []byte("[info]     ")}
)

const (
	// The last granule below 512MiB aliases the GPIO block.
	remappedMMIOStart = uintptr(0x1FFF_0000)
	remappedMMIOEnd   = uintptr(0x1FFF_FFFF)
)

// SetKernelImage records the bounds of the kernel code and read-only data.
// codeEnd is exclusive.
func SetKernelImage(codeStart, codeEnd uintptr) *kernel.Error {
	if codeEnd <= codeStart || codeEnd-1 > mm.MaxVirtAddr {
		return ErrMisalignedKernelImage
	}
	if code := (VirtualRange{Start: codeStart, End: codeEnd - 1}); !code.GranuleAligned() {
		return ErrMisalignedKernelImage
	}

	kernelCodeStart, kernelCodeEnd = codeStart, codeEnd
	return nil
}

// KernelAddressSpace returns the kernel's virtual memory layout. The range of
// the kernel code descriptor reflects the last successful SetKernelImage call.
func KernelAddressSpace() *AddressSpace {
	return &kernelAddressSpace
}

// Init builds the kernel translation tables in the KernelTablesSize bytes
// reserved at tablesBase and enables the MMU. The tables are identity mapped,
// so tablesBase is both their storage and physical address.
func Init(codeStart, codeEnd, tablesBase uintptr) *kernel.Error {
	if err := SetKernelImage(codeStart, codeEnd); err != nil {
		return err
	}

	if err := kernelTables.Init(tablesBase, tablesBase, KernelTableBlocks); err != nil {
		return err
	}

	kernelMMU.Init(&kernelAddressSpace, &kernelTables)
	if err := kernelMMU.Enable(); err != nil {
		return err
	}

	kfmt.Infof("MMU Translations:")
	layoutWriter.Sink = kfmt.Writer()
	kernelAddressSpace.Print(&layoutWriter)
	return nil
}
