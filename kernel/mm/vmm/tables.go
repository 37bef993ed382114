package vmm

import (
	"pikernel/kernel"
	"pikernel/kernel/mm"
	"unsafe"
)

var (
	// ErrMisalignedTables is returned when the storage or physical base
	// address of a TranslationTables is not granule aligned.
	ErrMisalignedTables = &kernel.Error{Module: "vmm", Message: "translation table storage is not aligned to the translation granule"}

	// ErrInvalidBlockCount is returned when a TranslationTables is asked to
	// cover less than one block.
	ErrInvalidBlockCount = &kernel.Error{Module: "vmm", Message: "translation tables must cover at least one block"}

	// ErrTableIndexOutOfRange is returned when inspecting an entry outside
	// the area covered by a TranslationTables.
	ErrTableIndexOutOfRange = &kernel.Error{Module: "vmm", Message: "virtual address is not covered by the translation tables"}
)

// level3Table is a full level 3 table; it occupies exactly one granule.
type level3Table [mm.PagesPerBlock]PageDescriptor

// TablesSize returns the number of bytes of storage needed by a
// TranslationTables that covers the given number of blocks.
func TablesSize(blocks int) uintptr {
	return uintptr(blocks)*mm.TableSize + uintptr(blocks)<<mm.PointerShift
}

// TranslationTables is a two-level (level 2 and level 3) translation table
// for the 64KiB granule, overlaid on caller supplied storage. The level 3
// tables are stored first, followed by the level 2 array, so that both are
// aligned to the granule without padding.
type TranslationTables struct {
	lvl3 []level3Table
	lvl2 []TableDescriptor

	// physBase is the physical address of the storage as seen by the MMU.
	// It differs from the storage address only when the tables are built
	// by a hosted tool.
	physBase uintptr
}

// Init overlays the tables on the region starting at storage which must be at
// least TablesSize(blocks) bytes long and clears it, so every entry starts out
// invalid.
func (t *TranslationTables) Init(storage, physBase uintptr, blocks int) *kernel.Error {
	if blocks < 1 {
		return ErrInvalidBlockCount
	}
	if !mm.PageAligned(storage) || !mm.PageAligned(physBase) {
		return ErrMisalignedTables
	}

	kernel.Memset(storage, 0, TablesSize(blocks))

	t.lvl3 = unsafe.Slice((*level3Table)(unsafe.Pointer(storage)), blocks)
	t.lvl2 = unsafe.Slice((*TableDescriptor)(unsafe.Pointer(storage+uintptr(blocks)*mm.TableSize)), blocks)
	t.physBase = physBase
	return nil
}

// Blocks returns the number of level 2 entries.
func (t *TranslationTables) Blocks() int {
	return len(t.lvl2)
}

// Coverage returns the number of bytes of virtual address space that the
// tables translate.
func (t *TranslationTables) Coverage() uint64 {
	return uint64(len(t.lvl2)) << mm.BlockShift
}

// PhysBaseAddr returns the physical address of the level 2 array. This is the
// value loaded into TTBR0_EL1.
func (t *TranslationTables) PhysBaseAddr() uintptr {
	return t.physBase + uintptr(len(t.lvl3))*mm.TableSize
}

// Populate fills in every table entry by resolving the first address of each
// page through space. Population stops at the first resolution error and the
// tables are left partially filled; such tables must never be activated.
func (t *TranslationTables) Populate(space *AddressSpace) *kernel.Error {
	for blockIndex := range t.lvl2 {
		t.lvl2[blockIndex] = newTableDescriptor(mm.FrameFromAddress(t.physBase + uintptr(blockIndex)*mm.TableSize))

		firstPage := mm.Page(blockIndex * mm.PagesPerBlock)
		for pageIndex := range t.lvl3[blockIndex] {
			physAddr, attrs, err := space.Resolve((firstPage + mm.Page(pageIndex)).Address())
			if err != nil {
				return err
			}

			t.lvl3[blockIndex][pageIndex] = newPageDescriptor(mm.FrameFromAddress(physAddr), attrs)
		}
	}

	return nil
}

// Entry returns the level 3 descriptor that translates virtAddr.
func (t *TranslationTables) Entry(virtAddr uintptr) (PageDescriptor, *kernel.Error) {
	page := mm.PageFromAddress(virtAddr)
	if page.Block() >= len(t.lvl3) {
		return 0, ErrTableIndexOutOfRange
	}

	return t.lvl3[page.Block()][page.BlockOffset()], nil
}

// TableEntry returns the level 2 descriptor for the given block.
func (t *TranslationTables) TableEntry(blockIndex int) (TableDescriptor, *kernel.Error) {
	if blockIndex < 0 || blockIndex >= len(t.lvl2) {
		return 0, ErrTableIndexOutOfRange
	}

	return t.lvl2[blockIndex], nil
}
