package mm

// The kernel uses the 64KiB translation granule with a two-level (level 2
// and level 3) lookup. Every table occupies exactly one granule.
const (
	// PointerShift is equal to log2(size of a translation table entry).
	PointerShift = uintptr(3)

	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a page number (shift right by PageShift)
	// and vice-versa.
	PageShift = uintptr(16)

	// PageSize defines the translation granule in bytes.
	PageSize = uintptr(1 << PageShift)

	// BlockShift is equal to log2(BlockSize).
	BlockShift = uintptr(29)

	// BlockSize is the span of virtual address space covered by the
	// level-3 table that a single level-2 entry points to.
	BlockSize = uintptr(1 << BlockShift)

	// PagesPerBlock is the number of entries in a level-3 table.
	PagesPerBlock = int(BlockSize / PageSize)

	// TableSize is the size in bytes of a level-3 table.
	TableSize = uintptr(PagesPerBlock) << PointerShift
)
