package mm

// Frame is the number of a granule sized chunk of physical memory.
type Frame uintptr

// FrameFromAddress returns the frame holding physAddr. Offsets inside the
// granule are dropped.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame(physAddr >> PageShift)
}

// Address returns the physical address where the frame begins.
func (f Frame) Address() uintptr {
	return uintptr(f) << PageShift
}

// Page is the number of a granule sized chunk of virtual address space.
type Page uintptr

// PageFromAddress returns the page holding virtAddr. Offsets inside the
// granule are dropped.
func PageFromAddress(virtAddr uintptr) Page {
	return Page(virtAddr >> PageShift)
}

// Address returns the virtual address where the page begins.
func (p Page) Address() uintptr {
	return uintptr(p) << PageShift
}

// Block returns the index of the level 2 entry that translates the page.
func (p Page) Block() int {
	return int(uintptr(p) >> (BlockShift - PageShift))
}

// BlockOffset returns the index of the page inside the level 3 table of its
// block.
func (p Page) BlockOffset() int {
	return int(uintptr(p) & uintptr(PagesPerBlock-1))
}

// PageAligned returns true if addr lies on a granule boundary.
func PageAligned(addr uintptr) bool {
	return addr&(PageSize-1) == 0
}
