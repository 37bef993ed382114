package vmm

import "pikernel/kernel/mm"

// DescriptorFlag describes a bit, or a value of a multi-bit field, of a
// level 2 table descriptor or a level 3 page descriptor.
type DescriptorFlag uint64

const (
	// FlagValid is set for every descriptor the MMU may use.
	FlagValid DescriptorFlag = 1 << 0

	// FlagTableOrPage marks a table descriptor at level 2 and a page
	// descriptor at level 3. When cleared at level 2 the entry describes a
	// block, which is never used here.
	FlagTableOrPage DescriptorFlag = 1 << 1

	// FlagAttrIndexDevice selects MAIR_EL1 attribute 0.
	FlagAttrIndexDevice DescriptorFlag = mairIndexDevice << attrIndexShift

	// FlagAttrIndexNormal selects MAIR_EL1 attribute 1.
	FlagAttrIndexNormal DescriptorFlag = mairIndexNormal << attrIndexShift

	// FlagReadWrite grants EL1 read/write access (AP=0b00).
	FlagReadWrite DescriptorFlag = 0b00 << 6

	// FlagReadOnly grants EL1 read-only access (AP=0b10).
	FlagReadOnly DescriptorFlag = 0b10 << 6

	// FlagOuterShareable is used for device memory (SH=0b10).
	FlagOuterShareable DescriptorFlag = 0b10 << 8

	// FlagInnerShareable is used for normal memory (SH=0b11).
	FlagInnerShareable DescriptorFlag = 0b11 << 8

	// FlagAccessed is the access flag. Since it is always set, the first
	// access to a page never raises an access flag fault.
	FlagAccessed DescriptorFlag = 1 << 10

	// FlagPrivExecNever prevents instruction fetches at EL1.
	FlagPrivExecNever DescriptorFlag = 1 << 53

	// FlagUserExecNever prevents instruction fetches at EL0.
	FlagUserExecNever DescriptorFlag = 1 << 54
)

const (
	attrIndexShift = 2
	attrIndexMask  = DescriptorFlag(0b111 << attrIndexShift)
	accessMask     = DescriptorFlag(0b11 << 6)
	shareMask      = DescriptorFlag(0b11 << 8)

	// outputAddrMask selects bits 16-47 which hold the physical address of
	// the next level table or of the mapped page.
	outputAddrMask = uint64(0xFFFF_FFFF) << mm.PageShift

	// Indices into the MAIR_EL1 attribute array.
	mairIndexDevice = 0
	mairIndexNormal = 1
)

// PageDescriptor is a level 3 translation table entry mapping a single 64KiB
// page.
type PageDescriptor uint64

// newPageDescriptor encodes a page descriptor mapping frame.
func newPageDescriptor(frame mm.Frame, attrs AttributeFields) PageDescriptor {
	flags := FlagValid | FlagTableOrPage | FlagAccessed | FlagUserExecNever

	if attrs.Memory == MemoryDevice {
		flags |= FlagAttrIndexDevice | FlagOuterShareable
	} else {
		flags |= FlagAttrIndexNormal | FlagInnerShareable
	}

	if attrs.Access == AccessReadWrite {
		flags |= FlagReadWrite
	} else {
		flags |= FlagReadOnly
	}

	if attrs.ExecuteNever {
		flags |= FlagPrivExecNever
	}

	return PageDescriptor(uint64(flags) | uint64(frame.Address())&outputAddrMask)
}

// HasFlags returns true if all of the supplied flags are set.
func (pd PageDescriptor) HasFlags(flags DescriptorFlag) bool {
	return DescriptorFlag(pd)&flags == flags
}

// Valid returns true if the descriptor maps a page.
func (pd PageDescriptor) Valid() bool {
	return pd.HasFlags(FlagValid | FlagTableOrPage)
}

// OutputAddress returns the physical address of the mapped page.
func (pd PageDescriptor) OutputAddress() uintptr {
	return pd.Frame().Address()
}

// Frame returns the physical frame of the mapped page.
func (pd PageDescriptor) Frame() mm.Frame {
	return mm.Frame((uint64(pd) & outputAddrMask) >> mm.PageShift)
}

// Attributes decodes the memory type and permissions of the mapping.
func (pd PageDescriptor) Attributes() AttributeFields {
	var attrs AttributeFields

	if DescriptorFlag(pd)&attrIndexMask == FlagAttrIndexDevice {
		attrs.Memory = MemoryDevice
	}
	if DescriptorFlag(pd)&accessMask == FlagReadWrite {
		attrs.Access = AccessReadWrite
	}
	attrs.ExecuteNever = pd.HasFlags(FlagPrivExecNever)

	return attrs
}

// Shareability returns the raw SH field of the descriptor.
func (pd PageDescriptor) Shareability() DescriptorFlag {
	return DescriptorFlag(pd) & shareMask
}

// TableDescriptor is a level 2 translation table entry pointing to a level 3
// table.
type TableDescriptor uint64

func newTableDescriptor(nextTable mm.Frame) TableDescriptor {
	return TableDescriptor(uint64(FlagValid|FlagTableOrPage) | uint64(nextTable.Address())&outputAddrMask)
}

// Valid returns true if the descriptor points to a next level table.
func (td TableDescriptor) Valid() bool {
	return DescriptorFlag(td)&(FlagValid|FlagTableOrPage) == FlagValid|FlagTableOrPage
}

// NextTable returns the physical frame holding the level 3 table.
func (td TableDescriptor) NextTable() mm.Frame {
	return mm.Frame((uint64(td) & outputAddrMask) >> mm.PageShift)
}

// NextTableAddress returns the physical address of the level 3 table.
func (td TableDescriptor) NextTableAddress() uintptr {
	return td.NextTable().Address()
}
