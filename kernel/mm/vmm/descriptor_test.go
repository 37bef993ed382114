package vmm

import (
	"pikernel/kernel/mm"
	"testing"
)

func TestPageDescriptorEncoding(t *testing.T) {
	specs := []struct {
		physAddr uintptr
		attrs    AttributeFields
		exp      PageDescriptor
	}{
		// Normal, inner shareable, read-only, executable at EL1
		{0x100, codeAttrs, 0x0040_0000_0000_0787},
		// Normal, inner shareable, read-write, never executable
		{0x20000, restAttrs, 0x0060_0000_0002_0707},
		// Device, outer shareable, read-write, never executable
		{0x1F20_0000, aliasAttrs, 0x0060_0000_1F20_0603},
		// bits above 47 are not part of the output address
		{1<<48 | 0x10000, restAttrs, 0x0060_0000_0001_0707},
	}

	for specIndex, spec := range specs {
		pd := newPageDescriptor(mm.FrameFromAddress(spec.physAddr), spec.attrs)
		if pd != spec.exp {
			t.Errorf("[spec %d] expected descriptor 0x%016x; got 0x%016x", specIndex, spec.exp, pd)
			continue
		}

		if !pd.Valid() {
			t.Errorf("[spec %d] expected descriptor to be valid", specIndex)
		}

		if !pd.HasFlags(FlagAccessed | FlagUserExecNever) {
			t.Errorf("[spec %d] expected AF and UXN to always be set", specIndex)
		}

		if got := pd.Attributes(); got != spec.attrs {
			t.Errorf("[spec %d] expected decoded attributes %+v; got %+v", specIndex, spec.attrs, got)
		}

		expAddr := uintptr(0xFFFF_FFFF<<16) & spec.physAddr
		if got := pd.OutputAddress(); got != expAddr {
			t.Errorf("[spec %d] expected output address 0x%x; got 0x%x", specIndex, expAddr, got)
		}

		if exp, got := mm.FrameFromAddress(expAddr), pd.Frame(); got != exp {
			t.Errorf("[spec %d] expected frame %d; got %d", specIndex, exp, got)
		}
	}
}

func TestPageDescriptorShareability(t *testing.T) {
	if got := newPageDescriptor(mm.Frame(0), restAttrs).Shareability(); got != FlagInnerShareable {
		t.Errorf("expected normal memory to be inner shareable; got 0x%x", got)
	}

	if got := newPageDescriptor(mm.Frame(0), aliasAttrs).Shareability(); got != FlagOuterShareable {
		t.Errorf("expected device memory to be outer shareable; got 0x%x", got)
	}
}

func TestTableDescriptor(t *testing.T) {
	td := newTableDescriptor(mm.Frame(4))
	if exp := TableDescriptor(0x4_0003); td != exp {
		t.Fatalf("expected table descriptor 0x%x; got 0x%x", exp, td)
	}

	if !td.Valid() {
		t.Fatal("expected table descriptor to be valid")
	}

	if got := td.NextTable(); got != mm.Frame(4) {
		t.Fatalf("expected next table in frame 4; got %d", got)
	}

	if got := td.NextTableAddress(); got != 0x4_0000 {
		t.Fatalf("expected next table address 0x40000; got 0x%x", got)
	}

	var zero TableDescriptor
	if zero.Valid() {
		t.Fatal("expected zero table descriptor to be invalid")
	}
}
