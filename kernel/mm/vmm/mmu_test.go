package vmm

import (
	"errors"
	"pikernel/kernel/mm"
	"reflect"
	"testing"
)

// fakeCPU records system register accesses performed by the MMU.
type fakeCPU struct {
	sctlr, mmfr0     uint64
	mair, ttbr0, tcr uint64
	writes           []string
}

// install replaces the register accessors with ones backed by f and returns
// a function that restores the originals.
func (f *fakeCPU) install() func() {
	origReadSCTLR, origWriteSCTLR, origReadMMFR0 := readSCTLRFn, writeSCTLRFn, readMMFR0Fn
	origWriteMAIR, origWriteTTBR0, origWriteTCR, origISB := writeMAIRFn, writeTTBR0Fn, writeTCRFn, isbFn

	readSCTLRFn = func() uint64 { return f.sctlr }
	readMMFR0Fn = func() uint64 { return f.mmfr0 }
	writeSCTLRFn = func(val uint64) { f.sctlr = val; f.writes = append(f.writes, "SCTLR") }
	writeMAIRFn = func(val uint64) { f.mair = val; f.writes = append(f.writes, "MAIR") }
	writeTTBR0Fn = func(val uint64) { f.ttbr0 = val; f.writes = append(f.writes, "TTBR0") }
	writeTCRFn = func(val uint64) { f.tcr = val; f.writes = append(f.writes, "TCR") }
	isbFn = func() { f.writes = append(f.writes, "ISB") }

	return func() {
		readSCTLRFn, writeSCTLRFn, readMMFR0Fn = origReadSCTLR, origWriteSCTLR, origReadMMFR0
		writeMAIRFn, writeTTBR0Fn, writeTCRFn, isbFn = origWriteMAIR, origWriteTTBR0, origWriteTCR, origISB
	}
}

const resetSCTLR = uint64(0x30D0_0800)

func TestMMUEnable(t *testing.T) {
	hw := &fakeCPU{sctlr: resetSCTLR}
	defer hw.install()()

	tables, _ := newTestTables(t, 1)

	var mmu MMU
	mmu.Init(testSpace(true), tables)
	if got := mmu.State(); got != StateDisabled {
		t.Fatalf("expected initial state to be %s; got %s", StateDisabled, got)
	}

	if err := mmu.Enable(); err != nil {
		t.Fatal(err)
	}

	if got := mmu.State(); got != StateEnabled {
		t.Errorf("expected state to be %s; got %s", StateEnabled, got)
	}

	if exp := []string{"MAIR", "TTBR0", "TCR", "SCTLR", "ISB"}; !reflect.DeepEqual(hw.writes, exp) {
		t.Errorf("expected register write sequence %v; got %v", exp, hw.writes)
	}

	if exp := uint64(0xFF04); hw.mair != exp {
		t.Errorf("expected MAIR_EL1 to be 0x%x; got 0x%x", exp, hw.mair)
	}

	if exp := uint64(tables.PhysBaseAddr()); hw.ttbr0 != exp {
		t.Errorf("expected TTBR0_EL1 to be 0x%x; got 0x%x", exp, hw.ttbr0)
	}

	// 512MiB address space: T0SZ = 35
	if exp := uint64(0x2_0080_7523); hw.tcr != exp {
		t.Errorf("expected TCR_EL1 to be 0x%x; got 0x%x", exp, hw.tcr)
	}

	if exp := resetSCTLR | 0x1005; hw.sctlr != exp {
		t.Errorf("expected SCTLR_EL1 to be 0x%x; got 0x%x", exp, hw.sctlr)
	}

	if !IsEnabled() {
		t.Error("expected IsEnabled to report true")
	}

	if pd, _ := tables.Entry(0x1FFF_1000); pd.OutputAddress() != 0x1F20_0000 {
		t.Errorf("expected populated tables; got descriptor 0x%x", pd)
	}
}

func TestMMUEnableTwice(t *testing.T) {
	t.Run("enabled by this MMU", func(t *testing.T) {
		hw := &fakeCPU{sctlr: resetSCTLR}
		defer hw.install()()

		tables, _ := newTestTables(t, 1)
		var mmu MMU
		mmu.Init(testSpace(false), tables)

		if err := mmu.Enable(); err != nil {
			t.Fatal(err)
		}

		hw.writes = nil
		sctlr, mair, ttbr0, tcr := hw.sctlr, hw.mair, hw.ttbr0, hw.tcr

		if err := mmu.Enable(); err != ErrAlreadyEnabled {
			t.Fatalf("expected to get ErrAlreadyEnabled; got %v", err)
		}

		if len(hw.writes) != 0 {
			t.Errorf("expected no register writes; got %v", hw.writes)
		}

		if hw.sctlr != sctlr || hw.mair != mair || hw.ttbr0 != ttbr0 || hw.tcr != tcr {
			t.Error("expected register contents to remain unchanged")
		}

		if got := mmu.State(); got != StateEnabled {
			t.Errorf("expected state to remain %s; got %s", StateEnabled, got)
		}
	})

	t.Run("enabled by firmware", func(t *testing.T) {
		hw := &fakeCPU{sctlr: resetSCTLR | 1}
		defer hw.install()()

		tables, _ := newTestTables(t, 1)
		var mmu MMU
		mmu.Init(testSpace(false), tables)

		if err := mmu.Enable(); err != ErrAlreadyEnabled {
			t.Fatalf("expected to get ErrAlreadyEnabled; got %v", err)
		}

		if len(hw.writes) != 0 {
			t.Errorf("expected no register writes; got %v", hw.writes)
		}

		if got := mmu.State(); got != StateDisabled {
			t.Errorf("expected state to remain %s; got %s", StateDisabled, got)
		}
	})
}

func TestMMUEnableGranuleUnsupported(t *testing.T) {
	hw := &fakeCPU{sctlr: resetSCTLR, mmfr0: 0xF << 24}
	defer hw.install()()

	tables, region := newTestTables(t, 1)
	var mmu MMU
	mmu.Init(testSpace(true), tables)

	if err := mmu.Enable(); err != ErrGranuleUnsupported {
		t.Fatalf("expected to get ErrGranuleUnsupported; got %v", err)
	}

	if len(hw.writes) != 0 {
		t.Errorf("expected no register writes; got %v", hw.writes)
	}

	if hw.sctlr != resetSCTLR || hw.mair != 0 || hw.ttbr0 != 0 || hw.tcr != 0 {
		t.Error("expected register contents to remain unchanged")
	}

	for index, b := range region {
		if b != 0 {
			t.Fatalf("expected tables to remain untouched; found non-zero byte at offset %d", index)
		}
	}

	if got := mmu.State(); got != StateDisabled {
		t.Errorf("expected state to be %s; got %s", StateDisabled, got)
	}
}

func TestMMUEnableInvalidAddressSpace(t *testing.T) {
	specs := []struct {
		maxVirtAddr uintptr
		blocks      int
	}{
		// smaller than a block
		{0x0FFF_FFFF, 1},
		// not a power of two
		{0x5FFF_FFFF, 3},
		// tables do not match the address space
		{0x3FFF_FFFF, 1},
		{0x1FFF_FFFF, 2},
	}

	for specIndex, spec := range specs {
		hw := &fakeCPU{sctlr: resetSCTLR}
		restore := hw.install()

		tables, _ := newTestTables(t, spec.blocks)
		space := &AddressSpace{
			MaxVirtAddr: spec.maxVirtAddr,
			Descriptors: []TranslationDescriptor{
				{Label: "all", Range: FixedRange(0, spec.maxVirtAddr), Attributes: restAttrs},
			},
		}

		var mmu MMU
		mmu.Init(space, tables)

		if err := mmu.Enable(); err != ErrInvalidAddressSpace {
			t.Errorf("[spec %d] expected to get ErrInvalidAddressSpace; got %v", specIndex, err)
		}

		if len(hw.writes) != 0 {
			t.Errorf("[spec %d] expected no register writes; got %v", specIndex, hw.writes)
		}

		restore()
	}
}

func TestMMUEnableTableBuildFailure(t *testing.T) {
	hw := &fakeCPU{sctlr: resetSCTLR}
	defer hw.install()()

	tables, _ := newTestTables(t, 1)
	space := &AddressSpace{
		MaxVirtAddr: 0x1FFF_FFFF,
		Descriptors: []TranslationDescriptor{
			{Label: "code", Range: FixedRange(0, 0xFFFF), Attributes: codeAttrs},
		},
	}

	var mmu MMU
	mmu.Init(space, tables)

	err := mmu.Enable()
	if err != ErrTableBuildFailed {
		t.Fatalf("expected to get ErrTableBuildFailed; got %v", err)
	}

	if !errors.Is(err, ErrAddressUnmapped) {
		t.Errorf("expected error to wrap ErrAddressUnmapped; got %v", err.Cause)
	}

	if exp := []string{"MAIR"}; !reflect.DeepEqual(hw.writes, exp) {
		t.Errorf("expected register write sequence %v; got %v", exp, hw.writes)
	}

	if hw.sctlr != resetSCTLR {
		t.Error("expected SCTLR_EL1 to remain unchanged")
	}

	if got := mmu.State(); got != StateDisabled {
		t.Errorf("expected state to be %s; got %s", StateDisabled, got)
	}
}

func TestMMUEnableClearsTableBuildCause(t *testing.T) {
	hw := &fakeCPU{sctlr: resetSCTLR}
	defer hw.install()()

	broken := &AddressSpace{
		MaxVirtAddr: 0x1FFF_FFFF,
		Descriptors: []TranslationDescriptor{
			{Label: "code", Range: FixedRange(0, 0xFFFF), Attributes: codeAttrs},
		},
	}

	var failing MMU
	brokenTables, _ := newTestTables(t, 1)
	failing.Init(broken, brokenTables)
	if err := failing.Enable(); err != ErrTableBuildFailed || ErrTableBuildFailed.Cause != ErrAddressUnmapped {
		t.Fatalf("expected ErrTableBuildFailed caused by ErrAddressUnmapped; got %v", err)
	}

	// A later Enable that gets past population must not report the cause
	// of the earlier failure.
	var mmu MMU
	tables, _ := newTestTables(t, 1)
	mmu.Init(testSpace(true), tables)
	if err := mmu.Enable(); err != nil {
		t.Fatal(err)
	}

	if ErrTableBuildFailed.Cause != nil {
		t.Errorf("expected ErrTableBuildFailed.Cause to be cleared; got %v", ErrTableBuildFailed.Cause)
	}

	if got, exp := ErrTableBuildFailed.Error(), "could not populate translation tables"; got != exp {
		t.Errorf("expected error message %q; got %q", exp, got)
	}
}

func TestTCRValue(t *testing.T) {
	specs := []struct {
		size   uint64
		exp    uint64
		expErr error
	}{
		{1 << 29, 0x2_0080_7523, nil},
		{1 << 32, 0x2_0080_7520, nil},
		{1 << 42, 0x2_0080_7516, nil},
		{0, 0, ErrInvalidAddressSpace},
		{1 << 28, 0, ErrInvalidAddressSpace},
		{1 << 43, 0, ErrInvalidAddressSpace},
		{3 << 29, 0, ErrInvalidAddressSpace},
	}

	for specIndex, spec := range specs {
		got, err := TCRValue(spec.size)
		if spec.expErr != nil {
			if err != spec.expErr {
				t.Errorf("[spec %d] expected error %v; got %v", specIndex, spec.expErr, err)
			}
			continue
		}

		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
			continue
		}

		if got != spec.exp {
			t.Errorf("[spec %d] expected TCR value 0x%x; got 0x%x", specIndex, spec.exp, got)
		}
	}
}

func TestRegisterValues(t *testing.T) {
	if exp, got := uint64(0xFF04), MAIRValue(); got != exp {
		t.Errorf("expected MAIR value 0x%x; got 0x%x", exp, got)
	}

	if exp := uint64(0x1005); SCTLREnableBits != exp {
		t.Errorf("expected SCTLR enable bits 0x%x; got 0x%x", exp, SCTLREnableBits)
	}

	if _, err := TCRValue(uint64(mm.BlockSize)); err != nil {
		t.Errorf("expected an address space of a single block to be accepted; got %v", err)
	}
}

func TestStateString(t *testing.T) {
	specs := []struct {
		state State
		exp   string
	}{
		{StateDisabled, "disabled"},
		{StateConfiguring, "configuring"},
		{StatePopulated, "populated"},
		{StateEnabled, "enabled"},
		{State(42), "unknown"},
	}

	for specIndex, spec := range specs {
		if got := spec.state.String(); got != spec.exp {
			t.Errorf("[spec %d] expected %q; got %q", specIndex, spec.exp, got)
		}
	}
}
