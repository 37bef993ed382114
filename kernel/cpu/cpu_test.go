package cpu

import "testing"

func TestCurrentPrivilegeLevel(t *testing.T) {
	defer func() {
		currentELFn = CurrentEL
	}()

	specs := []struct {
		currentEL uint64
		exp       PrivilegeLevel
		expStr    string
	}{
		{0x0, PrivilegeApplication, "EL0 (application)"},
		{0x4, PrivilegeKernel, "EL1 (kernel)"},
		{0x8, PrivilegeHypervisor, "EL2 (hypervisor)"},
		{0xc, PrivilegeSecureMonitor, "EL3 (secure monitor)"},
		// bits outside [3:2] are RES0 and must be ignored
		{0x5, PrivilegeKernel, "EL1 (kernel)"},
	}

	for specIndex, spec := range specs {
		currentELFn = func() uint64 { return spec.currentEL }

		got := CurrentPrivilegeLevel()
		if got != spec.exp {
			t.Errorf("[spec %d] expected CurrentPrivilegeLevel to return %d; got %d", specIndex, spec.exp, got)
		}

		if gotStr := got.String(); gotStr != spec.expStr {
			t.Errorf("[spec %d] expected level string to be %q; got %q", specIndex, spec.expStr, gotStr)
		}
	}

	if got := PrivilegeUnknown.String(); got != "unknown" {
		t.Errorf("expected PrivilegeUnknown string to be %q; got %q", "unknown", got)
	}
}
