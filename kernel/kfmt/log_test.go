package kfmt

import (
	"bytes"
	"testing"
)

func TestLogf(t *testing.T) {
	defer func() {
		outputSink = nil
	}()

	var buf bytes.Buffer
	SetOutputSink(&buf)

	specs := []struct {
		fn  func()
		exp string
	}{
		{
			func() { Infof("MMU enabled") },
			"[info] MMU enabled\n",
		},
		{
			func() { Warnf("%d tables", 8) },
			"[warn] 8 tables\n",
		},
		{
			func() { Errorf("bad address 0x%8x", uintptr(0x1ff0000)) },
			"[error] bad address 0x01ff0000\n",
		},
		{
			func() { Logf(Level(42), "unknown") },
			"[?] unknown\n",
		},
	}

	for specIndex, spec := range specs {
		buf.Reset()
		spec.fn()

		if got := buf.String(); got != spec.exp {
			t.Errorf("[spec %d] expected to get %q; got %q", specIndex, spec.exp, got)
		}
	}
}
