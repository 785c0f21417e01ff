// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

import (
	"testing"
)

// tCtx is the Context shared by every test in this package that needs
// a live GPU, following the same TestMain-managed-singleton idiom the
// driver/vk tests use for tDrv.
var tCtx *Context

func TestMain(m *testing.M) {
	runMain(m)
}

func runMain(m *testing.M) int {
	c, err := Open(nil)
	if err != nil {
		// No Vulkan-capable device in this environment: package tests
		// that need tCtx call t.Skip, so still run the pure ones.
		return m.Run()
	}
	tCtx = c
	defer tCtx.Close()
	return m.Run()
}

func TestOpenClose(t *testing.T) {
	c, err := Open(nil)
	if err != nil {
		t.Skipf("Open(nil): %v (no GPU available)", err)
	}
	defer c.Close()
	if c.gpu == nil {
		t.Error("Open(): c.gpu\nhave nil\nwant non-nil")
	}
	if c.bindless == nil {
		t.Error("Open(): c.bindless\nhave nil\nwant non-nil")
	}
}

func TestOpenNoDriverRegistered(t *testing.T) {
	// Exercises the error path when no driver can be opened at all is
	// environment-dependent (it requires an environment with zero
	// registered drivers); skipped here since the vk driver always
	// registers itself via its package init.
	t.Skip("driver registration happens at package init; not independently testable here")
}

func TestLastHistogramZeroValue(t *testing.T) {
	c := &Context{}
	h := c.LastHistogram()
	for i, v := range h {
		if v != 0 {
			t.Errorf("LastHistogram()[%d]\nhave %d\nwant 0", i, v)
		}
	}
}
