// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

import (
	"testing"

	"github.com/flopdiff/flop/driver"
)

func newTestTrackedImage() *trackedImage {
	return newTrackedImage(nil, nil, driver.RGBA32f, 4, 4)
}

func TestTrackedImageStart(t *testing.T) {
	ti := newTestTrackedImage()
	tr := ti.start(driver.SColorOutput, driver.LColorTarget)
	if tr.SyncBefore != driver.SNone || tr.AccessBefore != driver.ANone {
		t.Errorf("start(): before state\nhave %v, %v\nwant SNone, ANone", tr.SyncBefore, tr.AccessBefore)
	}
	if tr.SyncAfter != driver.SColorOutput || tr.AccessAfter != driver.AAnyWrite {
		t.Errorf("start(): after state\nhave %v, %v\nwant SColorOutput, AAnyWrite", tr.SyncAfter, tr.AccessAfter)
	}
	if tr.LayoutBefore != driver.LUndefined || tr.LayoutAfter != driver.LColorTarget {
		t.Errorf("start(): layout\nhave %v -> %v\nwant LUndefined -> LColorTarget", tr.LayoutBefore, tr.LayoutAfter)
	}
	if ti.sync != driver.SColorOutput || ti.acc != driver.AAnyWrite || ti.lay != driver.LColorTarget {
		t.Errorf("start(): tracked state not updated: %+v", ti)
	}
}

func TestTrackedImageChaining(t *testing.T) {
	ti := newTestTrackedImage()
	ti.start(driver.SComputeShading, driver.LCommon)

	tr := ti.sample(driver.SFragmentShading, driver.AAnyWrite)
	if tr.SyncBefore != driver.SComputeShading {
		t.Errorf("sample(): SyncBefore\nhave %v\nwant %v (chained from start)", tr.SyncBefore, driver.SComputeShading)
	}
	if tr.LayoutAfter != driver.LShaderRead || ti.lay != driver.LShaderRead {
		t.Errorf("sample(): layout\nhave %v\nwant LShaderRead", tr.LayoutAfter)
	}

	tr = ti.raw(driver.SComputeShading, driver.AAnyWrite)
	if tr.SyncBefore != driver.SFragmentShading {
		t.Errorf("raw(): SyncBefore\nhave %v\nwant %v (chained from sample)", tr.SyncBefore, driver.SFragmentShading)
	}
	if tr.AccessAfter != driver.AAnyRead || ti.acc != driver.AAnyRead {
		t.Errorf("raw(): AccessAfter\nhave %v\nwant AAnyRead", tr.AccessAfter)
	}

	tr = ti.waw(driver.SComputeShading)
	if tr.AccessBefore != driver.AAnyWrite || tr.AccessAfter != driver.AAnyWrite {
		t.Errorf("waw(): access\nhave %v -> %v\nwant AAnyWrite -> AAnyWrite", tr.AccessBefore, tr.AccessAfter)
	}
}

func TestTrackedImageReadback(t *testing.T) {
	ti := newTestTrackedImage()
	tr := ti.readback()
	if tr.LayoutBefore != driver.LUndefined || tr.LayoutAfter != driver.LCopyDst {
		t.Errorf("readback(): layout\nhave %v -> %v\nwant LUndefined -> LCopyDst", tr.LayoutBefore, tr.LayoutAfter)
	}
	if ti.lay != driver.LCopyDst || ti.acc != driver.ACopyWrite {
		t.Errorf("readback(): tracked state\nhave lay=%v acc=%v\nwant LCopyDst, ACopyWrite", ti.lay, ti.acc)
	}
}

func TestTrackedImageBlit(t *testing.T) {
	ti := newTestTrackedImage()
	ti.start(driver.SColorOutput, driver.LColorTarget)
	tr := ti.blit()
	if tr.LayoutAfter != driver.LCopySrc {
		t.Errorf("blit(): LayoutAfter\nhave %v\nwant LCopySrc", tr.LayoutAfter)
	}
	if tr.AccessBefore != driver.AAnyWrite || tr.AccessAfter != driver.ACopyRead {
		t.Errorf("blit(): access\nhave %v -> %v\nwant AAnyWrite -> ACopyRead", tr.AccessBefore, tr.AccessAfter)
	}
}

func TestNewTrackedImageIndicesStartNegative(t *testing.T) {
	ti := newTestTrackedImage()
	if ti.sampIdx != -1 || ti.storIdx != -1 {
		t.Errorf("newTrackedImage(): indices\nhave %d, %d\nwant -1, -1", ti.sampIdx, ti.storIdx)
	}
}
