// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

import "github.com/flopdiff/flop/driver"

// trackedImage wraps a driver.Image/driver.ImageView pair together
// with its current (Sync, Access, Layout) triple, and its assigned
// bindless indices. Every read or write of the underlying image goes
// through exactly one of the barrier factories below, which both
// produce the transition descriptor and update the tracked state in
// the same step - callers never construct a driver.Transition by
// hand.
type trackedImage struct {
	img   driver.Image
	view  driver.ImageView
	pf    driver.PixelFmt
	w, h  int
	sync  driver.Sync
	acc   driver.Access
	lay   driver.Layout

	// Bindless indices. sampIdx/storIdx are -1 when the image was
	// not registered into the corresponding array.
	sampIdx int
	storIdx int
}

func newTrackedImage(img driver.Image, view driver.ImageView, pf driver.PixelFmt, w, h int) *trackedImage {
	return &trackedImage{
		img: img, view: view, pf: pf, w: w, h: h,
		lay:     driver.LUndefined,
		sampIdx: -1,
		storIdx: -1,
	}
}

// start transitions the image out of its (assumed undefined) initial
// layout into layout, with no source access (nothing to wait on) and
// a memory-write destination access (the first write must be visible
// to whatever reads follow).
func (t *trackedImage) start(sync driver.Sync, layout driver.Layout) driver.Transition {
	tr := driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   driver.SNone,
			SyncAfter:    sync,
			AccessBefore: driver.ANone,
			AccessAfter:  driver.AAnyWrite,
		},
		LayoutBefore: driver.LUndefined,
		LayoutAfter:  layout,
		IView:        t.view,
	}
	t.sync, t.acc, t.lay = sync, driver.AAnyWrite, layout
	return tr
}

// raw produces a read-after-write transition into the general layout,
// preceded by access.
func (t *trackedImage) raw(sync driver.Sync, access driver.Access) driver.Transition {
	tr := driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   t.sync,
			SyncAfter:    sync,
			AccessBefore: access,
			AccessAfter:  driver.AAnyRead,
		},
		LayoutBefore: t.lay,
		LayoutAfter:  driver.LCommon,
		IView:        t.view,
	}
	t.sync, t.acc, t.lay = sync, driver.AAnyRead, driver.LCommon
	return tr
}

// war produces a write-after-read transition: the layout stays
// general on both sides, but a prior read must complete before the
// next write begins.
func (t *trackedImage) war(sync driver.Sync) driver.Transition {
	tr := driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   t.sync,
			SyncAfter:    sync,
			AccessBefore: driver.AAnyRead,
			AccessAfter:  driver.AAnyWrite,
		},
		LayoutBefore: driver.LCommon,
		LayoutAfter:  driver.LCommon,
		IView:        t.view,
	}
	t.sync, t.acc, t.lay = sync, driver.AAnyWrite, driver.LCommon
	return tr
}

// waw produces a write-after-write transition into the general
// layout.
func (t *trackedImage) waw(sync driver.Sync) driver.Transition {
	tr := driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   t.sync,
			SyncAfter:    sync,
			AccessBefore: driver.AAnyWrite,
			AccessAfter:  driver.AAnyWrite,
		},
		LayoutBefore: t.lay,
		LayoutAfter:  driver.LCommon,
		IView:        t.view,
	}
	t.sync, t.acc, t.lay = sync, driver.AAnyWrite, driver.LCommon
	return tr
}

// rar produces a read-after-read transition into layout: the image
// was already readable, but a different kind of read follows (e.g.
// a color-attachment read becoming a shader read).
func (t *trackedImage) rar(sync driver.Sync, layout driver.Layout) driver.Transition {
	tr := driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   t.sync,
			SyncAfter:    sync,
			AccessBefore: driver.AAnyRead,
			AccessAfter:  driver.AShaderRead,
		},
		LayoutBefore: t.lay,
		LayoutAfter:  layout,
		IView:        t.view,
	}
	t.sync, t.acc, t.lay = sync, driver.AShaderRead, layout
	return tr
}

// sample transitions into shader-read-only-optimal, preceded by src
// access (the access performed by whatever wrote this image last).
func (t *trackedImage) sample(sync driver.Sync, src driver.Access) driver.Transition {
	tr := driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   t.sync,
			SyncAfter:    sync,
			AccessBefore: src,
			AccessAfter:  driver.AAnyRead,
		},
		LayoutBefore: t.lay,
		LayoutAfter:  driver.LShaderRead,
		IView:        t.view,
	}
	t.sync, t.acc, t.lay = sync, driver.AAnyRead, driver.LShaderRead
	return tr
}

// blit transitions into transfer-src-optimal, following a write.
func (t *trackedImage) blit() driver.Transition {
	tr := driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   t.sync,
			SyncAfter:    driver.SCopy,
			AccessBefore: driver.AAnyWrite,
			AccessAfter:  driver.ACopyRead,
		},
		LayoutBefore: t.lay,
		LayoutAfter:  driver.LCopySrc,
		IView:        t.view,
	}
	t.sync, t.acc, t.lay = driver.SCopy, driver.ACopyRead, driver.LCopySrc
	return tr
}

// readback transitions into transfer-dst-optimal, from an undefined
// prior state: the image's previous contents are discarded, as
// before a source image is filled from its staging buffer.
func (t *trackedImage) readback() driver.Transition {
	tr := driver.Transition{
		Barrier: driver.Barrier{
			SyncBefore:   driver.SNone,
			SyncAfter:    driver.SCopy,
			AccessBefore: driver.ANone,
			AccessAfter:  driver.ACopyWrite,
		},
		LayoutBefore: driver.LUndefined,
		LayoutAfter:  driver.LCopyDst,
		IView:        t.view,
	}
	t.sync, t.acc, t.lay = driver.SCopy, driver.ACopyWrite, driver.LCopyDst
	return tr
}
