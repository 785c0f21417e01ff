// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

import (
	"github.com/flopdiff/flop/driver"
	"github.com/flopdiff/flop/imageio"
)

// side bundles the five derived images described by the data model
// for one input (reference or test): the decoded source plus the
// four GPU-only images produced while filtering it.
type side struct {
	source       *trackedImage
	yycxcz       *trackedImage
	blurX        *trackedImage
	blurred      *trackedImage
	featureBlurX *trackedImage

	handleAlpha bool
	staging     driver.Buffer
}

func (c *Context) allocSide(img *imageio.Image) (*side, error) {
	s := &side{handleAlpha: img.HandleAlpha}
	w, h := img.Width, img.Height

	srcFmt := driver.RGBA8sRGB
	if img.HDR {
		srcFmt = driver.RGBA32f
	}
	var err error
	if s.source, s.staging, err = c.allocSource(srcFmt, w, h, img.Pix); err != nil {
		return nil, err
	}
	if s.yycxcz, err = c.allocDerived(driver.RGBA32f, w, h, true); err != nil {
		return nil, err
	}
	if s.blurX, err = c.allocDerived(driver.RGBA32f, w, h, false); err != nil {
		return nil, err
	}
	if s.blurred, err = c.allocDerived(driver.RGBA32f, w, h, false); err != nil {
		return nil, err
	}
	if s.featureBlurX, err = c.allocDerived(driver.RGBA32f, w, h, false); err != nil {
		return nil, err
	}
	return s, nil
}

// allocSource creates the device-local source image plus a
// host-visible staging buffer already filled with its pixel data;
// the caller is expected to record a CopyBufToImg from staging into
// the returned image before the first read.
func (c *Context) allocSource(pf driver.PixelFmt, w, h int, pix []byte) (*trackedImage, driver.Buffer, error) {
	img, err := c.gpu.NewImage(pf, driver.Dim3D{Width: w, Height: h, Depth: 1}, 1, 1, 1,
		driver.UShaderSample)
	if err != nil {
		return nil, nil, err
	}
	view, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	if err != nil {
		img.Destroy()
		return nil, nil, err
	}
	staging, err := c.gpu.NewBuffer(int64(len(pix)), true, driver.UShaderRead)
	if err != nil {
		view.Destroy()
		img.Destroy()
		return nil, nil, err
	}
	copy(staging.Bytes(), pix)

	t := newTrackedImage(img, view, pf, w, h)
	idx, err := c.bindless.AllocImage(view, false)
	if err != nil {
		staging.Destroy()
		view.Destroy()
		img.Destroy()
		return nil, nil, err
	}
	t.sampIdx = idx
	return t, staging, nil
}

// allocDerived creates a GPU-only tiled image registered into both
// the sampled and storage arrays, per spec: usages always include
// storage|sampled|transfer-src|transfer-dst (transfer is implicit,
// see driver/vk/image.go), optionally color-attachment.
func (c *Context) allocDerived(pf driver.PixelFmt, w, h int, colorAttachment bool) (*trackedImage, error) {
	usg := driver.UShaderRead | driver.UShaderWrite | driver.UShaderSample
	if colorAttachment {
		usg |= driver.URenderTarget
	}
	img, err := c.gpu.NewImage(pf, driver.Dim3D{Width: w, Height: h, Depth: 1}, 1, 1, 1, usg)
	if err != nil {
		return nil, err
	}
	view, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	if err != nil {
		img.Destroy()
		return nil, err
	}
	t := newTrackedImage(img, view, pf, w, h)
	sampIdx, err := c.bindless.AllocImage(view, false)
	if err != nil {
		view.Destroy()
		img.Destroy()
		return nil, err
	}
	storIdx, err := c.bindless.AllocImage(view, true)
	if err != nil {
		c.bindless.FreeImage(sampIdx, false)
		view.Destroy()
		img.Destroy()
		return nil, err
	}
	t.sampIdx, t.storIdx = sampIdx, storIdx
	return t, nil
}

func (c *Context) freeSide(s *side) {
	if s == nil {
		return
	}
	for _, t := range []*trackedImage{s.source, s.yycxcz, s.blurX, s.blurred, s.featureBlurX} {
		c.freeTracked(t)
	}
	if s.staging != nil {
		s.staging.Destroy()
	}
}

func (c *Context) freeTracked(t *trackedImage) {
	if t == nil {
		return
	}
	if t.sampIdx >= 0 {
		c.bindless.FreeImage(t.sampIdx, false)
	}
	if t.storIdx >= 0 {
		c.bindless.FreeImage(t.storIdx, true)
	}
	t.view.Destroy()
	t.img.Destroy()
}
