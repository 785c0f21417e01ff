// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package flop implements the FLIP perceptual image-difference
// algorithm as a GPU compute pipeline: two images go in, a per-pixel
// error map, a 32-bin error histogram and (optionally) a color-mapped
// PNG come out.
package flop

import (
	"fmt"
	"sync"

	"github.com/flopdiff/flop/driver"
	"github.com/flopdiff/flop/driver/vk"
	"github.com/flopdiff/flop/flop/colormap"
	"github.com/flopdiff/flop/flop/viewer"
	"github.com/flopdiff/flop/internal/spirv"
)

// enableValidation and setDeviceSubstr forward Options to the
// concrete vk driver's package-level selection knobs. They are only
// meaningful before the first Driver.Open call of the process: the
// vk driver has no other hook for them, since driver.Driver/driver.GPU
// are deliberately implementation-agnostic interfaces.
func enableValidation() { vk.EnableValidation = true }

func setDeviceSubstr(s string) { vk.RequireDeviceSubstr = s }

// Context owns a GPU device, the single bindless descriptor set, the
// compiled shader programs and the resources that persist across
// analyze calls (the four color-map tables, the error histogram
// buffer, a small pool of primary command buffers). It is expensive
// to construct and cheap to reuse: create one per process and call
// Analyze/AnalyzeHDR as many times as needed.
//
// A Context serializes concurrent Analyze/AnalyzeHDR calls with an
// internal mutex; the core itself is single-threaded cooperative on
// the host, per design.
type Context struct {
	mu sync.Mutex

	drv  driver.Driver
	gpu  driver.GPU
	lim  driver.Limits

	bindless driver.BindlessSet
	table    driver.DescTable

	viewer *viewer.Viewer

	yycxcz   *fullscreenPass
	colorMap *fullscreenPass

	csfX, csfY     *kernel
	featureX       *kernel
	featureY       *kernel
	compare        *kernel
	summarize      *kernel

	cmdStage   driver.CmdBuffer
	cmdAnalyze driver.CmdBuffer

	histogram         driver.Buffer
	histogramIdx      int
	histogramReadback driver.Buffer
	lastHistogram     Histogram

	colorTables    [4]driver.Buffer
	colorTableIdx  [4]int

	poisoned bool
}

// Open creates a new Context using the first registered driver that
// can satisfy opts. opts may be nil, in which case defaults apply
// (see Options).
func Open(opts *Options) (*Context, error) {
	if opts != nil && opts.EnableValidation {
		enableValidation()
	}
	if opts != nil && opts.DeviceSubstr != "" {
		setDeviceSubstr(opts.DeviceSubstr)
	}

	drvs := driver.Drivers()
	if len(drvs) == 0 {
		return nil, wrapErr(ErrDevice, fmt.Errorf("no drivers registered"))
	}
	var gpu driver.GPU
	var drv driver.Driver
	var err error
	for _, d := range drvs {
		gpu, err = d.Open()
		if err == nil {
			drv = d
			break
		}
	}
	if gpu == nil {
		return nil, wrapErr(ErrDevice, err)
	}

	c := &Context{drv: drv, gpu: gpu, lim: gpu.Limits()}
	if err := c.init(opts.capacity()); err != nil {
		c.Close()
		return nil, wrapErr(ErrDevice, err)
	}
	if opts != nil && opts.RequireSwapchain {
		v, err := viewer.New(c.gpu, c.bindless, c.table, viewerWidth, viewerHeight, "flop")
		if err != nil {
			c.Close()
			return nil, wrapErr(ErrDevice, err)
		}
		c.viewer = v
	}
	return c, nil
}

const (
	viewerWidth  = 960
	viewerHeight = 540
)

func (c *Context) init(capacity int) error {
	bindless, err := c.gpu.NewBindlessSet(capacity)
	if err != nil {
		return err
	}
	c.bindless = bindless
	c.table = bindless.Table()

	if c.cmdStage, err = c.gpu.NewCmdBuffer(); err != nil {
		return err
	}
	if c.cmdAnalyze, err = c.gpu.NewCmdBuffer(); err != nil {
		return err
	}

	if err := c.loadPrograms(); err != nil {
		return err
	}
	if err := c.initHistogram(); err != nil {
		return err
	}
	if err := c.initColorTables(); err != nil {
		return err
	}
	return nil
}

func (c *Context) loadPrograms() error {
	load := func(name string) []byte {
		b, e := spirv.Load(name)
		if e != nil {
			panic(e) // embedded at build time; a missing entry is a build defect, not a runtime one.
		}
		return b
	}

	var err error
	c.yycxcz, err = newFullscreenPass(c.gpu, load(spirv.YyCxCzVert), load(spirv.YyCxCzFrag), c.table, driver.RGBA32f)
	if err != nil {
		return err
	}
	c.colorMap, err = newFullscreenPass(c.gpu, load(spirv.YyCxCzVert), load(spirv.ColorMapFrag), c.table, driver.RGBA8sRGB)
	if err != nil {
		return err
	}
	csf := load(spirv.CSF)
	if c.csfX, err = newKernel(c.gpu, csf, c.table, 64, 1); err != nil {
		return err
	}
	if c.csfY, err = newKernel(c.gpu, csf, c.table, 1, 64); err != nil {
		return err
	}
	if c.featureX, err = newKernel(c.gpu, load(spirv.FeatureX), c.table, 64, 1); err != nil {
		return err
	}
	if c.featureY, err = newKernel(c.gpu, load(spirv.FeatureY), c.table, 1, 64); err != nil {
		return err
	}
	if c.compare, err = newKernel(c.gpu, load(spirv.Compare), c.table, 8, 8); err != nil {
		return err
	}
	if c.summarize, err = newKernel(c.gpu, load(spirv.Summarize), c.table, 8, 8); err != nil {
		return err
	}
	return nil
}

const histogramBins = 32

func (c *Context) initHistogram() error {
	buf, err := c.gpu.NewBuffer(histogramBins*4, false, driver.UShaderRead|driver.UShaderWrite)
	if err != nil {
		return err
	}
	idx, err := c.bindless.AllocBuffer(buf, 0, histogramBins*4)
	if err != nil {
		buf.Destroy()
		return err
	}
	c.histogram, c.histogramIdx = buf, idx

	readback, err := c.gpu.NewBuffer(histogramBins*4, true, 0)
	if err != nil {
		return err
	}
	c.histogramReadback = readback
	return nil
}

func (c *Context) initColorTables() error {
	for i := 0; i < 4; i++ {
		entries := colormap.Entries(colormap.Name(i))
		// std430 gives the shader's vec3 array a 16-byte stride.
		size := int64(len(entries) * 4 * 4)
		buf, err := c.gpu.NewBuffer(size, true, driver.UShaderRead)
		if err != nil {
			return err
		}
		b := buf.Bytes()
		off := 0
		for _, e := range entries {
			putFloat32(b[off:], e[0])
			putFloat32(b[off+4:], e[1])
			putFloat32(b[off+8:], e[2])
			off += 16
		}
		idx, err := c.bindless.AllocBuffer(buf, 0, size)
		if err != nil {
			buf.Destroy()
			return err
		}
		c.colorTables[i], c.colorTableIdx[i] = buf, idx
	}
	return nil
}

// Close releases every GPU resource owned by the Context. The
// Context must not be used again afterward.
func (c *Context) Close() {
	if c.viewer != nil {
		c.viewer.Close()
	}
	if c.cmdStage != nil {
		c.cmdStage.Destroy()
	}
	if c.cmdAnalyze != nil {
		c.cmdAnalyze.Destroy()
	}
	if c.yycxcz != nil {
		c.yycxcz.destroy()
	}
	if c.colorMap != nil {
		c.colorMap.destroy()
	}
	for _, k := range []*kernel{c.csfX, c.csfY, c.featureX, c.featureY, c.compare, c.summarize} {
		if k != nil {
			k.destroy()
		}
	}
	if c.histogram != nil {
		c.histogram.Destroy()
	}
	if c.histogramReadback != nil {
		c.histogramReadback.Destroy()
	}
	for _, b := range c.colorTables {
		if b != nil {
			b.Destroy()
		}
	}
	if c.bindless != nil {
		c.bindless.Destroy()
	}
	if c.drv != nil {
		c.drv.Close()
	}
}

// LastHistogram returns the 32-bin error histogram produced by the
// most recent successful Analyze/AnalyzeHDR call. Its zero value (all
// bins zero) is returned if no call has completed yet.
func (c *Context) LastHistogram() Histogram {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHistogram
}
