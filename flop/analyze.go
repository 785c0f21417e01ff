// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

import (
	"context"
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/flopdiff/flop/driver"
	"github.com/flopdiff/flop/flop/colormap"
	"github.com/flopdiff/flop/imageio"
)

// CSF sigmas (Yy, Cx, Cz), and the feature detector's edge/point
// sigma, for a fixed default viewing distance; see spec.md §4.5.
const (
	csfSigmaY  = 0.0047
	csfSigmaCx = 0.0053
	csfSigmaCz = 0.0200

	featureSigma = 0.5
	compareQC    = 0.7

	axisX = int32(0)
	axisY = int32(1)
)

// AnalyzeOptions configures a single Analyze/AnalyzeHDR call. The
// zero value writes no output image and maps errors with the
// Viridis table.
type AnalyzeOptions struct {
	// OutputPath, if non-empty, writes the color-mapped error image
	// as a PNG.
	OutputPath string
	ColorMap   colormap.Name
}

// Analyze runs FLIP over two LDR images (sRGB-encoded PNG/JPEG/BMP).
func (c *Context) Analyze(refPath, testPath string, opts *AnalyzeOptions) (*Summary, error) {
	if opts == nil {
		opts = &AnalyzeOptions{}
	}
	return c.analyze(refPath, testPath, 0, TonemapNone, opts)
}

// AnalyzeHDR runs FLIP over two HDR images (.exr), applying the
// requested tonemap at the given exposure (in stops) before
// color-space conversion.
func (c *Context) AnalyzeHDR(refPath, testPath string, exposureStops float32, tonemap Tonemap, opts *AnalyzeOptions) (*Summary, error) {
	if opts == nil {
		opts = &AnalyzeOptions{}
	}
	return c.analyze(refPath, testPath, exposureStops, tonemap, opts)
}

func (c *Context) analyze(refPath, testPath string, exposureStops float32, tonemap Tonemap, opts *AnalyzeOptions) (*Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.poisoned {
		return nil, wrapErr(ErrLost, fmt.Errorf("context previously lost a device"))
	}

	began := time.Now()

	refImg, testImg, err := imageio.LoadPair(context.Background(), refPath, testPath)
	if err != nil {
		return nil, wrapErr(ErrInput, err)
	}

	ref, err := c.allocSide(refImg)
	if err != nil {
		return nil, wrapErr(ErrDevice, err)
	}
	defer c.freeSide(ref)
	test, err := c.allocSide(testImg)
	if err != nil {
		return nil, wrapErr(ErrDevice, err)
	}
	defer c.freeSide(test)

	w, h := refImg.Width, refImg.Height

	errImg, err := c.allocDerived(driver.R32f, w, h, false)
	if err != nil {
		return nil, wrapErr(ErrDevice, err)
	}
	defer c.freeTracked(errImg)

	outputRequested := opts.OutputPath != "" || c.viewer != nil
	var errColor *trackedImage
	var readback driver.Buffer
	if outputRequested {
		if errColor, err = c.allocDerived(driver.RGBA8sRGB, w, h, true); err != nil {
			return nil, wrapErr(ErrDevice, err)
		}
		defer c.freeTracked(errColor)
		if readback, err = c.gpu.NewBuffer(int64(w*h*4), true, 0); err != nil {
			return nil, wrapErr(ErrDevice, err)
		}
		defer readback.Destroy()
	}

	if err := c.record(ref, test, errImg, errColor, readback, w, h, exposureStops, tonemap, opts); err != nil {
		return nil, wrapErr(ErrDevice, err)
	}

	ch := make(chan error, 1)
	c.gpu.Commit([]driver.CmdBuffer{c.cmdAnalyze}, ch)
	if err := <-ch; err != nil {
		c.poisoned = true
		return nil, wrapErr(ErrLost, err)
	}

	c.readHistogram()

	if opts.OutputPath != "" {
		if err := imageio.EncodePNG(opts.OutputPath, w, h, w*4, readback.Bytes()); err != nil {
			return nil, wrapErr(ErrDevice, err)
		}
	}
	if c.viewer != nil && readback != nil {
		preview := &image.RGBA{
			Pix:    readback.Bytes(),
			Stride: w * 4,
			Rect:   image.Rect(0, 0, w, h),
		}
		if err := c.viewer.Show(preview); err != nil {
			return nil, wrapErr(ErrDevice, err)
		}
	}

	return &Summary{
		Width:               w,
		Height:              h,
		MillisecondsElapsed: int(time.Since(began).Milliseconds()),
	}, nil
}

func (c *Context) readHistogram() {
	b := c.histogramReadback.Bytes()
	for i := 0; i < histogramBins; i++ {
		c.lastHistogram[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
}

// record builds the single command buffer for one analyze call,
// following the 17-step sequence: upload, colorspace transform,
// feature detection, CSF filtering (X then Y), color compare,
// feature amplification, histogram summarize and, optionally, the
// color-mapped readback.
func (c *Context) record(ref, test *side, errImg, errColor *trackedImage, readback driver.Buffer, w, h int, exposureStops float32, tonemap Tonemap, opts *AnalyzeOptions) error {
	cb := c.cmdAnalyze
	if err := cb.Reset(); err != nil {
		return err
	}
	if err := cb.Begin(); err != nil {
		return err
	}

	// Step 1: transition the sources into transfer-dst, upload, zero
	// the histogram.
	cb.Transition([]driver.Transition{
		ref.source.readback(),
		test.source.readback(),
	})
	cb.BeginBlit(false)
	cb.Fill(c.histogram, 0, 0, histogramBins*4)
	c.uploadSource(cb, ref)
	c.uploadSource(cb, test)
	cb.EndBlit()

	// Step 2: initial transitions.
	initial := []driver.Transition{
		ref.source.sample(driver.SFragmentShading, driver.ACopyWrite),
		test.source.sample(driver.SFragmentShading, driver.ACopyWrite),
		ref.yycxcz.start(driver.SColorOutput, driver.LColorTarget),
		test.yycxcz.start(driver.SColorOutput, driver.LColorTarget),
		ref.blurX.start(driver.SComputeShading, driver.LCommon),
		test.blurX.start(driver.SComputeShading, driver.LCommon),
		ref.blurred.start(driver.SComputeShading, driver.LCommon),
		test.blurred.start(driver.SComputeShading, driver.LCommon),
		ref.featureBlurX.start(driver.SComputeShading, driver.LCommon),
		test.featureBlurX.start(driver.SComputeShading, driver.LCommon),
		errImg.start(driver.SComputeShading, driver.LCommon),
	}
	if errColor != nil {
		initial = append(initial, errColor.start(driver.SColorOutput, driver.LColorTarget))
	}
	cb.Transition(initial)

	// Step 3: colorspace transform, reference then test.
	c.drawYyCxCz(cb, ref, w, h, exposureStops, tonemap)
	c.drawYyCxCz(cb, test, w, h, exposureStops, tonemap)

	// Step 4: color-attachment-write -> compute-read.
	cb.Transition([]driver.Transition{
		ref.yycxcz.sample(driver.SComputeShading, driver.AColorWrite),
		test.yycxcz.sample(driver.SComputeShading, driver.AColorWrite),
	})

	cb.BeginWork(false)

	// Step 5: feature detection (edge/point response), both sides.
	c.featureX.dispatch2(cb, c.bindless, PC2{
		Width: w, Height: h,
		Input1: ref.yycxcz.sampIdx, Input2: test.yycxcz.sampIdx,
		Output1: ref.featureBlurX.storIdx, Output2: test.featureBlurX.storIdx,
	}, float32Bytes(featureSigma))

	// Step 6: CSF horizontal pass, both sides.
	c.csfX.dispatch1(cb, c.bindless,
		PC1{Width: w, Height: h, Input: ref.yycxcz.sampIdx, Output: ref.blurX.storIdx},
		csfExtra(axisX))
	c.csfX.dispatch1(cb, c.bindless,
		PC1{Width: w, Height: h, Input: test.yycxcz.sampIdx, Output: test.blurX.storIdx},
		csfExtra(axisX))

	cb.EndWork()

	// Step 7: barrier on the two X-blurred images before they are
	// sampled by the vertical pass.
	cb.Transition([]driver.Transition{
		ref.blurX.sample(driver.SComputeShading, driver.AAnyWrite),
		test.blurX.sample(driver.SComputeShading, driver.AAnyWrite),
	})

	cb.BeginWork(false)

	// Step 8: CSF vertical pass, both sides.
	c.csfY.dispatch1(cb, c.bindless,
		PC1{Width: w, Height: h, Input: ref.blurX.sampIdx, Output: ref.blurred.storIdx},
		csfExtra(axisY))
	c.csfY.dispatch1(cb, c.bindless,
		PC1{Width: w, Height: h, Input: test.blurX.sampIdx, Output: test.blurred.storIdx},
		csfExtra(axisY))

	cb.EndWork()

	// Step 9: barrier on the two fully-blurred images before compare
	// reads them through the storage-image array.
	cb.Transition([]driver.Transition{
		ref.blurred.raw(driver.SComputeShading, driver.AAnyWrite),
		test.blurred.raw(driver.SComputeShading, driver.AAnyWrite),
	})

	cb.BeginWork(false)

	// Step 10: color compare (modified HyAB) into the error image.
	c.compare.dispatch2(cb, c.bindless, PC2{
		Width: w, Height: h,
		Input1: ref.blurred.storIdx, Input2: test.blurred.storIdx,
		Output1: errImg.storIdx,
	}, float32Bytes(compareQC))

	cb.EndWork()

	// Step 11: write-after-write barrier on the error image.
	cb.Transition([]driver.Transition{errImg.waw(driver.SComputeShading)})

	cb.BeginWork(false)

	// Step 12: feature amplification, reads and rewrites the error
	// image in place.
	c.featureY.dispatch2(cb, c.bindless, PC2{
		Width: w, Height: h,
		Input1: ref.featureBlurX.storIdx, Input2: test.featureBlurX.storIdx,
		Output1: errImg.storIdx,
	}, float32Bytes(featureSigma))

	cb.EndWork()

	// Step 13: read-after-write barrier before the histogram pass.
	cb.Transition([]driver.Transition{errImg.raw(driver.SComputeShading, driver.AAnyWrite)})

	cb.BeginWork(false)

	// Step 14: histogram summarize.
	c.summarize.dispatch2(cb, c.bindless, PC2{
		Width: w, Height: h, Input1: errImg.storIdx, Output1: c.histogramIdx,
	}, nil)

	cb.EndWork()

	// Step 15: optional color-mapped output.
	if errColor != nil {
		cb.Transition([]driver.Transition{errImg.sample(driver.SFragmentShading, driver.AAnyRead)})

		tableIdx := c.colorTableIdx[opts.ColorMap]
		pc := append(float32Bytes(float32(w), float32(h)), int32Bytes(int32(errImg.sampIdx), int32(tableIdx))...)
		c.colorMap.draw(cb, c.bindless, errColor.view, w, h, pc)

		cb.Transition([]driver.Transition{errColor.blit()})

		cb.BeginBlit(false)
		cb.CopyImgToBuf(&driver.BufImgCopy{
			Buf:    readback,
			Stride: [2]int64{int64(w), int64(h)},
			Img:    errColor.img,
			Size:   driver.Dim3D{Width: w, Height: h, Depth: 1},
		})
		cb.CopyBuffer(&driver.BufferCopy{
			From: c.histogram, To: c.histogramReadback, Size: histogramBins * 4,
		})
		cb.EndBlit()
	} else {
		cb.BeginBlit(false)
		cb.CopyBuffer(&driver.BufferCopy{
			From: c.histogram, To: c.histogramReadback, Size: histogramBins * 4,
		})
		cb.EndBlit()
	}

	return cb.End()
}

func (c *Context) uploadSource(cb driver.CmdBuffer, s *side) {
	cb.CopyBufToImg(&driver.BufImgCopy{
		Buf:    s.staging,
		Stride: [2]int64{int64(s.source.w), int64(s.source.h)},
		Img:    s.source.img,
		Size:   driver.Dim3D{Width: s.source.w, Height: s.source.h, Depth: 1},
	})
}

// drawYyCxCz builds the yycxcz.frag push-constant block: extent,
// uvOffset/uvScale (always the full image; there is no sub-rect
// rendering), the sampled-image index, the tonemap selector, the
// linear exposure multiplier and the alpha-premultiply flag.
func (c *Context) drawYyCxCz(cb driver.CmdBuffer, s *side, w, h int, exposureStops float32, tonemap Tonemap) {
	handleAlpha := int32(0)
	if s.handleAlpha {
		handleAlpha = 1
	}
	pc := float32Bytes(float32(w), float32(h), 0, 0, 1, 1)
	pc = append(pc, int32Bytes(int32(s.source.sampIdx), int32(tonemap))...)
	pc = append(pc, float32Bytes(exposureScale(exposureStops))...)
	pc = append(pc, int32Bytes(handleAlpha)...)
	c.yycxcz.draw(cb, c.bindless, s.yycxcz.view, w, h, pc)
}

func csfExtra(axis int32) []byte {
	return append(int32Bytes(axis), float32Bytes(csfSigmaY, csfSigmaCx, csfSigmaCz)...)
}

// exposureScale converts an exposure setting in photographic stops
// to the linear multiplier AnalyzeHDR applies before tonemapping.
func exposureScale(stops float32) float32 {
	return float32(math.Exp2(float64(stops)))
}
