// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package viewer implements the optional debug window that presents
// a Context's error_color output as Analyze/AnalyzeHDR runs, for
// interactive inspection during development. It is never required
// for a correct Analyze/AnalyzeHDR call.
package viewer

import (
	"errors"
	"image"

	"golang.org/x/image/draw"

	"github.com/flopdiff/flop/driver"
	"github.com/flopdiff/flop/internal/spirv"
	"github.com/flopdiff/flop/wsi"
)

// ErrNoPresent means the GPU in use does not implement
// driver.Presenter, so no swapchain can be created.
var ErrNoPresent = errors.New("viewer: GPU does not support presentation")

// Viewer owns a native window, the swapchain that presents into it,
// and a small single-texture graphics pipeline used to blit a
// CPU-scaled preview into the next swapchain image. Show is meant to
// be called once per Analyze/AnalyzeHDR call; it scales its input to
// the window's extent with golang.org/x/image/draw before upload,
// since the window size rarely matches error_color's.
type Viewer struct {
	gpu      driver.GPU
	bindless driver.BindlessSet

	win wsi.Window
	sc  driver.Swapchain
	cb  driver.CmdBuffer
	pl  driver.Pipeline

	width, height int

	tex     driver.Image
	view    driver.ImageView
	sampIdx int
	staging driver.Buffer
	pix     *image.RGBA

	uploaded bool
}

// New creates a window of the given size, a swapchain targeting it
// and the preview texture/pipeline used by Show. gpu must implement
// driver.Presenter. bindless and table are the Context's own bindless
// descriptor set: the viewer allocates one sampled-image slot from it
// rather than keeping a descriptor heap of its own.
func New(gpu driver.GPU, bindless driver.BindlessSet, table driver.DescTable, width, height int, title string) (*Viewer, error) {
	pres, ok := gpu.(driver.Presenter)
	if !ok {
		return nil, ErrNoPresent
	}
	win, err := wsi.NewWindow(width, height, title)
	if err != nil {
		return nil, err
	}
	v := &Viewer{gpu: gpu, bindless: bindless, win: win, width: width, height: height}
	if err := v.init(pres, table); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

func (v *Viewer) init(pres driver.Presenter, table driver.DescTable) error {
	if err := v.win.Map(); err != nil {
		return err
	}
	sc, err := pres.NewSwapchain(v.win, 2)
	if err != nil {
		return err
	}
	v.sc = sc

	cb, err := v.gpu.NewCmdBuffer()
	if err != nil {
		return err
	}
	v.cb = cb

	vsc, err := v.loadShaderCode(spirv.YyCxCzVert)
	if err != nil {
		return err
	}
	defer vsc.Destroy()
	fsc, err := v.loadShaderCode(spirv.BlitFrag)
	if err != nil {
		return err
	}
	defer fsc.Destroy()
	pl, err := v.gpu.NewPipeline(&driver.GraphState{
		VertFunc: driver.ShaderFunc{Code: vsc, Name: "main"},
		FragFunc: driver.ShaderFunc{Code: fsc, Name: "main"},
		Desc:     table,
		Topology: driver.TTriangle,
		Raster: driver.RasterState{
			Clockwise: true,
			Cull:      driver.CNone,
			Fill:      driver.FFill,
		},
		Samples: 1,
		Blend: driver.BlendState{
			Color: []driver.ColorBlend{{WriteMask: driver.CAll}},
		},
		Color: []driver.PixelFmt{v.sc.Format()},
	})
	if err != nil {
		return err
	}
	v.pl = pl

	img, err := v.gpu.NewImage(driver.RGBA8un, driver.Dim3D{Width: v.width, Height: v.height, Depth: 1}, 1, 1, 1,
		driver.UShaderSample)
	if err != nil {
		return err
	}
	v.tex = img
	view, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	if err != nil {
		return err
	}
	v.view = view
	idx, err := v.bindless.AllocImage(view, false)
	if err != nil {
		return err
	}
	v.sampIdx = idx

	staging, err := v.gpu.NewBuffer(int64(v.width*v.height*4), true, driver.UShaderRead)
	if err != nil {
		return err
	}
	v.staging = staging
	v.pix = image.NewRGBA(image.Rect(0, 0, v.width, v.height))
	return nil
}

func (v *Viewer) loadShaderCode(name string) (driver.ShaderCode, error) {
	b, err := spirv.Load(name)
	if err != nil {
		return nil, err
	}
	return v.gpu.NewShaderCode(b)
}

// Show scales src into the window's extent with golang.org/x/image/draw
// (bilinear: the preview need not preserve hard error-bin edges the
// way error_color's own output does), uploads it into the preview
// texture and presents it, waiting for the present to complete before
// returning.
func (v *Viewer) Show(src *image.RGBA) error {
	wsi.Dispatch()

	draw.ApproxBiLinear.Scale(v.pix, v.pix.Bounds(), src, src.Bounds(), draw.Src, nil)
	copy(v.staging.Bytes(), v.pix.Pix)

	if err := v.cb.Reset(); err != nil {
		return err
	}
	if err := v.cb.Begin(); err != nil {
		return err
	}

	idx, err := v.sc.Next(v.cb)
	if err != nil {
		if errors.Is(err, driver.ErrSwapchain) {
			if rerr := v.sc.Recreate(); rerr != nil {
				return rerr
			}
		}
		return err
	}
	dst := v.sc.Views()[idx]

	texBefore := driver.LUndefined
	syncBefore := driver.SNone
	accBefore := driver.ANone
	if v.uploaded {
		texBefore = driver.LShaderRead
		syncBefore = driver.SFragmentShading
		accBefore = driver.AShaderRead
	}

	v.cb.Transition([]driver.Transition{{
		Barrier: driver.Barrier{
			SyncBefore:   syncBefore,
			SyncAfter:    driver.SCopy,
			AccessBefore: accBefore,
			AccessAfter:  driver.ACopyWrite,
		},
		LayoutBefore: texBefore,
		LayoutAfter:  driver.LCopyDst,
		IView:        v.view,
	}})

	v.cb.BeginBlit(false)
	v.cb.CopyBufToImg(&driver.BufImgCopy{
		Buf:    v.staging,
		Stride: [2]int64{int64(v.width), int64(v.height)},
		Img:    v.tex,
		Size:   driver.Dim3D{Width: v.width, Height: v.height, Depth: 1},
	})
	v.cb.EndBlit()

	v.cb.Transition([]driver.Transition{
		{
			Barrier: driver.Barrier{
				SyncBefore:   driver.SCopy,
				SyncAfter:    driver.SFragmentShading,
				AccessBefore: driver.ACopyWrite,
				AccessAfter:  driver.AShaderRead,
			},
			LayoutBefore: driver.LCopyDst,
			LayoutAfter:  driver.LShaderRead,
			IView:        v.view,
		},
		{
			Barrier: driver.Barrier{
				SyncBefore:   driver.SNone,
				SyncAfter:    driver.SColorOutput,
				AccessBefore: driver.ANone,
				AccessAfter:  driver.AColorWrite,
			},
			LayoutBefore: driver.LUndefined,
			LayoutAfter:  driver.LColorTarget,
			IView:        dst,
		},
	})
	v.uploaded = true

	v.cb.BeginPass(v.width, v.height, 1, []driver.ColorTarget{{
		Color: dst,
		Load:  driver.LDontCare,
		Store: driver.SStore,
	}}, nil)
	v.cb.SetPipeline(v.pl)
	v.cb.SetViewport([]driver.Viewport{{Width: float32(v.width), Height: float32(v.height), Zfar: 1}})
	v.cb.SetScissor([]driver.Scissor{{Width: v.width, Height: v.height}})
	v.cb.SetPushConstants(driver.SFragment, 0, int32Bytes(v.sampIdx))
	v.bindless.Bind(v.cb, false)
	v.cb.Draw(3, 1, 0, 0)
	v.cb.EndPass()

	v.cb.Transition([]driver.Transition{{
		Barrier: driver.Barrier{
			SyncBefore:   driver.SColorOutput,
			SyncAfter:    driver.SResolve,
			AccessBefore: driver.AColorWrite,
			AccessAfter:  driver.ANone,
		},
		LayoutBefore: driver.LColorTarget,
		LayoutAfter:  driver.LPresent,
		IView:        dst,
	}})

	if err := v.sc.Present(idx, v.cb); err != nil {
		return err
	}
	if err := v.cb.End(); err != nil {
		return err
	}

	ch := make(chan error, 1)
	v.gpu.Commit([]driver.CmdBuffer{v.cb}, ch)
	return <-ch
}

func int32Bytes(v int) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// Close destroys the preview texture, pipeline, command buffer,
// swapchain and window, in that order.
func (v *Viewer) Close() {
	if v.staging != nil {
		v.staging.Destroy()
	}
	if v.sampIdx >= 0 && v.bindless != nil && v.view != nil {
		v.bindless.FreeImage(v.sampIdx, false)
	}
	if v.view != nil {
		v.view.Destroy()
	}
	if v.tex != nil {
		v.tex.Destroy()
	}
	if v.pl != nil {
		v.pl.Destroy()
	}
	if v.cb != nil {
		v.cb.Destroy()
	}
	if v.sc != nil {
		v.sc.Destroy()
	}
	if v.win != nil {
		v.win.Close()
	}
}
