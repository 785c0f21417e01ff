// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

import "github.com/flopdiff/flop/driver"

// fullscreenPass is a 3-vertex, no-vertex-buffer graphics pipeline
// drawn into a single dynamic-rendering color attachment. It is used
// by the YyCxCz transform (reference, then test) and by the error
// color-map pass.
type fullscreenPass struct {
	pl driver.Pipeline
}

func newFullscreenPass(gpu driver.GPU, vert, frag []byte, table driver.DescTable, color driver.PixelFmt) (*fullscreenPass, error) {
	vsc, err := gpu.NewShaderCode(vert)
	if err != nil {
		return nil, err
	}
	fsc, err := gpu.NewShaderCode(frag)
	if err != nil {
		vsc.Destroy()
		return nil, err
	}
	pl, err := gpu.NewPipeline(&driver.GraphState{
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
		Color: []driver.PixelFmt{color},
	})
	if err != nil {
		vsc.Destroy()
		fsc.Destroy()
		return nil, err
	}
	return &fullscreenPass{pl: pl}, nil
}

func (p *fullscreenPass) destroy() { p.pl.Destroy() }

// draw records a full BeginPass/viewport-scissor/bind/push-constants
// /draw/EndPass sequence targeting a single color attachment.
func (p *fullscreenPass) draw(cb driver.CmdBuffer, bindless driver.BindlessSet, target driver.ImageView, w, h int, pc []byte) {
	cb.BeginPass(w, h, 1, []driver.ColorTarget{{
		Color: target,
		Load:  driver.LDontCare,
		Store: driver.SStore,
	}}, nil)
	cb.SetPipeline(p.pl)
	cb.SetViewport([]driver.Viewport{{Width: float32(w), Height: float32(h), Zfar: 1}})
	cb.SetScissor([]driver.Scissor{{Width: w, Height: h}})
	if len(pc) > 0 {
		cb.SetPushConstants(driver.SFragment, 0, pc)
	}
	bindless.Bind(cb, false)
	cb.Draw(3, 1, 0, 0)
	cb.EndPass()
}
