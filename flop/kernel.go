// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

import (
	"encoding/binary"
	"math"

	"github.com/flopdiff/flop/driver"
)

// kernel is a compiled compute pipeline plus the fixed per-axis
// workgroup size it was built with. Dispatch grid size is computed
// from the target extent, never hard-coded by the caller.
type kernel struct {
	pl       driver.Pipeline
	wgX, wgY int
}

func newKernel(gpu driver.GPU, code []byte, table driver.DescTable, wgX, wgY int) (*kernel, error) {
	sc, err := gpu.NewShaderCode(code)
	if err != nil {
		return nil, err
	}
	pl, err := gpu.NewPipeline(&driver.CompState{
		Func: driver.ShaderFunc{Code: sc, Name: "main"},
		Desc: table,
	})
	if err != nil {
		sc.Destroy()
		return nil, err
	}
	return &kernel{pl: pl, wgX: wgX, wgY: wgY}, nil
}

func (k *kernel) destroy() { k.pl.Destroy() }

// groups computes the dispatch grid for a w x h target under this
// kernel's workgroup size: ceil(w/wgX) x ceil(h/wgY) x 1.
func (k *kernel) groups(w, h int) (x, y, z int) {
	x = (w + k.wgX - 1) / k.wgX
	y = (h + k.wgY - 1) / k.wgY
	z = 1
	return
}

// PC1 is the push-constant layout for single-input kernels: the CSF
// filter passes bind into this shape (with fields beyond
// Extent/Input/Output populated per-kernel
// via the raw variants below, since their blocks carry extra scalar
// parameters the generic PC1/PC2 shapes do not need to know about).
type PC1 struct {
	Width, Height int
	Input, Output int
}

// bytes lays out PC1 the way the shaders expect it: two floats
// (extent), two ints.
func (p PC1) bytes() []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(float32(p.Width)))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(float32(p.Height)))
	binary.LittleEndian.PutUint32(b[8:12], uint32(p.Input))
	binary.LittleEndian.PutUint32(b[12:16], uint32(p.Output))
	return b
}

// PC2 is the push-constant layout for compare/pair kernels: both
// feature-detector passes, color compare and summarize (the latter
// with Input2/Output2 unused, kept present so the block shape stays
// stable across dispatch calls).
type PC2 struct {
	Width, Height                 int
	Input1, Input2                int
	Output1, Output2               int
}

func (p PC2) bytes() []byte {
	b := make([]byte, 24)
	binary.LittleEndian.PutUint32(b[0:4], math.Float32bits(float32(p.Width)))
	binary.LittleEndian.PutUint32(b[4:8], math.Float32bits(float32(p.Height)))
	binary.LittleEndian.PutUint32(b[8:12], uint32(p.Input1))
	binary.LittleEndian.PutUint32(b[12:16], uint32(p.Input2))
	binary.LittleEndian.PutUint32(b[16:20], uint32(p.Output1))
	binary.LittleEndian.PutUint32(b[20:24], uint32(p.Output2))
	return b
}

// dispatch1 records a bind-pipeline, set-push-constants (PC1 shape,
// plus any trailing scalar parameters), bindless-set-bind and
// dispatch sequence for a single-input kernel.
func (k *kernel) dispatch1(cb driver.CmdBuffer, bindless driver.BindlessSet, pc PC1, extra []byte) {
	cb.SetPipeline(k.pl)
	data := pc.bytes()
	if len(extra) > 0 {
		data = append(data, extra...)
	}
	cb.SetPushConstants(driver.SCompute, 0, data)
	bindless.Bind(cb, true)
	x, y, z := k.groups(pc.Width, pc.Height)
	cb.Dispatch(x, y, z)
}

// dispatch2 is the pair/compare-kernel equivalent of dispatch1.
func (k *kernel) dispatch2(cb driver.CmdBuffer, bindless driver.BindlessSet, pc PC2, extra []byte) {
	cb.SetPipeline(k.pl)
	data := pc.bytes()
	if len(extra) > 0 {
		data = append(data, extra...)
	}
	cb.SetPushConstants(driver.SCompute, 0, data)
	bindless.Bind(cb, true)
	x, y, z := k.groups(pc.Width, pc.Height)
	cb.Dispatch(x, y, z)
}

// float32Bytes little-endian encodes a slice of float32 parameters,
// for appending to a PC1/PC2 block as the kernel-specific trailing
// fields (sigmas, curve parameters). Integer fields such as
// direction and table indices go through int32Bytes instead.
func float32Bytes(vs ...float32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[4*i:4*i+4], math.Float32bits(v))
	}
	return b
}

func int32Bytes(vs ...int32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[4*i:4*i+4], uint32(v))
	}
	return b
}
