// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package spirv embeds the precompiled SPIR-V binaries for every
// shader program flop needs, generated from the GLSL sources under
// flop/shaders by `go generate`.
//
// bin/*.spv is not checked in: it is build output, produced by
// running `go generate` with glslc on PATH (see gen.go). A checkout
// that has not run generation will fail to compile this package,
// not silently embed placeholder bytecode with no entry point.
package spirv

import "embed"

//go:generate go run gen.go

//go:embed bin/*.spv
var bin embed.FS

// program names, matching the basenames under bin/.
const (
	YyCxCzVert   = "yycxcz.vert.spv"
	YyCxCzFrag   = "yycxcz.frag.spv"
	CSF          = "csf.comp.spv"
	FeatureX     = "feature_x.comp.spv"
	FeatureY     = "feature_y.comp.spv"
	Compare      = "compare.comp.spv"
	Summarize    = "summarize.comp.spv"
	ColorMapFrag = "colormap.frag.spv"
	BlitFrag     = "blit.frag.spv"
)

// Load returns the SPIR-V bytecode for the named program.
func Load(name string) ([]byte, error) {
	return bin.ReadFile("bin/" + name)
}
