// Copyright 2022 Gustavo C. Viegas. All rights reserved.

//go:build ignore

// gen.go invokes glslc to compile flop/shaders/*.{vert,frag,comp}
// into the SPIR-V binaries embedded by spirv.go. Run via `go generate`
// whenever a shader source changes; the committed bin/*.spv files are
// build artifacts of this program, not hand-written.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

var sources = map[string]string{
	"yycxcz.vert.spv":   "yycxcz.vert",
	"yycxcz.frag.spv":   "yycxcz.frag",
	"csf.comp.spv":       "csf.comp",
	"feature_x.comp.spv": "feature_x.comp",
	"feature_y.comp.spv": "feature_y.comp",
	"compare.comp.spv":   "compare.comp",
	"summarize.comp.spv": "summarize.comp",
	"colormap.frag.spv":  "colormap.frag",
	"blit.frag.spv":      "blit.frag",
}

func main() {
	srcDir := filepath.Join("..", "..", "flop", "shaders")
	outDir := "bin"
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for out, src := range sources {
		in := filepath.Join(srcDir, src)
		outPath := filepath.Join(outDir, out)
		cmd := exec.Command("glslc", "--target-env=vulkan1.3", "-o", outPath, in)
		cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
		if err := cmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "compiling %s: %v\n", src, err)
			os.Exit(1)
		}
	}
}
