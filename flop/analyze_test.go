// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/flopdiff/flop/flop/colormap"
)

func writeSolidPNG(t *testing.T, path string, w, h int, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create(%q): %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
}

func requireContext(t *testing.T) *Context {
	t.Helper()
	if tCtx == nil {
		t.Skip("no GPU available in this environment")
	}
	return tCtx
}

func TestAnalyzeIdenticalImagesZeroHistogram(t *testing.T) {
	c := requireContext(t)
	dir := t.TempDir()
	refPath := filepath.Join(dir, "ref.png")
	testPath := filepath.Join(dir, "test.png")
	writeSolidPNG(t, refPath, 16, 16, color.NRGBA{128, 128, 128, 255})
	writeSolidPNG(t, testPath, 16, 16, color.NRGBA{128, 128, 128, 255})

	s, err := c.Analyze(refPath, testPath, nil)
	if err != nil {
		t.Fatalf("Analyze(): %v", err)
	}
	if s.Width != 16 || s.Height != 16 {
		t.Errorf("Analyze(): extent\nhave %dx%d\nwant 16x16", s.Width, s.Height)
	}
	h := c.LastHistogram()
	if h[0] != 16*16 {
		t.Errorf("LastHistogram()[0]\nhave %d\nwant %d (every pixel in the zero-error bin)", h[0], 16*16)
	}
	for i := 1; i < len(h); i++ {
		if h[i] != 0 {
			t.Errorf("LastHistogram()[%d]\nhave %d\nwant 0", i, h[i])
		}
	}
}

func TestAnalyzeBlackVsWhiteMaxError(t *testing.T) {
	c := requireContext(t)
	dir := t.TempDir()
	refPath := filepath.Join(dir, "ref.png")
	testPath := filepath.Join(dir, "test.png")
	writeSolidPNG(t, refPath, 8, 8, color.NRGBA{0, 0, 0, 255})
	writeSolidPNG(t, testPath, 8, 8, color.NRGBA{255, 255, 255, 255})

	if _, err := c.Analyze(refPath, testPath, nil); err != nil {
		t.Fatalf("Analyze(): %v", err)
	}
	h := c.LastHistogram()
	if h[len(h)-1] == 0 {
		t.Error("LastHistogram(): top bin is empty for a black-vs-white comparison")
	}
}

func TestAnalyzeMismatchedExtents(t *testing.T) {
	c := requireContext(t)
	dir := t.TempDir()
	refPath := filepath.Join(dir, "ref.png")
	testPath := filepath.Join(dir, "test.png")
	writeSolidPNG(t, refPath, 8, 8, color.NRGBA{0, 0, 0, 255})
	writeSolidPNG(t, testPath, 16, 16, color.NRGBA{0, 0, 0, 255})

	_, err := c.Analyze(refPath, testPath, nil)
	if err == nil {
		t.Fatal("Analyze(): error\nhave nil\nwant non-nil")
	}
	want := "flop: invalid input: Reference and test images do not have matching extents."
	if err.Error() != want {
		t.Errorf("Analyze(): error\nhave %q\nwant %q", err.Error(), want)
	}
}

func TestAnalyzeMissingPath(t *testing.T) {
	c := requireContext(t)
	dir := t.TempDir()
	testPath := filepath.Join(dir, "test.png")
	writeSolidPNG(t, testPath, 8, 8, color.NRGBA{0, 0, 0, 255})

	_, err := c.Analyze(filepath.Join(dir, "missing.png"), testPath, nil)
	if err == nil {
		t.Fatal("Analyze(): error\nhave nil\nwant non-nil")
	}
	want := "flop: invalid input: Invalid reference path."
	if err.Error() != want {
		t.Errorf("Analyze(): error\nhave %q\nwant %q", err.Error(), want)
	}
}

func TestAnalyzeWritesOutputImage(t *testing.T) {
	c := requireContext(t)
	dir := t.TempDir()
	refPath := filepath.Join(dir, "ref.png")
	testPath := filepath.Join(dir, "test.png")
	outPath := filepath.Join(dir, "out.png")
	writeSolidPNG(t, refPath, 4, 4, color.NRGBA{10, 10, 10, 255})
	writeSolidPNG(t, testPath, 4, 4, color.NRGBA{250, 250, 250, 255})

	_, err := c.Analyze(refPath, testPath, &AnalyzeOptions{OutputPath: outPath, ColorMap: colormap.Magma})
	if err != nil {
		t.Fatalf("Analyze(): %v", err)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("Analyze(): output file not written: %v", err)
	}
}

func TestAnalyzeHDRSymmetricTonemaps(t *testing.T) {
	c := requireContext(t)
	dir := t.TempDir()
	refPath := filepath.Join(dir, "ref.png")
	testPath := filepath.Join(dir, "test.png")
	writeSolidPNG(t, refPath, 8, 8, color.NRGBA{128, 128, 128, 255})
	writeSolidPNG(t, testPath, 8, 8, color.NRGBA{128, 128, 128, 255})

	for _, tm := range []Tonemap{TonemapACES, TonemapReinhard, TonemapHable} {
		if _, err := c.AnalyzeHDR(refPath, testPath, 0, tm, nil); err != nil {
			t.Fatalf("AnalyzeHDR(tonemap=%d): %v", tm, err)
		}
		h := c.LastHistogram()
		if h[0] == 0 {
			t.Errorf("AnalyzeHDR(tonemap=%d): identical inputs produced a non-zero-error histogram", tm)
		}
	}
}
