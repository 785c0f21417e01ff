// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

// Summary reports the outcome of a successful Analyze/AnalyzeHDR
// call.
type Summary struct {
	Width, Height       int
	MillisecondsElapsed int
}

// Histogram returns the 32 error-bucket counts from the most recent
// successful Analyze/AnalyzeHDR call. Bin i counts pixels whose error
// falls in [i/32, (i+1)/32). The sum of all bins equals Width*Height
// of that call's Summary.
type Histogram [32]uint32

// Tonemap selects the HDR exposure curve AnalyzeHDR applies before
// color-space conversion. TonemapNone performs a plain sRGB decode
// and is the only mode Analyze (the LDR entry point) uses.
type Tonemap int

const (
	TonemapNone Tonemap = iota
	TonemapACES
	TonemapReinhard
	TonemapHable
)
