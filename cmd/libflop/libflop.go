// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Command libflop builds a C-callable shared library exposing flop's
// Analyze/AnalyzeHDR as a small, process-global C ABI, for embedding
// FLIP comparison into non-Go host applications.
package main

/*
#include <stdint.h>

typedef struct FlopSummary {
	int32_t width;
	int32_t height;
	int32_t milliseconds_elapsed;
} FlopSummary;
*/
import "C"

import (
	"errors"
	"sync"

	"github.com/flopdiff/flop/flop"
)

var (
	ctx *flop.Context

	mu      sync.Mutex
	lastErr string
	wantVal bool
)

func setError(err error) C.int {
	mu.Lock()
	defer mu.Unlock()
	if err == nil {
		return 0
	}
	lastErr = message(err)
	return 1
}

// message reports the innermost cause of a flop error: flop.Context
// wraps every failure in a class sentinel (ErrInput/ErrDevice/
// ErrLost) for errors.Is, but the ABI surface documents bare cause
// text (e.g. "Reference and test images do not have matching
// extents.") with no class prefix.
func message(err error) string {
	if u := errors.Unwrap(err); u != nil {
		return u.Error()
	}
	return err.Error()
}

// flop_get_error returns the last reported error message, or an empty
// string if no call has failed yet. A successful call does not clear
// the message. The returned pointer is valid until the next failing
// call.
//
//export flop_get_error
func flop_get_error() *C.char {
	mu.Lock()
	defer mu.Unlock()
	return C.CString(lastErr)
}

// flop_config_enable_validation requests the Vulkan validation layer
// at the next flop_init call. It has no effect once a Context already
// exists.
//
//export flop_config_enable_validation
func flop_config_enable_validation() {
	mu.Lock()
	wantVal = true
	mu.Unlock()
}

// flop_init creates the process-global Context if one does not
// already exist. ext_count/ext_names are unused beyond a boolean
// test: a nonzero ext_count opts into swapchain support for the
// optional debug viewer. Returns 0 on success, 1 on failure;
// idempotent after the first successful call.
//
//export flop_init
func flop_init(extCount C.int, extNames **C.char) C.int {
	mu.Lock()
	if ctx != nil {
		mu.Unlock()
		return 0
	}
	opts := &flop.Options{
		EnableValidation: wantVal,
		RequireSwapchain: extCount > 0,
	}
	mu.Unlock()
	c, err := flop.Open(opts)
	if err != nil {
		return setError(err)
	}
	mu.Lock()
	ctx = c
	mu.Unlock()
	return 0
}

// flop_analyze runs the LDR comparison path. out_path_or_null and
// summary_or_null may each be NULL to skip writing an output image or
// reporting a summary, respectively.
//
//export flop_analyze
func flop_analyze(refPath, testPath, outPath *C.char, summary *C.FlopSummary) C.int {
	if ctx == nil {
		return setError(errNotInitialized())
	}
	s, err := ctx.Analyze(C.GoString(refPath), C.GoString(testPath), &flop.AnalyzeOptions{
		OutputPath: goPathOrEmpty(outPath),
	})
	if err != nil {
		return setError(err)
	}
	fillSummary(summary, s)
	return 0
}

// flop_analyze_hdr runs the HDR comparison path. tonemap_index follows
// the ABI's own offset convention: 0 selects ACES, 1 Reinhard, 2
// Hable (flop.Tonemap itself reserves 0 for "no tonemap").
//
//export flop_analyze_hdr
func flop_analyze_hdr(refPath, testPath, outPath *C.char, exposureStops C.float, tonemapIndex C.int, summary *C.FlopSummary) C.int {
	if ctx == nil {
		return setError(errNotInitialized())
	}
	tonemap := flop.Tonemap(int(tonemapIndex) + 1)
	s, err := ctx.AnalyzeHDR(C.GoString(refPath), C.GoString(testPath), float32(exposureStops), tonemap, &flop.AnalyzeOptions{
		OutputPath: goPathOrEmpty(outPath),
	})
	if err != nil {
		return setError(err)
	}
	fillSummary(summary, s)
	return 0
}

func goPathOrEmpty(p *C.char) string {
	if p == nil {
		return ""
	}
	return C.GoString(p)
}

func fillSummary(dst *C.FlopSummary, s *flop.Summary) {
	if dst == nil {
		return
	}
	dst.width = C.int32_t(s.Width)
	dst.height = C.int32_t(s.Height)
	dst.milliseconds_elapsed = C.int32_t(s.MillisecondsElapsed)
}

func errNotInitialized() error {
	return errors.New("flop: flop_init was not called, or failed")
}

func main() {}
