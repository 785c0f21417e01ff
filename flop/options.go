// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package flop

// Options configures a Context at construction time.
// Its zero value selects the default, fastest-to-initialize
// device and disables validation and the debug viewer.
type Options struct {
	// EnableValidation requests that the Vulkan validation layer
	// be loaded, when the underlying driver supports it. It has
	// no effect on output; it only affects diagnostics emitted to
	// the process log.
	EnableValidation bool

	// RequireSwapchain opts into the debug viewer (flop/viewer):
	// a native window presenting error_color as Analyze/AnalyzeHDR
	// runs. Most callers leave this false, since FLIP is normally
	// run headless as part of an image comparison pipeline.
	RequireSwapchain bool

	// DeviceSubstr, if non-empty, restricts device selection to
	// the first physical device whose name contains this
	// substring. An empty string selects the highest-weighted
	// device as usual.
	DeviceSubstr string

	// BindlessCapacity bounds the number of live entries in each
	// of the bindless descriptor set's resource arrays. Zero
	// selects defaultBindlessCapacity, which is far larger than a
	// single in-flight Analyze call needs (the five derived images,
	// the three shared outputs, the colormap table, and a small
	// margin) so that a realistic number of concurrent allocations
	// never exhausts the set.
	BindlessCapacity int
}

const defaultBindlessCapacity = 10000

func (o *Options) capacity() int {
	if o == nil || o.BindlessCapacity <= 0 {
		return defaultBindlessCapacity
	}
	return o.BindlessCapacity
}
