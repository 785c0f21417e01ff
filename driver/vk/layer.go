// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

// #include <stdlib.h>
// #include <proc.h>
import "C"

import "unsafe"

// EnableValidation requests that the Khronos validation layer be
// enabled on the next Driver.Open call, provided it is advertised
// by the Vulkan loader. It has no effect on an already open Driver.
var EnableValidation bool

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// instanceLayers returns the names of all instance layers advertised
// by the Vulkan implementation.
func instanceLayers() (layers []string, err error) {
	var n C.uint32_t
	if err = checkResult(C.vkEnumerateInstanceLayerProperties(&n, nil)); err != nil {
		return
	}
	if n == 0 {
		return
	}
	p := (*C.VkLayerProperties)(C.malloc(C.sizeof_VkLayerProperties * C.size_t(n)))
	defer C.free(unsafe.Pointer(p))
	if err = checkResult(C.vkEnumerateInstanceLayerProperties(&n, p)); err != nil {
		return
	}
	props := unsafe.Slice(p, n)
	layers = make([]string, n)
	for i, prop := range props {
		prop.layerName[len(prop.layerName)-1] = 0
		layers[i] = C.GoString(&prop.layerName[0])
	}
	return
}

// setInstanceLayers sets the enabledLayerCount/ppEnabledLayerNames
// fields of info when EnableValidation is set and the validation
// layer is present. It is a silent no-op otherwise: validation is a
// diagnostic aid, never a requirement for correct operation.
// Call the free closure to deallocate the C array/strings.
func setInstanceLayers(info *C.VkInstanceCreateInfo) (free func()) {
	free = func() {}
	if !EnableValidation {
		return
	}
	set, err := instanceLayers()
	if err != nil {
		return
	}
	for _, l := range set {
		if l == validationLayerName {
			name := C.CString(validationLayerName)
			names := (**C.char)(C.malloc(C.size_t(unsafe.Sizeof(name))))
			*names = name
			info.enabledLayerCount = 1
			info.ppEnabledLayerNames = names
			free = func() {
				C.free(unsafe.Pointer(name))
				C.free(unsafe.Pointer(names))
			}
			return
		}
	}
}
