// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package vk

// #include <stdlib.h>
// #include <proc.h>
import "C"

import (
	"errors"
	"unsafe"

	"github.com/flopdiff/flop/driver"
	"github.com/flopdiff/flop/internal/bitvec"
)

// Bindings of the single bindless descriptor set.
const (
	bindlessTexture C.uint32_t = 0 // Sampled images (read-only).
	bindlessImage   C.uint32_t = 1 // Storage images (read/write).
	bindlessBuffer  C.uint32_t = 2 // Storage buffers.
	bindlessSampler C.uint32_t = 3 // One immutable sampler.
)

// maxPushConstRange is the push constant byte range reserved in
// the bindless pipeline layout. 128 bytes is guaranteed to be
// available by the Vulkan spec (minPushConstantsSize), and is
// large enough for both the PC1 and PC2 kernel parameter blocks.
const maxPushConstRange = 128

// bindlessSet implements driver.BindlessSet.
// It owns a single descriptor set whose three resource bindings
// are runtime-sized arrays (update-after-bind, partially bound),
// plus a fourth binding for one immutable sampler. Callers obtain
// an index via AllocImage/AllocBuffer, write that index into a
// push constant, and read the resource in the shader through the
// array at that index instead of having the descriptor set
// rewritten per draw/dispatch.
type bindlessSet struct {
	d        *Driver
	layout   C.VkDescriptorSetLayout
	pool     C.VkDescriptorPool
	set      C.VkDescriptorSet
	pllayout C.VkPipelineLayout
	splr     C.VkSampler

	cap int
	tex bitvec.V[uint32]
	img bitvec.V[uint32]
	buf bitvec.V[uint32]
}

// NewBindlessSet creates a new bindless descriptor set.
func (d *Driver) NewBindlessSet(capacity int) (driver.BindlessSet, error) {
	if capacity <= 0 {
		return nil, errors.New("vk: bindless set capacity must be positive")
	}

	splr, err := d.newImmutableSampler()
	if err != nil {
		return nil, err
	}

	const nbind = 4
	pbind := (*C.VkDescriptorSetLayoutBinding)(C.malloc(nbind * C.sizeof_VkDescriptorSetLayoutBinding))
	defer C.free(unsafe.Pointer(pbind))
	sbind := unsafe.Slice(pbind, nbind)
	sbind[0] = C.VkDescriptorSetLayoutBinding{
		binding:         bindlessTexture,
		descriptorType:  C.VK_DESCRIPTOR_TYPE_SAMPLED_IMAGE,
		descriptorCount: C.uint32_t(capacity),
		stageFlags:      C.VK_SHADER_STAGE_COMPUTE_BIT | C.VK_SHADER_STAGE_FRAGMENT_BIT,
	}
	sbind[1] = C.VkDescriptorSetLayoutBinding{
		binding:         bindlessImage,
		descriptorType:  C.VK_DESCRIPTOR_TYPE_STORAGE_IMAGE,
		descriptorCount: C.uint32_t(capacity),
		stageFlags:      C.VK_SHADER_STAGE_COMPUTE_BIT | C.VK_SHADER_STAGE_FRAGMENT_BIT,
	}
	sbind[2] = C.VkDescriptorSetLayoutBinding{
		binding:         bindlessBuffer,
		descriptorType:  C.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER,
		descriptorCount: C.uint32_t(capacity),
		stageFlags:      C.VK_SHADER_STAGE_COMPUTE_BIT | C.VK_SHADER_STAGE_FRAGMENT_BIT,
	}
	sbind[3] = C.VkDescriptorSetLayoutBinding{
		binding:            bindlessSampler,
		descriptorType:     C.VK_DESCRIPTOR_TYPE_SAMPLER,
		descriptorCount:    1,
		stageFlags:         C.VK_SHADER_STAGE_COMPUTE_BIT | C.VK_SHADER_STAGE_FRAGMENT_BIT,
		pImmutableSamplers: &splr,
	}

	const flag = C.VkDescriptorBindingFlags(
		C.VK_DESCRIPTOR_BINDING_UPDATE_AFTER_BIND_BIT |
			C.VK_DESCRIPTOR_BINDING_PARTIALLY_BOUND_BIT)
	pflags := (*C.VkDescriptorBindingFlags)(C.malloc(nbind * C.sizeof_VkDescriptorBindingFlags))
	defer C.free(unsafe.Pointer(pflags))
	sflags := unsafe.Slice(pflags, nbind)
	sflags[0], sflags[1], sflags[2] = flag, flag, flag
	sflags[3] = 0 // The immutable sampler binding needs no special flags.

	bindFlagsInfo := C.VkDescriptorSetLayoutBindingFlagsCreateInfo{
		sType:         C.VK_STRUCTURE_TYPE_DESCRIPTOR_SET_LAYOUT_BINDING_FLAGS_CREATE_INFO,
		bindingCount:  nbind,
		pBindingFlags: pflags,
	}
	info := C.VkDescriptorSetLayoutCreateInfo{
		sType:        C.VK_STRUCTURE_TYPE_DESCRIPTOR_SET_LAYOUT_CREATE_INFO,
		pNext:        unsafe.Pointer(&bindFlagsInfo),
		flags:        C.VK_DESCRIPTOR_SET_LAYOUT_CREATE_UPDATE_AFTER_BIND_POOL_BIT,
		bindingCount: nbind,
		pBindings:    pbind,
	}
	var layout C.VkDescriptorSetLayout
	if err := checkResult(C.vkCreateDescriptorSetLayout(d.dev, &info, nil, &layout)); err != nil {
		C.vkDestroySampler(d.dev, splr, nil)
		return nil, err
	}

	const npool = 3
	ppool := (*C.VkDescriptorPoolSize)(C.malloc(npool * C.sizeof_VkDescriptorPoolSize))
	defer C.free(unsafe.Pointer(ppool))
	spool := unsafe.Slice(ppool, npool)
	spool[0] = C.VkDescriptorPoolSize{typ: C.VK_DESCRIPTOR_TYPE_SAMPLED_IMAGE, descriptorCount: C.uint32_t(capacity)}
	spool[1] = C.VkDescriptorPoolSize{typ: C.VK_DESCRIPTOR_TYPE_STORAGE_IMAGE, descriptorCount: C.uint32_t(capacity)}
	spool[2] = C.VkDescriptorPoolSize{typ: C.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER, descriptorCount: C.uint32_t(capacity)}
	poolInfo := C.VkDescriptorPoolCreateInfo{
		sType:         C.VK_STRUCTURE_TYPE_DESCRIPTOR_POOL_CREATE_INFO,
		flags:         C.VK_DESCRIPTOR_POOL_CREATE_UPDATE_AFTER_BIND_BIT,
		maxSets:       1,
		poolSizeCount: npool,
		pPoolSizes:    ppool,
	}
	var pool C.VkDescriptorPool
	if err := checkResult(C.vkCreateDescriptorPool(d.dev, &poolInfo, nil, &pool)); err != nil {
		C.vkDestroyDescriptorSetLayout(d.dev, layout, nil)
		C.vkDestroySampler(d.dev, splr, nil)
		return nil, err
	}

	allocInfo := C.VkDescriptorSetAllocateInfo{
		sType:              C.VK_STRUCTURE_TYPE_DESCRIPTOR_SET_ALLOCATE_INFO,
		descriptorPool:     pool,
		descriptorSetCount: 1,
		pSetLayouts:        &layout,
	}
	var set C.VkDescriptorSet
	if err := checkResult(C.vkAllocateDescriptorSets(d.dev, &allocInfo, &set)); err != nil {
		C.vkDestroyDescriptorPool(d.dev, pool, nil)
		C.vkDestroyDescriptorSetLayout(d.dev, layout, nil)
		C.vkDestroySampler(d.dev, splr, nil)
		return nil, err
	}

	pcRange := C.VkPushConstantRange{
		stageFlags: C.VK_SHADER_STAGE_COMPUTE_BIT | C.VK_SHADER_STAGE_FRAGMENT_BIT,
		offset:     0,
		size:       maxPushConstRange,
	}
	plInfo := C.VkPipelineLayoutCreateInfo{
		sType:                  C.VK_STRUCTURE_TYPE_PIPELINE_LAYOUT_CREATE_INFO,
		setLayoutCount:         1,
		pSetLayouts:            &layout,
		pushConstantRangeCount: 1,
		pPushConstantRanges:    &pcRange,
	}
	var pllayout C.VkPipelineLayout
	if err := checkResult(C.vkCreatePipelineLayout(d.dev, &plInfo, nil, &pllayout)); err != nil {
		C.vkDestroyDescriptorPool(d.dev, pool, nil)
		C.vkDestroyDescriptorSetLayout(d.dev, layout, nil)
		C.vkDestroySampler(d.dev, splr, nil)
		return nil, err
	}

	b := &bindlessSet{
		d:        d,
		layout:   layout,
		pool:     pool,
		set:      set,
		pllayout: pllayout,
		splr:     splr,
		cap:      capacity,
	}
	b.tex.Grow((capacity + 31) / 32)
	b.img.Grow((capacity + 31) / 32)
	b.buf.Grow((capacity + 31) / 32)
	return b, nil
}

// newImmutableSampler creates the sampler used by binding 3.
// It matches spec.md's single sampler: nearest mag, linear min/mip,
// clamp-to-border-black, no anisotropy, normalized coordinates.
func (d *Driver) newImmutableSampler() (C.VkSampler, error) {
	info := C.VkSamplerCreateInfo{
		sType:                   C.VK_STRUCTURE_TYPE_SAMPLER_CREATE_INFO,
		magFilter:               C.VK_FILTER_NEAREST,
		minFilter:               C.VK_FILTER_LINEAR,
		mipmapMode:              C.VK_SAMPLER_MIPMAP_MODE_LINEAR,
		addressModeU:            C.VK_SAMPLER_ADDRESS_MODE_CLAMP_TO_BORDER,
		addressModeV:            C.VK_SAMPLER_ADDRESS_MODE_CLAMP_TO_BORDER,
		addressModeW:            C.VK_SAMPLER_ADDRESS_MODE_CLAMP_TO_BORDER,
		borderColor:             C.VK_BORDER_COLOR_FLOAT_TRANSPARENT_BLACK,
		unnormalizedCoordinates: C.VK_FALSE,
	}
	var splr C.VkSampler
	err := checkResult(C.vkCreateSampler(d.dev, &info, nil, &splr))
	return splr, err
}

// AllocImage binds iv into the sampled-image or storage-image array.
func (b *bindlessSet) AllocImage(iv driver.ImageView, storage bool) (int, error) {
	v := &b.tex
	typ := C.VK_DESCRIPTOR_TYPE_SAMPLED_IMAGE
	nr := bindlessTexture
	layout := C.VkImageLayout(C.VK_IMAGE_LAYOUT_SHADER_READ_ONLY_OPTIMAL)
	if storage {
		v = &b.img
		typ = C.VK_DESCRIPTOR_TYPE_STORAGE_IMAGE
		nr = bindlessImage
		layout = C.VK_IMAGE_LAYOUT_GENERAL
	}
	idx, ok := v.Search()
	if !ok || idx >= b.cap {
		return 0, errors.New("vk: bindless set exhausted")
	}
	v.Set(idx)
	info := C.VkDescriptorImageInfo{
		imageView:   iv.(*imageView).view,
		imageLayout: layout,
	}
	write := C.VkWriteDescriptorSet{
		sType:           C.VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET,
		dstSet:          b.set,
		dstBinding:      nr,
		dstArrayElement: C.uint32_t(idx),
		descriptorCount: 1,
		descriptorType:  typ,
		pImageInfo:      &info,
	}
	C.vkUpdateDescriptorSets(b.d.dev, 1, &write, 0, nil)
	return idx, nil
}

// FreeImage releases a previously allocated image index.
func (b *bindlessSet) FreeImage(index int, storage bool) {
	if storage {
		b.img.Unset(index)
	} else {
		b.tex.Unset(index)
	}
}

// AllocBuffer binds buf into the storage-buffer array.
func (b *bindlessSet) AllocBuffer(buf driver.Buffer, off, size int64) (int, error) {
	idx, ok := b.buf.Search()
	if !ok || idx >= b.cap {
		return 0, errors.New("vk: bindless set exhausted")
	}
	b.buf.Set(idx)
	info := C.VkDescriptorBufferInfo{
		buffer: buf.(*buffer).buf,
		offset: C.VkDeviceSize(off),
		_range: C.VkDeviceSize(size),
	}
	write := C.VkWriteDescriptorSet{
		sType:           C.VK_STRUCTURE_TYPE_WRITE_DESCRIPTOR_SET,
		dstSet:          b.set,
		dstBinding:      bindlessBuffer,
		dstArrayElement: C.uint32_t(idx),
		descriptorCount: 1,
		descriptorType:  C.VK_DESCRIPTOR_TYPE_STORAGE_BUFFER,
		pBufferInfo:     &info,
	}
	C.vkUpdateDescriptorSets(b.d.dev, 1, &write, 0, nil)
	return idx, nil
}

// FreeBuffer releases a previously allocated buffer index.
func (b *bindlessSet) FreeBuffer(index int) { b.buf.Unset(index) }

// Table returns the DescTable wrapping this set's pipeline layout,
// for use in driver.GraphState.Desc/driver.CompState.Desc.
// The returned table is a view borrowed from the set: callers must
// not call Destroy on it, since the underlying layout is owned and
// released by the set itself.
func (b *bindlessSet) Table() driver.DescTable {
	return &descTable{d: b.d, layout: b.pllayout}
}

// Bind records a bind-descriptor-sets command for this set at the
// given bind point. Unlike SetDescTableGraph/SetDescTableComp, the
// same set is bound for the lifetime of a Context: it never needs
// rewriting between draws/dispatches, only the push constant index
// changes.
func (b *bindlessSet) Bind(cb driver.CmdBuffer, compute bool) {
	bindPoint := C.VkPipelineBindPoint(C.VK_PIPELINE_BIND_POINT_GRAPHICS)
	if compute {
		bindPoint = C.VK_PIPELINE_BIND_POINT_COMPUTE
	}
	C.vkCmdBindDescriptorSets(cb.(*cmdBuffer).cb, bindPoint, b.pllayout, 0, 1, &b.set, 0, nil)
}

// Destroy destroys the bindless set.
func (b *bindlessSet) Destroy() {
	if b == nil {
		return
	}
	if b.d != nil {
		C.vkDestroyPipelineLayout(b.d.dev, b.pllayout, nil)
		C.vkDestroyDescriptorPool(b.d.dev, b.pool, nil)
		C.vkDestroyDescriptorSetLayout(b.d.dev, b.layout, nil)
		C.vkDestroySampler(b.d.dev, b.splr, nil)
	}
	*b = bindlessSet{}
}
