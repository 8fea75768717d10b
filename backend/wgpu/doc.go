// Package wgpu backs the frame graph with a gogpu/wgpu device.
//
// The package owns GPU bring-up (instance, adapter, device, queue) and
// implements [framegraph.Device] on top of it, so a compiled graph can
// allocate its attachment images from real GPU memory. Allocation is
// budget-tracked; exceeding the budget fails the allocation instead of
// letting the driver page.
//
// [LogicalDevice] provides the same allocation surface without touching
// any GPU, for graph validation tools and tests.
package wgpu
