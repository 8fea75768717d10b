package wgpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/framegraph"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
)

// Backend errors.
var (
	// ErrNoGPU is returned when no suitable GPU adapter is available.
	ErrNoGPU = errors.New("wgpu: no suitable GPU adapter found")

	// ErrNotInitialized is returned when allocating from an uninitialized
	// backend.
	ErrNotInitialized = errors.New("wgpu: backend not initialized")
)

var (
	_ framegraph.Device = (*Backend)(nil)
	_ framegraph.Device = (*LogicalDevice)(nil)
)

// Config configures a Backend.
type Config struct {
	// Label names the device for debugging tools. Empty picks a default.
	Label string

	// MaxMemoryMB bounds graph-owned GPU memory. Zero picks the default.
	MaxMemoryMB int
}

// Backend owns the wgpu instance, adapter, device, and queue, and
// implements [framegraph.Device] on top of them. Create one, Init it,
// hand it to [framegraph.Graph.Compile], Close it at shutdown.
type Backend struct {
	mu sync.RWMutex

	instance *core.Instance
	adapter  core.AdapterID
	device   core.DeviceID
	queue    core.QueueID

	info    *GPUInfo
	tracker *MemoryTracker
	label   string

	initialized bool
}

// NewBackend creates a backend. Call Init before allocating.
func NewBackend(cfg Config) *Backend {
	label := cfg.Label
	if label == "" {
		label = "framegraph-device"
	}
	return &Backend{
		tracker: NewMemoryTracker(cfg.MaxMemoryMB),
		label:   label,
	}
}

// Init brings up the GPU: instance, adapter (preferring a high-performance
// one), device, and queue. Init is idempotent.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	b.instance = core.NewInstance(&gputypes.InstanceDescriptor{
		Backends: gputypes.BackendsPrimary,
	})

	adapterID, err := b.instance.RequestAdapter(&gputypes.RequestAdapterOptions{
		PowerPreference: gputypes.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoGPU, err)
	}
	b.adapter = adapterID

	logGPUInfo(adapterID)
	b.info, _ = getGPUInfo(adapterID)

	deviceID, err := createDevice(adapterID, b.label)
	if err != nil {
		return fmt.Errorf("wgpu: device creation failed: %w", err)
	}
	b.device = deviceID
	logDeviceLimits(deviceID)

	queueID, err := getDeviceQueue(deviceID)
	if err != nil {
		_ = releaseDevice(deviceID)
		return fmt.Errorf("wgpu: queue retrieval failed: %w", err)
	}
	b.queue = queueID

	b.initialized = true
	framegraph.Logger().Info("wgpu backend initialized", "device", b.label)
	return nil
}

// Close releases the GPU resources in reverse order of creation. The
// backend must not be used afterwards. Pending graph images must have been
// reclaimed first (frame.Pacer.Shutdown does that).
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return
	}

	// Queue is released when the device is dropped.
	if err := releaseDevice(b.device); err != nil {
		framegraph.Logger().Warn("error releasing device", "err", err)
	}
	b.device = core.DeviceID{}

	if err := releaseAdapter(b.adapter); err != nil {
		framegraph.Logger().Warn("error releasing adapter", "err", err)
	}
	b.adapter = core.AdapterID{}

	b.instance = nil
	b.queue = core.QueueID{}
	b.info = nil
	b.initialized = false

	framegraph.Logger().Info("wgpu backend closed")
}

// IsInitialized reports whether Init has succeeded.
func (b *Backend) IsInitialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initialized
}

// GPUInfo returns information about the selected GPU, or nil before Init.
func (b *Backend) GPUInfo() *GPUInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.info
}

// DeviceID returns the native device handle.
func (b *Backend) DeviceID() core.DeviceID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.device
}

// QueueID returns the native queue handle.
func (b *Backend) QueueID() core.QueueID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.queue
}

// Memory returns a snapshot of graph-owned memory usage.
func (b *Backend) Memory() MemoryStats {
	return b.tracker.Stats()
}

// CreateImage allocates a GPU image per the descriptor.
func (b *Backend) CreateImage(desc framegraph.ImageDesc) (framegraph.Image, error) {
	if !b.IsInitialized() {
		return nil, ErrNotInitialized
	}
	return createTexture(b.tracker, desc)
}

// CreateBuffer allocates a GPU buffer per the descriptor.
func (b *Backend) CreateBuffer(desc framegraph.BufferDesc) (framegraph.Buffer, error) {
	if !b.IsInitialized() {
		return nil, ErrNotInitialized
	}
	return createBuffer(b.tracker, desc)
}

// LogicalDevice implements [framegraph.Device] without a GPU: images and
// buffers carry real extents, formats, and memory accounting, but no
// native handles. Graph validation tools compile against it to check
// ordering and allocation without GPU access.
type LogicalDevice struct {
	tracker *MemoryTracker
}

// NewLogicalDevice creates a logical device with the given memory budget
// in megabytes (zero picks the default).
func NewLogicalDevice(maxMB int) *LogicalDevice {
	return &LogicalDevice{tracker: NewMemoryTracker(maxMB)}
}

// Memory returns a snapshot of accounted memory usage.
func (d *LogicalDevice) Memory() MemoryStats { return d.tracker.Stats() }

// CreateImage allocates a logical image per the descriptor.
func (d *LogicalDevice) CreateImage(desc framegraph.ImageDesc) (framegraph.Image, error) {
	return createTexture(d.tracker, desc)
}

// CreateBuffer allocates a logical buffer per the descriptor.
func (d *LogicalDevice) CreateBuffer(desc framegraph.BufferDesc) (framegraph.Buffer, error) {
	return createBuffer(d.tracker, desc)
}
