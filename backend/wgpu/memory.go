package wgpu

import (
	"errors"
	"fmt"
	"sync"
)

// Memory tracking errors.
var (
	// ErrMemoryBudgetExceeded is returned when an allocation would exceed
	// the configured budget.
	ErrMemoryBudgetExceeded = errors.New("wgpu: memory budget exceeded")
)

// Default memory limits.
const (
	// DefaultMaxMemoryMB is the default GPU memory budget for graph-owned
	// resources (256 MB).
	DefaultMaxMemoryMB = 256

	// MinMemoryMB is the minimum allowed memory budget (16 MB).
	MinMemoryMB = 16
)

// MemoryStats contains GPU memory usage statistics.
type MemoryStats struct {
	// TotalBytes is the total memory budget in bytes.
	TotalBytes uint64

	// UsedBytes is the currently allocated memory in bytes.
	UsedBytes uint64

	// AvailableBytes is the remaining memory budget.
	AvailableBytes uint64

	// ResourceCount is the number of live images and buffers.
	ResourceCount int

	// Utilization is the fraction of budget used (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d MB, %d resources]",
		s.Utilization*100,
		s.UsedBytes/(1024*1024),
		s.TotalBytes/(1024*1024),
		s.ResourceCount)
}

// MemoryTracker accounts the bytes held by graph-owned images and buffers
// against a fixed budget. The graph frees resources deterministically
// through the reclaimer, so the tracker enforces the budget instead of
// evicting: an allocation past the budget fails.
//
// MemoryTracker is safe for concurrent use.
type MemoryTracker struct {
	mu          sync.Mutex
	budgetBytes uint64
	usedBytes   uint64
	count       int
}

// NewMemoryTracker creates a tracker with the given budget in megabytes.
// Budgets below MinMemoryMB are raised to the default.
func NewMemoryTracker(maxMB int) *MemoryTracker {
	if maxMB < MinMemoryMB {
		maxMB = DefaultMaxMemoryMB
	}
	return &MemoryTracker{budgetBytes: uint64(maxMB) * 1024 * 1024}
}

// allocate reserves size bytes, failing when the budget would be exceeded.
func (m *MemoryTracker) allocate(size uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.usedBytes+size > m.budgetBytes {
		return fmt.Errorf("%w: %d used + %d requested > %d budget",
			ErrMemoryBudgetExceeded, m.usedBytes, size, m.budgetBytes)
	}
	m.usedBytes += size
	m.count++
	return nil
}

// release returns size bytes to the budget.
func (m *MemoryTracker) release(size uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size > m.usedBytes {
		m.usedBytes = 0
	} else {
		m.usedBytes -= size
	}
	if m.count > 0 {
		m.count--
	}
}

// Stats returns a snapshot of current usage.
func (m *MemoryTracker) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoryStats{
		TotalBytes:     m.budgetBytes,
		UsedBytes:      m.usedBytes,
		AvailableBytes: m.budgetBytes - m.usedBytes,
		ResourceCount:  m.count,
		Utilization:    float64(m.usedBytes) / float64(m.budgetBytes),
	}
}
