package frame

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph"
)

// Pool errors.
var (
	// ErrPoolExhausted is returned when all recorders of a (frame slot,
	// thread) cell are in use. The caller must reduce per-frame recorder
	// demand; the pool never grows silently.
	ErrPoolExhausted = errors.New("frame: all command recorders in cell are in use")
)

// Default pool dimensions.
const (
	// DefaultThreadsPerFrame is the number of recording threads provisioned
	// per frame slot. The driving loop uses thread index 0 only today; the
	// layout leaves room for parallel recording.
	DefaultThreadsPerFrame = 1

	// DefaultRecordersPerThread is the number of primary recorders
	// pre-allocated per (frame slot, thread) cell.
	DefaultRecordersPerThread = 3

	// DefaultSecondaryPerThread is the number of secondary recorders
	// pre-allocated per cell.
	DefaultSecondaryPerThread = 2
)

// Resettable is implemented by recorders whose backing native command
// allocator must be reset before the recorder is reused. RecorderPool
// calls Reset on every recorder of a frame slot when the slot is recycled.
type Resettable interface {
	Reset()
}

// RecorderPoolConfig configures a RecorderPool.
type RecorderPoolConfig struct {
	// ThreadsPerFrame is the number of recording threads per frame slot.
	ThreadsPerFrame uint32

	// RecordersPerThread is the primary recorder capacity per cell.
	RecordersPerThread uint32

	// SecondaryPerThread is the secondary recorder capacity per cell.
	SecondaryPerThread uint32

	// NewRecorder constructs one recorder. Called len(cells) *
	// (RecordersPerThread + SecondaryPerThread) times up front; secondary
	// recorders receive secondary = true.
	NewRecorder func(secondary bool) framegraph.CommandRecorder
}

// DefaultRecorderPoolConfig returns a config with default dimensions.
// NewRecorder must still be supplied by the caller.
func DefaultRecorderPoolConfig() RecorderPoolConfig {
	return RecorderPoolConfig{
		ThreadsPerFrame:    DefaultThreadsPerFrame,
		RecordersPerThread: DefaultRecordersPerThread,
		SecondaryPerThread: DefaultSecondaryPerThread,
	}
}

// RecorderPool pre-allocates command recorders in a 2D layout indexed by
// (frame slot, thread). Each cell holds a fixed count of primary and
// secondary recorders and a used count that resets to zero when the frame
// slot's pool is reset at the start of a new frame.
//
// RecorderPool is driven from the single render goroutine; it is not safe
// for concurrent use. (Per-thread cells exist so that a future parallel
// recording scheme can hand each goroutine its own cell.)
type RecorderPool struct {
	primary   []framegraph.CommandRecorder
	secondary []framegraph.CommandRecorder

	usedPrimary   []uint32
	usedSecondary []uint32

	threads            uint32
	recordersPerThread uint32
	secondaryPerThread uint32
}

// NewRecorderPool pre-allocates all recorders for MaxFrames frame slots.
func NewRecorderPool(cfg RecorderPoolConfig) (*RecorderPool, error) {
	if cfg.NewRecorder == nil {
		return nil, errors.New("frame: RecorderPoolConfig.NewRecorder is required")
	}
	if cfg.ThreadsPerFrame == 0 || cfg.RecordersPerThread == 0 {
		return nil, errors.New("frame: pool dimensions must be non-zero")
	}

	cells := uint32(MaxFrames) * cfg.ThreadsPerFrame
	p := &RecorderPool{
		primary:            make([]framegraph.CommandRecorder, 0, cells*cfg.RecordersPerThread),
		secondary:          make([]framegraph.CommandRecorder, 0, cells*cfg.SecondaryPerThread),
		usedPrimary:        make([]uint32, cells),
		usedSecondary:      make([]uint32, cells),
		threads:            cfg.ThreadsPerFrame,
		recordersPerThread: cfg.RecordersPerThread,
		secondaryPerThread: cfg.SecondaryPerThread,
	}

	for cell := uint32(0); cell < cells; cell++ {
		for i := uint32(0); i < cfg.RecordersPerThread; i++ {
			p.primary = append(p.primary, cfg.NewRecorder(false))
		}
		for i := uint32(0); i < cfg.SecondaryPerThread; i++ {
			p.secondary = append(p.secondary, cfg.NewRecorder(true))
		}
	}

	framegraph.Logger().Info("recorder pool allocated",
		"primary", len(p.primary), "secondary", len(p.secondary))
	return p, nil
}

// cellIndex maps (frame slot, thread) to a cell. Out-of-range indices are
// programmer errors and panic.
func (p *RecorderPool) cellIndex(slot, thread uint32) uint32 {
	if slot >= MaxFrames {
		panic(fmt.Sprintf("frame: slot %d out of range [0, %d)", slot, MaxFrames))
	}
	if thread >= p.threads {
		panic(fmt.Sprintf("frame: thread %d out of range [0, %d)", thread, p.threads))
	}
	return slot*p.threads + thread
}

// Reset recycles every cell of the given frame slot: used counts drop to
// zero and resettable recorders have their native allocators reset. Only
// call Reset after the slot's previous occupant has provably retired.
func (p *RecorderPool) Reset(slot uint32) {
	for thread := uint32(0); thread < p.threads; thread++ {
		cell := p.cellIndex(slot, thread)
		p.usedPrimary[cell] = 0
		p.usedSecondary[cell] = 0

		base := cell * p.recordersPerThread
		for i := uint32(0); i < p.recordersPerThread; i++ {
			if r, ok := p.primary[base+i].(Resettable); ok {
				r.Reset()
			}
		}
		sbase := cell * p.secondaryPerThread
		for i := uint32(0); i < p.secondaryPerThread; i++ {
			if r, ok := p.secondary[sbase+i].(Resettable); ok {
				r.Reset()
			}
		}
	}
}

// Recorder hands out the next unused primary recorder of the cell.
func (p *RecorderPool) Recorder(slot, thread uint32) (framegraph.CommandRecorder, error) {
	cell := p.cellIndex(slot, thread)
	used := p.usedPrimary[cell]
	if used >= p.recordersPerThread {
		return nil, fmt.Errorf("%w: slot %d thread %d", ErrPoolExhausted, slot, thread)
	}
	p.usedPrimary[cell]++
	return p.primary[cell*p.recordersPerThread+used], nil
}

// SecondaryRecorder hands out the next unused secondary recorder of the cell.
func (p *RecorderPool) SecondaryRecorder(slot, thread uint32) (framegraph.CommandRecorder, error) {
	cell := p.cellIndex(slot, thread)
	used := p.usedSecondary[cell]
	if used >= p.secondaryPerThread {
		return nil, fmt.Errorf("%w: slot %d thread %d (secondary)", ErrPoolExhausted, slot, thread)
	}
	p.usedSecondary[cell]++
	return p.secondary[cell*p.secondaryPerThread+used], nil
}

// Used returns the primary used count of a cell, for tests and diagnostics.
func (p *RecorderPool) Used(slot, thread uint32) uint32 {
	return p.usedPrimary[p.cellIndex(slot, thread)]
}
