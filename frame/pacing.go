package frame

import (
	"errors"
	"fmt"
	"time"
)

// MaxFrames is the number of frames that may be in flight simultaneously.
// Slot s of every per-frame array serves absolute frames s, s+MaxFrames,
// s+2*MaxFrames, ...
const MaxFrames = 3

// DefaultWaitTimeout bounds single timeline waits. Exceeding it indicates
// a hung GPU or a missed signal and is treated as fatal, not retried.
const DefaultWaitTimeout = 10 * time.Second

// Pacing errors.
var (
	// ErrWaitTimeout is returned when a timeline wait exceeds its timeout.
	ErrWaitTimeout = errors.New("frame: timeline wait timed out")
)

// Timeline is a monotonically increasing GPU completion counter, typically
// backed by a timeline semaphore. The value reaching K proves absolute
// frame K-1 has fully retired on the GPU.
type Timeline interface {
	// Value returns the last value the GPU has signaled.
	Value() uint64

	// Wait blocks until the timeline reaches value. A timeout <= 0 waits
	// indefinitely. Implementations return [ErrWaitTimeout] (possibly
	// wrapped) when the timeout elapses.
	Wait(value uint64, timeout time.Duration) error
}

// Synchronizer tracks the frame counters and derives the timeline wait and
// signal values that keep at most MaxFrames frames in flight.
//
// Counters: current = absolute mod MaxFrames identifies the frame slot,
// previous is the slot of the last advanced frame, absolute increases
// monotonically across the process lifetime.
//
// Synchronizer is driven from the single render goroutine; it is not safe
// for concurrent use.
type Synchronizer struct {
	timeline Timeline

	current  uint64
	previous uint64
	absolute uint64
}

// NewSynchronizer creates a synchronizer over the given timeline.
func NewSynchronizer(timeline Timeline) *Synchronizer {
	return &Synchronizer{timeline: timeline}
}

// CurrentFrame returns the current frame slot in [0, MaxFrames).
func (s *Synchronizer) CurrentFrame() uint64 { return s.current }

// PreviousFrame returns the previous frame slot.
func (s *Synchronizer) PreviousFrame() uint64 { return s.previous }

// AbsoluteFrame returns the monotone frame counter.
func (s *Synchronizer) AbsoluteFrame() uint64 { return s.absolute }

// Timeline returns the underlying completion counter.
func (s *Synchronizer) Timeline() Timeline { return s.timeline }

// AdvanceFrameCounters rotates to the next frame slot.
func (s *Synchronizer) AdvanceFrameCounters() {
	s.previous = s.current
	s.absolute++
	s.current = s.absolute % MaxFrames
}

// WaitValue returns the timeline value that proves the current slot's
// previous occupant (absolute frame current - MaxFrames) has retired, and
// whether such a value exists. During the first MaxFrames frames no
// previous occupant exists and waiting is skipped entirely.
func (s *Synchronizer) WaitValue() (uint64, bool) {
	if s.absolute < MaxFrames {
		return 0, false
	}
	return s.absolute - (MaxFrames - 1), true
}

// SignalValue returns the timeline value this frame's submission signals
// on completion.
func (s *Synchronizer) SignalValue() uint64 { return s.absolute + 1 }

// WaitForGPU blocks until the current frame slot may be reused, i.e. the
// timeline proves frame absolute - MaxFrames has fully retired. It is a
// no-op during the initial ramp-up.
func (s *Synchronizer) WaitForGPU() error {
	value, ok := s.WaitValue()
	if !ok {
		return nil
	}
	if err := s.timeline.Wait(value, 0); err != nil {
		return fmt.Errorf("frame %d slot %d: %w", s.absolute, s.current, err)
	}
	return nil
}
