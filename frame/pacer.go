package frame

import (
	"errors"
	"fmt"

	"github.com/gogpu/framegraph"
)

// Pacer errors.
var (
	// ErrOutOfDate is returned by Swapchain.AcquireNextImage when the
	// swapchain no longer matches the surface and must be recreated.
	ErrOutOfDate = errors.New("frame: swapchain out of date")

	// ErrFrameSkipped is returned by BeginFrame after an out-of-date
	// acquisition: the swapchain was recreated, the frame counters
	// advanced, and no work may be submitted this tick. Retry next tick.
	ErrFrameSkipped = errors.New("frame: frame skipped after swapchain recreation")

	// ErrFrameNotBegun is returned when EndFrame is called without a
	// matching successful BeginFrame.
	ErrFrameNotBegun = errors.New("frame: EndFrame without BeginFrame")
)

// SubmitInfo describes one frame's command submission. The queue
// implementation owns the actual semaphore objects; the pacer communicates
// which waits and signals to attach.
type SubmitInfo struct {
	// Recorders are the frame's recorded command lists, in order.
	Recorders []framegraph.CommandRecorder

	// Slot is the frame slot whose binary semaphores pair this submission:
	// the queue waits on slot's image-acquired semaphore (when WaitAcquired)
	// and signals slot's render-complete semaphore.
	Slot uint32

	// WaitAcquired requests a wait on the slot's swapchain-image-acquired
	// binary semaphore.
	WaitAcquired bool

	// WaitTimelineValue, when HasTimelineWait, makes the submission wait
	// until the graphics timeline reaches the value. Skipped during the
	// initial ramp-up when no such value exists yet.
	WaitTimelineValue uint64
	HasTimelineWait   bool

	// SignalTimelineValue is the timeline value signaled when the
	// submission completes on the GPU.
	SignalTimelineValue uint64
}

// Queue submits recorded work to the GPU.
type Queue interface {
	// Submit enqueues the frame's command lists with the described
	// semaphore waits and signals.
	Submit(info SubmitInfo) error

	// WaitIdle blocks until the GPU has drained all submitted work. Used
	// at shutdown and on the failed-presentation recovery path.
	WaitIdle() error
}

// Swapchain abstracts image acquisition and presentation.
type Swapchain interface {
	// AcquireNextImage acquires the next presentable image, signaling the
	// slot's image-acquired semaphore. Returns ErrOutOfDate (possibly
	// wrapped) when the swapchain must be recreated.
	AcquireNextImage(slot uint32) error

	// Present queues presentation, waiting on the slot's render-complete
	// semaphore.
	Present(slot uint32) error

	// Recreate rebuilds the swapchain against the current surface.
	Recreate() error
}

// PacerConfig wires a Pacer's collaborators.
type PacerConfig struct {
	Timeline  Timeline
	Pool      *RecorderPool
	Queue     Queue
	Swapchain Swapchain
}

// Pacer drives the per-frame lifecycle: BeginFrame, record via Recorder /
// QueueRecorder, EndFrame — once per displayed frame, in that order, with
// no calls interleaved mid-sequence.
//
// BeginFrame blocks (past the initial ramp-up) until the GPU has finished
// consuming the current slot's previous occupant, then resets that slot's
// recorder cells. EndFrame submits the queued recorders and presents.
// CPU/GPU frame lag is thereby bounded to [MaxFrames].
type Pacer struct {
	sync      *Synchronizer
	pool      *RecorderPool
	queue     Queue
	swapchain Swapchain
	reclaimer *Reclaimer

	queued []framegraph.CommandRecorder
	begun  bool
}

// NewPacer creates a pacer from the config. Timeline, Pool, Queue, and
// Swapchain are required.
func NewPacer(cfg PacerConfig) (*Pacer, error) {
	if cfg.Timeline == nil || cfg.Pool == nil || cfg.Queue == nil || cfg.Swapchain == nil {
		return nil, errors.New("frame: PacerConfig requires Timeline, Pool, Queue, and Swapchain")
	}
	sync := NewSynchronizer(cfg.Timeline)
	return &Pacer{
		sync:      sync,
		pool:      cfg.Pool,
		queue:     cfg.Queue,
		swapchain: cfg.Swapchain,
		reclaimer: NewReclaimer(sync),
	}, nil
}

// Synchronizer returns the pacer's frame counter state.
func (p *Pacer) Synchronizer() *Synchronizer { return p.sync }

// Reclaimer returns the pacer's deferred destruction queue. Objects
// released through it are destroyed once the releasing frame has provably
// retired on the GPU.
func (p *Pacer) Reclaimer() *Reclaimer { return p.reclaimer }

// BeginFrame enters a new frame: it waits for the current frame slot to
// retire (skipped during ramp-up), resets the slot's recorder cells, and
// acquires the next swapchain image.
//
// An out-of-date swapchain is recovered automatically: the swapchain is
// recreated, the frame counters advance so pacing stays consistent, and
// ErrFrameSkipped is returned. No work may be recorded or submitted for a
// skipped frame; call BeginFrame again next tick.
func (p *Pacer) BeginFrame() error {
	if err := p.sync.WaitForGPU(); err != nil {
		return err
	}

	slot := uint32(p.sync.CurrentFrame())
	p.pool.Reset(slot)

	if err := p.swapchain.AcquireNextImage(slot); err != nil {
		if errors.Is(err, ErrOutOfDate) {
			framegraph.Logger().Warn("swapchain out of date, recreating", "frame", p.sync.AbsoluteFrame())
			if rerr := p.swapchain.Recreate(); rerr != nil {
				return fmt.Errorf("frame: swapchain recreation failed: %w", rerr)
			}
			p.sync.AdvanceFrameCounters()
			return ErrFrameSkipped
		}
		return err
	}

	p.begun = true
	return nil
}

// Recorder hands out the next recorder of the current frame slot for the
// given thread and queues it for submission at EndFrame.
func (p *Pacer) Recorder(thread uint32) (framegraph.CommandRecorder, error) {
	if !p.begun {
		return nil, ErrFrameNotBegun
	}
	rec, err := p.pool.Recorder(uint32(p.sync.CurrentFrame()), thread)
	if err != nil {
		return nil, err
	}
	p.queued = append(p.queued, rec)
	return rec, nil
}

// QueueRecorder queues an externally obtained recorder for submission at
// EndFrame, after any recorders handed out by Recorder.
func (p *Pacer) QueueRecorder(rec framegraph.CommandRecorder) {
	p.queued = append(p.queued, rec)
}

// EndFrame submits the queued recorders and presents.
//
// The submission waits on the slot's image-acquired semaphore and (past
// ramp-up) on the timeline reaching the retirement bound; it signals the
// slot's render-complete semaphore and the timeline value for this frame.
//
// Presentation failure is recovered by a full device idle wait instead of
// the normal semaphore pacing; the frame counters are intentionally not
// advanced on that path, so the next BeginFrame does not wait on signals
// that never arrive.
func (p *Pacer) EndFrame() error {
	if !p.begun {
		return ErrFrameNotBegun
	}
	p.begun = false

	info := SubmitInfo{
		Recorders:           p.queued,
		Slot:                uint32(p.sync.CurrentFrame()),
		WaitAcquired:        true,
		SignalTimelineValue: p.sync.SignalValue(),
	}
	if value, ok := p.sync.WaitValue(); ok {
		info.WaitTimelineValue = value
		info.HasTimelineWait = true
	}

	if err := p.queue.Submit(info); err != nil {
		p.queued = nil
		return err
	}
	p.queued = nil

	if err := p.swapchain.Present(uint32(p.sync.CurrentFrame())); err != nil {
		framegraph.Logger().Warn("presentation failed, waiting for device idle",
			"frame", p.sync.AbsoluteFrame(), "err", err)
		if werr := p.queue.WaitIdle(); werr != nil {
			return fmt.Errorf("frame: idle wait after failed present: %w", werr)
		}
		return nil
	}

	p.sync.AdvanceFrameCounters()

	if completed := p.sync.Timeline().Value(); completed > 0 {
		p.reclaimer.Collect(completed - 1)
	}
	return nil
}

// Shutdown drains the GPU and destroys everything the reclaimer still
// holds. Call once, after the last EndFrame.
func (p *Pacer) Shutdown() error {
	if err := p.queue.WaitIdle(); err != nil {
		return err
	}
	p.reclaimer.Flush()
	return nil
}
