package frame

import (
	"sync"

	"github.com/gogpu/framegraph"
)

// Destroyer is anything with GPU-side state that must not be destroyed
// while an in-flight frame might reference it. [framegraph.Image] and
// [framegraph.Buffer] both satisfy it.
type Destroyer interface {
	Destroy()
}

// pendingDestroy is one queued destruction, stamped with the absolute
// frame that released the object.
type pendingDestroy struct {
	obj   Destroyer
	frame uint64
}

// Reclaimer defers GPU object destruction until the releasing frame has
// retired. Release stamps the object with the current absolute frame;
// Collect destroys everything stamped at or before the newest retired
// frame. The pacer calls Collect after every successful present, so
// destruction rides the same timeline that recycles command pools.
//
// Reclaimer is safe for concurrent Release; Collect runs on the render
// goroutine.
type Reclaimer struct {
	mu      sync.Mutex
	sync    *Synchronizer
	pending []pendingDestroy
}

// NewReclaimer creates a reclaimer stamping releases with sync's absolute
// frame counter.
func NewReclaimer(sync *Synchronizer) *Reclaimer {
	return &Reclaimer{sync: sync}
}

// Release queues obj for destruction once the current absolute frame has
// retired on the GPU. A nil obj is ignored.
func (r *Reclaimer) Release(obj Destroyer) {
	if obj == nil {
		return
	}
	r.mu.Lock()
	r.pending = append(r.pending, pendingDestroy{obj: obj, frame: r.sync.AbsoluteFrame()})
	r.mu.Unlock()
}

// Collect destroys every queued object whose release frame is at or before
// retiredAbsolute and returns the number destroyed.
func (r *Reclaimer) Collect(retiredAbsolute uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	kept := r.pending[:0]
	for _, p := range r.pending {
		if p.frame <= retiredAbsolute {
			p.obj.Destroy()
			n++
		} else {
			kept = append(kept, p)
		}
	}
	r.pending = kept

	if n > 0 {
		framegraph.Logger().Debug("reclaimed GPU objects", "count", n, "retired", retiredAbsolute)
	}
	return n
}

// Flush destroys everything still queued, regardless of frame. Only call
// after a full device idle wait, e.g. at shutdown.
func (r *Reclaimer) Flush() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.pending)
	for _, p := range r.pending {
		p.obj.Destroy()
	}
	r.pending = r.pending[:0]
	return n
}

// Pending returns the number of objects awaiting destruction.
func (r *Reclaimer) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
