// Package frame provides frame pacing, command-recorder pooling, and
// deferred resource reclamation for the framegraph executor.
//
// A [Synchronizer] tracks the current/previous/absolute frame counters and
// derives timeline-semaphore wait values that bound CPU/GPU frame lag to
// [MaxFrames]. A [RecorderPool] pre-allocates command recorders per
// (frame slot, thread) cell and recycles them when a slot's previous
// occupant has provably retired. A [Reclaimer] defers GPU object
// destruction until the releasing frame has retired, folding object
// lifetime into the same timeline mechanism that recycles command pools.
//
// [Pacer] ties the pieces into the per-frame surface a host application
// drives: BeginFrame, record, EndFrame, once per displayed frame, in that
// order.
package frame
