// Copyright 2025 The gogpu Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package framegraph

import "fmt"

// CommandKind identifies a recorded command.
type CommandKind uint8

// Command kinds.
const (
	CommandBarrier CommandKind = iota
	CommandBeginRendering
	CommandEndRendering
	CommandBindPipeline
	CommandBindVertexBuffer
	CommandBindIndexBuffer
	CommandDraw
	CommandDrawIndexed
	CommandDispatch
	CommandCopyBuffer
)

// String returns the kind name.
func (k CommandKind) String() string {
	switch k {
	case CommandBarrier:
		return "Barrier"
	case CommandBeginRendering:
		return "BeginRendering"
	case CommandEndRendering:
		return "EndRendering"
	case CommandBindPipeline:
		return "BindPipeline"
	case CommandBindVertexBuffer:
		return "BindVertexBuffer"
	case CommandBindIndexBuffer:
		return "BindIndexBuffer"
	case CommandDraw:
		return "Draw"
	case CommandDrawIndexed:
		return "DrawIndexed"
	case CommandDispatch:
		return "Dispatch"
	case CommandCopyBuffer:
		return "CopyBuffer"
	default:
		return fmt.Sprintf("CommandKind(%d)", uint8(k))
	}
}

// Command is one recorded command. Only the fields relevant to Kind are set.
type Command struct {
	Kind CommandKind

	// Barriers is set for CommandBarrier.
	Barriers []ImageBarrier

	// Rendering is set for CommandBeginRendering.
	Rendering *RenderingState

	// Pipeline is set for CommandBindPipeline.
	Pipeline Pipeline

	// BindBuffer and Offset are set for the buffer bind commands; the
	// vertex binding slot rides in Args[0].
	BindBuffer Buffer
	Offset     uint64

	// Args holds the numeric arguments of draw and dispatch commands in
	// declaration order. VertexOffset of DrawIndexed is stored separately
	// because it is signed.
	Args         [5]uint32
	VertexOffset int32

	// CopySrc, CopyDst and the offsets/size are set for CommandCopyBuffer.
	CopySrc    Buffer
	CopyDst    Buffer
	SrcOffset  uint64
	DstOffset  uint64
	CopyLength uint64
}

// CommandLog is a CommandRecorder that records commands into a replayable
// list instead of encoding them for a GPU. It backs graph tests and the
// fgcheck tool, and satisfies the recorder pool's reset contract.
type CommandLog struct {
	recording bool
	commands  []Command
}

var _ CommandRecorder = (*CommandLog)(nil)

// NewCommandLog returns an empty command log.
func NewCommandLog() *CommandLog {
	return &CommandLog{}
}

// Begin starts recording. Beginning an already-recording log logs a warning
// and keeps the commands recorded so far.
func (l *CommandLog) Begin() error {
	if l.recording {
		Logger().Warn("framegraph: command log already recording")
		return nil
	}
	l.recording = true
	return nil
}

// End stops recording.
func (l *CommandLog) End() error {
	l.recording = false
	return nil
}

// Reset discards all recorded commands.
func (l *CommandLog) Reset() {
	l.recording = false
	l.commands = l.commands[:0]
}

// Commands returns the recorded commands in order.
func (l *CommandLog) Commands() []Command {
	return l.commands
}

// PipelineBarrier records a non-empty barrier batch.
func (l *CommandLog) PipelineBarrier(batch *BarrierBatch) {
	if batch == nil || batch.Len() == 0 {
		return
	}
	barriers := make([]ImageBarrier, len(batch.ImageBarriers()))
	copy(barriers, batch.ImageBarriers())
	l.commands = append(l.commands, Command{
		Kind:     CommandBarrier,
		Barriers: barriers,
	})
}

// BeginRendering records the start of a rendering scope.
func (l *CommandLog) BeginRendering(state *RenderingState) {
	l.commands = append(l.commands, Command{
		Kind:      CommandBeginRendering,
		Rendering: state,
	})
}

// EndRendering records the end of a rendering scope.
func (l *CommandLog) EndRendering() {
	l.commands = append(l.commands, Command{Kind: CommandEndRendering})
}

// BindPipeline records a pipeline bind.
func (l *CommandLog) BindPipeline(pipeline Pipeline) {
	l.commands = append(l.commands, Command{
		Kind:     CommandBindPipeline,
		Pipeline: pipeline,
	})
}

// BindVertexBuffer records a vertex buffer bind.
func (l *CommandLog) BindVertexBuffer(buf Buffer, binding uint32, offset uint64) {
	l.commands = append(l.commands, Command{
		Kind:       CommandBindVertexBuffer,
		BindBuffer: buf,
		Args:       [5]uint32{binding},
		Offset:     offset,
	})
}

// BindIndexBuffer records an index buffer bind.
func (l *CommandLog) BindIndexBuffer(buf Buffer, offset uint64) {
	l.commands = append(l.commands, Command{
		Kind:       CommandBindIndexBuffer,
		BindBuffer: buf,
		Offset:     offset,
	})
}

// Draw records a non-indexed draw.
func (l *CommandLog) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	l.commands = append(l.commands, Command{
		Kind: CommandDraw,
		Args: [5]uint32{vertexCount, instanceCount, firstVertex, firstInstance},
	})
}

// DrawIndexed records an indexed draw.
func (l *CommandLog) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) {
	l.commands = append(l.commands, Command{
		Kind:         CommandDrawIndexed,
		Args:         [5]uint32{indexCount, instanceCount, firstIndex, 0, firstInstance},
		VertexOffset: vertexOffset,
	})
}

// Dispatch records a compute dispatch.
func (l *CommandLog) Dispatch(groupsX, groupsY, groupsZ uint32) {
	l.commands = append(l.commands, Command{
		Kind: CommandDispatch,
		Args: [5]uint32{groupsX, groupsY, groupsZ},
	})
}

// CopyBuffer records a buffer to buffer copy.
func (l *CommandLog) CopyBuffer(src, dst Buffer, srcOffset, dstOffset, size uint64) {
	l.commands = append(l.commands, Command{
		Kind:       CommandCopyBuffer,
		CopySrc:    src,
		CopyDst:    dst,
		SrcOffset:  srcOffset,
		DstOffset:  dstOffset,
		CopyLength: size,
	})
}
