// Package render owns the render worker: a dedicated OS thread that holds
// every Vulkan submission object and is fed through an asynchronous command
// queue. Nothing outside this package touches the queues or the swapchain
// once the worker has started.
package render

import (
	"github.com/xlab/linmath"
)

// CommandKind discriminates the render command union.
type CommandKind int

const (
	// CommandStop asks the worker loop to exit after finishing the
	// current frame.
	CommandStop CommandKind = iota

	// CommandUpdateSimulation carries the per-tick camera and time state.
	CommandUpdateSimulation

	// CommandSetPipelineData carries the static scene parameters consumed
	// by the shaders (hole position and radius, disk annulus, march tuning).
	CommandSetPipelineData

	// CommandUpdateVertexData carries the particle positions for the next
	// frame.
	CommandUpdateVertexData

	// CommandResize reports a framebuffer size change.
	CommandResize
)

// ParticleVertex is the particle pipeline's vertex layout: position only.
type ParticleVertex struct {
	Position [3]float32
}

// SimulationData is the per-tick state captured on the main thread.
type SimulationData struct {
	View       linmath.Mat4x4
	Projection linmath.Mat4x4
	CameraPos  linmath.Vec3
	Corners    [4]linmath.Vec3
	Time       float32
}

// PipelineData is the quasi-static scene description. It changes only when
// the user reconfigures the scene, not per frame.
type PipelineData struct {
	HolePosition       linmath.Vec3
	SchwarzschildWorld float32

	DiskInner         float32
	DiskOuter         float32
	DiskHalfThickness float32
	DistortionPower   float32

	MaxSteps    float32
	MaxDistance float32
	BaseStep    float32
}

// Command is one message on the render queue. Exactly the fields implied by
// Kind are set.
type Command struct {
	Kind CommandKind

	Simulation *SimulationData
	Pipeline   *PipelineData
	Vertices   []ParticleVertex

	Width  int
	Height int
}

// commandTray is the result of draining the queue before a frame: commands
// of the same kind coalesce with last-writer-wins, so a slow frame consumes
// a burst of updates as a single state change.
type commandTray struct {
	stop bool

	simulation  *SimulationData
	pipeline    *PipelineData
	vertices    []ParticleVertex
	hasVertices bool

	resize        bool
	width, height int
}

func (t *commandTray) add(cmd Command) {
	switch cmd.Kind {
	case CommandStop:
		t.stop = true
	case CommandUpdateSimulation:
		t.simulation = cmd.Simulation
	case CommandSetPipelineData:
		t.pipeline = cmd.Pipeline
	case CommandUpdateVertexData:
		t.vertices = cmd.Vertices
		t.hasVertices = true
	case CommandResize:
		t.resize = true
		t.width, t.height = cmd.Width, cmd.Height
	}
}

// drainQueue folds every currently buffered command into a tray without
// blocking.
func drainQueue(queue <-chan Command) commandTray {
	var tray commandTray
	for {
		select {
		case cmd := <-queue:
			tray.add(cmd)
		default:
			return tray
		}
	}
}
