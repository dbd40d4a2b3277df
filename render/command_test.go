package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDrainQueueLastWriterWins(t *testing.T) {
	queue := make(chan Command, 16)

	queue <- Command{Kind: CommandUpdateSimulation, Simulation: &SimulationData{Time: 1}}
	queue <- Command{Kind: CommandUpdateSimulation, Simulation: &SimulationData{Time: 2}}
	queue <- Command{Kind: CommandResize, Width: 100, Height: 50}
	queue <- Command{Kind: CommandUpdateSimulation, Simulation: &SimulationData{Time: 3}}
	queue <- Command{Kind: CommandResize, Width: 800, Height: 600}

	tray := drainQueue(queue)

	require.NotNil(t, tray.simulation)
	assert.Equal(t, float32(3), tray.simulation.Time)
	assert.True(t, tray.resize)
	assert.Equal(t, 800, tray.width)
	assert.Equal(t, 600, tray.height)
	assert.False(t, tray.stop)
	assert.Len(t, queue, 0, "drain must empty the queue")
}

func TestDrainQueueDoesNotBlock(t *testing.T) {
	queue := make(chan Command, 1)

	tray := drainQueue(queue)
	assert.False(t, tray.stop)
	assert.Nil(t, tray.simulation)
}

func TestTrayKeepsStopThroughLaterCommands(t *testing.T) {
	var tray commandTray
	tray.add(Command{Kind: CommandStop})
	tray.add(Command{Kind: CommandUpdateSimulation, Simulation: &SimulationData{}})

	assert.True(t, tray.stop)
}

func TestTrayDistinguishesEmptyVertexUpdate(t *testing.T) {
	var tray commandTray
	assert.False(t, tray.hasVertices)

	tray.add(Command{Kind: CommandUpdateVertexData, Vertices: []ParticleVertex{}})
	assert.True(t, tray.hasVertices)
}

func TestSendCommandDropsWhenFull(t *testing.T) {
	w := NewWorker(nil, zap.NewNop())

	sent := 0
	for i := 0; i < commandQueueCapacity+10; i++ {
		if w.SendCommand(Command{Kind: CommandUpdateSimulation}) {
			sent++
		}
	}

	assert.Equal(t, commandQueueCapacity, sent)
}

func TestStartTwiceIsRejected(t *testing.T) {
	w := NewWorker(nil, zap.NewNop())
	w.started = true

	err := w.Start(PipelineData{}, 100, 800, 600)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestStopBeforeStartIsANoOp(t *testing.T) {
	w := NewWorker(nil, zap.NewNop())
	assert.NoError(t, w.Stop())
	assert.False(t, w.Running())
}

func TestStopRaisesFlagBeforeEnqueue(t *testing.T) {
	w := NewWorker(nil, zap.NewNop())
	w.started = true
	w.done = make(chan struct{})
	close(w.done)

	require.NoError(t, w.Stop())

	assert.True(t, w.stopFlag.Load(),
		"the stop flag lets the loop exit without draining the backlog")
	assert.False(t, w.Running())
}
