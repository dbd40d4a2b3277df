package render

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"

	"github.com/Paper-2/blackHoleSim/device"
)

// commandQueueCapacity bounds the render queue. Updates past this backlog
// are dropped rather than blocking the simulation thread; only the latest
// state matters anyway.
const commandQueueCapacity = 256

// stopJoinTimeout is how long Stop waits for the worker thread to exit
// before declaring the shutdown failed.
const stopJoinTimeout = 5 * time.Second

// Worker runs the render loop on its own OS thread. All Vulkan submission
// state lives on that thread; the rest of the program talks to it only
// through SendCommand.
type Worker struct {
	ctx *device.Context
	log *zap.Logger

	queue    chan Command
	stopFlag atomic.Bool
	running  atomic.Bool

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewWorker prepares a worker bound to the device context. The render
// thread does not exist until Start.
func NewWorker(ctx *device.Context, log *zap.Logger) *Worker {
	return &Worker{
		ctx:   ctx,
		log:   log,
		queue: make(chan Command, commandQueueCapacity),
	}
}

// Start builds the swapchain, pipelines and frame slots on a dedicated
// thread and begins the frame loop. It returns once the thread is live or
// has failed to initialize. Starting an already running worker is a
// programming error.
func (w *Worker) Start(pipe PipelineData, particleCount, width, height int) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("render worker already started")
	}

	// Drop anything left over from a previous run.
drain:
	for {
		select {
		case <-w.queue:
		default:
			break drain
		}
	}

	w.stopFlag.Store(false)
	w.done = make(chan struct{})

	ready := make(chan error, 1)
	go w.run(pipe, particleCount, width, height, ready)

	if err := <-ready; err != nil {
		return err
	}

	w.started = true
	w.running.Store(true)
	return nil
}

// SendCommand enqueues a command without blocking. When the queue is full
// a coalescible update is dropped and false is returned; the next update
// supersedes it anyway. Stop commands are never load-shed because Stop
// also raises the stop flag.
func (w *Worker) SendCommand(cmd Command) bool {
	select {
	case w.queue <- cmd:
		return true
	default:
		return false
	}
}

// Stop asks the render thread to exit after the current frame and joins it
// with a timeout. Expiry is a fatal shutdown error, not retried.
func (w *Worker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return nil
	}

	// The flag is checked before the drain so Stop cannot wait behind a
	// backlog of simulation updates.
	w.stopFlag.Store(true)
	w.SendCommand(Command{Kind: CommandStop})

	select {
	case <-w.done:
	case <-time.After(stopJoinTimeout):
		return fmt.Errorf("render worker did not stop within %s", stopJoinTimeout)
	}

	w.started = false
	w.running.Store(false)
	return nil
}

// Running reports worker liveness. It flips false when the loop exits for
// any reason, including fatal render errors, so the main thread can notice
// and shut down instead of hanging.
func (w *Worker) Running() bool {
	return w.running.Load()
}

func (w *Worker) run(
	pipe PipelineData,
	particleCount, width, height int,
	ready chan<- error,
) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer w.running.Store(false)

	state, err := newWorkerState(w.ctx, w.log, pipe, particleCount, width, height)
	if err != nil {
		ready <- err
		return
	}
	defer close(w.done)
	defer state.destroy()

	ready <- nil
	w.log.Info("render worker started",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("particles", particleCount),
	)

	for {
		tray := drainQueue(w.queue)

		if w.stopFlag.Load() || tray.stop {
			w.log.Info("render worker stopping")
			return
		}

		state.apply(tray)

		if rw, rh, ok := state.debounce.Ready(time.Now()); ok {
			if err := state.recreateSwapchain(rw, rh); err != nil {
				w.log.Error("swapchain recreation failed", zap.Error(err))
				return
			}
		}

		if state.sim == nil {
			// Nothing to draw until the first simulation update; block
			// instead of spinning.
			cmd := <-w.queue
			var first commandTray
			first.add(cmd)
			if first.stop || w.stopFlag.Load() {
				w.log.Info("render worker stopping")
				return
			}
			state.apply(first)
			continue
		}

		if err := state.drawFrame(); err != nil {
			w.log.Error("render loop fatal error", zap.Error(err))
			return
		}
	}
}

// workerState is everything the render thread owns. It is created and
// destroyed on that thread and never escapes it.
type workerState struct {
	ctx *device.Context
	log *zap.Logger

	pipe     PipelineData
	sim      *SimulationData
	vertices []ParticleVertex

	swapchain  *device.Swapchain
	renderPass vk.RenderPass
	targets    renderTargets

	ring      *slotRing
	pipelines []pipeline

	debounce *resizeDebouncer
}

func newWorkerState(
	ctx *device.Context,
	log *zap.Logger,
	pipe PipelineData,
	particleCount, width, height int,
) (*workerState, error) {
	state := &workerState{
		ctx:      ctx,
		log:      log,
		pipe:     pipe,
		debounce: newResizeDebouncer(width, height),
	}

	var err error
	state.swapchain, err = ctx.CreateSwapchain(width, height, vk.Swapchain(vk.NullHandle))
	if err != nil {
		return nil, err
	}

	state.targets.depthFormat, err = findDepthFormat(ctx)
	if err != nil {
		state.destroy()
		return nil, err
	}

	state.renderPass, err = createRenderPass(
		ctx, state.swapchain.Format, state.targets.depthFormat,
	)
	if err != nil {
		state.destroy()
		return nil, err
	}

	if err := state.targets.build(ctx, state.swapchain, state.renderPass); err != nil {
		state.destroy()
		return nil, err
	}

	slots, err := createFrameSlots(ctx, particleCount)
	if err != nil {
		state.destroy()
		return nil, err
	}
	state.ring = newSlotRing(slots)

	state.pipelines = newPipelines()
	for _, p := range state.pipelines {
		if err := p.Build(ctx, state.renderPass, slots); err != nil {
			state.destroy()
			return nil, err
		}
	}

	return state, nil
}

func createFrameSlots(ctx *device.Context, particleCount int) ([]*frameSlot, error) {
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        ctx.CommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: maxFramesInFlight,
	}

	commandBuffers := make([]vk.CommandBuffer, maxFramesInFlight)
	res := vk.AllocateCommandBuffers(ctx.Device, &allocInfo, commandBuffers)
	if res != vk.Success {
		return nil, fmt.Errorf("failed to allocate command buffers: %w", vk.Error(res))
	}

	uniformSize := vk.DeviceSize(unsafe.Sizeof(sceneUniform{}))
	vertexSize := vk.DeviceSize(particleCount) *
		vk.DeviceSize(unsafe.Sizeof(ParticleVertex{}))

	slots := make([]*frameSlot, 0, maxFramesInFlight)
	for i := 0; i < maxFramesInFlight; i++ {
		slot, err := newFrameSlot(
			ctx, i, commandBuffers[i], particleCount, uniformSize, vertexSize,
		)
		if err != nil {
			destroyFrameSlots(ctx, slots)
			return nil, err
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

func newFrameSlot(
	ctx *device.Context,
	index int,
	commandBuffer vk.CommandBuffer,
	particleCount int,
	uniformSize, vertexSize vk.DeviceSize,
) (*frameSlot, error) {
	slot := &frameSlot{
		index:          index,
		commandBuffer:  commandBuffer,
		vertexCapacity: particleCount,
	}

	fail := func(err error) (*frameSlot, error) {
		destroyFrameSlots(ctx, []*frameSlot{slot})
		return nil, err
	}

	var err error
	slot.imageAvailable, err = ctx.CreateSemaphore()
	if err != nil {
		return fail(err)
	}
	slot.renderFinished, err = ctx.CreateSemaphore()
	if err != nil {
		return fail(err)
	}

	// Created signaled so the first acquire does not block forever.
	slot.inFlightHandle, err = ctx.CreateFence(true)
	if err != nil {
		return fail(err)
	}
	slot.inFlight = &deviceFence{device: ctx.Device, handle: slot.inFlightHandle}

	hostVisible := vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) |
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)

	slot.uniform, err = ctx.CreateBuffer(
		uniformSize,
		vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit),
		hostVisible,
	)
	if err != nil {
		return fail(err)
	}

	// Persistently mapped for the worker's lifetime.
	res := vk.MapMemory(
		ctx.Device, slot.uniform.Memory, 0, uniformSize, 0, &slot.uniformMapped,
	)
	if res != vk.Success {
		return fail(fmt.Errorf("mapping uniform buffer: %w", vk.Error(res)))
	}

	slot.vertex, err = ctx.CreateBuffer(
		vertexSize,
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		hostVisible,
	)
	if err != nil {
		return fail(err)
	}

	return slot, nil
}

func destroyFrameSlots(ctx *device.Context, slots []*frameSlot) {
	for _, slot := range slots {
		if slot.uniformMapped != nil {
			vk.UnmapMemory(ctx.Device, slot.uniform.Memory)
			slot.uniformMapped = nil
		}
		slot.uniform.Destroy(ctx)
		slot.vertex.Destroy(ctx)

		if slot.imageAvailable != vk.Semaphore(vk.NullHandle) {
			vk.DestroySemaphore(ctx.Device, slot.imageAvailable, nil)
		}
		if slot.renderFinished != vk.Semaphore(vk.NullHandle) {
			vk.DestroySemaphore(ctx.Device, slot.renderFinished, nil)
		}
		if slot.inFlightHandle != vk.Fence(vk.NullHandle) {
			vk.DestroyFence(ctx.Device, slot.inFlightHandle, nil)
		}
	}
}

// apply folds one drained tray into the persistent state.
func (st *workerState) apply(tray commandTray) {
	if tray.pipeline != nil {
		st.pipe = *tray.pipeline
	}
	if tray.simulation != nil {
		st.sim = tray.simulation
	}
	if tray.hasVertices {
		st.vertices = tray.vertices
	}
	if tray.resize {
		st.debounce.Observe(tray.width, tray.height, time.Now())
	}
}

func (st *workerState) drawFrame() error {
	slot, err := st.ring.acquire()
	if err != nil {
		return err
	}

	aspect := float32(st.swapchain.Extent.Width) / float32(st.swapchain.Extent.Height)
	uniform := buildSceneUniform(st.sim, &st.pipe, aspect)
	if err := slot.writeUniform(uniform.bytes()); err != nil {
		return err
	}

	if st.vertices != nil {
		if err := slot.writeVertices(st.ctx.Device, st.vertices); err != nil {
			return err
		}
		st.vertices = nil
	}

	var imageIndex uint32
	res := vk.AcquireNextImage(
		st.ctx.Device,
		st.swapchain.Handle,
		math.MaxUint64,
		slot.imageAvailable,
		vk.Fence(vk.NullHandle),
		&imageIndex,
	)
	if res == vk.ErrorOutOfDate {
		st.ring.released(slot)
		return st.recreateAtAppliedSize()
	} else if res != vk.Success && res != vk.Suboptimal {
		st.ring.released(slot)
		return fmt.Errorf("failed to acquire swap chain image: %w", vk.Error(res))
	}

	// The frame is definitely being submitted from here on.
	if err := slot.armFence(); err != nil {
		return err
	}

	vk.ResetCommandBuffer(slot.commandBuffer, 0)
	if err := st.recordCommandBuffer(slot, imageIndex); err != nil {
		return fmt.Errorf("recording command buffer: %w", err)
	}

	signalSemaphores := []vk.Semaphore{slot.renderFinished}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{slot.imageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{slot.commandBuffer},
		PSignalSemaphores:    signalSemaphores,
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
	}

	res = vk.QueueSubmit(
		st.ctx.GraphicsQueue,
		1,
		[]vk.SubmitInfo{submitInfo},
		slot.inFlightHandle,
	)
	if err := vk.Error(res); err != nil {
		return fmt.Errorf("queue submit error: %w", err)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: uint32(len(signalSemaphores)),
		PWaitSemaphores:    signalSemaphores,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{st.swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	res = vk.QueuePresent(st.ctx.PresentQueue, &presentInfo)
	st.ring.submitted(slot)

	if res == vk.ErrorOutOfDate || res == vk.Suboptimal {
		return st.recreateAtAppliedSize()
	} else if res != vk.Success {
		return fmt.Errorf("failed to present swap chain image: %w", vk.Error(res))
	}

	return nil
}

func (st *workerState) recordCommandBuffer(slot *frameSlot, imageIndex uint32) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}

	res := vk.BeginCommandBuffer(slot.commandBuffer, &beginInfo)
	if res != vk.Success {
		return fmt.Errorf("failed to begin command buffer: %w", vk.Error(res))
	}

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor([]float32{0.003, 0.002, 0.008, 1})
	clearValues[1].SetDepthStencil(1, 0)

	renderPassInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  st.renderPass,
		Framebuffer: st.targets.framebuffers[imageIndex],
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: st.swapchain.Extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(slot.commandBuffer, &renderPassInfo, vk.SubpassContentsInline)

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(st.swapchain.Extent.Width),
		Height:   float32(st.swapchain.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(slot.commandBuffer, 0, 1, []vk.Viewport{viewport})

	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: st.swapchain.Extent,
	}
	vk.CmdSetScissor(slot.commandBuffer, 0, 1, []vk.Rect2D{scissor})

	for _, p := range st.pipelines {
		p.RecordDraw(slot.commandBuffer, slot)
	}

	vk.CmdEndRenderPass(slot.commandBuffer)

	res = vk.EndCommandBuffer(slot.commandBuffer)
	if res != vk.Success {
		return fmt.Errorf("failed to end command buffer: %w", vk.Error(res))
	}

	return nil
}

// recreateAtAppliedSize rebuilds the swapchain when the out-of-date signal
// came from the driver rather than a resize event.
func (st *workerState) recreateAtAppliedSize() error {
	return st.recreateSwapchain(st.debounce.appliedWidth, st.debounce.appliedHeight)
}

func (st *workerState) recreateSwapchain(width, height int) error {
	// Zero extent means a minimized window; the next resize event restores
	// it and triggers recreation then.
	if width == 0 || height == 0 {
		return nil
	}

	st.ctx.WaitIdle()

	st.targets.destroy(st.ctx)

	// The old swapchain is chained into the new one before being torn
	// down, which lets the driver carry frames across the switch.
	newSwapchain, err := st.ctx.CreateSwapchain(width, height, st.swapchain.Handle)
	if err != nil {
		return fmt.Errorf("recreating swapchain: %w", err)
	}
	st.swapchain.Destroy(st.ctx)
	st.swapchain = newSwapchain

	if err := st.targets.build(st.ctx, st.swapchain, st.renderPass); err != nil {
		return fmt.Errorf("rebuilding render targets: %w", err)
	}

	st.debounce.Applied(width, height)

	st.log.Debug("swapchain recreated",
		zap.Uint32("width", st.swapchain.Extent.Width),
		zap.Uint32("height", st.swapchain.Extent.Height),
	)

	return nil
}

func (st *workerState) destroy() {
	st.ctx.WaitIdle()

	for _, p := range st.pipelines {
		p.Dispose(st.ctx)
	}
	st.pipelines = nil

	if st.ring != nil {
		destroyFrameSlots(st.ctx, st.ring.slots)
		st.ring = nil
	}

	st.targets.destroy(st.ctx)

	if st.renderPass != vk.RenderPass(vk.NullHandle) {
		vk.DestroyRenderPass(st.ctx.Device, st.renderPass, nil)
		st.renderPass = vk.RenderPass(vk.NullHandle)
	}

	if st.swapchain != nil {
		st.swapchain.Destroy(st.ctx)
		st.swapchain = nil
	}
}
