package render

import (
	"fmt"
	"math"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/Paper-2/blackHoleSim/device"
)

// maxFramesInFlight is the number of frame slots cycled by the worker.
const maxFramesInFlight = 2

// fence is the slot's wait/reset seam. The device-backed implementation
// wraps a vk.Fence; tests substitute a recorder to check ordering.
type fence interface {
	Wait() error
	Reset() error
}

type deviceFence struct {
	device vk.Device
	handle vk.Fence
}

func (f *deviceFence) Wait() error {
	res := vk.WaitForFences(f.device, 1, []vk.Fence{f.handle}, vk.True, math.MaxUint64)
	return vk.Error(res)
}

func (f *deviceFence) Reset() error {
	return vk.Error(vk.ResetFences(f.device, 1, []vk.Fence{f.handle}))
}

// MappedRange is a guard over a mapped memory range. Unmap is deferred at
// the write site so a mapping cannot outlive the write that needed it.
type MappedRange struct {
	device vk.Device
	memory vk.DeviceMemory
	ptr    unsafe.Pointer
	size   vk.DeviceSize
}

func mapRange(dev vk.Device, memory vk.DeviceMemory, size vk.DeviceSize) (*MappedRange, error) {
	var ptr unsafe.Pointer
	res := vk.MapMemory(dev, memory, 0, size, 0, &ptr)
	if err := vk.Error(res); err != nil {
		return nil, fmt.Errorf("mapping memory: %w", err)
	}
	return &MappedRange{device: dev, memory: memory, ptr: ptr, size: size}, nil
}

// Write copies data into the mapped range.
func (m *MappedRange) Write(data []byte) error {
	if vk.DeviceSize(len(data)) > m.size {
		return fmt.Errorf("write of %d bytes exceeds mapped range of %d", len(data), m.size)
	}
	vk.Memcopy(m.ptr, data)
	return nil
}

// Unmap releases the mapping. Safe to call once only.
func (m *MappedRange) Unmap() {
	vk.UnmapMemory(m.device, m.memory)
	m.ptr = nil
}

// frameSlot owns everything one frame in flight needs: its command buffer,
// semaphores, fence, the persistently mapped uniform buffer and the mutable
// particle vertex buffer.
type frameSlot struct {
	index int

	commandBuffer vk.CommandBuffer

	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       fence
	inFlightHandle vk.Fence

	uniform       device.Buffer
	uniformMapped unsafe.Pointer

	vertex         device.Buffer
	vertexCapacity int
	vertexCount    int

	// writable is true only between the fence wait and the queue submit;
	// CPU writes outside that window would race the GPU.
	writable bool
}

// slotRing cycles the frame slots. Acquire must be balanced by submitted.
type slotRing struct {
	slots   []*frameSlot
	current int
}

func newSlotRing(slots []*frameSlot) *slotRing {
	return &slotRing{slots: slots}
}

// acquire waits the next slot's fence and unlocks the slot for CPU writes.
// Every buffer write for the frame must happen after this returns. The
// fence stays signaled until armFence, so a frame skipped between acquire
// and submit leaves the slot immediately reusable.
func (r *slotRing) acquire() (*frameSlot, error) {
	slot := r.slots[r.current]

	if err := slot.inFlight.Wait(); err != nil {
		return nil, fmt.Errorf("waiting frame fence %d: %w", slot.index, err)
	}

	slot.writable = true
	return slot, nil
}

// armFence resets the slot's fence for the submit that is about to signal
// it. Called only once the frame is certain to be submitted.
func (s *frameSlot) armFence() error {
	if err := s.inFlight.Reset(); err != nil {
		return fmt.Errorf("resetting frame fence %d: %w", s.index, err)
	}
	return nil
}

// submitted marks the slot as handed to the GPU and advances the ring.
func (r *slotRing) submitted(slot *frameSlot) {
	slot.writable = false
	r.current = (r.current + 1) % len(r.slots)
}

// released marks the slot reusable without advancing, for frames that were
// skipped after acquire (swapchain out of date).
func (r *slotRing) released(slot *frameSlot) {
	slot.writable = false
}

// writeUniform copies the scene uniform into the slot's persistently mapped
// uniform buffer. It refuses to write while the GPU may still be reading.
func (s *frameSlot) writeUniform(data []byte) error {
	if !s.writable {
		return fmt.Errorf("uniform write on frame slot %d outside its fence window", s.index)
	}
	vk.Memcopy(s.uniformMapped, data)
	return nil
}

// writeVertices replaces the slot's particle vertices. The buffer has a
// fixed capacity decided at build time; a different count is a contract
// violation.
func (s *frameSlot) writeVertices(dev vk.Device, vertices []ParticleVertex) error {
	if !s.writable {
		return fmt.Errorf("vertex write on frame slot %d outside its fence window", s.index)
	}
	if len(vertices) != s.vertexCapacity {
		return fmt.Errorf(
			"vertex update with %d particles, pipeline built for %d",
			len(vertices), s.vertexCapacity,
		)
	}

	mapped, err := mapRange(dev, s.vertex.Memory, s.vertex.Size)
	if err != nil {
		return err
	}
	defer mapped.Unmap()

	if err := mapped.Write(particleVertexBytes(vertices)); err != nil {
		return err
	}

	s.vertexCount = len(vertices)
	return nil
}
