package render

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFence records the wait/reset order so the write-after-fence contract
// can be checked without a device.
type fakeFence struct {
	waits  int
	resets int
}

func (f *fakeFence) Wait() error  { f.waits++; return nil }
func (f *fakeFence) Reset() error { f.resets++; return nil }

func testRing() (*slotRing, []*fakeFence) {
	fences := []*fakeFence{{}, {}}

	slots := make([]*frameSlot, len(fences))
	for i := range slots {
		// Plain heap memory stands in for the mapped uniform buffer.
		backing := make([]byte, 256)
		slots[i] = &frameSlot{
			index:          i,
			inFlight:       fences[i],
			vertexCapacity: 4,
			uniformMapped:  unsafe.Pointer(&backing[0]),
		}
	}
	return newSlotRing(slots), fences
}

func TestWriteRefusedOutsideFenceWindow(t *testing.T) {
	ring, _ := testRing()

	slot := ring.slots[0]
	err := slot.writeUniform(make([]byte, 16))
	require.Error(t, err, "write before the fence wait must be refused")

	acquired, err := ring.acquire()
	require.NoError(t, err)
	require.Same(t, slot, acquired)

	assert.NoError(t, acquired.writeUniform(make([]byte, 16)))

	ring.submitted(acquired)
	err = acquired.writeUniform(make([]byte, 16))
	assert.Error(t, err, "write after submit must be refused")
}

func TestAcquireWaitsBeforeUnlocking(t *testing.T) {
	ring, fences := testRing()

	slot, err := ring.acquire()
	require.NoError(t, err)

	assert.Equal(t, 1, fences[0].waits)
	assert.Equal(t, 0, fences[0].resets, "fence must stay signaled until the submit is certain")
	assert.True(t, slot.writable)

	require.NoError(t, slot.armFence())
	assert.Equal(t, 1, fences[0].resets)
}

func TestSubmittedAdvancesRing(t *testing.T) {
	ring, fences := testRing()

	first, err := ring.acquire()
	require.NoError(t, err)
	ring.submitted(first)

	second, err := ring.acquire()
	require.NoError(t, err)

	assert.Equal(t, 0, first.index)
	assert.Equal(t, 1, second.index)
	assert.Equal(t, 1, fences[1].waits)
}

func TestReleasedKeepsSlotCurrent(t *testing.T) {
	ring, _ := testRing()

	slot, err := ring.acquire()
	require.NoError(t, err)
	ring.released(slot)

	assert.False(t, slot.writable)

	again, err := ring.acquire()
	require.NoError(t, err)
	assert.Same(t, slot, again, "a released slot is retried, not skipped")
}

func TestVertexWriteRejectsCapacityMismatch(t *testing.T) {
	ring, _ := testRing()

	slot, err := ring.acquire()
	require.NoError(t, err)

	err = slot.writeVertices(nil, make([]ParticleVertex, 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "built for 4")
}
