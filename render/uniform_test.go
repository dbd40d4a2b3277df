package render

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlab/linmath"
)

// The uniform block must keep its std140 size; the shaders declare the
// same layout and the two drift apart silently otherwise.
func TestSceneUniformSize(t *testing.T) {
	assert.Equal(t, uintptr(256), unsafe.Sizeof(sceneUniform{}))
}

func TestBuildSceneUniformPacking(t *testing.T) {
	sim := &SimulationData{
		CameraPos: linmath.Vec3{1, 2, 3},
		Time:      7.5,
		Corners: [4]linmath.Vec3{
			{-1, -1, -1},
			{1, -1, -1},
			{-1, 1, -1},
			{1, 1, -1},
		},
	}
	pipe := &PipelineData{
		HolePosition:       linmath.Vec3{0, 0, -500},
		SchwarzschildWorld: 220,
		DiskInner:          330,
		DiskOuter:          2200,
		DiskHalfThickness:  12,
		DistortionPower:    2,
		MaxSteps:           512,
		MaxDistance:        40000,
		BaseStep:           40,
	}

	u := buildSceneUniform(sim, pipe, 1.5)

	assert.Equal(t, [4]float32{1, 2, 3, 7.5}, u.CameraPos,
		"time rides in CameraPos.w")
	assert.Equal(t, [4]float32{0, 0, -500, 220}, u.HolePos,
		"horizon radius rides in HolePos.w")
	assert.Equal(t, [4]float32{330, 2200, 12, 2}, u.DiskParams)
	assert.Equal(t, [4]float32{512, 40000, 40, 1.5}, u.MarchParams)

	for i, corner := range sim.Corners {
		assert.Equal(t, corner[0], u.Corners[i][0])
		assert.Equal(t, corner[1], u.Corners[i][1])
		assert.Equal(t, corner[2], u.Corners[i][2])
		assert.Equal(t, float32(0), u.Corners[i][3])
	}
}

func TestUniformBytesLength(t *testing.T) {
	u := buildSceneUniform(&SimulationData{}, &PipelineData{}, 1)
	require.Len(t, u.bytes(), int(unsafe.Sizeof(sceneUniform{})))
}

func TestParticleVertexBytes(t *testing.T) {
	vertices := []ParticleVertex{
		{Position: [3]float32{1, 2, 3}},
		{Position: [3]float32{4, 5, 6}},
	}

	raw := particleVertexBytes(vertices)
	require.Len(t, raw, 2*int(unsafe.Sizeof(ParticleVertex{})))
}
