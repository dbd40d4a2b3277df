package render

import (
	"github.com/xlab/linmath"

	"github.com/Paper-2/blackHoleSim/unsafer"
)

// sceneUniform is the uniform block shared by all three pipelines. The
// field order and vec4 padding mirror the std140 block in the shaders;
// changing one side without the other corrupts every draw.
type sceneUniform struct {
	View       linmath.Mat4x4
	Projection linmath.Mat4x4

	// CameraPos packs the camera position with the scene time in w.
	CameraPos [4]float32

	// HolePos packs the hole position with the world Schwarzschild radius
	// in w.
	HolePos [4]float32

	// DiskParams packs inner radius, outer radius, half thickness and the
	// distortion exponent.
	DiskParams [4]float32

	// MarchParams packs max steps, max distance, base step and the aspect
	// ratio.
	MarchParams [4]float32

	// Corners are the frustum corner rays: bottom-left, bottom-right,
	// top-left, top-right.
	Corners [4][4]float32
}

func buildSceneUniform(
	sim *SimulationData,
	pipe *PipelineData,
	aspect float32,
) sceneUniform {
	u := sceneUniform{
		View:       sim.View,
		Projection: sim.Projection,
		CameraPos: [4]float32{
			sim.CameraPos[0], sim.CameraPos[1], sim.CameraPos[2], sim.Time,
		},
		HolePos: [4]float32{
			pipe.HolePosition[0], pipe.HolePosition[1], pipe.HolePosition[2],
			pipe.SchwarzschildWorld,
		},
		DiskParams: [4]float32{
			pipe.DiskInner, pipe.DiskOuter, pipe.DiskHalfThickness,
			pipe.DistortionPower,
		},
		MarchParams: [4]float32{
			pipe.MaxSteps, pipe.MaxDistance, pipe.BaseStep, aspect,
		},
	}

	for i, corner := range sim.Corners {
		u.Corners[i] = [4]float32{corner[0], corner[1], corner[2], 0}
	}

	return u
}

func (u *sceneUniform) bytes() []byte {
	return unsafer.StructToBytes(u)
}

func particleVertexBytes(vertices []ParticleVertex) []byte {
	return unsafer.SliceToBytes(vertices)
}
