package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xlab/linmath"
)

func TestCameraBasisOrthonormal(t *testing.T) {
	cam := NewCamera(linmath.Vec3{0, 0, 1000}, 100)
	cam.Rotate(33, 21)

	front := cam.Front()
	right := cam.Right()
	up := cam.Up()

	assert.InDelta(t, 1, float64(vecLength(front)), 1e-5)
	assert.InDelta(t, 1, float64(vecLength(right)), 1e-5)
	assert.InDelta(t, 1, float64(vecLength(up)), 1e-5)

	assert.InDelta(t, 0, float64(vecDot(front, right)), 1e-5)
	assert.InDelta(t, 0, float64(vecDot(front, up)), 1e-5)
	assert.InDelta(t, 0, float64(vecDot(right, up)), 1e-5)
}

func TestCameraPitchClamp(t *testing.T) {
	cam := NewCamera(linmath.Vec3{}, 100)

	cam.Rotate(0, 500)
	assert.Equal(t, float32(89), cam.Pitch)

	cam.Rotate(0, -1000)
	assert.Equal(t, float32(-89), cam.Pitch)
}

func TestCameraSpeedBounds(t *testing.T) {
	cam := NewCamera(linmath.Vec3{}, 100)

	for i := 0; i < 100; i++ {
		cam.AdjustSpeed(1)
	}
	assert.Equal(t, float32(maxCameraSpeed), cam.Speed)

	for i := 0; i < 200; i++ {
		cam.AdjustSpeed(-1)
	}
	assert.Equal(t, float32(minCameraSpeed), cam.Speed)
}

func TestFrustumCornersSpanFov(t *testing.T) {
	cam := NewCamera(linmath.Vec3{}, 100)
	corners := cam.FrustumCorners(16.0 / 9.0)

	front := cam.Front()
	for i, ray := range corners {
		assert.InDelta(t, 1, float64(vecLength(ray)), 1e-5, "corner %d", i)
		assert.Greater(t, vecDot(ray, front), float32(0),
			"corner %d points away from the view direction", i)
	}

	// Bottom pair mirrors the top pair through the view axis.
	sum := vecAdd(vecAdd(corners[0], corners[1]), vecAdd(corners[2], corners[3]))
	mirrored := vecNormalize(sum)
	assert.InDelta(t, 1, float64(vecDot(mirrored, front)), 1e-5)
}
