package sim

import (
	"math"

	"github.com/xlab/linmath"
)

const (
	// Pitch is clamped short of ±90° so the look-at up vector never flips.
	maxPitchDegrees = 89.0

	minCameraSpeed = 1.0
	maxCameraSpeed = 5000.0
)

// Camera is the free-flight camera owned by the simulation thread. The
// derived basis vectors and matrices are recomputed on every use; nothing is
// cached across ticks.
type Camera struct {
	Position linmath.Vec3

	// Yaw and Pitch are in degrees. Yaw 0 looks down negative Z.
	Yaw   float32
	Pitch float32

	// Speed is the translation speed in world units per second.
	Speed float32

	Fov  float32 // vertical field of view in degrees
	Near float32
	Far  float32
}

// NewCamera returns a camera at the given position looking toward the origin
// along its yaw/pitch of zero.
func NewCamera(position linmath.Vec3, speed float32) *Camera {
	return &Camera{
		Position: position,
		Yaw:      -90,
		Pitch:    0,
		Speed:    speed,
		Fov:      60,
		Near:     0.1,
		Far:      20000,
	}
}

// Front returns the unit view direction derived from yaw and pitch.
func (c *Camera) Front() linmath.Vec3 {
	yaw := float64(c.Yaw) * math.Pi / 180
	pitch := float64(c.Pitch) * math.Pi / 180

	return vecNormalize(linmath.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
	})
}

// Right returns the unit right vector for the current orientation.
func (c *Camera) Right() linmath.Vec3 {
	return vecNormalize(vecCross(c.Front(), linmath.Vec3{0, 1, 0}))
}

// Up returns the unit up vector for the current orientation.
func (c *Camera) Up() linmath.Vec3 {
	return vecNormalize(vecCross(c.Right(), c.Front()))
}

// Translate moves the camera along its basis vectors. forward/right/up are
// signed input axes in [-1, 1]; dt is the tick duration in seconds.
func (c *Camera) Translate(forward, right, up float32, dt float32) {
	step := c.Speed * dt
	c.Position = vecAdd(c.Position, vecScale(c.Front(), forward*step))
	c.Position = vecAdd(c.Position, vecScale(c.Right(), right*step))
	c.Position = vecAdd(c.Position, vecScale(linmath.Vec3{0, 1, 0}, up*step))
}

// Rotate applies a mouse delta to yaw/pitch. Pitch is clamped to avoid the
// gimbal flip at ±90°.
func (c *Camera) Rotate(deltaYaw, deltaPitch float32) {
	c.Yaw += deltaYaw
	c.Pitch += deltaPitch

	if c.Pitch > maxPitchDegrees {
		c.Pitch = maxPitchDegrees
	}
	if c.Pitch < -maxPitchDegrees {
		c.Pitch = -maxPitchDegrees
	}
}

// AdjustSpeed scales the translation speed by a scroll delta, bounded to a
// sane range.
func (c *Camera) AdjustSpeed(scroll float32) {
	c.Speed *= float32(math.Pow(1.2, float64(scroll)))
	if c.Speed < minCameraSpeed {
		c.Speed = minCameraSpeed
	}
	if c.Speed > maxCameraSpeed {
		c.Speed = maxCameraSpeed
	}
}

// View returns the view matrix for the current position and orientation.
func (c *Camera) View() linmath.Mat4x4 {
	var view linmath.Mat4x4

	center := vecAdd(c.Position, c.Front())
	up := c.Up()
	view.LookAt(&c.Position, &center, &up)

	return view
}

// Projection returns the perspective projection for the given aspect ratio.
// The Y flip for Vulkan clip space is applied here.
func (c *Camera) Projection(aspect float32) linmath.Mat4x4 {
	var proj linmath.Mat4x4

	proj.Perspective(c.Fov*math.Pi/180, aspect, c.Near, c.Far)
	proj[1][1] *= -1

	return proj
}

// FrustumCorners returns the four unit rays through the corners of the view
// frustum in the order bottom-left, bottom-right, top-left, top-right. The
// ray-march pass interpolates these bilinearly per pixel instead of
// inverting the view-projection matrix in the shader.
func (c *Camera) FrustumCorners(aspect float32) [4]linmath.Vec3 {
	front := c.Front()
	right := c.Right()
	up := c.Up()

	halfV := float32(math.Tan(float64(c.Fov) * math.Pi / 360))
	halfH := halfV * aspect

	var corners [4]linmath.Vec3
	for i, s := range [4][2]float32{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}} {
		ray := vecAdd(front, vecScale(right, s[0]*halfH))
		ray = vecAdd(ray, vecScale(up, s[1]*halfV))
		corners[i] = vecNormalize(ray)
	}
	return corners
}
