package sim

import (
	"github.com/xlab/linmath"
)

// Physical constants in SI units.
const (
	GravitationalConstant = 6.67430e-11
	SpeedOfLight          = 2.99792458e8
	SolarMass             = 1.98892e30
)

// BlackHole is the simulated singularity. The SI-derived radii are kept
// alongside their world-unit counterparts so that the physically derived
// quantities stay testable while the renderer and the particle integrator
// work in scene units.
type BlackHole struct {
	Position linmath.Vec3

	// MassSolar is the black hole mass in solar masses.
	MassSolar float64

	// SchwarzschildRadius is the event horizon radius in meters, 2GM/c².
	SchwarzschildRadius float64

	// PhotonSphereRadius is 1.5 times the Schwarzschild radius, in meters.
	PhotonSphereRadius float64

	// Mass is the gravitational parameter used by the particle integrator
	// and the lensing distortion, expressed in world units.
	Mass float64

	// HorizonRadius is the Schwarzschild radius expressed in world units.
	HorizonRadius float64
}

// NewBlackHole derives the horizon radii for a hole of the given mass. The
// world-unit fields are filled in by Scale.
func NewBlackHole(massSolar float64) *BlackHole {
	massKg := massSolar * SolarMass
	rs := 2 * GravitationalConstant * massKg / (SpeedOfLight * SpeedOfLight)

	return &BlackHole{
		MassSolar:           massSolar,
		SchwarzschildRadius: rs,
		PhotonSphereRadius:  1.5 * rs,
	}
}

// Scale sets the world-unit quantities: metersPerUnit converts the SI horizon
// radius into scene units and worldMass becomes the integrator's gravitational
// parameter.
func (b *BlackHole) Scale(metersPerUnit float64, worldMass float64) *BlackHole {
	b.HorizonRadius = b.SchwarzschildRadius / metersPerUnit
	b.Mass = worldMass
	return b
}
