package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchwarzschildRadiusDerivation(t *testing.T) {
	masses := []float64{1, 10, 3.2e6, 6.5e9}

	for _, massSolar := range masses {
		hole := NewBlackHole(massSolar)

		massKg := massSolar * SolarMass
		expected := 2 * GravitationalConstant * massKg /
			(SpeedOfLight * SpeedOfLight)

		assert.InEpsilon(t, expected, hole.SchwarzschildRadius, 1e-12,
			"schwarzschild radius for %g solar masses", massSolar)
		assert.InEpsilon(t, 1.5*hole.SchwarzschildRadius, hole.PhotonSphereRadius,
			1e-12, "photon sphere for %g solar masses", massSolar)
	}
}

func TestBlackHoleScale(t *testing.T) {
	hole := NewBlackHole(3.2e6)
	require.Greater(t, hole.SchwarzschildRadius, 0.0)

	metersPerUnit := hole.SchwarzschildRadius / 220
	hole.Scale(metersPerUnit, 3.2e6)

	assert.InDelta(t, 220, hole.HorizonRadius, 1e-9)
	assert.Equal(t, 3.2e6, hole.Mass)
}
