package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSphere(t *testing.T) {
	vertices, indices, err := LoadSphere()
	require.NoError(t, err)
	require.NotEmpty(t, vertices)
	require.NotEmpty(t, indices)

	assert.Zero(t, len(indices)%3, "indices form whole triangles")

	for i, idx := range indices {
		require.Less(t, int(idx), len(vertices), "index %d in range", i)
	}

	// Unit sphere: every position and normal is unit length, and the normal
	// points along the position.
	for i, v := range vertices {
		p := math.Sqrt(float64(v.Position[0]*v.Position[0] +
			v.Position[1]*v.Position[1] + v.Position[2]*v.Position[2]))
		n := math.Sqrt(float64(v.Normal[0]*v.Normal[0] +
			v.Normal[1]*v.Normal[1] + v.Normal[2]*v.Normal[2]))

		assert.InDelta(t, 1, p, 1e-4, "vertex %d radius", i)
		assert.InDelta(t, 1, n, 1e-4, "vertex %d normal length", i)

		dot := float64(v.Position[0]*v.Normal[0] +
			v.Position[1]*v.Normal[1] + v.Position[2]*v.Normal[2])
		assert.InDelta(t, 1, dot, 1e-3, "vertex %d normal alignment", i)
	}
}
