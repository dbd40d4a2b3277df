package textures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoiseDecodes(t *testing.T) {
	img, err := Noise()
	require.NoError(t, err)

	b := img.Bounds()
	assert.Equal(t, b.Dx(), b.Dy(), "noise texture is square so it tiles both ways")
	assert.GreaterOrEqual(t, b.Dx(), 64)
}

func TestSkyboxIsEquirectangular(t *testing.T) {
	img := Skybox()

	b := img.Bounds()
	assert.Equal(t, b.Dx(), 2*b.Dy(), "equirectangular maps are 2:1")
}

func TestPlaceholderStarfield(t *testing.T) {
	a := placeholderStarfield()
	b := placeholderStarfield()

	assert.Equal(t, a.Pix, b.Pix, "placeholder generation is deterministic")
	assert.Equal(t, a.Bounds().Dx(), 2*a.Bounds().Dy())
}
