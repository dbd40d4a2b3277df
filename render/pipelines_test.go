package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The particle pipeline blends without writing depth, so every pass that
// depth-tests against the clear value has to run before it. A regression
// here repaints the whole dust disk with the ray-march background.
func TestDrawOrderKeepsParticlesOnTop(t *testing.T) {
	pipelines := newPipelines()
	require.Len(t, pipelines, 3)

	_, ok := pipelines[0].(*spherePipeline)
	assert.True(t, ok, "the sphere writes depth and must go first")

	_, ok = pipelines[1].(*raymarchPipeline)
	assert.True(t, ok, "the background pass must run before anything that skips depth writes")

	_, ok = pipelines[2].(*particlePipeline)
	assert.True(t, ok, "blended particles draw last so nothing overwrites them")
}
