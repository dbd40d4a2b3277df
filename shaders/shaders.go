// Package shaders carries the GLSL sources for every pipeline and locates
// their compiled SPIR-V at runtime. The sources are embedded so the binary
// documents exactly what it expects to run; the .spv binaries are produced
// by `go generate` (needs glslc on the PATH) and looked up on disk.
package shaders

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:generate glslc particles.vert -o spv/particles.vert.spv
//go:generate glslc particles.frag -o spv/particles.frag.spv
//go:generate glslc sphere.vert -o spv/sphere.vert.spv
//go:generate glslc sphere.frag -o spv/sphere.frag.spv
//go:generate glslc raymarch.vert -o spv/raymarch.vert.spv
//go:generate glslc raymarch.frag -o spv/raymarch.frag.spv

// FS embeds the GLSL sources. Run `go generate` to compile them to SPIR-V.
//
//go:embed particles.vert particles.frag
//go:embed sphere.vert sphere.frag
//go:embed raymarch.vert raymarch.frag
var FS embed.FS

// searchDirs lists where compiled SPIR-V is looked for, in order: the
// working directory, its spv subdirectories, and next to the executable.
func searchDirs() []string {
	dirs := []string{".", "spv", filepath.Join("shaders", "spv")}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		dirs = append(dirs,
			exeDir,
			filepath.Join(exeDir, "spv"),
			filepath.Join(exeDir, "shaders", "spv"),
		)
	}

	return dirs
}

// LoadSPIRV finds and reads the compiled module for a shader, e.g.
// "raymarch.frag". Every pipeline treats a miss as a fatal startup error;
// the error names the file and where it was looked for.
func LoadSPIRV(name string) ([]byte, error) {
	fileName := name + ".spv"

	dirs := searchDirs()
	for _, dir := range dirs {
		code, err := os.ReadFile(filepath.Join(dir, fileName))
		if err == nil {
			return code, nil
		}
	}

	return nil, fmt.Errorf(
		"SPIR-V module %s not found on %v; run `go generate ./shaders` to compile it",
		fileName, dirs,
	)
}
