package models

import (
	"bytes"
	"fmt"

	"github.com/mokiat/go-data-front/decoder/obj"
)

// Vertex is the interleaved layout the sphere pipeline binds: position at
// location 0, normal at location 1.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
}

// LoadSphere decodes the embedded unit sphere into an indexed triangle
// mesh. Decode failure is fatal to the caller; the horizon cannot be drawn
// without it.
func LoadSphere() ([]Vertex, []uint32, error) {
	data, err := FS.ReadFile("sphere.obj")
	if err != nil {
		return nil, nil, fmt.Errorf("reading embedded sphere.obj: %w", err)
	}

	model, err := obj.NewDecoder(obj.DefaultLimits()).Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decoding sphere.obj: %w", err)
	}

	var (
		vertices []Vertex
		indices  []uint32
		seen     = map[[2]int64]uint32{}
	)

	for _, object := range model.Objects {
		for _, mesh := range object.Meshes {
			for _, face := range mesh.Faces {
				if len(face.References) < 3 {
					return nil, nil, fmt.Errorf(
						"sphere.obj: face with %d vertices", len(face.References))
				}

				// Triangle fan over the face; the generator emits
				// triangles, so this is one iteration per face.
				for i := 2; i < len(face.References); i++ {
					for _, ref := range []obj.Reference{
						face.References[0],
						face.References[i-1],
						face.References[i],
					} {
						key := [2]int64{ref.VertexIndex, ref.NormalIndex}
						idx, ok := seen[key]
						if !ok {
							v, err := refVertex(model, ref)
							if err != nil {
								return nil, nil, err
							}
							idx = uint32(len(vertices))
							vertices = append(vertices, v)
							seen[key] = idx
						}
						indices = append(indices, idx)
					}
				}
			}
		}
	}

	if len(indices) == 0 {
		return nil, nil, fmt.Errorf("sphere.obj: no faces decoded")
	}
	return vertices, indices, nil
}

func refVertex(model *obj.Model, ref obj.Reference) (Vertex, error) {
	if ref.VertexIndex < 0 || int(ref.VertexIndex) >= len(model.Vertices) {
		return Vertex{}, fmt.Errorf("sphere.obj: vertex index %d out of range", ref.VertexIndex)
	}
	if !ref.HasNormal() {
		return Vertex{}, fmt.Errorf("sphere.obj: face reference without a normal")
	}
	if int(ref.NormalIndex) >= len(model.Normals) {
		return Vertex{}, fmt.Errorf("sphere.obj: normal index %d out of range", ref.NormalIndex)
	}

	pos := model.Vertices[ref.VertexIndex]
	norm := model.Normals[ref.NormalIndex]

	return Vertex{
		Position: [3]float32{float32(pos.X), float32(pos.Y), float32(pos.Z)},
		Normal:   [3]float32{float32(norm.X), float32(norm.Y), float32(norm.Z)},
	}, nil
}
