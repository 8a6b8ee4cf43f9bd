// Package mesh turns Wavefront OBJ files into a flat triangle list ready to
// be copied into vertex and index buffers.
package mesh

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/g3n/engine/loader/obj"
)

// Vertex matches the demo's vertex shader input layout: position, texture
// coordinate and normal, packed as float32 in this order.
type Vertex struct {
	X, Y, Z    float32
	U, V       float32
	NX, NY, NZ float32
}

type Model struct {
	Vertices []Vertex
	Indices  []uint32
}

func (m *Model) VertexCount() int {
	return len(m.Vertices)
}

func (m *Model) IndexCount() int {
	return len(m.Indices)
}

func (m *Model) TriangleCount() int {
	return len(m.Indices) / 3
}

// Load reads an OBJ file and the material library next to it, if any.
func Load(path string) (*Model, error) {
	objFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open mesh %q: %w", path, err)
	}
	defer func() {
		if closeErr := objFile.Close(); closeErr != nil {
			slog.Error("could not close mesh", "name", path, "error", closeErr)
		}
	}()

	var mtl io.Reader
	mtlPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"
	if mtlFile, err := os.Open(mtlPath); err == nil {
		defer mtlFile.Close()
		mtl = mtlFile
	}

	m, err := Decode(objFile, mtl)
	if err != nil {
		return nil, fmt.Errorf("could not load mesh %q: %w", path, err)
	}
	return m, nil
}

// Decode parses an OBJ stream. Every face is fan-triangulated and each
// triangle corner becomes its own vertex, so Indices simply counts upwards.
// mtl may be nil.
func Decode(objData, mtl io.Reader) (*Model, error) {
	if mtl == nil {
		mtl = strings.NewReader("")
	}

	dec, err := obj.DecodeReader(objData, mtl)
	if err != nil {
		return nil, fmt.Errorf("could not parse OBJ: %w", err)
	}

	m := &Model{}
	for _, object := range dec.Objects {
		for fi, face := range object.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range [3]int{0, i - 1, i} {
					v, err := vertex(dec, face, corner)
					if err != nil {
						return nil, fmt.Errorf("object %q face %d: %w", object.Name, fi, err)
					}
					m.Indices = append(m.Indices, uint32(len(m.Vertices)))
					m.Vertices = append(m.Vertices, v)
				}
			}
		}
	}

	return m, nil
}

func vertex(dec *obj.Decoder, face obj.Face, corner int) (Vertex, error) {
	var v Vertex

	pi := face.Vertices[corner]
	if pi < 0 || 3*pi+2 >= len(dec.Vertices) {
		return v, fmt.Errorf("position index %d out of range", pi)
	}
	v.X, v.Y, v.Z = dec.Vertices[3*pi], dec.Vertices[3*pi+1], dec.Vertices[3*pi+2]

	if corner < len(face.Uvs) {
		if ti := face.Uvs[corner]; ti >= 0 && 2*ti+1 < len(dec.Uvs) {
			v.U, v.V = dec.Uvs[2*ti], dec.Uvs[2*ti+1]
		}
	}

	if corner < len(face.Normals) {
		if ni := face.Normals[corner]; ni >= 0 && 3*ni+2 < len(dec.Normals) {
			v.NX, v.NY, v.NZ = dec.Normals[3*ni], dec.Normals[3*ni+1], dec.Normals[3*ni+2]
		}
	}

	return v, nil
}
