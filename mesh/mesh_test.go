package mesh

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quad = `o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestDecodeQuad(t *testing.T) {
	m, err := Decode(strings.NewReader(quad), nil)
	require.NoError(t, err)

	assert.Equal(t, 6, m.VertexCount())
	assert.Equal(t, 2, m.TriangleCount())
	assert.Equal(t, []uint32{0, 1, 2, 3, 4, 5}, m.Indices)

	// fan: (0, 1, 2), (0, 2, 3)
	assert.Equal(t, Vertex{X: 0, Y: 0, Z: 0, U: 0, V: 0, NZ: 1}, m.Vertices[0])
	assert.Equal(t, Vertex{X: 1, Y: 1, Z: 0, U: 1, V: 1, NZ: 1}, m.Vertices[2])
	assert.Equal(t, m.Vertices[0], m.Vertices[3])
	assert.Equal(t, Vertex{X: 0, Y: 1, Z: 0, U: 0, V: 1, NZ: 1}, m.Vertices[5])
}

func TestDecodePositionsOnly(t *testing.T) {
	src := "o tri\nv 0 0 0\nv 2 0 0\nv 0 2 0\nf 1 2 3\n"

	m, err := Decode(strings.NewReader(src), nil)
	require.NoError(t, err)
	require.Equal(t, 3, m.VertexCount())
	assert.Equal(t, Vertex{X: 2}, m.Vertices[1])
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quad.obj")
	require.NoError(t, os.WriteFile(path, []byte(quad), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, m.IndexCount())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.obj"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
