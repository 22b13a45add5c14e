package render

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/dsengine/render/internal/render/gfx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T, opts gfx.Options) (*Registry, *gfx.Headless) {
	t.Helper()
	if opts.Width == 0 {
		opts.Width, opts.Height = 64, 64
	}
	b := gfx.NewHeadless()
	require.NoError(t, b.Open(opts))
	return NewRegistry(b, zap.NewNop()), b
}

func floatBytes(fs ...float32) []byte {
	out := make([]byte, 0, len(fs)*4)
	for _, f := range fs {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

func indexBytes(is ...uint32) []byte {
	out := make([]byte, 0, len(is)*4)
	for _, i := range is {
		out = binary.LittleEndian.AppendUint32(out, i)
	}
	return out
}

var positionLayout = []VertexAttribute{{Type: AttributePosition, Components: 3}}

// quadData is two triangles over four positions.
func quadData(name string) MeshData {
	return MeshData{
		Name:        name,
		Primitive:   PrimitiveTriangles,
		DataType:    DataFloat,
		Layout:      positionLayout,
		VertexCount: 4,
		Vertices:    floatBytes(0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 0),
		IndexType:   DataInt,
		IndexCount:  6,
		Indices:     indexBytes(0, 1, 2, 2, 1, 3),
	}
}

// newMaterial creates a shader pair, a program, a texture and a material.
func newMaterial(t *testing.T, r *Registry, name string) MaterialHandle {
	t.Helper()
	vs, err := r.CreateShader(ShaderDesc{Name: name + ".vs", Type: VertexShader, Source: "vs:" + name})
	require.NoError(t, err)
	fs, err := r.CreateShader(ShaderDesc{Name: name + ".fs", Type: FragmentShader, Source: "fs:" + name})
	require.NoError(t, err)
	prog, err := r.CreateProgram(ProgramDesc{Name: name, Vertex: vs, Fragment: fs})
	require.NoError(t, err)
	tex, err := r.CreateTexture(TextureDesc{Name: name, Type: TextureTwoDimensional, Format: FormatRGBA, InternalFormat: InternalRGBA8, Width: 2, Height: 2})
	require.NoError(t, err)
	mat, err := r.CreateMaterial(MaterialDesc{Name: name, Program: prog, Textures: []TextureHandle{tex}})
	require.NoError(t, err)
	return mat
}
