package render

import (
	"encoding/binary"
	"math"
)

// terrainLayout is position (xyz) followed by texture coordinate (uv).
var terrainLayout = []VertexAttribute{
	{Type: AttributePosition, Components: 3},
	{Type: AttributeTextureCoordinate, Components: 2},
}

// terrainMesh triangulates a height grid into an indexed triangle list.
func terrainMesh(desc TerrainDesc) MeshData {
	w, d := desc.Width, desc.Depth
	vertices := make([]byte, 0, w*d*5*4)
	put := func(f float32) {
		vertices = binary.LittleEndian.AppendUint32(vertices, math.Float32bits(f))
	}
	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			put(float32(x) * desc.CellSize)
			put(desc.Heights[z*w+x])
			put(float32(z) * desc.CellSize)
			put(float32(x) / float32(w-1))
			put(float32(z) / float32(d-1))
		}
	}

	indexCount := (w - 1) * (d - 1) * 6
	indices := make([]byte, 0, indexCount*4)
	for z := 0; z < d-1; z++ {
		for x := 0; x < w-1; x++ {
			i0 := uint32(z*w + x)
			i1 := i0 + 1
			i2 := i0 + uint32(w)
			i3 := i2 + 1
			for _, i := range [...]uint32{i0, i2, i1, i1, i2, i3} {
				indices = binary.LittleEndian.AppendUint32(indices, i)
			}
		}
	}

	return MeshData{
		Primitive:   PrimitiveTriangles,
		DataType:    DataFloat,
		Layout:      terrainLayout,
		VertexCount: w * d,
		Vertices:    vertices,
		IndexType:   DataInt,
		IndexCount:  indexCount,
		Indices:     indices,
		Material:    desc.Material,
	}
}
