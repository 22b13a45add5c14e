package render

import (
	"fmt"

	"github.com/dsengine/render/internal/render/gfx"
)

// VertexAttribute is one interleaved attribute of a vertex.
type VertexAttribute struct {
	Type       AttributeType
	Components int // 1..4
}

type VertexBufferDesc struct {
	Usage       BufferUsageType
	DataType    RenderDataType
	Layout      []VertexAttribute
	VertexCount int
	Data        []byte // empty, or exactly VertexCount*Stride bytes
}

// Stride returns the byte size of one vertex.
func (d VertexBufferDesc) Stride() int {
	n := 0
	for _, a := range d.Layout {
		n += a.Components
	}
	return n * d.DataType.Size()
}

func (d VertexBufferDesc) validate() error {
	if d.DataType.Size() == 0 {
		return fmt.Errorf("unknown data type %d", d.DataType)
	}
	if len(d.Layout) == 0 {
		return fmt.Errorf("empty vertex layout")
	}
	for _, a := range d.Layout {
		if a.Components < 1 || a.Components > 4 {
			return fmt.Errorf("attribute %s has %d components", a.Type, a.Components)
		}
	}
	if d.VertexCount <= 0 {
		return fmt.Errorf("vertex count %d", d.VertexCount)
	}
	if size := d.VertexCount * d.Stride(); len(d.Data) != 0 && len(d.Data) != size {
		return fmt.Errorf("vertex data is %d bytes, layout needs %d", len(d.Data), size)
	}
	return nil
}

type VertexBuffer struct {
	VertexBufferDesc
	object gfx.Object
}

type IndexBufferDesc struct {
	Usage      BufferUsageType
	DataType   RenderDataType // DataInt (u32) or DataUnsignedByte (u8)
	IndexCount int
	Data       []byte
}

func (d IndexBufferDesc) validate() error {
	if d.DataType != DataInt && d.DataType != DataUnsignedByte {
		return fmt.Errorf("index type %s", d.DataType)
	}
	if d.IndexCount <= 0 {
		return fmt.Errorf("index count %d", d.IndexCount)
	}
	if size := d.IndexCount * d.DataType.Size(); len(d.Data) != 0 && len(d.Data) != size {
		return fmt.Errorf("index data is %d bytes, need %d", len(d.Data), size)
	}
	return nil
}

type IndexBuffer struct {
	IndexBufferDesc
	object gfx.Object
}

type ShaderDesc struct {
	Name   string
	Type   ShaderType
	Source string
}

type Shader struct {
	ShaderDesc
	object gfx.Object
}

type ProgramDesc struct {
	Name     string
	Vertex   ShaderHandle
	Fragment ShaderHandle
}

type Program struct {
	ProgramDesc
	object gfx.Object
}

// MaxTextureDimension bounds texture width and height.
const MaxTextureDimension = 16384

type TextureDesc struct {
	Name           string
	Type           TextureType
	Format         ImageFormat
	InternalFormat InternalImageFormat
	Width          int
	Height         int
	Data           []byte // empty, or Width*Height*channels bytes per face
}

func (d TextureDesc) faces() int {
	if d.Type == TextureCubemap {
		return 6
	}
	return 1
}

func (d TextureDesc) validate() error {
	if d.Type != TextureTwoDimensional && d.Type != TextureCubemap {
		return fmt.Errorf("texture type %s", d.Type)
	}
	if d.Format.Channels() == 0 {
		return fmt.Errorf("image format %d", d.Format)
	}
	if d.InternalFormat > InternalSRGBA8 {
		return fmt.Errorf("internal format %d", d.InternalFormat)
	}
	if d.Width <= 0 || d.Height <= 0 || d.Width > MaxTextureDimension || d.Height > MaxTextureDimension {
		return fmt.Errorf("dimensions %dx%d (limit %d)", d.Width, d.Height, MaxTextureDimension)
	}
	if size := d.Width * d.Height * d.Format.Channels() * d.faces(); len(d.Data) != 0 && len(d.Data) != size {
		return fmt.Errorf("image data is %d bytes, need %d", len(d.Data), size)
	}
	return nil
}

type Texture struct {
	TextureDesc
	object gfx.Object
}

type ConstantBufferDesc struct {
	Usage BufferUsageType
	Size  int
	Data  []byte
}

type ConstantBuffer struct {
	ConstantBufferDesc
	object gfx.Object
}

// MeshRange is a draw range of a mesh with its own material.
type MeshRange struct {
	Start    int
	Count    int
	Material MaterialHandle
}

type MeshDesc struct {
	Name         string
	VertexBuffer VertexBufferHandle
	IndexBuffer  IndexBufferHandle // zero for non-indexed meshes
	Primitive    PrimitiveType
	Ranges       []MeshRange // empty = one range over every element
}

type MeshResource struct {
	MeshDesc
	// Owned meshes were built from raw data; destroying them destroys their buffers.
	Owned bool
}

// MeshData is raw geometry handed over by a loader.
type MeshData struct {
	Name        string
	Primitive   PrimitiveType
	DataType    RenderDataType
	Layout      []VertexAttribute
	VertexCount int
	Vertices    []byte
	IndexType   RenderDataType
	IndexCount  int // 0 for non-indexed meshes
	Indices     []byte
	Material    MaterialHandle
}

// MaxTerrainDimension bounds terrain grid width and depth.
const MaxTerrainDimension = 4096

type TerrainDesc struct {
	Name     string
	Width    int // vertices along x
	Depth    int // vertices along z
	CellSize float32
	Heights  []float32 // Width*Depth, row major by z
	Material MaterialHandle
}

type TerrainResource struct {
	TerrainDesc
	Mesh MeshResourceHandle
}

type MaterialDesc struct {
	Name      string
	Program   ProgramHandle
	Textures  []TextureHandle
	Constants ConstantBufferHandle // optional
	Params    map[string]float32
}

type Material struct {
	MaterialDesc
}

func primitiveTopology(p PrimitiveType) gfx.Topology {
	switch p {
	case PrimitiveTriangleStrip:
		return gfx.TopologyTriangleStrip
	case PrimitiveLines:
		return gfx.TopologyLines
	case PrimitivePoints:
		return gfx.TopologyPoints
	default:
		return gfx.TopologyTriangles
	}
}
