package render

import (
	"fmt"

	"github.com/dsengine/render/internal/core/handle"
)

// TextureType is the shape of a texture.
type TextureType uint8

const (
	TextureNone TextureType = iota
	TextureTwoDimensional
	TextureCubemap
)

func (t TextureType) String() string {
	switch t {
	case TextureNone:
		return "None"
	case TextureTwoDimensional:
		return "TwoDimensional"
	case TextureCubemap:
		return "Cubemap"
	default:
		return fmt.Sprintf("TextureType(%d)", uint8(t))
	}
}

// RenderDataType is the scalar type of buffer elements.
type RenderDataType uint8

const (
	DataInt RenderDataType = iota
	DataFloat
	DataUnsignedByte
)

func (t RenderDataType) String() string {
	switch t {
	case DataInt:
		return "Int"
	case DataFloat:
		return "Float"
	case DataUnsignedByte:
		return "UnsignedByte"
	default:
		return fmt.Sprintf("RenderDataType(%d)", uint8(t))
	}
}

// Size returns the byte size of one element, or 0 for unknown types.
func (t RenderDataType) Size() int {
	switch t {
	case DataInt, DataFloat:
		return 4
	case DataUnsignedByte:
		return 1
	default:
		return 0
	}
}

// BufferUsageType says how often a buffer is expected to change.
type BufferUsageType uint8

const (
	UsageStatic BufferUsageType = iota
	UsageDynamic
)

func (u BufferUsageType) String() string {
	switch u {
	case UsageStatic:
		return "Static"
	case UsageDynamic:
		return "Dynamic"
	default:
		return fmt.Sprintf("BufferUsageType(%d)", uint8(u))
	}
}

// AttributeType is the meaning of one vertex attribute.
type AttributeType uint8

const (
	AttributePosition AttributeType = iota
	AttributeNormal
	AttributeTextureCoordinate
	AttributeBoneID
	AttributeBoneWeight
)

func (a AttributeType) String() string {
	switch a {
	case AttributePosition:
		return "Position"
	case AttributeNormal:
		return "Normal"
	case AttributeTextureCoordinate:
		return "TextureCoordinate"
	case AttributeBoneID:
		return "BoneID"
	case AttributeBoneWeight:
		return "BoneWeight"
	default:
		return fmt.Sprintf("AttributeType(%d)", uint8(a))
	}
}

type ShaderType uint8

const (
	VertexShader ShaderType = iota
	FragmentShader
)

func (s ShaderType) String() string {
	switch s {
	case VertexShader:
		return "VertexShader"
	case FragmentShader:
		return "FragmentShader"
	default:
		return fmt.Sprintf("ShaderType(%d)", uint8(s))
	}
}

type PrimitiveType uint8

const (
	PrimitiveTriangles PrimitiveType = iota
	PrimitiveTriangleStrip
	PrimitiveLines
	PrimitivePoints
)

func (p PrimitiveType) String() string {
	switch p {
	case PrimitiveTriangles:
		return "Triangles"
	case PrimitiveTriangleStrip:
		return "TriangleStrip"
	case PrimitiveLines:
		return "Lines"
	case PrimitivePoints:
		return "Points"
	default:
		return fmt.Sprintf("PrimitiveType(%d)", uint8(p))
	}
}

// ImageFormat is the colour components of an image.
type ImageFormat uint8

const (
	FormatR ImageFormat = iota
	FormatRG
	FormatRGB
	FormatRGBA
)

func (f ImageFormat) String() string {
	switch f {
	case FormatR:
		return "R"
	case FormatRG:
		return "RG"
	case FormatRGB:
		return "RGB"
	case FormatRGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("ImageFormat(%d)", uint8(f))
	}
}

// Channels returns the number of components, or 0 for unknown formats.
func (f ImageFormat) Channels() int {
	if f > FormatRGBA {
		return 0
	}
	return int(f) + 1
}

// InternalImageFormat is the storage format of an image.
type InternalImageFormat uint8

const (
	InternalRGB8 InternalImageFormat = iota
	InternalSRGB8
	InternalRGBA8
	InternalSRGBA8
)

func (f InternalImageFormat) String() string {
	switch f {
	case InternalRGB8:
		return "RGB8"
	case InternalSRGB8:
		return "SRGB8"
	case InternalRGBA8:
		return "RGBA8"
	case InternalSRGBA8:
		return "SRGBA8"
	default:
		return fmt.Sprintf("InternalImageFormat(%d)", uint8(f))
	}
}

func (f InternalImageFormat) SRGB() bool {
	return f == InternalSRGB8 || f == InternalSRGBA8
}

// ResourceKind names a resource pool on the wire.
type ResourceKind uint8

const (
	KindUnknown ResourceKind = iota
	KindVertexBuffer
	KindIndexBuffer
	KindShader
	KindProgram
	KindTexture
	KindConstantBuffer
	KindMesh
	KindTerrain
	KindMaterial
)

var resourceKindNames = [...]string{
	KindUnknown:        "Unknown",
	KindVertexBuffer:   "VertexBuffer",
	KindIndexBuffer:    "IndexBuffer",
	KindShader:         "Shader",
	KindProgram:        "Program",
	KindTexture:        "Texture",
	KindConstantBuffer: "ConstantBuffer",
	KindMesh:           "Mesh",
	KindTerrain:        "Terrain",
	KindMaterial:       "Material",
}

func (k ResourceKind) String() string {
	if int(k) < len(resourceKindNames) {
		return resourceKindNames[k]
	}
	return fmt.Sprintf("ResourceKind(%d)", uint8(k))
}

// ParseResourceKind maps a kind name back to its value.
func ParseResourceKind(s string) (ResourceKind, bool) {
	for i, name := range resourceKindNames {
		if i > 0 && name == s {
			return ResourceKind(i), true
		}
	}
	return KindUnknown, false
}

type (
	vertexBufferKind   struct{}
	indexBufferKind    struct{}
	shaderKind         struct{}
	programKind        struct{}
	textureKind        struct{}
	constantBufferKind struct{}
	meshKind           struct{}
	terrainKind        struct{}
	materialKind       struct{}
)

// Handle types. Each kind has its own pool; handles of different kinds are
// not interchangeable.
type (
	VertexBufferHandle    = handle.Typed[vertexBufferKind]
	IndexBufferHandle     = handle.Typed[indexBufferKind]
	ShaderHandle          = handle.Typed[shaderKind]
	ProgramHandle         = handle.Typed[programKind]
	TextureHandle         = handle.Typed[textureKind]
	ConstantBufferHandle  = handle.Typed[constantBufferKind]
	MeshResourceHandle    = handle.Typed[meshKind]
	TerrainResourceHandle = handle.Typed[terrainKind]
	MaterialHandle        = handle.Typed[materialKind]
)
