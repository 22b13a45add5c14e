// Package gfx is the narrow interface between the resource registry and a
// graphics API. The registry only does bookkeeping; every real GPU call goes
// through a Backend.
package gfx

import "errors"

var (
	ErrClosed        = errors.New("backend closed")
	ErrNotOpen       = errors.New("backend not open")
	ErrLimit         = errors.New("backend object limit reached")
	ErrInvalidSpec   = errors.New("invalid resource spec")
	ErrUnknownObject = errors.New("unknown backend object")
)

// Object identifies a backend-side resource. Zero is never a valid object.
type Object uint64

type BufferKind int

const (
	BufferVertex BufferKind = iota
	BufferIndex
	BufferConstant
)

func (k BufferKind) String() string {
	switch k {
	case BufferVertex:
		return "vertex"
	case BufferIndex:
		return "index"
	case BufferConstant:
		return "constant"
	default:
		return "unknown"
	}
}

type BufferSpec struct {
	Label   string
	Kind    BufferKind
	Dynamic bool
	Size    int
	Data    []byte
}

type ShaderStage int

const (
	StageVertex ShaderStage = iota
	StageFragment
)

type ShaderSpec struct {
	Label  string
	Stage  ShaderStage
	Source string
}

type TextureSpec struct {
	Label    string
	Cubemap  bool
	Channels int // 1..4
	SRGB     bool
	Width    int
	Height   int
	Data     []byte
}

type Topology int

const (
	TopologyTriangles Topology = iota
	TopologyTriangleStrip
	TopologyLines
	TopologyPoints
)

// DrawCall is one indexed draw. IndexBuffer may be zero for non-indexed draws.
type DrawCall struct {
	Program      Object
	VertexBuffer Object
	IndexBuffer  Object
	Textures     []Object
	Constants    Object
	Topology     Topology
	First        int
	Count        int
	Transform    [16]float32
}

type SubmitStats struct {
	DrawCalls int
	Elements  int
}

// Options are the backend parameters taken from the window/render config.
type Options struct {
	Width      int
	Height     int
	VSync      bool
	MaxObjects int // 0 = unlimited
	ClearColor [4]float32
}

// Backend is implemented by every graphics API adapter.
type Backend interface {
	Open(opts Options) error
	CreateBuffer(spec BufferSpec) (Object, error)
	CreateShader(spec ShaderSpec) (Object, error)
	LinkProgram(vertex, fragment Object) (Object, error)
	CreateTexture(spec TextureSpec) (Object, error)
	Release(obj Object) error
	Submit(draws []DrawCall) (SubmitStats, error)
	Close() error
}
