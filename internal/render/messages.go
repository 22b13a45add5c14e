package render

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dsengine/render/internal/core/handle"
	"github.com/dsengine/render/internal/core/message"
	"github.com/google/uuid"
)

var (
	// ErrMalformedMessage is returned when a payload does not match its kind.
	ErrMalformedMessage = errors.New("malformed message")
	// ErrFieldRange is returned by Validate when a value does not fit its
	// wire field.
	ErrFieldRange = errors.New("value does not fit wire field")
)

// Messages consumed by the render system.
const (
	MsgLoadMesh message.Kind = 0x0100 + iota
	MsgLoadTexture
	MsgLoadShader
	MsgLinkProgram
	MsgCreateMaterial
	MsgLoadTerrain
	MsgDestroyResource
	MsgSetRenderComponent
	MsgRemoveRenderComponent
)

// Messages generated by the render system.
const (
	MsgResourceLoadResult message.Kind = 0x0180 + iota
	MsgFrameStats
	MsgDiagnostic
)

// KindName returns a readable name for render message kinds.
func KindName(k message.Kind) string {
	switch k {
	case MsgLoadMesh:
		return "LoadMesh"
	case MsgLoadTexture:
		return "LoadTexture"
	case MsgLoadShader:
		return "LoadShader"
	case MsgLinkProgram:
		return "LinkProgram"
	case MsgCreateMaterial:
		return "CreateMaterial"
	case MsgLoadTerrain:
		return "LoadTerrain"
	case MsgDestroyResource:
		return "DestroyResource"
	case MsgSetRenderComponent:
		return "SetRenderComponent"
	case MsgRemoveRenderComponent:
		return "RemoveRenderComponent"
	case MsgResourceLoadResult:
		return "ResourceLoadResult"
	case MsgFrameStats:
		return "FrameStats"
	case MsgDiagnostic:
		return "Diagnostic"
	default:
		return fmt.Sprintf("Kind(0x%04x)", uint16(k))
	}
}

func decode[T any](kind message.Kind, payload []byte, read func(*message.Reader) T) (T, error) {
	r := message.NewReader(payload)
	v := read(r)
	if err := r.Done(); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s: %w", ErrMalformedMessage, KindName(kind), err)
	}
	return v, nil
}

// fitsU32 checks an int carried in a u32 field.
func fitsU32(field string, v int) error {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return fmt.Errorf("%w: %s = %d", ErrFieldRange, field, v)
	}
	return nil
}

func writeLayout(w *message.Writer, layout []VertexAttribute) {
	w.WriteU32(uint32(len(layout)))
	for _, a := range layout {
		w.WriteU8(uint8(a.Type))
		w.WriteU8(uint8(a.Components))
	}
}

func readLayout(r *message.Reader) []VertexAttribute {
	n := int(r.ReadU32())
	layout := make([]VertexAttribute, 0, min(n, r.Remaining()/2))
	for i := 0; i < n && r.Err() == nil; i++ {
		layout = append(layout, VertexAttribute{
			Type:       AttributeType(r.ReadU8()),
			Components: int(r.ReadU8()),
		})
	}
	return layout
}

// ── LoadMesh ──

type LoadMesh struct {
	RequestID   uuid.UUID
	Name        string
	Primitive   PrimitiveType
	DataType    RenderDataType
	Layout      []VertexAttribute
	VertexCount int
	Vertices    []byte
	IndexType   RenderDataType
	IndexCount  int
	Indices     []byte
	Material    string // optional material name
}

// Validate checks that the counts fit their wire fields.
func (m LoadMesh) Validate() error {
	if err := fitsU32("vertex count", m.VertexCount); err != nil {
		return err
	}
	if err := fitsU32("index count", m.IndexCount); err != nil {
		return err
	}
	if err := fitsU32("layout length", len(m.Layout)); err != nil {
		return err
	}
	for i, a := range m.Layout {
		if a.Components < 0 || a.Components > math.MaxUint8 {
			return fmt.Errorf("%w: attribute %d components = %d", ErrFieldRange, i, a.Components)
		}
	}
	return nil
}

func (m LoadMesh) Encode() message.Message {
	w := message.NewWriter()
	w.WriteUUID(m.RequestID)
	w.WriteString(m.Name)
	w.WriteU8(uint8(m.Primitive))
	w.WriteU8(uint8(m.DataType))
	writeLayout(w, m.Layout)
	w.WriteU32(uint32(m.VertexCount))
	w.WriteBytes(m.Vertices)
	w.WriteU8(uint8(m.IndexType))
	w.WriteU32(uint32(m.IndexCount))
	w.WriteBytes(m.Indices)
	w.WriteString(m.Material)
	return message.Message{Kind: MsgLoadMesh, Payload: w.Bytes()}
}

func DecodeLoadMesh(payload []byte) (LoadMesh, error) {
	return decode(MsgLoadMesh, payload, func(r *message.Reader) LoadMesh {
		return LoadMesh{
			RequestID:   r.ReadUUID(),
			Name:        r.ReadString(),
			Primitive:   PrimitiveType(r.ReadU8()),
			DataType:    RenderDataType(r.ReadU8()),
			Layout:      readLayout(r),
			VertexCount: int(r.ReadU32()),
			Vertices:    r.ReadBytes(),
			IndexType:   RenderDataType(r.ReadU8()),
			IndexCount:  int(r.ReadU32()),
			Indices:     r.ReadBytes(),
			Material:    r.ReadString(),
		}
	})
}

// ── LoadTexture ──

type LoadTexture struct {
	RequestID      uuid.UUID
	Name           string
	Type           TextureType
	Format         ImageFormat
	InternalFormat InternalImageFormat
	Width          int
	Height         int
	Data           []byte
}

// Validate checks that the dimensions fit their wire fields.
func (m LoadTexture) Validate() error {
	if err := fitsU32("width", m.Width); err != nil {
		return err
	}
	return fitsU32("height", m.Height)
}

func (m LoadTexture) Encode() message.Message {
	w := message.NewWriter()
	w.WriteUUID(m.RequestID)
	w.WriteString(m.Name)
	w.WriteU8(uint8(m.Type))
	w.WriteU8(uint8(m.Format))
	w.WriteU8(uint8(m.InternalFormat))
	w.WriteU32(uint32(m.Width))
	w.WriteU32(uint32(m.Height))
	w.WriteBytes(m.Data)
	return message.Message{Kind: MsgLoadTexture, Payload: w.Bytes()}
}

func DecodeLoadTexture(payload []byte) (LoadTexture, error) {
	return decode(MsgLoadTexture, payload, func(r *message.Reader) LoadTexture {
		return LoadTexture{
			RequestID:      r.ReadUUID(),
			Name:           r.ReadString(),
			Type:           TextureType(r.ReadU8()),
			Format:         ImageFormat(r.ReadU8()),
			InternalFormat: InternalImageFormat(r.ReadU8()),
			Width:          int(r.ReadU32()),
			Height:         int(r.ReadU32()),
			Data:           r.ReadBytes(),
		}
	})
}

// ── LoadShader / LinkProgram ──

type LoadShader struct {
	RequestID uuid.UUID
	Name      string
	Type      ShaderType
	Source    string
}

func (m LoadShader) Encode() message.Message {
	w := message.NewWriter()
	w.WriteUUID(m.RequestID)
	w.WriteString(m.Name)
	w.WriteU8(uint8(m.Type))
	w.WriteString(m.Source)
	return message.Message{Kind: MsgLoadShader, Payload: w.Bytes()}
}

func DecodeLoadShader(payload []byte) (LoadShader, error) {
	return decode(MsgLoadShader, payload, func(r *message.Reader) LoadShader {
		return LoadShader{
			RequestID: r.ReadUUID(),
			Name:      r.ReadString(),
			Type:      ShaderType(r.ReadU8()),
			Source:    r.ReadString(),
		}
	})
}

// LinkProgram links two shaders, referenced by name, into a program.
type LinkProgram struct {
	RequestID uuid.UUID
	Name      string
	Vertex    string
	Fragment  string
}

func (m LinkProgram) Encode() message.Message {
	w := message.NewWriter()
	w.WriteUUID(m.RequestID)
	w.WriteString(m.Name)
	w.WriteString(m.Vertex)
	w.WriteString(m.Fragment)
	return message.Message{Kind: MsgLinkProgram, Payload: w.Bytes()}
}

func DecodeLinkProgram(payload []byte) (LinkProgram, error) {
	return decode(MsgLinkProgram, payload, func(r *message.Reader) LinkProgram {
		return LinkProgram{
			RequestID: r.ReadUUID(),
			Name:      r.ReadString(),
			Vertex:    r.ReadString(),
			Fragment:  r.ReadString(),
		}
	})
}

// ── CreateMaterial ──

type CreateMaterial struct {
	RequestID uuid.UUID
	Name      string
	Program   string
	Textures  []string
	Params    map[string]float32
}

// Validate checks that the list lengths fit their wire fields.
func (m CreateMaterial) Validate() error {
	if err := fitsU32("textures", len(m.Textures)); err != nil {
		return err
	}
	return fitsU32("params", len(m.Params))
}

func (m CreateMaterial) Encode() message.Message {
	w := message.NewWriter()
	w.WriteUUID(m.RequestID)
	w.WriteString(m.Name)
	w.WriteString(m.Program)
	w.WriteU32(uint32(len(m.Textures)))
	for _, t := range m.Textures {
		w.WriteString(t)
	}
	keys := make([]string, 0, len(m.Params))
	for k := range m.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w.WriteU32(uint32(len(keys)))
	for _, k := range keys {
		w.WriteString(k)
		w.WriteF32(m.Params[k])
	}
	return message.Message{Kind: MsgCreateMaterial, Payload: w.Bytes()}
}

func DecodeCreateMaterial(payload []byte) (CreateMaterial, error) {
	return decode(MsgCreateMaterial, payload, func(r *message.Reader) CreateMaterial {
		m := CreateMaterial{
			RequestID: r.ReadUUID(),
			Name:      r.ReadString(),
			Program:   r.ReadString(),
		}
		n := int(r.ReadU32())
		for i := 0; i < n && r.Err() == nil; i++ {
			m.Textures = append(m.Textures, r.ReadString())
		}
		np := int(r.ReadU32())
		if np > 0 {
			m.Params = make(map[string]float32, min(np, r.Remaining()/8))
		}
		for i := 0; i < np && r.Err() == nil; i++ {
			k := r.ReadString()
			m.Params[k] = r.ReadF32()
		}
		return m
	})
}

// ── LoadTerrain ──

type LoadTerrain struct {
	RequestID uuid.UUID
	Name      string
	Width     int
	Depth     int
	CellSize  float32
	Heights   []float32
	Material  string
}

// Validate checks that the grid fits its wire fields.
func (m LoadTerrain) Validate() error {
	if err := fitsU32("width", m.Width); err != nil {
		return err
	}
	if err := fitsU32("depth", m.Depth); err != nil {
		return err
	}
	return fitsU32("heights", len(m.Heights))
}

func (m LoadTerrain) Encode() message.Message {
	w := message.NewWriter()
	w.WriteUUID(m.RequestID)
	w.WriteString(m.Name)
	w.WriteU32(uint32(m.Width))
	w.WriteU32(uint32(m.Depth))
	w.WriteF32(m.CellSize)
	w.WriteU32(uint32(len(m.Heights)))
	for _, h := range m.Heights {
		w.WriteF32(h)
	}
	w.WriteString(m.Material)
	return message.Message{Kind: MsgLoadTerrain, Payload: w.Bytes()}
}

func DecodeLoadTerrain(payload []byte) (LoadTerrain, error) {
	return decode(MsgLoadTerrain, payload, func(r *message.Reader) LoadTerrain {
		m := LoadTerrain{
			RequestID: r.ReadUUID(),
			Name:      r.ReadString(),
			Width:     int(r.ReadU32()),
			Depth:     int(r.ReadU32()),
			CellSize:  r.ReadF32(),
		}
		n := int(r.ReadU32())
		m.Heights = make([]float32, 0, min(n, r.Remaining()/4))
		for i := 0; i < n && r.Err() == nil; i++ {
			m.Heights = append(m.Heights, r.ReadF32())
		}
		m.Material = r.ReadString()
		return m
	})
}

// ── DestroyResource ──

type DestroyResource struct {
	Kind   ResourceKind
	Handle handle.Handle
}

func (m DestroyResource) Encode() message.Message {
	w := message.NewWriter()
	w.WriteU8(uint8(m.Kind))
	w.WriteU64(uint64(m.Handle))
	return message.Message{Kind: MsgDestroyResource, Payload: w.Bytes()}
}

func DecodeDestroyResource(payload []byte) (DestroyResource, error) {
	return decode(MsgDestroyResource, payload, func(r *message.Reader) DestroyResource {
		return DestroyResource{
			Kind:   ResourceKind(r.ReadU8()),
			Handle: handle.Handle(r.ReadU64()),
		}
	})
}

// ── Render components ──

// SetRenderComponent attaches a drawable (a mesh or a terrain) to an entity,
// replacing any previous component.
type SetRenderComponent struct {
	Entity    uint64
	Kind      ResourceKind // KindMesh or KindTerrain
	Drawable  handle.Handle
	Material  handle.Handle // zero = the mesh's own range materials
	Transform [16]float32
}

func (m SetRenderComponent) Encode() message.Message {
	w := message.NewWriter()
	w.WriteU64(m.Entity)
	w.WriteU8(uint8(m.Kind))
	w.WriteU64(uint64(m.Drawable))
	w.WriteU64(uint64(m.Material))
	for _, f := range m.Transform {
		w.WriteF32(f)
	}
	return message.Message{Kind: MsgSetRenderComponent, Payload: w.Bytes()}
}

func DecodeSetRenderComponent(payload []byte) (SetRenderComponent, error) {
	return decode(MsgSetRenderComponent, payload, func(r *message.Reader) SetRenderComponent {
		m := SetRenderComponent{
			Entity:   r.ReadU64(),
			Kind:     ResourceKind(r.ReadU8()),
			Drawable: handle.Handle(r.ReadU64()),
			Material: handle.Handle(r.ReadU64()),
		}
		for i := range m.Transform {
			m.Transform[i] = r.ReadF32()
		}
		return m
	})
}

type RemoveRenderComponent struct {
	Entity uint64
}

func (m RemoveRenderComponent) Encode() message.Message {
	w := message.NewWriter()
	w.WriteU64(m.Entity)
	return message.Message{Kind: MsgRemoveRenderComponent, Payload: w.Bytes()}
}

func DecodeRemoveRenderComponent(payload []byte) (RemoveRenderComponent, error) {
	return decode(MsgRemoveRenderComponent, payload, func(r *message.Reader) RemoveRenderComponent {
		return RemoveRenderComponent{Entity: r.ReadU64()}
	})
}

// ── Outgoing ──

// ResourceLoadResult answers a load request. Handle is zero when OK is false.
type ResourceLoadResult struct {
	RequestID uuid.UUID
	Name      string
	Kind      ResourceKind
	Handle    handle.Handle
	OK        bool
	Reason    string
}

func (m ResourceLoadResult) Encode() message.Message {
	w := message.NewWriter()
	w.WriteUUID(m.RequestID)
	w.WriteString(m.Name)
	w.WriteU8(uint8(m.Kind))
	w.WriteU64(uint64(m.Handle))
	w.WriteBool(m.OK)
	w.WriteString(m.Reason)
	return message.Message{Kind: MsgResourceLoadResult, Payload: w.Bytes()}
}

func DecodeResourceLoadResult(payload []byte) (ResourceLoadResult, error) {
	return decode(MsgResourceLoadResult, payload, func(r *message.Reader) ResourceLoadResult {
		return ResourceLoadResult{
			RequestID: r.ReadUUID(),
			Name:      r.ReadString(),
			Kind:      ResourceKind(r.ReadU8()),
			Handle:    handle.Handle(r.ReadU64()),
			OK:        r.ReadBool(),
			Reason:    r.ReadString(),
		}
	})
}

type FrameStats struct {
	Frame          uint64
	DeltaSeconds   float32
	ElapsedSeconds float64
	DrawCalls      int
	SkippedDraws   int
	LiveResources  int
}

func (m FrameStats) Encode() message.Message {
	w := message.NewWriter()
	w.WriteU64(m.Frame)
	w.WriteF32(m.DeltaSeconds)
	w.WriteF64(m.ElapsedSeconds)
	w.WriteU32(uint32(m.DrawCalls))
	w.WriteU32(uint32(m.SkippedDraws))
	w.WriteU32(uint32(m.LiveResources))
	return message.Message{Kind: MsgFrameStats, Payload: w.Bytes()}
}

func DecodeFrameStats(payload []byte) (FrameStats, error) {
	return decode(MsgFrameStats, payload, func(r *message.Reader) FrameStats {
		return FrameStats{
			Frame:          r.ReadU64(),
			DeltaSeconds:   r.ReadF32(),
			ElapsedSeconds: r.ReadF64(),
			DrawCalls:      int(r.ReadU32()),
			SkippedDraws:   int(r.ReadU32()),
			LiveResources:  int(r.ReadU32()),
		}
	})
}

// Diagnostic reports a message that could not be applied.
type Diagnostic struct {
	Source message.Kind
	Reason string
}

func (m Diagnostic) Encode() message.Message {
	w := message.NewWriter()
	w.WriteU16(uint16(m.Source))
	w.WriteString(m.Reason)
	return message.Message{Kind: MsgDiagnostic, Payload: w.Bytes()}
}

func DecodeDiagnostic(payload []byte) (Diagnostic, error) {
	return decode(MsgDiagnostic, payload, func(r *message.Reader) Diagnostic {
		return Diagnostic{
			Source: message.Kind(r.ReadU16()),
			Reason: r.ReadString(),
		}
	})
}
