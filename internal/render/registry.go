package render

import (
	"errors"
	"fmt"
	"maps"

	"github.com/dsengine/render/internal/core/handle"
	"github.com/dsengine/render/internal/render/gfx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrInvalidHandle    = errors.New("invalid handle")
	ErrResourceCreation = errors.New("resource creation failed")
	ErrDuplicateName    = errors.New("name already in use")
)

// Registry owns every GPU resource record. Each kind lives in its own
// generational arena; handles are non-owning references into them. The
// registry does bookkeeping and lifetime only, backend calls go through gfx.
type Registry struct {
	backend gfx.Backend
	log     *zap.Logger

	vertexBuffers   *handle.Arena[vertexBufferKind, VertexBuffer]
	indexBuffers    *handle.Arena[indexBufferKind, IndexBuffer]
	shaders         *handle.Arena[shaderKind, Shader]
	programs        *handle.Arena[programKind, Program]
	textures        *handle.Arena[textureKind, Texture]
	constantBuffers *handle.Arena[constantBufferKind, ConstantBuffer]
	meshes          *handle.Arena[meshKind, MeshResource]
	terrains        *handle.Arena[terrainKind, TerrainResource]
	materials       *handle.Arena[materialKind, Material]

	names map[ResourceKind]map[string]handle.Handle
}

func NewRegistry(backend gfx.Backend, log *zap.Logger) *Registry {
	return &Registry{
		backend:         backend,
		log:             log,
		vertexBuffers:   handle.NewArena[vertexBufferKind, VertexBuffer](),
		indexBuffers:    handle.NewArena[indexBufferKind, IndexBuffer](),
		shaders:         handle.NewArena[shaderKind, Shader](),
		programs:        handle.NewArena[programKind, Program](),
		textures:        handle.NewArena[textureKind, Texture](),
		constantBuffers: handle.NewArena[constantBufferKind, ConstantBuffer](),
		meshes:          handle.NewArena[meshKind, MeshResource](),
		terrains:        handle.NewArena[terrainKind, TerrainResource](),
		materials:       handle.NewArena[materialKind, Material](),
		names:           make(map[ResourceKind]map[string]handle.Handle),
	}
}

func creationError(kind ResourceKind, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrResourceCreation, kind, err)
}

func get[K, R any](a *handle.Arena[K, R], h handle.Typed[K]) (*R, error) {
	if rec, ok := a.Get(h); ok {
		return rec, nil
	}
	return nil, ErrInvalidHandle
}

func (r *Registry) release(kind ResourceKind, obj gfx.Object) {
	if err := r.backend.Release(obj); err != nil {
		r.log.Warn("backend release failed", zap.Stringer("kind", kind), zap.Uint64("object", uint64(obj)), zap.Error(err))
	}
}

// ── Vertex buffers ──

func (r *Registry) CreateVertexBuffer(desc VertexBufferDesc) (VertexBufferHandle, error) {
	if err := desc.validate(); err != nil {
		return VertexBufferHandle{}, creationError(KindVertexBuffer, err)
	}
	obj, err := r.backend.CreateBuffer(gfx.BufferSpec{
		Kind:    gfx.BufferVertex,
		Dynamic: desc.Usage == UsageDynamic,
		Size:    desc.VertexCount * desc.Stride(),
		Data:    desc.Data,
	})
	if err != nil {
		return VertexBufferHandle{}, creationError(KindVertexBuffer, err)
	}
	return r.vertexBuffers.Insert(VertexBuffer{VertexBufferDesc: desc, object: obj}), nil
}

func (r *Registry) GetVertexBuffer(h VertexBufferHandle) (*VertexBuffer, error) {
	return get(r.vertexBuffers, h)
}

func (r *Registry) DestroyVertexBuffer(h VertexBufferHandle) {
	if vb, ok := r.vertexBuffers.Remove(h); ok {
		r.release(KindVertexBuffer, vb.object)
	}
}

// ── Index buffers ──

func (r *Registry) CreateIndexBuffer(desc IndexBufferDesc) (IndexBufferHandle, error) {
	if err := desc.validate(); err != nil {
		return IndexBufferHandle{}, creationError(KindIndexBuffer, err)
	}
	obj, err := r.backend.CreateBuffer(gfx.BufferSpec{
		Kind:    gfx.BufferIndex,
		Dynamic: desc.Usage == UsageDynamic,
		Size:    desc.IndexCount * desc.DataType.Size(),
		Data:    desc.Data,
	})
	if err != nil {
		return IndexBufferHandle{}, creationError(KindIndexBuffer, err)
	}
	return r.indexBuffers.Insert(IndexBuffer{IndexBufferDesc: desc, object: obj}), nil
}

func (r *Registry) GetIndexBuffer(h IndexBufferHandle) (*IndexBuffer, error) {
	return get(r.indexBuffers, h)
}

func (r *Registry) DestroyIndexBuffer(h IndexBufferHandle) {
	if ib, ok := r.indexBuffers.Remove(h); ok {
		r.release(KindIndexBuffer, ib.object)
	}
}

// ── Shaders and programs ──

func (r *Registry) CreateShader(desc ShaderDesc) (ShaderHandle, error) {
	if err := r.nameFree(KindShader, desc.Name); err != nil {
		return ShaderHandle{}, err
	}
	var stage gfx.ShaderStage
	switch desc.Type {
	case VertexShader:
		stage = gfx.StageVertex
	case FragmentShader:
		stage = gfx.StageFragment
	default:
		return ShaderHandle{}, creationError(KindShader, fmt.Errorf("shader type %s", desc.Type))
	}
	if desc.Source == "" {
		return ShaderHandle{}, creationError(KindShader, errors.New("empty source"))
	}
	obj, err := r.backend.CreateShader(gfx.ShaderSpec{Label: desc.Name, Stage: stage, Source: desc.Source})
	if err != nil {
		return ShaderHandle{}, creationError(KindShader, err)
	}
	h := r.shaders.Insert(Shader{ShaderDesc: desc, object: obj})
	r.bindName(KindShader, desc.Name, h.Raw())
	return h, nil
}

func (r *Registry) GetShader(h ShaderHandle) (*Shader, error) {
	return get(r.shaders, h)
}

func (r *Registry) DestroyShader(h ShaderHandle) {
	if s, ok := r.shaders.Remove(h); ok {
		r.unbindName(KindShader, s.Name, h.Raw())
		r.release(KindShader, s.object)
	}
}

func (r *Registry) CreateProgram(desc ProgramDesc) (ProgramHandle, error) {
	if err := r.nameFree(KindProgram, desc.Name); err != nil {
		return ProgramHandle{}, err
	}
	vs, err := r.GetShader(desc.Vertex)
	if err != nil {
		return ProgramHandle{}, creationError(KindProgram, fmt.Errorf("vertex shader: %w", err))
	}
	fs, err := r.GetShader(desc.Fragment)
	if err != nil {
		return ProgramHandle{}, creationError(KindProgram, fmt.Errorf("fragment shader: %w", err))
	}
	if vs.Type != VertexShader || fs.Type != FragmentShader {
		return ProgramHandle{}, creationError(KindProgram, fmt.Errorf("stages %s/%s", vs.Type, fs.Type))
	}
	obj, err := r.backend.LinkProgram(vs.object, fs.object)
	if err != nil {
		return ProgramHandle{}, creationError(KindProgram, err)
	}
	h := r.programs.Insert(Program{ProgramDesc: desc, object: obj})
	r.bindName(KindProgram, desc.Name, h.Raw())
	return h, nil
}

func (r *Registry) GetProgram(h ProgramHandle) (*Program, error) {
	return get(r.programs, h)
}

func (r *Registry) DestroyProgram(h ProgramHandle) {
	if p, ok := r.programs.Remove(h); ok {
		r.unbindName(KindProgram, p.Name, h.Raw())
		r.release(KindProgram, p.object)
	}
}

// ── Textures ──

func (r *Registry) CreateTexture(desc TextureDesc) (TextureHandle, error) {
	if err := r.nameFree(KindTexture, desc.Name); err != nil {
		return TextureHandle{}, err
	}
	if err := desc.validate(); err != nil {
		return TextureHandle{}, creationError(KindTexture, err)
	}
	obj, err := r.backend.CreateTexture(gfx.TextureSpec{
		Label:    desc.Name,
		Cubemap:  desc.Type == TextureCubemap,
		Channels: desc.Format.Channels(),
		SRGB:     desc.InternalFormat.SRGB(),
		Width:    desc.Width,
		Height:   desc.Height,
		Data:     desc.Data,
	})
	if err != nil {
		return TextureHandle{}, creationError(KindTexture, err)
	}
	h := r.textures.Insert(Texture{TextureDesc: desc, object: obj})
	r.bindName(KindTexture, desc.Name, h.Raw())
	return h, nil
}

func (r *Registry) GetTexture(h TextureHandle) (*Texture, error) {
	return get(r.textures, h)
}

func (r *Registry) DestroyTexture(h TextureHandle) {
	if t, ok := r.textures.Remove(h); ok {
		r.unbindName(KindTexture, t.Name, h.Raw())
		r.release(KindTexture, t.object)
	}
}

// ── Constant buffers ──

func (r *Registry) CreateConstantBuffer(desc ConstantBufferDesc) (ConstantBufferHandle, error) {
	if desc.Size <= 0 || len(desc.Data) > desc.Size {
		return ConstantBufferHandle{}, creationError(KindConstantBuffer,
			fmt.Errorf("size %d with %d bytes of data", desc.Size, len(desc.Data)))
	}
	obj, err := r.backend.CreateBuffer(gfx.BufferSpec{
		Kind:    gfx.BufferConstant,
		Dynamic: desc.Usage == UsageDynamic,
		Size:    desc.Size,
		Data:    desc.Data,
	})
	if err != nil {
		return ConstantBufferHandle{}, creationError(KindConstantBuffer, err)
	}
	return r.constantBuffers.Insert(ConstantBuffer{ConstantBufferDesc: desc, object: obj}), nil
}

func (r *Registry) GetConstantBuffer(h ConstantBufferHandle) (*ConstantBuffer, error) {
	return get(r.constantBuffers, h)
}

func (r *Registry) DestroyConstantBuffer(h ConstantBufferHandle) {
	if cb, ok := r.constantBuffers.Remove(h); ok {
		r.release(KindConstantBuffer, cb.object)
	}
}

// ── Meshes ──

// elementCount is the number of drawable elements: indices when indexed,
// vertices otherwise.
func (r *Registry) elementCount(desc MeshDesc) (int, error) {
	vb, err := r.GetVertexBuffer(desc.VertexBuffer)
	if err != nil {
		return 0, fmt.Errorf("vertex buffer: %w", err)
	}
	if desc.IndexBuffer.IsZero() {
		return vb.VertexCount, nil
	}
	ib, err := r.GetIndexBuffer(desc.IndexBuffer)
	if err != nil {
		return 0, fmt.Errorf("index buffer: %w", err)
	}
	return ib.IndexCount, nil
}

func (r *Registry) CreateMesh(desc MeshDesc) (MeshResourceHandle, error) {
	return r.createMesh(desc, false)
}

func (r *Registry) createMesh(desc MeshDesc, owned bool) (MeshResourceHandle, error) {
	if err := r.nameFree(KindMesh, desc.Name); err != nil {
		return MeshResourceHandle{}, err
	}
	if desc.Primitive > PrimitivePoints {
		return MeshResourceHandle{}, creationError(KindMesh, fmt.Errorf("primitive %s", desc.Primitive))
	}
	count, err := r.elementCount(desc)
	if err != nil {
		return MeshResourceHandle{}, creationError(KindMesh, err)
	}
	for i, rg := range desc.Ranges {
		if rg.Start < 0 || rg.Count <= 0 || rg.Start+rg.Count > count {
			return MeshResourceHandle{}, creationError(KindMesh,
				fmt.Errorf("range %d [%d,+%d) outside %d elements", i, rg.Start, rg.Count, count))
		}
		if !rg.Material.IsZero() && !r.materials.Valid(rg.Material) {
			return MeshResourceHandle{}, creationError(KindMesh, fmt.Errorf("range %d material: %w", i, ErrInvalidHandle))
		}
	}
	desc.Ranges = append([]MeshRange(nil), desc.Ranges...)
	h := r.meshes.Insert(MeshResource{MeshDesc: desc, Owned: owned})
	r.bindName(KindMesh, desc.Name, h.Raw())
	return h, nil
}

// CreateMeshFromData builds vertex and index buffers from raw geometry and a
// mesh owning them. Either everything is created or nothing is.
func (r *Registry) CreateMeshFromData(data MeshData) (MeshResourceHandle, error) {
	if err := r.nameFree(KindMesh, data.Name); err != nil {
		return MeshResourceHandle{}, err
	}
	vb, err := r.CreateVertexBuffer(VertexBufferDesc{
		Usage:       UsageStatic,
		DataType:    data.DataType,
		Layout:      data.Layout,
		VertexCount: data.VertexCount,
		Data:        data.Vertices,
	})
	if err != nil {
		return MeshResourceHandle{}, err
	}
	var ib IndexBufferHandle
	if data.IndexCount > 0 {
		ib, err = r.CreateIndexBuffer(IndexBufferDesc{
			Usage:      UsageStatic,
			DataType:   data.IndexType,
			IndexCount: data.IndexCount,
			Data:       data.Indices,
		})
		if err != nil {
			r.DestroyVertexBuffer(vb)
			return MeshResourceHandle{}, err
		}
	}
	desc := MeshDesc{
		Name:         data.Name,
		VertexBuffer: vb,
		IndexBuffer:  ib,
		Primitive:    data.Primitive,
	}
	if !data.Material.IsZero() {
		count := data.VertexCount
		if data.IndexCount > 0 {
			count = data.IndexCount
		}
		desc.Ranges = []MeshRange{{Start: 0, Count: count, Material: data.Material}}
	}
	h, err := r.createMesh(desc, true)
	if err != nil {
		r.DestroyIndexBuffer(ib)
		r.DestroyVertexBuffer(vb)
		return MeshResourceHandle{}, err
	}
	return h, nil
}

func (r *Registry) GetMesh(h MeshResourceHandle) (*MeshResource, error) {
	return get(r.meshes, h)
}

func (r *Registry) DestroyMesh(h MeshResourceHandle) {
	m, ok := r.meshes.Remove(h)
	if !ok {
		return
	}
	r.unbindName(KindMesh, m.Name, h.Raw())
	if m.Owned {
		r.DestroyIndexBuffer(m.IndexBuffer)
		r.DestroyVertexBuffer(m.VertexBuffer)
	}
}

// ── Terrain ──

func (r *Registry) CreateTerrain(desc TerrainDesc) (TerrainResourceHandle, error) {
	if err := r.nameFree(KindTerrain, desc.Name); err != nil {
		return TerrainResourceHandle{}, err
	}
	if desc.Width < 2 || desc.Depth < 2 || desc.Width > MaxTerrainDimension || desc.Depth > MaxTerrainDimension {
		return TerrainResourceHandle{}, creationError(KindTerrain,
			fmt.Errorf("grid %dx%d (limit %d)", desc.Width, desc.Depth, MaxTerrainDimension))
	}
	if len(desc.Heights) != desc.Width*desc.Depth {
		return TerrainResourceHandle{}, creationError(KindTerrain,
			fmt.Errorf("%d heights for a %dx%d grid", len(desc.Heights), desc.Width, desc.Depth))
	}
	if desc.CellSize <= 0 {
		return TerrainResourceHandle{}, creationError(KindTerrain, fmt.Errorf("cell size %v", desc.CellSize))
	}
	mesh, err := r.CreateMeshFromData(terrainMesh(desc))
	if err != nil {
		return TerrainResourceHandle{}, fmt.Errorf("terrain %q mesh: %w", desc.Name, err)
	}
	desc.Heights = append([]float32(nil), desc.Heights...)
	h := r.terrains.Insert(TerrainResource{TerrainDesc: desc, Mesh: mesh})
	r.bindName(KindTerrain, desc.Name, h.Raw())
	return h, nil
}

func (r *Registry) GetTerrain(h TerrainResourceHandle) (*TerrainResource, error) {
	return get(r.terrains, h)
}

func (r *Registry) DestroyTerrain(h TerrainResourceHandle) {
	t, ok := r.terrains.Remove(h)
	if !ok {
		return
	}
	r.unbindName(KindTerrain, t.Name, h.Raw())
	r.DestroyMesh(t.Mesh)
}

// ── Materials ──

func (r *Registry) CreateMaterial(desc MaterialDesc) (MaterialHandle, error) {
	if err := r.nameFree(KindMaterial, desc.Name); err != nil {
		return MaterialHandle{}, err
	}
	if !r.programs.Valid(desc.Program) {
		return MaterialHandle{}, creationError(KindMaterial, fmt.Errorf("program: %w", ErrInvalidHandle))
	}
	for i, t := range desc.Textures {
		if !r.textures.Valid(t) {
			return MaterialHandle{}, creationError(KindMaterial, fmt.Errorf("texture %d: %w", i, ErrInvalidHandle))
		}
	}
	if !desc.Constants.IsZero() && !r.constantBuffers.Valid(desc.Constants) {
		return MaterialHandle{}, creationError(KindMaterial, fmt.Errorf("constants: %w", ErrInvalidHandle))
	}
	desc.Textures = append([]TextureHandle(nil), desc.Textures...)
	desc.Params = maps.Clone(desc.Params)
	h := r.materials.Insert(Material{MaterialDesc: desc})
	r.bindName(KindMaterial, desc.Name, h.Raw())
	return h, nil
}

func (r *Registry) GetMaterial(h MaterialHandle) (*Material, error) {
	return get(r.materials, h)
}

func (r *Registry) DestroyMaterial(h MaterialHandle) {
	if m, ok := r.materials.Remove(h); ok {
		r.unbindName(KindMaterial, m.Name, h.Raw())
	}
}

// ── Wire-level access ──

// DestroyRaw destroys the resource of the given kind behind a wire handle.
// It reports whether the handle was live.
func (r *Registry) DestroyRaw(kind ResourceKind, raw handle.Handle) bool {
	if !r.ValidRaw(kind, raw) {
		return false
	}
	switch kind {
	case KindVertexBuffer:
		r.DestroyVertexBuffer(handle.FromRaw[vertexBufferKind](raw))
	case KindIndexBuffer:
		r.DestroyIndexBuffer(handle.FromRaw[indexBufferKind](raw))
	case KindShader:
		r.DestroyShader(handle.FromRaw[shaderKind](raw))
	case KindProgram:
		r.DestroyProgram(handle.FromRaw[programKind](raw))
	case KindTexture:
		r.DestroyTexture(handle.FromRaw[textureKind](raw))
	case KindConstantBuffer:
		r.DestroyConstantBuffer(handle.FromRaw[constantBufferKind](raw))
	case KindMesh:
		r.DestroyMesh(handle.FromRaw[meshKind](raw))
	case KindTerrain:
		r.DestroyTerrain(handle.FromRaw[terrainKind](raw))
	case KindMaterial:
		r.DestroyMaterial(handle.FromRaw[materialKind](raw))
	}
	return true
}

// ValidRaw reports whether a wire handle refers to a live resource of kind.
func (r *Registry) ValidRaw(kind ResourceKind, raw handle.Handle) bool {
	switch kind {
	case KindVertexBuffer:
		return r.vertexBuffers.Valid(handle.FromRaw[vertexBufferKind](raw))
	case KindIndexBuffer:
		return r.indexBuffers.Valid(handle.FromRaw[indexBufferKind](raw))
	case KindShader:
		return r.shaders.Valid(handle.FromRaw[shaderKind](raw))
	case KindProgram:
		return r.programs.Valid(handle.FromRaw[programKind](raw))
	case KindTexture:
		return r.textures.Valid(handle.FromRaw[textureKind](raw))
	case KindConstantBuffer:
		return r.constantBuffers.Valid(handle.FromRaw[constantBufferKind](raw))
	case KindMesh:
		return r.meshes.Valid(handle.FromRaw[meshKind](raw))
	case KindTerrain:
		return r.terrains.Valid(handle.FromRaw[terrainKind](raw))
	case KindMaterial:
		return r.materials.Valid(handle.FromRaw[materialKind](raw))
	default:
		return false
	}
}

// ── Names ──

func nameKey(name string) string {
	return norm.NFC.String(name)
}

// nameFree fails when a live resource of kind already uses name.
func (r *Registry) nameFree(kind ResourceKind, name string) error {
	if name == "" {
		return nil
	}
	if raw, ok := r.names[kind][nameKey(name)]; ok && r.ValidRaw(kind, raw) {
		return creationError(kind, fmt.Errorf("%w: %q", ErrDuplicateName, name))
	}
	return nil
}

func (r *Registry) bindName(kind ResourceKind, name string, h handle.Handle) {
	if name == "" {
		return
	}
	m := r.names[kind]
	if m == nil {
		m = make(map[string]handle.Handle)
		r.names[kind] = m
	}
	m[nameKey(name)] = h
}

func (r *Registry) unbindName(kind ResourceKind, name string, h handle.Handle) {
	if name == "" {
		return
	}
	key := nameKey(name)
	if r.names[kind][key] == h {
		delete(r.names[kind], key)
	}
}

func lookup[K, R any](r *Registry, a *handle.Arena[K, R], kind ResourceKind, name string) (handle.Typed[K], bool) {
	raw, ok := r.names[kind][nameKey(name)]
	if !ok {
		return handle.Typed[K]{}, false
	}
	h := handle.FromRaw[K](raw)
	return h, a.Valid(h)
}

func (r *Registry) LookupShader(name string) (ShaderHandle, bool) {
	return lookup(r, r.shaders, KindShader, name)
}

func (r *Registry) LookupProgram(name string) (ProgramHandle, bool) {
	return lookup(r, r.programs, KindProgram, name)
}

func (r *Registry) LookupTexture(name string) (TextureHandle, bool) {
	return lookup(r, r.textures, KindTexture, name)
}

func (r *Registry) LookupMesh(name string) (MeshResourceHandle, bool) {
	return lookup(r, r.meshes, KindMesh, name)
}

func (r *Registry) LookupTerrain(name string) (TerrainResourceHandle, bool) {
	return lookup(r, r.terrains, KindTerrain, name)
}

func (r *Registry) LookupMaterial(name string) (MaterialHandle, bool) {
	return lookup(r, r.materials, KindMaterial, name)
}

// ── Bulk ──

// Counts returns the number of live records per kind.
func (r *Registry) Counts() map[ResourceKind]int {
	return map[ResourceKind]int{
		KindVertexBuffer:   r.vertexBuffers.Len(),
		KindIndexBuffer:    r.indexBuffers.Len(),
		KindShader:         r.shaders.Len(),
		KindProgram:        r.programs.Len(),
		KindTexture:        r.textures.Len(),
		KindConstantBuffer: r.constantBuffers.Len(),
		KindMesh:           r.meshes.Len(),
		KindTerrain:        r.terrains.Len(),
		KindMaterial:       r.materials.Len(),
	}
}

func (r *Registry) Live() int {
	n := 0
	for _, c := range r.Counts() {
		n += c
	}
	return n
}

// Clear destroys every record of every kind. All outstanding handles become
// stale. Backend release failures are collected and returned together.
func (r *Registry) Clear() error {
	var errs error
	rel := func(kind ResourceKind, obj gfx.Object) {
		if err := r.backend.Release(obj); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("release %s %d: %w", kind, obj, err))
		}
	}

	r.materials.Clear(nil)
	r.terrains.Clear(nil)
	r.meshes.Clear(nil)
	r.programs.Clear(func(_ ProgramHandle, p Program) { rel(KindProgram, p.object) })
	r.shaders.Clear(func(_ ShaderHandle, s Shader) { rel(KindShader, s.object) })
	r.textures.Clear(func(_ TextureHandle, t Texture) { rel(KindTexture, t.object) })
	r.constantBuffers.Clear(func(_ ConstantBufferHandle, cb ConstantBuffer) { rel(KindConstantBuffer, cb.object) })
	r.indexBuffers.Clear(func(_ IndexBufferHandle, ib IndexBuffer) { rel(KindIndexBuffer, ib.object) })
	r.vertexBuffers.Clear(func(_ VertexBufferHandle, vb VertexBuffer) { rel(KindVertexBuffer, vb.object) })

	clear(r.names)
	return errs
}

// ── Draw assembly ──

// appendDraws appends one draw call per mesh range. Ranges whose mesh,
// buffers, material, program or textures are stale are skipped and counted.
// A non-zero material overrides the per-range materials.
func (r *Registry) appendDraws(dst []gfx.DrawCall, mesh MeshResourceHandle, material MaterialHandle, transform [16]float32) ([]gfx.DrawCall, int) {
	m, ok := r.meshes.Get(mesh)
	if !ok {
		return dst, 1
	}
	vb, ok := r.vertexBuffers.Get(m.VertexBuffer)
	if !ok {
		return dst, max(1, len(m.Ranges))
	}
	var ibObj gfx.Object
	count := vb.VertexCount
	if !m.IndexBuffer.IsZero() {
		ib, ok := r.indexBuffers.Get(m.IndexBuffer)
		if !ok {
			return dst, max(1, len(m.Ranges))
		}
		ibObj = ib.object
		count = ib.IndexCount
	}
	ranges := m.Ranges
	if len(ranges) == 0 {
		ranges = []MeshRange{{Start: 0, Count: count}}
	}

	skipped := 0
	for _, rg := range ranges {
		mh := rg.Material
		if !material.IsZero() {
			mh = material
		}
		call, ok := r.resolveMaterial(mh)
		if !ok {
			skipped++
			continue
		}
		call.VertexBuffer = vb.object
		call.IndexBuffer = ibObj
		call.Topology = primitiveTopology(m.Primitive)
		call.First = rg.Start
		call.Count = rg.Count
		call.Transform = transform
		dst = append(dst, call)
	}
	return dst, skipped
}

func (r *Registry) resolveMaterial(h MaterialHandle) (gfx.DrawCall, bool) {
	var call gfx.DrawCall
	mat, ok := r.materials.Get(h)
	if !ok {
		return call, false
	}
	prog, ok := r.programs.Get(mat.Program)
	if !ok {
		return call, false
	}
	call.Program = prog.object
	for _, th := range mat.Textures {
		tex, ok := r.textures.Get(th)
		if !ok {
			return call, false
		}
		call.Textures = append(call.Textures, tex.object)
	}
	if !mat.Constants.IsZero() {
		cb, ok := r.constantBuffers.Get(mat.Constants)
		if !ok {
			return call, false
		}
		call.Constants = cb.object
	}
	return call, true
}
