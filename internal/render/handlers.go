package render

import (
	"fmt"

	"github.com/dsengine/render/internal/core/ecs"
	"github.com/dsengine/render/internal/core/handle"
	"github.com/dsengine/render/internal/core/message"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// emitResult answers a load request. A creation error is reported to the
// requester, it is not a diagnostic.
func (s *System) emitResult(id uuid.UUID, name string, kind ResourceKind, h handle.Handle, err error) {
	res := ResourceLoadResult{RequestID: id, Name: name, Kind: kind, Handle: h, OK: err == nil}
	if err != nil {
		res.Handle = 0
		res.Reason = err.Error()
		s.log.Info("resource load failed", zap.Stringer("kind", kind), zap.String("name", name), zap.Error(err))
	} else {
		s.log.Debug("resource loaded", zap.Stringer("kind", kind), zap.String("name", name), zap.Uint64("handle", uint64(h)))
	}
	s.generated.Append(res.Encode())
}

func (s *System) materialByName(name string) (MaterialHandle, error) {
	if name == "" {
		return MaterialHandle{}, nil
	}
	h, ok := s.registry.LookupMaterial(name)
	if !ok {
		return MaterialHandle{}, fmt.Errorf("material %q: %w", name, ErrInvalidHandle)
	}
	return h, nil
}

func (s *System) handleLoadMesh(m message.Message) error {
	req, err := DecodeLoadMesh(m.Payload)
	if err != nil {
		return err
	}
	mat, err := s.materialByName(req.Material)
	if err != nil {
		s.emitResult(req.RequestID, req.Name, KindMesh, 0, err)
		return nil
	}
	h, err := s.registry.CreateMeshFromData(MeshData{
		Name:        req.Name,
		Primitive:   req.Primitive,
		DataType:    req.DataType,
		Layout:      req.Layout,
		VertexCount: req.VertexCount,
		Vertices:    req.Vertices,
		IndexType:   req.IndexType,
		IndexCount:  req.IndexCount,
		Indices:     req.Indices,
		Material:    mat,
	})
	s.emitResult(req.RequestID, req.Name, KindMesh, h.Raw(), err)
	return nil
}

func (s *System) handleLoadTexture(m message.Message) error {
	req, err := DecodeLoadTexture(m.Payload)
	if err != nil {
		return err
	}
	h, err := s.registry.CreateTexture(TextureDesc{
		Name:           req.Name,
		Type:           req.Type,
		Format:         req.Format,
		InternalFormat: req.InternalFormat,
		Width:          req.Width,
		Height:         req.Height,
		Data:           req.Data,
	})
	s.emitResult(req.RequestID, req.Name, KindTexture, h.Raw(), err)
	return nil
}

func (s *System) handleLoadShader(m message.Message) error {
	req, err := DecodeLoadShader(m.Payload)
	if err != nil {
		return err
	}
	h, err := s.registry.CreateShader(ShaderDesc{Name: req.Name, Type: req.Type, Source: req.Source})
	s.emitResult(req.RequestID, req.Name, KindShader, h.Raw(), err)
	return nil
}

func (s *System) handleLinkProgram(m message.Message) error {
	req, err := DecodeLinkProgram(m.Payload)
	if err != nil {
		return err
	}
	vs, ok := s.registry.LookupShader(req.Vertex)
	if !ok {
		s.emitResult(req.RequestID, req.Name, KindProgram, 0, fmt.Errorf("vertex shader %q: %w", req.Vertex, ErrInvalidHandle))
		return nil
	}
	fs, ok := s.registry.LookupShader(req.Fragment)
	if !ok {
		s.emitResult(req.RequestID, req.Name, KindProgram, 0, fmt.Errorf("fragment shader %q: %w", req.Fragment, ErrInvalidHandle))
		return nil
	}
	h, err := s.registry.CreateProgram(ProgramDesc{Name: req.Name, Vertex: vs, Fragment: fs})
	s.emitResult(req.RequestID, req.Name, KindProgram, h.Raw(), err)
	return nil
}

func (s *System) handleCreateMaterial(m message.Message) error {
	req, err := DecodeCreateMaterial(m.Payload)
	if err != nil {
		return err
	}
	prog, ok := s.registry.LookupProgram(req.Program)
	if !ok {
		s.emitResult(req.RequestID, req.Name, KindMaterial, 0, fmt.Errorf("program %q: %w", req.Program, ErrInvalidHandle))
		return nil
	}
	textures := make([]TextureHandle, 0, len(req.Textures))
	for _, name := range req.Textures {
		t, ok := s.registry.LookupTexture(name)
		if !ok {
			s.emitResult(req.RequestID, req.Name, KindMaterial, 0, fmt.Errorf("texture %q: %w", name, ErrInvalidHandle))
			return nil
		}
		textures = append(textures, t)
	}
	h, err := s.registry.CreateMaterial(MaterialDesc{
		Name:     req.Name,
		Program:  prog,
		Textures: textures,
		Params:   req.Params,
	})
	s.emitResult(req.RequestID, req.Name, KindMaterial, h.Raw(), err)
	return nil
}

func (s *System) handleLoadTerrain(m message.Message) error {
	req, err := DecodeLoadTerrain(m.Payload)
	if err != nil {
		return err
	}
	mat, err := s.materialByName(req.Material)
	if err != nil {
		s.emitResult(req.RequestID, req.Name, KindTerrain, 0, err)
		return nil
	}
	h, err := s.registry.CreateTerrain(TerrainDesc{
		Name:     req.Name,
		Width:    req.Width,
		Depth:    req.Depth,
		CellSize: req.CellSize,
		Heights:  req.Heights,
		Material: mat,
	})
	s.emitResult(req.RequestID, req.Name, KindTerrain, h.Raw(), err)
	return nil
}

func (s *System) handleDestroyResource(m message.Message) error {
	req, err := DecodeDestroyResource(m.Payload)
	if err != nil {
		return err
	}
	if !s.registry.DestroyRaw(req.Kind, req.Handle) {
		s.log.Debug("destroy of stale handle ignored", zap.Stringer("kind", req.Kind), zap.Uint64("handle", uint64(req.Handle)))
	}
	return nil
}

func (s *System) handleSetRenderComponent(m message.Message) error {
	req, err := DecodeSetRenderComponent(m.Payload)
	if err != nil {
		return err
	}
	if req.Kind != KindMesh && req.Kind != KindTerrain {
		return fmt.Errorf("%w: drawable kind %s", ErrMalformedMessage, req.Kind)
	}
	s.components.Set(ecs.EntityID(req.Entity), &renderComponent{
		kind:      req.Kind,
		drawable:  req.Drawable,
		material:  handle.FromRaw[materialKind](req.Material),
		transform: req.Transform,
	})
	return nil
}

func (s *System) handleRemoveRenderComponent(m message.Message) error {
	req, err := DecodeRemoveRenderComponent(m.Payload)
	if err != nil {
		return err
	}
	s.components.Remove(ecs.EntityID(req.Entity))
	return nil
}
