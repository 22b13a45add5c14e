package render

import (
	"testing"
	"time"

	"github.com/dsengine/render/internal/config"
	"github.com/dsengine/render/internal/core/message"
	"github.com/dsengine/render/internal/render/gfx"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSystem(t *testing.T, mutate func(*config.Config)) (*System, *gfx.Headless) {
	t.Helper()
	hb := gfx.NewHeadless()
	s := NewSystem(func(string) (gfx.Backend, error) { return hb, nil }, zap.NewNop())
	cfg := config.Defaults()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, s.Initialize(cfg))
	return s, hb
}

func streamOf(msgs ...message.Message) *message.Stream {
	st := message.NewStream()
	for _, m := range msgs {
		st.Append(m)
	}
	return st
}

func resultsOf(t *testing.T, st *message.Stream) []ResourceLoadResult {
	t.Helper()
	var out []ResourceLoadResult
	for _, m := range st.Messages() {
		if m.Kind != MsgResourceLoadResult {
			continue
		}
		res, err := DecodeResourceLoadResult(m.Payload)
		require.NoError(t, err)
		out = append(out, res)
	}
	return out
}

func diagnosticsOf(t *testing.T, st *message.Stream) []Diagnostic {
	t.Helper()
	var out []Diagnostic
	for _, m := range st.Messages() {
		if m.Kind != MsgDiagnostic {
			continue
		}
		d, err := DecodeDiagnostic(m.Payload)
		require.NoError(t, err)
		out = append(out, d)
	}
	return out
}

func quadRequest(name, material string) LoadMesh {
	q := quadData(name)
	return LoadMesh{
		RequestID:   uuid.New(),
		Name:        name,
		Primitive:   q.Primitive,
		DataType:    q.DataType,
		Layout:      q.Layout,
		VertexCount: q.VertexCount,
		Vertices:    q.Vertices,
		IndexType:   q.IndexType,
		IndexCount:  q.IndexCount,
		Indices:     q.Indices,
		Material:    material,
	}
}

// materialRequests builds shaders, a program, a texture and a material named name.
func materialRequests(name string) []message.Message {
	return []message.Message{
		LoadShader{RequestID: uuid.New(), Name: name + ".vs", Type: VertexShader, Source: "vs"}.Encode(),
		LoadShader{RequestID: uuid.New(), Name: name + ".fs", Type: FragmentShader, Source: "fs"}.Encode(),
		LinkProgram{RequestID: uuid.New(), Name: name, Vertex: name + ".vs", Fragment: name + ".fs"}.Encode(),
		LoadTexture{RequestID: uuid.New(), Name: name, Type: TextureTwoDimensional, Format: FormatRGBA, InternalFormat: InternalSRGBA8, Width: 1, Height: 1, Data: []byte{1, 2, 3, 4}}.Encode(),
		CreateMaterial{RequestID: uuid.New(), Name: name, Program: name, Textures: []string{name}, Params: map[string]float32{"gloss": 1}}.Encode(),
	}
}

func TestInitializeWithDefaultBackends(t *testing.T) {
	s := NewSystem(nil, zap.NewNop())
	require.NoError(t, s.Initialize(config.Defaults()))
	assert.Equal(t, StateIdle, s.State())

	h, err := s.Resources().CreateTexture(TextureDesc{Type: TextureTwoDimensional, Format: FormatRGBA, InternalFormat: InternalRGBA8, Width: 64, Height: 64})
	require.NoError(t, err)
	tex, err := s.Resources().GetTexture(h)
	require.NoError(t, err)
	assert.Equal(t, [2]int{64, 64}, [2]int{tex.Width, tex.Height})
	s.Resources().DestroyTexture(h)
	_, err = s.Resources().GetTexture(h)
	assert.ErrorIs(t, err, ErrInvalidHandle)

	assert.ErrorIs(t, s.Initialize(config.Defaults()), ErrInitialization)
}

func TestInitializeFailures(t *testing.T) {
	cases := map[string]func(*config.Config){
		"unknown backend": func(c *config.Config) { c.Render.Backend = "vulkan" },
		"empty window":    func(c *config.Config) { c.Window.Width = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewSystem(DefaultBackends, zap.NewNop())
			cfg := config.Defaults()
			mutate(cfg)
			err := s.Initialize(cfg)
			require.ErrorIs(t, err, ErrInitialization)
			assert.Nil(t, s.Resources())

			s.PostMessages(streamOf(LoadTexture{Type: TextureTwoDimensional, Width: 1, Height: 1}.Encode()))
			assert.NotPanics(t, func() { s.Update(time.Millisecond) })
			assert.Equal(t, StateUninitialized, s.State())
			s.Shutdown()
		})
	}
}

func TestInitializeBackendOpenFailure(t *testing.T) {
	hb := gfx.NewHeadless()
	require.NoError(t, hb.Close())
	s := NewSystem(func(string) (gfx.Backend, error) { return hb, nil }, zap.NewNop())
	assert.ErrorIs(t, s.Initialize(config.Defaults()), ErrInitialization)
}

func TestPostMessagesOnlyBuffers(t *testing.T) {
	s, _ := newTestSystem(t, nil)
	s.PostMessages(streamOf(LoadTexture{RequestID: uuid.New(), Type: TextureTwoDimensional, Width: 2, Height: 2}.Encode()))
	assert.Equal(t, 0, s.Resources().Live())
	assert.Equal(t, 0, s.CollectMessages().Len())

	s.Update(16 * time.Millisecond)
	assert.Equal(t, 1, s.Resources().Live())
}

func TestPostMessagesOrderAcrossCalls(t *testing.T) {
	s, _ := newTestSystem(t, func(c *config.Config) { c.Render.EmitFrameStats = false })
	vs := LoadShader{RequestID: uuid.New(), Name: "vs", Type: VertexShader, Source: "v"}
	fs := LoadShader{RequestID: uuid.New(), Name: "fs", Type: FragmentShader, Source: "f"}
	link := LinkProgram{RequestID: uuid.New(), Name: "p", Vertex: "vs", Fragment: "fs"}

	s.PostMessages(streamOf(vs.Encode(), fs.Encode()))
	s.PostMessages(streamOf(link.Encode()))
	s.Update(0)

	results := resultsOf(t, s.CollectMessages())
	require.Len(t, results, 3)
	assert.Equal(t, []uuid.UUID{vs.RequestID, fs.RequestID, link.RequestID},
		[]uuid.UUID{results[0].RequestID, results[1].RequestID, results[2].RequestID})
	for _, r := range results {
		assert.True(t, r.OK, r.Reason)
	}
}

func TestCollectMessagesDrainsOnce(t *testing.T) {
	s, _ := newTestSystem(t, nil)
	s.Update(time.Millisecond)
	first := s.CollectMessages()
	assert.Equal(t, 1, first.Len())
	assert.Equal(t, MsgFrameStats, first.Messages()[0].Kind)
	assert.Equal(t, 0, s.CollectMessages().Len())
}

func TestLoadMeshScenario(t *testing.T) {
	s, _ := newTestSystem(t, nil)
	req := quadRequest("quad", "")
	s.PostMessages(streamOf(req.Encode()))
	s.Update(16 * time.Millisecond)

	out := s.CollectMessages()
	results := resultsOf(t, out)
	require.Len(t, results, 1)
	res := results[0]
	assert.True(t, res.OK, res.Reason)
	assert.Equal(t, req.RequestID, res.RequestID)
	assert.Equal(t, KindMesh, res.Kind)
	assert.True(t, s.Resources().ValidRaw(KindMesh, res.Handle))

	mesh, ok := s.Resources().LookupMesh("quad")
	require.True(t, ok)
	assert.Equal(t, res.Handle, mesh.Raw())
	assert.Empty(t, diagnosticsOf(t, out))
}

func TestNegativeDeltaTime(t *testing.T) {
	s, _ := newTestSystem(t, nil)
	s.PostMessages(streamOf(quadRequest("quad", "").Encode()))
	assert.NotPanics(t, func() { s.Update(-time.Second) })
	assert.Equal(t, time.Duration(0), s.Elapsed())
	assert.Equal(t, float32(0), s.LastStats().DeltaSeconds)

	h, ok := s.Resources().LookupMesh("quad")
	require.True(t, ok)
	_, err := s.Resources().GetMesh(h)
	assert.NoError(t, err)

	s.Update(500 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, s.Elapsed())
	assert.Equal(t, uint64(2), s.Frame())
}

func TestMalformedMessageIsSkipped(t *testing.T) {
	s, _ := newTestSystem(t, nil)
	good := LoadTexture{RequestID: uuid.New(), Type: TextureTwoDimensional, Width: 1, Height: 1}
	s.PostMessages(streamOf(
		message.Message{Kind: MsgLoadTexture, Payload: []byte{1, 2, 3}},
		good.Encode(),
	))
	s.Update(0)

	out := s.CollectMessages()
	diags := diagnosticsOf(t, out)
	require.Len(t, diags, 1)
	assert.Equal(t, MsgLoadTexture, diags[0].Source)
	assert.Contains(t, diags[0].Reason, ErrMalformedMessage.Error())

	results := resultsOf(t, out)
	require.Len(t, results, 1)
	assert.Equal(t, good.RequestID, results[0].RequestID)
	assert.True(t, results[0].OK)
}

func TestUnknownMessageKindIgnored(t *testing.T) {
	s, _ := newTestSystem(t, func(c *config.Config) { c.Render.EmitFrameStats = false })
	s.PostMessages(streamOf(message.Message{Kind: 0x7777, Payload: []byte("??")}))
	s.Update(0)
	assert.Equal(t, 0, s.CollectMessages().Len())
}

func TestHandlerPanicBecomesDiagnostic(t *testing.T) {
	s, _ := newTestSystem(t, nil)
	s.handlers[0x0999] = func(message.Message) error { panic("boom") }
	s.PostMessages(streamOf(message.Message{Kind: 0x0999}, quadRequest("quad", "").Encode()))
	s.Update(0)

	out := s.CollectMessages()
	diags := diagnosticsOf(t, out)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Reason, "boom")
	assert.Len(t, resultsOf(t, out), 1)
	assert.Equal(t, StateIdle, s.State())
}

func TestLoadFailureIsReported(t *testing.T) {
	s, _ := newTestSystem(t, nil)
	s.PostMessages(streamOf(
		LoadTexture{RequestID: uuid.New(), Name: "broken", Type: TextureTwoDimensional}.Encode(),
		quadRequest("quad", "missing-material").Encode(),
		LinkProgram{RequestID: uuid.New(), Name: "p", Vertex: "nope", Fragment: "nope"}.Encode(),
	))
	s.Update(0)

	out := s.CollectMessages()
	results := resultsOf(t, out)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.False(t, r.OK)
		assert.Zero(t, r.Handle)
		assert.NotEmpty(t, r.Reason)
	}
	assert.Empty(t, diagnosticsOf(t, out))
	assert.Equal(t, 0, s.Resources().Live())
}

func TestResourceLimitFailsCreation(t *testing.T) {
	s, _ := newTestSystem(t, func(c *config.Config) { c.Render.MaxObjects = 1 })
	s.PostMessages(streamOf(quadRequest("quad", "").Encode()))
	s.Update(0)
	results := resultsOf(t, s.CollectMessages())
	require.Len(t, results, 1)
	assert.False(t, results[0].OK)
	assert.Equal(t, 0, s.Resources().Live())
}

func TestRenderComponentsDrawAndSkip(t *testing.T) {
	s, hb := newTestSystem(t, nil)
	s.PostMessages(streamOf(materialRequests("stone")...))
	s.PostMessages(streamOf(
		quadRequest("quad", "stone").Encode(),
		LoadTerrain{RequestID: uuid.New(), Name: "ground", Width: 2, Depth: 2, CellSize: 1, Heights: make([]float32, 4), Material: "stone"}.Encode(),
	))
	s.Update(0)
	for _, r := range resultsOf(t, s.CollectMessages()) {
		require.True(t, r.OK, "%s: %s", r.Name, r.Reason)
	}

	mesh, _ := s.Resources().LookupMesh("quad")
	terrain, _ := s.Resources().LookupTerrain("ground")
	s.PostMessages(streamOf(
		SetRenderComponent{Entity: 1, Kind: KindMesh, Drawable: mesh.Raw()}.Encode(),
		SetRenderComponent{Entity: 2, Kind: KindTerrain, Drawable: terrain.Raw()}.Encode(),
	))
	s.Update(time.Millisecond)
	assert.Equal(t, 2, s.ComponentCount())
	assert.Equal(t, 2, s.LastStats().DrawCalls)
	assert.Equal(t, 0, s.LastStats().SkippedDraws)
	assert.Equal(t, 2, hb.Stats().DrawCalls)

	s.PostMessages(streamOf(DestroyResource{Kind: KindMesh, Handle: mesh.Raw()}.Encode()))
	s.PostMessages(streamOf(DestroyResource{Kind: KindMesh, Handle: mesh.Raw()}.Encode()))
	s.Update(time.Millisecond)
	assert.Equal(t, 1, s.LastStats().DrawCalls)
	assert.Equal(t, 1, s.LastStats().SkippedDraws)

	s.PostMessages(streamOf(RemoveRenderComponent{Entity: 1}.Encode()))
	s.Update(time.Millisecond)
	assert.Equal(t, 1, s.ComponentCount())
	assert.Equal(t, 0, s.LastStats().SkippedDraws)

	stats := s.CollectMessages().Messages()
	last, err := DecodeFrameStats(stats[len(stats)-1].Payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), last.Frame)
	assert.Equal(t, 1, last.DrawCalls)
}

func TestSetRenderComponentRejectsKind(t *testing.T) {
	s, _ := newTestSystem(t, nil)
	s.PostMessages(streamOf(SetRenderComponent{Entity: 1, Kind: KindTexture}.Encode()))
	s.Update(0)
	diags := diagnosticsOf(t, s.CollectMessages())
	require.Len(t, diags, 1)
	assert.Equal(t, MsgSetRenderComponent, diags[0].Source)
	assert.Equal(t, 0, s.ComponentCount())
}

func TestSubmitFailureBecomesDiagnostic(t *testing.T) {
	s, hb := newTestSystem(t, nil)
	require.NoError(t, hb.Close())
	assert.NotPanics(t, func() { s.Update(0) })
	diags := diagnosticsOf(t, s.CollectMessages())
	require.Len(t, diags, 1)
	assert.Equal(t, message.KindNone, diags[0].Source)
}

func TestShutdown(t *testing.T) {
	s, hb := newTestSystem(t, nil)
	s.PostMessages(streamOf(quadRequest("quad", "").Encode()))
	s.Update(0)
	mesh, ok := s.Resources().LookupMesh("quad")
	require.True(t, ok)
	s.PostMessages(streamOf(quadRequest("other", "").Encode()))

	s.Shutdown()
	s.Shutdown()
	assert.Equal(t, StateShutdown, s.State())
	assert.Equal(t, 0, s.CollectMessages().Len())
	_, err := s.Resources().GetMesh(mesh)
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.Equal(t, 0, hb.Stats().Objects)

	s.PostMessages(streamOf(quadRequest("late", "").Encode()))
	s.Update(0)
	assert.Equal(t, 0, s.CollectMessages().Len())
	assert.Equal(t, 0, s.Resources().Live())
	assert.ErrorIs(t, s.Initialize(config.Defaults()), ErrInitialization)
}

func TestDuplicateNameLoadFails(t *testing.T) {
	s, _ := newTestSystem(t, func(c *config.Config) { c.Render.EmitFrameStats = false })
	tex := LoadTexture{RequestID: uuid.New(), Name: "albedo", Type: TextureTwoDimensional, Width: 1, Height: 1}
	dup := tex
	dup.RequestID = uuid.New()
	s.PostMessages(streamOf(tex.Encode(), dup.Encode()))
	s.Update(0)

	results := resultsOf(t, s.CollectMessages())
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.False(t, results[1].OK)
	assert.Contains(t, results[1].Reason, ErrDuplicateName.Error())

	h, ok := s.Resources().LookupTexture("albedo")
	require.True(t, ok)
	assert.Equal(t, results[0].Handle, h.Raw())
}

func TestOversizedTextureLoadFails(t *testing.T) {
	s, _ := newTestSystem(t, nil)
	huge := LoadTexture{RequestID: uuid.New(), Name: "huge", Type: TextureCubemap, Format: FormatRGBA, Width: 1 << 30, Height: 1 << 30, Data: []byte{1}}
	s.PostMessages(streamOf(huge.Encode()))
	require.NotPanics(t, func() { s.Update(0) })

	out := s.CollectMessages()
	results := resultsOf(t, out)
	require.Len(t, results, 1)
	assert.False(t, results[0].OK)
	assert.Empty(t, diagnosticsOf(t, out))
}
