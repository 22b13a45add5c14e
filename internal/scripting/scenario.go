package scripting

import (
	"fmt"
	"time"

	"github.com/dsengine/render/internal/config"
	"github.com/dsengine/render/internal/core/handle"
	"github.com/dsengine/render/internal/core/message"
	"github.com/dsengine/render/internal/core/system"
	"github.com/dsengine/render/internal/data"
	"github.com/dsengine/render/internal/render"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ScenarioSystem drives the render system from a Lua script. The script
// talks to the engine through the global `render` table and may define the
// callbacks on_frame(frame, dt), on_result(res), on_diagnostic(diag) and
// on_stats(stats).
//
// Single-goroutine access only (game loop).
type ScenarioSystem struct {
	vm    *lua.LState
	log   *zap.Logger
	path  string
	inbox []message.Message
	out   *message.Stream
	frame uint64
}

var _ system.System = (*ScenarioSystem)(nil)

// NewScenarioSystem runs path, or [scripting] scenario when path is empty.
// Without a script the system does nothing.
func NewScenarioSystem(path string, log *zap.Logger) *ScenarioSystem {
	return &ScenarioSystem{path: path, log: log, out: message.NewStream()}
}

func (s *ScenarioSystem) Name() string        { return "scenario" }
func (s *ScenarioSystem) Phase() system.Phase { return system.PhaseInput }

func (s *ScenarioSystem) Initialize(cfg *config.Config) error {
	if s.path == "" {
		s.path = cfg.Scripting.Scenario
	}
	if s.path == "" {
		return nil
	}
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("render", s.api(vm))
	s.vm = vm

	if err := vm.DoFile(s.path); err != nil {
		vm.Close()
		s.vm = nil
		return fmt.Errorf("load scenario %s: %w", s.path, err)
	}
	s.log.Info("scenario loaded", zap.String("file", s.path))
	return nil
}

// PostMessages keeps the render replies for the next Update.
func (s *ScenarioSystem) PostMessages(st *message.Stream) {
	if s.vm == nil {
		return
	}
	for _, m := range st.Messages() {
		switch m.Kind {
		case render.MsgResourceLoadResult, render.MsgDiagnostic, render.MsgFrameStats:
			s.inbox = append(s.inbox, m)
		}
	}
}

// Update delivers queued replies to their callbacks, then calls on_frame.
func (s *ScenarioSystem) Update(dt time.Duration) {
	if s.vm == nil {
		return
	}
	inbox := s.inbox
	s.inbox = nil
	for _, m := range inbox {
		s.deliver(m)
	}
	s.call("on_frame", lua.LNumber(s.frame), lua.LNumber(dt.Seconds()))
	s.frame++
}

func (s *ScenarioSystem) CollectMessages() *message.Stream {
	out := s.out
	s.out = message.NewStream()
	return out
}

func (s *ScenarioSystem) Shutdown() {
	if s.vm == nil {
		return
	}
	s.call("on_shutdown")
	s.vm.Close()
	s.vm = nil
	s.inbox = nil
}

func (s *ScenarioSystem) deliver(m message.Message) {
	vm := s.vm
	switch m.Kind {
	case render.MsgResourceLoadResult:
		res, err := render.DecodeResourceLoadResult(m.Payload)
		if err != nil {
			s.log.Warn("bad load result", zap.Error(err))
			return
		}
		t := vm.NewTable()
		t.RawSetString("request_id", lua.LString(res.RequestID.String()))
		t.RawSetString("name", lua.LString(res.Name))
		t.RawSetString("kind", lua.LString(res.Kind.String()))
		t.RawSetString("handle", lua.LNumber(res.Handle))
		t.RawSetString("ok", lua.LBool(res.OK))
		t.RawSetString("reason", lua.LString(res.Reason))
		s.call("on_result", t)
	case render.MsgDiagnostic:
		d, err := render.DecodeDiagnostic(m.Payload)
		if err != nil {
			s.log.Warn("bad diagnostic", zap.Error(err))
			return
		}
		t := vm.NewTable()
		t.RawSetString("source", lua.LString(render.KindName(d.Source)))
		t.RawSetString("reason", lua.LString(d.Reason))
		s.call("on_diagnostic", t)
	case render.MsgFrameStats:
		st, err := render.DecodeFrameStats(m.Payload)
		if err != nil {
			s.log.Warn("bad frame stats", zap.Error(err))
			return
		}
		t := vm.NewTable()
		t.RawSetString("frame", lua.LNumber(st.Frame))
		t.RawSetString("dt", lua.LNumber(st.DeltaSeconds))
		t.RawSetString("elapsed", lua.LNumber(st.ElapsedSeconds))
		t.RawSetString("draw_calls", lua.LNumber(st.DrawCalls))
		t.RawSetString("skipped_draws", lua.LNumber(st.SkippedDraws))
		t.RawSetString("live_resources", lua.LNumber(st.LiveResources))
		s.call("on_stats", t)
	}
}

// call invokes a global Lua function if the script defines it. Errors are
// logged and do not stop the frame.
func (s *ScenarioSystem) call(name string, args ...lua.LValue) {
	fn := s.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}
	if err := s.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		s.log.Error("lua callback error", zap.String("fn", name), zap.Error(err))
	}
}

func (s *ScenarioSystem) emit(m message.Message) {
	s.out.Append(m)
}

// --- Lua API ---

func (s *ScenarioSystem) api(vm *lua.LState) *lua.LTable {
	return vm.SetFuncs(vm.NewTable(), map[string]lua.LGFunction{
		"load_shader":      s.luaLoadShader,
		"link_program":     s.luaLinkProgram,
		"load_texture":     s.luaLoadTexture,
		"create_material":  s.luaCreateMaterial,
		"load_mesh":        s.luaLoadMesh,
		"load_terrain":     s.luaLoadTerrain,
		"set_component":    s.luaSetComponent,
		"remove_component": s.luaRemoveComponent,
		"destroy":          s.luaDestroy,
		"log":              s.luaLog,
	})
}

// load_shader{name=, stage=, source=} -> request id
func (s *ScenarioSystem) luaLoadShader(L *lua.LState) int {
	t := L.CheckTable(1)
	p := data.ShaderPreset{
		Name:   fieldString(t, "name"),
		Stage:  fieldString(t, "stage"),
		Source: fieldString(t, "source"),
	}
	if err := p.Validate(); err != nil {
		L.ArgError(1, err.Error())
	}
	req := p.Request()
	s.emit(req.Encode())
	L.Push(lua.LString(req.RequestID.String()))
	return 1
}

// link_program{name=, vertex=, fragment=} -> request id
func (s *ScenarioSystem) luaLinkProgram(L *lua.LState) int {
	t := L.CheckTable(1)
	req := data.ProgramPreset{
		Name:     fieldString(t, "name"),
		Vertex:   fieldString(t, "vertex"),
		Fragment: fieldString(t, "fragment"),
	}.Request()
	s.emit(req.Encode())
	L.Push(lua.LString(req.RequestID.String()))
	return 1
}

// load_texture{name=, format=, srgb=, cubemap=, width=, height=, fill={...}} -> request id
func (s *ScenarioSystem) luaLoadTexture(L *lua.LState) int {
	t := L.CheckTable(1)
	p := data.TexturePreset{
		Name:    fieldString(t, "name"),
		Format:  fieldString(t, "format"),
		SRGB:    lua.LVAsBool(t.RawGetString("srgb")),
		Cubemap: lua.LVAsBool(t.RawGetString("cubemap")),
		Width:   int(lua.LVAsNumber(t.RawGetString("width"))),
		Height:  int(lua.LVAsNumber(t.RawGetString("height"))),
	}
	for _, f := range fieldFloats(t, "fill") {
		p.Fill = append(p.Fill, uint8(f))
	}
	if err := p.Validate(); err != nil {
		L.ArgError(1, err.Error())
	}
	req := p.Request()
	if err := req.Validate(); err != nil {
		L.ArgError(1, err.Error())
	}
	s.emit(req.Encode())
	L.Push(lua.LString(req.RequestID.String()))
	return 1
}

// create_material{name=, program=, textures={...}, params={k=v}} -> request id
func (s *ScenarioSystem) luaCreateMaterial(L *lua.LState) int {
	t := L.CheckTable(1)
	p := data.MaterialPreset{
		Name:     fieldString(t, "name"),
		Program:  fieldString(t, "program"),
		Textures: fieldStrings(t, "textures"),
	}
	if params, ok := t.RawGetString("params").(*lua.LTable); ok {
		p.Params = make(map[string]float32)
		params.ForEach(func(k, v lua.LValue) {
			p.Params[k.String()] = float32(lua.LVAsNumber(v))
		})
	}
	if err := p.Validate(); err != nil {
		L.ArgError(1, err.Error())
	}
	req := p.Request()
	s.emit(req.Encode())
	L.Push(lua.LString(req.RequestID.String()))
	return 1
}

// load_mesh{name=, primitive=, positions={...}, texcoords={...}, indices={...}, material=} -> request id
func (s *ScenarioSystem) luaLoadMesh(L *lua.LState) int {
	t := L.CheckTable(1)
	p := data.MeshPreset{
		Name:      fieldString(t, "name"),
		Primitive: fieldString(t, "primitive"),
		Positions: fieldFloats(t, "positions"),
		TexCoords: fieldFloats(t, "texcoords"),
		Material:  fieldString(t, "material"),
	}
	for _, f := range fieldFloats(t, "indices") {
		p.Indices = append(p.Indices, uint32(f))
	}
	if err := p.Validate(); err != nil {
		L.ArgError(1, err.Error())
	}
	req := p.Request()
	if err := req.Validate(); err != nil {
		L.ArgError(1, err.Error())
	}
	s.emit(req.Encode())
	L.Push(lua.LString(req.RequestID.String()))
	return 1
}

// load_terrain{name=, width=, depth=, cell_size=, height=, heights={...}, material=} -> request id
func (s *ScenarioSystem) luaLoadTerrain(L *lua.LState) int {
	t := L.CheckTable(1)
	p := data.TerrainPreset{
		Name:     fieldString(t, "name"),
		Width:    int(lua.LVAsNumber(t.RawGetString("width"))),
		Depth:    int(lua.LVAsNumber(t.RawGetString("depth"))),
		CellSize: float32(lua.LVAsNumber(t.RawGetString("cell_size"))),
		Height:   float32(lua.LVAsNumber(t.RawGetString("height"))),
		Heights:  fieldFloats(t, "heights"),
		Material: fieldString(t, "material"),
	}
	if err := p.Validate(); err != nil {
		L.ArgError(1, err.Error())
	}
	req := p.Request()
	if err := req.Validate(); err != nil {
		L.ArgError(1, err.Error())
	}
	s.emit(req.Encode())
	L.Push(lua.LString(req.RequestID.String()))
	return 1
}

// set_component(entity, kind, handle [, material [, transform]])
func (s *ScenarioSystem) luaSetComponent(L *lua.LState) int {
	kind := checkKind(L, 2)
	msg := render.SetRenderComponent{
		Entity:   uint64(L.CheckNumber(1)),
		Kind:     kind,
		Drawable: handle.Handle(L.CheckNumber(3)),
		Material: handle.Handle(L.OptNumber(4, 0)),
	}
	if tr, ok := L.Get(5).(*lua.LTable); ok {
		for i, f := range tableFloats(tr) {
			if i == len(msg.Transform) {
				break
			}
			msg.Transform[i] = f
		}
	}
	s.emit(msg.Encode())
	return 0
}

// remove_component(entity)
func (s *ScenarioSystem) luaRemoveComponent(L *lua.LState) int {
	s.emit(render.RemoveRenderComponent{Entity: uint64(L.CheckNumber(1))}.Encode())
	return 0
}

// destroy(kind, handle)
func (s *ScenarioSystem) luaDestroy(L *lua.LState) int {
	kind := checkKind(L, 1)
	s.emit(render.DestroyResource{Kind: kind, Handle: handle.Handle(L.CheckNumber(2))}.Encode())
	return 0
}

// log(msg)
func (s *ScenarioSystem) luaLog(L *lua.LState) int {
	s.log.Info("lua", zap.String("msg", L.CheckString(1)), zap.Uint64("frame", s.frame))
	return 0
}

func checkKind(L *lua.LState, n int) render.ResourceKind {
	name := L.CheckString(n)
	kind, ok := render.ParseResourceKind(name)
	if !ok {
		L.ArgError(n, fmt.Sprintf("unknown resource kind %q", name))
	}
	return kind
}

func fieldString(t *lua.LTable, key string) string {
	if v, ok := t.RawGetString(key).(lua.LString); ok {
		return string(v)
	}
	return ""
}

func fieldStrings(t *lua.LTable, key string) []string {
	arr, ok := t.RawGetString(key).(*lua.LTable)
	if !ok {
		return nil
	}
	out := make([]string, 0, arr.Len())
	for i := 1; i <= arr.Len(); i++ {
		out = append(out, lua.LVAsString(arr.RawGetInt(i)))
	}
	return out
}

func fieldFloats(t *lua.LTable, key string) []float32 {
	arr, ok := t.RawGetString(key).(*lua.LTable)
	if !ok {
		return nil
	}
	return tableFloats(arr)
}

func tableFloats(arr *lua.LTable) []float32 {
	out := make([]float32, 0, arr.Len())
	for i := 1; i <= arr.Len(); i++ {
		out = append(out, float32(lua.LVAsNumber(arr.RawGetInt(i))))
	}
	return out
}
