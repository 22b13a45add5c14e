package gfx

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"golang.org/x/crypto/blake2b"
)

type objectKind int

const (
	objBuffer objectKind = iota
	objShader
	objProgram
	objTexture
)

// ObjectInfo is the WebGPU-shaped descriptor the headless backend keeps for
// every object it has created.
type ObjectInfo struct {
	Label         string
	Kind          string
	Size          int
	BufferUsage   gputypes.BufferUsage
	TextureFormat gputypes.TextureFormat
	TextureUsage  gputypes.TextureUsage
	Dimension     gputypes.TextureDimension
	Width         int
	Height        int
	Layers        int
}

type object struct {
	kind   objectKind
	info   ObjectInfo
	module *shaderModule
}

type shaderModule struct {
	fingerprint [32]byte
	refs        int
}

// HeadlessStats are cumulative counters since Open.
type HeadlessStats struct {
	Objects   int
	Compiles  int
	Frames    int
	DrawCalls int
}

// Headless is a Backend that performs no GPU work. It validates specs, keeps
// descriptors per object, enforces an object limit and counts submissions, so
// the render system runs in tests and tools without a graphics context.
type Headless struct {
	opts    Options
	open    bool
	closed  bool
	next    Object
	objects map[Object]*object
	modules map[[32]byte]*shaderModule
	stats   HeadlessStats
}

func NewHeadless() *Headless {
	return &Headless{
		objects: make(map[Object]*object, 64),
		modules: make(map[[32]byte]*shaderModule, 16),
	}
}

func (b *Headless) Open(opts Options) error {
	if b.closed {
		return ErrClosed
	}
	if b.open {
		return fmt.Errorf("headless: already open")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("headless: invalid surface %dx%d", opts.Width, opts.Height)
	}
	b.opts = opts
	b.open = true
	return nil
}

func (b *Headless) usable() error {
	if b.closed {
		return ErrClosed
	}
	if !b.open {
		return ErrNotOpen
	}
	return nil
}

func (b *Headless) add(o *object) (Object, error) {
	if b.opts.MaxObjects > 0 && len(b.objects) >= b.opts.MaxObjects {
		return 0, fmt.Errorf("%w (%d)", ErrLimit, b.opts.MaxObjects)
	}
	b.next++
	b.objects[b.next] = o
	return b.next, nil
}

func (b *Headless) CreateBuffer(spec BufferSpec) (Object, error) {
	if err := b.usable(); err != nil {
		return 0, err
	}
	if spec.Size <= 0 || len(spec.Data) > spec.Size {
		return 0, fmt.Errorf("%w: buffer %q size %d data %d", ErrInvalidSpec, spec.Label, spec.Size, len(spec.Data))
	}
	usage := gputypes.BufferUsageCopyDst
	switch spec.Kind {
	case BufferVertex:
		usage |= gputypes.BufferUsageVertex
	case BufferIndex:
		usage |= gputypes.BufferUsageIndex
	case BufferConstant:
		usage |= gputypes.BufferUsageUniform
	default:
		return 0, fmt.Errorf("%w: buffer kind %d", ErrInvalidSpec, spec.Kind)
	}
	return b.add(&object{kind: objBuffer, info: ObjectInfo{
		Label:       spec.Label,
		Kind:        spec.Kind.String() + " buffer",
		Size:        spec.Size,
		BufferUsage: usage,
	}})
}

// CreateShader compiles a module once per distinct source; later shaders with
// the same stage and source share it.
func (b *Headless) CreateShader(spec ShaderSpec) (Object, error) {
	if err := b.usable(); err != nil {
		return 0, err
	}
	if spec.Source == "" {
		return 0, fmt.Errorf("%w: shader %q has no source", ErrInvalidSpec, spec.Label)
	}
	fp := blake2b.Sum256(append([]byte{byte(spec.Stage)}, spec.Source...))
	mod, ok := b.modules[fp]
	if !ok {
		mod = &shaderModule{fingerprint: fp}
	}
	obj, err := b.add(&object{kind: objShader, module: mod, info: ObjectInfo{
		Label: spec.Label,
		Kind:  "shader",
		Size:  len(spec.Source),
	}})
	if err != nil {
		return 0, err
	}
	if !ok {
		b.modules[fp] = mod
		b.stats.Compiles++
	}
	mod.refs++
	return obj, nil
}

func (b *Headless) LinkProgram(vertex, fragment Object) (Object, error) {
	if err := b.usable(); err != nil {
		return 0, err
	}
	for _, id := range []Object{vertex, fragment} {
		o, ok := b.objects[id]
		if !ok || o.kind != objShader {
			return 0, fmt.Errorf("%w: shader %d", ErrUnknownObject, id)
		}
	}
	return b.add(&object{kind: objProgram, info: ObjectInfo{Kind: "program"}})
}

func (b *Headless) CreateTexture(spec TextureSpec) (Object, error) {
	if err := b.usable(); err != nil {
		return 0, err
	}
	if spec.Width <= 0 || spec.Height <= 0 {
		return 0, fmt.Errorf("%w: texture %q is %dx%d", ErrInvalidSpec, spec.Label, spec.Width, spec.Height)
	}
	if spec.Channels < 1 || spec.Channels > 4 {
		return 0, fmt.Errorf("%w: texture %q has %d channels", ErrInvalidSpec, spec.Label, spec.Channels)
	}
	layers := 1
	if spec.Cubemap {
		layers = 6
	}
	format := textureFormat(spec.Channels)
	return b.add(&object{kind: objTexture, info: ObjectInfo{
		Label:         spec.Label,
		Kind:          "texture",
		Size:          spec.Width * spec.Height * texelSize(format) * layers,
		TextureFormat: format,
		TextureUsage:  gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		Dimension:     gputypes.TextureDimension2D,
		Width:         spec.Width,
		Height:        spec.Height,
		Layers:        layers,
	}})
}

// textureFormat picks the storage format. Two and three channel images are
// widened to RGBA on upload.
func textureFormat(channels int) gputypes.TextureFormat {
	if channels == 1 {
		return gputypes.TextureFormatR8Unorm
	}
	return gputypes.TextureFormatRGBA8Unorm
}

// texelSize is the byte width of one texel in a format picked by textureFormat.
func texelSize(f gputypes.TextureFormat) int {
	if f == gputypes.TextureFormatR8Unorm {
		return 1
	}
	return 4
}

func (b *Headless) Release(obj Object) error {
	if b.closed {
		return ErrClosed
	}
	o, ok := b.objects[obj]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownObject, obj)
	}
	if o.module != nil {
		o.module.refs--
		if o.module.refs == 0 {
			delete(b.modules, o.module.fingerprint)
		}
	}
	delete(b.objects, obj)
	return nil
}

func (b *Headless) Submit(draws []DrawCall) (SubmitStats, error) {
	if err := b.usable(); err != nil {
		return SubmitStats{}, err
	}
	var st SubmitStats
	for i := range draws {
		d := &draws[i]
		if o, ok := b.objects[d.Program]; !ok || o.kind != objProgram {
			return st, fmt.Errorf("%w: draw %d program %d", ErrUnknownObject, i, d.Program)
		}
		if _, ok := b.objects[d.VertexBuffer]; !ok {
			return st, fmt.Errorf("%w: draw %d vertex buffer %d", ErrUnknownObject, i, d.VertexBuffer)
		}
		st.DrawCalls++
		st.Elements += d.Count
	}
	b.stats.Frames++
	b.stats.DrawCalls += st.DrawCalls
	return st, nil
}

func (b *Headless) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.open = false
	clear(b.objects)
	clear(b.modules)
	return nil
}

// Describe returns the descriptor kept for obj.
func (b *Headless) Describe(obj Object) (ObjectInfo, bool) {
	o, ok := b.objects[obj]
	if !ok {
		return ObjectInfo{}, false
	}
	return o.info, true
}

func (b *Headless) Stats() HeadlessStats {
	st := b.stats
	st.Objects = len(b.objects)
	return st
}
