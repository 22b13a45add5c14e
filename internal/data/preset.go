package data

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/dsengine/render/internal/core/message"
	"github.com/dsengine/render/internal/render"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ShaderPreset is one shader stage. Source wins over SourceFile.
type ShaderPreset struct {
	Name       string `yaml:"name"`
	Stage      string `yaml:"stage"` // vertex | fragment
	Source     string `yaml:"source"`
	SourceFile string `yaml:"source_file"`
}

type ProgramPreset struct {
	Name     string `yaml:"name"`
	Vertex   string `yaml:"vertex"`
	Fragment string `yaml:"fragment"`
}

// TexturePreset describes a solid-colour texture. Fill holds one byte per
// channel and defaults to white.
type TexturePreset struct {
	Name    string  `yaml:"name"`
	Format  string  `yaml:"format"` // r | rg | rgb | rgba
	SRGB    bool    `yaml:"srgb"`
	Cubemap bool    `yaml:"cubemap"`
	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	Fill    []uint8 `yaml:"fill"`
}

type MaterialPreset struct {
	Name     string             `yaml:"name"`
	Program  string             `yaml:"program"`
	Textures []string           `yaml:"textures"`
	Params   map[string]float32 `yaml:"params"`
}

// MeshPreset is indexed geometry with xyz positions and optional uv
// coordinates, interleaved on load.
type MeshPreset struct {
	Name      string    `yaml:"name"`
	Primitive string    `yaml:"primitive"`
	Positions []float32 `yaml:"positions"`
	TexCoords []float32 `yaml:"texcoords"`
	Indices   []uint32  `yaml:"indices"`
	Material  string    `yaml:"material"`
}

// TerrainPreset is a height grid. A missing Heights list means a flat grid
// at Height.
type TerrainPreset struct {
	Name     string    `yaml:"name"`
	Width    int       `yaml:"width"`
	Depth    int       `yaml:"depth"`
	CellSize float32   `yaml:"cell_size"`
	Height   float32   `yaml:"height"`
	Heights  []float32 `yaml:"heights"`
	Material string    `yaml:"material"`
}

// PresetTable holds the resources to request when a scene starts.
type PresetTable struct {
	Shaders   []ShaderPreset   `yaml:"shaders"`
	Programs  []ProgramPreset  `yaml:"programs"`
	Textures  []TexturePreset  `yaml:"textures"`
	Materials []MaterialPreset `yaml:"materials"`
	Meshes    []MeshPreset     `yaml:"meshes"`
	Terrains  []TerrainPreset  `yaml:"terrains"`
}

// Count returns the number of presets in the table.
func (t *PresetTable) Count() int {
	return len(t.Shaders) + len(t.Programs) + len(t.Textures) +
		len(t.Materials) + len(t.Meshes) + len(t.Terrains)
}

// --- YAML loading ---

// LoadPresetTable loads resource presets from YAML. Relative shader source
// files resolve against the working directory.
func LoadPresetTable(path string) (*PresetTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preset: read %s: %w", path, err)
	}
	t, err := ParsePresetTable(raw)
	if err != nil {
		return nil, fmt.Errorf("preset: parse %s: %w", path, err)
	}
	for i := range t.Shaders {
		s := &t.Shaders[i]
		if s.Source != "" || s.SourceFile == "" {
			continue
		}
		src, err := os.ReadFile(s.SourceFile)
		if err != nil {
			return nil, fmt.Errorf("preset: shader %q: %w", s.Name, err)
		}
		s.Source = string(src)
	}
	return t, nil
}

// ParsePresetTable decodes and checks a YAML preset document.
func ParsePresetTable(raw []byte) (*PresetTable, error) {
	var t PresetTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *PresetTable) validate() error {
	seen := make(map[string]bool)
	check := func(kind, name string, err error) error {
		if name == "" {
			return fmt.Errorf("%s without a name", kind)
		}
		if err != nil {
			return fmt.Errorf("%s %q: %w", kind, name, err)
		}
		key := kind + "/" + name
		if seen[key] {
			return fmt.Errorf("duplicate %s %q", kind, name)
		}
		seen[key] = true
		return nil
	}
	for _, s := range t.Shaders {
		if err := check("shader", s.Name, s.Validate()); err != nil {
			return err
		}
	}
	for _, p := range t.Programs {
		if err := check("program", p.Name, nil); err != nil {
			return err
		}
	}
	for _, tx := range t.Textures {
		if err := check("texture", tx.Name, tx.Validate()); err != nil {
			return err
		}
	}
	for _, m := range t.Materials {
		if err := check("material", m.Name, m.Validate()); err != nil {
			return err
		}
	}
	for _, m := range t.Meshes {
		if err := check("mesh", m.Name, m.Validate()); err != nil {
			return err
		}
	}
	for _, tr := range t.Terrains {
		if err := check("terrain", tr.Name, tr.Validate()); err != nil {
			return err
		}
	}
	return nil
}

func (p ShaderPreset) Validate() error {
	_, err := parseStage(p.Stage)
	return err
}

func (p TexturePreset) Validate() error {
	if _, err := parseFormat(p.Format); err != nil {
		return err
	}
	if p.Width < 0 || p.Height < 0 || p.Width > render.MaxTextureDimension || p.Height > render.MaxTextureDimension {
		return fmt.Errorf("dimensions %dx%d (limit %d)", p.Width, p.Height, render.MaxTextureDimension)
	}
	return nil
}

func (p MaterialPreset) Validate() error {
	if p.Program == "" {
		return fmt.Errorf("no program")
	}
	return p.Request().Validate()
}

func (p TerrainPreset) Validate() error {
	if p.Width < 0 || p.Depth < 0 || p.Width > render.MaxTerrainDimension || p.Depth > render.MaxTerrainDimension {
		return fmt.Errorf("grid %dx%d (limit %d)", p.Width, p.Depth, render.MaxTerrainDimension)
	}
	if len(p.Heights) != 0 && len(p.Heights) != p.Width*p.Depth {
		return fmt.Errorf("%d heights for a %dx%d grid", len(p.Heights), p.Width, p.Depth)
	}
	return nil
}

func (p MeshPreset) Validate() error {
	if _, err := parsePrimitive(p.Primitive); err != nil {
		return err
	}
	if len(p.Positions)%3 != 0 {
		return fmt.Errorf("%d position floats is not a multiple of 3", len(p.Positions))
	}
	if len(p.TexCoords) != 0 && len(p.TexCoords)/2 != len(p.Positions)/3 {
		return fmt.Errorf("%d texcoords for %d vertices", len(p.TexCoords)/2, len(p.Positions)/3)
	}
	if uint64(len(p.Indices)) > math.MaxUint32 {
		return fmt.Errorf("%d indices", len(p.Indices))
	}
	return nil
}

// --- message generation ---

// Messages appends one load request per preset to st, dependencies first,
// and returns the request IDs in the order they were appended.
func (t *PresetTable) Messages(st *message.Stream) []uuid.UUID {
	ids := make([]uuid.UUID, 0, t.Count())
	add := func(m message.Message, id uuid.UUID) {
		st.Append(m)
		ids = append(ids, id)
	}

	for _, s := range t.Shaders {
		req := s.Request()
		add(req.Encode(), req.RequestID)
	}
	for _, p := range t.Programs {
		req := p.Request()
		add(req.Encode(), req.RequestID)
	}
	for _, tx := range t.Textures {
		req := tx.Request()
		add(req.Encode(), req.RequestID)
	}
	for _, m := range t.Materials {
		req := m.Request()
		add(req.Encode(), req.RequestID)
	}
	for _, m := range t.Meshes {
		req := m.Request()
		add(req.Encode(), req.RequestID)
	}
	for _, tr := range t.Terrains {
		req := tr.Request()
		add(req.Encode(), req.RequestID)
	}
	return ids
}

func (p ShaderPreset) Request() render.LoadShader {
	stage, _ := parseStage(p.Stage)
	return render.LoadShader{RequestID: uuid.New(), Name: p.Name, Type: stage, Source: p.Source}
}

func (p ProgramPreset) Request() render.LinkProgram {
	return render.LinkProgram{RequestID: uuid.New(), Name: p.Name, Vertex: p.Vertex, Fragment: p.Fragment}
}

func (p MaterialPreset) Request() render.CreateMaterial {
	return render.CreateMaterial{RequestID: uuid.New(), Name: p.Name, Program: p.Program, Textures: p.Textures, Params: p.Params}
}

func (p TexturePreset) Request() render.LoadTexture {
	format, _ := parseFormat(p.Format)
	internal := render.InternalRGBA8
	if format == render.FormatRGB {
		internal = render.InternalRGB8
	}
	if p.SRGB {
		internal++ // the sRGB variant follows its linear format
	}
	typ := render.TextureTwoDimensional
	faces := 1
	if p.Cubemap {
		typ, faces = render.TextureCubemap, 6
	}

	channels := format.Channels()
	fill := make([]byte, channels)
	for i := range fill {
		fill[i] = 0xff
		if i < len(p.Fill) {
			fill[i] = p.Fill[i]
		}
	}
	var data []byte
	if p.Width > 0 && p.Height > 0 {
		data = make([]byte, 0, p.Width*p.Height*channels*faces)
		for i := 0; i < p.Width*p.Height*faces; i++ {
			data = append(data, fill...)
		}
	}
	return render.LoadTexture{
		RequestID:      uuid.New(),
		Name:           p.Name,
		Type:           typ,
		Format:         format,
		InternalFormat: internal,
		Width:          p.Width,
		Height:         p.Height,
		Data:           data,
	}
}

func (p MeshPreset) Request() render.LoadMesh {
	prim, _ := parsePrimitive(p.Primitive)
	layout := []render.VertexAttribute{{Type: render.AttributePosition, Components: 3}}
	if len(p.TexCoords) > 0 {
		layout = append(layout, render.VertexAttribute{Type: render.AttributeTextureCoordinate, Components: 2})
	}
	n := len(p.Positions) / 3
	vertices := make([]byte, 0, n*4*(3+2))
	put := func(f float32) {
		vertices = binary.LittleEndian.AppendUint32(vertices, math.Float32bits(f))
	}
	for i := 0; i < n; i++ {
		put(p.Positions[i*3])
		put(p.Positions[i*3+1])
		put(p.Positions[i*3+2])
		if len(p.TexCoords) > 0 {
			put(p.TexCoords[i*2])
			put(p.TexCoords[i*2+1])
		}
	}
	indices := make([]byte, 0, len(p.Indices)*4)
	for _, i := range p.Indices {
		indices = binary.LittleEndian.AppendUint32(indices, i)
	}
	return render.LoadMesh{
		RequestID:   uuid.New(),
		Name:        p.Name,
		Primitive:   prim,
		DataType:    render.DataFloat,
		Layout:      layout,
		VertexCount: n,
		Vertices:    vertices,
		IndexType:   render.DataInt,
		IndexCount:  len(p.Indices),
		Indices:     indices,
		Material:    p.Material,
	}
}

func (p TerrainPreset) Request() render.LoadTerrain {
	heights := p.Heights
	if len(heights) == 0 && p.Width > 0 && p.Depth > 0 {
		heights = make([]float32, p.Width*p.Depth)
		for i := range heights {
			heights[i] = p.Height
		}
	}
	cell := p.CellSize
	if cell == 0 {
		cell = 1
	}
	return render.LoadTerrain{
		RequestID: uuid.New(),
		Name:      p.Name,
		Width:     p.Width,
		Depth:     p.Depth,
		CellSize:  cell,
		Heights:   heights,
		Material:  p.Material,
	}
}

func parseStage(s string) (render.ShaderType, error) {
	switch strings.ToLower(s) {
	case "vertex", "vs":
		return render.VertexShader, nil
	case "fragment", "fs", "pixel":
		return render.FragmentShader, nil
	default:
		return 0, fmt.Errorf("unknown shader stage %q", s)
	}
}

func parseFormat(s string) (render.ImageFormat, error) {
	switch strings.ToLower(s) {
	case "r":
		return render.FormatR, nil
	case "rg":
		return render.FormatRG, nil
	case "rgb":
		return render.FormatRGB, nil
	case "", "rgba":
		return render.FormatRGBA, nil
	default:
		return 0, fmt.Errorf("unknown image format %q", s)
	}
}

func parsePrimitive(s string) (render.PrimitiveType, error) {
	switch strings.ToLower(s) {
	case "", "triangles":
		return render.PrimitiveTriangles, nil
	case "triangle_strip", "strip":
		return render.PrimitiveTriangleStrip, nil
	case "lines":
		return render.PrimitiveLines, nil
	case "points":
		return render.PrimitivePoints, nil
	default:
		return 0, fmt.Errorf("unknown primitive %q", s)
	}
}
