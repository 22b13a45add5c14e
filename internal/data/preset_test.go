package data

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dsengine/render/internal/config"
	"github.com/dsengine/render/internal/core/message"
	"github.com/dsengine/render/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const scenePresets = `
shaders:
  - name: lit.vs
    stage: vertex
    source: "void main() {}"
  - name: lit.fs
    stage: fragment
    source_file: lit.frag
programs:
  - name: lit
    vertex: lit.vs
    fragment: lit.fs
textures:
  - name: albedo
    format: rgb
    srgb: true
    width: 4
    height: 4
    fill: [200, 100, 50]
materials:
  - name: stone
    program: lit
    textures: [albedo]
    params: {roughness: 0.8}
meshes:
  - name: quad
    positions: [0,0,0, 1,0,0, 0,1,0, 1,1,0]
    texcoords: [0,0, 1,0, 0,1, 1,1]
    indices: [0,1,2, 2,1,3]
    material: stone
terrains:
  - name: ground
    width: 3
    depth: 3
    height: 2
    material: stone
`

func writePresets(t *testing.T, doc string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestLoadPresetTable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lit.frag"), []byte("out vec4 c;"), 0o644))
	t.Chdir(dir)

	table, err := LoadPresetTable(writePresets(t, scenePresets))
	require.NoError(t, err)
	assert.Equal(t, 7, table.Count())
	assert.Equal(t, "out vec4 c;", table.Shaders[1].Source)

	tex := table.Textures[0].Request()
	assert.Equal(t, render.FormatRGB, tex.Format)
	assert.Equal(t, render.InternalSRGB8, tex.InternalFormat)
	require.Len(t, tex.Data, 4*4*3)
	assert.Equal(t, []byte{200, 100, 50}, tex.Data[:3])

	mesh := table.Meshes[0].Request()
	assert.Len(t, mesh.Layout, 2)
	assert.Equal(t, 4, mesh.VertexCount)
	assert.Len(t, mesh.Vertices, 4*5*4)
}

func TestPresetMessagesLoadIntoRenderSystem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lit.frag"), []byte("out vec4 c;"), 0o644))
	t.Chdir(dir)
	table, err := LoadPresetTable(writePresets(t, scenePresets))
	require.NoError(t, err)

	sys := render.NewSystem(nil, zap.NewNop())
	require.NoError(t, sys.Initialize(config.Defaults()))
	defer sys.Shutdown()

	st := message.NewStream()
	ids := table.Messages(st)
	require.Len(t, ids, table.Count())
	sys.PostMessages(st)
	sys.Update(16 * time.Millisecond)

	var got int
	for _, m := range sys.CollectMessages().Messages() {
		if m.Kind != render.MsgResourceLoadResult {
			continue
		}
		res, err := render.DecodeResourceLoadResult(m.Payload)
		require.NoError(t, err)
		assert.True(t, res.OK, "%s: %s", res.Name, res.Reason)
		assert.Equal(t, ids[got], res.RequestID)
		got++
	}
	assert.Equal(t, table.Count(), got)

	_, ok := sys.Resources().LookupTerrain("ground")
	assert.True(t, ok)
	_, ok = sys.Resources().LookupMaterial("stone")
	assert.True(t, ok)
}

func TestParsePresetTableRejects(t *testing.T) {
	cases := map[string]string{
		"duplicate": "textures: [{name: a}, {name: a}]",
		"stage":     "shaders: [{name: s, stage: geometry}]",
		"format":    "textures: [{name: t, format: bgra}]",
		"positions": "meshes: [{name: m, positions: [0, 1]}]",
		"primitive": "meshes: [{name: m, primitive: quads}]",
		"unnamed":   "programs: [{vertex: a}]",
		"not yaml":  "shaders: {",
		"texcoords": "meshes: [{name: m, positions: [0,0,0], texcoords: [0,0,1,1]}]",
		"huge":      "textures: [{name: t, width: 16385, height: 1}]",
		"program":   "materials: [{name: m, textures: [a]}]",
		"heights":   "terrains: [{name: g, width: 2, depth: 2, heights: [1, 2, 3]}]",
		"grid":      "terrains: [{name: g, width: 5000, depth: 2}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePresetTable([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPresetTableMissingFile(t *testing.T) {
	_, err := LoadPresetTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestMaterialPresetManyTextures(t *testing.T) {
	p := MaterialPreset{Name: "atlas", Program: "lit"}
	for i := 0; i < 300; i++ {
		p.Textures = append(p.Textures, fmt.Sprintf("t%d", i))
	}
	require.NoError(t, p.Validate())

	out, err := render.DecodeCreateMaterial(p.Request().Encode().Payload)
	require.NoError(t, err)
	assert.Equal(t, p.Textures, out.Textures)
}
