package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sponza = `
name = "sponza"

[[images]]
name = "brick"
path = "images/brick.png"

[[images]]
name = "brick_normal"
path = "images/brick_n.png"

[[textures]]
name = "brick"
image = "brick"
compressed = "brick.tmip"
min_filter = "nearest"
repeat_u = "clamp_to_edge"

[[textures]]
name = "brick_normal"
image = "brick_normal"

[[materials]]
name = "wall"
textures = { diffuse = "brick", normal = "brick_normal" }

[[materials]]
name = "floor"
textures = { diffuse = "brick" }
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sponza))
	require.NoError(t, err)

	assert.Equal(t, "sponza", s.Name)
	assert.False(t, s.ID().IsNil())
	assert.Equal(t, 2, s.TextureCount())
	assert.Equal(t, 2, s.ImageCount())

	brick, ok := s.Texture(0)
	require.True(t, ok)
	assert.Equal(t, "brick.tmip", brick.Compressed)
	assert.Equal(t, 0, brick.Image)
	assert.Equal(t, metadata.TextureFilterModeNearest, brick.Sampler.FilterMinify)
	assert.Equal(t, metadata.TextureFilterModeLinear, brick.Sampler.FilterMagnify)
	assert.Equal(t, metadata.TextureRepeatClampToEdge, brick.Sampler.RepeatU)
	assert.Equal(t, metadata.TextureRepeatRepeat, brick.Sampler.RepeatV)

	normal, ok := s.Texture(1)
	require.True(t, ok)
	assert.False(t, normal.HasCompressed())
	img, ok := s.Image(normal.Image)
	require.True(t, ok)
	assert.Equal(t, "images/brick_n.png", img.Path)

	_, ok = s.Texture(2)
	assert.False(t, ok)
	_, ok = s.Image(-1)
	assert.False(t, ok)

	materials := s.Materials()
	require.Len(t, materials, 2)
	wall := materials[0]
	require.Len(t, wall.Slots, 2)
	assert.Equal(t, "diffuse", wall.Slots[0].Name)
	assert.Equal(t, metadata.TextureUseMapDiffuse, wall.Slots[0].Map.Use)
	assert.Equal(t, "normal", wall.Slots[1].Name)
	assert.Equal(t, 1, wall.Slots[1].Texture)
	assert.NotSame(t, wall.Slots[0].Map, materials[1].Slots[0].Map, "every slot is its own consumer")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		is   error
	}{
		{"unknown image", "[[textures]]\nname = \"a\"\nimage = \"nope\"", core.ErrImageNotFound},
		{"unknown texture", "[[textures]]\nname = \"a\"\ncompressed = \"a.tmip\"\n[[materials]]\nname = \"m\"\ntextures = { diffuse = \"b\" }", core.ErrTextureNotFound},
		{"no source", "[[textures]]\nname = \"a\"", nil},
		{"duplicate texture", "[[textures]]\nname = \"a\"\ncompressed = \"a.tmip\"\n[[textures]]\nname = \"a\"\ncompressed = \"b.tmip\"", nil},
		{"bad filter", "[[textures]]\nname = \"a\"\ncompressed = \"a.tmip\"\nmin_filter = \"cubic\"", nil},
		{"unknown key", "colour = \"red\"", nil},
		{"not toml", "[[textures", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sponza.toml")
	require.NoError(t, os.WriteFile(path, []byte(sponza), 0o644))

	a, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, a.Path)

	b, err := Load(path)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID(), "each load is a distinct scene")

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestCancel(t *testing.T) {
	s, err := Parse([]byte(sponza))
	require.NoError(t, err)
	assert.False(t, s.IsCancelled())
	s.Cancel()
	assert.True(t, s.IsCancelled())
}
