package scene

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"sync/atomic"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
)

// Slot is one texture input of a material. Map is the consumer handed to the
// texture load system.
type Slot struct {
	Name    string
	Texture int
	Map     *metadata.TextureMap
}

type Material struct {
	Name string
	// sorted by slot name
	Slots []*Slot
}

// Scene is a parsed scene description. It satisfies systems.SceneSource.
type Scene struct {
	Name string
	Path string

	id        core.SceneID
	textures  []*metadata.TextureDescriptor
	images    []*metadata.ImageRecord
	materials []*Material
	cancelled atomic.Bool
}

// Load reads and parses a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// Parse builds a scene from TOML. Unknown keys are rejected.
func Parse(data []byte) (*Scene, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	return Build(&f)
}

// Build resolves the name references of f and assigns a fresh scene id.
func Build(f *File) (*Scene, error) {
	s := &Scene{
		Name: f.Name,
		id:   core.NewSceneID(),
	}

	imageIndex := make(map[string]int, len(f.Images))
	for i, img := range f.Images {
		if img.Name == "" || img.Path == "" {
			return nil, fmt.Errorf("image %d: name and path are required", i)
		}
		if _, dup := imageIndex[img.Name]; dup {
			return nil, fmt.Errorf("duplicate image %q", img.Name)
		}
		imageIndex[img.Name] = i
		s.images = append(s.images, &metadata.ImageRecord{Index: i, Name: img.Name, Path: img.Path})
	}

	textureIndex := make(map[string]int, len(f.Textures))
	for i, tf := range f.Textures {
		if tf.Name == "" {
			return nil, fmt.Errorf("texture %d: name is required", i)
		}
		if _, dup := textureIndex[tf.Name]; dup {
			return nil, fmt.Errorf("duplicate texture %q", tf.Name)
		}
		desc, err := buildTexture(i, tf, imageIndex)
		if err != nil {
			return nil, err
		}
		textureIndex[tf.Name] = i
		s.textures = append(s.textures, desc)
	}

	for _, mf := range f.Materials {
		m := &Material{Name: mf.Name}
		for slot, texture := range mf.Textures {
			index, ok := textureIndex[texture]
			if !ok {
				return nil, fmt.Errorf("material %q slot %s: %w: %s", mf.Name, slot, core.ErrTextureNotFound, texture)
			}
			m.Slots = append(m.Slots, &Slot{
				Name:    slot,
				Texture: index,
				Map:     metadata.NewTextureMap(metadata.ParseTextureUse(slot)),
			})
		}
		sort.Slice(m.Slots, func(i, j int) bool { return m.Slots[i].Name < m.Slots[j].Name })
		s.materials = append(s.materials, m)
	}
	return s, nil
}

func buildTexture(i int, tf TextureFile, imageIndex map[string]int) (*metadata.TextureDescriptor, error) {
	desc := &metadata.TextureDescriptor{
		Index:      i,
		Name:       tf.Name,
		Image:      -1,
		Compressed: tf.Compressed,
		Sampler:    metadata.DefaultSampler(),
	}
	if tf.Image != "" {
		img, ok := imageIndex[tf.Image]
		if !ok {
			return nil, fmt.Errorf("texture %q: %w: %s", tf.Name, core.ErrImageNotFound, tf.Image)
		}
		desc.Image = img
	}
	if !desc.HasImage() && !desc.HasCompressed() {
		return nil, fmt.Errorf("texture %q has neither an image nor a compressed chain", tf.Name)
	}

	var err error
	if desc.Sampler.FilterMinify, err = metadata.ParseTextureFilter(tf.MinFilter); err != nil {
		return nil, fmt.Errorf("texture %q: %w", tf.Name, err)
	}
	if desc.Sampler.FilterMagnify, err = metadata.ParseTextureFilter(tf.MagFilter); err != nil {
		return nil, fmt.Errorf("texture %q: %w", tf.Name, err)
	}
	if desc.Sampler.RepeatU, err = metadata.ParseTextureRepeat(tf.RepeatU); err != nil {
		return nil, fmt.Errorf("texture %q: %w", tf.Name, err)
	}
	if desc.Sampler.RepeatV, err = metadata.ParseTextureRepeat(tf.RepeatV); err != nil {
		return nil, fmt.Errorf("texture %q: %w", tf.Name, err)
	}
	return desc, nil
}

func (s *Scene) ID() core.SceneID { return s.id }

func (s *Scene) Texture(index int) (*metadata.TextureDescriptor, bool) {
	if index < 0 || index >= len(s.textures) {
		return nil, false
	}
	return s.textures[index], true
}

func (s *Scene) Image(index int) (*metadata.ImageRecord, bool) {
	if index < 0 || index >= len(s.images) {
		return nil, false
	}
	return s.images[index], true
}

func (s *Scene) TextureCount() int { return len(s.textures) }

func (s *Scene) ImageCount() int { return len(s.images) }

func (s *Scene) Materials() []*Material { return s.materials }

// Cancel asks running texture loads of the scene to stop at their next
// stage boundary. It cannot be undone.
func (s *Scene) Cancel() { s.cancelled.Store(true) }

func (s *Scene) IsCancelled() bool { return s.cancelled.Load() }
