package metadata

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	/** @brief The default texture name. */
	DEFAULT_TEXTURE_NAME string = "default"
	/** @brief Edge length of the default texture. */
	DEFAULT_TEXTURE_DIMENSION uint32 = 16
)

/** @brief An invalid texture id or generation. */
const InvalidID uint32 = 4294967295

type TextureFlag int

const (
	/** @brief Indicates if the texture has transparency. */
	TextureFlagHasTransparency TextureFlag = 0x1
	/** @brief Indicates the texture data is block/stream compressed. */
	TextureFlagIsCompressed TextureFlag = 0x2
)

/** @brief Holds bit flags for textures.. */
type TextureFlagBits uint8

/**
 * @brief Where the content of a texture came from. Ordered from least to
 * most detailed for compressed content.
 */
type TextureOrigin int

const (
	/** @brief The flat placeholder every slot starts with. */
	TextureOriginDefault TextureOrigin = iota
	/** @brief Only the lowest-detail mip level of a compressed chain. */
	TextureOriginCompressedFirstMip
	/** @brief The complete compressed mip chain. */
	TextureOriginCompressedFull
	/** @brief A decoded and normalized raster image. */
	TextureOriginRawImage
)

func (o TextureOrigin) String() string {
	switch o {
	case TextureOriginDefault:
		return "default"
	case TextureOriginCompressedFirstMip:
		return "compressed-first-mip"
	case TextureOriginCompressedFull:
		return "compressed-full"
	case TextureOriginRawImage:
		return "raw-image"
	}
	return fmt.Sprintf("origin(%d)", int(o))
}

/**
 * @brief Represents loaded texture content. A Texture is never mutated once
 * it has been handed to a consumer; new content means a new Texture.
 */
type Texture struct {
	/** @brief The unique texture identifier. */
	ID uint32
	/** @brief The texture Name. */
	Name string
	/** @brief The texture Width (of mip level 0). */
	Width uint32
	/** @brief The texture Height (of mip level 0). */
	Height uint32
	/** @brief The number of channels in the texture. */
	ChannelCount uint8
	/** @brief Holds various Flags for this texture. */
	Flags TextureFlagBits
	/** @brief The texture Generation. Incremented every time the data is reloaded. */
	Generation uint32
	/** @brief Where this content came from. */
	Origin TextureOrigin
	/** @brief Pixel data per mip level, level 0 first. */
	Mips [][]uint8
}

func (t *Texture) HasFlag(flag TextureFlag) bool {
	return t.Flags&TextureFlagBits(flag) != 0
}

// MipLevels is the number of mip levels carried by this texture.
func (t *Texture) MipLevels() int {
	return len(t.Mips)
}

// NewDefaultTexture creates the flat white placeholder assigned to a slot
// before any real content is available. It has no id and an invalid generation.
func NewDefaultTexture() *Texture {
	dim := DEFAULT_TEXTURE_DIMENSION
	pixels := make([]uint8, dim*dim*4)
	for i := range pixels {
		pixels[i] = 255
	}
	return &Texture{
		ID:           InvalidID,
		Name:         DEFAULT_TEXTURE_NAME,
		Width:        dim,
		Height:       dim,
		ChannelCount: 4,
		Generation:   InvalidID,
		Origin:       TextureOriginDefault,
		Mips:         [][]uint8{pixels},
	}
}

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = 0x0
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = 0x1
)

// ParseTextureFilter maps "nearest"/"linear" to a filter. Empty means linear.
func ParseTextureFilter(s string) (TextureFilter, error) {
	switch strings.ToLower(s) {
	case "", "linear":
		return TextureFilterModeLinear, nil
	case "nearest":
		return TextureFilterModeNearest, nil
	}
	return TextureFilterModeLinear, fmt.Errorf("unknown texture filter %q", s)
}

type TextureRepeat int

const (
	TextureRepeatRepeat         TextureRepeat = 0x1
	TextureRepeatMirroredRepeat TextureRepeat = 0x2
	TextureRepeatClampToEdge    TextureRepeat = 0x3
	TextureRepeatClampToBorder  TextureRepeat = 0x4
)

// ParseTextureRepeat maps the scene file spelling to a repeat mode. Empty means repeat.
func ParseTextureRepeat(s string) (TextureRepeat, error) {
	switch strings.ToLower(s) {
	case "", "repeat":
		return TextureRepeatRepeat, nil
	case "mirrored_repeat":
		return TextureRepeatMirroredRepeat, nil
	case "clamp_to_edge":
		return TextureRepeatClampToEdge, nil
	case "clamp_to_border":
		return TextureRepeatClampToBorder, nil
	}
	return TextureRepeatRepeat, fmt.Errorf("unknown texture repeat mode %q", s)
}

/** @brief Sampler settings applied to a material slot. */
type Sampler struct {
	/** @brief Texture filtering mode for minification. */
	FilterMinify TextureFilter
	/** @brief Texture filtering mode for magnification. */
	FilterMagnify TextureFilter
	/** @brief The repeat mode on the U axis (or X, or S) */
	RepeatU TextureRepeat
	/** @brief The repeat mode on the V axis (or Y, or T) */
	RepeatV TextureRepeat
	/** @brief The repeat mode on the W axis (or Z, or U) */
	RepeatW TextureRepeat
}

func DefaultSampler() Sampler {
	return Sampler{
		FilterMinify:  TextureFilterModeLinear,
		FilterMagnify: TextureFilterModeLinear,
		RepeatU:       TextureRepeatRepeat,
		RepeatV:       TextureRepeatRepeat,
		RepeatW:       TextureRepeatRepeat,
	}
}

/** @brief A collection of texture uses */
type TextureUse int

const (
	/** @brief An unknown use. This is default, but should never actually be used. */
	TextureUseUnknown TextureUse = 0x00
	/** @brief The texture is used as a diffuse map. */
	TextureUseMapDiffuse TextureUse = 0x01
	/** @brief The texture is used as a specular map. */
	TextureUseMapSpecular TextureUse = 0x02
	/** @brief The texture is used as a normal map. */
	TextureUseMapNormal TextureUse = 0x03
)

// ParseTextureUse maps a material slot name to its use.
func ParseTextureUse(s string) TextureUse {
	switch strings.ToLower(s) {
	case "diffuse", "albedo", "base_color":
		return TextureUseMapDiffuse
	case "specular", "metallic_roughness":
		return TextureUseMapSpecular
	case "normal":
		return TextureUseMapNormal
	}
	return TextureUseUnknown
}

/**
 * @brief A material slot bound to a texture. The renderer reads Texture()
 * from its own goroutine while loads publish new content, so the current
 * texture is swapped atomically.
 */
type TextureMap struct {
	/** @brief The Use of the texture */
	Use TextureUse

	texture atomic.Pointer[Texture]
	updates atomic.Uint64

	samplerMutex sync.RWMutex
	sampler      Sampler
	samplerSets  uint64

	readyOnce sync.Once
	ready     chan struct{}
}

func NewTextureMap(use TextureUse) *TextureMap {
	return &TextureMap{
		Use:     use,
		sampler: DefaultSampler(),
		ready:   make(chan struct{}),
	}
}

// UpdateTexture replaces the bound texture. Nil is ignored.
func (tm *TextureMap) UpdateTexture(t *Texture) {
	if t == nil {
		return
	}
	tm.texture.Store(t)
	tm.updates.Add(1)
	tm.readyOnce.Do(func() {
		if tm.ready != nil {
			close(tm.ready)
		}
	})
}

// Ready is closed once the first texture is bound. TextureMaps must be
// created with NewTextureMap.
func (tm *TextureMap) Ready() <-chan struct{} {
	return tm.ready
}

// Texture returns the currently bound texture, or nil if nothing was ever bound.
func (tm *TextureMap) Texture() *Texture {
	return tm.texture.Load()
}

// Updates is the number of times content was bound to this slot.
func (tm *TextureMap) Updates() uint64 {
	return tm.updates.Load()
}

func (tm *TextureMap) ApplySampler(s Sampler) {
	tm.samplerMutex.Lock()
	defer tm.samplerMutex.Unlock()
	tm.sampler = s
	tm.samplerSets++
}

func (tm *TextureMap) Sampler() Sampler {
	tm.samplerMutex.RLock()
	defer tm.samplerMutex.RUnlock()
	return tm.sampler
}

// SamplerApplications counts ApplySampler calls.
func (tm *TextureMap) SamplerApplications() uint64 {
	tm.samplerMutex.RLock()
	defer tm.samplerMutex.RUnlock()
	return tm.samplerSets
}
