package loaders

import (
	"image"

	engmath "github.com/spaghettifunk/texstream/engine/math"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
	"golang.org/x/image/draw"
)

// Normalizer prepares decoded images for upload: RGBA, clamped to
// MaxDimension and optionally resized to power-of-two sides.
type Normalizer struct {
	MaxDimension uint32
	PowerOfTwo   bool
}

func NewNormalizer(maxDimension uint32, powerOfTwo bool) *Normalizer {
	return &Normalizer{MaxDimension: maxDimension, PowerOfTwo: powerOfTwo}
}

func (n *Normalizer) targetSize(w, h uint32) (uint32, uint32) {
	if n.MaxDimension > 0 {
		w, h = engmath.FitWithin(w, h, n.MaxDimension)
	}
	if n.PowerOfTwo {
		w, h = engmath.NextPowerOfTwo(w), engmath.NextPowerOfTwo(h)
		if n.MaxDimension > 0 {
			for w > n.MaxDimension {
				w /= 2
			}
			for h > n.MaxDimension {
				h /= 2
			}
		}
	}
	return w, h
}

// Compress converts img into single level texture content. It returns nil
// for an empty image.
func (n *Normalizer) Compress(img *metadata.ImageResourceData) *metadata.Texture {
	if img == nil || img.Image == nil {
		return nil
	}
	b := img.Image.Bounds()
	if b.Empty() {
		return nil
	}

	w, h := n.targetSize(uint32(b.Dx()), uint32(b.Dy()))
	dst := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	if int(w) == b.Dx() && int(h) == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img.Image, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img.Image, b, draw.Src, nil)
	}

	t := &metadata.Texture{
		Width:        w,
		Height:       h,
		ChannelCount: 4,
		Origin:       metadata.TextureOriginRawImage,
		Mips:         [][]uint8{dst.Pix},
	}
	if hasTransparency(dst) {
		t.Flags |= metadata.TextureFlagBits(metadata.TextureFlagHasTransparency)
	}
	return t
}

func hasTransparency(img *image.RGBA) bool {
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] < 0xff {
			return true
		}
	}
	return false
}
