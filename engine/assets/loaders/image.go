package loaders

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"
)

// ImageLoader decodes raster images. Decoding is memory hungry, so at most
// maxDecodes images are decoded at the same time.
type ImageLoader struct {
	decodes *semaphore.Weighted
}

func NewImageLoader(maxDecodes int64) *ImageLoader {
	if maxDecodes <= 0 {
		maxDecodes = 1
	}
	return &ImageLoader{decodes: semaphore.NewWeighted(maxDecodes)}
}

func (il *ImageLoader) Load(ctx context.Context, path string, params interface{}) (*metadata.Resource, error) {
	flip := false
	if p, ok := params.(*metadata.ImageResourceParams); ok && p != nil {
		flip = p.FlipY
	}

	if err := il.decodes.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer il.decodes.Release(1)

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, err
	}

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	if flip {
		img = flipVertical(img)
	}

	b := img.Bounds()
	return &metadata.Resource{
		Name:     path,
		FullPath: path,
		DataSize: uint64(info.Size()),
		Data: &metadata.ImageResourceData{
			ChannelCount: channelCount(img.ColorModel()),
			Width:        uint32(b.Dx()),
			Height:       uint32(b.Dy()),
			Image:        img,
			Format:       format,
		},
	}, nil
}

func (il *ImageLoader) Unload(*metadata.Resource) error {
	return nil
}

func channelCount(model color.Model) uint8 {
	switch model {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.AlphaModel, color.Alpha16Model:
		return 1
	}
	return 4
}

func flipVertical(img image.Image) image.Image {
	b := img.Bounds()
	src := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)

	out := image.NewRGBA(src.Bounds())
	stride := src.Stride
	h := b.Dy()
	for y := 0; y < h; y++ {
		copy(out.Pix[y*stride:(y+1)*stride], src.Pix[(h-1-y)*stride:(h-y)*stride])
	}
	return out
}
