package loaders

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
	"github.com/spaghettifunk/texstream/engine/core"
	engmath "github.com/spaghettifunk/texstream/engine/math"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
	"golang.org/x/image/draw"
)

// A .tmip file is the magic, a little-endian uint32 header length, a gob
// encoded mipChainHeader and then one lz4 frame per level. Level 0 is the
// full resolution image; offsets are relative to the end of the header.
var mipChainMagic = [4]byte{'T', 'M', 'I', 'P'}

const mipChainVersion = 1

const (
	maxMipChainHeaderSize = 1 << 20
	maxMipChainLevels     = 32
	// a 16384x16384 RGBA level
	maxMipLevelSize = 1 << 30
)

type mipLevelEntry struct {
	Width          uint32
	Height         uint32
	Offset         int64
	Size           int64
	CompressedSize int64
}

type mipChainHeader struct {
	Version      int
	Name         string
	ChannelCount uint8
	Flags        metadata.TextureFlagBits
	Levels       []mipLevelEntry
}

// BakeMipChain builds an RGBA mip chain from img by successive halving down
// to 1x1.
func BakeMipChain(name string, img image.Image) *metadata.Texture {
	b := img.Bounds()
	base := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(base, base.Bounds(), img, b.Min, draw.Src)

	t := &metadata.Texture{
		Name:         name,
		Width:        uint32(b.Dx()),
		Height:       uint32(b.Dy()),
		ChannelCount: 4,
		Origin:       metadata.TextureOriginCompressedFull,
		Mips:         make([][]uint8, 0, engmath.MipLevelCount(b.Dx(), b.Dy())),
	}
	if hasTransparency(base) {
		t.Flags |= metadata.TextureFlagBits(metadata.TextureFlagHasTransparency)
	}
	t.Flags |= metadata.TextureFlagBits(metadata.TextureFlagIsCompressed)

	level := base
	t.Mips = append(t.Mips, level.Pix)
	for level.Bounds().Dx() > 1 || level.Bounds().Dy() > 1 {
		w := max(level.Bounds().Dx()/2, 1)
		h := max(level.Bounds().Dy()/2, 1)
		next := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(next, next.Bounds(), level, level.Bounds(), draw.Src, nil)
		t.Mips = append(t.Mips, next.Pix)
		level = next
	}
	return t
}

// WriteMipChain encodes every level of t.
func WriteMipChain(w io.Writer, t *metadata.Texture) error {
	if len(t.Mips) == 0 {
		return fmt.Errorf("texture %s has no mip levels: %w", t.Name, core.ErrInvalidMipChain)
	}

	header := mipChainHeader{
		Version:      mipChainVersion,
		Name:         t.Name,
		ChannelCount: t.ChannelCount,
		Flags:        t.Flags,
	}
	var payload bytes.Buffer
	width, height := t.Width, t.Height
	for _, level := range t.Mips {
		offset := int64(payload.Len())
		zw := lz4.NewWriter(&payload)
		written, err := io.Copy(zw, bytes.NewReader(level))
		if err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		header.Levels = append(header.Levels, mipLevelEntry{
			Width:          width,
			Height:         height,
			Offset:         offset,
			Size:           written,
			CompressedSize: int64(payload.Len()) - offset,
		})
		width = max(width/2, 1)
		height = max(height/2, 1)
	}

	var rawHeader bytes.Buffer
	if err := gob.NewEncoder(&rawHeader).Encode(header); err != nil {
		return err
	}

	if _, err := w.Write(mipChainMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(rawHeader.Len())); err != nil {
		return err
	}
	if _, err := w.Write(rawHeader.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}

func readMipChainHeader(r io.Reader) (*mipChainHeader, int64, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, 0, fmt.Errorf("reading magic: %w", core.ErrInvalidMipChain)
	}
	if magic != mipChainMagic {
		return nil, 0, core.ErrInvalidMipChain
	}
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, 0, fmt.Errorf("reading header size: %w", core.ErrInvalidMipChain)
	}
	if size == 0 || size > maxMipChainHeaderSize {
		return nil, 0, fmt.Errorf("header size %d: %w", size, core.ErrInvalidMipChain)
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, 0, fmt.Errorf("reading header: %w", core.ErrInvalidMipChain)
	}
	var header mipChainHeader
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&header); err != nil {
		return nil, 0, fmt.Errorf("decoding header: %s: %w", err, core.ErrInvalidMipChain)
	}
	if err := header.validate(); err != nil {
		return nil, 0, err
	}
	return &header, int64(len(mipChainMagic)) + 4 + int64(size), nil
}

// validate rejects level tables that would make the reader allocate or seek
// outside what the header itself describes.
func (h *mipChainHeader) validate() error {
	if h.Version != mipChainVersion {
		return fmt.Errorf("version %d: %w", h.Version, core.ErrInvalidMipChain)
	}
	if len(h.Levels) == 0 || len(h.Levels) > maxMipChainLevels {
		return fmt.Errorf("%d levels: %w", len(h.Levels), core.ErrInvalidMipChain)
	}
	if h.ChannelCount == 0 || h.ChannelCount > 4 {
		return fmt.Errorf("%d channels: %w", h.ChannelCount, core.ErrInvalidMipChain)
	}
	for i, l := range h.Levels {
		if l.Width == 0 || l.Height == 0 {
			return fmt.Errorf("level %d is empty: %w", i, core.ErrInvalidMipChain)
		}
		want := uint64(l.Width) * uint64(l.Height) * uint64(h.ChannelCount)
		if want > maxMipLevelSize || l.Size != int64(want) {
			return fmt.Errorf("level %d: size %d for %dx%d: %w", i, l.Size, l.Width, l.Height, core.ErrInvalidMipChain)
		}
		if l.Offset < 0 || l.CompressedSize <= 0 || l.CompressedSize > 2*maxMipLevelSize {
			return fmt.Errorf("level %d: offset %d, compressed size %d: %w", i, l.Offset, l.CompressedSize, core.ErrInvalidMipChain)
		}
	}
	return nil
}

func readMipLevel(r io.ReadSeeker, dataStart int64, entry mipLevelEntry) ([]uint8, error) {
	if _, err := r.Seek(dataStart+entry.Offset, io.SeekStart); err != nil {
		return nil, err
	}
	pixels := make([]uint8, entry.Size)
	zr := lz4.NewReader(io.LimitReader(r, entry.CompressedSize))
	if _, err := io.ReadFull(zr, pixels); err != nil {
		return nil, fmt.Errorf("level %dx%d: %s: %w", entry.Width, entry.Height, err, core.ErrInvalidMipChain)
	}
	return pixels, nil
}

// ReadMipChain decodes a chain. MipLevelFirst only decompresses the smallest
// level, which is what makes it cheap enough to show early.
func ReadMipChain(r io.ReadSeeker, level metadata.MipLevel) (*metadata.Texture, error) {
	header, dataStart, err := readMipChainHeader(r)
	if err != nil {
		return nil, err
	}

	levels := header.Levels
	origin := metadata.TextureOriginCompressedFull
	if level == metadata.MipLevelFirst {
		levels = levels[len(levels)-1:]
		origin = metadata.TextureOriginCompressedFirstMip
	}

	t := &metadata.Texture{
		Name:         header.Name,
		Width:        levels[0].Width,
		Height:       levels[0].Height,
		ChannelCount: header.ChannelCount,
		Flags:        header.Flags,
		Origin:       origin,
		Mips:         make([][]uint8, 0, len(levels)),
	}
	for _, entry := range levels {
		pixels, err := readMipLevel(r, dataStart, entry)
		if err != nil {
			return nil, err
		}
		t.Mips = append(t.Mips, pixels)
	}
	return t, nil
}

type MipChainLoader struct{}

func (ml *MipChainLoader) Load(ctx context.Context, path string, params interface{}) (*metadata.Resource, error) {
	level := metadata.MipLevelAll
	if p, ok := params.(*metadata.MipChainResourceParams); ok && p != nil {
		level = p.Level
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadMipChain(f, level)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	size := 0
	for _, m := range t.Mips {
		size += len(m)
	}
	return &metadata.Resource{
		Name:     t.Name,
		FullPath: path,
		DataSize: uint64(size),
		Data:     t,
	}, nil
}

func (ml *MipChainLoader) Unload(*metadata.Resource) error {
	return nil
}
