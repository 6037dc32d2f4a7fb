package systems

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
	"golang.org/x/sync/singleflight"
)

// AssetLoader is the part of assets.AssetManager the texture sources use.
type AssetLoader interface {
	LoadAsset(ctx context.Context, name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error)
}

// AssetTextureSource serves compressed chains and raster images from the
// asset tree. Concurrent requests for the same image share one decode.
type AssetTextureSource struct {
	assets  AssetLoader
	decodes singleflight.Group
	flipY   bool
}

func NewAssetTextureSource(assets AssetLoader, flipY bool) *AssetTextureSource {
	return &AssetTextureSource{assets: assets, flipY: flipY}
}

func (s *AssetTextureSource) LoadCompressed(ctx context.Context, desc *metadata.TextureDescriptor, level metadata.MipLevel) (*metadata.Texture, error) {
	res, err := s.assets.LoadAsset(ctx, desc.Compressed, metadata.ResourceTypeMipChain, &metadata.MipChainResourceParams{Level: level})
	if err != nil {
		return nil, err
	}
	t, ok := res.Data.(*metadata.Texture)
	if !ok || t == nil {
		return nil, fmt.Errorf("%s: unexpected %T: %w", desc.Compressed, res.Data, core.ErrInvalidMipChain)
	}
	return t, nil
}

func (s *AssetTextureSource) LoadImage(ctx context.Context, record *metadata.ImageRecord) (*metadata.ImageResourceData, error) {
	v, err, shared := s.decodes.Do(record.Path, func() (interface{}, error) {
		res, err := s.assets.LoadAsset(ctx, record.Path, metadata.ResourceTypeImage, &metadata.ImageResourceParams{FlipY: s.flipY})
		if err != nil {
			return nil, err
		}
		img, ok := res.Data.(*metadata.ImageResourceData)
		if !ok || img == nil {
			return nil, fmt.Errorf("%s: unexpected %T: %w", record.Path, res.Data, core.ErrStageFailed)
		}
		return img, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		core.LogDebug("image %s decoded once for several textures", record.Path)
	}
	return v.(*metadata.ImageResourceData), nil
}
