package systems

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/texstream/engine/core"
	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
)

type stage int

const (
	// lowest-detail level of the compressed chain
	stageFirstMip stage = iota
	// full compressed chain
	stageAllMips
	// decoded raster image
	stageRawImage
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageFirstMip:
		return "first-mip"
	case stageAllMips:
		return "all-mips"
	case stageRawImage:
		return "raw-image"
	case stageDone:
		return "done"
	}
	return "unknown"
}

func (s stage) origin() metadata.TextureOrigin {
	switch s {
	case stageFirstMip:
		return metadata.TextureOriginCompressedFirstMip
	case stageAllMips:
		return metadata.TextureOriginCompressedFull
	case stageRawImage:
		return metadata.TextureOriginRawImage
	}
	return metadata.TextureOriginDefault
}

type stageOutcome struct {
	publish *metadata.Texture
	next    stage
}

// advance maps the result of a stage to what gets published and what runs
// next. A failed compressed stage always drops to the raw image; the raw
// image stage is terminal either way.
func advance(current stage, result *metadata.Texture, err error) stageOutcome {
	failed := err != nil || result == nil
	switch current {
	case stageFirstMip:
		if failed {
			return stageOutcome{next: stageRawImage}
		}
		return stageOutcome{publish: result, next: stageAllMips}
	case stageAllMips:
		if failed {
			return stageOutcome{next: stageRawImage}
		}
		return stageOutcome{publish: result, next: stageDone}
	case stageRawImage:
		if failed {
			return stageOutcome{next: stageDone}
		}
		return stageOutcome{publish: result, next: stageDone}
	}
	return stageOutcome{next: stageDone}
}

// FallbackPipeline loads one texture, degrading from the compressed mip chain
// to the raw image.
type FallbackPipeline struct {
	compressed CompressedTextureLoader
	images     ImageLoader
	normalizer ImageNormalizer
	capability CapabilityChecker
	metrics    *core.LoadMetrics
}

func NewFallbackPipeline(compressed CompressedTextureLoader, images ImageLoader, normalizer ImageNormalizer, capability CapabilityChecker, metrics *core.LoadMetrics) *FallbackPipeline {
	if metrics == nil {
		metrics = core.NewLoadMetrics()
	}
	return &FallbackPipeline{
		compressed: compressed,
		images:     images,
		normalizer: normalizer,
		capability: capability,
		metrics:    metrics,
	}
}

func (p *FallbackPipeline) firstStage(desc *metadata.TextureDescriptor) stage {
	if p.compressed == nil || p.capability == nil || !desc.HasCompressed() {
		return stageRawImage
	}
	if !p.capability.CompressedTexturesSupported() {
		return stageRawImage
	}
	return stageFirstMip
}

// execute runs one stage. A panicking loader counts as a failed stage so the
// pipeline still moves on to the next fallback.
func (p *FallbackPipeline) execute(ctx context.Context, st stage, src SceneSource, desc *metadata.TextureDescriptor) (result *metadata.Texture, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("stage %s panicked: %v: %w", st, r, core.ErrStageFailed)
		}
	}()

	switch st {
	case stageFirstMip:
		return p.compressed.LoadCompressed(ctx, desc, metadata.MipLevelFirst)
	case stageAllMips:
		return p.compressed.LoadCompressed(ctx, desc, metadata.MipLevelAll)
	case stageRawImage:
		return p.loadRawImage(ctx, src, desc)
	}
	return nil, fmt.Errorf("stage %s cannot be executed", st)
}

func (p *FallbackPipeline) loadRawImage(ctx context.Context, src SceneSource, desc *metadata.TextureDescriptor) (*metadata.Texture, error) {
	if p.images == nil || p.normalizer == nil {
		return nil, fmt.Errorf("no image loader configured: %w", core.ErrStageFailed)
	}
	if !desc.HasImage() {
		return nil, fmt.Errorf("texture %d has no image: %w", desc.Index, core.ErrImageNotFound)
	}
	record, ok := src.Image(desc.Image)
	if !ok {
		return nil, fmt.Errorf("image %d: %w", desc.Image, core.ErrImageNotFound)
	}
	data, err := p.images.LoadImage(ctx, record)
	if err != nil {
		return nil, err
	}
	return p.normalizer.Compress(data), nil
}

func cancelled(ctx context.Context, src SceneSource) bool {
	return ctx.Err() != nil || src.IsCancelled()
}

// Run executes the stages for desc and publishes into state. It returns
// core.ErrSceneCancelled if it stopped because the scene or ctx was
// cancelled; stage failures are absorbed and never returned.
func (p *FallbackPipeline) Run(ctx context.Context, src SceneSource, desc *metadata.TextureDescriptor, state *LoadState) error {
	generation := uint32(0)
	for st := p.firstStage(desc); st != stageDone; {
		if cancelled(ctx, src) {
			p.metrics.PipelineCancelled()
			return core.ErrSceneCancelled
		}

		result, err := p.execute(ctx, st, src, desc)
		if err == nil && result == nil {
			err = core.ErrStageFailed
		}
		if err != nil {
			p.metrics.StageFailed(int(st))
			core.LogWarn("texture %d (%s): stage %s failed: %s", desc.Index, desc.Name, st, err)
		}

		out := advance(st, result, err)
		if out.publish != nil {
			if cancelled(ctx, src) {
				p.metrics.PipelineCancelled()
				return core.ErrSceneCancelled
			}
			// loaders may cache and share their handles, so stamp a copy
			content := *out.publish
			content.ID = uint32(desc.Index)
			content.Generation = generation
			content.Origin = st.origin()
			if content.Name == "" {
				content.Name = desc.Name
			}
			generation++
			state.Publish(&content)
			p.metrics.ContentPublished()
			core.LogDebug("texture %d (%s): published %s content", desc.Index, desc.Name, st)
		}
		st = out.next
	}
	return nil
}
