package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	/** @brief Unknown files are not indexed. */
	ResourceTypeNone ResourceType = iota
	/** @brief Raster image resource type (png, jpeg, bmp, ...). */
	ResourceTypeImage
	/** @brief Compressed mip chain resource type (.tmip). */
	ResourceTypeMipChain
	/** @brief Scene description resource type (.toml). */
	ResourceTypeScene
)

func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeImage:
		return "image"
	case ResourceTypeMipChain:
		return "mipchain"
	case ResourceTypeScene:
		return "scene"
	}
	return "none"
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}

/** @brief Selects how much of a compressed mip chain to load. */
type MipLevel int

const (
	/** @brief Only the lowest-detail level. */
	MipLevelFirst MipLevel = iota
	/** @brief Every level of the chain. */
	MipLevelAll
)

func (l MipLevel) String() string {
	if l == MipLevelFirst {
		return "first"
	}
	return "all"
}

/** @brief Parameters used when loading a mip chain. */
type MipChainResourceParams struct {
	Level MipLevel
}

/**
 * @brief An entry of a scene's texture table.
 */
type TextureDescriptor struct {
	/** @brief Position in the scene's texture table. */
	Index int
	/** @brief The texture Name. */
	Name string
	/** @brief Index into the scene's image table, or -1 when there is no raster source. */
	Image int
	/** @brief Asset name of the compressed mip chain, empty when there is none. */
	Compressed string
	/** @brief Sampler settings to apply to every slot using this texture. */
	Sampler Sampler
}

func (d *TextureDescriptor) HasCompressed() bool {
	return d.Compressed != ""
}

func (d *TextureDescriptor) HasImage() bool {
	return d.Image >= 0
}

/**
 * @brief An entry of a scene's image table.
 */
type ImageRecord struct {
	/** @brief Position in the scene's image table. */
	Index int
	Name  string
	/** @brief Asset path of the raster image. */
	Path string
}
