package core

import (
	"errors"
)

var (
	ErrTextureNotFound   = errors.New("texture index has no descriptor")
	ErrImageNotFound     = errors.New("image index has no record")
	ErrStageFailed       = errors.New("texture load stage failed")
	ErrSceneCancelled    = errors.New("scene load cancelled")
	ErrJobSystemShutdown = errors.New("job system is shut down")
	ErrAssetNotFound     = errors.New("asset not found")
	ErrInvalidMipChain   = errors.New("invalid mip chain")
)
