package assets

import (
	"context"

	"github.com/spaghettifunk/texstream/engine/renderer/metadata"
)

type Loader interface {
	// params is loader specific, e.g. *metadata.MipChainResourceParams
	Load(ctx context.Context, path string, params interface{}) (*metadata.Resource, error)
	Unload(*metadata.Resource) error
}
