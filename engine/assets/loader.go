package assets

import "github.com/spaghettifunk/parallax/engine/renderer/metadata"

// Loader turns one file into a resource. Loaders run on any goroutine and must not touch the GPU.
type Loader interface {
	Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) // `interface{}` here allows loaders to take type specific parameters
	Unload(*metadata.Resource) error
}
