package loaders

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// ImageParams tunes image decoding.
type ImageParams struct {
	// FlipY stores the bottom row first, as GPU texture coordinates expect.
	FlipY bool
}

type ImageLoader struct{}

// Load decodes png, jpeg, gif, bmp or tiff files into RGBA8 pixels.
func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	flip := false
	if p, ok := params.(*ImageParams); ok && p != nil {
		flip = p.FlipY
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, wrapOpenError(path, err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", path, err, core.ErrUnsupportedFormat)
	}
	core.LogDebug("decoded %s image '%s' (%dx%d)", format, path, img.Bounds().Dx(), img.Bounds().Dy())

	return &metadata.Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     metadata.ResourceTypeImage,
		Data:     ImageData(img, flip),
	}, nil
}

func (il *ImageLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	return nil
}

// ImageData converts any image into tightly packed RGBA8 rows.
func ImageData(img image.Image, flipY bool) *metadata.ImageResourceData {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	if flipY {
		stride := rgba.Stride
		row := make([]uint8, stride)
		for y := 0; y < b.Dy()/2; y++ {
			top := rgba.Pix[y*stride : (y+1)*stride]
			bottom := rgba.Pix[(b.Dy()-1-y)*stride : (b.Dy()-y)*stride]
			copy(row, top)
			copy(top, bottom)
			copy(bottom, row)
		}
	}
	return &metadata.ImageResourceData{
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Pixels: rgba.Pix,
	}
}
