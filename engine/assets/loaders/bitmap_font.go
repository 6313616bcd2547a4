package loaders

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/fzipp/bmfont"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
)

type BitmapFontLoader struct{}

// Load reads an AngelCode .fnt descriptor and decodes its page images.
func (fl *BitmapFontLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	if filepath.Ext(path) != ".fnt" {
		return nil, fmt.Errorf("bitmap font '%s': %w", path, core.ErrUnsupportedFormat)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, wrapOpenError(path, err)
	}

	data, err := importFNTFile(path)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     data.Face,
		FullPath: path,
		Type:     metadata.ResourceTypeBitmapFont,
		Data:     data,
	}, nil
}

func (fl *BitmapFontLoader) Unload(resource *metadata.Resource) error {
	if data, ok := resource.Data.(*metadata.BitmapFontResourceData); ok {
		data.Glyphs = nil
		data.Kernings = nil
		data.Pages = nil
	}
	resource.Data = nil
	return nil
}

func importFNTFile(path string) (*metadata.BitmapFontResourceData, error) {
	font, err := bmfont.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	desc := font.Descriptor

	out := &metadata.BitmapFontResourceData{
		Face:       desc.Info.Face,
		Size:       int(desc.Info.Size),
		LineHeight: int(desc.Common.LineHeight),
		Baseline:   int(desc.Common.Base),
		Glyphs:     make(map[rune]metadata.FontGlyph, len(desc.Chars)),
		Kernings:   make(map[metadata.KerningPair]int, len(desc.Kerning)),
		Pages:      make(map[int]image.Image, len(desc.Pages)),
	}

	for _, g := range desc.Chars {
		out.Glyphs[rune(g.ID)] = metadata.FontGlyph{
			Codepoint: rune(g.ID),
			X:         int(g.X),
			Y:         int(g.Y),
			Width:     int(g.Width),
			Height:    int(g.Height),
			XOffset:   int(g.XOffset),
			YOffset:   int(g.YOffset),
			XAdvance:  int(g.XAdvance),
			PageID:    int(g.Page),
		}
	}
	for p, k := range desc.Kerning {
		out.Kernings[metadata.KerningPair{First: rune(p.First), Second: rune(p.Second)}] = int(k.Amount)
	}

	dir := filepath.Dir(path)
	for _, p := range desc.Pages {
		file, err := os.Open(filepath.Join(dir, p.File))
		if err != nil {
			return nil, wrapOpenError(filepath.Join(dir, p.File), err)
		}
		img, _, err := image.Decode(file)
		file.Close()
		if err != nil {
			return nil, fmt.Errorf("font page '%s': %s: %w", p.File, err, core.ErrUnsupportedFormat)
		}
		out.Pages[int(p.ID)] = img
	}
	return out, nil
}
