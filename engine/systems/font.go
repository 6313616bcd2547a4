package systems

import (
	"image"

	"github.com/spaghettifunk/parallax/engine/assets"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

/** @brief The name of the built-in font. */
const DefaultFontName string = "default"

type FontSystem struct {
	assetManager *assets.AssetManager
	defaultFont  *metadata.BitmapFontResourceData
	// loaded .fnt files by resolved path
	fonts map[string]*metadata.Resource
}

func NewFontSystem(am *assets.AssetManager) *FontSystem {
	return &FontSystem{
		assetManager: am,
		fonts:        make(map[string]*metadata.Resource),
	}
}

// Default returns the built-in 7x13 font, rasterized on first use.
func (fs *FontSystem) Default() *metadata.BitmapFontResourceData {
	if fs.defaultFont == nil {
		fs.defaultFont = BuildBitmapFont(basicfont.Face7x13, DefaultFontName, ' ', '~')
	}
	return fs.defaultFont
}

/**
 * @brief Returns the bitmap font stored at path (an AngelCode .fnt file). An empty path or
 * DefaultFontName gives the built-in font.
 */
func (fs *FontSystem) Acquire(path string) (*metadata.BitmapFontResourceData, error) {
	if path == "" || path == DefaultFontName {
		return fs.Default(), nil
	}
	key := fs.assetManager.Resolve(path)
	if res, ok := fs.fonts[key]; ok {
		return res.Data.(*metadata.BitmapFontResourceData), nil
	}
	res, err := fs.assetManager.LoadAsset(key, metadata.ResourceTypeBitmapFont, nil)
	if err != nil {
		return nil, err
	}
	fs.fonts[key] = res
	data := res.Data.(*metadata.BitmapFontResourceData)
	core.LogDebug("font '%s' loaded: %d glyphs", data.Face, len(data.Glyphs))
	return data, nil
}

func (fs *FontSystem) Shutdown() error {
	for key, res := range fs.fonts {
		if err := fs.assetManager.UnloadAsset(res); err != nil {
			return err
		}
		delete(fs.fonts, key)
	}
	fs.defaultFont = nil
	return nil
}

/**
 * @brief Rasterizes the runes first..last of face into a single page laid out as a grid of
 * cells, one line height tall. Glyph offsets are relative to the top of the line as in
 * AngelCode fonts.
 */
func BuildBitmapFont(face font.Face, name string, first, last rune) *metadata.BitmapFontResourceData {
	const columns = 16
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()

	cellWidth := 0
	for r := first; r <= last; r++ {
		if advance, ok := face.GlyphAdvance(r); ok && advance.Ceil() > cellWidth {
			cellWidth = advance.Ceil()
		}
	}
	count := int(last-first) + 1
	rows := (count + columns - 1) / columns
	page := image.NewRGBA(image.Rect(0, 0, columns*cellWidth, rows*lineHeight))

	data := &metadata.BitmapFontResourceData{
		Face:       name,
		Size:       lineHeight,
		LineHeight: lineHeight,
		Baseline:   ascent,
		Glyphs:     make(map[rune]metadata.FontGlyph, count),
		Kernings:   make(map[metadata.KerningPair]int),
		Pages:      map[int]image.Image{0: page},
	}

	d := &font.Drawer{Dst: page, Src: image.White, Face: face}
	for i := 0; i < count; i++ {
		r := first + rune(i)
		advance, ok := face.GlyphAdvance(r)
		if !ok {
			continue
		}
		x, y := (i%columns)*cellWidth, (i/columns)*lineHeight
		d.Dot = fixed.P(x, y+ascent)
		d.DrawString(string(r))
		data.Glyphs[r] = metadata.FontGlyph{
			Codepoint: r,
			X:         x,
			Y:         y,
			Width:     advance.Ceil(),
			Height:    lineHeight,
			XAdvance:  advance.Ceil(),
		}
	}
	return data
}
