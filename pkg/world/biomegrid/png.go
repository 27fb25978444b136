package biomegrid

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
)

// Image renders g with one pixel per cell in each biome's catalog colour.
func Image(g *Grid, cat *biome.Catalog) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, g.Width, g.Height))
	for z := 0; z < g.Height; z++ {
		for x := 0; x < g.Width; x++ {
			d, err := cat.Lookup(g.At(x, z))
			if err != nil {
				return nil, err
			}
			img.SetRGBA(x, z, color.RGBA{R: d.Color[0], G: d.Color[1], B: d.Color[2], A: 0xff})
		}
	}
	return img, nil
}

// WritePNG encodes g as a PNG image.
func WritePNG(w io.Writer, g *Grid, cat *biome.Catalog) error {
	img, err := Image(g, cat)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
