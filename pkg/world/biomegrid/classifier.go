package biomegrid

import (
	"context"

	"github.com/OCharnyshevich/worldgen/internal/parallel"
	"github.com/OCharnyshevich/worldgen/pkg/world/biome"
	"github.com/OCharnyshevich/worldgen/pkg/world/noise"
)

// Classifier produces the coarse seed grid the pipeline starts from. The
// returned grid must cover r exactly or be croppable to it.
type Classifier interface {
	Classify(ctx context.Context, seed int64, r Rect) (*Grid, error)
}

const maskSalt = 0x6d61736b // "mask"

// MaskClassifier marks each coarse cell as land or ocean by hashing its
// coordinate. Land cells hold the catalog's first dry land biome; a Land
// stage later replaces them with concrete biomes.
type MaskClassifier struct {
	Catalog *biome.Catalog
	// LandPercent is the share of land cells, 0..100.
	LandPercent uint32
	Workers     int
}

// NewMaskClassifier returns a classifier producing half land, half ocean.
func NewMaskClassifier(cat *biome.Catalog) *MaskClassifier {
	return &MaskClassifier{Catalog: cat, LandPercent: 50}
}

func (m *MaskClassifier) Classify(ctx context.Context, seed int64, r Rect) (*Grid, error) {
	out := NewGrid(r)
	ocean := m.Catalog.Ocean()
	land := m.Catalog.Land()[0]

	err := parallel.For(ctx, m.Workers, r.Height, func(z int) error {
		for x := 0; x < r.Width; x++ {
			id := ocean
			if noise.Hash2(seed^maskSalt, r.X+x, r.Z+z)%100 < m.LandPercent {
				id = land
			}
			out.Set(x, z, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
