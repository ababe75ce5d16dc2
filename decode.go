package tilemap

import (
	"encoding/binary"
	"hash/fnv"
)

// layerDecoder turns raw tile-set data for one layer into an Update.
// The set of implementations is closed: one per Layer. Decode returns
// ErrAbsent (possibly wrapped) when the tile has no data for the layer.
type layerDecoder interface {
	layer() Layer
	decode(ts TileSet, c Coord) (*Update, error)
}

// baseDecoder decodes the minimap imagery layer, resampling to the
// session's detected tile resolution when the native size differs.
type baseDecoder struct {
	resolution int
}

func (d baseDecoder) layer() Layer { return LayerBase }

func (d baseDecoder) decode(ts TileSet, c Coord) (*Update, error) {
	pm, err := ts.Base(c)
	if err != nil {
		return nil, err
	}
	pm = pm.Resample(d.resolution, d.resolution)
	return &Update{
		Coord:  c,
		Layer:  LayerBase,
		Width:  pm.Width(),
		Height: pm.Height(),
		Pixels: pm.Data(),
	}, nil
}

// elevationDecoder decodes the height layer to grayscale pixels, normalized
// against the global elevation range of the run. When no tile contributed a
// global range, each tile normalizes against its own local range.
type elevationDecoder struct {
	globalMin float32
	globalMax float32
	hasGlobal bool
}

func (d elevationDecoder) layer() Layer { return LayerElevation }

func (d elevationDecoder) decode(ts TileSet, c Coord) (*Update, error) {
	samples, err := ts.Elevation(c)
	if err != nil {
		return nil, err
	}

	lo, hi := d.globalMin, d.globalMax
	if !d.hasGlobal {
		lo, hi = sampleRange(samples)
	}

	pm := NewPixmap(LayerResolution, LayerResolution)
	px := pm.Data()
	for i, s := range samples {
		if i*4 >= len(px) {
			break
		}
		v := normalizeElevation(s, lo, hi)
		g := uint8(v*255 + 0.5)
		px[i*4+0] = g
		px[i*4+1] = g
		px[i*4+2] = g
		px[i*4+3] = 255
	}

	return &Update{
		Coord:   c,
		Layer:   LayerElevation,
		Width:   LayerResolution,
		Height:  LayerResolution,
		Pixels:  px,
		Samples: samples,
	}, nil
}

// regionDecoder decodes the region-identifier layer, assigning each unique
// region id a deterministic pseudo-random color.
type regionDecoder struct{}

func (regionDecoder) layer() Layer { return LayerRegion }

func (regionDecoder) decode(ts TileSet, c Coord) (*Update, error) {
	ids, err := ts.Regions(c)
	if err != nil {
		return nil, err
	}

	pm := NewPixmap(LayerResolution, LayerResolution)
	px := pm.Data()
	for i, id := range ids {
		if i*4 >= len(px) {
			break
		}
		r, g, b := regionColor(id)
		px[i*4+0] = r
		px[i*4+1] = g
		px[i*4+2] = b
		px[i*4+3] = 255
	}

	return &Update{
		Coord:  c,
		Layer:  LayerRegion,
		Width:  LayerResolution,
		Height: LayerResolution,
		Pixels: px,
	}, nil
}

// buildDecoders returns one decoder per requested layer, in render order.
func buildDecoders(layers []Layer, tileResolution int, globalMin, globalMax float32, hasGlobal bool) []layerDecoder {
	decoders := make([]layerDecoder, 0, len(layers))
	for _, l := range AllLayers {
		if !containsLayer(layers, l) {
			continue
		}
		switch l {
		case LayerBase:
			decoders = append(decoders, baseDecoder{resolution: tileResolution})
		case LayerElevation:
			decoders = append(decoders, elevationDecoder{
				globalMin: globalMin,
				globalMax: globalMax,
				hasGlobal: hasGlobal,
			})
		case LayerRegion:
			decoders = append(decoders, regionDecoder{})
		}
	}
	return decoders
}

func containsLayer(layers []Layer, l Layer) bool {
	for _, x := range layers {
		if x == l {
			return true
		}
	}
	return false
}

// normalizeElevation maps a raw sample into [0, 1] against the given range.
// A degenerate range maps every sample to 0.
func normalizeElevation(s, lo, hi float32) float32 {
	if hi <= lo {
		return 0
	}
	v := (s - lo) / (hi - lo)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sampleRange returns the min and max of a sample slice.
func sampleRange(samples []float32) (lo, hi float32) {
	if len(samples) == 0 {
		return 0, 0
	}
	lo, hi = samples[0], samples[0]
	for _, s := range samples[1:] {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	return lo, hi
}

// regionColor derives a stable pseudo-random color for a region identifier.
// The same id always maps to the same color across sessions.
func regionColor(id uint32) (r, g, b uint8) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], id)
	h := fnv.New32a()
	h.Write(buf[:])
	v := h.Sum32()
	return uint8(v), uint8(v >> 8), uint8(v >> 16)
}
