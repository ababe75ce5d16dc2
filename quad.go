package tilemap

import "github.com/gogpu/tilemap/internal/gpu"

// CPUQuad is the authoritative CPU-resident record for one tile coordinate.
// It holds whichever layer buffers have arrived so far, plus the raw
// elevation samples for lossless re-export. Entries are created lazily on
// first update and live until the cache is cleared.
type CPUQuad struct {
	layers  [layerCount]*Pixmap
	samples []float32
	dirty   [layerCount]bool
}

// HasData reports whether at least one layer buffer has arrived.
func (q *CPUQuad) HasData() bool {
	for _, pm := range q.layers {
		if pm != nil {
			return true
		}
	}
	return false
}

// IsDirty reports whether any layer has been written since its last
// GPU upload.
func (q *CPUQuad) IsDirty() bool {
	for _, d := range q.dirty {
		if d {
			return true
		}
	}
	return false
}

// Layer returns the pixel buffer for the given layer, or nil if it has not
// arrived.
func (q *CPUQuad) Layer(l Layer) *Pixmap {
	if !l.valid() {
		return nil
	}
	return q.layers[l]
}

// LayerDirty reports whether the given layer awaits a GPU upload.
func (q *CPUQuad) LayerDirty(l Layer) bool {
	return l.valid() && q.dirty[l]
}

// ElevationSamples returns the raw elevation values, or nil if the
// elevation layer has not arrived.
func (q *CPUQuad) ElevationSamples() []float32 {
	return q.samples
}

// setLayer overwrites a layer buffer and marks it dirty. samples is stored
// only for LayerElevation.
func (q *CPUQuad) setLayer(l Layer, pm *Pixmap, samples []float32) {
	if !l.valid() {
		return
	}
	q.layers[l] = pm
	q.dirty[l] = true
	if l == LayerElevation {
		q.samples = samples
	}
}

// GPUQuad is the working-set record for one resident tile coordinate. It
// owns up to one texture per layer, allocated lazily on first upload, and
// tracks the frame it was last required on for LRU eviction.
type GPUQuad struct {
	textures [layerCount]*gpu.Texture
	lastUsed uint64
}

// Texture returns the GPU texture for the given layer, or nil if that
// layer has never been uploaded.
func (q *GPUQuad) Texture(l Layer) *gpu.Texture {
	if !l.valid() {
		return nil
	}
	return q.textures[l]
}

// HasLayer reports whether a texture exists for the given layer.
func (q *GPUQuad) HasLayer(l Layer) bool {
	return l.valid() && q.textures[l] != nil
}

// LastUsedFrame returns the frame clock value at which the quad was last
// required.
func (q *GPUQuad) LastUsedFrame() uint64 {
	return q.lastUsed
}

// release closes every texture owned by the quad and settles its memory
// accounting. Called exactly once, at eviction or full cache clear.
func (q *GPUQuad) release(m *gpu.MemoryTracker) {
	for i, t := range q.textures {
		if t != nil {
			t.Close()
			m.Release(t)
			q.textures[i] = nil
		}
	}
}
