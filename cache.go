package tilemap

import (
	"fmt"
	"sort"

	"github.com/gogpu/tilemap/internal/gpu"
)

// DefaultGPUCapacity is the default maximum number of GPU-resident quads.
// It holds the whole grid, so eviction never triggers while the loaded
// data set fits.
const DefaultGPUCapacity = GridTiles

// Device is the GPU device handle supplied by the host application.
// tilemap receives the device from the host; it never creates one.
type Device = gpu.Device

// TextureCreator is the host-side texture factory used to allocate quad
// layer textures. With a nil creator the cache runs in logical mode:
// residency, LRU, and upload accounting all behave normally, but no device
// memory is touched. Headless hosts and tests run this way.
type TextureCreator = gpu.Creator

// CacheConfig configures a QuadCache.
type CacheConfig struct {
	// Creator allocates GPU textures. May be nil (logical mode).
	Creator TextureCreator

	// Capacity is the maximum GPU-resident quad count.
	// Defaults to DefaultGPUCapacity when <= 0.
	Capacity int

	// MemoryBudgetMB is the advisory texture memory budget in megabytes.
	// Defaults to gpu.DefaultBudgetMB when <= 0. Exceeding it does not
	// fail uploads; it is reported through Stats and logged.
	MemoryBudgetMB int
}

// CacheStats describes the cache state for diagnostics.
type CacheStats struct {
	// CPUEntries is the number of coordinates with a CPU record.
	CPUEntries int
	// Resident is the current GPU working-set size.
	Resident int
	// Capacity is the configured GPU working-set bound.
	Capacity int
	// Frame is the current frame clock value.
	Frame uint64
	// Uploads counts layer uploads to the GPU, including re-uploads.
	Uploads uint64
	// Evictions counts quads evicted from the working set.
	Evictions uint64
	// GPUBytes is the texture memory held by the working set.
	GPUBytes uint64
}

// String returns a human-readable summary of the stats.
func (s CacheStats) String() string {
	return fmt.Sprintf("QuadCache[%d cpu, %d/%d resident, frame %d, %d uploads, %d evictions, %d KB]",
		s.CPUEntries, s.Resident, s.Capacity, s.Frame, s.Uploads, s.Evictions, s.GPUBytes/1024)
}

// QuadCache is the two-tier tile cache: an unbounded CPU-resident
// authoritative store and a capacity-bounded GPU-resident working set with
// least-recently-used eviction keyed by the frame clock.
//
// QuadCache is not safe for concurrent use. All methods must be called from
// the thread that owns the GPU context; the background loader hands data
// over through the update queue instead of touching the cache.
type QuadCache struct {
	creator  TextureCreator
	capacity int
	memory   *gpu.MemoryTracker

	cpu      map[Coord]*CPUQuad
	resident map[Coord]*GPUQuad

	frame     uint64
	uploads   uint64
	evictions uint64
}

// NewQuadCache creates an empty cache.
func NewQuadCache(cfg CacheConfig) *QuadCache {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultGPUCapacity
	}
	return &QuadCache{
		creator:  cfg.Creator,
		capacity: capacity,
		memory:   gpu.NewMemoryTracker(cfg.MemoryBudgetMB),
		cpu:      make(map[Coord]*CPUQuad),
		resident: make(map[Coord]*GPUQuad),
	}
}

// Capacity returns the GPU working-set bound.
func (qc *QuadCache) Capacity() int {
	return qc.capacity
}

// Frame returns the current frame clock value.
func (qc *QuadCache) Frame() uint64 {
	return qc.frame
}

// TickFrame advances the frame clock. Call exactly once per render tick,
// before any EnsureResident calls for that tick.
func (qc *QuadCache) TickFrame() {
	qc.frame++
}

// GetOrCreate returns the CPU record for a coordinate, creating it on
// first access.
func (qc *QuadCache) GetOrCreate(c Coord) *CPUQuad {
	if q, ok := qc.cpu[c]; ok {
		return q
	}
	q := &CPUQuad{}
	qc.cpu[c] = q
	return q
}

// Get returns the CPU record for a coordinate, or (nil, false) if none
// exists yet.
func (qc *QuadCache) Get(c Coord) (*CPUQuad, bool) {
	q, ok := qc.cpu[c]
	return q, ok
}

// SetLayer overwrites the layer buffer for a coordinate and marks it dirty.
// samples carries the raw elevation values and applies to LayerElevation
// only.
func (qc *QuadCache) SetLayer(c Coord, l Layer, pm *Pixmap, samples []float32) {
	if pm == nil || !l.valid() {
		return
	}
	qc.GetOrCreate(c).setLayer(l, pm, samples)
}

// ApplyUpdate routes a loader update into the CPU tier. Tile coordinates
// map one-to-one onto cache coordinates.
func (qc *QuadCache) ApplyUpdate(u *Update) {
	if u == nil {
		return
	}
	qc.SetLayer(u.Coord, u.Layer, wrapPixmap(u.Width, u.Height, u.Pixels), u.Samples)
}

// IsResident reports whether the coordinate is in the GPU working set.
func (qc *QuadCache) IsResident(c Coord) bool {
	_, ok := qc.resident[c]
	return ok
}

// Resident returns the current GPU working-set size.
func (qc *QuadCache) Resident() int {
	return len(qc.resident)
}

// GPUQuad returns the working-set record for a coordinate without touching
// its recency, or (nil, false) if not resident.
func (qc *QuadCache) GPUQuad(c Coord) (*GPUQuad, bool) {
	g, ok := qc.resident[c]
	return g, ok
}

// EnsureResident returns the GPU record for a coordinate, making it
// resident if needed.
//
// An already-resident quad has its recency refreshed and any dirty CPU
// layers re-uploaded. Otherwise, if the CPU record has data, one quad is
// evicted when at capacity, textures are allocated from the CPU layers,
// and the layers are marked clean. Returns nil when the CPU record has no
// data at all or the working set cannot admit the quad.
func (qc *QuadCache) EnsureResident(c Coord) *GPUQuad {
	if g, ok := qc.resident[c]; ok {
		g.lastUsed = qc.frame
		qc.uploadDirty(c, g)
		return g
	}
	cq, ok := qc.cpu[c]
	if !ok || !cq.HasData() {
		return nil
	}
	if len(qc.resident) >= qc.capacity {
		qc.evict(1, nil)
	}
	if len(qc.resident) >= qc.capacity {
		return nil
	}
	return qc.insert(c, cq)
}

// EnsureSetResident reconciles the working set against the required
// coordinate set for this frame: refreshes recency for required residents,
// evicts least-recently-used non-required quads to make room, then loads
// the missing required quads (those with CPU data) until capacity is
// exhausted.
func (qc *QuadCache) EnsureSetResident(required []Coord) {
	reqSet := make(map[Coord]struct{}, len(required))
	toLoad := make([]Coord, 0)

	for _, c := range required {
		if _, dup := reqSet[c]; dup {
			continue
		}
		reqSet[c] = struct{}{}
		if g, ok := qc.resident[c]; ok {
			g.lastUsed = qc.frame
			continue
		}
		if cq, ok := qc.cpu[c]; ok && cq.HasData() {
			toLoad = append(toLoad, c)
		}
	}

	deficit := len(qc.resident) + len(toLoad) - qc.capacity
	if deficit > 0 {
		qc.evictPreferring(deficit, reqSet)
	}

	// Deterministic fill order when capacity cannot admit every candidate.
	sort.Slice(toLoad, func(i, j int) bool { return toLoad[i].Less(toLoad[j]) })
	for _, c := range toLoad {
		if len(qc.resident) >= qc.capacity {
			break
		}
		qc.insert(c, qc.cpu[c])
	}
}

// EvictLRU evicts up to n quads with the smallest lastUsedFrame, skipping
// any coordinate in exclude. Ties break in row-major coordinate order so
// eviction is reproducible. Returns how many quads were evicted.
func (qc *QuadCache) EvictLRU(n int, exclude map[Coord]struct{}) int {
	return qc.evict(n, exclude)
}

func (qc *QuadCache) evict(n int, exclude map[Coord]struct{}) int {
	if n <= 0 {
		return 0
	}

	type candidate struct {
		coord Coord
		used  uint64
	}
	candidates := make([]candidate, 0, len(qc.resident))
	for c, g := range qc.resident {
		if _, skip := exclude[c]; skip {
			continue
		}
		candidates = append(candidates, candidate{coord: c, used: g.lastUsed})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].used != candidates[j].used {
			return candidates[i].used < candidates[j].used
		}
		return candidates[i].coord.Less(candidates[j].coord)
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	for _, cand := range candidates[:n] {
		qc.resident[cand.coord].release(qc.memory)
		delete(qc.resident, cand.coord)
		qc.evictions++
		Logger().Debug("tilemap: quad evicted",
			"coord", cand.coord.String(), "lastUsed", cand.used)
	}
	return n
}

// evictPreferring evicts n quads, choosing non-preferred coordinates
// first, then least-recently-used, then row-major coordinate order.
// Preferred quads are evicted only once every other quad is gone, which
// happens when the required set alone exceeds capacity.
func (qc *QuadCache) evictPreferring(n int, prefer map[Coord]struct{}) int {
	if n <= 0 {
		return 0
	}

	type candidate struct {
		coord     Coord
		used      uint64
		preferred bool
	}
	candidates := make([]candidate, 0, len(qc.resident))
	for c, g := range qc.resident {
		_, keep := prefer[c]
		candidates = append(candidates, candidate{coord: c, used: g.lastUsed, preferred: keep})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].preferred != candidates[j].preferred {
			return !candidates[i].preferred
		}
		if candidates[i].used != candidates[j].used {
			return candidates[i].used < candidates[j].used
		}
		return candidates[i].coord.Less(candidates[j].coord)
	})

	if n > len(candidates) {
		n = len(candidates)
	}
	for _, cand := range candidates[:n] {
		qc.resident[cand.coord].release(qc.memory)
		delete(qc.resident, cand.coord)
		qc.evictions++
		Logger().Debug("tilemap: quad evicted",
			"coord", cand.coord.String(), "lastUsed", cand.used)
	}
	return n
}

// RefreshDirty re-uploads the dirty CPU layers of every resident quad and
// clears their dirty flags. It handles tiles reloaded or patched after
// first upload without an eviction/reinsertion cycle.
func (qc *QuadCache) RefreshDirty() {
	for c, g := range qc.resident {
		qc.uploadDirty(c, g)
	}
}

// Clear releases every GPU quad, drops all CPU records, and resets the
// frame clock.
func (qc *QuadCache) Clear() {
	for _, g := range qc.resident {
		g.release(qc.memory)
	}
	qc.resident = make(map[Coord]*GPUQuad)
	qc.cpu = make(map[Coord]*CPUQuad)
	qc.frame = 0
}

// CoordsWithData appends every coordinate whose CPU record has data to dst
// and returns it, sorted in row-major order.
func (qc *QuadCache) CoordsWithData(dst []Coord) []Coord {
	for c, q := range qc.cpu {
		if q.HasData() {
			dst = append(dst, c)
		}
	}
	sort.Slice(dst, func(i, j int) bool { return dst[i].Less(dst[j]) })
	return dst
}

// Stats returns a snapshot of cache statistics.
func (qc *QuadCache) Stats() CacheStats {
	return CacheStats{
		CPUEntries: len(qc.cpu),
		Resident:   len(qc.resident),
		Capacity:   qc.capacity,
		Frame:      qc.frame,
		Uploads:    qc.uploads,
		Evictions:  qc.evictions,
		GPUBytes:   qc.memory.UsedBytes(),
	}
}

// insert makes a coordinate resident, uploading every CPU layer present.
// Caller guarantees cq has data and the working set is under capacity.
func (qc *QuadCache) insert(c Coord, cq *CPUQuad) *GPUQuad {
	g := &GPUQuad{lastUsed: qc.frame}
	for _, l := range AllLayers {
		if cq.layers[l] != nil {
			qc.uploadLayer(c, g, cq, l)
		}
	}
	qc.resident[c] = g
	return g
}

// uploadDirty re-uploads just the dirty layers of a resident quad.
func (qc *QuadCache) uploadDirty(c Coord, g *GPUQuad) {
	cq, ok := qc.cpu[c]
	if !ok || !cq.IsDirty() {
		return
	}
	for _, l := range AllLayers {
		if cq.dirty[l] && cq.layers[l] != nil {
			qc.uploadLayer(c, g, cq, l)
		}
	}
}

// uploadLayer pushes one CPU layer buffer into the quad's texture,
// allocating or reallocating the texture as needed, and clears the layer's
// dirty flag. Upload failures break the cache's residency invariants, so
// they are logged at error level and the layer is left dirty.
func (qc *QuadCache) uploadLayer(c Coord, g *GPUQuad, cq *CPUQuad, l Layer) {
	pm := cq.layers[l]
	tex := g.textures[l]

	if tex != nil && (tex.Width() != pm.Width() || tex.Height() != pm.Height()) {
		tex.Close()
		qc.memory.Release(tex)
		tex = nil
		g.textures[l] = nil
	}

	if tex == nil {
		t, err := gpu.Create(qc.creator, gpu.Config{
			Width:  pm.Width(),
			Height: pm.Height(),
			Label:  fmt.Sprintf("quad %s %s", c, l),
		}, pm.Data())
		if err != nil {
			Logger().Error("tilemap: texture allocation failed",
				"coord", c.String(), "layer", l.String(), "err", err)
			return
		}
		g.textures[l] = t
		qc.memory.Track(t)
	} else {
		if err := tex.Upload(pm.Data()); err != nil {
			Logger().Error("tilemap: texture upload failed",
				"coord", c.String(), "layer", l.String(), "err", err)
			return
		}
	}

	cq.dirty[l] = false
	qc.uploads++
}
