package tilemap

import "errors"

// DefaultDrainBatch bounds how many buffered updates the streamer applies
// per tick. The bound is the render thread's backpressure on the loader.
const DefaultDrainBatch = 10

// ErrNilCache is returned by NewStreamer when no cache is configured.
var ErrNilCache = errors.New("tilemap: streamer requires a cache")

// Culler decides whether a tile should be GPU-resident this tick.
//
// The streamer performs no viewport culling of its own; it keeps the whole
// loaded extent resident up to capacity. Culler is the plumbing point where
// frustum filtering can be inserted without changing the required-set
// contract.
type Culler interface {
	Visible(c Coord) bool
}

// StreamerConfig configures a Streamer.
type StreamerConfig struct {
	// Cache is the two-tier quad cache to reconcile. Required.
	Cache *QuadCache

	// Queue is the loader's update queue. Optional; when set, Tick drains
	// it before reconciling residency.
	Queue *UpdateQueue

	// DrainBatch bounds updates applied per tick.
	// Defaults to DefaultDrainBatch when <= 0.
	DrainBatch int

	// Culler optionally filters the required set. Nil keeps every loaded
	// tile resident.
	Culler Culler
}

// Streamer reconciles what should be GPU-resident against what currently
// is, once per render tick, minimizing uploads and evictions.
//
// Streamer must be used only from the thread that owns the GPU context.
type Streamer struct {
	cache      *QuadCache
	queue      *UpdateQueue
	drainBatch int
	culler     Culler

	required []Coord // reused across ticks
}

// NewStreamer creates a streaming coordinator over the given cache.
func NewStreamer(cfg StreamerConfig) (*Streamer, error) {
	if cfg.Cache == nil {
		return nil, ErrNilCache
	}
	batch := cfg.DrainBatch
	if batch <= 0 {
		batch = DefaultDrainBatch
	}
	return &Streamer{
		cache:      cfg.Cache,
		queue:      cfg.Queue,
		drainBatch: batch,
		culler:     cfg.Culler,
	}, nil
}

// Cache returns the underlying quad cache.
func (s *Streamer) Cache() *QuadCache {
	return s.cache
}

// ProcessUpdate routes one loader update into the CPU tier. Tile
// coordinates map one-to-one onto cache coordinates; no multi-tile
// assembly happens here.
func (s *Streamer) ProcessUpdate(u *Update) {
	s.cache.ApplyUpdate(u)
}

// Drain applies up to the configured batch of buffered updates and returns
// how many were applied. It is a no-op without a configured queue.
func (s *Streamer) Drain() int {
	if s.queue == nil {
		return 0
	}
	applied := 0
	for applied < s.drainBatch {
		u, ok := s.queue.TryPop()
		if !ok {
			break
		}
		s.ProcessUpdate(u)
		applied++
	}
	return applied
}

// UpdateVisibility reconciles GPU residency for this tick: it advances the
// frame clock, computes the required set as every coordinate with CPU data
// (filtered by the Culler when one is set), re-uploads dirty resident
// layers, and fills or evicts the working set to satisfy the requirement.
//
// The returned slice is the required set for the renderer to iterate; it is
// sorted in row-major order and reused on the next call.
func (s *Streamer) UpdateVisibility() []Coord {
	s.cache.TickFrame()

	s.required = s.cache.CoordsWithData(s.required[:0])
	if s.culler != nil {
		kept := s.required[:0]
		for _, c := range s.required {
			if s.culler.Visible(c) {
				kept = append(kept, c)
			}
		}
		s.required = kept
	}

	s.cache.RefreshDirty()
	s.cache.EnsureSetResident(s.required)
	return s.required
}

// Tick is the per-frame entry point for hosts: it drains a bounded batch of
// loader updates, then reconciles residency. It returns the required set.
func (s *Streamer) Tick() []Coord {
	s.Drain()
	return s.UpdateVisibility()
}
