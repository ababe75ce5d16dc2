// Package tilemap streams a fixed 64x64 grid of terrain tiles into bounded
// GPU memory while a host application pans and zooms a viewport.
//
// # Overview
//
// A background [Loader] discovers which tiles exist, computes global
// normalization statistics, visits tiles in spiral order from the grid
// center, decodes each requested layer, and hands completed updates to the
// render thread through an [UpdateQueue]. A [QuadCache] keeps an unbounded
// CPU-resident authoritative store and a capacity-bounded GPU working set
// with least-recently-used eviction, and a [Streamer] reconciles the two
// once per render tick.
//
// # Quick Start
//
//	loader, _ := tilemap.NewLoader(tilemap.LoaderConfig{Source: src})
//	cache := tilemap.NewQuadCache(tilemap.CacheConfig{Creator: creator})
//	streamer, _ := tilemap.NewStreamer(tilemap.StreamerConfig{
//	    Cache: cache,
//	    Queue: loader.Queue(),
//	})
//
//	loader.Start("world", nil) // nil = every layer
//
//	// Each render tick, on the thread owning the GPU context:
//	for _, c := range streamer.Tick() {
//	    quad, _ := cache.GPUQuad(c)
//	    // composite quad.Texture(layer) at c.WorldPos()
//	}
//
// # Concurrency
//
// Two threads of control: one background worker per loading run performs
// all IO and decode work; the render thread drains the queue in bounded
// batches and is the sole mutator of the cache. Only the queue is safe for
// concurrent access. Starting a new run cancels and fully tears down the
// previous one; at most one run is ever active.
//
// # Known limitation
//
// The required set is every tile with CPU data: no viewport culling is
// performed, so GPU capacity should cover the loaded extent or eviction
// churn occurs on tiles that are still visible. The [Culler] hook on
// [StreamerConfig] is the insertion point for frustum filtering.
package tilemap
