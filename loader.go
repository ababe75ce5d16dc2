package tilemap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// EventKind classifies a loading-run notification.
type EventKind uint8

const (
	// EventCompleted fires when a run visits every valid tile to the end.
	EventCompleted EventKind = iota

	// EventCancelled fires when a run is torn down by Cancel, Close, or a
	// superseding Start. Cancellation is not an error and supersedes any
	// completion or failure notification for the same run.
	EventCancelled

	// EventFailed fires on a run-level terminal error, such as an
	// unresolvable tile set. Per-tile decode failures never fail a run.
	EventFailed
)

// String returns a human-readable name for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventCompleted:
		return "completed"
	case EventCancelled:
		return "cancelled"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a loading-run lifecycle notification. Err is non-nil only for
// EventFailed.
type Event struct {
	Kind EventKind
	Err  error
}

// Loader defaults.
const (
	// DefaultScanParallelism bounds the workers of the global elevation
	// range scan.
	DefaultScanParallelism = 4

	// shutdownWait bounds how long teardown waits for the background
	// goroutine's cooperative exit before giving up on it.
	shutdownWait = 5 * time.Second
)

// ErrNilSource is returned by NewLoader when no Source is configured.
var ErrNilSource = errors.New("tilemap: loader requires a source")

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	// Source supplies raw tile data. Required.
	Source Source

	// Queue receives completed updates. A fresh queue is created when nil.
	Queue *UpdateQueue

	// OnEvent, if set, receives run lifecycle notifications. It is called
	// from the background goroutine; implementations must not block.
	OnEvent func(Event)

	// TileResolution fixes the Base layer resolution. When 0 it is
	// detected from the first base asset found, falling back to
	// DefaultTileResolution.
	TileResolution int

	// ScanParallelism bounds the elevation range scan workers.
	// Defaults to DefaultScanParallelism when <= 0.
	ScanParallelism int
}

// Loader owns one cancellable background loading run at a time.
//
// A run discovers valid tiles, computes the global elevation range, visits
// tiles in spiral order from the grid center, decodes each requested layer,
// and enqueues one Update per completed decode. Starting a new run cancels
// and fully tears down any previous run first; at most one run is ever
// active.
//
// All file IO and decode work happens on the background goroutine. The
// consumer drains updates with TryDequeue (or directly from the queue) on
// the render thread.
type Loader struct {
	source          Source
	queue           *UpdateQueue
	onEvent         func(Event)
	tileResolution  int
	scanParallelism int

	progressBits atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoader creates an idle loader. Call Start to begin a run.
func NewLoader(cfg LoaderConfig) (*Loader, error) {
	if cfg.Source == nil {
		return nil, ErrNilSource
	}
	queue := cfg.Queue
	if queue == nil {
		queue = NewUpdateQueue()
	}
	parallelism := cfg.ScanParallelism
	if parallelism <= 0 {
		parallelism = DefaultScanParallelism
	}
	return &Loader{
		source:          cfg.Source,
		queue:           queue,
		onEvent:         cfg.OnEvent,
		tileResolution:  cfg.TileResolution,
		scanParallelism: parallelism,
	}, nil
}

// Queue returns the update queue the loader writes into.
func (l *Loader) Queue() *UpdateQueue {
	return l.queue
}

// TryDequeue removes and returns the oldest buffered update without
// blocking. It returns (nil, false) when none is buffered.
func (l *Loader) TryDequeue() (*Update, bool) {
	return l.queue.TryPop()
}

// Progress returns the fraction of decode units finished by the current
// run, in [0, 1]. It is monotonic within a run and resets to 0 on Start
// and Cancel.
func (l *Loader) Progress() float64 {
	return math.Float64frombits(l.progressBits.Load())
}

// Start cancels any in-flight run, resets progress, and launches a new run
// loading the given layers from the tile set identified by tileSetID.
// An empty layers slice loads every layer.
func (l *Loader) Start(tileSetID string, layers []Layer) {
	requested := normalizeLayers(layers)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done

	Logger().Info("tilemap: loading run started",
		"tileSet", tileSetID, "layers", len(requested))
	go l.run(ctx, done, tileSetID, requested)
}

// Cancel requests cooperative cancellation of the in-flight run, awaits its
// exit, discards all buffered updates, and resets progress to 0.
// Cancel is a no-op when no run is active.
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopLocked()
}

// Close tears down the loader. Equivalent to Cancel; provided so hosts can
// treat the loader as an io.Closer-style resource at shutdown.
func (l *Loader) Close() {
	l.Cancel()
}

// stopLocked cancels the active run and waits (bounded) for the background
// goroutine to unwind before draining shared state, so a dangling write
// never lands in a torn-down session. Caller must hold l.mu.
func (l *Loader) stopLocked() {
	if l.cancel != nil {
		l.cancel()
		select {
		case <-l.done:
		case <-time.After(shutdownWait):
			Logger().Warn("tilemap: background run did not exit within shutdown wait")
		}
		l.cancel = nil
		l.done = nil
	}
	if n := l.queue.Drain(); n > 0 {
		Logger().Debug("tilemap: discarded buffered updates", "count", n)
	}
	l.setProgress(0)
}

func (l *Loader) setProgress(p float64) {
	l.progressBits.Store(math.Float64bits(p))
}

// emit delivers a run notification. A tripped context supersedes any
// completion or failure with a cancellation notification.
func (l *Loader) emit(ctx context.Context, ev Event) {
	if ctx.Err() != nil {
		ev = Event{Kind: EventCancelled}
	}
	switch ev.Kind {
	case EventFailed:
		Logger().Warn("tilemap: loading run failed", "err", ev.Err)
	default:
		Logger().Info("tilemap: loading run finished", "result", ev.Kind.String())
	}
	if l.onEvent != nil {
		l.onEvent(ev)
	}
}

// run is the body of one background loading run.
func (l *Loader) run(ctx context.Context, done chan struct{}, tileSetID string, layers []Layer) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			l.emit(ctx, Event{Kind: EventFailed, Err: fmt.Errorf("tilemap: loading run panic: %v", r)})
		}
	}()

	ts, err := l.source.Resolve(tileSetID)
	if err != nil {
		l.emit(ctx, Event{Kind: EventFailed, Err: fmt.Errorf("tilemap: resolve %q: %w", tileSetID, err)})
		return
	}

	resolution := l.tileResolution
	if resolution <= 0 {
		resolution = detectBaseResolution(ctx, ts)
	}

	var globalMin, globalMax float32
	hasGlobal := false
	if containsLayer(layers, LayerElevation) {
		globalMin, globalMax, hasGlobal = scanElevationRange(ctx, ts, l.scanParallelism)
	}
	if ctx.Err() != nil {
		l.emit(ctx, Event{Kind: EventCancelled})
		return
	}

	order := SpiralOrder(func(c Coord) bool { return validCell(ts, c) })
	decoders := buildDecoders(layers, resolution, globalMin, globalMax, hasGlobal)
	total := len(order) * len(decoders)

	completed := 0
	for _, c := range order {
		if ctx.Err() != nil {
			l.emit(ctx, Event{Kind: EventCancelled})
			return
		}
		for _, d := range decoders {
			if ctx.Err() != nil {
				l.emit(ctx, Event{Kind: EventCancelled})
				return
			}
			u, err := d.decode(ts, c)
			if err != nil {
				// Best-effort map: a tile or layer that fails to decode
				// is skipped without failing the run.
				Logger().Debug("tilemap: layer skipped",
					"coord", c.String(), "layer", d.layer().String(), "err", err)
			} else {
				l.queue.Push(u)
			}
			completed++
			l.setProgress(float64(completed) / float64(total))
		}
	}

	l.setProgress(1)
	l.emit(ctx, Event{Kind: EventCompleted})
}

// detectBaseResolution finds the Base layer resolution from the first cell
// whose base asset exists and decodes, falling back to
// DefaultTileResolution when none does.
func detectBaseResolution(ctx context.Context, ts TileSet) int {
	for i := 0; i < GridTiles; i++ {
		if ctx.Err() != nil {
			return DefaultTileResolution
		}
		c := CoordFromIndex(i)
		if !ts.HasBase(c) {
			continue
		}
		pm, err := ts.Base(c)
		if err != nil || pm.Width() <= 0 {
			continue
		}
		return pm.Width()
	}
	return DefaultTileResolution
}

// scanElevationRange makes one full pass over the grid to establish the
// global elevation range used for normalization. Tiles that fail to decode
// are skipped and do not affect the range; hasGlobal is false when no tile
// contributed.
func scanElevationRange(ctx context.Context, ts TileSet, parallelism int) (lo, hi float32, hasGlobal bool) {
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i := 0; i < GridTiles; i++ {
		c := CoordFromIndex(i)
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			samples, err := ts.Elevation(c)
			if err != nil || len(samples) == 0 {
				return nil
			}
			slo, shi := sampleRange(samples)
			mu.Lock()
			if !hasGlobal {
				lo, hi, hasGlobal = slo, shi, true
			} else {
				if slo < lo {
					lo = slo
				}
				if shi > hi {
					hi = shi
				}
			}
			mu.Unlock()
			return nil
		})
	}
	//nolint:errcheck // only context errors escape; the caller re-checks ctx
	_ = g.Wait()
	return lo, hi, hasGlobal
}

// normalizeLayers filters invalid layers, deduplicates, and orders the
// request in render order. An empty request means every layer.
func normalizeLayers(layers []Layer) []Layer {
	if len(layers) == 0 {
		return AllLayers[:]
	}
	out := make([]Layer, 0, layerCount)
	for _, l := range AllLayers {
		if containsLayer(layers, l) && l.valid() {
			out = append(out, l)
		}
	}
	return out
}
