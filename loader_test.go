package tilemap

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTileSet is an in-memory TileSet. Layer maps are read-only after
// construction, so concurrent access from the elevation scan is safe.
type fakeTileSet struct {
	base    map[Coord]*Pixmap
	elev    map[Coord][]float32
	regions map[Coord][]uint32

	// When blockAt > 0, the blockAt-th Base call closes entered and then
	// parks on gate, letting tests cancel a run mid-flight deterministically.
	blockAt     int32
	baseCalls   atomic.Int32
	enteredOnce sync.Once
	entered     chan struct{}
	gate        chan struct{}
}

func (ts *fakeTileSet) HasTerrain(c Coord) bool {
	return ts.elev[c] != nil || ts.regions[c] != nil
}

func (ts *fakeTileSet) HasBase(c Coord) bool {
	_, ok := ts.base[c]
	return ok
}

func (ts *fakeTileSet) Base(c Coord) (*Pixmap, error) {
	if n := ts.baseCalls.Add(1); ts.blockAt > 0 && n == ts.blockAt {
		ts.enteredOnce.Do(func() { close(ts.entered) })
		<-ts.gate
	}
	pm, ok := ts.base[c]
	if !ok {
		return nil, ErrAbsent
	}
	return pm, nil
}

func (ts *fakeTileSet) Elevation(c Coord) ([]float32, error) {
	s, ok := ts.elev[c]
	if !ok {
		return nil, ErrAbsent
	}
	return s, nil
}

func (ts *fakeTileSet) Regions(c Coord) ([]uint32, error) {
	ids, ok := ts.regions[c]
	if !ok {
		return nil, ErrAbsent
	}
	return ids, nil
}

type fakeSource struct {
	sets map[string]TileSet
}

func (s fakeSource) Resolve(id string) (TileSet, error) {
	ts, ok := s.sets[id]
	if !ok {
		return nil, ErrTileSetNotFound
	}
	return ts, nil
}

func solidPixmap(size int, r, g, b uint8) *Pixmap {
	pm := NewPixmap(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			pm.SetRGBA(x, y, r, g, b, 255)
		}
	}
	return pm
}

func newTestLoader(t *testing.T, ts TileSet) (*Loader, <-chan Event) {
	t.Helper()
	events := make(chan Event, 16)
	l, err := NewLoader(LoaderConfig{
		Source:  fakeSource{sets: map[string]TileSet{"world": ts}},
		OnEvent: func(ev Event) { events <- ev },
	})
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	t.Cleanup(l.Close)
	return l, events
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for loader event")
		return Event{}
	}
}

func TestNewLoader_NilSource(t *testing.T) {
	if _, err := NewLoader(LoaderConfig{}); !errors.Is(err, ErrNilSource) {
		t.Errorf("NewLoader(no source) error = %v, want ErrNilSource", err)
	}
}

func TestLoader_CompletesAndEnqueues(t *testing.T) {
	ts := &fakeTileSet{
		base: map[Coord]*Pixmap{
			{5, 5}: solidPixmap(4, 10, 20, 30),
			{6, 5}: solidPixmap(4, 40, 50, 60),
		},
		elev:    map[Coord][]float32{{5, 5}: {0, 10}},
		regions: map[Coord][]uint32{{5, 5}: {1, 2}},
	}
	l, events := newTestLoader(t, ts)

	l.Start("world", nil)
	if ev := waitEvent(t, events); ev.Kind != EventCompleted {
		t.Fatalf("event = %v, want completed", ev.Kind)
	}
	if got := l.Progress(); got != 1 {
		t.Errorf("Progress() after completion = %v, want 1", got)
	}

	// (5,5) contributes all three layers, (6,5) only base.
	got := make(map[Coord][]Layer)
	for {
		u, ok := l.TryDequeue()
		if !ok {
			break
		}
		got[u.Coord] = append(got[u.Coord], u.Layer)
		if u.Layer == LayerBase {
			// Base resolution was detected from the 4x4 assets.
			if u.Width != 4 || u.Height != 4 {
				t.Errorf("base update for %v is %dx%d, want 4x4", u.Coord, u.Width, u.Height)
			}
		}
	}
	if len(got[Coord{5, 5}]) != 3 {
		t.Errorf("layers for (5,5) = %v, want all three", got[Coord{5, 5}])
	}
	if len(got[Coord{6, 5}]) != 1 || got[Coord{6, 5}][0] != LayerBase {
		t.Errorf("layers for (6,5) = %v, want base only", got[Coord{6, 5}])
	}
}

func TestLoader_GlobalNormalization(t *testing.T) {
	// Two tiles with local ranges [0,100] and [50,200]: the global range
	// is [0,200], so raw 100 normalizes to 0.5 in either tile.
	ts := &fakeTileSet{
		elev: map[Coord][]float32{
			{1, 1}: {0, 100},
			{2, 1}: {50, 200},
		},
	}
	l, events := newTestLoader(t, ts)

	l.Start("world", []Layer{LayerElevation})
	if ev := waitEvent(t, events); ev.Kind != EventCompleted {
		t.Fatalf("event = %v, want completed", ev.Kind)
	}

	byCoord := make(map[Coord]*Update)
	for {
		u, ok := l.TryDequeue()
		if !ok {
			break
		}
		byCoord[u.Coord] = u
	}

	a := byCoord[Coord{1, 1}]
	if a == nil {
		t.Fatal("no elevation update for (1,1)")
	}
	// Raw 100 is the second sample: gray value 0.5*255 rounded.
	if g := a.Pixels[4]; g != 128 {
		t.Errorf("normalized gray for raw 100 = %d, want 128", g)
	}
	if a.Samples[1] != 100 {
		t.Errorf("raw sample retained = %v, want 100", a.Samples[1])
	}

	b := byCoord[Coord{2, 1}]
	if b == nil {
		t.Fatal("no elevation update for (2,1)")
	}
	// Raw 200 is the global maximum.
	if g := b.Pixels[4]; g != 255 {
		t.Errorf("normalized gray for raw 200 = %d, want 255", g)
	}
}

func TestLoader_MissingRoot(t *testing.T) {
	events := make(chan Event, 1)
	l, err := NewLoader(LoaderConfig{
		Source:  fakeSource{sets: map[string]TileSet{}},
		OnEvent: func(ev Event) { events <- ev },
	})
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	t.Cleanup(l.Close)

	l.Start("nowhere", nil)
	ev := waitEvent(t, events)
	if ev.Kind != EventFailed {
		t.Fatalf("event = %v, want failed", ev.Kind)
	}
	if !errors.Is(ev.Err, ErrTileSetNotFound) {
		t.Errorf("event error = %v, want ErrTileSetNotFound", ev.Err)
	}
	if got := l.Progress(); got != 0 {
		t.Errorf("Progress() after failure = %v, want 0", got)
	}
}

func TestLoader_CancelDrainsBufferedUpdates(t *testing.T) {
	// Three base-only tiles. Base call #1 is resolution detection; calls
	// #2 and #3 decode and enqueue; call #4 parks on the gate so the run
	// is mid-flight with buffered updates when Cancel fires.
	ts := &fakeTileSet{
		base: map[Coord]*Pixmap{
			{10, 10}: solidPixmap(4, 1, 1, 1),
			{11, 10}: solidPixmap(4, 2, 2, 2),
			{12, 10}: solidPixmap(4, 3, 3, 3),
		},
		blockAt: 4,
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	l, events := newTestLoader(t, ts)

	l.Start("world", []Layer{LayerBase})
	<-ts.entered

	if l.Queue().Len() == 0 {
		t.Fatal("expected buffered updates before cancellation")
	}

	// Release the parked decode shortly after Cancel has tripped the
	// context, so the worker unwinds through the cancellation path.
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(ts.gate)
	}()
	l.Cancel()

	if ev := waitEvent(t, events); ev.Kind != EventCancelled {
		t.Fatalf("event = %v, want cancelled", ev.Kind)
	}
	if _, ok := l.TryDequeue(); ok {
		t.Error("TryDequeue after Cancel should report empty")
	}
	if got := l.Progress(); got != 0 {
		t.Errorf("Progress() after Cancel = %v, want 0", got)
	}
}

func TestLoader_StartSupersedesRun(t *testing.T) {
	ts := &fakeTileSet{
		base: map[Coord]*Pixmap{
			{20, 20}: solidPixmap(4, 1, 1, 1),
		},
		blockAt: 1,
		entered: make(chan struct{}),
		gate:    make(chan struct{}),
	}
	l, events := newTestLoader(t, ts)

	l.Start("world", []Layer{LayerBase})
	<-ts.entered

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(ts.gate)
	}()
	l.Start("world", []Layer{LayerBase})

	first := waitEvent(t, events)
	if first.Kind != EventCancelled {
		t.Fatalf("first event = %v, want cancelled", first.Kind)
	}
	second := waitEvent(t, events)
	if second.Kind != EventCompleted {
		t.Fatalf("second event = %v, want completed", second.Kind)
	}
}
