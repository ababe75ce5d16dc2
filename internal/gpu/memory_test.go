package gpu

import "testing"

func trackedTexture(t *testing.T, w, h int) *Texture {
	t.Helper()
	tex, err := Create(nil, Config{Width: w, Height: h}, rgba(w, h))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return tex
}

func TestMemoryTracker_TrackRelease(t *testing.T) {
	m := NewMemoryTracker(1)
	a := trackedTexture(t, 8, 8) // 256 bytes
	b := trackedTexture(t, 4, 4) // 64 bytes

	m.Track(a)
	m.Track(b)

	stats := m.Stats()
	if stats.UsedBytes != 320 {
		t.Errorf("UsedBytes = %d, want 320", stats.UsedBytes)
	}
	if stats.Textures != 2 {
		t.Errorf("Textures = %d, want 2", stats.Textures)
	}
	if stats.PeakBytes != 320 {
		t.Errorf("PeakBytes = %d, want 320", stats.PeakBytes)
	}

	m.Release(a)
	if got := m.UsedBytes(); got != 64 {
		t.Errorf("UsedBytes after release = %d, want 64", got)
	}
	// Peak survives releases.
	if got := m.Stats().PeakBytes; got != 320 {
		t.Errorf("PeakBytes after release = %d, want 320", got)
	}

	m.Release(b)
	stats = m.Stats()
	if stats.UsedBytes != 0 || stats.Textures != 0 {
		t.Errorf("tracker not empty: %s", stats)
	}
}

func TestMemoryTracker_OverBudget(t *testing.T) {
	m := NewMemoryTracker(1) // 1 MB
	if m.OverBudget() {
		t.Error("empty tracker reports over budget")
	}

	tex := trackedTexture(t, 1024, 512) // 2 MB
	m.Track(tex)
	if !m.OverBudget() {
		t.Error("expected over budget after 2 MB allocation")
	}
	if got := m.Stats().Utilization; got <= 1.0 {
		t.Errorf("Utilization = %v, want > 1.0", got)
	}
}

func TestMemoryTracker_NilSafe(t *testing.T) {
	var m *MemoryTracker
	m.Track(nil)
	m.Release(nil)
	if m.UsedBytes() != 0 || m.OverBudget() {
		t.Error("nil tracker should report zero usage")
	}
	if got := m.Stats(); got != (MemoryStats{}) {
		t.Errorf("nil tracker stats = %+v", got)
	}
}

func TestMemoryTracker_DefaultBudget(t *testing.T) {
	m := NewMemoryTracker(0)
	if got := m.Stats().BudgetBytes; got != DefaultBudgetMB*1024*1024 {
		t.Errorf("BudgetBytes = %d, want %d", got, DefaultBudgetMB*1024*1024)
	}
}
