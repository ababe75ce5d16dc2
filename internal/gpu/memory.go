package gpu

import (
	"fmt"
	"sync"
)

// Default memory budget.
const (
	// DefaultBudgetMB is the default texture memory budget (256 MB).
	DefaultBudgetMB = 256
)

// MemoryStats contains texture memory usage statistics.
type MemoryStats struct {
	// BudgetBytes is the configured memory budget in bytes.
	BudgetBytes uint64

	// UsedBytes is the currently allocated texture memory in bytes.
	UsedBytes uint64

	// PeakBytes is the highest UsedBytes observed.
	PeakBytes uint64

	// Textures is the number of live textures.
	Textures int

	// Utilization is the fraction of budget used (0.0 to 1.0).
	Utilization float64
}

// String returns a human-readable string of memory stats.
func (s MemoryStats) String() string {
	return fmt.Sprintf("Memory[%.1f%% used, %d/%d KB, peak %d KB, %d textures]",
		s.Utilization*100,
		s.UsedBytes/1024,
		s.BudgetBytes/1024,
		s.PeakBytes/1024,
		s.Textures)
}

// MemoryTracker accounts for texture memory owned by one cache. The budget
// is advisory: the tracker reports utilization so the owner can size its
// working set, but never blocks an allocation itself.
//
// MemoryTracker is safe for concurrent use. Logical textures are tracked at
// the size their device allocation would have, so headless runs report the
// same numbers as hardware runs.
type MemoryTracker struct {
	mu sync.Mutex

	budgetBytes uint64
	usedBytes   uint64
	peakBytes   uint64
	textures    int
}

// NewMemoryTracker creates a tracker with the given budget in megabytes.
// A non-positive budget selects DefaultBudgetMB.
func NewMemoryTracker(budgetMB int) *MemoryTracker {
	if budgetMB <= 0 {
		budgetMB = DefaultBudgetMB
	}
	return &MemoryTracker{budgetBytes: uint64(budgetMB) * 1024 * 1024}
}

// Track records a newly created texture.
func (m *MemoryTracker) Track(t *Texture) {
	if m == nil || t == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usedBytes += t.SizeBytes()
	m.textures++
	if m.usedBytes > m.peakBytes {
		m.peakBytes = m.usedBytes
	}
	if m.usedBytes > m.budgetBytes {
		slogger().Warn("gpu: texture memory over budget",
			"used", m.usedBytes, "budget", m.budgetBytes)
	}
}

// Release records that a texture has been closed.
func (m *MemoryTracker) Release(t *Texture) {
	if m == nil || t == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	size := t.SizeBytes()
	if size > m.usedBytes {
		size = m.usedBytes
	}
	m.usedBytes -= size
	if m.textures > 0 {
		m.textures--
	}
}

// UsedBytes returns the currently tracked texture memory.
func (m *MemoryTracker) UsedBytes() uint64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usedBytes
}

// OverBudget reports whether tracked memory exceeds the budget.
func (m *MemoryTracker) OverBudget() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usedBytes > m.budgetBytes
}

// Stats returns a snapshot of memory statistics.
func (m *MemoryTracker) Stats() MemoryStats {
	if m == nil {
		return MemoryStats{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	util := 0.0
	if m.budgetBytes > 0 {
		util = float64(m.usedBytes) / float64(m.budgetBytes)
	}
	return MemoryStats{
		BudgetBytes: m.budgetBytes,
		UsedBytes:   m.usedBytes,
		PeakBytes:   m.peakBytes,
		Textures:    m.textures,
		Utilization: util,
	}
}
