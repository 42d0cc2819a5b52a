// Package usage records token consumption per model call.
// Counts are aggregated by model and operation and persisted as JSON under
// the config directory with a debounced autosave.
package usage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"graphtutor/internal/logging"
)

const autoSaveDelay = 2 * time.Second

// Tracker manages token usage recording and persistence.
type Tracker struct {
	mu            sync.Mutex
	data          Data
	filePath      string
	dirty         bool
	autoSaveTimer *time.Timer
}

// NewTracker creates a tracker persisting under dir. Existing data is
// loaded; a corrupt or missing file starts empty.
func NewTracker(dir string) (*Tracker, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	t := &Tracker{
		filePath: filepath.Join(dir, "usage.json"),
		data: Data{
			Version: "1.0",
			Aggregate: AggregatedStats{
				ByModel:     make(map[string]TokenCounts),
				ByOperation: make(map[string]TokenCounts),
			},
		},
	}

	if err := t.load(); err != nil {
		logging.Get(logging.CategoryUsage).Warnw("usage data not loaded", "path", t.filePath, "error", err)
	}
	return t, nil
}

func (t *Tracker) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}
	if data.Aggregate.ByModel == nil {
		data.Aggregate.ByModel = make(map[string]TokenCounts)
	}
	if data.Aggregate.ByOperation == nil {
		data.Aggregate.ByOperation = make(map[string]TokenCounts)
	}
	t.data = data
	return nil
}

// Record adds one call's token counts.
func (t *Tracker) Record(model, operation string, prompt, output int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.Aggregate.Total.Add(prompt, output)
	addToMap(t.data.Aggregate.ByModel, model, prompt, output)
	addToMap(t.data.Aggregate.ByOperation, operation, prompt, output)
	t.dirty = true

	if t.autoSaveTimer != nil {
		t.autoSaveTimer.Stop()
	}
	t.autoSaveTimer = time.AfterFunc(autoSaveDelay, func() {
		if err := t.Save(); err != nil {
			logging.Get(logging.CategoryUsage).Warnw("usage autosave failed", "error", err)
		}
	})
}

// Save flushes pending counts to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	if !t.dirty {
		return nil
	}
	raw, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(t.filePath, raw, 0600); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// Snapshot returns a copy of the aggregated stats.
func (t *Tracker) Snapshot() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return AggregatedStats{
		Total:       t.data.Aggregate.Total,
		ByModel:     copyCounts(t.data.Aggregate.ByModel),
		ByOperation: copyCounts(t.data.Aggregate.ByOperation),
	}
}

// Close stops the autosave timer and flushes.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.autoSaveTimer != nil {
		t.autoSaveTimer.Stop()
		t.autoSaveTimer = nil
	}
	err := t.saveLocked()
	t.mu.Unlock()
	return err
}

func addToMap(m map[string]TokenCounts, key string, prompt, output int) {
	tc := m[key]
	tc.Add(prompt, output)
	m[key] = tc
}

func copyCounts(src map[string]TokenCounts) map[string]TokenCounts {
	dst := make(map[string]TokenCounts, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
