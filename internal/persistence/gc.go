package persistence

import (
	"encoding/json"
	"time"
)

// CleanupOld evicts every room snapshot older than the configured
// retention window, run at startup and periodically (spec.md §3 Lifecycle
// "Rooms older than a configurable retention period... are garbage-collected
// at startup").
func (a *Adapter) CleanupOld() {
	keys, err := a.kv.List(a.prefix + "room:")
	if err != nil {
		a.logger.Printf("persistence: cleanup list failed: %v", err)
		return
	}
	cutoff := time.Now().Add(-a.retention)
	for _, key := range keys {
		data, err := a.kv.Get(key)
		if err != nil {
			continue
		}
		var snap struct {
			SavedAt int64 `json:"savedAt"`
		}
		if err := json.Unmarshal(data, &snap); err != nil {
			continue
		}
		if time.UnixMilli(snap.SavedAt).Before(cutoff) {
			if err := a.kv.Delete(key); err != nil {
				a.logger.Printf("persistence: cleanup delete failed key=%s: %v", key, err)
			}
		}
	}
}

// RunPeriodicCleanup launches a goroutine that calls CleanupOld once at
// startup and then every interval until stop is closed.
func (a *Adapter) RunPeriodicCleanup(interval time.Duration, stop <-chan struct{}) {
	a.CleanupOld()
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				a.CleanupOld()
			}
		}
	}()
}
