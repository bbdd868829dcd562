package core

// scheduler.go removes stored uploads nobody finished.
//
// Staged imports keep the file between requests, and a user may abandon a
// review without discarding it. The sweeper runs on start and then every
// interval; failures are logged and never stop the service.

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// SweepConfig holds configuration for the upload sweeper.
type SweepConfig struct {
	Retain   time.Duration // Age after which an upload is removed (default: 24h)
	Interval time.Duration // How often to run (default: 1h)
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.Retain <= 0 {
		c.Retain = 24 * time.Hour
	}
	if c.Interval <= 0 {
		c.Interval = time.Hour
	}
	return c
}

// StartUploadSweeper removes uploads older than cfg.Retain until ctx is
// cancelled.
func (s *Service) StartUploadSweeper(ctx context.Context, cfg SweepConfig) {
	cfg = cfg.withDefaults()
	slog.Info("upload sweeper started", "retain", cfg.Retain, "interval", cfg.Interval)

	s.sweepUploads(time.Now(), cfg.Retain)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("upload sweeper stopped")
			return
		case now := <-ticker.C:
			s.sweepUploads(now, cfg.Retain)
		}
	}
}

// sweepUploads removes uploads last modified before now-retain and returns
// how many it removed.
func (s *Service) sweepUploads(now time.Time, retain time.Duration) int {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		slog.Error("upload sweep failed", "error", err)
		return 0
	}

	cutoff := now.Add(-retain)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !SupportedExtension(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.uploadDir, e.Name())); err != nil {
			slog.Warn("remove stale upload", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		slog.Info("stale uploads removed", "count", removed)
	}
	return removed
}
