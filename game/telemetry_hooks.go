package game

import (
	"log/slog"

	"github.com/pthm-cable/flockdraw/telemetry"
)

// flushTelemetry closes the stats window when due and routes it to slog and CSV.
func (g *Game) flushTelemetry() {
	tick := g.emitter.Tick()
	if !g.collector.ShouldFlush(tick) {
		return
	}

	g.speeds = g.emitter.Speeds(g.speeds[:0])
	stats := g.collector.Flush(tick, g.emitter.Len(), g.emitter.Groups(), g.speeds)
	perfStats := g.perf.Stats()

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}

		// Bookmarked moments are captured only for recorded runs
		if g.outputManager != nil {
			g.saveSnapshot(&bm)
		}
	}
}

// saveSnapshot writes the particle state to the output directory, or to
// ./snapshots when output is disabled. bookmark is nil for manual snapshots.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark) {
	snapshot := g.emitter.Snapshot(g.seed, g.image)
	snapshot.Bookmark = bookmark

	var (
		path string
		err  error
	)
	if g.outputManager != nil {
		path, err = g.outputManager.WriteSnapshot(snapshot)
	} else {
		path, err = telemetry.SaveSnapshot(snapshot, "snapshots")
	}
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}

	slog.Info("snapshot saved", "path", path, "tick", snapshot.Tick, "particles", len(snapshot.Particles))
}

// saveConfig persists the live, possibly GUI-tuned, configuration.
func (g *Game) saveConfig() {
	if err := g.cfg.WriteYAML(g.configPath); err != nil {
		slog.Error("failed to save config", "error", err)
		return
	}
	slog.Info("config saved", "path", g.configPath)
}
