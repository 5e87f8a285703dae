package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkFlockFormed     BookmarkType = "flock_formed"
	BookmarkCrowding        BookmarkType = "crowding"
	BookmarkPopulationCrash BookmarkType = "population_crash"
	BookmarkSettled         BookmarkType = "settled"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int32        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// Shares returns the fraction of same-group interactions in each band.
// All zero when the window had no same-group interactions.
func (s WindowStats) Shares() (separation, alignment, cohesion float64) {
	total := float64(s.Separations + s.Alignments + s.Cohesions)
	if total == 0 {
		return 0, 0, 0
	}
	return float64(s.Separations) / total, float64(s.Alignments) / total, float64(s.Cohesions) / total
}

// BookmarkDetector detects interesting moments in the simulation.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	recentPeak         int // peak particle count since the last crash
	stableWindowsCount int // consecutive windows with steady population and speed
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5 // minimum for settled detection
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if bd.historyFull || bd.historyIdx > 0 {
		// Flock formed: alignment share > 1.5x rolling average
		if b := bd.checkFlockFormed(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Crowding: separation share > 2x rolling average
		if b := bd.checkCrowding(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Population crash: dropped >30% from recent peak
		if b := bd.checkPopulationCrash(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}

		// Settled: population and speed steady over 5+ windows
		if b := bd.checkSettled(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)

	if stats.Particles > bd.recentPeak {
		bd.recentPeak = stats.Particles
	}

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// averageShares returns the mean band shares over the history.
func (bd *BookmarkDetector) averageShares() (separation, alignment float64, n int) {
	for _, h := range bd.getHistory() {
		s, a, _ := h.Shares()
		separation += s
		alignment += a
		n++
	}
	if n > 0 {
		separation /= float64(n)
		alignment /= float64(n)
	}
	return separation, alignment, n
}

func (bd *BookmarkDetector) checkFlockFormed(stats WindowStats) *Bookmark {
	_, avgAlign, n := bd.averageShares()
	if n < 3 || avgAlign == 0 {
		return nil
	}

	_, align, _ := stats.Shares()
	if align > avgAlign*1.5 && align > 0.5 && stats.Alignments >= 20 {
		return &Bookmark{
			Type:        BookmarkFlockFormed,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Alignment share %.2f is %.1fx average (%.2f)", align, align/avgAlign, avgAlign),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkCrowding(stats WindowStats) *Bookmark {
	avgSep, _, n := bd.averageShares()
	if n < 3 || avgSep == 0 {
		return nil
	}

	sep, _, _ := stats.Shares()
	if sep > avgSep*2.0 && stats.Separations >= 20 {
		return &Bookmark{
			Type:        BookmarkCrowding,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Separation share %.2f is %.1fx average (%.2f)", sep, sep/avgSep, avgSep),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkPopulationCrash(stats WindowStats) *Bookmark {
	if bd.recentPeak == 0 {
		return nil
	}

	dropPercent := 1.0 - float64(stats.Particles)/float64(bd.recentPeak)
	if dropPercent > 0.30 && stats.Particles < bd.recentPeak-10 {
		// Reset peak after crash
		oldPeak := bd.recentPeak
		bd.recentPeak = stats.Particles

		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Particles dropped %.0f%% from peak %d to %d", dropPercent*100, oldPeak, stats.Particles),
		}
	}

	return nil
}

func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	if stats.Particles < 10 {
		bd.stableWindowsCount = 0
		return nil
	}

	history := bd.getHistory()
	if len(history) < 4 {
		return nil
	}

	// Last four windows, newest first
	recent := make([]WindowStats, 0, 4)
	for i := 1; i <= 4; i++ {
		recent = append(recent, bd.history[(bd.historyIdx-i+bd.historySize)%bd.historySize])
	}

	var countSum, speedSum float64
	for _, h := range recent {
		countSum += float64(h.Particles)
		speedSum += h.SpeedMean
	}
	countMean := countSum / 4
	speedMean := speedSum / 4

	var countVar, speedVar float64
	for _, h := range recent {
		dc := float64(h.Particles) - countMean
		ds := h.SpeedMean - speedMean
		countVar += dc * dc
		speedVar += ds * ds
	}
	countVar /= 4
	speedVar /= 4

	countCV := 0.0
	if countMean > 0 {
		countCV = countVar / (countMean * countMean)
	}
	speedCV := 0.0
	if speedMean > 0 {
		speedCV = speedVar / (speedMean * speedMean)
	}

	if countCV < 0.04 && speedCV < 0.04 { // CV^2 < 0.04 means CV < 0.2
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == 5 { // trigger exactly once at 5 windows
		return &Bookmark{
			Type:        BookmarkSettled,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Settled with %d particles at mean speed %.2f over 5+ windows", stats.Particles, stats.SpeedMean),
		}
	}

	return nil
}
