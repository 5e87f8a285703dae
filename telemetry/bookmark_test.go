package telemetry

import (
	"testing"
)

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_FlockFormed(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Scattered windows: mostly cohesion
	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{
			WindowEndTick: int32(i * 300),
			Particles:     100,
			Separations:   10,
			Alignments:    20,
			Cohesions:     70,
		})
	}

	// Alignment jumps to 0.7 against a 0.2 average
	bookmarks := bd.Check(WindowStats{
		WindowEndTick: 1500,
		Particles:     100,
		Separations:   10,
		Alignments:    70,
		Cohesions:     20,
	})
	if !hasBookmark(bookmarks, BookmarkFlockFormed) {
		t.Error("expected flock_formed bookmark")
	}
	if hasBookmark(bookmarks, BookmarkCrowding) {
		t.Error("unexpected crowding bookmark")
	}
}

func TestBookmarkDetector_Crowding(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{
			WindowEndTick: int32(i * 300),
			Particles:     100,
			Separations:   10,
			Alignments:    45,
			Cohesions:     45,
		})
	}

	bookmarks := bd.Check(WindowStats{
		WindowEndTick: 1500,
		Particles:     100,
		Separations:   60,
		Alignments:    20,
		Cohesions:     20,
	})
	if !hasBookmark(bookmarks, BookmarkCrowding) {
		t.Error("expected crowding bookmark")
	}
}

func TestBookmarkDetector_PopulationCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 300), Particles: 1500})
	}

	// Image switch kills everything but the new bursts
	bookmarks := bd.Check(WindowStats{WindowEndTick: 1500, Particles: 300})
	if !hasBookmark(bookmarks, BookmarkPopulationCrash) {
		t.Fatal("expected population_crash bookmark")
	}

	// Peak resets, so a steady count does not retrigger
	bookmarks = bd.Check(WindowStats{WindowEndTick: 1800, Particles: 300})
	if hasBookmark(bookmarks, BookmarkPopulationCrash) {
		t.Error("crash retriggered without a new drop")
	}
}

func TestBookmarkDetector_SmallDropIgnored(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := 0; i < 3; i++ {
		bd.Check(WindowStats{WindowEndTick: int32(i * 300), Particles: 12})
	}

	// 50% drop but fewer than 10 particles lost
	bookmarks := bd.Check(WindowStats{WindowEndTick: 900, Particles: 6})
	if hasBookmark(bookmarks, BookmarkPopulationCrash) {
		t.Error("expected no bookmark for a tiny population")
	}
}

func TestBookmarkDetector_SettledOnce(t *testing.T) {
	bd := NewBookmarkDetector(10)

	settled := 0
	for i := 0; i < 20; i++ {
		bookmarks := bd.Check(WindowStats{
			WindowEndTick: int32(i * 300),
			Particles:     500,
			SpeedMean:     12,
		})
		if hasBookmark(bookmarks, BookmarkSettled) {
			settled++
		}
	}
	if settled != 1 {
		t.Errorf("expected exactly one settled bookmark, got %d", settled)
	}
}

func TestBookmarkDetector_NoHistoryNoBookmarks(t *testing.T) {
	bd := NewBookmarkDetector(3)
	if got := bd.Check(WindowStats{Particles: 100, Separations: 100}); len(got) != 0 {
		t.Errorf("expected no bookmarks on first window, got %v", got)
	}
}

func TestWindowStatsShares(t *testing.T) {
	s, a, c := WindowStats{Separations: 1, Alignments: 1, Cohesions: 2}.Shares()
	if s != 0.25 || a != 0.25 || c != 0.5 {
		t.Errorf("unexpected shares %v %v %v", s, a, c)
	}
	if s, a, c := (WindowStats{GroupRepels: 10}).Shares(); s != 0 || a != 0 || c != 0 {
		t.Error("expected zero shares without same-group interactions")
	}
}
