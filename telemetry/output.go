package telemetry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/flockdraw/config"
)

// csvLog is an append-only CSV file whose header is written with the first row.
type csvLog struct {
	name          string
	file          *os.File
	headerWritten bool
}

func openCSV(dir, name string) (*csvLog, error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return &csvLog{name: name, file: f}, nil
}

// appendRows marshals rows, which must be a slice of csv-tagged structs.
func (l *csvLog) appendRows(rows any) error {
	marshal := gocsv.MarshalWithoutHeaders
	if !l.headerWritten {
		marshal = gocsv.Marshal
	}
	if err := marshal(rows, l.file); err != nil {
		return fmt.Errorf("writing %s: %w", l.name, err)
	}
	l.headerWritten = true
	return nil
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir       string
	telemetry *csvLog
	perf      *csvLog
	playlist  *csvLog
	bookmarks *csvLog
}

// PlaylistEvent records a surface switch.
type PlaylistEvent struct {
	Tick      int32   `csv:"tick"`
	SimTime   float64 `csv:"sim_time"`
	Image     string  `csv:"image"`
	Width     int     `csv:"width"`
	Height    int     `csv:"height"`
	Particles int     `csv:"particles"` // live particles before the switch
}

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled); all methods accept a nil receiver.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	for _, target := range []struct {
		log  **csvLog
		name string
	}{
		{&om.telemetry, "telemetry.csv"},
		{&om.perf, "perf.csv"},
		{&om.playlist, "playlist.csv"},
		{&om.bookmarks, "bookmarks.csv"},
	} {
		l, err := openCSV(dir, target.name)
		if err != nil {
			om.Close()
			return nil, err
		}
		*target.log = l
	}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry appends a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	return om.telemetry.appendRows([]WindowStats{stats})
}

// WritePerf appends a performance record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int32) error {
	if om == nil {
		return nil
	}
	return om.perf.appendRows([]PerfStatsCSV{stats.ToCSV(windowEnd)})
}

// WritePlaylistEvent appends a surface switch to playlist.csv.
func (om *OutputManager) WritePlaylistEvent(ev PlaylistEvent) error {
	if om == nil {
		return nil
	}
	return om.playlist.appendRows([]PlaylistEvent{ev})
}

// WriteBookmark appends a bookmark to bookmarks.csv.
func (om *OutputManager) WriteBookmark(b Bookmark) error {
	if om == nil {
		return nil
	}
	return om.bookmarks.appendRows([]Bookmark{b})
}

// WriteSnapshot saves a particle snapshot under the snapshots subdirectory.
func (om *OutputManager) WriteSnapshot(s *Snapshot) (string, error) {
	if om == nil {
		return "", nil
	}
	return SaveSnapshot(s, filepath.Join(om.dir, "snapshots"))
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var errs []error
	for _, l := range []*csvLog{om.telemetry, om.perf, om.playlist, om.bookmarks} {
		if l != nil {
			errs = append(errs, l.file.Close())
		}
	}
	return errors.Join(errs...)
}
