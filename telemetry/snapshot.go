package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the particle state of one emitter at a point in time.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Tick    int32   `json:"tick"`
	SimTime float64 `json:"sim_time"`
	Label   string  `json:"label,omitempty"` // e.g. the source image name

	// Bookmark that triggered this snapshot (nil for manual snapshots)
	Bookmark *Bookmark `json:"bookmark,omitempty"`

	SurfaceWidth  int `json:"surface_width"`
	SurfaceHeight int `json:"surface_height"`

	Particles []ParticleState `json:"particles"`
}

// ParticleState holds one particle's state.
type ParticleState struct {
	ID    uint32 `json:"id"`
	Group int    `json:"group"`

	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	VelX float64 `json:"vel_x"`
	VelY float64 `json:"vel_y"`

	Spawn float64 `json:"spawn"`
	Death float64 `json:"death"`

	Radius float64  `json:"radius"`
	Color  [3]uint8 `json:"color"`
}

// SaveSnapshot writes a snapshot to dir and returns its path.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Label != "" {
		name += "_" + sanitize(snapshot.Label)
	}
	if snapshot.Bookmark != nil {
		name += "_" + string(snapshot.Bookmark.Type)
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snapshot.Version)
	}
	return &snapshot, nil
}

// sanitize keeps a label usable as part of a file name.
func sanitize(label string) string {
	label = strings.TrimSuffix(filepath.Base(label), filepath.Ext(label))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, label)
}
