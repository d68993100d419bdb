package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prtcl-go/prtcl/archive"
	"github.com/prtcl-go/prtcl/model"
)

// SnapshotVersion is incremented when the on-disk layout changes.
const SnapshotVersion = 1

// SnapshotMeta is the header written before the archived model: just
// enough to resume a run (tick, simulated time, the RNG seed a
// deterministic re-run needs) without re-deriving it from the scene
// config.
type SnapshotMeta struct {
	Version    uint64
	RNGSeed    int64
	Tick       int32
	SimTimeSec float64
}

// SaveSnapshot archives m's complete particle state to dir, prefixed
// by meta, and returns the file path written. The model itself is
// serialized with the versionless native binary format archive.Save
// uses for in-process checkpointing; SnapshotMeta is the only part of
// this format that carries a version number, since it is the only
// part a future reader needs to interpret before delegating to
// archive.Load.
func SaveSnapshot(meta SnapshotMeta, m *model.Model, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	meta.Version = SnapshotVersion
	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.bin", meta.Tick))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create snapshot file: %w", err)
	}
	defer f.Close()

	aw := archive.NewWriter(f)
	aw.WriteUint64(meta.Version)
	aw.WriteInt64(meta.RNGSeed)
	aw.WriteInt64(int64(meta.Tick))
	aw.WriteFloat64(meta.SimTimeSec)
	if err := aw.Err(); err != nil {
		return "", fmt.Errorf("write snapshot header: %w", err)
	}

	if err := archive.Save(f, m); err != nil {
		return "", fmt.Errorf("write snapshot model: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot.
func LoadSnapshot(path string) (SnapshotMeta, *model.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotMeta{}, nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	ar := archive.NewReader(f)
	var meta SnapshotMeta
	meta.Version = ar.ReadUint64()
	meta.RNGSeed = ar.ReadInt64()
	meta.Tick = int32(ar.ReadInt64())
	meta.SimTimeSec = ar.ReadFloat64()
	if err := ar.Err(); err != nil {
		return SnapshotMeta{}, nil, fmt.Errorf("read snapshot header: %w", err)
	}

	m, err := archive.Load(f)
	if err != nil {
		return SnapshotMeta{}, nil, fmt.Errorf("read snapshot model: %w", err)
	}

	return meta, m, nil
}
