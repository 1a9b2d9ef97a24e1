package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"alife.ai/internal/persistence/snapshot"
)

type RunArchiveMeta struct {
	RunID      string `json:"run_id"`
	EndTurn    int    `json:"end_turn"`
	StopReason string `json:"stop_reason"`
	Agents     int    `json:"agents"`
	Alive      int    `json:"alive"`
	Snapshot   string `json:"snapshot"`
	CreatedAt  string `json:"created_at"`
}

// ArchiveRunSnapshot copies the final snapshot of a run into `dataDir/archives/run_<id>/`
// next to a meta.json describing how the run ended. A later archive of the same run replaces it.
func ArchiveRunSnapshot(dataDir, snapshotPath string, snap snapshot.SnapshotV1, reason string) (string, error) {
	if snap.Header.RunID == "" {
		return "", fmt.Errorf("archive: snapshot has no run id")
	}
	archiveDir := filepath.Join(dataDir, "archives", "run_"+snap.Header.RunID)
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", err
	}

	alive := 0
	for _, a := range snap.Agents {
		if a.Alive {
			alive++
		}
	}
	meta := RunArchiveMeta{
		RunID:      snap.Header.RunID,
		EndTurn:    snap.Header.Turn,
		StopReason: reason,
		Agents:     len(snap.Agents),
		Alive:      alive,
		Snapshot:   filepath.Base(dst),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
