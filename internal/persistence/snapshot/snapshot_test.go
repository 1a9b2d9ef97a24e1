package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func sampleSnapshot() SnapshotV1 {
	return SnapshotV1{
		Header: Header{Version: Version, RunID: "run-1", Turn: 7},
		Agents: []AgentV1{
			{ID: "agent-0", Name: "Alpha", Energy: 12, Alive: true, Age: 7, Memory: "remember Beta", Invoker: "claude"},
			{ID: "agent-1", Name: "Beta", Energy: 0, Alive: false, Age: 3, Invoker: "codex"},
		},
		Board: []BoardMessageV1{
			{Author: "Alpha", Turn: 2, Content: "hello"},
		},
	}
}

func TestWriteReadSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "world.snap.zst")
	want := sampleSnapshot()
	if err := WriteSnapshot(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got, want)
	}
}

func TestStore_LoadMissingIsNoSnapshot(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.Load(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestStore_LoadCorruptIsNoSnapshot(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	if err := os.WriteFile(s.Path(), []byte("definitely not zstd"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := s.Load()
	if !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	s := NewStore(t.TempDir())
	first := sampleSnapshot()
	if err := s.Save(first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := sampleSnapshot()
	second.Header.Turn = 8
	second.Agents[0].Energy = 11
	if err := s.Save(second); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Header.Turn != 8 || got.Agents[0].Energy != 11 {
		t.Fatalf("expected latest snapshot, got turn=%d energy=%d", got.Header.Turn, got.Agents[0].Energy)
	}
	ents, _ := os.ReadDir(filepath.Dir(s.Path()))
	if len(ents) != 1 {
		t.Fatalf("expected only the snapshot file, found %d entries", len(ents))
	}
}
