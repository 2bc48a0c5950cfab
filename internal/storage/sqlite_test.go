package storage

import (
	"bytes"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "world.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestChunkRoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec := &ChunkRecord{
		CX: 3, CZ: -4, ID: 17,
		Blocks: bytes.Repeat([]byte{1, 0, 2}, 100),
		Sun:    bytes.Repeat([]byte{16}, 300),
		Blk:    make([]byte, 300),
	}
	if err := s.SaveChunk(rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.LoadChunk(3, -4)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatalf("chunk not found after save")
	}
	if got.ID != 17 || !bytes.Equal(got.Blocks, rec.Blocks) || !bytes.Equal(got.Sun, rec.Sun) {
		t.Fatalf("loaded record differs from saved")
	}

	// Overwrite is an upsert, not a duplicate row.
	rec.Blocks[0] = 9
	if err := s.SaveChunk(rec); err != nil {
		t.Fatalf("resave: %v", err)
	}
	n, err := s.ChunkCount()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("chunk count = %d, want 1", n)
	}
	got, _ = s.LoadChunk(3, -4)
	if got.Blocks[0] != 9 {
		t.Fatalf("upsert did not replace blob")
	}
}

func TestLoadChunkMissIsNotAnError(t *testing.T) {
	s := openTestStore(t)
	got, err := s.LoadChunk(99, 99)
	if err != nil {
		t.Fatalf("load miss: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil record for missing chunk")
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if _, found, err := s.LoadMetadata(); err != nil || found {
		t.Fatalf("first run: found=%v err=%v, want false,nil", found, err)
	}

	var m Metadata
	m.Seed = "abc"
	m.Title = "home"
	m.Time = 8
	m.Player.X, m.Player.Y, m.Player.Z = 1.5, 70, -3.25
	if err := s.SaveMetadata(m); err != nil {
		t.Fatalf("save metadata: %v", err)
	}

	got, found, err := s.LoadMetadata()
	if err != nil || !found {
		t.Fatalf("load metadata: found=%v err=%v", found, err)
	}
	if got != m {
		t.Fatalf("metadata round trip mismatch: %+v != %+v", got, m)
	}
}
