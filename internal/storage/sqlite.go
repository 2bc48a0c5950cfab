// Package storage persists chunks and world metadata in a sqlite database.
// Chunk grids are stored as zstd-compressed gob blobs keyed by the pairing
// function from the coords package.
package storage

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"voxelgarden/internal/coords"
)

// ChunkRecord is the persisted form of one chunk.
type ChunkRecord struct {
	CX, CZ int
	ID     int
	Blocks []byte
	Sun    []byte
	Blk    []byte
}

// Metadata is the small per-world record: seed, title, time-of-day and the
// last player position.
type Metadata struct {
	Seed  string
	Title string
	Time  int
	Player struct {
		X, Y, Z float64
	}
}

// Store is a sqlite-backed chunk and metadata store. It is safe for use from
// a single goroutine at a time; the world serializes persistence through the
// background loop.
type Store struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens (creating if needed) the world database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close releases the database and codec resources.
func (s *Store) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA busy_timeout=5000;`,
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS chunks (
			key      INTEGER PRIMARY KEY,
			cx       INTEGER NOT NULL,
			cz       INTEGER NOT NULL,
			chunk_id INTEGER NOT NULL,
			blob     BLOB NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS metadata (
			id       INTEGER PRIMARY KEY CHECK (id = 1),
			seed     TEXT NOT NULL,
			title    TEXT NOT NULL,
			time     INTEGER NOT NULL,
			player_x REAL NOT NULL,
			player_y REAL NOT NULL,
			player_z REAL NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// gobRecord is the blob payload; the coordinate lives in the row columns.
type gobRecord struct {
	ID     int
	Blocks []byte
	Sun    []byte
	Blk    []byte
}

// SaveChunk upserts one chunk row.
func (s *Store) SaveChunk(rec *ChunkRecord) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gobRecord{
		ID: rec.ID, Blocks: rec.Blocks, Sun: rec.Sun, Blk: rec.Blk,
	}); err != nil {
		return fmt.Errorf("encode chunk (%d,%d): %w", rec.CX, rec.CZ, err)
	}
	blob := s.enc.EncodeAll(buf.Bytes(), nil)

	_, err := s.db.Exec(
		`INSERT INTO chunks (key, cx, cz, chunk_id, blob, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET chunk_id=excluded.chunk_id,
		   blob=excluded.blob, saved_at=excluded.saved_at`,
		coords.PairKey(rec.CX, rec.CZ), rec.CX, rec.CZ, rec.ID, blob,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save chunk (%d,%d): %w", rec.CX, rec.CZ, err)
	}
	return nil
}

// LoadChunk reads one chunk row. A missing row is not an error: it returns
// (nil, nil) and the caller falls back to generation.
func (s *Store) LoadChunk(cx, cz int) (*ChunkRecord, error) {
	var blob []byte
	err := s.db.QueryRow(
		`SELECT blob FROM chunks WHERE key = ?`, coords.PairKey(cx, cz),
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chunk (%d,%d): %w", cx, cz, err)
	}

	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decode chunk (%d,%d): %w", cx, cz, err)
	}
	var g gobRecord
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode chunk (%d,%d): %w", cx, cz, err)
	}
	return &ChunkRecord{CX: cx, CZ: cz, ID: g.ID, Blocks: g.Blocks, Sun: g.Sun, Blk: g.Blk}, nil
}

// ChunkCount returns the number of persisted chunks.
func (s *Store) ChunkCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}

// SaveMetadata upserts the world metadata record.
func (s *Store) SaveMetadata(m Metadata) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (id, seed, title, time, player_x, player_y, player_z)
		 VALUES (1, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET seed=excluded.seed, title=excluded.title,
		   time=excluded.time, player_x=excluded.player_x,
		   player_y=excluded.player_y, player_z=excluded.player_z`,
		m.Seed, m.Title, m.Time, m.Player.X, m.Player.Y, m.Player.Z,
	)
	if err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

// LoadMetadata reads the world metadata record. A missing record is a first
// run, reported as found=false with no error.
func (s *Store) LoadMetadata() (m Metadata, found bool, err error) {
	err = s.db.QueryRow(
		`SELECT seed, title, time, player_x, player_y, player_z FROM metadata WHERE id = 1`,
	).Scan(&m.Seed, &m.Title, &m.Time, &m.Player.X, &m.Player.Y, &m.Player.Z)
	if errors.Is(err, sql.ErrNoRows) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, fmt.Errorf("load metadata: %w", err)
	}
	return m, true, nil
}
