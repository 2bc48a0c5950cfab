// chunkdump inspects a world database: the metadata record, the persisted
// chunk rows, and on request the decoded contents of a single chunk.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"voxelgarden/internal/storage"
)

func main() {
	var (
		dataDir = flag.String("data", "./data", "runtime data directory")
		title   = flag.String("title", "", "world title (required unless -db)")
		dbPath  = flag.String("db", "", "sqlite db path (optional)")
		limit   = flag.Int("limit", 20, "chunk row limit")
		cx      = flag.Int("cx", 0, "chunk x for 'chunk' (with -cz)")
		cz      = flag.Int("cz", 0, "chunk z for 'chunk' (with -cx)")
	)
	flag.Parse()

	q := "chunks"
	if flag.NArg() > 0 {
		q = strings.TrimSpace(flag.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*title) == "" {
			fmt.Fprintln(os.Stderr, "missing -title or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *title, "world.db")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "stat:", err)
		os.Exit(1)
	}

	switch q {
	case "meta":
		dumpMeta(path)
	case "chunks":
		dumpChunks(path, *limit)
	case "chunk":
		dumpChunk(path, *cx, *cz)
	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (want meta, chunks or chunk)\n", q)
		os.Exit(2)
	}
}

func dumpMeta(path string) {
	store, err := storage.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer store.Close()

	m, found, err := store.LoadMetadata()
	if err != nil {
		fmt.Fprintln(os.Stderr, "metadata:", err)
		os.Exit(1)
	}
	if !found {
		fmt.Println("no metadata record")
		return
	}
	n, err := store.ChunkCount()
	if err != nil {
		fmt.Fprintln(os.Stderr, "chunk count:", err)
		os.Exit(1)
	}
	fmt.Printf("title:  %s\n", m.Title)
	fmt.Printf("seed:   %s\n", m.Seed)
	fmt.Printf("time:   %dh\n", m.Time)
	fmt.Printf("player: (%.1f, %.1f, %.1f)\n", m.Player.X, m.Player.Y, m.Player.Z)
	fmt.Printf("chunks: %d\n", n)
}

func dumpChunks(path string, limit int) {
	if limit <= 0 {
		limit = 20
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT cx, cz, chunk_id, length(blob), saved_at FROM chunks
		 ORDER BY saved_at DESC LIMIT ?`, limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()

	fmt.Printf("%8s %8s %8s %10s  %s\n", "cx", "cz", "id", "bytes", "saved_at")
	for rows.Next() {
		var cx, cz, id, size int
		var savedAt string
		if err := rows.Scan(&cx, &cz, &id, &size, &savedAt); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		fmt.Printf("%8d %8d %8d %10d  %s\n", cx, cz, id, size, savedAt)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

func dumpChunk(path string, cx, cz int) {
	store, err := storage.Open(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer store.Close()

	rec, err := store.LoadChunk(cx, cz)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}
	if rec == nil {
		fmt.Printf("chunk (%d,%d) not persisted\n", cx, cz)
		os.Exit(2)
	}

	// Per-type occupancy histogram.
	hist := make(map[byte]int)
	for _, t := range rec.Blocks {
		hist[t]++
	}
	var lit int
	for _, v := range rec.Sun {
		if v > 0 {
			lit++
		}
	}

	fmt.Printf("chunk (%d,%d) id=%d cells=%d\n", rec.CX, rec.CZ, rec.ID, len(rec.Blocks))
	fmt.Printf("sunlit cells: %d\n", lit)
	fmt.Println("block histogram:")
	for t := 0; t < 256; t++ {
		if n, ok := hist[byte(t)]; ok {
			fmt.Printf("  type %3d: %d\n", t, n)
		}
	}
}
