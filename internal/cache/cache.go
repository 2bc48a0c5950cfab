// Package cache owns the live chunk set: chunks are created through the
// generator pipeline or loaded from persistent storage on first access, and
// persisted before they leave the cache. Chunks are owned exclusively by the
// cache; everything else holds non-owning references.
package cache

import (
	"log"
	"sync"

	"voxelgarden/internal/block"
	"voxelgarden/internal/chunk"
	"voxelgarden/internal/coords"
	"voxelgarden/internal/gen"
	"voxelgarden/internal/storage"
)

// Persister is the persistence contract the cache consumes. A missing chunk
// loads as (nil, nil).
type Persister interface {
	LoadChunk(cx, cz int) (*storage.ChunkRecord, error)
	SaveChunk(rec *storage.ChunkRecord) error
}

// Cache is the keyed chunk store. LoadOrCreate never returns a partially
// initialized chunk: concurrent first accesses to one coordinate share a
// single in-flight build.
type Cache struct {
	dims       coords.Dims
	cat        *block.Catalog
	store      Persister // nil disables persistence
	generators []gen.Generator
	capacity   int
	log        *log.Logger

	mu       sync.Mutex
	chunks   map[coords.ChunkPos]*chunk.Chunk
	building map[coords.ChunkPos]*inflight
	nextID   int
}

type inflight struct {
	done chan struct{}
	c    *chunk.Chunk
}

// New builds a cache holding at most capacity chunks before eviction kicks
// in. store may be nil for an in-memory world.
func New(dims coords.Dims, cat *block.Catalog, generators []gen.Generator, store Persister, capacity int, logger *log.Logger) *Cache {
	if capacity <= 0 {
		capacity = 1024
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		dims:       dims,
		cat:        cat,
		store:      store,
		generators: generators,
		capacity:   capacity,
		log:        logger,
		chunks:     make(map[coords.ChunkPos]*chunk.Chunk),
		building:   make(map[coords.ChunkPos]*inflight),
	}
}

// LoadOrCreate returns the chunk at a chunk coordinate. On a cache miss it
// loads the chunk from storage, or runs the generator pipeline and leaves
// the chunk fresh. Exactly one build runs per coordinate; concurrent callers
// block until it finishes and observe the same instance.
func (s *Cache) LoadOrCreate(cx, cz int) *chunk.Chunk {
	pos := coords.ChunkPos{X: cx, Z: cz}

	s.mu.Lock()
	if c, ok := s.chunks[pos]; ok {
		s.mu.Unlock()
		return c
	}
	if b, ok := s.building[pos]; ok {
		s.mu.Unlock()
		<-b.done
		return b.c
	}
	b := &inflight{done: make(chan struct{})}
	s.building[pos] = b
	s.nextID++
	id := s.nextID
	s.mu.Unlock()

	c := s.build(pos, id)
	b.c = c

	s.mu.Lock()
	s.chunks[pos] = c
	delete(s.building, pos)
	s.mu.Unlock()
	close(b.done)
	return c
}

// build runs outside the cache lock; generators and storage loads can be slow.
func (s *Cache) build(pos coords.ChunkPos, id int) *chunk.Chunk {
	c := chunk.New(pos, id, s.dims, s.cat)

	if s.store != nil {
		rec, err := s.store.LoadChunk(pos.X, pos.Z)
		if err != nil {
			// I/O failure degrades to "absent": regenerate.
			s.log.Printf("load chunk (%d,%d): %v; regenerating", pos.X, pos.Z, err)
		} else if rec != nil {
			if err := c.Restore(rec.Blocks, rec.Sun, rec.Blk); err == nil {
				return c
			} else {
				s.log.Printf("restore chunk (%d,%d): %v; regenerating", pos.X, pos.Z, err)
			}
		}
	}

	for _, g := range s.generators {
		g.Generate(c)
	}
	return c
}

// Peek returns the cached chunk at a coordinate without creating it.
func (s *Cache) Peek(cx, cz int) *chunk.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks[coords.ChunkPos{X: cx, Z: cz}]
}

// Size is the number of live cached chunks.
func (s *Cache) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks)
}

// FlushAll persists every cached chunk. Callers must quiesce updates first;
// the world does this at teardown after the loop has exited. Save failures
// are logged and the chunk is skipped.
func (s *Cache) FlushAll() {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	all := make([]*chunk.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		all = append(all, c)
	}
	s.mu.Unlock()

	for _, c := range all {
		s.save(c)
	}
}

// Persist writes one chunk to storage without evicting it. Failures are
// logged; the chunk stays cached either way.
func (s *Cache) Persist(c *chunk.Chunk) {
	if c != nil {
		s.save(c)
	}
}

func (s *Cache) save(c *chunk.Chunk) bool {
	if s.store == nil {
		return true
	}
	blocks, sun, blk := c.Data()
	err := s.store.SaveChunk(&storage.ChunkRecord{
		CX: c.Pos.X, CZ: c.Pos.Z, ID: c.ID,
		Blocks: blocks, Sun: sun, Blk: blk,
	})
	if err != nil {
		s.log.Printf("save chunk (%d,%d): %v; keeping in cache", c.Pos.X, c.Pos.Z, err)
		return false
	}
	return true
}

// Evict persists and drops chunks outside the visible window until the cache
// is back under capacity, farthest from center first. A chunk whose save
// fails stays cached; no chunk is lost without being persisted.
func (s *Cache) Evict(visible map[coords.ChunkPos]bool, center coords.ChunkPos) {
	s.mu.Lock()
	over := len(s.chunks) - s.capacity
	if over <= 0 {
		s.mu.Unlock()
		return
	}
	candidates := make([]*chunk.Chunk, 0, over)
	for pos, c := range s.chunks {
		if !visible[pos] {
			candidates = append(candidates, c)
		}
	}
	s.mu.Unlock()

	dist := func(c *chunk.Chunk) int {
		dx, dz := c.Pos.X-center.X, c.Pos.Z-center.Z
		if dx < 0 {
			dx = -dx
		}
		if dz < 0 {
			dz = -dz
		}
		return dx + dz
	}
	// Farthest first.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && dist(candidates[j]) > dist(candidates[j-1]); j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	for _, c := range candidates {
		if over <= 0 {
			return
		}
		if !s.save(c) {
			continue
		}
		s.mu.Lock()
		delete(s.chunks, c.Pos)
		s.mu.Unlock()
		over--
	}
}
