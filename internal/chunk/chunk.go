// Package chunk implements the unit of world generation, storage and
// lighting: a fixed-size 3D block grid with parallel sunlight and
// point-light grids.
package chunk

import (
	"fmt"
	"sync"

	"voxelgarden/internal/block"
	"voxelgarden/internal/coords"
)

// MaxLight is the highest light intensity a cell can hold.
const MaxLight byte = 16

// NoData is the sentinel returned by block/light reads that resolve to no
// loadable cell.
const NoData byte = 0xFF

// Kind selects one of the two light grids.
type Kind byte

const (
	SunLight Kind = iota
	BlockLight
)

// Resolver resolves chunk coordinates to chunks, creating them if absent.
// The chunk cache implements it; lighting uses it to cross chunk boundaries.
type Resolver interface {
	LoadOrCreate(cx, cz int) *Chunk
}

// Chunk owns a dense block grid and two light grids. All grid access is
// serialized by a per-chunk mutex so a flood fill can never race a
// concurrent block write to the same chunk.
type Chunk struct {
	Pos coords.ChunkPos
	ID  int // generation order, diagnostics only

	dims coords.Dims
	cat  *block.Catalog

	mu         sync.Mutex
	blocks     []byte
	sunlight   []byte
	blocklight []byte

	fresh      bool
	dirty      bool
	lightDirty bool
}

// New allocates an empty chunk at the given coordinate. The chunk starts
// fresh and dirty: it has never been generated and has no derived state.
func New(pos coords.ChunkPos, id int, dims coords.Dims, cat *block.Catalog) *Chunk {
	n := dims.Volume()
	return &Chunk{
		Pos:        pos,
		ID:         id,
		dims:       dims,
		cat:        cat,
		blocks:     make([]byte, n),
		sunlight:   make([]byte, n),
		blocklight: make([]byte, n),
		fresh:      true,
		dirty:      true,
		lightDirty: true,
	}
}

// Dims returns the chunk dimensions.
func (c *Chunk) Dims() coords.Dims { return c.dims }

// Catalog returns the block-type catalog the chunk was built with.
func (c *Chunk) Catalog() *block.Catalog { return c.cat }

// Block returns the block type at a local coordinate, or NoData when the
// coordinate is out of bounds.
func (c *Chunk) Block(x, y, z int) block.Type {
	if !c.dims.InBounds(x, y, z) {
		return NoData
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blocks[c.dims.Index(x, y, z)]
}

// SetBlock writes a block type at a local coordinate and marks the chunk
// dirty. Out-of-bounds writes are silently dropped.
func (c *Chunk) SetBlock(x, y, z int, t block.Type) {
	if !c.dims.InBounds(x, y, z) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks[c.dims.Index(x, y, z)] = t
	c.dirty = true
}

// Light returns the light intensity of the given kind at a local coordinate,
// or NoData when out of bounds.
func (c *Chunk) Light(x, y, z int, k Kind) byte {
	if !c.dims.InBounds(x, y, z) {
		return NoData
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid(k)[c.dims.Index(x, y, z)]
}

// SetLight writes a light intensity, clamped to [0, MaxLight], and marks the
// chunk light-dirty. Out-of-bounds writes are silently dropped.
func (c *Chunk) SetLight(x, y, z int, v byte, k Kind) {
	if !c.dims.InBounds(x, y, z) {
		return
	}
	if v > MaxLight {
		v = MaxLight
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid(k)[c.dims.Index(x, y, z)] = v
	c.lightDirty = true
}

// grid must be called with c.mu held.
func (c *Chunk) grid(k Kind) []byte {
	if k == SunLight {
		return c.sunlight
	}
	return c.blocklight
}

// CanSeeSky reports whether no opaque block sits above the cell. Out-of-range
// cells are treated as sky-visible.
func (c *Chunk) CanSeeSky(x, y, z int) bool {
	if !c.dims.InBounds(x, y, z) {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for yy := y + 1; yy < c.dims.H; yy++ {
		if c.cat.IsOpaque(c.blocks[c.dims.Index(x, yy, z)]) {
			return false
		}
	}
	return true
}

// Fresh reports whether the chunk has never been generated.
func (c *Chunk) Fresh() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.fresh }

// SetFresh sets the fresh flag.
func (c *Chunk) SetFresh(v bool) { c.mu.Lock(); c.fresh = v; c.mu.Unlock() }

// Dirty reports whether block data changed since the last mesh build.
func (c *Chunk) Dirty() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.dirty }

// SetDirty sets the dirty flag.
func (c *Chunk) SetDirty(v bool) { c.mu.Lock(); c.dirty = v; c.mu.Unlock() }

// LightDirty reports whether light changed since the last mesh build.
func (c *Chunk) LightDirty() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.lightDirty }

// SetLightDirty sets the light-dirty flag.
func (c *Chunk) SetLightDirty(v bool) { c.mu.Lock(); c.lightDirty = v; c.mu.Unlock() }

// Neighbors returns the 8 chunks adjacent on the chunk grid, creating them
// through the resolver if absent. Newly generated chunks use this so their
// edges are lit against real neighbor data.
func (c *Chunk) Neighbors(res Resolver) []*Chunk {
	out := make([]*Chunk, 0, 8)
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dz == 0 {
				continue
			}
			if n := res.LoadOrCreate(c.Pos.X+dx, c.Pos.Z+dz); n != nil {
				out = append(out, n)
			}
		}
	}
	return out
}

// Data returns copies of the three grids for persistence.
func (c *Chunk) Data() (blocks, sun, blk []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	blocks = append([]byte(nil), c.blocks...)
	sun = append([]byte(nil), c.sunlight...)
	blk = append([]byte(nil), c.blocklight...)
	return
}

// Restore replaces the three grids from persisted data. The chunk is no
// longer fresh afterwards. Length mismatches are rejected.
func (c *Chunk) Restore(blocks, sun, blk []byte) error {
	n := c.dims.Volume()
	if len(blocks) != n || len(sun) != n || len(blk) != n {
		return fmt.Errorf("chunk (%d,%d): grid length mismatch: got %d/%d/%d want %d",
			c.Pos.X, c.Pos.Z, len(blocks), len(sun), len(blk), n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.blocks, blocks)
	copy(c.sunlight, sun)
	copy(c.blocklight, blk)
	c.fresh = false
	c.dirty = true
	c.lightDirty = true
	return nil
}

func (c *Chunk) String() string {
	return fmt.Sprintf("chunk (%d,%d, id: %d)", c.Pos.X, c.Pos.Z, c.ID)
}
