// Package coords maps world block coordinates onto the chunk grid and the
// wrapped local addressing window used by the chunk cache.
package coords

// Dims holds the fixed chunk dimensions in blocks.
type Dims struct {
	W int // x extent
	H int // y extent
	D int // z extent
}

// ChunkPos identifies a chunk on the infinite xz chunk grid.
type ChunkPos struct {
	X int
	Z int
}

// Mapper converts between world block coordinates, chunk coordinates and
// local block coordinates. ViewX/ViewZ are the visibility window extents in
// chunks; local coordinates are wrapped into ViewX*Dims.W (resp. Z) before
// the chunk offset is subtracted.
type Mapper struct {
	Dims  Dims
	ViewX int
	ViewZ int
}

// ChunkX returns the x chunk coordinate owning world block x.
// Division truncates toward zero, matching the layout of existing saves.
func (m Mapper) ChunkX(x int) int { return x / m.Dims.W }

// ChunkZ returns the z chunk coordinate owning world block z.
func (m Mapper) ChunkZ(z int) int { return z / m.Dims.D }

// ChunkAt returns the chunk coordinate owning the given world block column.
func (m Mapper) ChunkAt(x, z int) ChunkPos {
	return ChunkPos{X: m.ChunkX(x), Z: m.ChunkZ(z)}
}

// BlockX reduces a world x coordinate to a local chunk coordinate. The value
// is first wrapped into the addressable window (ViewX chunks wide), then the
// wrapped chunk offset is removed. The wrap must happen before the subtraction
// and both use truncating remainder semantics; reordering or switching to
// floored modulo changes results for negative coordinates.
func (m Mapper) BlockX(x int) int {
	cw := m.ChunkX(x) % m.ViewX
	return x%(m.ViewX*m.Dims.W) - cw*m.Dims.W
}

// BlockZ is BlockX for the z axis.
func (m Mapper) BlockZ(z int) int {
	cw := m.ChunkZ(z) % m.ViewZ
	return z%(m.ViewZ*m.Dims.D) - cw*m.Dims.D
}

// InBounds reports whether a local coordinate addresses a cell of a chunk.
func (d Dims) InBounds(x, y, z int) bool {
	return x >= 0 && x < d.W && y >= 0 && y < d.H && z >= 0 && z < d.D
}

// Index flattens a local coordinate. Callers must bounds-check first.
func (d Dims) Index(x, y, z int) int {
	return (x*d.D+z)*d.H + y
}

// Volume is the cell count of one chunk.
func (d Dims) Volume() int { return d.W * d.H * d.D }

// zigzag folds a signed value into an unsigned one so the pairing function
// below stays injective for negative chunk coordinates.
func zigzag(v int) uint64 {
	if v < 0 {
		return uint64(-v)*2 - 1
	}
	return uint64(v) * 2
}

// PairKey combines a chunk coordinate pair into a single int64 database key
// using the Szudzik pairing function over zig-zag encoded coordinates. The
// mapping is injective for all coordinates up to ±2^30 chunks, far beyond the
// addressable world. External tools reading the chunk table must use the same
// function.
func PairKey(cx, cz int) int64 {
	a, b := zigzag(cx), zigzag(cz)
	if a >= b {
		return int64(a*a + a + b)
	}
	return int64(b*b + a)
}
