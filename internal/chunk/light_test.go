package chunk

import (
	"testing"

	"voxelgarden/internal/block"
	"voxelgarden/internal/coords"
)

var testDims = coords.Dims{W: 16, H: 32, D: 16}

// mapResolver backs lighting tests with a plain chunk map.
type mapResolver struct {
	dims   coords.Dims
	cat    *block.Catalog
	chunks map[coords.ChunkPos]*Chunk
	nextID int
}

func newMapResolver(dims coords.Dims) *mapResolver {
	return &mapResolver{dims: dims, cat: block.Default(), chunks: map[coords.ChunkPos]*Chunk{}}
}

func (r *mapResolver) LoadOrCreate(cx, cz int) *Chunk {
	pos := coords.ChunkPos{X: cx, Z: cz}
	if c, ok := r.chunks[pos]; ok {
		return c
	}
	r.nextID++
	c := New(pos, r.nextID, r.dims, r.cat)
	r.chunks[pos] = c
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestSunlightColumnSingleOpaqueLayer(t *testing.T) {
	res := newMapResolver(testDims)
	c := res.LoadOrCreate(0, 0)
	const h = 20
	c.SetBlock(4, h, 4, block.Stone)
	c.CalcSunlightColumn(4, 4, true)

	for y := 0; y < testDims.H; y++ {
		got := c.Light(4, y, 4, SunLight)
		if y > h && got != MaxLight {
			t.Fatalf("y=%d above block: light %d, want %d", y, got, MaxLight)
		}
		if y <= h && got != 0 {
			t.Fatalf("y=%d at/below block: light %d, want 0", y, got)
		}
	}
}

func TestSunlightColumnNonOpaqueDoesNotCover(t *testing.T) {
	res := newMapResolver(testDims)
	c := res.LoadOrCreate(0, 0)
	c.SetBlock(1, 20, 1, block.Water) // non-opaque
	c.CalcSunlightColumn(1, 1, true)
	if got := c.Light(1, 5, 1, SunLight); got != MaxLight {
		t.Fatalf("light below water = %d, want %d", got, MaxLight)
	}
}

func TestSpreadLightMonotonicity(t *testing.T) {
	res := newMapResolver(testDims)
	c := res.LoadOrCreate(0, 0)
	const sx, sy, sz = 8, 16, 8
	const v = byte(10)
	c.SpreadLight(res, sx, sy, sz, v, BlockLight)

	for x := 0; x < testDims.W; x++ {
		for z := 0; z < testDims.D; z++ {
			for y := 0; y < testDims.H; y++ {
				got := c.Light(x, y, z, BlockLight)
				dist := abs(x-sx) + abs(y-sy) + abs(z-sz)
				want := 0
				if int(v)-dist > 0 {
					want = int(v) - dist
				}
				if int(got) != want {
					t.Fatalf("light at (%d,%d,%d) = %d, want %d (Manhattan %d)", x, y, z, got, want, dist)
				}
				if got > v {
					t.Fatalf("light at (%d,%d,%d) = %d exceeds seed %d", x, y, z, got, v)
				}
			}
		}
	}
}

func TestSpreadLightStopsAtOpaque(t *testing.T) {
	res := newMapResolver(testDims)
	c := res.LoadOrCreate(0, 0)
	// Wall one step east of the seed.
	for y := 0; y < testDims.H; y++ {
		for z := 0; z < testDims.D; z++ {
			c.SetBlock(10, y, z, block.Stone)
		}
	}
	c.SpreadLight(res, 8, 16, 8, 10, BlockLight)
	if got := c.Light(10, 16, 8, BlockLight); got != 0 {
		t.Fatalf("opaque cell lit: %d", got)
	}
	if got := c.Light(11, 16, 8, BlockLight); got != 0 {
		t.Fatalf("cell behind wall lit: %d", got)
	}
	if got := c.Light(9, 16, 8, BlockLight); got != 9 {
		t.Fatalf("cell before wall = %d, want 9", got)
	}
}

func TestSpreadLightCrossesChunkBoundary(t *testing.T) {
	res := newMapResolver(testDims)
	c := res.LoadOrCreate(0, 0)
	c.SpreadLight(res, 15, 16, 8, 8, BlockLight)

	n := res.LoadOrCreate(1, 0)
	if got := n.Light(0, 16, 8, BlockLight); got != 7 {
		t.Fatalf("neighbor chunk light = %d, want 7", got)
	}
	if got := n.Light(2, 16, 8, BlockLight); got != 5 {
		t.Fatalf("neighbor chunk light at distance 3 = %d, want 5", got)
	}
}

func TestUnspreadLightPreservesOtherSources(t *testing.T) {
	res := newMapResolver(testDims)
	c := res.LoadOrCreate(0, 0)

	// Two sources six cells apart on one axis.
	c.SpreadLight(res, 4, 16, 8, 12, BlockLight)
	c.SpreadLight(res, 10, 16, 8, 12, BlockLight)

	// Remove the first source: its light drops to whatever the second
	// still provides.
	old := c.Light(4, 16, 8, BlockLight)
	c.SetLight(4, 16, 8, 0, BlockLight)
	c.UnspreadLight(res, 4, 16, 8, old, BlockLight)

	// Second source intact.
	if got := c.Light(10, 16, 8, BlockLight); got != 12 {
		t.Fatalf("surviving source = %d, want 12", got)
	}
	// Midpoint lit from the surviving source only: distance 3 -> 9.
	if got := c.Light(7, 16, 8, BlockLight); got != 9 {
		t.Fatalf("midpoint = %d, want 9", got)
	}
	// Removed seed relit by propagation from the survivor: distance 6 -> 6.
	if got := c.Light(4, 16, 8, BlockLight); got != 6 {
		t.Fatalf("removed seed = %d, want 6", got)
	}
	// Far side of the removed source: distance 8 from survivor -> 4.
	if got := c.Light(2, 16, 8, BlockLight); got != 4 {
		t.Fatalf("far side = %d, want 4", got)
	}
}

func TestUnspreadLightClearsIsolatedSource(t *testing.T) {
	res := newMapResolver(testDims)
	c := res.LoadOrCreate(0, 0)
	c.SpreadLight(res, 8, 16, 8, 6, BlockLight)
	old := c.Light(8, 16, 8, BlockLight)
	c.SetLight(8, 16, 8, 0, BlockLight)
	c.UnspreadLight(res, 8, 16, 8, old, BlockLight)

	for x := 0; x < testDims.W; x++ {
		for z := 0; z < testDims.D; z++ {
			for y := 10; y < 24; y++ {
				if got := c.Light(x, y, z, BlockLight); got != 0 {
					t.Fatalf("residual light %d at (%d,%d,%d)", got, x, y, z)
				}
			}
		}
	}
}

func TestCanSeeSky(t *testing.T) {
	res := newMapResolver(testDims)
	c := res.LoadOrCreate(0, 0)
	c.SetBlock(3, 20, 3, block.Stone)
	if c.CanSeeSky(3, 10, 3) {
		t.Fatalf("cell under stone must not see sky")
	}
	if !c.CanSeeSky(3, 25, 3) {
		t.Fatalf("cell above stone must see sky")
	}
	if !c.CanSeeSky(3, -5, 3) {
		t.Fatalf("out-of-range cell defaults to sky-visible")
	}
}

func TestRenderLightCombinesSunAndBlock(t *testing.T) {
	res := newMapResolver(testDims)
	c := res.LoadOrCreate(0, 0)
	c.SetLight(1, 1, 1, 16, SunLight)
	c.SetLight(1, 1, 1, 4, BlockLight)

	// Full daylight: sun dominates.
	if got := c.RenderLight(1, 1, 1, 1.0); got != 1.0 {
		t.Fatalf("day render light = %f, want 1.0", got)
	}
	// Deep night: the point light wins.
	if got := c.RenderLight(1, 1, 1, 0.1); got != 4.0/16.0 {
		t.Fatalf("night render light = %f, want 0.25", got)
	}
	// Out of range reads dark.
	if got := c.RenderLight(-1, 0, 0, 1.0); got != 0 {
		t.Fatalf("out-of-range render light = %f, want 0", got)
	}
}

func TestRefreshLightLightsGeneratedTerrain(t *testing.T) {
	res := newMapResolver(testDims)
	c := res.LoadOrCreate(0, 0)
	// Flat ground at y<=10 with a cave pocket at y=5 reachable via a shaft.
	for x := 0; x < testDims.W; x++ {
		for z := 0; z < testDims.D; z++ {
			for y := 0; y <= 10; y++ {
				c.SetBlock(x, y, z, block.Stone)
			}
		}
	}
	for y := 5; y <= 10; y++ {
		c.SetBlock(8, y, 8, block.Air) // shaft
	}
	c.SetBlock(7, 5, 8, block.Air) // pocket next to shaft bottom

	c.RefreshLight(res)

	if got := c.Light(8, 20, 8, SunLight); got != MaxLight {
		t.Fatalf("open air = %d, want %d", got, MaxLight)
	}
	if got := c.Light(8, 5, 8, SunLight); got != MaxLight {
		t.Fatalf("shaft bottom sees sky: %d, want %d", got, MaxLight)
	}
	if got := c.Light(7, 5, 8, SunLight); got != MaxLight-1 {
		t.Fatalf("pocket = %d, want %d", got, MaxLight-1)
	}
	if got := c.Light(0, 5, 0, SunLight); got != 0 {
		t.Fatalf("solid rock lit: %d", got)
	}
}
