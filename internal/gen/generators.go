package gen

import (
	"voxelgarden/internal/block"
	"voxelgarden/internal/chunk"
)

// Generator fills block data into a freshly allocated chunk. Generators are
// deterministic in (seed, chunk coordinate) and touch only their own chunk.
type Generator interface {
	Name() string
	Generate(c *chunk.Chunk)
}

// Pipeline returns the full generation sequence in its fixed order.
func Pipeline(seed string) []Generator {
	t := NewTerrain(seed)
	return []Generator{
		t,
		&Lakes{terrain: t},
		&Mountains{seed: SeedValue(seed) + 77},
		&Resources{seed: SeedValue(seed) + 131},
		&Forest{seed: SeedValue(seed) + 211, terrain: t},
	}
}

// Terrain builds the base height map: stone core, dirt cover, grass or sand
// top depending on altitude.
type Terrain struct {
	seed int64
}

// SeaLevel is the water surface height used by Lakes and Terrain.
const SeaLevel = 32

func NewTerrain(seed string) *Terrain {
	return &Terrain{seed: SeedValue(seed)}
}

func (t *Terrain) Name() string { return "terrain" }

// HeightAt returns the terrain surface height for a world column. The world
// facade also uses it to find a spawn point.
func (t *Terrain) HeightAt(wx, wz int) int {
	n := fbm2(t.seed, wx, wz, 64, 4)
	return SeaLevel - 8 + int(n*40)
}

func (t *Terrain) Generate(c *chunk.Chunk) {
	d := c.Dims()
	for z := 0; z < d.D; z++ {
		for x := 0; x < d.W; x++ {
			wx := c.Pos.X*d.W + x
			wz := c.Pos.Z*d.D + z
			h := t.HeightAt(wx, wz)
			if h >= d.H {
				h = d.H - 1
			}
			if h < 1 {
				h = 1
			}
			for y := 0; y <= h; y++ {
				switch {
				case y == h && h <= SeaLevel+1:
					c.SetBlock(x, y, z, block.Sand)
				case y == h:
					c.SetBlock(x, y, z, block.Grass)
				case y >= h-3:
					c.SetBlock(x, y, z, block.Dirt)
				default:
					c.SetBlock(x, y, z, block.Stone)
				}
			}
		}
	}
}

// Lakes floods every column below sea level with water.
type Lakes struct {
	terrain *Terrain
}

func (l *Lakes) Name() string { return "lakes" }

func (l *Lakes) Generate(c *chunk.Chunk) {
	d := c.Dims()
	for z := 0; z < d.D; z++ {
		for x := 0; x < d.W; x++ {
			for y := SeaLevel; y >= 0; y-- {
				if c.Block(x, y, z) != block.Air {
					break
				}
				c.SetBlock(x, y, z, block.Water)
			}
		}
	}
}

// Mountains raises rocky peaks where the mountain noise crosses a threshold,
// stacking stone with snow caps above the base terrain.
type Mountains struct {
	seed int64
}

func (m *Mountains) Name() string { return "mountains" }

func (m *Mountains) Generate(c *chunk.Chunk) {
	d := c.Dims()
	for z := 0; z < d.D; z++ {
		for x := 0; x < d.W; x++ {
			wx := c.Pos.X*d.W + x
			wz := c.Pos.Z*d.D + z
			n := fbm2(m.seed, wx, wz, 96, 3)
			if n < 0.72 {
				continue
			}
			extra := int((n - 0.72) * 120)
			// Find the current surface.
			top := d.H - 1
			for top > 0 && c.Block(x, top, z) == block.Air {
				top--
			}
			if c.Block(x, top, z) == block.Water {
				continue
			}
			for y := top + 1; y <= top+extra && y < d.H; y++ {
				bt := block.Stone
				if y >= top+extra-1 && y > SeaLevel+24 {
					bt = block.Snow
				}
				c.SetBlock(x, y, z, bt)
			}
		}
	}
}

// Resources scatters ore veins inside stone.
type Resources struct {
	seed int64
}

func (r *Resources) Name() string { return "resources" }

func (r *Resources) Generate(c *chunk.Chunk) {
	d := c.Dims()
	for z := 0; z < d.D; z++ {
		for x := 0; x < d.W; x++ {
			for y := 1; y < SeaLevel; y++ {
				if c.Block(x, y, z) != block.Stone {
					continue
				}
				wx := c.Pos.X*d.W + x
				wz := c.Pos.Z*d.D + z
				roll := hash3(r.seed, wx, y, wz) % 1000
				switch {
				case roll < 12:
					c.SetBlock(x, y, z, block.CoalOre)
				case roll < 15 && y < SeaLevel/2:
					c.SetBlock(x, y, z, block.GoldOre)
				}
			}
		}
	}
}

// Forest plants trees on grass columns picked by a cluster hash. Trees are
// clipped at chunk borders; edge seams are accepted, matching the original
// generator's behavior.
type Forest struct {
	seed    int64
	terrain *Terrain
}

func (f *Forest) Name() string { return "forest" }

func (f *Forest) Generate(c *chunk.Chunk) {
	d := c.Dims()
	for z := 2; z < d.D-2; z++ {
		for x := 2; x < d.W-2; x++ {
			wx := c.Pos.X*d.W + x
			wz := c.Pos.Z*d.D + z
			if hash2(f.seed, wx, wz)%1000 >= 8 {
				continue
			}
			h := f.terrain.HeightAt(wx, wz)
			if h <= SeaLevel+1 || h >= d.H-8 || c.Block(x, h, z) != block.Grass {
				continue
			}
			f.plantTree(c, x, h+1, z)
		}
	}
}

func (f *Forest) plantTree(c *chunk.Chunk, x, y, z int) {
	trunk := 4 + int(hash3(f.seed, x, y, z)%3)
	for i := 0; i < trunk; i++ {
		c.SetBlock(x, y+i, z, block.Trunk)
	}
	top := y + trunk
	for dy := -2; dy <= 2; dy++ {
		r := 2 - abs(dy)/2
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				if dx == 0 && dz == 0 && dy < 0 {
					continue // trunk
				}
				if c.Block(x+dx, top+dy, z+dz) == block.Air {
					c.SetBlock(x+dx, top+dy, z+dz, block.Leaves)
				}
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Flora is the environmental "replant" generator: it sprinkles tall grass
// and flowers onto open grass columns. It is not part of the initial
// pipeline; the world's background tick applies it to one visible chunk at a
// time.
type Flora struct {
	seed int64
}

func NewFlora(seed string) *Flora {
	return &Flora{seed: SeedValue(seed) + 307}
}

func (f *Flora) Name() string { return "flora" }

func (f *Flora) Generate(c *chunk.Chunk) {
	d := c.Dims()
	for z := 0; z < d.D; z++ {
		for x := 0; x < d.W; x++ {
			// Surface scan from the top.
			top := d.H - 1
			for top > 0 && c.Block(x, top, z) == block.Air {
				top--
			}
			if c.Block(x, top, z) != block.Grass || top+1 >= d.H {
				continue
			}
			wx := c.Pos.X*d.W + x
			wz := c.Pos.Z*d.D + z
			roll := hash3(f.seed, wx, top, wz) % 1000
			switch {
			case roll < 30:
				c.SetBlock(x, top+1, z, block.TallGrass)
			case roll < 36:
				c.SetBlock(x, top+1, z, block.RedFlower)
			}
		}
	}
}
