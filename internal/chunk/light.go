package chunk

// Lighting. Spread and unspread run as explicit breadth-first work queues
// rather than recursion: open terrain can chain thousands of cells and must
// not grow the stack. Unspread re-derives illumination (clear the stale
// chain, then respread from every still-brighter frontier cell) instead of
// tracking light provenance.

// cell is one flood-fill work item: a cell addressed locally within its
// owning chunk, plus the value the fill carried into it.
type cell struct {
	c       *Chunk
	x, y, z int
	v       byte
}

// cellKey identifies a cell across chunks for the unspread cleared-set.
type cellKey struct {
	c       *Chunk
	x, y, z int
}

// neighborCell resolves a possibly out-of-chunk local coordinate to the
// owning chunk and its local coordinate there. Only single-step overflows
// occur during flood fill, so one wrap per axis suffices. Vertical
// out-of-range coordinates resolve to nothing.
func (c *Chunk) neighborCell(res Resolver, x, y, z int) (*Chunk, int, int, int, bool) {
	if y < 0 || y >= c.dims.H {
		return nil, 0, 0, 0, false
	}
	cx, cz := c.Pos.X, c.Pos.Z
	switch {
	case x < 0:
		cx--
		x += c.dims.W
	case x >= c.dims.W:
		cx++
		x -= c.dims.W
	}
	switch {
	case z < 0:
		cz--
		z += c.dims.D
	case z >= c.dims.D:
		cz++
		z -= c.dims.D
	}
	if cx == c.Pos.X && cz == c.Pos.Z {
		return c, x, y, z, true
	}
	n := res.LoadOrCreate(cx, cz)
	if n == nil {
		return nil, 0, 0, 0, false
	}
	return n, x, y, z, true
}

var sides = [6][3]int{
	{1, 0, 0}, {-1, 0, 0},
	{0, 1, 0}, {0, -1, 0},
	{0, 0, 1}, {0, 0, -1},
}

// CalcSunlightColumn recomputes the sunlight column at (x,z): full intensity
// from the top down to the first opaque block, zero at and below it. Pure
// column operation; no propagation to neighbors. With refresh the computed
// values overwrite the column, otherwise they only raise it.
func (c *Chunk) CalcSunlightColumn(x, z int, refresh bool) {
	if x < 0 || x >= c.dims.W || z < 0 || z >= c.dims.D {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	covered := false
	for y := c.dims.H - 1; y >= 0; y-- {
		i := c.dims.Index(x, y, z)
		if c.cat.IsOpaque(c.blocks[i]) {
			covered = true
		}
		v := MaxLight
		if covered {
			v = 0
		}
		if refresh || v > c.sunlight[i] {
			if c.sunlight[i] != v {
				c.sunlight[i] = v
				c.lightDirty = true
			}
		}
	}
}

// RefreshLightAt recomputes one cell's light from its own source plus the
// brightest adjacent cell. The own source is the sunlight column for sun
// light and the block type's luminance for point light.
func (c *Chunk) RefreshLightAt(res Resolver, x, y, z int, k Kind) {
	if !c.dims.InBounds(x, y, z) {
		return
	}
	var v byte
	if k == SunLight {
		if !c.cat.IsOpaque(c.Block(x, y, z)) && c.CanSeeSky(x, y, z) {
			v = MaxLight
		}
	} else {
		v = c.cat.Luminance(c.Block(x, y, z))
	}
	if !c.cat.IsOpaque(c.Block(x, y, z)) {
		for _, d := range sides {
			n, nx, ny, nz, ok := c.neighborCell(res, x+d[0], y+d[1], z+d[2])
			if !ok {
				continue
			}
			nl := n.Light(nx, ny, nz, k)
			if nl != NoData && nl > 0 && nl-1 > v {
				v = nl - 1
			}
		}
	}
	c.SetLight(x, y, z, v, k)
}

// SpreadLight floods light outward from a seed cell: the seed takes value,
// and every 6-connected non-opaque neighbor whose light is below value-1
// takes value-1, continuing until attenuation reaches zero. Chunk boundaries
// are crossed through the resolver.
func (c *Chunk) SpreadLight(res Resolver, x, y, z int, value byte, k Kind) {
	if !c.dims.InBounds(x, y, z) {
		return
	}
	if value > MaxLight {
		value = MaxLight
	}
	c.SetLight(x, y, z, value, k)
	spreadFrom(res, []cell{{c, x, y, z, value}}, k, nil)
}

// spreadFrom drains a multi-source spread queue. Cells only ever get
// brighter, which bounds requeues by MaxLight and guarantees termination
// without a visited set. A non-nil allowed set restricts writes to the cells
// it contains; unspread uses this to repair exactly the region it cleared.
func spreadFrom(res Resolver, queue []cell, k Kind, allowed map[cellKey]bool) {
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if cur.v <= 1 {
			continue
		}
		next := cur.v - 1
		for _, d := range sides {
			n, nx, ny, nz, ok := cur.c.neighborCell(res, cur.x+d[0], cur.y+d[1], cur.z+d[2])
			if !ok {
				continue
			}
			if allowed != nil && !allowed[cellKey{n, nx, ny, nz}] {
				continue
			}
			if n.cat.IsOpaque(n.Block(nx, ny, nz)) {
				continue
			}
			if nl := n.Light(nx, ny, nz, k); nl < next {
				n.SetLight(nx, ny, nz, next, k)
				queue = append(queue, cell{n, nx, ny, nz, next})
			}
		}
	}
}

// UnspreadLight removes the illumination that flowed out of a cell whose
// light dropped from oldValue. Cells lit only by the strictly decreasing
// chain rooted at the seed are cleared; cells at the frontier that hold an
// equal or brighter, independently sourced value are collected and respread
// afterwards so illumination from other sources is preserved.
func (c *Chunk) UnspreadLight(res Resolver, x, y, z int, oldValue byte, k Kind) {
	if !c.dims.InBounds(x, y, z) || oldValue == 0 {
		return
	}

	queue := []cell{{c, x, y, z, oldValue}}
	cleared := map[cellKey]bool{{c, x, y, z}: true}
	var frontier []cell
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		if cur.v <= 1 {
			continue
		}
		for _, d := range sides {
			n, nx, ny, nz, ok := cur.c.neighborCell(res, cur.x+d[0], cur.y+d[1], cur.z+d[2])
			if !ok {
				continue
			}
			nl := n.Light(nx, ny, nz, k)
			if nl == NoData || nl == 0 {
				continue
			}
			if cleared[cellKey{n, nx, ny, nz}] {
				continue
			}
			if nl < cur.v {
				// Part of the chain this seed fed: clear and keep walking.
				n.SetLight(nx, ny, nz, 0, k)
				cleared[cellKey{n, nx, ny, nz}] = true
				queue = append(queue, cell{n, nx, ny, nz, nl})
			} else {
				// Independently sourced; relight from here afterwards.
				frontier = append(frontier, cell{n, nx, ny, nz, nl})
			}
		}
	}

	// Re-derive: own sources inside the cleared region (sky columns,
	// luminous blocks) first, then the untouched frontier. The respread is
	// confined to the cleared cells so it repairs the removal instead of
	// performing fresh propagation.
	for _, q := range queue {
		q.c.RefreshLightAt(res, q.x, q.y, q.z, k)
		if v := q.c.Light(q.x, q.y, q.z, k); v > 1 {
			frontier = append(frontier, cell{q.c, q.x, q.y, q.z, v})
		}
	}
	spreadFrom(res, frontier, k, cleared)
}

// RenderLight combines sunlight scaled by the global daylight intensity with
// point light, normalized to [0,1]. Out-of-range cells read as dark.
func (c *Chunk) RenderLight(x, y, z int, daylight float64) float64 {
	sun := c.Light(x, y, z, SunLight)
	blk := c.Light(x, y, z, BlockLight)
	if sun == NoData || blk == NoData {
		return 0
	}
	s := float64(sun) * daylight
	b := float64(blk)
	if b > s {
		s = b
	}
	return s / float64(MaxLight)
}

// RefreshLight fully re-derives the chunk's light: every sunlight column is
// recomputed, then every lit cell and every luminous block seeds one shared
// spread pass. Used when a chunk is generated or queued for a full refresh.
func (c *Chunk) RefreshLight(res Resolver) {
	var seeds []cell
	c.mu.Lock()
	for z := 0; z < c.dims.D; z++ {
		for x := 0; x < c.dims.W; x++ {
			covered := false
			for y := c.dims.H - 1; y >= 0; y-- {
				i := c.dims.Index(x, y, z)
				if c.cat.IsOpaque(c.blocks[i]) {
					covered = true
				}
				v := MaxLight
				if covered {
					v = 0
				}
				c.sunlight[i] = v
				if lum := c.cat.Luminance(c.blocks[i]); lum > c.blocklight[i] {
					c.blocklight[i] = lum
				}
				if v > 1 {
					seeds = append(seeds, cell{c, x, y, z, v})
				}
			}
		}
	}
	c.lightDirty = true
	c.mu.Unlock()

	spreadFrom(res, seeds, SunLight, nil)

	var blkSeeds []cell
	c.mu.Lock()
	for z := 0; z < c.dims.D; z++ {
		for x := 0; x < c.dims.W; x++ {
			for y := 0; y < c.dims.H; y++ {
				i := c.dims.Index(x, y, z)
				if c.blocklight[i] > 1 {
					blkSeeds = append(blkSeeds, cell{c, x, y, z, c.blocklight[i]})
				}
			}
		}
	}
	c.mu.Unlock()
	spreadFrom(res, blkSeeds, BlockLight, nil)
}
