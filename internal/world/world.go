// Package world is the facade over the chunk cache, the update manager and
// the day/night clock. It exposes world-space block and light operations and
// runs the background maintenance loop that keeps the visible chunk window
// loaded, lit and persisted.
package world

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"voxelgarden/internal/block"
	"voxelgarden/internal/cache"
	"voxelgarden/internal/chunk"
	"voxelgarden/internal/config"
	"voxelgarden/internal/coords"
	"voxelgarden/internal/gen"
	"voxelgarden/internal/storage"
	"voxelgarden/internal/update"
)

// MetaStore persists the small world metadata record. *storage.Store
// implements it; nil disables metadata persistence.
type MetaStore interface {
	LoadMetadata() (storage.Metadata, bool, error)
	SaveMetadata(storage.Metadata) error
}

// Position is an observer position in world block space.
type Position struct {
	X, Y, Z float64
}

// World ties the core together. One render/main goroutine reads blocks and
// light and issues mutations; one background goroutine owns the maintenance
// loop. Per-chunk data is guarded inside each chunk.
type World struct {
	title string
	seed  string

	cfg     config.Config
	mapper  coords.Mapper
	cat     *block.Catalog
	cache   *cache.Cache
	updates *update.Manager
	meta    MetaStore
	terrain *gen.Terrain
	flora   *gen.Flora
	rng     *rand.Rand
	log     *log.Logger

	// Observer position; guarded by obsMu.
	obsMu sync.Mutex
	obs   Position

	// Visible window, replaced wholesale on recompute so readers never see
	// a partially built list.
	visible atomic.Pointer[visibleSet]

	// Day/night clock; guarded by timeMu, mutated only by the loop (and
	// SetTime).
	timeMu   sync.Mutex
	hour     int
	daylight float64

	loop loopState

	// Cadence timestamps, touched only by Start and the loop goroutine.
	lastVisible time.Time
	lastDaytime time.Time
	lastReplant time.Time
}

// visibleSet is one published visible-chunk window.
type visibleSet struct {
	chunks []*chunk.Chunk
	byPos  map[coords.ChunkPos]bool
	center coords.ChunkPos
}

// Options collects the collaborators a world is built from.
type Options struct {
	Config   config.Config
	Catalog  *block.Catalog // nil: built-in defaults
	Store    *storage.Store // nil: in-memory world
	Notifier update.Notifier
	Logger   *log.Logger
}

// New constructs a world. Title and seed are required identifiers; missing
// ones are a configuration error. When a store is given, persisted metadata
// (seed, time, spawn) overrides the provided values, matching save files.
func New(title, seed string, opts Options) (*World, error) {
	if title == "" {
		return nil, fmt.Errorf("world: no title provided")
	}
	if seed == "" {
		return nil, fmt.Errorf("world: no seed provided")
	}
	cfg := opts.Config
	if cfg == (config.Config{}) {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[world] ", log.LstdFlags|log.Lmicroseconds)
	}
	cat := opts.Catalog
	if cat == nil {
		cat = block.Default()
	}

	w := &World{
		title: title,
		seed:  seed,
		cfg:   cfg,
		cat:   cat,
		log:   logger,
	}
	if opts.Store != nil {
		w.meta = opts.Store
	}

	w.hour = 8
	var spawn *Position
	if w.meta != nil {
		m, found, err := w.meta.LoadMetadata()
		if err != nil {
			// Degrade to a first run.
			logger.Printf("load metadata: %v; starting fresh", err)
		} else if found {
			w.seed = m.Seed
			w.title = m.Title
			w.hour = m.Time % 24
			spawn = &Position{X: m.Player.X, Y: m.Player.Y, Z: m.Player.Z}
		}
	}

	w.mapper = coords.Mapper{
		Dims:  coords.Dims{W: cfg.ChunkWidth, H: cfg.ChunkHeight, D: cfg.ChunkDepth},
		ViewX: cfg.ViewDistX,
		ViewZ: cfg.ViewDistZ,
	}

	pipeline := gen.Pipeline(w.seed)
	w.terrain = pipeline[0].(*gen.Terrain)
	w.flora = gen.NewFlora(w.seed)
	w.rng = rand.New(rand.NewSource(gen.SeedValue(w.seed)))

	var persister cache.Persister
	if opts.Store != nil {
		persister = opts.Store
	}
	w.cache = cache.New(w.mapper.Dims, cat, pipeline, persister, cfg.CacheCapacity, logger)
	w.updates = update.NewManager(w.cache, opts.Notifier, cfg.UpdateBudget, logger)

	if spawn == nil {
		p := w.FindSpawn()
		spawn = &p
	}
	w.obs = *spawn
	w.updateDaylight()

	if w.meta != nil {
		if err := w.meta.SaveMetadata(w.metadata()); err != nil {
			logger.Printf("save metadata: %v", err)
		}
	}

	w.loop.init()
	w.RecomputeVisible()
	return w, nil
}

func (w *World) metadata() storage.Metadata {
	var m storage.Metadata
	m.Seed = w.seed
	m.Title = w.title
	m.Time = w.Hour()
	p := w.Observer()
	m.Player.X, m.Player.Y, m.Player.Z = p.X, p.Y, p.Z
	return m
}

// Title returns the world title.
func (w *World) Title() string { return w.title }

// Seed returns the effective world seed.
func (w *World) Seed() string { return w.seed }

// Observer returns the current observer position.
func (w *World) Observer() Position {
	w.obsMu.Lock()
	defer w.obsMu.Unlock()
	return w.obs
}

// SetObserver moves the observer. The visible window follows on the next
// maintenance tick; for teleports call RecomputeVisible explicitly.
func (w *World) SetObserver(p Position) {
	w.obsMu.Lock()
	w.obs = p
	w.obsMu.Unlock()
}

// FindSpawn scans diagonally outward for the first column comfortably above
// sea level.
func (w *World) FindSpawn() Position {
	for xz := 1024; xz < 1024+100000; xz++ {
		h := w.terrain.HeightAt(xz, xz)
		if h > gen.SeaLevel+2 && h+16 < w.mapper.Dims.H {
			return Position{X: float64(xz), Y: float64(h + 16), Z: float64(xz)}
		}
	}
	return Position{Y: float64(w.mapper.Dims.H)}
}

// chunkAndLocal resolves a world coordinate to the owning chunk and the
// wrapped local block coordinate.
func (w *World) chunkAndLocal(x, z int) (*chunk.Chunk, int, int) {
	c := w.cache.LoadOrCreate(w.mapper.ChunkX(x), w.mapper.ChunkZ(z))
	return c, w.mapper.BlockX(x), w.mapper.BlockZ(z)
}

// Block returns the block type at a world coordinate, or chunk.NoData when
// the coordinate resolves to no addressable cell.
func (w *World) Block(x, y, z int) block.Type {
	c, lx, lz := w.chunkAndLocal(x, z)
	if c == nil {
		return chunk.NoData
	}
	return c.Block(lx, y, lz)
}

// IsBlockSurrounded reports whether the four xz-plane neighbors are occupied.
func (w *World) IsBlockSurrounded(x, y, z int) bool {
	occupied := func(t block.Type) bool { return t != block.Air && t != chunk.NoData }
	return occupied(w.Block(x+1, y, z)) || occupied(w.Block(x-1, y, z)) ||
		occupied(w.Block(x, y, z+1)) || occupied(w.Block(x, y, z-1))
}

// CanBlockSeeTheSky reports sky visibility at a world coordinate;
// unresolvable coordinates default to visible.
func (w *World) CanBlockSeeTheSky(x, y, z int) bool {
	c, lx, lz := w.chunkAndLocal(x, z)
	if c == nil {
		return true
	}
	return c.CanSeeSky(lx, y, lz)
}

// Light returns the light intensity of a kind at a world coordinate, or
// chunk.NoData.
func (w *World) Light(x, y, z int, k chunk.Kind) byte {
	c, lx, lz := w.chunkAndLocal(x, z)
	if c == nil {
		return chunk.NoData
	}
	return c.Light(lx, y, lz, k)
}

// SetLight writes a light intensity at a world coordinate; unresolvable
// coordinates no-op.
func (w *World) SetLight(x, y, z int, v byte, k chunk.Kind) {
	c, lx, lz := w.chunkAndLocal(x, z)
	if c == nil {
		return
	}
	c.SetLight(lx, y, lz, v, k)
}

// RenderingLightValue combines sun and point light at a world coordinate
// under the current daylight intensity, in [0,1].
func (w *World) RenderingLightValue(x, y, z int) float64 {
	c, lx, lz := w.chunkAndLocal(x, z)
	if c == nil {
		return 0
	}
	return c.RenderLight(lx, y, lz, w.Daylight())
}

// SetBlock places (or clears) a block at a world coordinate. The write only
// proceeds when overwrite is requested or the cell is empty, and the current
// occupant is removable. With update, the sunlight column and both light
// kinds are re-derived: increases spread outward, decreases unspread, and
// the chunk is queued for a render refresh.
func (w *World) SetBlock(x, y, z int, t block.Type, doUpdate, overwrite bool) {
	c, lx, lz := w.chunkAndLocal(x, z)
	if c == nil {
		return
	}

	current := c.Block(lx, y, lz)
	if current == chunk.NoData {
		return
	}
	if !overwrite && current != block.Air {
		return
	}
	if w.cat.IsRemovable(current) {
		c.SetBlock(lx, y, lz, t)
	}
	if !doUpdate {
		return
	}

	// Sunlight: recompute the column, refresh the cell, then propagate the
	// difference.
	oldSun := c.Light(lx, y, lz, chunk.SunLight)
	c.CalcSunlightColumn(lx, lz, true)
	c.RefreshLightAt(w.cache, lx, y, lz, chunk.SunLight)
	newSun := c.Light(lx, y, lz, chunk.SunLight)
	if newSun > oldSun {
		c.SpreadLight(w.cache, lx, y, lz, newSun, chunk.SunLight)
	} else if newSun < oldSun {
		c.UnspreadLight(w.cache, lx, y, lz, oldSun, chunk.SunLight)
	}

	// Point light from the placed type's luminance.
	lum := w.cat.Luminance(t)
	oldBlk := c.Light(lx, y, lz, chunk.BlockLight)
	c.SetLight(lx, y, lz, lum, chunk.BlockLight)
	newBlk := c.Light(lx, y, lz, chunk.BlockLight)
	if newBlk > oldBlk {
		c.SpreadLight(w.cache, lx, y, lz, lum, chunk.BlockLight)
	} else {
		c.RefreshLightAt(w.cache, lx, y, lz, chunk.BlockLight)
		if newBlk < oldBlk {
			c.UnspreadLight(w.cache, lx, y, lz, oldBlk, chunk.BlockLight)
		}
	}

	w.updates.Queue(c, true, false, false)
}

// GenerateNewChunk pre-generates a chunk and its neighbors, derives their
// light and persists the center chunk. Used to prewarm a world.
func (w *World) GenerateNewChunk(cx, cz int) {
	c := w.cache.LoadOrCreate(cx, cz)
	if c == nil {
		return
	}
	for _, n := range c.Neighbors(w.cache) {
		if n.Fresh() {
			n.RefreshLight(w.cache)
			n.SetFresh(false)
		}
	}
	if c.Fresh() {
		c.RefreshLight(w.cache)
		c.SetFresh(false)
	}
	w.cache.Persist(c)
}

// UpdateAllChunks queues every visible chunk for a full refresh.
func (w *World) UpdateAllChunks() {
	for _, c := range w.VisibleChunks() {
		w.updates.Queue(c, false, true, false)
	}
}

// VisibleChunks returns the current visible window snapshot.
func (w *World) VisibleChunks() []*chunk.Chunk {
	if vs := w.visible.Load(); vs != nil {
		return vs.chunks
	}
	return nil
}

// IsChunkVisible reports visible-window membership by coordinate.
func (w *World) IsChunkVisible(pos coords.ChunkPos) bool {
	vs := w.visible.Load()
	return vs != nil && vs.byPos[pos]
}

// Updates exposes the update manager (render thread: FlushDisplay; tools:
// diagnostics).
func (w *World) Updates() *update.Manager { return w.updates }

// CacheSize is the live cached chunk count.
func (w *World) CacheSize() int { return w.cache.Size() }

// GeneratedChunks is the number of chunks lit for the first time.
func (w *World) GeneratedChunks() int { return w.updates.GeneratedChunks() }

// String summarizes the world state for diagnostics.
func (w *World) String() string {
	return fmt.Sprintf("world (cdl: %d, cn: %d, cache: %d, ud: %.6fs, seed: %q, title: %q)",
		w.updates.DisplaySize(), w.updates.Size(), w.cache.Size(),
		w.updates.MeanUpdateDuration().Seconds(), w.seed, w.title)
}
