package world

import (
	"fmt"
	"math"
	"sync"
	"time"

	"voxelgarden/internal/chunk"
	"voxelgarden/internal/coords"
)

// Loop lifecycle. The maintenance loop is a single goroutine owned by the
// world: Start spawns it, Suspend parks it between ticks, Resume wakes it,
// Stop waits for it to exit. A stopped world can be started again.

const (
	stateStopped = iota
	stateRunning
	stateSuspended
	stateStopping
)

// loopBeat is the base cadence; each concern applies its own interval on top.
const loopBeat = 20 * time.Millisecond

type loopState struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state int
	done  chan struct{}
}

func (l *loopState) init() {
	l.cond = sync.NewCond(&l.mu)
	l.state = stateStopped
}

// Start spawns the maintenance loop. Starting an already-running world is an
// error.
func (w *World) Start() error {
	l := &w.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != stateStopped {
		return fmt.Errorf("world: maintenance loop already started")
	}
	l.state = stateRunning
	l.done = make(chan struct{})
	now := time.Now()
	w.lastVisible, w.lastDaytime, w.lastReplant = now, now, now
	go w.run(l.done)
	return nil
}

// Suspend parks the loop after the current tick. No-op unless running.
func (w *World) Suspend() {
	l := &w.loop
	l.mu.Lock()
	if l.state == stateRunning {
		l.state = stateSuspended
	}
	l.mu.Unlock()
}

// Resume wakes a suspended loop. No-op unless suspended.
func (w *World) Resume() {
	l := &w.loop
	l.mu.Lock()
	if l.state == stateSuspended {
		l.state = stateRunning
		l.cond.Broadcast()
	}
	l.mu.Unlock()
}

// Stop asks the loop to exit and waits for it. Stopping a stopped world is a
// no-op. A suspended loop is woken so it can observe the stop request.
func (w *World) Stop() {
	l := &w.loop
	l.mu.Lock()
	if l.state == stateStopped {
		l.mu.Unlock()
		return
	}
	done := l.done
	l.state = stateStopping
	l.cond.Broadcast()
	l.mu.Unlock()

	<-done

	l.mu.Lock()
	l.state = stateStopped
	l.mu.Unlock()
}

// Running reports whether the loop is actively ticking.
func (w *World) Running() bool {
	w.loop.mu.Lock()
	defer w.loop.mu.Unlock()
	return w.loop.state == stateRunning
}

// Suspended reports whether the loop is parked.
func (w *World) Suspended() bool {
	w.loop.mu.Lock()
	defer w.loop.mu.Unlock()
	return w.loop.state == stateSuspended
}

// Dispose stops the loop and persists everything: world metadata first, then
// every cached chunk. Safe to call on a never-started world.
func (w *World) Dispose() {
	w.Stop()
	if w.meta != nil {
		if err := w.meta.SaveMetadata(w.metadata()); err != nil {
			w.log.Printf("save metadata: %v", err)
		}
	}
	w.cache.FlushAll()
}

func (w *World) run(done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(loopBeat)
	defer ticker.Stop()
	for {
		if !w.awaitRunnable() {
			return
		}
		w.tick(time.Now())
		<-ticker.C
	}
}

// awaitRunnable blocks while suspended and reports whether the loop should
// keep ticking.
func (w *World) awaitRunnable() bool {
	l := &w.loop
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.state == stateSuspended {
		l.cond.Wait()
	}
	return l.state == stateRunning
}

// tick is one maintenance pass: drain pending chunk updates, emit the display
// refreshes they produced, then run each timed concern whose interval has
// elapsed. The clock only advances while the update queue is idle; a busy tick
// leaves the daytime timestamp untouched so the hour flips as soon as the
// queue drains. A skipped replant leaves its timestamp untouched too, so the
// next tick retries.
func (w *World) tick(now time.Time) {
	w.updates.Drain()
	w.updates.FlushDisplay()

	if now.Sub(w.lastVisible) >= w.cfg.VisibleInterval() {
		w.RecomputeVisible()
		w.lastVisible = now
	}
	if now.Sub(w.lastDaytime) >= w.cfg.DaytimeInterval() && w.updates.Size() == 0 {
		w.advanceHour()
		w.lastDaytime = now
	}
	if now.Sub(w.lastReplant) >= w.cfg.ReplantInterval() && w.replantTick() {
		w.lastReplant = now
	}
}

// RecomputeVisible rebuilds the visible chunk window around the observer and
// publishes it as one atomic snapshot. Chunks entering the window are queued
// for a full refresh with their neighbors; queued work for chunks that left
// the window is pruned and the cache evicts down to capacity.
func (w *World) RecomputeVisible() {
	p := w.Observer()
	center := coords.ChunkPos{
		X: w.mapper.ChunkX(int(math.Floor(p.X))),
		Z: w.mapper.ChunkZ(int(math.Floor(p.Z))),
	}
	old := w.visible.Load()

	vx, vz := w.cfg.ViewDistX, w.cfg.ViewDistZ
	chunks := make([]*chunk.Chunk, 0, vx*vz)
	byPos := make(map[coords.ChunkPos]bool, vx*vz)
	for dz := 0; dz < vz; dz++ {
		for dx := 0; dx < vx; dx++ {
			c := w.cache.LoadOrCreate(center.X-vx/2+dx, center.Z-vz/2+dz)
			if c == nil {
				continue
			}
			chunks = append(chunks, c)
			byPos[c.Pos] = true
			if old == nil || !old.byPos[c.Pos] {
				w.updates.Queue(c, false, true, true)
			}
		}
	}
	w.visible.Store(&visibleSet{chunks: chunks, byPos: byPos, center: center})

	w.updates.PruneInvisible(byPos)
	w.cache.Evict(byPos, center)
}

// replantTick applies the flora generator to one random settled visible chunk
// and reports whether it did. Skipped at night, while updates are pending, and
// for chunks that are fresh or still dirty.
func (w *World) replantTick() bool {
	if !w.IsDaytime() || w.updates.Size() > 0 {
		return false
	}
	vs := w.visible.Load()
	if vs == nil || len(vs.chunks) == 0 {
		return false
	}
	c := vs.chunks[w.rng.Intn(len(vs.chunks))]
	if c.Fresh() || c.Dirty() || c.LightDirty() {
		return false
	}
	w.flora.Generate(c)
	w.updates.Queue(c, true, false, false)
	return true
}
