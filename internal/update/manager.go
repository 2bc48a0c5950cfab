// Package update schedules chunk maintenance: a coalescing queue of chunks
// whose light or mesh state is stale, and the notifications that tell an
// external renderer which chunks to rebuild.
package update

import (
	"log"
	"sync"
	"time"

	"voxelgarden/internal/chunk"
	"voxelgarden/internal/coords"
)

// Request is one pending chunk update. Requests for the same chunk coalesce:
// a later enqueue ORs its flags into the pending entry.
type Request struct {
	Chunk            *chunk.Chunk
	LightChanged     bool
	FullRefresh      bool
	IncludeNeighbors bool
}

// Notifier receives render-facing events. The renderer consumes them; this
// core never draws anything itself.
type Notifier interface {
	// ChunkMeshStale tells the renderer the chunk's mesh must be rebuilt.
	ChunkMeshStale(pos coords.ChunkPos)
	// ChunkDisplayStale tells the renderer the chunk's display state must
	// be refreshed.
	ChunkDisplayStale(pos coords.ChunkPos)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) ChunkMeshStale(coords.ChunkPos)    {}
func (NopNotifier) ChunkDisplayStale(coords.ChunkPos) {}

// Manager owns the two logical queues: light/mesh refresh work processed by
// the background loop, and display-refresh notifications handed to the
// renderer. It also tracks update timing diagnostics.
type Manager struct {
	res      chunk.Resolver
	notifier Notifier
	log      *log.Logger

	budget int // max updates drained per tick

	mu        sync.Mutex
	pending   map[coords.ChunkPos]*Request
	order     []coords.ChunkPos
	displayed []coords.ChunkPos // display-refresh queue, flushed after each drain

	generated int
	durations []time.Duration // sliding window for the mean
	durTotal  time.Duration
}

const durationWindow = 64

// NewManager builds a manager draining at most budget updates per call to
// Drain. A nil notifier discards render events.
func NewManager(res chunk.Resolver, notifier Notifier, budget int, logger *log.Logger) *Manager {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if budget <= 0 {
		budget = 16
	}
	return &Manager{
		res:      res,
		notifier: notifier,
		log:      logger,
		budget:   budget,
		pending:  make(map[coords.ChunkPos]*Request),
	}
}

// Queue enqueues a chunk for update. Queueing an already-pending chunk merges
// the flags instead of adding a second entry.
func (m *Manager) Queue(c *chunk.Chunk, lightChanged, fullRefresh, includeNeighbors bool) {
	if c == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.pending[c.Pos]; ok {
		r.LightChanged = r.LightChanged || lightChanged
		r.FullRefresh = r.FullRefresh || fullRefresh
		r.IncludeNeighbors = r.IncludeNeighbors || includeNeighbors
		return
	}
	m.pending[c.Pos] = &Request{
		Chunk:            c,
		LightChanged:     lightChanged,
		FullRefresh:      fullRefresh,
		IncludeNeighbors: includeNeighbors,
	}
	m.order = append(m.order, c.Pos)
}

// Drain processes up to the per-tick budget of pending updates: fresh chunks
// get their first full light derivation, full-refresh requests re-derive
// light, and every processed chunk is reported mesh-stale to the renderer.
func (m *Manager) Drain() {
	for n := 0; n < m.budget; n++ {
		req := m.pop()
		if req == nil {
			return
		}
		start := time.Now()
		m.process(req)
		m.record(time.Since(start))
	}
}

func (m *Manager) pop() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.order) > 0 {
		pos := m.order[0]
		m.order = m.order[1:]
		if r, ok := m.pending[pos]; ok {
			delete(m.pending, pos)
			return r
		}
	}
	return nil
}

func (m *Manager) process(req *Request) {
	c := req.Chunk

	if c.Fresh() {
		c.RefreshLight(m.res)
		c.SetFresh(false)
		m.mu.Lock()
		m.generated++
		m.mu.Unlock()
	} else if req.FullRefresh {
		c.RefreshLight(m.res)
	}

	targets := []*chunk.Chunk{c}
	if req.IncludeNeighbors {
		targets = append(targets, c.Neighbors(m.res)...)
	}
	for _, t := range targets {
		t.SetDirty(false)
		t.SetLightDirty(false)
		m.notifier.ChunkMeshStale(t.Pos)
		m.queueDisplay(t.Pos)
	}
}

func (m *Manager) queueDisplay(pos coords.ChunkPos) {
	m.mu.Lock()
	m.displayed = append(m.displayed, pos)
	m.mu.Unlock()
}

// FlushDisplay drains the display-refresh queue, emitting one notification
// per chunk. The maintenance loop calls this once per tick, after draining
// updates; an embedded renderer may also call it per frame.
func (m *Manager) FlushDisplay() {
	m.mu.Lock()
	queued := m.displayed
	m.displayed = nil
	m.mu.Unlock()
	for _, pos := range queued {
		m.notifier.ChunkDisplayStale(pos)
	}
}

// PruneInvisible drops queued updates for chunks outside the current visible
// window, keeping the queue from growing without bound as the observer moves.
func (m *Manager) PruneInvisible(visible map[coords.ChunkPos]bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.order[:0]
	for _, pos := range m.order {
		if visible[pos] {
			kept = append(kept, pos)
		} else {
			delete(m.pending, pos)
		}
	}
	m.order = kept
}

func (m *Manager) record(d time.Duration) {
	if d > 250*time.Millisecond && m.log != nil {
		m.log.Printf("slow chunk update: %v", d)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations = append(m.durations, d)
	m.durTotal += d
	if len(m.durations) > durationWindow {
		m.durTotal -= m.durations[0]
		m.durations = m.durations[1:]
	}
}

// Size is the number of pending light/mesh updates.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// DisplaySize is the number of pending display-refresh notifications.
func (m *Manager) DisplaySize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.displayed)
}

// GeneratedChunks is the number of chunks whose first light derivation ran.
func (m *Manager) GeneratedChunks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generated
}

// MeanUpdateDuration is the mean over the recent update window.
func (m *Manager) MeanUpdateDuration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) == 0 {
		return 0
	}
	return m.durTotal / time.Duration(len(m.durations))
}
