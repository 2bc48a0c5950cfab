package chunk

import (
	"testing"

	"voxelgarden/internal/block"
	"voxelgarden/internal/coords"
)

func TestBlockAccessBounds(t *testing.T) {
	c := New(coords.ChunkPos{}, 1, testDims, block.Default())
	if got := c.Block(-1, 0, 0); got != NoData {
		t.Fatalf("out-of-range read = %d, want NoData", got)
	}
	if got := c.Light(0, testDims.H, 0, SunLight); got != NoData {
		t.Fatalf("out-of-range light read = %d, want NoData", got)
	}
	// Out-of-range writes are dropped, not panics.
	c.SetBlock(99, 0, 0, block.Stone)
	c.SetLight(0, -1, 0, 5, BlockLight)
}

func TestSetLightClamps(t *testing.T) {
	c := New(coords.ChunkPos{}, 1, testDims, block.Default())
	c.SetLight(0, 0, 0, 200, SunLight)
	if got := c.Light(0, 0, 0, SunLight); got != MaxLight {
		t.Fatalf("clamped light = %d, want %d", got, MaxLight)
	}
}

func TestFlags(t *testing.T) {
	c := New(coords.ChunkPos{}, 1, testDims, block.Default())
	if !c.Fresh() || !c.Dirty() || !c.LightDirty() {
		t.Fatalf("new chunk must be fresh, dirty and light-dirty")
	}
	c.SetFresh(false)
	c.SetDirty(false)
	c.SetLightDirty(false)
	c.SetBlock(0, 0, 0, block.Dirt)
	if !c.Dirty() {
		t.Fatalf("block write must mark chunk dirty")
	}
	c.SetLight(0, 0, 0, 3, BlockLight)
	if !c.LightDirty() {
		t.Fatalf("light write must mark chunk light-dirty")
	}
}

func TestDataRestoreRoundTrip(t *testing.T) {
	c := New(coords.ChunkPos{X: 2, Z: -3}, 7, testDims, block.Default())
	c.SetBlock(1, 2, 3, block.Stone)
	c.SetLight(1, 2, 3, 9, SunLight)
	blocks, sun, blk := c.Data()

	d := New(coords.ChunkPos{X: 2, Z: -3}, 8, testDims, block.Default())
	if err := d.Restore(blocks, sun, blk); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if d.Fresh() {
		t.Fatalf("restored chunk must not be fresh")
	}
	if got := d.Block(1, 2, 3); got != block.Stone {
		t.Fatalf("restored block = %d, want stone", got)
	}
	if got := d.Light(1, 2, 3, SunLight); got != 9 {
		t.Fatalf("restored light = %d, want 9", got)
	}

	if err := d.Restore(blocks[:5], sun, blk); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}
