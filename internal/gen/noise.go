// Package gen holds the chunk generator pipeline: seeded, deterministic
// terrain/feature generators that fill a chunk's block grid given its chunk
// coordinate. The pipeline order is fixed: terrain, lakes, mountains,
// resources, forest. Flora runs separately as an environmental tick.
package gen

import "hash/fnv"

// SeedValue folds a seed string into the integer seed the noise functions use.
func SeedValue(seed string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return int64(h.Sum64())
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

func hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// unit maps a hash to [0,1).
func unit(h uint64) float64 {
	return float64(h>>11) / float64(1<<53)
}

func floorDiv(a, b int) int {
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// smooth is the classic smoothstep fade.
func smooth(t float64) float64 { return t * t * (3 - 2*t) }

// valueNoise2 is lattice value noise: hash values at integer corners,
// bilinearly blended with a smoothstep fade. cell is the lattice spacing in
// blocks.
func valueNoise2(seed int64, x, z, cell int) float64 {
	gx, gz := floorDiv(x, cell), floorDiv(z, cell)
	fx := float64(mod(x, cell)) / float64(cell)
	fz := float64(mod(z, cell)) / float64(cell)
	fx, fz = smooth(fx), smooth(fz)

	v00 := unit(hash2(seed, gx, gz))
	v10 := unit(hash2(seed, gx+1, gz))
	v01 := unit(hash2(seed, gx, gz+1))
	v11 := unit(hash2(seed, gx+1, gz+1))
	return lerp(lerp(v00, v10, fx), lerp(v01, v11, fx), fz)
}

// fbm2 sums octaves of valueNoise2 with halving amplitude and spacing.
// The result stays in [0,1).
func fbm2(seed int64, x, z, cell, octaves int) float64 {
	var sum, norm, amp float64 = 0, 0, 1
	for o := 0; o < octaves && cell >= 2; o++ {
		sum += amp * valueNoise2(seed+int64(o)*1013, x, z, cell)
		norm += amp
		amp /= 2
		cell /= 2
	}
	return sum / norm
}
