// Package block holds the block-type catalog: per-type flags governing light
// passage, removability, visibility and intrinsic point-light emission.
package block

// Type is a block-type id as stored in chunk block grids.
type Type = byte

// Air is the empty cell type.
const Air Type = 0

// Def describes one block type.
type Def struct {
	ID        Type   `yaml:"id"`
	Name      string `yaml:"name"`
	Opaque    bool   `yaml:"opaque"`
	Removable bool   `yaml:"removable"`
	Invisible bool   `yaml:"invisible"`
	Luminance byte   `yaml:"luminance"`
}

// Catalog indexes block definitions by type id. Unknown ids resolve to a
// conservative default: opaque, not removable, no luminance.
type Catalog struct {
	defs map[Type]Def
}

var unknownDef = Def{Name: "unknown", Opaque: true}

// Get returns the definition for a type id.
func (c *Catalog) Get(t Type) Def {
	if d, ok := c.defs[t]; ok {
		return d
	}
	return unknownDef
}

// IsOpaque reports whether the type blocks light.
func (c *Catalog) IsOpaque(t Type) bool { return c.Get(t).Opaque }

// IsRemovable reports whether the type may be overwritten by a block write.
func (c *Catalog) IsRemovable(t Type) bool { return c.Get(t).Removable }

// Luminance returns the type's intrinsic point-light emission.
func (c *Catalog) Luminance(t Type) byte { return c.Get(t).Luminance }

// Len is the number of defined types.
func (c *Catalog) Len() int { return len(c.defs) }

// Well-known default type ids. The catalog file may extend or override them.
const (
	Grass      Type = 1
	Dirt       Type = 2
	Stone      Type = 3
	Water      Type = 4
	Trunk      Type = 5
	Leaves     Type = 6
	Sand       Type = 7
	TallGrass  Type = 8
	RedFlower  Type = 9
	Torch      Type = 10
	CoalOre    Type = 11
	GoldOre    Type = 12
	Snow       Type = 13
	DarkLeaves Type = 14
)

// Default returns the built-in catalog, used when no catalog file is given.
func Default() *Catalog {
	defs := []Def{
		{ID: Air, Name: "air", Removable: true, Invisible: true},
		{ID: Grass, Name: "grass", Opaque: true, Removable: true},
		{ID: Dirt, Name: "dirt", Opaque: true, Removable: true},
		{ID: Stone, Name: "stone", Opaque: true, Removable: true},
		{ID: Water, Name: "water", Removable: true},
		{ID: Trunk, Name: "trunk", Opaque: true, Removable: true},
		{ID: Leaves, Name: "leaves", Removable: true},
		{ID: Sand, Name: "sand", Opaque: true, Removable: true},
		{ID: TallGrass, Name: "tall-grass", Removable: true, Invisible: false},
		{ID: RedFlower, Name: "red-flower", Removable: true},
		{ID: Torch, Name: "torch", Removable: true, Luminance: 16},
		{ID: CoalOre, Name: "coal-ore", Opaque: true, Removable: true},
		{ID: GoldOre, Name: "gold-ore", Opaque: true, Removable: true},
		{ID: Snow, Name: "snow", Opaque: true, Removable: true},
		{ID: DarkLeaves, Name: "dark-leaves", Removable: true},
	}
	c := &Catalog{defs: make(map[Type]Def, len(defs))}
	for _, d := range defs {
		c.defs[d.ID] = d
	}
	return c
}
