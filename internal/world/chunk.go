package world

import (
	"fmt"
	"sort"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Chunk владеет блоками одной кубической области сетки и собирает из них меш
type Chunk struct {
	coord    ChunkCoord
	offset   vec.Vec3 // Глобальная координата минимального угла
	size     int
	src      blockSource
	registry *block.Registry

	blocks map[vec.Vec3]*Block
	order  []vec.Vec3 // Отсортированные ключи blocks, nil после изменения набора
	dirty  map[vec.Vec3]struct{}
	mesh   []float32

	decor        map[string][]*Decor
	decorBuffers map[string]*DecorGroup
}

// NewChunk создаёт пустой чанк. Поиск соседних блоков идёт через src.
func NewChunk(coord ChunkCoord, size int, src blockSource, registry *block.Registry) *Chunk {
	return &Chunk{
		coord:        coord,
		offset:       coord.Mul(size),
		size:         size,
		src:          src,
		registry:     registry,
		blocks:       make(map[vec.Vec3]*Block),
		dirty:        make(map[vec.Vec3]struct{}),
		decor:        make(map[string][]*Decor),
		decorBuffers: make(map[string]*DecorGroup),
	}
}

func (c *Chunk) Coord() ChunkCoord { return c.coord }
func (c *Chunk) Offset() vec.Vec3  { return c.offset }
func (c *Chunk) Len() int          { return len(c.blocks) }

// Mesh возвращает собранный меш чанка. Срез нельзя изменять.
func (c *Chunk) Mesh() []float32 {
	return c.mesh
}

// VertexCount возвращает количество вершин в меше
func (c *Chunk) VertexCount() int {
	return len(c.mesh) / block.FloatsPerVertex
}

// Dirty возвращает отсортированный список изменённых с последней перестройки координат
func (c *Chunk) Dirty() []vec.Vec3 {
	return sortedKeys(c.dirty)
}

// Contains проверяет, принадлежит ли координата области чанка
func (c *Chunk) Contains(pos vec.Vec3) bool {
	local := pos.Sub(c.offset)
	for _, v := range local.Array() {
		if v < 0 || v >= c.size {
			return false
		}
	}
	return true
}

// GetBlock возвращает блок по глобальной координате
func (c *Chunk) GetBlock(pos vec.Vec3) (*Block, bool) {
	b, exists := c.blocks[pos]
	return b, exists
}

// AddBlock ставит блок типа id в позицию pos (глобальная координата внутри чанка).
// При rebuild выполняется дельта-перестройка; возвращаются чужие чанки,
// которым нужен Combine.
func (c *Chunk) AddBlock(id block.BlockID, pos vec.Vec3, rebuild bool) ([]ChunkCoord, error) {
	if !c.Contains(pos) {
		return nil, fmt.Errorf("block %v outside chunk %v: %w", pos, c.coord, ErrInvalidCoordinate)
	}
	ref, ok := c.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("block type %d at %v: %w", id, pos, ErrUnknownBlockType)
	}

	if _, exists := c.blocks[pos]; !exists {
		c.order = nil
	}
	b := &Block{Type: id, Pos: pos, Chunk: c.coord}
	b.generate(c.src, ref, c.size)
	c.blocks[pos] = b
	c.dirty[pos] = struct{}{}

	if rebuild {
		return c.Rebuild(true), nil
	}
	return nil, nil
}

// RemoveBlock удаляет блок в позиции pos. Отсутствие блока - не ошибка.
func (c *Chunk) RemoveBlock(pos vec.Vec3, rebuild bool) ([]ChunkCoord, error) {
	if !c.Contains(pos) {
		return nil, fmt.Errorf("block %v outside chunk %v: %w", pos, c.coord, ErrInvalidCoordinate)
	}
	if _, exists := c.blocks[pos]; !exists {
		return nil, nil
	}

	delete(c.blocks, pos)
	c.order = nil
	c.dirty[pos] = struct{}{}

	if rebuild {
		return c.Rebuild(true), nil
	}
	return nil, nil
}

// Rebuild пересчитывает грани и собирает меш заново.
// Полная перестройка пересчитывает все блоки чанка; дельта - только изменённые
// координаты и их соседей. Соседи из других чанков пересчитываются, но их меш
// не собирается: их координаты возвращаются для последующего Combine.
func (c *Chunk) Rebuild(deltasOnly bool) []ChunkCoord {
	foreign := c.regenerate(deltasOnly)
	c.Combine()
	return foreign
}

// regenerate - первая фаза перестройки: пересчёт буферов граней без сборки меша
func (c *Chunk) regenerate(deltasOnly bool) []ChunkCoord {
	var foreign map[ChunkCoord]struct{}

	if !deltasOnly {
		for _, pos := range c.sortedBlocks() {
			b := c.blocks[pos]
			b.generate(c.src, c.mustRef(b.Type), c.size)
		}
	} else {
		built := make(map[vec.Vec3]struct{}, len(c.dirty)*len(neighborhood7))
		for _, pos := range sortedKeys(c.dirty) {
			for _, off := range neighborhood7 {
				p := pos.Add(off)
				if _, done := built[p]; done {
					continue
				}
				built[p] = struct{}{}

				b, exists := c.src.GetBlock(p)
				if !exists {
					continue
				}
				b.generate(c.src, c.mustRef(b.Type), c.size)
				if b.Chunk != c.coord {
					if foreign == nil {
						foreign = make(map[ChunkCoord]struct{})
					}
					foreign[b.Chunk] = struct{}{}
				}
			}
		}
	}

	c.dirty = make(map[vec.Vec3]struct{})
	return sortedKeys(foreign)
}

// Combine собирает меш из уже готовых буферов блоков, не пересчитывая грани
func (c *Chunk) Combine() {
	total := 0
	for _, b := range c.blocks {
		total += len(b.buffer)
	}

	mesh := make([]float32, 0, total)
	for _, pos := range c.sortedBlocks() {
		mesh = append(mesh, c.blocks[pos].buffer...)
	}
	c.mesh = mesh
}

// Blocks возвращает блоки чанка в детерминированном порядке
func (c *Chunk) Blocks() []*Block {
	out := make([]*Block, 0, len(c.blocks))
	for _, pos := range c.sortedBlocks() {
		out = append(out, c.blocks[pos])
	}
	return out
}

func (c *Chunk) sortedBlocks() []vec.Vec3 {
	if c.order == nil {
		c.order = sortedKeys(c.blocks)
	}
	return c.order
}

// mustRef возвращает геометрию типа, уже проверенного при вставке
func (c *Chunk) mustRef(id block.BlockID) *block.ReferenceGeometry {
	ref, ok := c.registry.Get(id)
	if !ok {
		panic(fmt.Sprintf("block type %d vanished from registry", id))
	}
	return ref
}

func sortedKeys[V any](m map[vec.Vec3]V) []vec.Vec3 {
	keys := make([]vec.Vec3, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
