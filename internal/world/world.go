package world

import (
	"errors"
	"fmt"

	"github.com/annel0/voxel-world/internal/eventbus"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/physics"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/atomic"
)

var (
	// ErrInvalidCoordinate - координата вне области чанка
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrUnknownBlockType - тип блока не зарегистрирован
	ErrUnknownBlockType = errors.New("unknown block type")
)

const (
	DefaultChunkSize  = 16
	DefaultBlockScale = 0.75
)

// Config задаёт геометрию сетки мира
type Config struct {
	ChunkSize  int
	BlockScale float64
}

// DefaultConfig возвращает настройки по умолчанию
func DefaultConfig() Config {
	return Config{ChunkSize: DefaultChunkSize, BlockScale: DefaultBlockScale}
}

// Option настраивает World
type Option func(*World)

// WithMetrics подключает Prometheus-метрики перестроек и навмеша
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *World) { w.metrics = m }
}

// RebuildStats - итог одного прохода перестройки
type RebuildStats struct {
	Rebuilt  int // Чанки с пересобранными гранями
	Combined int // Чужие чанки, получившие только Combine
}

// World - разреженное хранилище чанков. Изменяется из одного потока;
// снимок навмеша публикуется атомарно и читается из любых горутин.
type World struct {
	cfg      Config
	registry *block.Registry
	chunks   map[ChunkCoord]*Chunk
	navmesh  atomic.Pointer[Navmesh]
	metrics  *metrics.Metrics
	events   eventbus.EventBus
}

// New создаёт пустой мир. Некорректные размеры заменяются значениями по умолчанию.
func New(cfg Config, registry *block.Registry, opts ...Option) *World {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.BlockScale <= 0 {
		cfg.BlockScale = DefaultBlockScale
	}
	if registry == nil {
		registry = block.NewRegistry()
	}

	w := &World{
		cfg:      cfg,
		registry: registry,
		chunks:   make(map[ChunkCoord]*Chunk),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.navmesh.Store(emptyNavmesh())
	return w
}

func (w *World) ChunkSize() int            { return w.cfg.ChunkSize }
func (w *World) BlockScale() float64       { return w.cfg.BlockScale }
func (w *World) Registry() *block.Registry { return w.registry }

// ChunkCoordOf возвращает координату чанка, которому принадлежит pos
func (w *World) ChunkCoordOf(pos vec.Vec3) ChunkCoord {
	return pos.FloorDiv(w.cfg.ChunkSize)
}

// Chunk возвращает чанк по координате
func (w *World) Chunk(coord ChunkCoord) (*Chunk, bool) {
	c, exists := w.chunks[coord]
	return c, exists
}

// Chunks возвращает координаты всех чанков в детерминированном порядке
func (w *World) Chunks() []ChunkCoord {
	return sortedKeys(w.chunks)
}

// MeshFor возвращает меш чанка для передачи рендеру
func (w *World) MeshFor(coord ChunkCoord) ([]float32, bool) {
	c, exists := w.chunks[coord]
	if !exists {
		return nil, false
	}
	return c.Mesh(), true
}

func (w *World) chunkFor(coord ChunkCoord) *Chunk {
	c, exists := w.chunks[coord]
	if !exists {
		c = NewChunk(coord, w.cfg.ChunkSize, w, w.registry)
		w.chunks[coord] = c
		w.metrics.SetChunks(len(w.chunks))
	}
	return c
}

// GetBlock возвращает блок по глобальной координате. Промах - (nil, false).
func (w *World) GetBlock(pos vec.Vec3) (*Block, bool) {
	c, exists := w.chunks[w.ChunkCoordOf(pos)]
	if !exists {
		return nil, false
	}
	return c.GetBlock(pos)
}

// AddBlock ставит блок; при rebuild перестраивает затронутые чанки
func (w *World) AddBlock(id block.BlockID, pos vec.Vec3, rebuild bool) error {
	if !w.registry.IsValidBlockID(id) {
		return fmt.Errorf("block type %d at %v: %w", id, pos, ErrUnknownBlockType)
	}
	coord := w.ChunkCoordOf(pos)
	if _, err := w.chunkFor(coord).AddBlock(id, pos, false); err != nil {
		logging.GetWorldLogger().Warn("Не удалось поставить блок %v: %v", pos, err)
		return err
	}
	w.publish(EventBlockChanged, eventbus.PriorityLow, BlockChanged{Pos: pos, Chunk: coord, Type: id})
	if rebuild {
		w.rebuildPass([]ChunkCoord{coord}, true)
	}
	return nil
}

// RemoveBlock удаляет блок; отсутствие блока не является ошибкой
func (w *World) RemoveBlock(pos vec.Vec3, rebuild bool) error {
	coord := w.ChunkCoordOf(pos)
	c, exists := w.chunks[coord]
	if !exists {
		return nil
	}
	b, existed := c.GetBlock(pos)
	if _, err := c.RemoveBlock(pos, false); err != nil {
		logging.GetWorldLogger().Warn("Не удалось удалить блок %v: %v", pos, err)
		return err
	}
	if existed {
		w.publish(EventBlockChanged, eventbus.PriorityLow, BlockChanged{Pos: pos, Chunk: coord, Type: b.Type, Removed: true})
	}
	if rebuild {
		w.rebuildPass([]ChunkCoord{coord}, true)
	}
	return nil
}

// Rebuild перестраивает все чанки
func (w *World) Rebuild(deltasOnly bool) RebuildStats {
	return w.rebuildPass(w.Chunks(), deltasOnly)
}

// rebuildPass - двухфазная перестройка.
// Фаза 1 пересчитывает грани в указанных чанках и собирает явный список
// чужих чанков, чьи блоки были затронуты. Фаза 2 собирает меши: пересчитанные
// чанки целиком, чужие из списка через Combine. После вызова состояния не остаётся.
func (w *World) rebuildPass(coords []ChunkCoord, deltasOnly bool) RebuildStats {
	rebuilt := make(map[ChunkCoord]struct{}, len(coords))
	pending := make(map[ChunkCoord]struct{})

	for _, coord := range coords {
		c, exists := w.chunks[coord]
		if !exists {
			continue
		}
		if deltasOnly && len(c.dirty) == 0 {
			continue
		}
		for _, f := range c.regenerate(deltasOnly) {
			pending[f] = struct{}{}
		}
		rebuilt[coord] = struct{}{}
	}

	for _, coord := range sortedKeys(rebuilt) {
		w.chunks[coord].Combine()
	}

	var stats RebuildStats
	stats.Rebuilt = len(rebuilt)
	for _, coord := range sortedKeys(pending) {
		if _, done := rebuilt[coord]; done {
			continue
		}
		w.chunks[coord].Combine()
		stats.Combined++
	}

	mode := metrics.RebuildFull
	if deltasOnly {
		mode = metrics.RebuildDelta
	}
	w.metrics.ChunkRebuilt(mode, stats.Rebuilt)
	w.metrics.ChunkRebuilt(metrics.RebuildCombine, stats.Combined)
	logging.GetWorldLogger().Debug("Перестройка (%s): %d чанков, combine: %d", mode, stats.Rebuilt, stats.Combined)
	w.publish(EventChunksRebuilt, eventbus.PriorityHigh, ChunksRebuilt{DeltasOnly: deltasOnly, Stats: stats})

	return stats
}

// AddDecor помещает декор в чанк по его непрерывной позиции
func (w *World) AddDecor(d *Decor) error {
	if d == nil {
		return ErrEmptyDecorSource
	}
	p := mgl64.Vec3{float64(d.Pos.X()), float64(d.Pos.Y()), float64(d.Pos.Z())}
	coord := w.WorldToBlock(p).FloorDiv(w.cfg.ChunkSize)
	return w.chunkFor(coord).AddDecor(d)
}

// RebuildDecor пересобирает пакеты декора во всех чанках
func (w *World) RebuildDecor() {
	for _, coord := range w.Chunks() {
		w.chunks[coord].RebuildDecor()
	}
}

// WorldToBlock переводит непрерывную позицию в координату сетки: floor(p / BlockScale)
func (w *World) WorldToBlock(p mgl64.Vec3) vec.Vec3 {
	return vec.FromContinuous(p, w.cfg.BlockScale)
}

// BlockToWorld возвращает непрерывную позицию минимального угла ячейки
func (w *World) BlockToWorld(v vec.Vec3) mgl64.Vec3 {
	return v.Scaled(w.cfg.BlockScale)
}

// CheckBlock возвращает блок в ячейке, содержащей непрерывную точку p
func (w *World) CheckBlock(p mgl64.Vec3) (*Block, bool) {
	return w.GetBlock(w.WorldToBlock(p))
}

// NearbyBlocks перебирает куб (2r+1) ячеек вокруг WorldToBlock(p)
func (w *World) NearbyBlocks(p mgl64.Vec3, radii vec.Vec3) []*Block {
	center := w.WorldToBlock(p)
	rx, ry, rz := abs(radii.X), abs(radii.Y), abs(radii.Z)

	var out []*Block
	for y := -ry; y <= ry; y++ {
		for z := -rz; z <= rz; z++ {
			for x := -rx; x <= rx; x++ {
				if b, exists := w.GetBlock(center.Add(vec.Vec3{X: x, Y: y, Z: z})); exists {
					out = append(out, b)
				}
			}
		}
	}
	return out
}

// Blockers возвращает коробки столкновений соседних блоков: угол в масштабированной
// позиции блока, сторона BlockScale
func (w *World) Blockers(p mgl64.Vec3, radii vec.Vec3) []physics.Box {
	nearby := w.NearbyBlocks(p, radii)
	size := mgl64.Vec3{w.cfg.BlockScale, w.cfg.BlockScale, w.cfg.BlockScale}

	out := make([]physics.Box, 0, len(nearby))
	for _, b := range nearby {
		out = append(out, physics.NewBox(w.BlockToWorld(b.Pos), size, physics.AnchorCorner))
	}
	return out
}

// Stats - сводка по миру для логов
type Stats struct {
	Chunks   int
	Blocks   int
	Vertices int
}

// Stats возвращает количество чанков, блоков и вершин в мешах
func (w *World) Stats() Stats {
	s := Stats{Chunks: len(w.chunks)}
	for _, c := range w.chunks {
		s.Blocks += c.Len()
		s.Vertices += c.VertexCount()
	}
	return s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
