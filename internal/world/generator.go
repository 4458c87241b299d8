package world

import (
	"fmt"
	"math/rand"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/util"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// Константы генерации
const (
	dirtDepth     = 2 // Слой земли под травой
	minTreeHeight = 2
	maxTreeHeight = 4
)

// WorldGenerator генерирует ландшафт мира по карте высот
type WorldGenerator struct {
	Seed          int64   // Сид для генерации шума
	SizeX, SizeZ  int     // Размер области в блоках
	BaseHeight    int     // Минимальная высота поверхности
	Amplitude     int     // Разброс высот
	NoiseScale    float64 // Масштаб основного шума (высота)
	ForestDensity float64 // Плотность деревьев (от 0 до 1)

	noise *util.Noise
}

// NewWorldGenerator создаёт новый генератор мира
func NewWorldGenerator(seed int64, sizeX, sizeZ int) *WorldGenerator {
	return &WorldGenerator{
		Seed:          seed,
		SizeX:         sizeX,
		SizeZ:         sizeZ,
		BaseHeight:    4,
		Amplitude:     6,
		NoiseScale:    0.05, // Настройка сглаженности ландшафта
		ForestDensity: 0.02,
		noise:         util.NewNoise(seed),
	}
}

// Height возвращает высоту поверхности (координату травы) в столбце (x, z)
func (wg *WorldGenerator) Height(x, z int) int {
	n := wg.noise.Noise2D(float64(x)*wg.NoiseScale, float64(z)*wg.NoiseScale)
	return wg.BaseHeight + int(n*float64(wg.Amplitude))
}

// columnBlock возвращает тип блока на высоте y в столбце с поверхностью top
func columnBlock(y, top int) block.BlockID {
	switch {
	case y == top:
		return block.GrassBlockID
	case y >= top-dirtDepth:
		return block.DirtBlockID
	default:
		return block.ChiseledStoneBlockID
	}
}

// Populate заполняет мир без перестройки мешей и возвращает число поставленных блоков.
// После заполнения вызывающий должен выполнить полную перестройку.
func (wg *WorldGenerator) Populate(w *World) (int, error) {
	// Локальный генератор случайных чисел для детерминированности
	rng := rand.New(rand.NewSource(wg.Seed))
	placed := 0

	for z := 0; z < wg.SizeZ; z++ {
		for x := 0; x < wg.SizeX; x++ {
			top := wg.Height(x, z)
			for y := 0; y <= top; y++ {
				if err := w.AddBlock(columnBlock(y, top), vec.Vec3{X: x, Y: y, Z: z}, false); err != nil {
					return placed, fmt.Errorf("generate column (%d, %d): %w", x, z, err)
				}
				placed++
			}

			if rng.Float64() < wg.ForestDensity {
				trunk := minTreeHeight + rng.Intn(maxTreeHeight-minTreeHeight+1)
				for i := 1; i <= trunk; i++ {
					if err := w.AddBlock(block.LogBlockID, vec.Vec3{X: x, Y: top + i, Z: z}, false); err != nil {
						return placed, fmt.Errorf("generate tree (%d, %d): %w", x, z, err)
					}
					placed++
				}
			}
		}
	}

	logging.GetWorldLogger().Info("Сгенерировано %d блоков в области %dx%d (seed=%d)", placed, wg.SizeX, wg.SizeZ, wg.Seed)
	return placed, nil
}

// SpawnPoint возвращает ячейку над поверхностью в центре области
func (wg *WorldGenerator) SpawnPoint() vec.Vec3 {
	x, z := wg.SizeX/2, wg.SizeZ/2
	return vec.Vec3{X: x, Y: wg.Height(x, z) + 1, Z: z}
}
