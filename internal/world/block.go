package world

import (
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// ChunkCoord - координата чанка: покомпонентное floor-деление координаты блока на размер чанка
type ChunkCoord = vec.Vec3

// neighborhood7 - сам блок и шесть его соседей по граням
var neighborhood7 = [7]vec.Vec3{
	vec.FaceOffsets[0], vec.FaceOffsets[1], vec.FaceOffsets[2],
	vec.FaceOffsets[3], vec.FaceOffsets[4], vec.FaceOffsets[5],
	{},
}

// blockSource разрешает поиск блока по глобальной координате (через все чанки)
type blockSource interface {
	GetBlock(pos vec.Vec3) (*Block, bool)
}

// Block представляет занятую ячейку сетки.
// Владелец хранится как координата чанка и разрешается через World, а не указателем.
type Block struct {
	Type  block.BlockID
	Pos   vec.Vec3   // Глобальная координата сетки
	Chunk ChunkCoord // Координата чанка-владельца

	faces  block.FaceMask
	buffer []float32
}

// Faces возвращает маску граней на момент последней генерации
func (b *Block) Faces() block.FaceMask {
	return b.faces
}

// Buffer возвращает буфер граней на момент последней генерации
func (b *Block) Buffer() []float32 {
	return b.buffer
}

// Neighbors возвращает координаты шести соседей по граням в порядке граней
func (b *Block) Neighbors() [6]vec.Vec3 {
	var out [6]vec.Vec3
	for i, off := range vec.FaceOffsets {
		out[i] = b.Pos.Add(off)
	}
	return out
}

// generate пересчитывает видимые грани: грань есть тогда и только тогда,
// когда ячейка за ней пуста. Поиск идёт через src, поэтому видны соседние чанки.
func (b *Block) generate(src blockSource, ref *block.ReferenceGeometry, chunkSize int) {
	var faces block.FaceMask
	for i, n := range b.Neighbors() {
		if _, occupied := src.GetBlock(n); !occupied {
			faces = faces.With(block.Face(i))
		}
	}

	b.faces = faces
	local := b.Pos.Sub(b.Chunk.Mul(chunkSize))
	b.buffer = ref.Geometry.Localize(local, faces)
}
