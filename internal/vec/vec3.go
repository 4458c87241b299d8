package vec

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 представляет координату ячейки воксельной сетки
type Vec3 struct {
	X int
	Y int
	Z int
}

// FaceOffsets - смещения к соседям через грани блока.
// Порядок совпадает с порядком граней эталонной геометрии:
// перед (+z), зад (-z), право (+x), лево (-x), верх (+y), низ (-y).
var FaceOffsets = [6]Vec3{
	{X: 0, Y: 0, Z: 1},
	{X: 0, Y: 0, Z: -1},
	{X: 1, Y: 0, Z: 0},
	{X: -1, Y: 0, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: -1, Z: 0},
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Mul умножает вектор на целое число
func (v Vec3) Mul(k int) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// FloorDiv выполняет покомпонентное деление с округлением вниз.
// Для отрицательных координат это отличается от обычного деления Go.
func (v Vec3) FloorDiv(d int) Vec3 {
	return Vec3{X: floorDiv(v.X, d), Y: floorDiv(v.Y, d), Z: floorDiv(v.Z, d)}
}

// Up возвращает координату на n ячеек выше
func (v Vec3) Up(n int) Vec3 {
	return Vec3{X: v.X, Y: v.Y + n, Z: v.Z}
}

// Down возвращает координату на n ячеек ниже
func (v Vec3) Down(n int) Vec3 {
	return Vec3{X: v.X, Y: v.Y - n, Z: v.Z}
}

// DistanceTo возвращает евклидово расстояние до другой координаты
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	dz := float64(v.Z - other.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Less задаёт детерминированный порядок координат (Y, затем Z, затем X)
func (v Vec3) Less(other Vec3) bool {
	if v.Y != other.Y {
		return v.Y < other.Y
	}
	if v.Z != other.Z {
		return v.Z < other.Z
	}
	return v.X < other.X
}

// Scaled переводит координату сетки в непрерывную позицию
func (v Vec3) Scaled(scale float64) mgl64.Vec3 {
	return mgl64.Vec3{float64(v.X) * scale, float64(v.Y) * scale, float64(v.Z) * scale}
}

// FromContinuous переводит непрерывную позицию в координату сетки (floor(p/scale))
func FromContinuous(p mgl64.Vec3, scale float64) Vec3 {
	return Vec3{
		X: int(math.Floor(p[0] / scale)),
		Y: int(math.Floor(p[1] / scale)),
		Z: int(math.Floor(p[2] / scale)),
	}
}

// Array возвращает координату как массив для поосевой обработки
func (v Vec3) Array() [3]int {
	return [3]int{v.X, v.Y, v.Z}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
