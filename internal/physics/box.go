package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Оси в порядке разрешения столкновений
const (
	AxisX = 0
	AxisY = 1
	AxisZ = 2
)

// Anchor задаёт, какую точку коробки обозначает Origin
type Anchor uint8

const (
	// AnchorCenter - Origin в центре коробки (динамические тела)
	AnchorCenter Anchor = iota
	// AnchorFloor - Origin в центре нижней грани (стоящие персонажи)
	AnchorFloor
	// AnchorCorner - Origin в минимальном углу (статические блоки)
	AnchorCorner
)

// String возвращает строковое представление якоря
func (a Anchor) String() string {
	switch a {
	case AnchorCenter:
		return "center"
	case AnchorFloor:
		return "floor"
	case AnchorCorner:
		return "corner"
	default:
		return "unknown"
	}
}

// fraction возвращает долю размера, лежащую ниже Origin по оси
func (a Anchor) fraction(axis int) float64 {
	switch a {
	case AnchorCorner:
		return 0
	case AnchorFloor:
		if axis == AxisY {
			return 0
		}
	}
	return 0.5
}

// Box - прямоугольный коллайдер с явным якорем.
// Все граничные запросы выводятся из одной формулы: Min = Origin - Size*fraction.
type Box struct {
	Origin mgl64.Vec3
	Size   mgl64.Vec3
	Anchor Anchor
}

// NewBox создаёт коробку
func NewBox(origin, size mgl64.Vec3, anchor Anchor) Box {
	return Box{Origin: origin, Size: size, Anchor: anchor}
}

// Min возвращает нижнюю границу по оси
func (b *Box) Min(axis int) float64 {
	return b.Origin[axis] - b.Size[axis]*b.Anchor.fraction(axis)
}

// Max возвращает верхнюю границу по оси
func (b *Box) Max(axis int) float64 {
	return b.Min(axis) + b.Size[axis]
}

// SetMin сдвигает коробку так, чтобы нижняя граница по оси совпала с value
func (b *Box) SetMin(axis int, value float64) {
	b.Origin[axis] = value + b.Size[axis]*b.Anchor.fraction(axis)
}

// SetMax сдвигает коробку так, чтобы верхняя граница по оси совпала с value
func (b *Box) SetMax(axis int, value float64) {
	b.SetMin(axis, value-b.Size[axis])
}

func (b *Box) Right() float64  { return b.Max(AxisX) }
func (b *Box) Left() float64   { return b.Min(AxisX) }
func (b *Box) Top() float64    { return b.Max(AxisY) }
func (b *Box) Bottom() float64 { return b.Min(AxisY) }
func (b *Box) Front() float64  { return b.Max(AxisZ) }
func (b *Box) Back() float64   { return b.Min(AxisZ) }

// Center возвращает центр коробки независимо от якоря
func (b *Box) Center() mgl64.Vec3 {
	var c mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		c[axis] = b.Min(axis) + b.Size[axis]*0.5
	}
	return c
}

// Overlaps проверяет строгое пересечение с другой коробкой (касание не считается)
func (b *Box) Overlaps(other *Box) bool {
	for axis := 0; axis < 3; axis++ {
		if !(other.Max(axis) > b.Min(axis) && other.Min(axis) < b.Max(axis)) {
			return false
		}
	}
	return true
}

// ContainsPoint проверяет, лежит ли точка строго внутри коробки
func (b *Box) ContainsPoint(p mgl64.Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if !(b.Min(axis) < p[axis] && p[axis] < b.Max(axis)) {
			return false
		}
	}
	return true
}

func (b Box) String() string {
	return fmt.Sprintf("<Box origin=%v size=%v anchor=%s>", b.Origin, b.Size, b.Anchor)
}
