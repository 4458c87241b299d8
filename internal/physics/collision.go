package physics

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Collisions - флаги касания по шести граням движущейся коробки
type Collisions struct {
	Right  bool // +x
	Left   bool // -x
	Top    bool // +y
	Bottom bool // -y
	Front  bool // +z
	Back   bool // -z
}

// Any возвращает true, если было хотя бы одно столкновение
func (c Collisions) Any() bool {
	return c.Right || c.Left || c.Top || c.Bottom || c.Front || c.Back
}

// set отмечает столкновение по оси в направлении движения
func (c *Collisions) set(axis int, positive bool) {
	switch axis {
	case AxisX:
		if positive {
			c.Right = true
		} else {
			c.Left = true
		}
	case AxisY:
		if positive {
			c.Top = true
		} else {
			c.Bottom = true
		}
	case AxisZ:
		if positive {
			c.Front = true
		} else {
			c.Back = true
		}
	}
}

// FirstOverlap возвращает первый блокер, пересекающийся с коробкой
func (b *Box) FirstOverlap(blockers []Box) (*Box, bool) {
	for i := range blockers {
		if b.Overlaps(&blockers[i]) {
			return &blockers[i], true
		}
	}
	return nil, false
}

// Move перемещает коробку поосево в порядке x, y, z.
// После каждой оси берётся первый пересекающийся блокер и граница коробки
// прижимается к его противоположной границе только по этой оси.
// При одновременном столкновении по двум осям результат зависит от порядка осей.
func (b *Box) Move(displacement mgl64.Vec3, blockers []Box) Collisions {
	var collisions Collisions

	for axis := 0; axis < 3; axis++ {
		d := displacement[axis]
		b.Origin[axis] += d

		blocker, hit := b.FirstOverlap(blockers)
		if !hit {
			continue
		}
		switch {
		case d > 0:
			b.SetMax(axis, blocker.Min(axis))
			collisions.set(axis, true)
		case d < 0:
			b.SetMin(axis, blocker.Max(axis))
			collisions.set(axis, false)
		}
	}

	return collisions
}
