package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func unitBlocker(x, y, z float64) Box {
	return NewBox(mgl64.Vec3{x, y, z}, mgl64.Vec3{1, 1, 1}, AnchorCorner)
}

func TestBox_AnchorFaces(t *testing.T) {
	size := mgl64.Vec3{2, 4, 6}
	origin := mgl64.Vec3{10, 20, 30}

	cases := []struct {
		anchor                                   Anchor
		left, right, bottom, top, back, front float64
	}{
		{AnchorCenter, 9, 11, 18, 22, 27, 33},
		{AnchorFloor, 9, 11, 20, 24, 27, 33},
		{AnchorCorner, 10, 12, 20, 24, 30, 36},
	}

	for _, c := range cases {
		b := NewBox(origin, size, c.anchor)
		assert.Equal(t, c.left, b.Left(), "%s left", c.anchor)
		assert.Equal(t, c.right, b.Right(), "%s right", c.anchor)
		assert.Equal(t, c.bottom, b.Bottom(), "%s bottom", c.anchor)
		assert.Equal(t, c.top, b.Top(), "%s top", c.anchor)
		assert.Equal(t, c.back, b.Back(), "%s back", c.anchor)
		assert.Equal(t, c.front, b.Front(), "%s front", c.anchor)
	}
}

func TestBox_SettersKeepSize(t *testing.T) {
	for _, anchor := range []Anchor{AnchorCenter, AnchorFloor, AnchorCorner} {
		b := NewBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 2, 1}, anchor)

		b.SetMax(AxisY, 5)
		assert.InDelta(t, 5, b.Top(), 1e-12, "%s", anchor)
		assert.InDelta(t, 3, b.Bottom(), 1e-12, "%s", anchor)

		b.SetMin(AxisX, -1)
		assert.InDelta(t, -1, b.Left(), 1e-12, "%s", anchor)
		assert.InDelta(t, 0, b.Right(), 1e-12, "%s", anchor)
	}
}

func TestBox_OverlapAndPoint(t *testing.T) {
	a := NewBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}, AnchorCorner)
	touching := unitBlocker(1, 0, 0)
	inside := NewBox(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{0.5, 0.5, 0.5}, AnchorCenter)
	far := unitBlocker(5, 5, 5)

	assert.False(t, a.Overlaps(&touching), "касание не является пересечением")
	assert.True(t, a.Overlaps(&inside))
	assert.True(t, inside.Overlaps(&a))
	assert.False(t, a.Overlaps(&far))

	assert.True(t, a.ContainsPoint(mgl64.Vec3{0.5, 0.5, 0.5}))
	assert.False(t, a.ContainsPoint(mgl64.Vec3{1, 0.5, 0.5}), "точка на границе снаружи")
	assert.Equal(t, mgl64.Vec3{0.5, 0.5, 0.5}, a.Center())
}

func TestMove_ZeroDisplacement(t *testing.T) {
	b := NewBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}, AnchorCenter)
	blockers := []Box{unitBlocker(0.5, -0.5, -0.5)}

	c := b.Move(mgl64.Vec3{0, 0, 0}, blockers)
	assert.False(t, c.Any())
	assert.Equal(t, mgl64.Vec3{0, 0, 0}, b.Origin)
}

func TestMove_SingleBlockerPositiveX(t *testing.T) {
	b := NewBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}, AnchorCenter)
	blockers := []Box{unitBlocker(1, -0.5, -0.5)}

	c := b.Move(mgl64.Vec3{1, 0, 0}, blockers)

	assert.Equal(t, Collisions{Right: true}, c)
	assert.InDelta(t, 1.0, b.Right(), 1e-12, "правая граница прижата к блокеру")
	assert.InDelta(t, 0.5, b.Origin[0], 1e-12)
	assert.Equal(t, 0.0, b.Origin[1])
	assert.Equal(t, 0.0, b.Origin[2])
}

func TestMove_NegativeAxes(t *testing.T) {
	// Тело стоит над полом и падает
	body := NewBox(mgl64.Vec3{0.5, 1.2, 0.5}, mgl64.Vec3{0.4, 1.8, 0.4}, AnchorFloor)
	floor := []Box{unitBlocker(0, 0, 0)}

	c := body.Move(mgl64.Vec3{0, -0.5, 0}, floor)
	assert.Equal(t, Collisions{Bottom: true}, c)
	assert.InDelta(t, 1.0, body.Bottom(), 1e-12)

	wall := []Box{unitBlocker(-1, 0, 0), unitBlocker(0, 0, -1)}
	box := NewBox(mgl64.Vec3{0.5, 0.5, 0.5}, mgl64.Vec3{0.5, 0.5, 0.5}, AnchorCenter)
	c = box.Move(mgl64.Vec3{-0.5, 0, -0.5}, wall)
	assert.Equal(t, Collisions{Left: true, Back: true}, c)
	assert.InDelta(t, 0.0, box.Left(), 1e-12)
	assert.InDelta(t, 0.0, box.Back(), 1e-12)
}

func TestMove_AxisOrderXBeforeY(t *testing.T) {
	// Блокер по диагонали: x в [1,2], y в [1,2]
	b := NewBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}, AnchorCenter)
	blockers := []Box{unitBlocker(1, 1, -0.5)}

	c := b.Move(mgl64.Vec3{1, 1, 0}, blockers)

	// x проходит свободно, столкновение обнаруживается только при сдвиге по y
	assert.Equal(t, Collisions{Top: true}, c)
	assert.InDelta(t, 1.0, b.Origin[0], 1e-12)
	assert.InDelta(t, 1.0, b.Top(), 1e-12)
}

func TestMove_FirstBlockerOnly(t *testing.T) {
	b := NewBox(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}, AnchorCenter)
	// Второй блокер глубже, но используется только первый найденный
	blockers := []Box{unitBlocker(1.2, -0.5, -0.5), unitBlocker(0.8, -0.5, -0.5)}

	c := b.Move(mgl64.Vec3{1, 0, 0}, blockers)
	assert.True(t, c.Right)
	assert.InDelta(t, 1.2, b.Right(), 1e-12)
}
