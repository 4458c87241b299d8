package entity

import (
	"math"

	"github.com/annel0/voxel-world/internal/physics"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// Физика тела
const (
	Gravity          = 9.81 // м/с^2
	TerminalVelocity = 19.0
	JumpForce        = 4.25
	CoyoteTime       = 0.25 // Окно прыжка после потери опоры, с
	MoveSpeed        = 2.5
	BodyHeight       = 1.8
	BodyWidthFactor  = 0.6 // Ширина тела в долях BlockScale
)

// BlockerRadii - радиусы поиска блоков-препятствий вокруг тела
var BlockerRadii = vec.Vec3{X: 1, Y: 3, Z: 1}

// Terrain - то, что телу нужно от мира
type Terrain interface {
	Blockers(p mgl64.Vec3, radii vec.Vec3) []physics.Box
	WorldToBlock(p mgl64.Vec3) vec.Vec3
	FindValidPathDestination(pos vec.Vec3) (vec.Vec3, bool)
}

// Body - тело с гравитацией и прыжком, опирающееся на коробку с якорем в ногах
type Body struct {
	Box            physics.Box
	Velocity       mgl64.Vec3
	Speed          float64
	AirTime        float64
	LastCollisions physics.Collisions

	pathingPos    vec.Vec3
	hasPathingPos bool
}

// NewBody создаёт тело, стоящее ногами в pos
func NewBody(pos mgl64.Vec3, blockScale float64) *Body {
	size := mgl64.Vec3{BodyWidthFactor * blockScale, BodyHeight, BodyWidthFactor * blockScale}
	return &Body{
		Box:   physics.NewBox(pos, size, physics.AnchorFloor),
		Speed: MoveSpeed,
	}
}

// Pos возвращает позицию ног
func (b *Body) Pos() mgl64.Vec3 {
	return b.Box.Origin
}

// Grounded - тело стояло на опоре после последнего шага
func (b *Body) Grounded() bool {
	return b.LastCollisions.Bottom
}

// PathingPos возвращает ячейку навигации, в которой находится тело
func (b *Body) PathingPos() (vec.Vec3, bool) {
	return b.pathingPos, b.hasPathingPos
}

// Jump прыгает, если тело недавно стояло на опоре. Повторный прыжок в воздухе невозможен.
func (b *Body) Jump() bool {
	if b.AirTime >= CoyoteTime {
		return false
	}
	b.Velocity[1] = JumpForce
	b.AirTime = 1
	return true
}

// Step продвигает тело на dt: гравитация, скорость и намерение движения,
// затем разрешение столкновений с ближайшими блоками
func (b *Body) Step(dt float64, intent mgl64.Vec3, terrain Terrain) physics.Collisions {
	b.Velocity[1] = math.Max(-TerminalVelocity, b.Velocity[1]-Gravity*dt)

	movement := b.Velocity.Mul(dt).Add(intent.Mul(b.Speed * dt))
	blockers := terrain.Blockers(b.Box.Origin, BlockerRadii)
	b.LastCollisions = b.Box.Move(movement, blockers)

	b.pathingPos, b.hasPathingPos = terrain.FindValidPathDestination(terrain.WorldToBlock(b.Box.Origin))

	if b.LastCollisions.Bottom {
		b.Velocity[1] = 0
		b.AirTime = 0
	} else {
		b.AirTime += dt
	}
	if b.LastCollisions.Top {
		b.Velocity[1] = 0
	}
	return b.LastCollisions
}
