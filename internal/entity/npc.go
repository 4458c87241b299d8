package entity

import (
	"context"
	"math"
	"math/rand"

	"github.com/annel0/voxel-world/internal/pathfind"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// TurnRate - максимальная скорость поворота направления движения, рад/с
const TurnRate = 2.0

// PathRequester ставит поиск пути. *pathfind.Service реализует этот интерфейс.
type PathRequester interface {
	Request(ctx context.Context, owner string, start, goal vec.Vec3) (pathfind.Ticket, bool)
}

// Env - окружение одного шага NPC
type Env struct {
	Ctx        context.Context
	DT         float64
	Terrain    Terrain
	Paths      PathRequester
	BlockScale float64
	Rand       *rand.Rand
}

type pathKey struct {
	start, goal vec.Vec3
}

// NPC - неигровой персонаж, идущий по путям из сервиса поиска
type NPC struct {
	ID   uuid.UUID
	Body *Body

	CurrentState State

	goal    vec.Vec3
	hasGoal bool

	path          []vec.Vec3
	target        pathKey // Последний (start, goal), для которого получен результат
	hasTarget     bool
	generating    bool
	movementAngle float64
}

// NewNPC создаёт NPC в состоянии бездействия
func NewNPC(pos mgl64.Vec3, blockScale float64) *NPC {
	n := &NPC{
		ID:   uuid.New(),
		Body: NewBody(pos, blockScale),
	}
	n.SetState(NewIdleState(0))
	return n
}

// Owner - идентификатор владельца запросов в сервисе путей
func (n *NPC) Owner() string {
	return n.ID.String()
}

// Goal возвращает текущую цель
func (n *NPC) Goal() (vec.Vec3, bool) {
	return n.goal, n.hasGoal
}

// SetGoal задаёт цель и переводит NPC в следование по пути
func (n *NPC) SetGoal(goal vec.Vec3) {
	n.goal, n.hasGoal = goal, true
	n.SetState(NewFollowPathState())
}

// ClearGoal сбрасывает цель и текущий путь
func (n *NPC) ClearGoal() {
	n.hasGoal = false
	n.path = nil
}

// Path возвращает оставшуюся часть пути
func (n *NPC) Path() []vec.Vec3 {
	return n.path
}

// Generating - ожидается ли результат поиска
func (n *NPC) Generating() bool {
	return n.generating
}

// SetState устанавливает новое состояние
func (n *NPC) SetState(state State) {
	if n.CurrentState != nil {
		n.CurrentState.Exit(n)
	}
	n.CurrentState = state
	if n.CurrentState != nil {
		n.CurrentState.Enter(n)
	}
}

// ApplyResult заменяет путь результатом поиска, даже если тот устарел
func (n *NPC) ApplyResult(res pathfind.Result) {
	n.generating = false
	n.target, n.hasTarget = pathKey{start: res.Start, goal: res.Goal}, true

	if !res.Found || len(res.Path) == 0 {
		n.path = nil
		return
	}
	path := res.Path
	if path[0] != res.Start {
		path = append([]vec.Vec3{res.Start}, path...)
	}
	n.path = append([]vec.Vec3(nil), path...)
}

// Update выполняет шаг автомата и физики
func (n *NPC) Update(env *Env) {
	var intent mgl64.Vec3
	if n.CurrentState != nil {
		next, movement := n.CurrentState.Update(n, env)
		intent = movement
		if next != n.CurrentState {
			n.SetState(next)
		}
	}
	n.Body.Step(env.DT, intent, env.Terrain)
}

// requestPath ставит поиск, если позиция или цель изменились с последнего результата
func (n *NPC) requestPath(env *Env) {
	start, ok := n.Body.PathingPos()
	if !ok || !n.hasGoal || n.generating {
		return
	}
	key := pathKey{start: start, goal: n.goal}
	if n.hasTarget && key == n.target {
		return
	}
	if _, accepted := env.Paths.Request(env.Ctx, n.Owner(), start, n.goal); accepted {
		n.generating = true
	}
}

// steer снимает достигнутые узлы и возвращает направление к следующему узлу.
// Второе значение false, если идти некуда.
func (n *NPC) steer(env *Env) (mgl64.Vec3, bool) {
	pos, ok := n.Body.PathingPos()
	if !ok || len(n.path) == 0 {
		return mgl64.Vec3{}, false
	}
	// Устаревший путь может начинаться позади: снимаем всё до текущей ячейки включительно
	for i, p := range n.path {
		if p == pos {
			n.path = n.path[i+1:]
			break
		}
	}
	if len(n.path) == 0 {
		return mgl64.Vec3{}, false
	}

	next := n.path[0]
	half := env.BlockScale * 0.5
	center := next.Scaled(env.BlockScale).Add(mgl64.Vec3{half, half, half})
	offset := center.Sub(n.Body.Pos())
	if next.Y > pos.Y {
		n.Body.Jump()
	}

	pathAngle := math.Atan2(offset.X(), offset.Z())
	limit := env.DT * TurnRate
	n.movementAngle += math.Max(-limit, math.Min(limit, angleDiff(pathAngle, n.movementAngle)))

	return mgl64.Vec3{math.Sin(n.movementAngle), 0, math.Cos(n.movementAngle)}, true
}

// angleDiff возвращает знаковую разницу углов в диапазоне [-pi, pi)
func angleDiff(a, b float64) float64 {
	return math.Mod(a-b+3*math.Pi, 2*math.Pi) - math.Pi
}
