package entity

import (
	"math"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

// State представляет состояние конечного автомата.
// Update возвращает следующее состояние и намерение движения на этот шаг.
type State interface {
	Enter(npc *NPC)
	Update(npc *NPC, env *Env) (State, mgl64.Vec3)
	Exit(npc *NPC)
}

// === Конкретные состояния ===

// IdleState - состояние бездействия
type IdleState struct {
	TimeInState float64
	MaxIdleTime float64
}

// NewIdleState создаёт состояние бездействия. При maxIdle <= 0 длительность выбирается при первом шаге.
func NewIdleState(maxIdle float64) *IdleState {
	return &IdleState{MaxIdleTime: maxIdle}
}

func (s *IdleState) Enter(npc *NPC) {
	s.TimeInState = 0
	// Останавливаем движение
	npc.Body.Velocity[0], npc.Body.Velocity[2] = 0, 0
}

func (s *IdleState) Update(npc *NPC, env *Env) (State, mgl64.Vec3) {
	if s.MaxIdleTime <= 0 {
		s.MaxIdleTime = 2.0 + env.Rand.Float64()*3.0 // 2-5 секунд
	}
	s.TimeInState += env.DT

	// Переход в Wander после определённого времени
	if s.TimeInState >= s.MaxIdleTime {
		return NewWanderState(), mgl64.Vec3{}
	}
	return s, mgl64.Vec3{}
}

func (s *IdleState) Exit(npc *NPC) {}

// WanderState выбирает случайную проходимую цель рядом и передаёт управление FollowPathState
type WanderState struct {
	MinDistance, MaxDistance float64
}

// NewWanderState создаёт состояние блуждания с радиусом 2-5 блоков
func NewWanderState() *WanderState {
	return &WanderState{MinDistance: 2, MaxDistance: 5}
}

func (s *WanderState) Enter(npc *NPC) {}

func (s *WanderState) Update(npc *NPC, env *Env) (State, mgl64.Vec3) {
	pos, ok := npc.Body.PathingPos()
	if !ok {
		return NewIdleState(0), mgl64.Vec3{}
	}

	// Выбираем случайную точку назначения
	angle := env.Rand.Float64() * 2 * math.Pi
	distance := s.MinDistance + env.Rand.Float64()*(s.MaxDistance-s.MinDistance)
	candidate := pos.Add(vec.Vec3{
		X: int(math.Round(distance * math.Cos(angle))),
		Z: int(math.Round(distance * math.Sin(angle))),
	})

	goal, ok := env.Terrain.FindValidPathDestination(candidate)
	if !ok || goal == pos {
		return NewIdleState(0), mgl64.Vec3{}
	}
	npc.goal, npc.hasGoal = goal, true
	return NewFollowPathState(), mgl64.Vec3{}
}

func (s *WanderState) Exit(npc *NPC) {}

// FollowPathState запрашивает путь к цели NPC и идёт по нему
type FollowPathState struct {
	TimeInState   float64
	MaxFollowTime float64
}

// NewFollowPathState создаёт состояние следования с ограничением по времени
func NewFollowPathState() *FollowPathState {
	return &FollowPathState{MaxFollowTime: 30}
}

func (s *FollowPathState) Enter(npc *NPC) {
	s.TimeInState = 0
}

func (s *FollowPathState) Update(npc *NPC, env *Env) (State, mgl64.Vec3) {
	s.TimeInState += env.DT
	if !npc.hasGoal || s.TimeInState >= s.MaxFollowTime {
		npc.ClearGoal()
		return NewIdleState(0), mgl64.Vec3{}
	}

	if pos, ok := npc.Body.PathingPos(); ok && pos == npc.goal {
		npc.ClearGoal()
		return NewIdleState(0), mgl64.Vec3{}
	}

	npc.requestPath(env)
	movement, moving := npc.steer(env)
	if !moving && !npc.generating && npc.hasTarget && npc.target.goal == npc.goal && len(npc.path) == 0 {
		// Поиск завершился без пути
		npc.ClearGoal()
		return NewIdleState(0), mgl64.Vec3{}
	}
	return s, movement
}

func (s *FollowPathState) Exit(npc *NPC) {}
