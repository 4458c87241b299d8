package entity

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/annel0/voxel-world/internal/pathfind"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder запоминает запросы и принимает их все
type recorder struct {
	requests []pathfind.Ticket
}

func (r *recorder) Request(_ context.Context, owner string, start, goal vec.Vec3) (pathfind.Ticket, bool) {
	t := pathfind.Ticket{Owner: owner, Start: start, Goal: goal}
	r.requests = append(r.requests, t)
	return t, true
}

func corridorWorld(t *testing.T, length int) *world.World {
	t.Helper()
	w := newTestWorld(t)
	for z := 0; z < length; z++ {
		require.NoError(t, w.AddBlock(block.DirtBlockID, vec.Vec3{Z: z}, false))
	}
	_, err := w.GenerateNavmesh(context.Background(), vec.Vec3{Y: 1}, 5)
	require.NoError(t, err)
	return w
}

func testEnv(w *world.World, paths PathRequester) *Env {
	return &Env{
		Ctx:        context.Background(),
		DT:         dt,
		Terrain:    w,
		Paths:      paths,
		BlockScale: w.BlockScale(),
		Rand:       rand.New(rand.NewSource(1)),
	}
}

func TestNPC_ApplyResultPrependsStart(t *testing.T) {
	n := NewNPC(mgl64.Vec3{}, 0.75)
	start, goal := vec.Vec3{Y: 1}, vec.Vec3{Y: 1, Z: 2}

	n.ApplyResult(pathfind.Result{Start: start, Goal: goal, Found: true, Path: []vec.Vec3{{Y: 1, Z: 1}, goal}})
	assert.Equal(t, []vec.Vec3{start, {Y: 1, Z: 1}, goal}, n.Path())

	n.ApplyResult(pathfind.Result{Start: start, Goal: goal, Found: true, Path: []vec.Vec3{start, goal}})
	assert.Equal(t, []vec.Vec3{start, goal}, n.Path())

	n.ApplyResult(pathfind.Result{Start: start, Goal: goal, Reason: pathfind.ReasonDepthExceeded})
	assert.Empty(t, n.Path())
	assert.False(t, n.Generating())
}

func TestNPC_RequestsPathOncePerTarget(t *testing.T) {
	w := corridorWorld(t, 6)
	rec := &recorder{}
	env := testEnv(w, rec)

	n := NewNPC(mgl64.Vec3{0.375, 0.75, 0.375}, w.BlockScale())
	n.Body.Step(dt, mgl64.Vec3{}, w)
	n.SetGoal(vec.Vec3{Y: 1, Z: 5})

	n.Update(env)
	n.Update(env)
	require.Len(t, rec.requests, 1)
	assert.Equal(t, vec.Vec3{Y: 1}, rec.requests[0].Start)
	assert.Equal(t, vec.Vec3{Y: 1, Z: 5}, rec.requests[0].Goal)
	assert.True(t, n.Generating())

	// Результат для той же пары не порождает новый запрос
	n.ApplyResult(pathfind.Result{Start: vec.Vec3{Y: 1}, Goal: vec.Vec3{Y: 1, Z: 5}, Found: true,
		Path: []vec.Vec3{{Y: 1}, {Y: 1, Z: 1}, {Y: 1, Z: 2}, {Y: 1, Z: 3}, {Y: 1, Z: 4}, {Y: 1, Z: 5}}})
	n.Update(env)
	assert.Len(t, rec.requests, 1)
	assert.Equal(t, vec.Vec3{Y: 1, Z: 1}, n.Path()[0])
}

func TestNPC_StaleResultDoesNotWalkBack(t *testing.T) {
	w := corridorWorld(t, 7)
	rec := &recorder{}
	env := testEnv(w, rec)

	n := NewNPC(mgl64.Vec3{0.375, 0.75, 2*0.75 + 0.375}, w.BlockScale())
	n.Body.Step(dt, mgl64.Vec3{}, w)
	pos, ok := n.Body.PathingPos()
	require.True(t, ok)
	require.Equal(t, vec.Vec3{Y: 1, Z: 2}, pos)

	goal := vec.Vec3{Y: 1, Z: 5}
	n.SetGoal(goal)

	// Результат посчитан от ячейки, которую NPC уже прошёл
	n.ApplyResult(pathfind.Result{Start: vec.Vec3{Y: 1}, Goal: goal, Found: true,
		Path: []vec.Vec3{{Y: 1}, {Y: 1, Z: 1}, {Y: 1, Z: 2}, {Y: 1, Z: 3}, {Y: 1, Z: 4}, goal}})
	require.Len(t, n.Path(), 6)

	before := n.Body.Pos().Z()
	n.Update(env)

	assert.Equal(t, []vec.Vec3{{Y: 1, Z: 3}, {Y: 1, Z: 4}, goal}, n.Path())
	assert.Greater(t, n.Body.Pos().Z(), before)

	// Позиция изменилась относительно результата - ставится новый поиск от текущей ячейки
	require.Len(t, rec.requests, 1)
	assert.Equal(t, vec.Vec3{Y: 1, Z: 2}, rec.requests[0].Start)
}

func TestNPC_JumpsOnUpwardStep(t *testing.T) {
	w := newTestWorld(t)
	require.NoError(t, w.AddBlock(block.DirtBlockID, vec.Vec3{}, false))
	require.NoError(t, w.AddBlock(block.DirtBlockID, vec.Vec3{Z: 1}, false))
	require.NoError(t, w.AddBlock(block.DirtBlockID, vec.Vec3{Y: 1, Z: 1}, false))
	env := testEnv(w, &recorder{})

	n := NewNPC(mgl64.Vec3{0.375, 0.75, 0.375}, w.BlockScale())
	n.Body.Step(dt, mgl64.Vec3{}, w)
	require.True(t, n.Body.Grounded())

	n.SetGoal(vec.Vec3{Y: 2, Z: 1})
	n.ApplyResult(pathfind.Result{Start: vec.Vec3{Y: 1}, Goal: vec.Vec3{Y: 2, Z: 1}, Found: true,
		Path: []vec.Vec3{{Y: 1}, {Y: 2, Z: 1}}})
	n.Update(env)

	assert.Greater(t, n.Body.Velocity.Y(), 0.0)
}

func TestNPC_NoPathFallsBackToIdle(t *testing.T) {
	w := corridorWorld(t, 3)
	env := testEnv(w, &recorder{})

	n := NewNPC(mgl64.Vec3{0.375, 0.75, 0.375}, w.BlockScale())
	n.Body.Step(dt, mgl64.Vec3{}, w)
	n.SetGoal(vec.Vec3{X: 40, Y: 1})
	n.Update(env)
	require.True(t, n.Generating())

	goal, _ := n.Goal()
	n.ApplyResult(pathfind.Result{Start: vec.Vec3{Y: 1}, Goal: goal, Reason: pathfind.ReasonNoPath})
	n.Update(env)

	assert.IsType(t, &IdleState{}, n.CurrentState)
	_, hasGoal := n.Goal()
	assert.False(t, hasGoal)
}

func TestNPC_IdleTurnsIntoWander(t *testing.T) {
	w := corridorWorld(t, 8)
	env := testEnv(w, &recorder{})

	n := NewNPC(mgl64.Vec3{0.375, 0.75, 3*0.75 + 0.375}, w.BlockScale())
	n.SetState(NewIdleState(0.1))

	left := false
	for i := 0; i < 30 && !left; i++ {
		n.Update(env)
		_, isIdle := n.CurrentState.(*IdleState)
		left = !isIdle
	}
	assert.True(t, left)
}

func TestManager_NPCWalksCorridor(t *testing.T) {
	w := corridorWorld(t, 7)
	svc := pathfind.NewService(pathfind.NavmeshOf(w), pathfind.DefaultServiceConfig())
	defer svc.Close()

	m := NewManager(w, svc, w.BlockScale(), 1)
	n := m.Spawn(mgl64.Vec3{0.375, 0.75, 0.375})
	goal := vec.Vec3{Y: 1, Z: 5}
	n.SetGoal(goal)

	got, ok := m.Get(n.Owner())
	require.True(t, ok)
	assert.Same(t, n, got)
	assert.Len(t, m.NPCs(), 1)

	reached := false
	for i := 0; i < 3000 && !reached; i++ {
		m.Step(context.Background(), dt)
		pos, _ := n.Body.PathingPos()
		reached = pos == goal
		time.Sleep(200 * time.Microsecond)
	}
	assert.True(t, reached)
}
