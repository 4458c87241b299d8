package world

import (
	"context"
	"testing"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// floor кладёт слой блоков на y=0 в прямоугольнике [x0..x1] x [z0..z1]
func floor(t *testing.T, w *World, x0, x1, z0, z1 int) {
	t.Helper()
	for x := x0; x <= x1; x++ {
		for z := z0; z <= z1; z++ {
			require.NoError(t, w.AddBlock(block.DirtBlockID, vec.Vec3{X: x, Z: z}, false))
		}
	}
}

// wall ставит столб высотой 2 над полом в (x, z)
func wall(t *testing.T, w *World, x, z int) {
	t.Helper()
	for y := 1; y <= 2; y++ {
		require.NoError(t, w.AddBlock(block.ChiseledStoneBlockID, vec.Vec3{X: x, Y: y, Z: z}, false))
	}
}

func TestNavmesh_ValidPathingBlock(t *testing.T) {
	w := newTestWorld(t)
	floor(t, w, 0, 1, 0, 0)
	require.NoError(t, w.AddBlock(block.DirtBlockID, vec.Vec3{X: 1, Y: 2}, false))

	assert.True(t, w.ValidPathingBlock(vec.Vec3{Y: 1}))
	assert.False(t, w.ValidPathingBlock(vec.Vec3{X: 1, Y: 1}), "head is blocked")
	assert.False(t, w.ValidPathingBlock(vec.Vec3{}), "cell itself is solid")
	assert.False(t, w.ValidPathingBlock(vec.Vec3{Y: 2}), "no floor")
	assert.True(t, w.ValidPathingBlock(vec.Vec3{X: 1, Y: 3}))
}

func TestNavmesh_FlatFloor(t *testing.T) {
	w := newTestWorld(t)
	floor(t, w, 0, 2, 0, 2)

	nav, err := w.GenerateNavmesh(context.Background(), vec.Vec3{X: 1, Y: 1, Z: 1}, 10)
	require.NoError(t, err)
	assert.Same(t, nav, w.Navmesh())
	assert.Equal(t, 9, nav.Len())
	assert.Equal(t, vec.Vec3{X: 1, Y: 1, Z: 1}, nav.Origin())

	assert.Len(t, w.LookupNeighbors(vec.Vec3{X: 1, Y: 1, Z: 1}), 8)
	assert.Len(t, w.LookupNeighbors(vec.Vec3{Y: 1}), 3)
	assert.Empty(t, w.LookupNeighbors(vec.Vec3{X: 50}))
	assert.Empty(t, nav.AsymmetricEdges())

	for _, pos := range nav.Positions() {
		assert.True(t, w.ValidPathingBlock(pos))
		assert.NotContains(t, nav.Neighbors(pos), pos)
	}
}

func TestNavmesh_OriginScansUpAndDown(t *testing.T) {
	w := newTestWorld(t)
	floor(t, w, 0, 0, 0, 0)

	nav, err := w.GenerateNavmesh(context.Background(), vec.Vec3{Y: 10}, 20)
	require.NoError(t, err)
	assert.Equal(t, vec.Vec3{Y: 1}, nav.Origin())

	nav, err = w.GenerateNavmesh(context.Background(), vec.Vec3{Y: -5}, 20)
	require.NoError(t, err)
	assert.Equal(t, vec.Vec3{Y: 1}, nav.Origin())
}

func TestNavmesh_NoOriginKeepsSnapshot(t *testing.T) {
	w := newTestWorld(t)

	nav, err := w.GenerateNavmesh(context.Background(), vec.Vec3{}, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, nav.Len())

	floor(t, w, 0, 1, 0, 1)
	built, err := w.GenerateNavmesh(context.Background(), vec.Vec3{Y: 1}, 5)
	require.NoError(t, err)
	require.Equal(t, 4, built.Len())

	again, err := w.GenerateNavmesh(context.Background(), vec.Vec3{X: 100, Y: 1}, 5)
	require.NoError(t, err)
	assert.Same(t, built, again)
	assert.Same(t, built, w.Navmesh())
}

func TestNavmesh_CanceledBuildKeepsSnapshot(t *testing.T) {
	w := newTestWorld(t)
	floor(t, w, 0, 3, 0, 3)
	built, err := w.GenerateNavmesh(context.Background(), vec.Vec3{Y: 1}, 5)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	nav, err := w.GenerateNavmesh(ctx, vec.Vec3{Y: 1}, 5)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, nav)
	assert.Same(t, built, w.Navmesh())
}

func TestNavmesh_StepUpAndDown(t *testing.T) {
	w := newTestWorld(t)
	floor(t, w, 0, 1, 0, 0)
	require.NoError(t, w.AddBlock(block.DirtBlockID, vec.Vec3{X: 1, Y: 1}, false))

	nav, err := w.GenerateNavmesh(context.Background(), vec.Vec3{Y: 1}, 5)
	require.NoError(t, err)

	low, high := vec.Vec3{Y: 1}, vec.Vec3{X: 1, Y: 2}
	assert.Contains(t, nav.Neighbors(low), high)
	assert.Contains(t, nav.Neighbors(high), low)
	assert.Equal(t, 2, nav.Len())
}

func TestNavmesh_DiagonalBlockedByBothCorners(t *testing.T) {
	w := newTestWorld(t)
	floor(t, w, -1, 2, -1, 2)
	wall(t, w, 1, 0)
	wall(t, w, 0, 1)

	nav, err := w.GenerateNavmesh(context.Background(), vec.Vec3{Y: 1}, 5)
	require.NoError(t, err)

	from, to := vec.Vec3{Y: 1}, vec.Vec3{X: 1, Y: 1, Z: 1}
	require.True(t, nav.Contains(to), "target is reachable around the walls")
	assert.NotContains(t, nav.Neighbors(from), to)
	assert.NotContains(t, nav.Neighbors(to), from)
}

func TestNavmesh_DiagonalAllowedByOneCorner(t *testing.T) {
	w := newTestWorld(t)
	floor(t, w, 0, 1, 0, 1)
	wall(t, w, 1, 0)

	nav, err := w.GenerateNavmesh(context.Background(), vec.Vec3{Y: 1}, 5)
	require.NoError(t, err)

	a, b := vec.Vec3{Y: 1}, vec.Vec3{X: 1, Y: 1, Z: 1}
	assert.Contains(t, nav.Neighbors(a), b)
	assert.Contains(t, nav.Neighbors(b), a)

	// (1,1,0) занята стеной и не является узлом
	assert.False(t, nav.Contains(vec.Vec3{X: 1, Y: 1}))
	assert.NotContains(t, nav.Neighbors(vec.Vec3{Y: 1, Z: 1}), vec.Vec3{X: 1, Y: 1})
	assert.Equal(t, 3, nav.Len())
}

func TestNavmesh_PathNeighborsIgnoresDiagonals(t *testing.T) {
	w := newTestWorld(t)
	floor(t, w, 0, 2, 0, 2)

	raw := w.PathNeighbors(vec.Vec3{X: 1, Y: 1, Z: 1})
	assert.Len(t, raw, 4)
	assert.NotContains(t, raw, vec.Vec3{X: 2, Y: 1, Z: 2})
}

func TestNavmesh_FindValidPathDestination(t *testing.T) {
	w := newTestWorld(t)
	floor(t, w, 0, 1, 0, 0)
	require.NoError(t, w.AddBlock(block.DirtBlockID, vec.Vec3{X: 1, Y: 1}, false))

	tests := []struct {
		name string
		pos  vec.Vec3
		want vec.Vec3
		ok   bool
	}{
		{"itself", vec.Vec3{Y: 1}, vec.Vec3{Y: 1}, true},
		{"below", vec.Vec3{Y: 2}, vec.Vec3{Y: 1}, true},
		{"above", vec.Vec3{X: 1, Y: 1}, vec.Vec3{X: 1, Y: 2}, true},
		{"neighbour", vec.Vec3{X: -1, Y: 1}, vec.Vec3{Y: 1}, true},
		{"nothing", vec.Vec3{X: 40, Y: 40}, vec.Vec3{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := w.FindValidPathDestination(tt.pos)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
