package pathfind

import (
	"context"
	"testing"

	"github.com/annel0/voxel-world/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapGraph - граф из явного списка смежности
type mapGraph map[vec.Vec3][]vec.Vec3

func (g mapGraph) Neighbors(pos vec.Vec3) []vec.Vec3 { return g[pos] }

func (g mapGraph) link(a, b vec.Vec3) {
	g[a] = append(g[a], b)
	g[b] = append(g[b], a)
}

// corridor строит линию из n узлов вдоль X
func corridor(n int) mapGraph {
	g := mapGraph{}
	for x := 0; x < n-1; x++ {
		g.link(vec.Vec3{X: x}, vec.Vec3{X: x + 1})
	}
	return g
}

// grid строит открытую сетку n x n на XZ с 4-связностью
func grid(n int) mapGraph {
	g := mapGraph{}
	for x := 0; x < n; x++ {
		for z := 0; z < n; z++ {
			p := vec.Vec3{X: x, Z: z}
			if x+1 < n {
				g.link(p, vec.Vec3{X: x + 1, Z: z})
			}
			if z+1 < n {
				g.link(p, vec.Vec3{X: x, Z: z + 1})
			}
		}
	}
	return g
}

func TestAStar_Corridor(t *testing.T) {
	pf := NewPathfinder(corridor(5))

	path, ok := pf.AStar(vec.Vec3{}, vec.Vec3{X: 4})
	require.True(t, ok)
	require.Len(t, path, 5)
	for i, p := range path {
		assert.Equal(t, vec.Vec3{X: i}, p)
	}
}

func TestAStar_StartIsGoal(t *testing.T) {
	pf := NewPathfinder(mapGraph{})

	path, ok := pf.AStar(vec.Vec3{X: 3, Y: 1}, vec.Vec3{X: 3, Y: 1})
	assert.True(t, ok)
	assert.Equal(t, []vec.Vec3{{X: 3, Y: 1}}, path)
}

func TestAStar_GoalMissing(t *testing.T) {
	pf := NewPathfinder(corridor(5))

	path, ok := pf.AStar(vec.Vec3{}, vec.Vec3{X: 10, Z: 3})
	assert.False(t, ok)
	assert.Nil(t, path)

	_, err := pf.search(context.Background(), vec.Vec3{}, vec.Vec3{X: 10, Z: 3})
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestAStar_DepthExceeded(t *testing.T) {
	pf := NewPathfinder(corridor(100), WithMaxDepth(10))
	assert.Equal(t, 10, pf.MaxDepth())

	path, ok := pf.AStar(vec.Vec3{}, vec.Vec3{X: 99})
	assert.False(t, ok)
	assert.Nil(t, path)

	_, err := pf.search(context.Background(), vec.Vec3{}, vec.Vec3{X: 99})
	assert.ErrorIs(t, err, ErrDepthExceeded)

	// Короткий путь укладывается в тот же предел
	_, ok = pf.AStar(vec.Vec3{}, vec.Vec3{X: 5})
	assert.True(t, ok)
}

func TestAStar_PathIsContiguousAndOptimal(t *testing.T) {
	g := grid(6)
	pf := NewPathfinder(g)

	start, goal := vec.Vec3{}, vec.Vec3{X: 5, Z: 3}
	path, ok := pf.AStar(start, goal)
	require.True(t, ok)

	assert.Equal(t, start, path[0])
	assert.Equal(t, goal, path[len(path)-1])
	assert.Len(t, path, 9, "manhattan distance 8 means 9 nodes")
	for i := 1; i < len(path); i++ {
		assert.Contains(t, g.Neighbors(path[i-1]), path[i])
	}
}

func TestAStar_Deterministic(t *testing.T) {
	pf := NewPathfinder(grid(8))

	first, ok := pf.AStar(vec.Vec3{}, vec.Vec3{X: 7, Z: 7})
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		again, _ := pf.AStar(vec.Vec3{}, vec.Vec3{X: 7, Z: 7})
		assert.Equal(t, first, again)
	}
}

func TestAStar_PrefersCheaperRoute(t *testing.T) {
	g := mapGraph{}
	a, b := vec.Vec3{}, vec.Vec3{X: 4}
	// Прямой путь через длинный подъём и обход по двум коротким рёбрам
	high := vec.Vec3{X: 2, Y: 10}
	low := vec.Vec3{X: 2, Y: 1}
	g.link(a, high)
	g.link(high, b)
	g.link(a, low)
	g.link(low, b)

	path, ok := NewPathfinder(g).AStar(a, b)
	require.True(t, ok)
	assert.Equal(t, []vec.Vec3{a, low, b}, path)
}

func TestAStar_ContextCanceled(t *testing.T) {
	pf := NewPathfinder(corridor(5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pf.search(ctx, vec.Vec3{}, vec.Vec3{X: 4})
	assert.ErrorIs(t, err, context.Canceled)
}
