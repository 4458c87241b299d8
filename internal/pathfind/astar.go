package pathfind

import (
	"container/heap"
	"context"
	"errors"

	"github.com/annel0/voxel-world/internal/vec"
)

// DefaultMaxDepth - предел вычислений эвристики на один поиск
const DefaultMaxDepth = 2000

var (
	// ErrNoPath - граф исчерпан, цель недостижима
	ErrNoPath = errors.New("no path")
	// ErrDepthExceeded - поиск прерван по пределу глубины
	ErrDepthExceeded = errors.New("search depth exceeded")
)

// Graph отдаёт соседей узла. *world.Navmesh реализует этот интерфейс.
type Graph interface {
	Neighbors(pos vec.Vec3) []vec.Vec3
}

// Option настраивает Pathfinder
type Option func(*Pathfinder)

// WithMaxDepth задаёт предел вычислений эвристики
func WithMaxDepth(n int) Option {
	return func(p *Pathfinder) {
		if n > 0 {
			p.maxDepth = n
		}
	}
}

// Pathfinder ищет пути A* по снимку графа. Не хранит состояния между поисками,
// поэтому один экземпляр можно использовать из разных горутин.
type Pathfinder struct {
	graph    Graph
	maxDepth int
}

// NewPathfinder создаёт поисковик по графу
func NewPathfinder(graph Graph, opts ...Option) *Pathfinder {
	p := &Pathfinder{graph: graph, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxDepth возвращает предел вычислений эвристики
func (p *Pathfinder) MaxDepth() int {
	return p.maxDepth
}

// AStar возвращает путь от start до goal включительно.
// Превышение глубины и отсутствие пути одинаково дают (nil, false).
func (p *Pathfinder) AStar(start, goal vec.Vec3) ([]vec.Vec3, bool) {
	path, err := p.search(context.Background(), start, goal)
	if err != nil {
		return nil, false
	}
	return path, true
}

// node - запись открытого списка
type node struct {
	pos   vec.Vec3
	g, h  float64
	seq   uint64 // Порядок вставки для детерминированного выбора при равенстве
	index int
}

func (n *node) f() float64 { return n.g + n.h }

// openSet - двоичная куча по (f, h, seq)
type openSet []*node

func (s openSet) Len() int { return len(s) }

func (s openSet) Less(i, j int) bool {
	a, b := s[i], s[j]
	if a.f() != b.f() {
		return a.f() < b.f()
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return a.seq < b.seq
}

func (s openSet) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
	s[i].index = i
	s[j].index = j
}

func (s *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*s)
	*s = append(*s, n)
}

func (s *openSet) Pop() any {
	old := *s
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.index = -1
	*s = old[:len(old)-1]
	return n
}

// search - A* с евклидовыми стоимостью и эвристикой.
// Каждое вычисление эвристики увеличивает счётчик; по достижении maxDepth
// поиск прерывается с ErrDepthExceeded.
func (p *Pathfinder) search(ctx context.Context, start, goal vec.Vec3) ([]vec.Vec3, error) {
	if start == goal {
		return []vec.Vec3{start}, nil
	}

	depth := 0
	heuristic := func(pos vec.Vec3) (float64, error) {
		depth++
		if depth >= p.maxDepth {
			return 0, ErrDepthExceeded
		}
		return pos.DistanceTo(goal), nil
	}

	h, err := heuristic(start)
	if err != nil {
		return nil, err
	}

	var seq uint64
	nodes := map[vec.Vec3]*node{start: {pos: start, h: h, seq: seq}}
	closed := make(map[vec.Vec3]struct{})
	cameFrom := make(map[vec.Vec3]vec.Vec3)

	open := &openSet{}
	heap.Push(open, nodes[start])

	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := heap.Pop(open).(*node)
		if current.pos == goal {
			return reconstruct(cameFrom, start, goal), nil
		}
		closed[current.pos] = struct{}{}

		for _, next := range p.graph.Neighbors(current.pos) {
			if _, done := closed[next]; done {
				continue
			}
			g := current.g + current.pos.DistanceTo(next)

			n, seen := nodes[next]
			if seen && g >= n.g {
				continue
			}
			h, err := heuristic(next)
			if err != nil {
				return nil, err
			}
			cameFrom[next] = current.pos

			if !seen {
				seq++
				n = &node{pos: next, g: g, h: h, seq: seq}
				nodes[next] = n
				heap.Push(open, n)
				continue
			}
			n.g, n.h = g, h
			heap.Fix(open, n.index)
		}
	}

	return nil, ErrNoPath
}

func reconstruct(cameFrom map[vec.Vec3]vec.Vec3, start, goal vec.Vec3) []vec.Vec3 {
	path := []vec.Vec3{goal}
	for pos := goal; pos != start; {
		pos = cameFrom[pos]
		path = append(path, pos)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
