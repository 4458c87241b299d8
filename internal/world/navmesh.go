package world

import (
	"context"
	"time"

	"github.com/annel0/voxel-world/internal/eventbus"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/observability"
	"github.com/annel0/voxel-world/internal/vec"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// StandingClearance - число пустых ячеек над опорой, нужное для стояния (ноги и голова)
const StandingClearance = 2

// DefaultScanRange - дальность поиска стартовой точки навмеша от затравки
const DefaultScanRange = 100

// ctxCheckEvery - как часто BFS проверяет отмену контекста
const ctxCheckEvery = 256

// stepDirections - 4 горизонтальных шага и 8 шагов с подъёмом или спуском на одну ячейку
var stepDirections = [12]vec.Vec3{
	{X: 1}, {X: -1}, {Z: 1}, {Z: -1},
	{X: 1, Y: 1}, {X: -1, Y: 1}, {Z: 1, Y: 1}, {Z: -1, Y: 1},
	{X: 1, Y: -1}, {X: -1, Y: -1}, {Z: 1, Y: -1}, {Z: -1, Y: -1},
}

// diagonalCheck - диагональ и два ортогональных угла, через которые её можно обойти
type diagonalCheck struct {
	diagonal vec.Vec3
	corners  [2]vec.Vec3
}

var diagonalChecks = [4]diagonalCheck{
	{diagonal: vec.Vec3{X: 1, Z: 1}, corners: [2]vec.Vec3{{X: 1}, {Z: 1}}},
	{diagonal: vec.Vec3{X: 1, Z: -1}, corners: [2]vec.Vec3{{X: 1}, {Z: -1}}},
	{diagonal: vec.Vec3{X: -1, Z: 1}, corners: [2]vec.Vec3{{X: -1}, {Z: 1}}},
	{diagonal: vec.Vec3{X: -1, Z: -1}, corners: [2]vec.Vec3{{X: -1}, {Z: -1}}},
}

// Navmesh - неизменяемый снимок графа проходимых ячеек.
// После публикации не модифицируется, поэтому безопасен для чтения из любых горутин.
type Navmesh struct {
	origin vec.Vec3
	edges  map[vec.Vec3][]vec.Vec3
}

func emptyNavmesh() *Navmesh {
	return &Navmesh{edges: map[vec.Vec3][]vec.Vec3{}}
}

// Neighbors возвращает рёбра из pos. Для неизвестной позиции - пустой список.
// Срез нельзя изменять.
func (n *Navmesh) Neighbors(pos vec.Vec3) []vec.Vec3 {
	if n == nil {
		return nil
	}
	return n.edges[pos]
}

func (n *Navmesh) Len() int {
	if n == nil {
		return 0
	}
	return len(n.edges)
}

func (n *Navmesh) Contains(pos vec.Vec3) bool {
	if n == nil {
		return false
	}
	_, ok := n.edges[pos]
	return ok
}

func (n *Navmesh) Origin() vec.Vec3 { return n.origin }

// Positions возвращает все узлы в детерминированном порядке
func (n *Navmesh) Positions() []vec.Vec3 {
	if n == nil {
		return nil
	}
	return sortedKeys(n.edges)
}

// Edge - направленное ребро навмеша
type Edge struct {
	From, To vec.Vec3
}

// Edges возвращает все рёбра в детерминированном порядке
func (n *Navmesh) Edges() []Edge {
	var out []Edge
	for _, from := range n.Positions() {
		for _, to := range n.edges[from] {
			out = append(out, Edge{From: from, To: to})
		}
	}
	return out
}

// AsymmetricEdges возвращает рёбра, для которых нет обратного ребра
func (n *Navmesh) AsymmetricEdges() []Edge {
	var out []Edge
	for _, e := range n.Edges() {
		if !hasEdge(n.edges, e.To, e.From) {
			out = append(out, e)
		}
	}
	return out
}

func hasEdge(edges map[vec.Vec3][]vec.Vec3, from, to vec.Vec3) bool {
	for _, n := range edges[from] {
		if n == to {
			return true
		}
	}
	return false
}

// ValidPathingBlock: под pos есть блок, а pos и ячейка над ним пусты
func (w *World) ValidPathingBlock(pos vec.Vec3) bool {
	if _, solid := w.GetBlock(pos.Down(1)); !solid {
		return false
	}
	for i := 0; i < StandingClearance; i++ {
		if _, occupied := w.GetBlock(pos.Up(i)); occupied {
			return false
		}
	}
	return true
}

// PathNeighbors сканирует 12 направлений шага без учёта диагоналей
func (w *World) PathNeighbors(pos vec.Vec3) []vec.Vec3 {
	var out []vec.Vec3
	for _, dir := range stepDirections {
		p := pos.Add(dir)
		if w.ValidPathingBlock(p) {
			out = append(out, p)
		}
	}
	return out
}

// Navmesh возвращает текущий опубликованный снимок
func (w *World) Navmesh() *Navmesh {
	return w.navmesh.Load()
}

// LookupNeighbors возвращает соседей pos в текущем снимке навмеша
func (w *World) LookupNeighbors(pos vec.Vec3) []vec.Vec3 {
	return w.Navmesh().Neighbors(pos)
}

// resolveOrigin ищет ближайшую проходимую ячейку в столбце затравки: seed+i, затем seed-i
func (w *World) resolveOrigin(seed vec.Vec3, scanRange int) (vec.Vec3, bool) {
	for i := 0; i < scanRange; i++ {
		if p := seed.Up(i); w.ValidPathingBlock(p) {
			return p, true
		}
		if p := seed.Down(i); w.ValidPathingBlock(p) {
			return p, true
		}
	}
	return vec.Vec3{}, false
}

// GenerateNavmesh строит навмеш заливкой от ближайшей к seed проходимой ячейки
// и атомарно публикует его. Если стартовая ячейка не найдена, текущий снимок
// не меняется. При отмене ctx возвращается ctx.Err() и старый снимок остаётся.
func (w *World) GenerateNavmesh(ctx context.Context, seed vec.Vec3, scanRange int) (*Navmesh, error) {
	ctx, span := observability.Tracer("world").Start(ctx, "navmesh.generate")
	defer span.End()

	if scanRange <= 0 {
		scanRange = DefaultScanRange
	}
	started := time.Now()

	origin, ok := w.resolveOrigin(seed, scanRange)
	if !ok {
		logging.GetWorldLogger().Warn("Навмеш не построен: нет проходимой ячейки в %d от %v", scanRange, seed)
		span.SetAttributes(attribute.Bool("navmesh.origin_found", false))
		return w.Navmesh(), nil
	}

	edges := make(map[vec.Vec3][]vec.Vec3)
	queue := []vec.Vec3{origin}
	seen := map[vec.Vec3]struct{}{origin: {}}

	for head := 0; head < len(queue); head++ {
		if head%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "canceled")
				return nil, err
			}
		}

		pos := queue[head]
		neighbors := w.PathNeighbors(pos)
		edges[pos] = neighbors
		for _, n := range neighbors {
			if _, visited := seen[n]; !visited {
				seen[n] = struct{}{}
				queue = append(queue, n)
			}
		}
	}

	augmentDiagonals(edges)

	nav := &Navmesh{origin: origin, edges: edges}
	w.navmesh.Store(nav)

	took := time.Since(started)
	w.metrics.NavmeshBuilt(nav.Len(), took)
	span.SetAttributes(
		attribute.Bool("navmesh.origin_found", true),
		attribute.Int("navmesh.nodes", nav.Len()),
	)
	logging.GetWorldLogger().Info("Навмеш построен: %d узлов от %v за %v", nav.Len(), origin, took)
	w.publish(EventNavmeshBuilt, eventbus.PriorityHigh, NavmeshBuilt{Origin: origin, Nodes: nav.Len(), Took: took})

	return nav, nil
}

// augmentDiagonals добавляет диагональ, если целевая ячейка есть в графе
// и хотя бы один из двух угловых переходов уже является ребром
func augmentDiagonals(edges map[vec.Vec3][]vec.Vec3) {
	added := make(map[vec.Vec3][]vec.Vec3)
	for _, pos := range sortedKeys(edges) {
		for _, check := range diagonalChecks {
			target := pos.Add(check.diagonal)
			if _, ok := edges[target]; !ok {
				continue
			}
			if hasEdge(edges, pos, pos.Add(check.corners[0])) || hasEdge(edges, pos, pos.Add(check.corners[1])) {
				added[pos] = append(added[pos], target)
			}
		}
	}
	for pos, extra := range added {
		edges[pos] = append(edges[pos], extra...)
	}
}

// FindValidPathDestination подбирает цель пути рядом с pos:
// сама ячейка, ячейка ниже, ячейка выше, иначе первый сосед по шагу
func (w *World) FindValidPathDestination(pos vec.Vec3) (vec.Vec3, bool) {
	for _, p := range [3]vec.Vec3{pos, pos.Down(1), pos.Up(1)} {
		if w.ValidPathingBlock(p) {
			return p, true
		}
	}
	if neighbors := w.PathNeighbors(pos); len(neighbors) > 0 {
		return neighbors[0], true
	}
	return vec.Vec3{}, false
}
