package entity

import (
	"context"
	"math/rand"
	"sort"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/pathfind"
	"github.com/go-gl/mathgl/mgl64"
)

// ResultSource отдаёт готовые результаты поиска. *pathfind.Service реализует этот интерфейс.
type ResultSource interface {
	PathRequester
	Drain() []pathfind.Result
}

// Manager владеет NPC, раздаёт им результаты поиска и выполняет их шаги
type Manager struct {
	terrain    Terrain
	paths      ResultSource
	blockScale float64
	rng        *rand.Rand

	npcs map[string]*NPC
}

// NewManager создаёт менеджер NPC. seed делает поведение воспроизводимым.
func NewManager(terrain Terrain, paths ResultSource, blockScale float64, seed int64) *Manager {
	return &Manager{
		terrain:    terrain,
		paths:      paths,
		blockScale: blockScale,
		rng:        rand.New(rand.NewSource(seed)),
		npcs:       make(map[string]*NPC),
	}
}

// Spawn создаёт NPC, стоящего ногами в pos
func (m *Manager) Spawn(pos mgl64.Vec3) *NPC {
	n := NewNPC(pos, m.blockScale)
	m.npcs[n.Owner()] = n
	logging.GetEntityLogger().Debug("NPC %s создан в %v", n.Owner(), pos)
	return n
}

// Get возвращает NPC по идентификатору владельца
func (m *Manager) Get(owner string) (*NPC, bool) {
	n, ok := m.npcs[owner]
	return n, ok
}

// NPCs возвращает NPC в детерминированном порядке
func (m *Manager) NPCs() []*NPC {
	out := make([]*NPC, 0, len(m.npcs))
	for _, n := range m.npcs {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner() < out[j].Owner() })
	return out
}

// Step раздаёт результаты, готовые к этому кадру, и продвигает всех NPC на dt
func (m *Manager) Step(ctx context.Context, dt float64) {
	for _, res := range m.paths.Drain() {
		n, ok := m.npcs[res.Owner]
		if !ok {
			logging.GetEntityLogger().Debug("Результат поиска %s для неизвестного владельца %s", res.ID, res.Owner)
			continue
		}
		n.ApplyResult(res)
	}

	env := &Env{
		Ctx:        ctx,
		DT:         dt,
		Terrain:    m.terrain,
		Paths:      m.paths,
		BlockScale: m.blockScale,
		Rand:       m.rng,
	}
	for _, n := range m.NPCs() {
		n.Update(env)
	}
}
