package world

import (
	"context"
	"time"

	"github.com/annel0/voxel-world/internal/eventbus"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world/block"
)

// EventSource - источник событий мира в шине
const EventSource = "world"

// Типы событий мира
const (
	EventBlockChanged  = "block.changed"
	EventChunksRebuilt = "chunks.rebuilt"
	EventNavmeshBuilt  = "navmesh.built"
)

// BlockChanged - блок поставлен или удалён
type BlockChanged struct {
	Pos     vec.Vec3
	Chunk   ChunkCoord
	Type    block.BlockID
	Removed bool
}

// ChunksRebuilt - завершён проход перестройки
type ChunksRebuilt struct {
	DeltasOnly bool
	Stats      RebuildStats
}

// NavmeshBuilt - опубликован новый снимок навмеша
type NavmeshBuilt struct {
	Origin vec.Vec3
	Nodes  int
	Took   time.Duration
}

// WithEventBus публикует изменения мира в шину событий
func WithEventBus(bus eventbus.EventBus) Option {
	return func(w *World) { w.events = bus }
}

// publish отправляет событие, если шина подключена. Ошибки шины не прерывают изменение мира.
func (w *World) publish(eventType string, priority int, payload any) {
	if w.events == nil {
		return
	}
	ev := eventbus.NewEnvelope(EventSource, eventType, priority, payload)
	if err := w.events.Publish(context.Background(), ev); err != nil {
		logging.GetWorldLogger().Debug("Событие %s не опубликовано: %v", eventType, err)
	}
}
