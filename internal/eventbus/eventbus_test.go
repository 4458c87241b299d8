package eventbus

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collected struct {
	mu     sync.Mutex
	events []*Envelope
}

func (c *collected) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collected) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.EventType)
	}
	return out
}

func TestMemoryBus_FilterAndOrder(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	all, onlyNav := &collected{}, &collected{}
	_, err := bus.Subscribe(ctx, Filter{}, all.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(ctx, Filter{Types: []string{"navmesh.built"}}, onlyNav.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, NewEnvelope("world", "block.changed", PriorityLow, 1)))
	require.NoError(t, bus.Publish(ctx, NewEnvelope("world", "navmesh.built", PriorityHigh, 2)))
	require.NoError(t, bus.Publish(ctx, NewEnvelope("world", "chunks.rebuilt", PriorityHigh, 3)))
	bus.Close()

	assert.Equal(t, []string{"block.changed", "navmesh.built", "chunks.rebuilt"}, all.types())
	assert.Equal(t, []string{"navmesh.built"}, onlyNav.types())

	stats := bus.Metrics()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(4), stats.Consumed)
	assert.Zero(t, stats.InFlight)
}

func TestMemoryBus_SourceFilter(t *testing.T) {
	bus := NewMemoryBus(4)
	got := &collected{}
	_, err := bus.Subscribe(context.Background(), Filter{Sources: []string{"pathfind"}}, got.handle)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("world", "x", PriorityLow, nil)))
	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("pathfind", "y", PriorityLow, nil)))
	bus.Close()

	assert.Equal(t, []string{"y"}, got.types())
}

func TestMemoryBus_DropsLowPriorityWhenFull(t *testing.T) {
	bus := NewMemoryBus(1)
	release := make(chan struct{})
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) { <-release })
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, NewEnvelope("world", "first", PriorityLow, nil)))
	// Ждём, пока диспетчер заберёт первое событие и заблокируется в обработчике
	require.Eventually(t, func() bool { return bus.Metrics().InFlight == 0 }, time.Second, time.Millisecond)
	require.NoError(t, bus.Publish(ctx, NewEnvelope("world", "second", PriorityLow, nil)))
	require.NoError(t, bus.Publish(ctx, NewEnvelope("world", "third", PriorityLow, nil)))

	assert.Equal(t, uint64(1), bus.Metrics().Dropped)

	// Высокий приоритет ждёт места до отмены контекста
	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.Publish(short, NewEnvelope("world", "urgent", PriorityHigh, nil)), context.DeadlineExceeded)

	close(release)
	bus.Close()
}

func TestMemoryBus_UnsubscribeAndClose(t *testing.T) {
	bus := NewMemoryBus(4)
	got := &collected{}
	sub, err := bus.Subscribe(context.Background(), Filter{}, got.handle)
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("world", "x", PriorityLow, nil)))
	bus.Close()
	bus.Close()

	assert.Empty(t, got.types())
	assert.ErrorIs(t, bus.Publish(context.Background(), NewEnvelope("world", "y", PriorityLow, nil)), ErrClosed)
	_, err = bus.Subscribe(context.Background(), Filter{}, got.handle)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCollector(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Publish(context.Background(), NewEnvelope("world", "x", PriorityLow, nil)))
	bus.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(bus))

	expected := `
# HELP eventbus_messages_published_total Общее число опубликованных сообщений.
# TYPE eventbus_messages_published_total counter
eventbus_messages_published_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "eventbus_messages_published_total"))
}
