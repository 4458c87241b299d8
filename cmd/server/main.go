package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxel-world/internal/config"
	"github.com/annel0/voxel-world/internal/entity"
	"github.com/annel0/voxel-world/internal/eventbus"
	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/observability"
	"github.com/annel0/voxel-world/internal/pathfind"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/annel0/voxel-world/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

const (
	processSampleEvery = 5 * time.Second // Период опроса CPU/RSS процесса
	eventBufferSize    = 1024
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (falls back to VOXEL_CONFIG)")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.GetLoggerManager().CloseAll()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	applyLogLevel(cfg.Logging.Level)

	logging.Info("🎮 Запуск симуляции воксельного мира...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error("❌ %v", err)
		logging.GetLoggerManager().CloseAll()
		os.Exit(1)
	}
	logging.Info("👋 Симуляция остановлена")
}

// applyLogLevel применяет консольный уровень из конфигурации ко всем логгерам компонентов
func applyLogLevel(name string) {
	level, err := logging.ParseLevel(name)
	if err != nil {
		logging.Warn("Неизвестный уровень логирования %q, используется %s", name, level)
	}
	logging.GetLoggerManager().SetLevels(level, logging.TRACE)
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, cfg.Telemetry.ServiceName)
		if err != nil {
			logging.Warn("OpenTelemetry недоступен: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Warn("Ошибка остановки OpenTelemetry: %v", err)
				}
			}()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	bus := eventbus.NewMemoryBus(eventBufferSize)
	defer bus.Close()
	reg.MustRegister(eventbus.NewCollector(bus))
	if _, err := eventbus.StartLoggingListener(ctx, bus, eventbus.Filter{
		Types: []string{world.EventChunksRebuilt, world.EventNavmeshBuilt},
	}); err != nil {
		return fmt.Errorf("event listener: %w", err)
	}

	// Некорректная эталонная геометрия - фатальная ошибка загрузки
	registry, err := block.NewAtlasRegistry(cfg.World.AtlasRows, block.DefaultNames...)
	if err != nil {
		return fmt.Errorf("block registry: %w", err)
	}

	w := world.New(world.Config{ChunkSize: cfg.World.ChunkSize, BlockScale: cfg.World.BlockScale}, registry,
		world.WithMetrics(m), world.WithEventBus(bus))

	gen := world.NewWorldGenerator(cfg.Generator.Seed, cfg.Generator.SizeX, cfg.Generator.SizeZ)
	gen.BaseHeight = cfg.Generator.BaseHeight
	gen.Amplitude = cfg.Generator.Amplitude
	gen.NoiseScale = cfg.Generator.NoiseScale
	if _, err := gen.Populate(w); err != nil {
		return err
	}

	stats := w.Rebuild(false)
	ws := w.Stats()
	logging.Info("🧱 Мир собран: %d чанков, %d блоков, %d вершин (перестроено %d)", ws.Chunks, ws.Blocks, ws.Vertices, stats.Rebuilt)

	seed := vec.Vec3{X: cfg.Navmesh.Seed[0], Y: cfg.Navmesh.Seed[1], Z: cfg.Navmesh.Seed[2]}
	nav, err := w.GenerateNavmesh(ctx, seed, cfg.Navmesh.ScanRange)
	if err != nil {
		return fmt.Errorf("navmesh: %w", err)
	}

	svc := pathfind.NewService(pathfind.NavmeshOf(w), pathfind.ServiceConfig{
		MaxDepth:      cfg.Pathfinding.MaxDepth,
		MaxConcurrent: cfg.Pathfinding.MaxConcurrent,
		ResultBuffer:  cfg.Pathfinding.ResultBuffer,
	}, pathfind.WithServiceMetrics(m))
	defer svc.Close()

	npcs := entity.NewManager(w, svc, w.BlockScale(), cfg.Generator.Seed)
	spawnNPCs(npcs, w, nav, cfg.Server.NPCCount)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
		return metrics.StartHTTP(ctx, addr, reg)
	})
	g.Go(func() error {
		return m.SampleProcess(ctx, processSampleEvery)
	})
	g.Go(func() error {
		return simulate(ctx, npcs, cfg.Server.TickRate)
	})

	return g.Wait()
}

// spawnNPCs ставит NPC на узлы навмеша, равномерно по списку узлов
func spawnNPCs(npcs *entity.Manager, w *world.World, nav *world.Navmesh, count int) {
	positions := nav.Positions()
	if len(positions) == 0 || count <= 0 {
		logging.Warn("NPC не созданы: навмеш пуст")
		return
	}

	step := len(positions) / count
	if step == 0 {
		step = 1
	}
	half := w.BlockScale() * 0.5
	for i := 0; i < count && i*step < len(positions); i++ {
		p := w.BlockToWorld(positions[i*step])
		npcs.Spawn(mgl64.Vec3{p.X() + half, p.Y(), p.Z() + half})
	}
	logging.Info("🤖 Создано NPC: %d", len(npcs.NPCs()))
}

// simulate - цикл с фиксированным шагом: раздача результатов поиска и шаги NPC
func simulate(ctx context.Context, npcs *entity.Manager, tickRate int) error {
	dt := 1.0 / float64(tickRate)
	ticker := time.NewTicker(time.Duration(float64(time.Second) * dt))
	defer ticker.Stop()

	var tick uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			npcs.Step(ctx, dt)
			tick++
			if tick%uint64(tickRate*10) == 0 {
				logging.Debug("Тик %d, NPC: %d", tick, len(npcs.NPCs()))
			}
		}
	}
}
