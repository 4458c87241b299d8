package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации симуляции.
type Config struct {
	World       WorldConfig       `yaml:"world"`
	Navmesh     NavmeshConfig     `yaml:"navmesh"`
	Pathfinding PathfindingConfig `yaml:"pathfinding"`
	Generator   GeneratorConfig   `yaml:"generator"`
	Server      ServerConfig      `yaml:"server"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type WorldConfig struct {
	ChunkSize  int     `yaml:"chunk_size"`
	BlockScale float64 `yaml:"block_scale"`
	AtlasRows  int     `yaml:"atlas_rows"`
}

type NavmeshConfig struct {
	Seed      [3]int `yaml:"seed"`
	ScanRange int    `yaml:"scan_range"`
}

type PathfindingConfig struct {
	MaxDepth      int `yaml:"max_depth"`
	MaxConcurrent int `yaml:"max_concurrent"`
	ResultBuffer  int `yaml:"result_buffer"`
}

type GeneratorConfig struct {
	Seed       int64   `yaml:"seed"`
	SizeX      int     `yaml:"size_x"`
	SizeZ      int     `yaml:"size_z"`
	BaseHeight int     `yaml:"base_height"`
	Amplitude  int     `yaml:"amplitude"`
	NoiseScale float64 `yaml:"noise_scale"`
}

type ServerConfig struct {
	TickRate    int `yaml:"tick_rate"`
	MetricsPort int `yaml:"metrics_port"`
	NPCCount    int `yaml:"npc_count"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			ChunkSize:  16,
			BlockScale: 0.75,
			AtlasRows:  4,
		},
		Navmesh: NavmeshConfig{
			Seed:      [3]int{8, 8, 8},
			ScanRange: 100,
		},
		Pathfinding: PathfindingConfig{
			MaxDepth:      2000,
			MaxConcurrent: 4,
			ResultBuffer:  64,
		},
		Generator: GeneratorConfig{
			Seed:       12345,
			SizeX:      48,
			SizeZ:      48,
			BaseHeight: 4,
			Amplitude:  6,
			NoiseScale: 0.05,
		},
		Server: ServerConfig{
			TickRate: 60,
			NPCCount: 4,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "voxel-world",
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// GetMetricsPort возвращает порт Prometheus метрик с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "VOXEL_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Validate проверяет значения, от которых зависит корректность мира
func (c *Config) Validate() error {
	var errs []error
	if c.World.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("world.chunk_size must be positive, got %d", c.World.ChunkSize))
	}
	if c.World.BlockScale <= 0 {
		errs = append(errs, fmt.Errorf("world.block_scale must be positive, got %v", c.World.BlockScale))
	}
	if c.Navmesh.ScanRange < 0 {
		errs = append(errs, fmt.Errorf("navmesh.scan_range must not be negative, got %d", c.Navmesh.ScanRange))
	}
	if c.Pathfinding.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("pathfinding.max_depth must be positive, got %d", c.Pathfinding.MaxDepth))
	}
	if c.Pathfinding.MaxConcurrent <= 0 {
		errs = append(errs, fmt.Errorf("pathfinding.max_concurrent must be positive, got %d", c.Pathfinding.MaxConcurrent))
	}
	if c.Server.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("server.tick_rate must be positive, got %d", c.Server.TickRate))
	}
	return errors.Join(errs...)
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV VOXEL_CONFIG, иначе возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}
