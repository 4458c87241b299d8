package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Режимы перестройки меша чанка
const (
	RebuildFull    = "full"
	RebuildDelta   = "delta"
	RebuildCombine = "combine"
)

// Metrics инкапсулирует Prometheus-метрики мира и поиска пути.
// Все методы безопасны для nil-получателя: компоненты без метрик просто их не пишут.
type Metrics struct {
	chunkRebuilds   *prometheus.CounterVec
	chunks          prometheus.Gauge
	navmeshNodes    prometheus.Gauge
	navmeshBuild    prometheus.Histogram
	pathRequests    *prometheus.CounterVec
	pathSearch      prometheus.Histogram
	pathInflight    prometheus.Gauge
	processCPU      prometheus.Gauge
	processRSSBytes prometheus.Gauge
}

// New создаёт метрики и регистрирует их в reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chunkRebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "chunk_rebuilds_total",
			Help:      "Число перестроек мешей чанков по режимам (full/delta/combine).",
		}, []string{"mode"}),
		chunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "world",
			Name:      "chunks",
			Help:      "Количество созданных чанков.",
		}),
		navmeshNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "navmesh",
			Name:      "nodes",
			Help:      "Количество проходимых позиций в текущем снимке навмеша.",
		}),
		navmeshBuild: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Subsystem: "navmesh",
			Name:      "build_duration_seconds",
			Help:      "Длительность построения навмеша.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		pathRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxel",
			Subsystem: "pathfind",
			Name:      "requests_total",
			Help:      "Запросы пути по результату (found/no_path/depth_exceeded/canceled/duplicate).",
		}, []string{"result"}),
		pathSearch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxel",
			Subsystem: "pathfind",
			Name:      "search_duration_seconds",
			Help:      "Длительность одного поиска A*.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		pathInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "pathfind",
			Name:      "inflight",
			Help:      "Количество выполняющихся поисков пути.",
		}),
		processCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "process",
			Name:      "cpu_percent",
			Help:      "Загрузка CPU процессом симуляции.",
		}),
		processRSSBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "process",
			Name:      "rss_bytes",
			Help:      "Резидентная память процесса симуляции.",
		}),
	}

	reg.MustRegister(
		m.chunkRebuilds, m.chunks,
		m.navmeshNodes, m.navmeshBuild,
		m.pathRequests, m.pathSearch, m.pathInflight,
		m.processCPU, m.processRSSBytes,
	)
	return m
}

// ChunkRebuilt учитывает n перестроек меша в режиме mode
func (m *Metrics) ChunkRebuilt(mode string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.chunkRebuilds.WithLabelValues(mode).Add(float64(n))
}

// SetChunks обновляет количество чанков
func (m *Metrics) SetChunks(n int) {
	if m == nil {
		return
	}
	m.chunks.Set(float64(n))
}

// NavmeshBuilt фиксирует размер снимка навмеша и длительность построения
func (m *Metrics) NavmeshBuilt(nodes int, took time.Duration) {
	if m == nil {
		return
	}
	m.navmeshNodes.Set(float64(nodes))
	m.navmeshBuild.Observe(took.Seconds())
}

// PathRequest учитывает запрос пути с результатом result
func (m *Metrics) PathRequest(result string) {
	if m == nil {
		return
	}
	m.pathRequests.WithLabelValues(result).Inc()
}

// PathSearchStarted увеличивает число активных поисков
func (m *Metrics) PathSearchStarted() {
	if m == nil {
		return
	}
	m.pathInflight.Inc()
}

// PathSearchFinished уменьшает число активных поисков и пишет длительность
func (m *Metrics) PathSearchFinished(took time.Duration) {
	if m == nil {
		return
	}
	m.pathInflight.Dec()
	m.pathSearch.Observe(took.Seconds())
}

// StartHTTP запускает HTTP-эндпоинт /metrics и останавливает его при отмене ctx.
// Блокирует до завершения сервера.
func StartHTTP(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logging.Info("📈 Prometheus /metrics доступен по адресу %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
