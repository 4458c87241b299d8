package pathfind

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/annel0/voxel-world/internal/logging"
	"github.com/annel0/voxel-world/internal/metrics"
	"github.com/annel0/voxel-world/internal/observability"
	"github.com/annel0/voxel-world/internal/vec"
	"github.com/annel0/voxel-world/internal/world"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// Reason - итог задачи поиска
type Reason string

const (
	ReasonFound         Reason = "found"
	ReasonNoPath        Reason = "no_path"
	ReasonDepthExceeded Reason = "depth_exceeded"
	ReasonCanceled      Reason = "canceled"
)

// requestDuplicate - метка отказа в запросе: такой же (start, goal) уже выполняется
const requestDuplicate = "duplicate"

// GraphSource возвращает текущий снимок графа. Снимок фиксируется в момент запроса.
type GraphSource func() Graph

// NavmeshOf возвращает источник, читающий опубликованный навмеш мира
func NavmeshOf(w *world.World) GraphSource {
	return func() Graph { return w.Navmesh() }
}

// ServiceConfig задаёт ограничения сервиса
type ServiceConfig struct {
	MaxDepth      int // Предел эвристики на поиск
	MaxConcurrent int // Одновременно выполняемые поиски
	ResultBuffer  int // Ёмкость канала результатов
}

// DefaultServiceConfig возвращает настройки по умолчанию
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{MaxDepth: DefaultMaxDepth, MaxConcurrent: 4, ResultBuffer: 64}
}

// ServiceOption настраивает Service
type ServiceOption func(*Service)

// WithServiceMetrics подключает метрики запросов
func WithServiceMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// Ticket - принятый запрос
type Ticket struct {
	ID    uuid.UUID
	Owner string
	Start vec.Vec3
	Goal  vec.Vec3
}

// Result - завершённый запрос.
// Результат мог устареть: мир и цель могли измениться, пока шёл поиск.
// Потребитель всё равно заменяет им сохранённый путь.
type Result struct {
	ID     uuid.UUID
	Owner  string
	Start  vec.Vec3
	Goal   vec.Vec3
	Path   []vec.Vec3
	Found  bool
	Reason Reason
	Took   time.Duration
}

type taskKey struct {
	start, goal vec.Vec3
}

type task struct {
	ticket Ticket
	cancel context.CancelFunc
}

// Service выполняет поиски путей в фоне. Каждая задача идёт в своей горутине,
// параллелизм ограничен семафором, результаты забираются через Drain раз в кадр.
type Service struct {
	source  GraphSource
	cfg     ServiceConfig
	sem     *semaphore.Weighted
	results chan Result
	metrics *metrics.Metrics

	mu       sync.Mutex
	inflight map[taskKey]*task
	wg       sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	accepted atomic.Int64
	refused  atomic.Int64
}

// NewService создаёт сервис поиска путей
func NewService(source GraphSource, cfg ServiceConfig, opts ...ServiceOption) *Service {
	def := DefaultServiceConfig()
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = def.MaxDepth
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.ResultBuffer <= 0 {
		cfg.ResultBuffer = def.ResultBuffer
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		source:   source,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		results:  make(chan Result, cfg.ResultBuffer),
		inflight: make(map[taskKey]*task),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request ставит поиск от start до goal. Возвращает false, если такой же
// (start, goal) уже выполняется или сервис закрыт. Отмена ctx отменяет задачу.
func (s *Service) Request(ctx context.Context, owner string, start, goal vec.Vec3) (Ticket, bool) {
	if s.closed.Load() {
		return Ticket{}, false
	}

	key := taskKey{start: start, goal: goal}
	s.mu.Lock()
	if _, busy := s.inflight[key]; busy {
		s.mu.Unlock()
		s.refused.Inc()
		s.metrics.PathRequest(requestDuplicate)
		return Ticket{}, false
	}

	taskCtx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)

	t := &task{
		ticket: Ticket{ID: uuid.New(), Owner: owner, Start: start, Goal: goal},
		cancel: cancel,
	}
	s.inflight[key] = t
	s.wg.Add(1)
	s.mu.Unlock()

	s.accepted.Inc()
	graph := s.source()
	go s.run(taskCtx, t, graph, stop)

	return t.ticket, true
}

// Cancel отменяет выполняемый поиск (start, goal). Результат придёт с ReasonCanceled.
func (s *Service) Cancel(start, goal vec.Vec3) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.inflight[taskKey{start: start, goal: goal}]
	if ok {
		t.cancel()
	}
	return ok
}

// InFlight возвращает количество выполняемых задач
func (s *Service) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Stats возвращает количество принятых и отклонённых запросов
func (s *Service) Stats() (accepted, refused int64) {
	return s.accepted.Load(), s.refused.Load()
}

// Results отдаёт канал результатов для блокирующих потребителей
func (s *Service) Results() <-chan Result {
	return s.results
}

// Drain забирает все готовые результаты, не блокируясь
func (s *Service) Drain() []Result {
	var out []Result
	for {
		select {
		case r, ok := <-s.results:
			if !ok {
				return out
			}
			out = append(out, r)
		default:
			return out
		}
	}
}

// Close отменяет все задачи, дожидается горутин и закрывает канал результатов.
// Неполученные результаты отбрасываются.
func (s *Service) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.cancel()
	s.wg.Wait()
	close(s.results)
}

func (s *Service) run(ctx context.Context, t *task, graph Graph, stop func() bool) {
	defer s.wg.Done()
	defer stop()
	defer t.cancel()

	started := time.Now()
	res := Result{ID: t.ticket.ID, Owner: t.ticket.Owner, Start: t.ticket.Start, Goal: t.ticket.Goal}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		res.Reason = ReasonCanceled
		s.finish(t, res)
		return
	}
	defer s.sem.Release(1)

	ctx, span := observability.Tracer("pathfind").Start(ctx, "pathfind.search")
	span.SetAttributes(
		attribute.String("pathfind.request_id", t.ticket.ID.String()),
		attribute.String("pathfind.owner", t.ticket.Owner),
	)
	s.metrics.PathSearchStarted()

	pf := NewPathfinder(graph, WithMaxDepth(s.cfg.MaxDepth))
	path, err := pf.search(ctx, t.ticket.Start, t.ticket.Goal)

	res.Took = time.Since(started)
	s.metrics.PathSearchFinished(res.Took)

	switch {
	case err == nil:
		res.Path, res.Found, res.Reason = path, true, ReasonFound
	case errors.Is(err, ErrDepthExceeded):
		res.Reason = ReasonDepthExceeded
		logging.GetPathfindLogger().Debug("Поиск %s: превышена глубина %d (%v -> %v)", t.ticket.ID, s.cfg.MaxDepth, t.ticket.Start, t.ticket.Goal)
	case errors.Is(err, ErrNoPath):
		res.Reason = ReasonNoPath
	default:
		res.Reason = ReasonCanceled
	}
	span.SetAttributes(attribute.String("pathfind.reason", string(res.Reason)))
	span.End()

	s.finish(t, res)
}

// finish снимает задачу с учёта и публикует результат
func (s *Service) finish(t *task, res Result) {
	key := taskKey{start: t.ticket.Start, goal: t.ticket.Goal}
	s.mu.Lock()
	if s.inflight[key] == t {
		delete(s.inflight, key)
	}
	s.mu.Unlock()

	s.metrics.PathRequest(string(res.Reason))

	select {
	case s.results <- res:
	case <-s.ctx.Done():
	}
}
