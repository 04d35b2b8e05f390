package opsserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bilirumine/engine/internal/opsmetrics"
	"github.com/bilirumine/engine/internal/ring"
	"github.com/bilirumine/engine/internal/scheduler"
	"github.com/bilirumine/engine/internal/state"
)

// RingSnapshot is the /ring/:name response body.
type RingSnapshot struct {
	Name       string `json:"name"`
	Capacity   int64  `json:"capacity"`
	Next       int64  `json:"next"`
	Generation int64  `json:"generation"`
	HeadPad    int64  `json:"head_pad"`
}

// SchedulerSnapshot is the /scheduler/:stage response body.
type SchedulerSnapshot struct {
	Stage     string `json:"stage"`
	Pending   int64  `json:"pending"`
	Cancelled int    `json:"cancelled"`
	Paused    int    `json:"paused"`
}

// Event is one structured log/metric line pushed to /ws/events
// subscribers.
type Event struct {
	Stage   string                 `json:"stage"`
	Kind    string                 `json:"kind"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
	AtMilli int64                  `json:"at_milli"`
}

// Server is the ambient ops HTTP surface.
type Server struct {
	router    *gin.Engine
	http      *http.Server
	logger    *zap.Logger
	metrics   *opsmetrics.Metrics
	sets      *state.Sets
	startedAt time.Time

	mu          sync.RWMutex
	rings       map[string]*ring.Ring
	schedulers  map[string]*scheduler.Scheduler
	subscribers map[string]chan Event
}

// Deps bundles Server's collaborators.
type Deps struct {
	Addr    string
	Metrics *opsmetrics.Metrics
	Sets    *state.Sets
	Logger  *zap.Logger
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// New constructs the ops server. Register rings and schedulers with
// RegisterRing/RegisterScheduler before calling Run.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost", "http://127.0.0.1"},
		AllowMethods:     []string{"GET"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: false,
	}))

	s := &Server{
		router:      router,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		sets:        deps.Sets,
		startedAt:   time.Now(),
		rings:       make(map[string]*ring.Ring),
		schedulers:  make(map[string]*scheduler.Scheduler),
		subscribers: make(map[string]chan Event),
	}
	s.http = &http.Server{Addr: deps.Addr, Handler: router}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealthz)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	s.router.GET("/ring/:name", s.handleRing)
	s.router.GET("/scheduler/:stage", s.handleScheduler)
	s.router.GET("/ws/events", s.handleEvents)
}

// RegisterRing makes a ring visible at GET /ring/:name.
func (s *Server) RegisterRing(name string, r *ring.Ring) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rings[name] = r
}

// RegisterScheduler makes a stage's scheduler visible at
// GET /scheduler/:stage.
func (s *Server) RegisterScheduler(stage string, sched *scheduler.Scheduler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedulers[stage] = sched
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleRing(c *gin.Context) {
	name := c.Param("name")
	s.mu.RLock()
	r, ok := s.rings[name]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown ring: " + name})
		return
	}
	capacity, next, generation, headPad := r.Snapshot()
	c.JSON(http.StatusOK, RingSnapshot{
		Name: name, Capacity: capacity, Next: next, Generation: generation, HeadPad: headPad,
	})
}

func (s *Server) handleScheduler(c *gin.Context) {
	stage := c.Param("stage")
	s.mu.RLock()
	sched, ok := s.schedulers[stage]
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown stage: " + stage})
		return
	}
	cancelled, paused := 0, 0
	if s.sets != nil {
		cancelled, paused = s.sets.Snapshot()
	}
	c.JSON(http.StatusOK, SchedulerSnapshot{
		Stage: stage, Pending: sched.Pending(), Cancelled: cancelled, Paused: paused,
	})
}

// handleEvents upgrades to a websocket and streams every Broadcast event to
// this one client until it disconnects.
func (s *Server) handleEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	clientID := uuid.New().String()
	ch := make(chan Event, 32)

	s.mu.Lock()
	s.subscribers[clientID] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.subscribers, clientID)
		s.mu.Unlock()
	}()

	for ev := range ch {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// Publish satisfies topology.EventSink: it wraps stage/kind/fields into an
// Event timestamped now and broadcasts it to every connected client.
func (s *Server) Publish(stage, kind string, fields map[string]interface{}) {
	s.Broadcast(Event{
		Stage:   stage,
		Kind:    kind,
		Fields:  fields,
		AtMilli: time.Now().UnixMilli(),
	})
}

// Broadcast pushes ev to every currently-connected /ws/events client,
// dropping it for any client whose buffer is full rather than blocking the
// caller (a slow operator dashboard must never stall the pipeline).
func (s *Server) Broadcast(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Run starts the HTTP listener, blocking until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
