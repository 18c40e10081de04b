// Package httpapi exposes backtest runs over HTTP: submit a run, poll its
// status, fetch results.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
	"github.com/kvh-4114/trade-strategies-sub001/services/runner"
)

type jobStatus string

const (
	statusRunning jobStatus = "running"
	statusDone    jobStatus = "done"
	statusFailed  jobStatus = "failed"
)

type job struct {
	ID        string         `json:"id"`
	Status    jobStatus      `json:"status"`
	Submitted time.Time      `json:"submitted"`
	Error     string         `json:"error,omitempty"`
	Result    *runner.Result `json:"-"`

	err error
}

// Server runs backtests asynchronously and holds their results in memory.
// Durable artifacts go through the runner's recorder, not through this map.
type Server struct {
	run *runner.Runner
	log *zap.Logger

	mu   sync.RWMutex
	jobs map[string]*job
}

func NewServer(run *runner.Runner, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{run: run, log: log, jobs: make(map[string]*job)}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api/v1")
	{
		api.POST("/runs", s.handleSubmit)
		api.GET("/runs/:id", s.handleStatus)
		api.GET("/runs/:id/trades", s.handleTrades)
		api.GET("/runs/:id/snapshots", s.handleSnapshots)
		api.GET("/runs/:id/report", s.handleReport)
		api.GET("/health", s.handleHealth)
	}
	return r
}

func (s *Server) handleSubmit(c *gin.Context) {
	j := &job{
		ID:        uuid.New().String(),
		Status:    statusRunning,
		Submitted: time.Now().UTC(),
	}
	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()

	go func() {
		// Detached from the request context: the run outlives the submit call.
		result, err := s.run.Run(context.Background())
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.log.Error("run failed", zap.String("job_id", j.ID), zap.Error(err))
			j.Status = statusFailed
			j.Error = err.Error()
			j.err = err
			return
		}
		j.Status = statusDone
		j.Result = result
	}()

	c.JSON(http.StatusAccepted, gin.H{"id": j.ID, "status": statusRunning})
}

// lookup snapshots the job under the read lock. Handlers work on the copy so
// they never touch fields the submit goroutine is still writing.
func (s *Server) lookup(c *gin.Context) (job, bool) {
	s.mu.RLock()
	j, ok := s.jobs[c.Param("id")]
	var snap job
	if ok {
		snap = *j
	}
	s.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run"})
	}
	return snap, ok
}

// ready returns the job snapshot when it finished successfully, otherwise
// writes the appropriate status response.
func (s *Server) ready(c *gin.Context) (job, bool) {
	j, ok := s.lookup(c)
	if !ok {
		return job{}, false
	}
	switch j.Status {
	case statusRunning:
		c.JSON(http.StatusConflict, gin.H{"id": j.ID, "status": j.Status})
		return job{}, false
	case statusFailed:
		c.JSON(statusCode(j.err), gin.H{"id": j.ID, "status": j.Status, "error": j.Error})
		return job{}, false
	}
	return j, true
}

func (s *Server) handleStatus(c *gin.Context) {
	if j, ok := s.lookup(c); ok {
		c.JSON(http.StatusOK, j)
	}
}

func (s *Server) handleTrades(c *gin.Context) {
	if j, ok := s.ready(c); ok {
		c.JSON(http.StatusOK, gin.H{"trades": j.Result.Trades, "strategy_trades": j.Result.StrategyTrades})
	}
}

func (s *Server) handleSnapshots(c *gin.Context) {
	if j, ok := s.ready(c); ok {
		c.JSON(http.StatusOK, gin.H{"snapshots": j.Result.Snapshots})
	}
}

func (s *Server) handleReport(c *gin.Context) {
	if j, ok := s.ready(c); ok {
		c.JSON(http.StatusOK, j.Result.Report)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().Unix()})
}

// statusCode maps the error taxonomy onto HTTP codes. Configuration mistakes
// are the client's fault; everything else is ours.
func statusCode(err error) int {
	var cfgErr engine.ConfigError
	if errors.As(err, &cfgErr) {
		return http.StatusBadRequest
	}
	if errors.Is(err, engine.ErrInsufficientData) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
