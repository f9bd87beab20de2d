// Package api exposes pair state and the signal journal over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"signalbot/internal/model"
	"signalbot/internal/pipeline"
)

const (
	defaultSignalLimit = 50
	maxSignalLimit     = 500
)

// PairSource provides read-only pair views (pipeline.Registry).
type PairSource interface {
	Views() []pipeline.PairView
	View(pair string) (pipeline.PairView, bool)
}

// SignalStore reads journaled signals (sqlite.Journal).
type SignalStore interface {
	Recent(ctx context.Context, limit int) ([]model.Signal, error)
	ByPair(ctx context.Context, pair string, limit int) ([]model.Signal, error)
}

// Server wires HTTP endpoints around the registry and the journal.
type Server struct {
	Router    *gin.Engine
	Pairs     PairSource
	Signals   SignalStore // nil when the journal is disabled
	StartedAt time.Time
}

// NewServer builds the router. signals may be nil.
func NewServer(pairs PairSource, signals SignalStore) *Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(RequestLogger())

	s := &Server{
		Router:    r,
		Pairs:     pairs,
		Signals:   signals,
		StartedAt: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	v1 := s.Router.Group("/api/v1")
	{
		v1.GET("/health", s.health)
		v1.GET("/pairs", s.listPairs)
		v1.GET("/pairs/:pair", s.getPair)
		v1.GET("/signals", s.listSignals)
	}
}

// MountStream serves a websocket signal feed at GET /api/v1/stream.
func (s *Server) MountStream(h http.Handler) {
	s.Router.GET("/api/v1/stream", gin.WrapH(h))
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler { return s.Router }

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.StartedAt).Round(time.Second).String(),
		"pairs":   len(s.Pairs.Views()),
		"journal": s.Signals != nil,
	})
}

func (s *Server) listPairs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pairs": s.Pairs.Views()})
}

func (s *Server) getPair(c *gin.Context) {
	pair := strings.ToUpper(c.Param("pair"))
	v, ok := s.Pairs.View(pair)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown pair", "pair": pair})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) listSignals(c *gin.Context) {
	if s.Signals == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "signal journal disabled"})
		return
	}

	limit := defaultSignalLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxSignalLimit)
	}

	var (
		sigs []model.Signal
		err  error
	)
	if pair := strings.ToUpper(c.Query("pair")); pair != "" {
		sigs, err = s.Signals.ByPair(c.Request.Context(), pair, limit)
	} else {
		sigs, err = s.Signals.Recent(c.Request.Context(), limit)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sigs == nil {
		sigs = []model.Signal{}
	}
	c.JSON(http.StatusOK, gin.H{"signals": sigs, "count": len(sigs)})
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
