// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package opstream

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/reactivearray/pkg/reactivearray"
)

// Config tunes the HTTP and WebSocket transport.
type Config struct {
	// SendBuffer is how many operations may wait for a slow stream client,
	// on top of its replay, before it is disconnected.
	SendBuffer int `yaml:"send_buffer"`

	// WriteTimeout bounds a single WebSocket write.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// PingInterval is the WebSocket keepalive period. Clients that do not
	// answer within twice this period are dropped.
	PingInterval time.Duration `yaml:"ping_interval"`

	// OpsPerSecond limits posted operations across all arrays. Zero
	// disables the limit.
	OpsPerSecond float64 `yaml:"ops_per_second"`

	// OpsBurst is the limiter burst. It defaults to 1 when a limit is set.
	OpsBurst int `yaml:"ops_burst"`
}

// DefaultConfig returns the transport defaults.
func DefaultConfig() Config {
	return Config{
		SendBuffer:   256,
		WriteTimeout: 10 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = def.PingInterval
	}
	if c.OpsPerSecond > 0 && c.OpsBurst <= 0 {
		c.OpsBurst = 1
	}
	return c
}

// Server exposes a Registry over HTTP.
type Server struct {
	registry *Registry
	cfg      Config
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewServer creates a Server. Zero fields of cfg take their defaults.
func NewServer(registry *Registry, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		registry: registry,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
	if s.cfg.OpsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(s.cfg.OpsPerSecond), s.cfg.OpsBurst)
	}
	return s
}

// Router builds the gin engine serving the registry.
//
// Routes:
//
//	GET    /v1/health
//	GET    /v1/arrays
//	POST   /v1/arrays
//	GET    /v1/arrays/:name
//	DELETE /v1/arrays/:name
//	POST   /v1/arrays/:name/ops
//	GET    /v1/arrays/:name/journal
//	GET    /v1/arrays/:name/ws
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("opstream"))
	router.Use(s.requestLogger())

	v1 := router.Group("/v1")
	{
		v1.GET("/health", s.handleHealth)
		v1.GET("/arrays", s.handleListArrays)
		v1.POST("/arrays", s.handleCreateArray)

		arrays := v1.Group("/arrays/:name")
		{
			arrays.GET("", s.handleGetArray)
			arrays.DELETE("", s.handleDeleteArray)
			arrays.POST("/ops", s.handleApplyOperation)
			arrays.GET("/journal", s.handleJournal)
			arrays.GET("/ws", s.handleStream)
		}
	}
	return router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// ArrayView is the JSON rendering of an array.
type ArrayView struct {
	Name         string `json:"name"`
	Elements     []any  `json:"elements"`
	Count        int    `json:"count"`
	InsertPolicy string `json:"insert_policy"`
}

// CreateArrayRequest is the body of POST /v1/arrays.
type CreateArrayRequest struct {
	Name         string `json:"name" binding:"required"`
	Elements     []any  `json:"elements"`
	InsertPolicy string `json:"insert_policy"`
}

// ApplyResponse is returned by POST /v1/arrays/:name/ops.
type ApplyResponse struct {
	Applied reactivearray.Operation[any] `json:"applied"`
	Count   int                          `json:"count"`
}

// JournalResponse is returned by GET /v1/arrays/:name/journal.
type JournalResponse struct {
	Entries []reactivearray.Entry[any] `json:"entries"`
	Dropped uint64                     `json:"dropped"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleListArrays(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"arrays": s.registry.Names()})
}

func (s *Server) handleCreateArray(c *gin.Context) {
	var req CreateArrayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	policy, err := reactivearray.ParseInsertPolicy(req.InsertPolicy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := s.registry.Create(req.Name, req.Elements, policy)
	switch {
	case errors.Is(err, ErrArrayExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, viewOf(entry))
}

func (s *Server) handleGetArray(c *gin.Context) {
	entry, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewOf(entry))
}

func (s *Server) handleDeleteArray(c *gin.Context) {
	if err := s.registry.Delete(c.Param("name")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleApplyOperation(c *gin.Context) {
	entry, ok := s.lookup(c)
	if !ok {
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		operationsReceived.WithLabelValues(entry.Name(), "", "throttled").Inc()
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "operation rate limit exceeded"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var op reactivearray.Operation[any]
	if err := json.Unmarshal(body, &op); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied, err := entry.Apply(op)
	if err != nil {
		operationsReceived.WithLabelValues(entry.Name(), op.Kind().String(), "rejected").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	operationsReceived.WithLabelValues(entry.Name(), op.Kind().String(), "applied").Inc()

	c.JSON(http.StatusOK, ApplyResponse{
		Applied: applied,
		Count:   entry.Array().Len(),
	})
}

func (s *Server) handleJournal(c *gin.Context) {
	entry, ok := s.lookup(c)
	if !ok {
		return
	}

	entries := entry.Journal().Entries()
	if raw := c.Query("since"); raw != "" {
		seq, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a sequence number"})
			return
		}
		entries = entry.Journal().Since(seq)
	}
	if entries == nil {
		entries = []reactivearray.Entry[any]{}
	}

	c.JSON(http.StatusOK, JournalResponse{
		Entries: entries,
		Dropped: entry.Journal().Dropped(),
	})
}

func (s *Server) lookup(c *gin.Context) (*Entry, bool) {
	entry, err := s.registry.Get(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return entry, true
}

func viewOf(entry *Entry) ArrayView {
	arr := entry.Array()
	return ArrayView{
		Name:         entry.Name(),
		Elements:     arr.ToSlice(),
		Count:        arr.Count().Value(),
		InsertPolicy: arr.InsertPolicy().String(),
	}
}
