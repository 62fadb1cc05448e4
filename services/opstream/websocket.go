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
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/reactivearray/pkg/reactivearray"
	"github.com/AleutianAI/reactivearray/pkg/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamClient is one WebSocket consumer of an array's operations.
//
// Operations are queued by the array's mutators and written by a single
// writer goroutine. A client whose queue is full is disconnected instead
// of blocking the mutator.
type streamClient struct {
	id     string
	array  string
	send   chan []byte
	kick   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func newStreamClient(array string, buffer int, logger *slog.Logger) *streamClient {
	id := uuid.NewString()
	return &streamClient{
		id:     id,
		array:  array,
		send:   make(chan []byte, buffer),
		kick:   make(chan struct{}),
		logger: logger.With("array", array, "client_id", id),
	}
}

// observe is the array observer. It never blocks.
func (c *streamClient) observe(op reactivearray.Operation[any]) {
	frame, err := json.Marshal(op)
	if err != nil {
		c.logger.Error("failed to encode operation", "operation", op.String(), "error", err)
		return
	}
	select {
	case c.send <- frame:
	default:
		c.drop()
	}
}

func (c *streamClient) drop() {
	c.once.Do(func() {
		close(c.kick)
		slowClientDisconnects.Inc()
		c.logger.Warn("disconnecting slow stream client", "queued", len(c.send))
	})
}

func (c *streamClient) dropped() bool {
	select {
	case <-c.kick:
		return true
	default:
		return false
	}
}

// handleStream upgrades to a WebSocket and streams the array's operations,
// replay first, as JSON text frames.
func (s *Server) handleStream(c *gin.Context) {
	entry, ok := s.lookup(c)
	if !ok {
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "array", entry.Name(), "error", err)
		return
	}
	defer ws.Close()

	// The queue must hold the whole replay, which is delivered before the
	// writer gets a chance to run.
	var client *streamClient
	sub := entry.Stream(func(replay int) stream.Observer[reactivearray.Operation[any]] {
		client = newStreamClient(entry.Name(), replay+s.cfg.SendBuffer, s.logger)
		return client.observe
	})
	defer sub.Unsubscribe()

	websocketClients.Inc()
	defer websocketClients.Dec()
	client.logger.Info("stream client connected", "replayed", len(client.send))

	closed := make(chan struct{})
	go s.readPump(ws, closed)
	s.writePump(ws, client, closed)

	client.logger.Info("stream client disconnected")
}

// readPump discards client messages and closes closed when the connection
// ends. It also keeps the read deadline fresh on pongs.
func (s *Server) readPump(ws *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	pongWait := 2 * s.cfg.PingInterval
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only goroutine writing to ws.
func (s *Server) writePump(ws *websocket.Conn, client *streamClient, closed <-chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return

		case <-client.kick:
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "client too slow"),
				time.Now().Add(s.cfg.WriteTimeout))
			return

		case frame := <-client.send:
			if client.dropped() {
				continue
			}
			_ = ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				client.logger.Warn("stream write failed", "error", err)
				return
			}

		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				return
			}
		}
	}
}
