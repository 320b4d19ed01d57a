// SPDX-License-Identifier: MIT

// Package transport delivers in-progress raster state to viewers. The
// websocket sink lets a browser show a render filling in column by
// column instead of only the finished image.
package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"specgram/internal/log"
	"specgram/internal/render"
)

// RasterFrame is one broadcast message: the raster dimensions, how many
// columns are populated, and the RGBA pixel data (base64 over the wire).
type RasterFrame struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ColumnsDone int    `json:"columns_done"`
	Pix         []byte `json:"pix"`
}

// WebSocketSink broadcasts raster flushes to connected clients, rate
// limited so a fast render does not flood the network.
//
// Thread safety: the clients map is mutex-guarded; Flush is called from
// the render goroutine while connections come and go on HTTP handler
// goroutines.
type WebSocketSink struct {
	clients      map[*websocket.Conn]bool
	clientsMutex sync.Mutex
	upgrader     websocket.Upgrader
	server       *http.Server
	lastSend     time.Time
	minInterval  time.Duration
}

var _ render.Sink = (*WebSocketSink)(nil)

// NewWebSocketSink starts an HTTP server on addr serving websocket
// upgrades at /raster and returns the sink.
func NewWebSocketSink(addr string) *WebSocketSink {
	s := &WebSocketSink{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins; local viewer tooling
			},
		},
		minInterval: 50 * time.Millisecond,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/raster", s.handleWebSocket)
	s.server = &http.Server{Addr: addr, Handler: mux}

	go func() {
		log.Infof("raster websocket listening on %s", addr)
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("raster websocket server: %v", err)
		}
	}()

	return s
}

func (s *WebSocketSink) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade: %v", err)
		return
	}

	s.clientsMutex.Lock()
	s.clients[conn] = true
	s.clientsMutex.Unlock()
	log.Debugf("raster viewer connected: %s", conn.RemoteAddr())

	// Drain reads to detect disconnects; viewers never send payloads.
	go func() {
		defer func() {
			s.clientsMutex.Lock()
			delete(s.clients, conn)
			s.clientsMutex.Unlock()
			conn.Close()
			log.Debugf("raster viewer disconnected: %s", conn.RemoteAddr())
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Flush implements render.Sink. Intermediate flushes are rate limited;
// the final flush (columnsDone == raster width) is always sent.
func (s *WebSocketSink) Flush(r *render.Raster, columnsDone int) error {
	now := time.Now()
	if columnsDone < r.Width && now.Sub(s.lastSend) < s.minInterval {
		return nil
	}
	s.lastSend = now

	frame := RasterFrame{
		Width:       r.Width,
		Height:      r.Height,
		ColumnsDone: columnsDone,
		Pix:         r.Pix,
	}

	s.clientsMutex.Lock()
	defer s.clientsMutex.Unlock()
	for conn := range s.clients {
		if err := conn.WriteJSON(frame); err != nil {
			log.Warnf("raster broadcast to %s: %v", conn.RemoteAddr(), err)
			delete(s.clients, conn)
			conn.Close()
		}
	}
	return nil
}

// Close disconnects all viewers and shuts the server down.
func (s *WebSocketSink) Close() error {
	s.clientsMutex.Lock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
	s.clientsMutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
