package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The bridge serves a closed lab network; browser-side tooling
	// connects from file:// origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startHTTP brings up the WebSocket mirror and control endpoints.
func (s *Server) startHTTP(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/emc", s.handleEmcWS)
	mux.HandleFunc("/api/efc/baud", s.handleEfcBaud)
	mux.HandleFunc("/api/status", s.handleStatus)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.HTTPPort)
	srv := &http.Server{
		Addr:        addr,
		Handler:     mux,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.httpSrv = srv
	s.mu.Unlock()

	s.log.Info("http listening", zap.String("addr", addr))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) stopHTTP() {
	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// wsSink adapts one WebSocket connection to the broadcast fan-out; each
// Write becomes one binary message.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsSink) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// handleEmcWS mirrors the EMC envelope stream over a WebSocket. Incoming
// messages are treated as command lines, so a browser client gets the
// full channel, not just a tap.
func (s *Server) handleEmcWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	sink := &wsSink{conn: conn}
	s.emcOut.Attach(sink)
	s.log.Info("websocket mirror attached", zap.String("remote", conn.RemoteAddr().String()))
	defer func() {
		s.emcOut.Detach(sink)
		_ = conn.Close()
		s.log.Info("websocket mirror gone", zap.String("remote", conn.RemoteAddr().String()))
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		for _, line := range splitLines(data) {
			s.bridge.SubmitLine(line)
		}
	}
}

func splitLines(data []byte) []string {
	var lines []string
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, string(data[start:i]))
			}
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines
}

// handleEfcBaud gets or sets the EFC line rate.
func (s *Server) handleEfcBaud(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]int{"baud": s.bridge.EfcBaud()})
	case http.MethodPost, http.MethodPut:
		baud, err := strconv.Atoi(r.FormValue("baud"))
		if err != nil || baud <= 0 {
			http.Error(w, "baud must be a positive integer", http.StatusBadRequest)
			return
		}
		s.bridge.SetEfcBaud(baud)
		s.log.Info("efc baud requested", zap.Int("baud", baud))
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{
		"emc_sinks": s.emcOut.Sinks(),
		"efc_sinks": s.efcOut.Sinks(),
		"efc_baud":  s.bridge.EfcBaud(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
