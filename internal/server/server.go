package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/salina-uart/internal/bridge"
	"github.com/muurk/salina-uart/internal/logging"
)

// Config holds the network configuration.
type Config struct {
	Host     string
	EmcPort  int
	EfcPort  int // 0 disables the EFC listener
	HTTPPort int // 0 disables the HTTP/WebSocket listener
}

// Server owns the listeners that front one Bridge.
type Server struct {
	cfg    Config
	bridge *bridge.Bridge
	emcOut *Broadcast
	efcOut *Broadcast
	log    *zap.Logger

	mu        sync.Mutex
	listeners []net.Listener
	emcConn   net.Conn
	efcConn   net.Conn
	httpSrv   *http.Server

	wg sync.WaitGroup
}

// New wires a Server over an assembled bridge. emcOut and efcOut must be
// the same Broadcast instances the bridge writes to.
func New(cfg Config, b *bridge.Bridge, emcOut, efcOut *Broadcast) *Server {
	return &Server{
		cfg:    cfg,
		bridge: b,
		emcOut: emcOut,
		efcOut: efcOut,
		log:    logging.GetLogger(),
	}
}

// Start brings up all configured listeners and blocks until ctx is
// cancelled, then tears everything down.
func (s *Server) Start(ctx context.Context) error {
	emcAddr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.EmcPort)
	if err := s.listenChannel(emcAddr, "emc", s.handleEmcConn); err != nil {
		return err
	}
	if s.cfg.EfcPort != 0 {
		efcAddr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.EfcPort)
		if err := s.listenChannel(efcAddr, "efc", s.handleEfcConn); err != nil {
			s.closeListeners()
			return err
		}
	}
	if s.cfg.HTTPPort != 0 {
		if err := s.startHTTP(ctx); err != nil {
			s.closeListeners()
			return err
		}
	}

	<-ctx.Done()
	s.Shutdown()
	return ctx.Err()
}

// listenChannel starts one single-client TCP listener. A new connection
// displaces the previous one.
func (s *Server) listenChannel(addr, name string, handle func(net.Conn)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()

	s.log.Info("channel listening",
		zap.String("channel", name),
		zap.String("addr", addr))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				if !errors.Is(err, net.ErrClosed) {
					s.log.Error("accept failed", zap.String("channel", name), zap.Error(err))
				}
				return
			}
			s.log.Info("client connected",
				zap.String("channel", name),
				zap.String("remote", conn.RemoteAddr().String()))
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				handle(conn)
			}()
		}
	}()
	return nil
}

// handleEmcConn serves one EMC command client: envelopes out via the
// broadcast, newline-terminated command lines in.
func (s *Server) handleEmcConn(conn net.Conn) {
	old := s.swapConn(&s.emcConn, conn)
	if old != nil {
		s.log.Info("displacing previous emc client",
			zap.String("remote", old.RemoteAddr().String()))
		_ = old.Close()
	}
	s.emcOut.Attach(conn)
	defer func() {
		s.emcOut.Detach(conn)
		_ = conn.Close()
		s.clearConn(&s.emcConn, conn)
		s.log.Info("emc client gone", zap.String("remote", conn.RemoteAddr().String()))
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		s.bridge.SubmitLine(line)
	}
}

// handleEfcConn serves one EFC console client as a raw byte relay.
func (s *Server) handleEfcConn(conn net.Conn) {
	old := s.swapConn(&s.efcConn, conn)
	if old != nil {
		_ = old.Close()
	}
	s.efcOut.Attach(conn)
	defer func() {
		s.efcOut.Detach(conn)
		_ = conn.Close()
		s.clearConn(&s.efcConn, conn)
	}()

	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			s.bridge.WriteEfc(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) swapConn(slot *net.Conn, conn net.Conn) net.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := *slot
	*slot = conn
	return old
}

func (s *Server) clearConn(slot *net.Conn, conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *slot == conn {
		*slot = nil
	}
}

func (s *Server) closeListeners() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
	s.listeners = nil
}

// Shutdown closes listeners and live connections, then waits briefly for
// handler goroutines to drain.
func (s *Server) Shutdown() {
	s.log.Info("shutting down network front end")
	s.closeListeners()
	s.stopHTTP()

	s.mu.Lock()
	for _, conn := range []net.Conn{s.emcConn, s.efcConn} {
		if conn != nil {
			_ = conn.Close()
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		s.log.Warn("shutdown timeout, abandoning handlers")
	}
	logging.Sync()
}
