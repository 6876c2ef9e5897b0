package control

import (
	"fmt"
	"net"
	"sync"

	"layerkeyd/internal/obslog"
)

// Config configures which transports the control surface listens on and
// its auth/resource-limit knobs. An empty address disables that
// transport; an empty AuthToken disables authentication entirely (every
// client is treated as already authenticated).
type Config struct {
	TCPAddr     string
	UDPAddr     string
	AuthToken   string
	MaxTCPConns int
}

// defaultMaxTCPConns mirrors a conservative per-process fd budget for a
// local automation/scripting surface (spec.md §5's "TCP control-surface
// connections are additionally bounded"); it is not meant to serve
// internet-facing traffic.
const defaultMaxTCPConns = 32

// Server owns zero or more listeners bound to one Backend (spec.md §6's
// control surface is entirely optional: a Config with both addresses
// empty produces a Server whose ListenAndServe starts only the
// notification hub and opens no sockets).
type Server struct {
	cfg     Config
	backend Backend
	log     *obslog.Logger
	hub     *hub

	tcpListener net.Listener
	udpConn     net.PacketConn

	done chan struct{}
	wg   sync.WaitGroup
}

// New builds a Server bound to backend; call ListenAndServe to actually
// open sockets.
func New(cfg Config, backend Backend, log *obslog.Logger) *Server {
	if cfg.MaxTCPConns <= 0 {
		cfg.MaxTCPConns = defaultMaxTCPConns
	}
	return &Server{
		cfg:     cfg,
		backend: backend,
		log:     log,
		hub:     newHub(backend, cfg.AuthToken, log),
		done:    make(chan struct{}),
	}
}

// ListenAndServe opens the configured listeners and returns once they are
// bound; the accept/read loops run on background goroutines until Close.
func (s *Server) ListenAndServe() error {
	s.hub.run()

	if s.cfg.TCPAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.TCPAddr)
		if err != nil {
			return fmt.Errorf("control: tcp listen %s: %w", s.cfg.TCPAddr, err)
		}
		s.tcpListener = ln
		s.wg.Add(1)
		go s.serveTCP(ln)
		s.logf(obslog.LevelInfo, "control surface listening on tcp %s", ln.Addr())
	}

	if s.cfg.UDPAddr != "" {
		conn, err := net.ListenPacket("udp", s.cfg.UDPAddr)
		if err != nil {
			if s.tcpListener != nil {
				s.tcpListener.Close()
			}
			return fmt.Errorf("control: udp listen %s: %w", s.cfg.UDPAddr, err)
		}
		s.udpConn = conn
		s.wg.Add(1)
		go s.serveUDP(conn)
		s.logf(obslog.LevelInfo, "control surface listening on udp %s", conn.LocalAddr())
	}

	return nil
}

// Close shuts every listener, in-flight connection goroutine, and the
// session sweeper down, then waits for them to exit.
func (s *Server) Close() error {
	close(s.done)
	if s.tcpListener != nil {
		s.tcpListener.Close()
	}
	if s.udpConn != nil {
		s.udpConn.Close()
	}
	s.wg.Wait()
	s.hub.close()
	return nil
}

func (s *Server) logf(level obslog.Level, format string, args ...interface{}) {
	if s.log == nil {
		return
	}
	s.log.Logf(obslog.ComponentControl, level, format, args...)
}
