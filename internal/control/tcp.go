package control

import (
	"bufio"
	"encoding/json"
	"net"

	"golang.org/x/net/netutil"

	"layerkeyd/internal/obslog"
)

// serveTCP accepts connections on ln, bounding concurrent clients with
// netutil.LimitListener the way no pack repo's own server code does but
// the x/net dependency it already ships exists precisely to serve (spec.md
// §5 leaves the bound unspecified; an unbounded accept loop on a
// keylogger-adjacent control port is an easy resource-exhaustion vector to
// close for free).
func (s *Server) serveTCP(ln net.Listener) {
	defer s.wg.Done()
	bounded := netutil.LimitListener(ln, s.cfg.MaxTCPConns)
	defer bounded.Close()

	for {
		conn, err := bounded.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logf(obslog.LevelWarn, "tcp accept: %v", err)
				return
			}
		}
		s.wg.Add(1)
		go s.handleTCPConn(conn)
	}
}

func (s *Server) handleTCPConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	notifications, unsubscribe := s.hub.register()
	defer unsubscribe()

	out := make(chan responseEnvelope, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		enc := json.NewEncoder(conn)
		for msg := range out {
			if err := enc.Encode(msg); err != nil {
				return
			}
		}
	}()
	defer func() {
		close(out)
		<-writerDone
	}()

	send := func(msg responseEnvelope) bool {
		select {
		case out <- msg:
			return true
		case <-s.done:
			return false
		}
	}

	if !send(responseEnvelope{Startup: &StartupMessage{Layers: s.backend.LayerNames()}}) {
		return
	}
	authenticated := !s.hub.sessions.authRequired()
	if !authenticated {
		if !send(responseEnvelope{AuthRequired: &struct{}{}}) {
			return
		}
	}

	lines := make(chan requestEnvelope)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var req requestEnvelope
			if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
				readErr <- err
				return
			}
			lines <- req
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if !send(n) {
				return
			}
		case req := <-lines:
			if !authenticated {
				if req.Authenticate == nil {
					send(responseEnvelope{AuthRequired: &struct{}{}})
					continue
				}
				sess, ok := s.hub.sessions.authenticate(req.Authenticate.Token, req.Authenticate.ClientName)
				if !ok {
					send(responseEnvelope{AuthResult: &AuthResultMessage{Success: false}})
					continue
				}
				authenticated = true
				send(responseEnvelope{AuthResult: &AuthResultMessage{
					Success:          true,
					SessionID:        sess.id,
					ExpiresInSeconds: int(sessionTimeout.Seconds()),
				}})
				continue
			}
			if req.Authenticate != nil {
				// already authenticated; re-authenticating is a no-op ack.
				send(responseEnvelope{AuthResult: &AuthResultMessage{Success: true}})
				continue
			}
			if !send(applyRequest(s.backend, req)) {
				return
			}
		case err := <-readErr:
			if err != nil {
				send(errorResponse(err))
			}
			return
		case <-s.done:
			return
		}
	}
}
