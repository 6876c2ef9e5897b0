package control

import (
	"encoding/json"
	"net"

	"layerkeyd/internal/obslog"
)

// udpBufSize bounds a single request datagram; the protocol's JSON
// requests are all small, fixed-shape objects so this is generous rather
// than tight.
const udpBufSize = 4096

// serveUDP answers each inbound datagram independently: UDP has no
// connection to hang a session off of, so spec.md §6 has every
// post-Authenticate request echo the session id handed back by
// AuthResult, checked fresh against the shared sessionStore per packet.
// Unlike TCP, a UDP client never receives async LayerChange/KeyEvent
// pushes — there is no standing socket to deliver them on, only
// request/response.
func (s *Server) serveUDP(conn net.PacketConn) {
	defer s.wg.Done()
	defer conn.Close()

	buf := make([]byte, udpBufSize)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logf(obslog.LevelWarn, "udp read: %v", err)
				return
			}
		}

		var req requestEnvelope
		if err := json.Unmarshal(buf[:n], &req); err != nil {
			s.writeUDP(conn, addr, errorResponse(err))
			continue
		}
		s.handleUDPRequest(conn, addr, req)
	}
}

func (s *Server) handleUDPRequest(conn net.PacketConn, addr net.Addr, req requestEnvelope) {
	if req.Authenticate != nil {
		sess, ok := s.hub.sessions.authenticate(req.Authenticate.Token, req.Authenticate.ClientName)
		if !ok {
			s.writeUDP(conn, addr, responseEnvelope{AuthResult: &AuthResultMessage{Success: false}})
			return
		}
		s.writeUDP(conn, addr, responseEnvelope{AuthResult: &AuthResultMessage{
			Success:          true,
			SessionID:        sess.id,
			ExpiresInSeconds: int(sessionTimeout.Seconds()),
		}})
		return
	}

	if s.hub.sessions.authRequired() {
		if req.SessionID == "" || !s.hub.sessions.touch(req.SessionID) {
			s.writeUDP(conn, addr, responseEnvelope{SessionExpired: &struct{}{}})
			return
		}
	}

	s.writeUDP(conn, addr, applyRequest(s.backend, req))
}

func (s *Server) writeUDP(conn net.PacketConn, addr net.Addr, msg responseEnvelope) {
	line, err := marshalLine(msg)
	if err != nil {
		return
	}
	if _, err := conn.WriteTo(line, addr); err != nil {
		s.logf(obslog.LevelWarn, "udp write to %s: %v", addr, err)
	}
}
