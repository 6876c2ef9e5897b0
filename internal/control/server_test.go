package control

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, cfg Config) (*Server, *fakeBackend) {
	t.Helper()
	b := newFakeBackend()
	s := New(cfg, b, nil)
	require.NoError(t, s.ListenAndServe())
	t.Cleanup(func() { s.Close() })
	return s, b
}

func dialTCP(t *testing.T, s *Server) (net.Conn, *bufio.Scanner) {
	t.Helper()
	conn, err := net.Dial("tcp", s.tcpListener.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn, bufio.NewScanner(conn)
}

func readResponse(t *testing.T, sc *bufio.Scanner) responseEnvelope {
	t.Helper()
	require.True(t, sc.Scan(), "expected a response line: %v", sc.Err())
	var resp responseEnvelope
	require.NoError(t, json.Unmarshal(sc.Bytes(), &resp))
	return resp
}

func writeRequest(t *testing.T, conn net.Conn, req requestEnvelope) {
	t.Helper()
	line, err := marshalLine(req)
	require.NoError(t, err)
	_, err = conn.Write(line)
	require.NoError(t, err)
}

func TestServerTCPSendsStartupThenHandlesChangeLayer(t *testing.T) {
	s, _ := startTestServer(t, Config{TCPAddr: "127.0.0.1:0"})
	conn, sc := dialTCP(t, s)

	startup := readResponse(t, sc)
	require.NotNil(t, startup.Startup)
	require.Equal(t, []string{"base", "nav"}, startup.Startup.Layers)

	writeRequest(t, conn, requestEnvelope{ChangeLayer: &ChangeLayerRequest{New: "nav"}})
	resp := readResponse(t, sc)
	require.NotNil(t, resp.LayerChange)
	require.Equal(t, "nav", resp.LayerChange.New)
}

func TestServerTCPRequiresAuthBeforeCommands(t *testing.T) {
	s, _ := startTestServer(t, Config{TCPAddr: "127.0.0.1:0", AuthToken: "secret"})
	conn, sc := dialTCP(t, s)

	readResponse(t, sc) // Startup
	authReq := readResponse(t, sc)
	require.NotNil(t, authReq.AuthRequired)

	writeRequest(t, conn, requestEnvelope{RequestLayerNames: &struct{}{}})
	denied := readResponse(t, sc)
	require.NotNil(t, denied.AuthRequired)

	writeRequest(t, conn, requestEnvelope{Authenticate: &AuthenticateRequest{Token: "secret", ClientName: "test"}})
	authResult := readResponse(t, sc)
	require.NotNil(t, authResult.AuthResult)
	require.True(t, authResult.AuthResult.Success)
	require.NotEmpty(t, authResult.AuthResult.SessionID)

	writeRequest(t, conn, requestEnvelope{RequestLayerNames: &struct{}{}})
	resp := readResponse(t, sc)
	require.Equal(t, []string{"base", "nav"}, resp.LayerNames.Names)
}

func TestServerTCPReceivesLayerChangeNotification(t *testing.T) {
	s, b := startTestServer(t, Config{TCPAddr: "127.0.0.1:0"})
	_, sc := dialTCP(t, s)

	readResponse(t, sc) // Startup

	b.subCh <- Notification{Kind: NotifyLayerChange, LayerName: "nav"}
	resp := readResponse(t, sc)
	require.NotNil(t, resp.LayerChange)
	require.Equal(t, "nav", resp.LayerChange.New)
}

func TestServerUDPRoundTripsAuthenticatedRequest(t *testing.T) {
	s, _ := startTestServer(t, Config{UDPAddr: "127.0.0.1:0", AuthToken: "secret"})

	conn, err := net.Dial("udp", s.udpConn.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	authLine, err := marshalLine(requestEnvelope{Authenticate: &AuthenticateRequest{Token: "secret", ClientName: "t"}})
	require.NoError(t, err)
	_, err = conn.Write(authLine)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	var authResp responseEnvelope
	require.NoError(t, json.Unmarshal(buf[:n], &authResp))
	require.True(t, authResp.AuthResult.Success)
	sessID := authResp.AuthResult.SessionID

	reqLine, err := marshalLine(requestEnvelope{SessionID: sessID, RequestLayerNames: &struct{}{}})
	require.NoError(t, err)
	_, err = conn.Write(reqLine)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err = conn.Read(buf)
	require.NoError(t, err)
	var resp responseEnvelope
	require.NoError(t, json.Unmarshal(buf[:n], &resp))
	require.Equal(t, []string{"base", "nav"}, resp.LayerNames.Names)
}

func TestServerUDPRejectsMissingSession(t *testing.T) {
	s, _ := startTestServer(t, Config{UDPAddr: "127.0.0.1:0", AuthToken: "secret"})

	conn, err := net.Dial("udp", s.udpConn.LocalAddr().String())
	require.NoError(t, err)
	defer conn.Close()

	reqLine, err := marshalLine(requestEnvelope{RequestLayerNames: &struct{}{}})
	require.NoError(t, err)
	_, err = conn.Write(reqLine)
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	var resp responseEnvelope
	require.NoError(t, json.Unmarshal(buf[:n], &resp))
	require.NotNil(t, resp.SessionExpired)
}
