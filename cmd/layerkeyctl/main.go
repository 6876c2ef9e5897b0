// Command layerkeyctl is a CLI client for layerkeyd's control surface
// (spec.md §6's line-delimited JSON protocol over TCP/UDP).
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type request struct {
	SessionID string `json:"session_id,omitempty"`

	ChangeLayer             *changeLayerReq    `json:"ChangeLayer,omitempty"`
	ActOnFakeKey            *actOnFakeKeyReq   `json:"ActOnFakeKey,omitempty"`
	RequestLayerNames       *struct{}          `json:"RequestLayerNames,omitempty"`
	RequestCurrentLayerName *struct{}          `json:"RequestCurrentLayerName,omitempty"`
	RequestCurrentLayerInfo *struct{}          `json:"RequestCurrentLayerInfo,omitempty"`
	Reload                  *struct{}          `json:"Reload,omitempty"`
	ReloadNext              *struct{}          `json:"ReloadNext,omitempty"`
	ReloadPrev              *struct{}          `json:"ReloadPrev,omitempty"`
	ReloadNum               *reloadNumReq      `json:"ReloadNum,omitempty"`
	ReloadFile              *reloadFileReq     `json:"ReloadFile,omitempty"`
	SetMouse                *setMouseReq       `json:"SetMouse,omitempty"`
	Authenticate            *authenticateReq   `json:"Authenticate,omitempty"`
}

type changeLayerReq struct {
	New string `json:"new"`
}

type actOnFakeKeyReq struct {
	Name   string `json:"name"`
	Action string `json:"action"`
}

type reloadNumReq struct {
	N int `json:"n"`
}

type reloadFileReq struct {
	Path string `json:"path"`
}

type setMouseReq struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type authenticateReq struct {
	Token      string `json:"token"`
	ClientName string `json:"client_name"`
}

// response mirrors only the fields layerkeyctl prints; unknown server
// messages decode as all-nil and are rendered as raw JSON.
type response struct {
	Startup          *struct{ Layers []string } `json:"Startup,omitempty"`
	LayerChange      *struct{ New string }      `json:"LayerChange,omitempty"`
	LayerNames       *struct{ Names []string }  `json:"LayerNames,omitempty"`
	CurrentLayerName *struct{ Name string }     `json:"CurrentLayerName,omitempty"`
	CurrentLayerInfo *struct {
		Name  string
		Index int
	} `json:"CurrentLayerInfo,omitempty"`
	AuthRequired *struct{} `json:"AuthRequired,omitempty"`
	AuthResult   *struct {
		Success          bool
		SessionID        string `json:"session_id"`
		ExpiresInSeconds int    `json:"expires_in_seconds"`
	} `json:"AuthResult,omitempty"`
	SessionExpired *struct{}          `json:"SessionExpired,omitempty"`
	Error          *struct{ Msg string } `json:"Error,omitempty"`
}

func main() {
	proto := flag.String("proto", "tcp", "transport: tcp or udp")
	addr := flag.String("addr", "127.0.0.1:5829", "layerkeyd control surface address")
	token := flag.String("token", "", "auth token, if the control surface requires one")
	timeout := flag.Duration("timeout", 5*time.Second, "read timeout per response")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	req, err := buildRequest(args[0], args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "layerkeyctl: %v\n", err)
		printUsage()
		os.Exit(2)
	}

	switch *proto {
	case "tcp":
		err = runTCP(*addr, *token, req, *timeout)
	case "udp":
		err = runUDP(*addr, *token, req, *timeout)
	default:
		err = fmt.Errorf("unknown -proto %q (want tcp or udp)", *proto)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "layerkeyctl: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: layerkeyctl [-proto tcp|udp] [-addr host:port] [-token tok] <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  change-layer <name>")
	fmt.Println("  fake-key <name> <press|release|tap|toggle>")
	fmt.Println("  layer-names")
	fmt.Println("  current-layer")
	fmt.Println("  current-layer-info")
	fmt.Println("  reload")
	fmt.Println("  reload-next")
	fmt.Println("  reload-prev")
	fmt.Println("  reload-num <n>")
	fmt.Println("  reload-file <path>")
	fmt.Println("  set-mouse <x> <y>")
}

func buildRequest(cmd string, args []string) (request, error) {
	switch cmd {
	case "change-layer":
		if len(args) != 1 {
			return request{}, fmt.Errorf("change-layer requires <name>")
		}
		return request{ChangeLayer: &changeLayerReq{New: args[0]}}, nil
	case "fake-key":
		if len(args) != 2 {
			return request{}, fmt.Errorf("fake-key requires <name> <press|release|tap|toggle>")
		}
		action, err := normalizeFakeKeyAction(args[1])
		if err != nil {
			return request{}, err
		}
		return request{ActOnFakeKey: &actOnFakeKeyReq{Name: args[0], Action: action}}, nil
	case "layer-names":
		return request{RequestLayerNames: &struct{}{}}, nil
	case "current-layer":
		return request{RequestCurrentLayerName: &struct{}{}}, nil
	case "current-layer-info":
		return request{RequestCurrentLayerInfo: &struct{}{}}, nil
	case "reload":
		return request{Reload: &struct{}{}}, nil
	case "reload-next":
		return request{ReloadNext: &struct{}{}}, nil
	case "reload-prev":
		return request{ReloadPrev: &struct{}{}}, nil
	case "reload-num":
		if len(args) != 1 {
			return request{}, fmt.Errorf("reload-num requires <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return request{}, fmt.Errorf("reload-num: %w", err)
		}
		return request{ReloadNum: &reloadNumReq{N: n}}, nil
	case "reload-file":
		if len(args) != 1 {
			return request{}, fmt.Errorf("reload-file requires <path>")
		}
		return request{ReloadFile: &reloadFileReq{Path: args[0]}}, nil
	case "set-mouse":
		if len(args) != 2 {
			return request{}, fmt.Errorf("set-mouse requires <x> <y>")
		}
		x, err := strconv.Atoi(args[0])
		if err != nil {
			return request{}, fmt.Errorf("set-mouse x: %w", err)
		}
		y, err := strconv.Atoi(args[1])
		if err != nil {
			return request{}, fmt.Errorf("set-mouse y: %w", err)
		}
		return request{SetMouse: &setMouseReq{X: x, Y: y}}, nil
	default:
		return request{}, fmt.Errorf("unknown command %q", cmd)
	}
}

func normalizeFakeKeyAction(s string) (string, error) {
	switch strings.ToLower(s) {
	case "press":
		return "Press", nil
	case "release":
		return "Release", nil
	case "tap":
		return "Tap", nil
	case "toggle":
		return "Toggle", nil
	default:
		return "", fmt.Errorf("unknown fake key action %q (want press, release, tap, or toggle)", s)
	}
}

func runTCP(addr, token string, req request, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	sc := bufio.NewScanner(conn)
	conn.SetReadDeadline(time.Now().Add(timeout))
	startup, ok := readLine(sc)
	if !ok {
		return fmt.Errorf("no startup message from server")
	}
	printResponse(startup)

	conn.SetReadDeadline(time.Now().Add(timeout))
	next, ok := readLine(sc)
	if ok && next.AuthRequired != nil {
		if token == "" {
			return fmt.Errorf("server requires authentication; pass -token")
		}
		if err := writeRequest(conn, request{Authenticate: &authenticateReq{Token: token, ClientName: "layerkeyctl"}}); err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(timeout))
		authResp, ok := readLine(sc)
		if !ok {
			return fmt.Errorf("no response to Authenticate")
		}
		if authResp.AuthResult == nil || !authResp.AuthResult.Success {
			return fmt.Errorf("authentication failed")
		}
	}

	if err := writeRequest(conn, req); err != nil {
		return err
	}
	conn.SetReadDeadline(time.Now().Add(timeout))
	resp, ok := readLine(sc)
	if !ok {
		return fmt.Errorf("no response: %v", sc.Err())
	}
	printResponse(resp)
	return nil
}

func runUDP(addr, token string, req request, timeout time.Duration) error {
	conn, err := net.DialTimeout("udp", addr, timeout)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	sessionID := ""
	if token != "" {
		if err := writeRequest(conn, request{Authenticate: &authenticateReq{Token: token, ClientName: "layerkeyctl"}}); err != nil {
			return err
		}
		authResp, err := readUDPResponse(conn, timeout)
		if err != nil {
			return err
		}
		if authResp.AuthResult == nil || !authResp.AuthResult.Success {
			return fmt.Errorf("authentication failed")
		}
		sessionID = authResp.AuthResult.SessionID
	}

	req.SessionID = sessionID
	if err := writeRequest(conn, req); err != nil {
		return err
	}
	resp, err := readUDPResponse(conn, timeout)
	if err != nil {
		return err
	}
	printResponse(resp)
	return nil
}

func writeRequest(conn net.Conn, req request) error {
	line, err := json.Marshal(req)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	_, err = conn.Write(line)
	return err
}

func readLine(sc *bufio.Scanner) (response, bool) {
	if !sc.Scan() {
		return response{}, false
	}
	var resp response
	if err := json.Unmarshal(sc.Bytes(), &resp); err != nil {
		return response{}, false
	}
	return resp, true
}

func readUDPResponse(conn net.Conn, timeout time.Duration) (response, error) {
	conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		return response{}, fmt.Errorf("read: %w", err)
	}
	var resp response
	if err := json.Unmarshal(buf[:n], &resp); err != nil {
		return response{}, fmt.Errorf("decode: %w", err)
	}
	return resp, nil
}

func printResponse(r response) {
	switch {
	case r.Startup != nil:
		fmt.Printf("layers: %s\n", strings.Join(r.Startup.Layers, ", "))
	case r.LayerChange != nil:
		fmt.Printf("layer changed: %s\n", r.LayerChange.New)
	case r.LayerNames != nil:
		fmt.Println(strings.Join(r.LayerNames.Names, "\n"))
	case r.CurrentLayerName != nil:
		fmt.Println(r.CurrentLayerName.Name)
	case r.CurrentLayerInfo != nil:
		fmt.Printf("%s (index %d)\n", r.CurrentLayerInfo.Name, r.CurrentLayerInfo.Index)
	case r.AuthResult != nil:
		fmt.Printf("authenticated: %v\n", r.AuthResult.Success)
	case r.SessionExpired != nil:
		fmt.Println("session expired")
	case r.Error != nil:
		fmt.Fprintf(os.Stderr, "error: %s\n", r.Error.Msg)
	default:
		fmt.Println("ok")
	}
}
