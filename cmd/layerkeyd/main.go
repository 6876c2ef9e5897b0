// Command layerkeyd is the remapper daemon: it compiles a config file into
// an action graph, opens the platform input/output boundary, and runs the
// event loop until signalled to stop.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"layerkeyd/internal/control"
	"layerkeyd/internal/layout"
	"layerkeyd/internal/loop"
	"layerkeyd/internal/obslog"
	"layerkeyd/internal/platform"
	"layerkeyd/internal/projector"
	"layerkeyd/internal/sexpr"
)

func main() {
	cfgList := flag.String("cfg", "", "comma-separated list of config file paths (first is active; ReloadNext/ReloadPrev cycle the rest)")
	watch := flag.Bool("watch", false, "watch the active config file and reload on changes")
	devices := flag.String("include-devices", "", "comma-separated substrings: only capture input devices whose name contains one of these (default: all)")
	excludeDevices := flag.String("exclude-devices", "", "comma-separated substrings: never capture input devices whose name contains one of these")
	tcpAddr := flag.String("tcp", "", "control surface TCP listen address, e.g. 127.0.0.1:5829 (disabled if empty)")
	udpAddr := flag.String("udp", "", "control surface UDP listen address, e.g. 127.0.0.1:5829 (disabled if empty)")
	authToken := flag.String("control-token", "", "control surface auth token (auth disabled if empty)")
	enableLogging := flag.Bool("log", false, "enable logging to stderr-visible ring buffer (disabled by default)")
	flag.Parse()

	if *cfgList == "" {
		fmt.Println("Usage: layerkeyd -cfg <path[,path...]> [flags]")
		fmt.Println("  -cfg <paths>          comma-separated config file paths (required)")
		fmt.Println("  -watch                watch the active config file and reload on changes")
		fmt.Println("  -include-devices <s>  only capture devices whose name contains one of these")
		fmt.Println("  -exclude-devices <s>  never capture devices whose name contains one of these")
		fmt.Println("  -tcp <addr>           control surface TCP listen address")
		fmt.Println("  -udp <addr>           control surface UDP listen address")
		fmt.Println("  -control-token <tok>  control surface auth token")
		fmt.Println("  -log                  enable logging")
		os.Exit(1)
	}

	configPaths := splitNonEmpty(*cfgList)

	var log *obslog.Logger
	if *enableLogging {
		log = obslog.New(10000)
		for _, c := range []obslog.Component{
			obslog.ComponentReader, obslog.ComponentCompiler, obslog.ComponentEngine,
			obslog.ComponentProjector, obslog.ComponentLoop, obslog.ComponentControl,
		} {
			log.SetComponentEnabled(c, true)
		}
		log.SetMinLevel(obslog.LevelDebug)
	}

	platformName := platformTarget()

	res, err := sexpr.Read(configPaths[0], platformName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
		os.Exit(1)
	}
	g, report := layout.Compile(res)
	if report.HasErrors() {
		fmt.Fprintln(os.Stderr, report.Error())
		os.Exit(1)
	}

	out, err := platform.NewOsOut()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening output device: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	in, err := newInputProvider(splitNonEmpty(*devices), splitNonEmpty(*excludeDevices))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening input device(s): %v\n", err)
		os.Exit(1)
	}
	defer in.Close()

	proj := projector.New(out, g, log)
	l := loop.New(g, out, in, proj, log, platformName, configPaths)

	if *watch {
		l.WatchConfig(configPaths[0])
	}

	var ctl *control.Server
	if *tcpAddr != "" || *udpAddr != "" {
		ctl = control.New(control.Config{
			TCPAddr:   *tcpAddr,
			UDPAddr:   *udpAddr,
			AuthToken: *authToken,
		}, l, log)
		if err := ctl.ListenAndServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting control surface: %v\n", err)
			os.Exit(1)
		}
		defer ctl.Close()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		l.Stop()
	}()

	fmt.Printf("layerkeyd: %d layer(s) loaded from %s\n", len(g.Layers), configPaths[0])
	if err := l.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "layerkeyd: %v\n", err)
		os.Exit(2)
	}
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
