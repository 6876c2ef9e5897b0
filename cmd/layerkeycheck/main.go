// Command layerkeycheck compiles a config file and reports whether it is
// valid, without running the event loop. Exit codes mirror spec.md §6:
// 0 clean, 1 config error, 2 usage/runtime error.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"layerkeyd/internal/diag"
	"layerkeyd/internal/engine"
	"layerkeyd/internal/keycode"
	"layerkeyd/internal/layout"
	"layerkeyd/internal/platform"
	"layerkeyd/internal/projector"
	"layerkeyd/internal/sexpr"
)

func main() {
	platformName := flag.String("platform", "linux", "platform to compile deflocalkeys-<platform> blocks for")
	dump := flag.Bool("dump", false, "dump the compiled action graph")
	simulate := flag.String("simulate", "", "comma-separated key names to press then release in sequence against a simulated output device")
	width := flag.Int("width", 100, "terminal width for wrapped diagnostic notes")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage: layerkeycheck [flags] <config-path>")
		fmt.Println("  -platform <name>   platform to compile deflocalkeys-<platform> blocks for (default linux)")
		fmt.Println("  -dump              dump the compiled action graph")
		fmt.Println("  -simulate <keys>   press/release each key in turn against a simulated output device")
		fmt.Println("  -width <n>         wrap width for diagnostic notes")
		os.Exit(2)
	}
	path := flag.Arg(0)

	res, err := sexpr.Read(path, *platformName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "layerkeycheck: %v\n", err)
		os.Exit(1)
	}

	g, report := layout.Compile(res)
	if len(report.Diagnostics) > 0 {
		fmt.Fprint(os.Stderr, diag.Format(report.Diagnostics, *width))
	}
	if report.HasErrors() {
		os.Exit(1)
	}

	fmt.Printf("%s: OK — %d layer(s), %d virtual key(s), %d chord group(s)\n",
		path, len(g.Layers), len(g.VirtualKeyInv), len(g.ChordGroups))

	if *dump {
		spew.Dump(g)
	}

	if *simulate != "" {
		if err := runSimulation(g, *simulate); err != nil {
			fmt.Fprintf(os.Stderr, "layerkeycheck: simulate: %v\n", err)
			os.Exit(2)
		}
	}
}

func runSimulation(g *layout.Graph, keys string) error {
	names := splitNonEmpty(keys)
	out := platform.NewSimOut()
	e := engine.New(g)
	proj := projector.New(out, g, nil)

	sync := func() error {
		return proj.Sync(e.Keycodes(), e.DrainCustomEvents())
	}

	for _, name := range names {
		k, ok := keycode.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown key name %q", name)
		}
		col, ok := g.ColIndex[k]
		if !ok {
			return fmt.Errorf("key %q is not in defsrc", name)
		}
		coord := layout.Coord{Row: 0, Col: uint16(col)}

		e.Event(engine.Event{Kind: engine.EventPress, Coord: coord})
		if err := sync(); err != nil {
			return err
		}
		e.Event(engine.Event{Kind: engine.EventRelease, Coord: coord})
		if err := sync(); err != nil {
			return err
		}
	}

	for _, ev := range out.Events {
		fmt.Printf("  %+v\n", ev)
	}
	fmt.Printf("final held keycodes: %v\n", e.Keycodes())
	return nil
}

func splitNonEmpty(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
