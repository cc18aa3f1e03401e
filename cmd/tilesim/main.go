// Command tilesim is a thin driver exercising the Driver API (system
// package) end-to-end: load a flat binary image into one tile's RAM,
// schedule its entry point, and run it to completion. A flat image has no
// symbol table, so no host syscalls (§6.2) are serviced for it. It is not
// a feature surface — ELF/XE
// image parsing is out of scope (§1/§6.3), so this binary only accepts a
// raw, already-linked flat image at a fixed load address, the same
// assumption the BootSequencer's ImageLoader contract makes explicit.
//
// Grounded on _examples/jmchacon-6502/vcs/vcs_main.go: a flag-driven
// main that wires a config struct, then drives a single run loop to
// completion, reporting the terminal status on exit.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tileforge/tilesim/boot"
	"github.com/tileforge/tilesim/clock"
	"github.com/tileforge/tilesim/core"
	"github.com/tileforge/tilesim/hostsyscall"
	"github.com/tileforge/tilesim/scheduler"
	"github.com/tileforge/tilesim/system"
	"github.com/tileforge/tilesim/trace"
)

var (
	image     = flag.String("image", "", "Path to a flat binary image to load into tile RAM")
	ramBase   = flag.Uint("ram_base", 0, "Physical address tile RAM starts at")
	ramSize   = flag.Uint("ram_size", 1<<20, "Size in bytes of tile RAM")
	entry     = flag.Uint("entry", 0, "Entry address; defaults to ram_base")
	maxCycles = flag.Uint64("max_cycles", 0, "Stop after this many processor cycles (0: unbounded)")
	trace_    = flag.Bool("trace", false, "Emit a per-instruction trace to stderr")
)

// flatImage is the minimal boot.ImageLoader a raw, pre-linked binary
// blob satisfies: one loadable segment at ramBase, an explicit entry,
// and no symbol table (so a flat image never arms the syscall/exception
// breakpoints a real linked image with _DoSyscall/_DoException would).
type flatImage struct {
	data      []byte
	loadAddr  uint32
	entryAddr uint32
}

func (f *flatImage) LoadableSegments() []boot.Segment {
	return []boot.Segment{{PAddr: f.loadAddr, Data: f.data}}
}
func (f *flatImage) Entry() (uint32, bool) { return f.entryAddr, true }
func (f *flatImage) Symbol(string) (uint32, bool) { return 0, false }

func main() {
	flag.Parse()
	if *image == "" {
		log.Fatal("tilesim: -image is required")
	}
	data, err := os.ReadFile(*image)
	if err != nil {
		log.Fatalf("tilesim: reading %s: %v", *image, err)
	}

	entryAddr := uint32(*entry)
	if entryAddr == 0 {
		entryAddr = uint32(*ramBase)
	}

	sys := system.New(system.Config{
		Nodes: []system.NodeConfig{{
			ID:         0,
			NumberBits: 8,
			Cores: []system.CoreConfig{{
				Name:    "tile0",
				RAMBase: uint32(*ramBase),
				RAMSize: uint32(*ramSize),
			}},
		}},
	})
	if *trace_ {
		sys.SetTracer(trace.New(os.Stderr, false))
	}

	fs := &hostsyscall.FileSystem{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	sched := sys.Scheduler()
	if *maxCycles > 0 {
		to := scheduler.NewTimeout(sched.Time() + clock.Ticks(*maxCycles)*clock.CyclesPerTick)
		sched.Push(to, to.At())
	}
	seq := boot.New(sched, fs)
	img := &flatImage{data: data, loadAddr: uint32(*ramBase), entryAddr: entryAddr}
	seq.Add(
		&boot.ElfStep{Core: firstCore(sys), Image: img, LoadImage: true, UseElfEntry: true},
		&boot.RunStep{NumDoneSyscalls: 1},
	)

	res, err := seq.Run()
	if err != nil {
		log.Fatalf("tilesim: %v", err)
	}
	fmt.Printf("tilesim: stopped: %s at time=%d status=%d\n", res.Reason, res.Time, res.Status)
	if res.Reason == scheduler.Exit {
		os.Exit(res.Status)
	}
}

func firstCore(sys *system.System) *core.Core {
	c, ok := sys.LookupCore(0, 0)
	if !ok {
		log.Fatal("tilesim: no tile 0 core 0")
	}
	return c
}
