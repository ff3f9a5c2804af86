// Package main provides the rvsim command, the RV32 functional simulator
// driver: it loads the ELF image, builds the core, and either drives the
// interactive debug shell or runs to completion and exports counters.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/core"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/loader"
	"github.com/sarchlab/rvsim/mem"
	"github.com/sarchlab/rvsim/semihost"
	"github.com/sarchlab/rvsim/shell"
)

var (
	interactiveShort = flag.Bool("i", false, "Interactive mode")
	interactiveLong  = flag.Bool("interactive", false, "Interactive mode")
	outputDir        = flag.String("output_dir", "", "Output directory for the counter export")
	semihostHtif     = flag.Bool("semihost_htif", false, "HTIF semihosting")
	semihostArm      = flag.Bool("semihost_arm", false, "ARM semihosting")
	stackSize        = flag.Uint64("stack_size", 0, "Size of software stack (0: from executable, default 32 KiB)")
	stackEnd         = flag.Uint64("stack_end", 0, "Lowest valid address of software stack; top of stack is stack_end + stack_size")
	exitOnEcall      = flag.Bool("exit_on_ecall", false, "Exit on ecall - false by default")
	maxInsts         = flag.Uint64("max_insts", 0, "Stop after this many instructions (0: no limit)")
	verbose          = flag.Bool("v", false, "Verbose output")
)

// activeCore is the process-wide slot the SIGINT handler reads. The driver
// sets it before entering the run loop and clears it at teardown.
var activeCore atomic.Pointer[core.Core]

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}

	if *semihostHtif && *semihostArm {
		fmt.Fprintln(os.Stderr, "Only one semihosting mechanism can be specified")
		return 1
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: rvsim [options] <program.elf>")
		flag.PrintDefaults()
		return 1
	}

	path := flag.Arg(0)
	prog, err := loader.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error while loading %q: %v\n", path, err)
		return 1
	}

	memory := mem.NewMemory()
	prog.LoadInto(memory)

	state := emu.NewState(memory)
	c := core.NewCore(state,
		core.WithMaxInstructions(*maxInsts),
		core.WithLogger(logrus.StandardLogger()),
	)

	if *exitOnEcall {
		state.OnEcall(func(inst *insts.Instruction) bool {
			c.RequestHalt(core.HaltInfo{Reason: core.HaltProgramDone})
			return true
		})
	}

	state.SetPC(prog.EntryPoint)

	// Stack pointer initialization: flag beats symbol for both the stack
	// end and the stack size; the two resolve independently.
	var cfg loader.StackConfig
	if *stackEnd != 0 {
		end := uint32(*stackEnd)
		cfg.StackEnd = &end
	}
	if *stackSize != 0 {
		size := uint32(*stackSize)
		cfg.StackSize = &size
	}
	if sp, ok := prog.ResolveStack(cfg); ok {
		if err := state.WriteRegister("sp", uint64(sp)); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to sp: %v\n", err)
			return 1
		}
	}

	if *semihostHtif {
		addrs, ok := semihost.HtifAddressesFromProgram(prog)
		if !ok {
			logrus.Warn("htif semihosting requested but magic symbols are missing")
		} else {
			watcher := mem.NewWatcher(state.Memory())
			_, err := semihost.NewHtifSemiHost(watcher, memory, addrs, os.Stdout,
				func(code uint32) {
					c.RequestHalt(core.HaltInfo{Reason: core.HaltSemihost})
				})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error setting up htif semihosting: %v\n", err)
				return 1
			}
			state.SetMemory(watcher)
		}
	}

	if *semihostArm {
		semi := semihost.NewArmSemihost(state, os.Stdout, func() {
			c.RequestHalt(core.HaltInfo{Reason: core.HaltSemihost})
		})
		state.AddEbreakHandler(func(inst *insts.Instruction) bool {
			if semi.IsSemihostingCall(inst) {
				semi.OnEBreak(inst)
				return true
			}
			return false
		})
	}

	// SIGINT maps to a halt request against the running core.
	activeCore.Store(c)
	defer activeCore.Store(nil)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if running := activeCore.Load(); running != nil {
				_ = running.Halt()
			} else {
				os.Exit(1)
			}
		}
	}()

	secCounter, _ := c.Counters().Add("simulation_time_sec")

	exitCode := 0
	if *interactiveShort || *interactiveLong {
		sh := shell.New(c)
		sh.Run(os.Stdin, os.Stdout)
	} else {
		fmt.Fprintln(os.Stderr, "Starting simulation")
		t0 := time.Now()

		if err := c.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		info := c.Wait()

		sec := time.Since(t0).Seconds()
		if secCounter != nil {
			secCounter.SetFloat(sec)
		}
		fmt.Fprintf(os.Stderr, "Simulation done: %0.1f sec\n", sec)

		if info.Reason == core.HaltFatalTrap {
			fmt.Fprintf(os.Stderr, "Fatal trap: %s at 0x%08x\n", info.Cause, info.Addr)
			exitCode = 2
		}
	}

	if err := exportCounters(c, path); err != nil {
		logrus.WithError(err).Error("failed to export counters")
	}

	if err := c.ClearAllSwBreakpoints(); err != nil {
		logrus.WithError(err).Error("failed to clear breakpoints")
	}

	return exitCode
}

// exportCounters writes the textual component-data record to
// <basename>.counters in -output_dir (the current directory by default).
func exportCounters(c *core.Core, progPath string) error {
	base := filepath.Base(progPath)
	if dot := strings.IndexByte(base, '.'); dot > 0 {
		base = base[:dot]
	}
	dir := *outputDir
	if dir == "" {
		dir = "."
	}
	f, err := os.Create(filepath.Join(dir, base+".counters"))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return c.Counters().Export(f, "rvsim")
}
