// Package shell provides the interactive debug command shell over the
// core's debug interface.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/sarchlab/rvsim/core"
)

const helpText = `Commands:
  run                            - run until the next halt condition
  step [n]                       - execute n instructions (default 1)
  halt                           - request a halt
  reg <name> [value]             - read or write a register / CSR
  regs                           - print all integer registers
  read <addr> [count]            - dump memory bytes
  write <addr> <byte> [byte...]  - write memory bytes
  break <addr>                   - set a software breakpoint
  break clear <addr>|all         - clear breakpoints
  break list                     - list breakpoints
  disasm [addr [count]]          - disassemble instructions
  counters                       - print non-zero counters
  help                           - this text
  quit                           - leave the shell
`

// Command is a custom command hook: it returns true when it consumed the
// input line, writing any output to out.
type Command func(line string, c *core.Core, out io.Writer) bool

// Shell is the interactive command loop.
type Shell struct {
	core     *core.Core
	commands []Command
}

// New creates a shell over the core.
func New(c *core.Core) *Shell {
	return &Shell{core: c}
}

// AddCommand registers a custom command tried before the built-ins.
func (s *Shell) AddCommand(cmd Command) {
	s.commands = append(s.commands, cmd)
}

// Run reads and executes commands until EOF or quit. When in is the
// process stdin and a terminal, the shell runs it in raw mode through
// x/term for line editing and history.
func (s *Shell) Run(in io.Reader, out io.Writer) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		s.runTerminal(f, out)
		return
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "[rvsim] > ")
		if !scanner.Scan() {
			return
		}
		if s.dispatch(scanner.Text(), out) {
			return
		}
	}
}

// runTerminal drives the shell through a raw-mode terminal.
func (s *Shell) runTerminal(f *os.File, out io.Writer) {
	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		fmt.Fprintf(out, "failed to enter raw mode: %v\n", err)
		return
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	t := term.NewTerminal(struct {
		io.Reader
		io.Writer
	}{f, out}, "[rvsim] > ")

	for {
		line, err := t.ReadLine()
		if err != nil {
			return
		}
		if s.dispatch(line, t) {
			return
		}
	}
}

// dispatch executes one command line; it returns true on quit.
func (s *Shell) dispatch(line string, out io.Writer) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	for _, cmd := range s.commands {
		if cmd(line, s.core, out) {
			return false
		}
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		fmt.Fprint(out, helpText)
	case "run", "r":
		s.cmdRun(out)
	case "step", "s":
		s.cmdStep(fields[1:], out)
	case "halt":
		if err := s.core.Halt(); err != nil {
			fmt.Fprintf(out, "halt: %v\n", err)
		}
	case "reg":
		s.cmdReg(fields[1:], out)
	case "regs":
		s.cmdRegs(out)
	case "read":
		s.cmdRead(fields[1:], out)
	case "write":
		s.cmdWrite(fields[1:], out)
	case "break", "b":
		s.cmdBreak(fields[1:], out)
	case "disasm", "d":
		s.cmdDisasm(fields[1:], out)
	case "counters":
		_ = s.core.Counters().Export(out, "rvsim")
	default:
		fmt.Fprintf(out, "unknown command %q; try help\n", fields[0])
	}
	return false
}

func (s *Shell) cmdRun(out io.Writer) {
	if err := s.core.Run(); err != nil {
		fmt.Fprintf(out, "run: %v\n", err)
		return
	}
	info := s.core.Wait()
	s.reportHalt(info, out)
}

func (s *Shell) cmdStep(args []string, out io.Writer) {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			fmt.Fprintf(out, "step: bad count %q\n", args[0])
			return
		}
		n = v
	}
	count, err := s.core.Step(n)
	if err != nil {
		fmt.Fprintf(out, "step: %v\n", err)
		return
	}
	fmt.Fprintf(out, "stepped %d\n", count)
	s.printLocation(out)
}

func (s *Shell) reportHalt(info core.HaltInfo, out io.Writer) {
	switch info.Reason {
	case core.HaltBreakpoint:
		fmt.Fprintf(out, "halted: breakpoint at 0x%08x\n", info.Addr)
	case core.HaltFatalTrap:
		fmt.Fprintf(out, "halted: fatal trap (%s) at 0x%08x\n", info.Cause, info.Addr)
	default:
		fmt.Fprintf(out, "halted: %s\n", info.Reason)
	}
	s.printLocation(out)
}

func (s *Shell) printLocation(out io.Writer) {
	pc, err := s.core.ReadRegister("pc")
	if err != nil {
		return
	}
	disasm, err := s.core.GetDisassembly(uint32(pc))
	if err != nil {
		disasm = "?"
	}
	fmt.Fprintf(out, "pc = 0x%08x  %s\n", uint32(pc), disasm)
}

func (s *Shell) cmdReg(args []string, out io.Writer) {
	switch len(args) {
	case 1:
		value, err := s.core.ReadRegister(args[0])
		if err != nil {
			fmt.Fprintf(out, "reg: %v\n", err)
			return
		}
		fmt.Fprintf(out, "%s = 0x%08x\n", args[0], value)
	case 2:
		value, err := strconv.ParseUint(args[1], 0, 64)
		if err != nil {
			fmt.Fprintf(out, "reg: bad value %q\n", args[1])
			return
		}
		if err := s.core.WriteRegister(args[0], value); err != nil {
			fmt.Fprintf(out, "reg: %v\n", err)
		}
	default:
		fmt.Fprintln(out, "usage: reg <name> [value]")
	}
}

func (s *Shell) cmdRegs(out io.Writer) {
	for i := 0; i < 32; i++ {
		name := fmt.Sprintf("x%d", i)
		value, err := s.core.ReadRegister(name)
		if err != nil {
			fmt.Fprintf(out, "regs: %v\n", err)
			return
		}
		fmt.Fprintf(out, "x%02d = [%08x]\n", i, uint32(value))
	}
}

func parseAddr(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	return uint32(v), err
}

func (s *Shell) cmdRead(args []string, out io.Writer) {
	if len(args) < 1 {
		fmt.Fprintln(out, "usage: read <addr> [count]")
		return
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		fmt.Fprintf(out, "read: bad address %q\n", args[0])
		return
	}
	count := uint32(16)
	if len(args) > 1 {
		v, err := parseAddr(args[1])
		if err != nil || v == 0 {
			fmt.Fprintf(out, "read: bad count %q\n", args[1])
			return
		}
		count = v
	}
	data, err := s.core.ReadMemory(addr, count)
	if err != nil {
		fmt.Fprintf(out, "read: %v\n", err)
		return
	}
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(out, "0x%08x:", addr+uint32(i))
		for _, b := range data[i:end] {
			fmt.Fprintf(out, " %02x", b)
		}
		fmt.Fprintln(out)
	}
}

func (s *Shell) cmdWrite(args []string, out io.Writer) {
	if len(args) < 2 {
		fmt.Fprintln(out, "usage: write <addr> <byte> [byte...]")
		return
	}
	addr, err := parseAddr(args[0])
	if err != nil {
		fmt.Fprintf(out, "write: bad address %q\n", args[0])
		return
	}
	data := make([]byte, 0, len(args)-1)
	for _, arg := range args[1:] {
		v, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			fmt.Fprintf(out, "write: bad byte %q\n", arg)
			return
		}
		data = append(data, byte(v))
	}
	if err := s.core.WriteMemory(addr, data); err != nil {
		fmt.Fprintf(out, "write: %v\n", err)
	}
}

func (s *Shell) cmdBreak(args []string, out io.Writer) {
	if len(args) == 0 {
		fmt.Fprintln(out, "usage: break <addr> | break clear <addr>|all | break list")
		return
	}
	switch args[0] {
	case "list":
		for _, addr := range s.core.Breakpoints() {
			fmt.Fprintf(out, "0x%08x\n", addr)
		}
	case "clear":
		if len(args) < 2 {
			fmt.Fprintln(out, "usage: break clear <addr>|all")
			return
		}
		if args[1] == "all" {
			if err := s.core.ClearAllSwBreakpoints(); err != nil {
				fmt.Fprintf(out, "break: %v\n", err)
			}
			return
		}
		addr, err := parseAddr(args[1])
		if err != nil {
			fmt.Fprintf(out, "break: bad address %q\n", args[1])
			return
		}
		if err := s.core.ClearSwBreakpoint(addr); err != nil {
			fmt.Fprintf(out, "break: %v\n", err)
		}
	default:
		addr, err := parseAddr(args[0])
		if err != nil {
			fmt.Fprintf(out, "break: bad address %q\n", args[0])
			return
		}
		if err := s.core.SetSwBreakpoint(addr); err != nil {
			fmt.Fprintf(out, "break: %v\n", err)
		}
	}
}

func (s *Shell) cmdDisasm(args []string, out io.Writer) {
	pc, err := s.core.ReadRegister("pc")
	if err != nil {
		fmt.Fprintf(out, "disasm: %v\n", err)
		return
	}
	addr := uint32(pc)
	count := 8
	if len(args) > 0 {
		a, err := parseAddr(args[0])
		if err != nil {
			fmt.Fprintf(out, "disasm: bad address %q\n", args[0])
			return
		}
		addr = a
	}
	if len(args) > 1 {
		v, err := strconv.Atoi(args[1])
		if err != nil || v <= 0 {
			fmt.Fprintf(out, "disasm: bad count %q\n", args[1])
			return
		}
		count = v
	}
	for n := 0; n < count; n++ {
		text, err := s.core.GetDisassembly(addr)
		if err != nil {
			fmt.Fprintf(out, "disasm: %v\n", err)
			return
		}
		marker := " "
		if addr == uint32(pc) {
			marker = ">"
		}
		fmt.Fprintf(out, "%s 0x%08x  %s\n", marker, addr, text)
		data, err := s.core.ReadMemory(addr, 2)
		if err != nil {
			return
		}
		if data[0]&0x3 != 0x3 {
			addr += 2
		} else {
			addr += 4
		}
	}
}
