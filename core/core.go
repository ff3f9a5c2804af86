package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
)

// RunStatus is the core state machine state.
type RunStatus int32

// Core states. A fresh core is Idle; the first Run or Step leaves Idle for
// good: afterwards the core alternates between Running and Halted.
const (
	StatusIdle RunStatus = iota
	StatusRunning
	StatusHalted
	StatusSingleStep
)

// HaltReason says why the core stopped.
type HaltReason int

// Halt reasons.
const (
	HaltNone HaltReason = iota
	HaltUserRequest
	HaltBreakpoint
	HaltProgramDone
	HaltSemihost
	HaltFatalTrap
	HaltStepComplete
	HaltInstructionLimit
)

// String names the halt reason.
func (r HaltReason) String() string {
	switch r {
	case HaltNone:
		return "none"
	case HaltUserRequest:
		return "user halt"
	case HaltBreakpoint:
		return "breakpoint"
	case HaltProgramDone:
		return "program done"
	case HaltSemihost:
		return "semihost halt"
	case HaltFatalTrap:
		return "fatal trap"
	case HaltStepComplete:
		return "step complete"
	case HaltInstructionLimit:
		return "instruction limit"
	}
	return fmt.Sprintf("halt reason %d", int(r))
}

// HaltInfo is the tagged halt record: the reason plus the breakpoint
// address or trap cause when the reason carries one.
type HaltInfo struct {
	Reason HaltReason
	Addr   uint32
	Cause  emu.TrapCause
}

// Debug interface errors.
var (
	ErrNotHalted   = errors.New("core must be halted")
	ErrRunning     = errors.New("core is already running")
	ErrNotRunning  = errors.New("core is not running")
	ErrMemoryRange = errors.New("memory access out of range")
	// ErrRegisterNotFound mirrors the state-layer error for callers that
	// only import core.
	ErrRegisterNotFound = emu.ErrRegisterNotFound
)

// RetireSink observes every retired instruction.
type RetireSink func(*insts.Instruction)

// Core is the simulator top: it owns the fetch-decode-execute-retire loop,
// the decode cache, breakpoints, counters, and the debug surface. State and
// Decoder hold no reference back to the Core; the Core wires itself into
// them with hooks at construction.
type Core struct {
	state   *emu.State
	decoder *insts.Decoder
	cache   *decodeCache
	bps     *breakpointManager

	mu       sync.Mutex
	status   RunStatus
	runDone  chan struct{}
	haltReq  atomic.Bool
	haltInfo HaltInfo

	// needStepOver is set when the last halt parked the PC on an armed
	// breakpoint; the next Run/Step first executes the original
	// instruction with the stub temporarily removed.
	needStepOver bool

	counters     *CounterSet
	instCounter  *Counter
	cycleCounter *Counter
	opCounters   [insts.NumOps]*Counter
	retireSinks  []RetireSink

	maxInstructions uint64

	log *logrus.Entry
}

// Option configures a Core.
type Option func(*Core)

// WithMaxInstructions bounds the number of instructions a Run may retire;
// 0 means no limit.
func WithMaxInstructions(max uint64) Option {
	return func(c *Core) { c.maxInstructions = max }
}

// WithLogger routes the core's diagnostics to log.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Core) { c.log = log.WithField("component", "core") }
}

// NewCore builds the core over the architectural state, wiring the decode
// cache invalidation, the breakpoint ebreak hook, the counters, and the
// counter CSR views.
func NewCore(state *emu.State, opts ...Option) *Core {
	c := &Core{
		state:    state,
		decoder:  insts.NewDecoder(),
		cache:    newDecodeCache(),
		counters: NewCounterSet(),
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.bps = newBreakpointManager(state.RawMemory(), c.decoder)

	c.instCounter, _ = c.counters.Add("num_instructions")
	c.cycleCounter, _ = c.counters.Add("num_cycles")
	for op := insts.Op(0); op < insts.NumOps; op++ {
		c.opCounters[op], _ = c.counters.Add("num_" + op.Mnemonic())
	}

	// Any store into cached instruction bytes drops the cache entry.
	state.RawMemory().AddWriteObserver(c.cache.invalidate)

	// Breakpoint stubs report through the ebreak hook; unclaimed ebreaks
	// fall through to other handlers or trap.
	state.AddEbreakHandler(func(inst *insts.Instruction) bool {
		if !c.bps.has(inst.Addr) {
			return false
		}
		c.RequestHalt(HaltInfo{Reason: HaltBreakpoint, Addr: inst.Addr})
		return true
	})

	state.SetCounterSources(
		func() uint64 { return c.instCounter.Value() },
		func() uint64 { return c.cycleCounter.Value() },
	)

	return c
}

// State returns the architectural state.
func (c *Core) State() *emu.State { return c.state }

// Counters returns the counter registry.
func (c *Core) Counters() *CounterSet { return c.counters }

// InstructionCount returns the number of retired instructions.
func (c *Core) InstructionCount() uint64 { return c.instCounter.Value() }

// AddRetireSink registers a sink offered every retired instruction.
func (c *Core) AddRetireSink(sink RetireSink) {
	c.retireSinks = append(c.retireSinks, sink)
}

// Status returns the current run status.
func (c *Core) Status() RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastHaltReason returns the halt record of the most recent halt.
func (c *Core) LastHaltReason() HaltInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.haltInfo
}

// RequestHalt asks the run loop to stop at the next instruction boundary
// with the given halt record. Safe from any goroutine and from inside
// semantic handlers.
func (c *Core) RequestHalt(info HaltInfo) {
	c.mu.Lock()
	c.haltInfo = info
	if info.Reason == HaltBreakpoint {
		c.needStepOver = true
	}
	c.mu.Unlock()
	c.haltReq.Store(true)
}

// Halt requests a transition to Halted. Legal while Running; a no-op when
// already Halted.
func (c *Core) Halt() error {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()
	switch status {
	case StatusHalted, StatusIdle:
		return nil
	case StatusRunning, StatusSingleStep:
		c.RequestHalt(HaltInfo{Reason: HaltUserRequest})
		return nil
	}
	return ErrNotRunning
}

// Run transitions to Running and returns immediately; the loop runs on its
// own goroutine until a halt condition. Use Wait to block for the result.
func (c *Core) Run() error {
	c.mu.Lock()
	if c.status == StatusRunning || c.status == StatusSingleStep {
		c.mu.Unlock()
		return ErrRunning
	}
	stepOver := c.needStepOver
	c.needStepOver = false
	c.status = StatusRunning
	c.haltInfo = HaltInfo{}
	c.haltReq.Store(false)
	done := make(chan struct{})
	c.runDone = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		if stepOver {
			c.stepPastBreakpoint()
		}
		c.loop(0)
	}()
	return nil
}

// Wait blocks until the core is Halted and returns the halt record.
func (c *Core) Wait() HaltInfo {
	c.mu.Lock()
	done := c.runDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
	return c.LastHaltReason()
}

// Step advances exactly n retired instructions (fewer if another halt
// condition hits first), then halts. It runs on the caller's goroutine.
func (c *Core) Step(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("step count must be > 0")
	}
	c.mu.Lock()
	if c.status == StatusRunning || c.status == StatusSingleStep {
		c.mu.Unlock()
		return 0, ErrRunning
	}
	stepOver := c.needStepOver
	c.needStepOver = false
	c.status = StatusSingleStep
	c.haltInfo = HaltInfo{}
	c.haltReq.Store(false)
	c.mu.Unlock()

	count := 0
	if stepOver {
		c.stepPastBreakpoint()
		count++
	}
	if count < n {
		count += c.loop(n - count)
	} else {
		c.finishRun(HaltInfo{Reason: HaltStepComplete})
	}
	return count, nil
}

// decode returns the bound instruction at pc, consulting the cache first.
func (c *Core) decode(pc uint32) boundInst {
	if e, ok := c.cache.get(pc); ok {
		return e
	}
	var raw [4]byte
	c.state.FetchMemory(pc, raw[:])
	word := uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24
	inst := c.decoder.Decode(pc, word)
	e := boundInst{inst: inst, fn: emu.SemanticOf(inst.Op)}
	c.cache.put(pc, e)
	return e
}

// loop is the main fetch-decode-execute-retire loop. budget bounds the
// number of retired instructions when positive. Returns the retire count.
func (c *Core) loop(budget int) int {
	count := 0

	// A halt requested while stepping past a breakpoint (semihost exit,
	// program-done ecall) is honored before executing anything else.
	if c.haltReq.CompareAndSwap(true, false) {
		c.mu.Lock()
		info := c.haltInfo
		c.mu.Unlock()
		if info.Reason == HaltNone {
			info.Reason = HaltUserRequest
		}
		if info.Reason == HaltBreakpoint {
			c.state.SetPC(info.Addr)
		}
		c.finishRun(info)
		return 0
	}

	for {
		// A trap raised while stepping past a breakpoint halts here
		// before anything else runs.
		if c.state.Trapped() {
			cause := c.state.TrapCause()
			c.state.ClearTrap()
			c.finishRun(HaltInfo{Reason: HaltFatalTrap, Addr: c.state.PC(), Cause: cause})
			return count
		}

		pc := c.state.PC()
		e := c.decode(pc)

		// Pre-set the PC to the next sequential address; control
		// transfer semantics overwrite it.
		c.state.SetPC(pc + e.inst.Size)
		e.fn(c.state, e.inst)
		c.cycleCounter.Increment(1)

		if c.state.Trapped() {
			cause := c.state.TrapCause()
			c.state.ClearTrap()
			c.state.SetPC(pc)
			c.log.WithFields(logrus.Fields{
				"pc":    fmt.Sprintf("0x%08x", pc),
				"cause": cause.String(),
			}).Error("fatal trap")
			c.finishRun(HaltInfo{Reason: HaltFatalTrap, Addr: pc, Cause: cause})
			return count
		}

		if c.haltReq.CompareAndSwap(true, false) {
			c.mu.Lock()
			info := c.haltInfo
			c.mu.Unlock()
			if info.Reason == HaltBreakpoint {
				// Stay parked on the breakpoint; the ebreak stub
				// did not retire the original instruction.
				c.state.SetPC(info.Addr)
				c.finishRun(info)
				return count
			}
			if info.Reason == HaltNone {
				info.Reason = HaltUserRequest
			}
			c.retire(e.inst)
			count++
			c.finishRun(info)
			return count
		}

		c.retire(e.inst)
		count++

		if budget > 0 && count >= budget {
			c.finishRun(HaltInfo{Reason: HaltStepComplete})
			return count
		}
		if c.maxInstructions > 0 && c.instCounter.Value() >= c.maxInstructions {
			c.finishRun(HaltInfo{Reason: HaltInstructionLimit})
			return count
		}
	}
}

// retire counts the instruction and offers it to the sinks.
func (c *Core) retire(inst *insts.Instruction) {
	c.instCounter.Increment(1)
	c.opCounters[inst.Op].Increment(1)
	for _, sink := range c.retireSinks {
		sink(inst)
	}
}

// finishRun records the halt and transitions to Halted.
func (c *Core) finishRun(info HaltInfo) {
	c.mu.Lock()
	c.haltInfo = info
	c.status = StatusHalted
	c.mu.Unlock()
}

// stepPastBreakpoint executes the original instruction under an armed
// breakpoint: restore the original bytes, run one instruction, re-arm.
func (c *Core) stepPastBreakpoint() {
	pc := c.state.PC()
	bp, ok := c.bps.get(pc)
	if !ok {
		return
	}
	c.bps.disarm(bp)
	e := c.decode(pc)
	c.state.SetPC(pc + e.inst.Size)
	e.fn(c.state, e.inst)
	c.cycleCounter.Increment(1)
	c.retire(e.inst)
	c.bps.arm(bp)
}
