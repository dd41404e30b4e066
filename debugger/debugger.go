// Package debugger drives a jvm.Interp one instruction at a time for the
// interactive (debug level 2) CLI mode, the way
// lookbusy1344-arm_emulator/debugger/debugger.go drives its vm.VM: a
// Debugger owns breakpoints and step mode, and a thin TUI layer (tui.go)
// renders its state and forwards keystrokes as commands.
package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"minijvm/jvm"
)

// StepMode mirrors the arm-emulator debugger's StepMode, trimmed to the two
// modes this interpreter's flat call stack actually needs.
type StepMode int

const (
	StepNone StepMode = iota
	StepSingle
)

// Debugger wraps an *jvm.Interp, pausing it after every instruction via
// Interp.OnStep until the TUI releases it with Next or Continue.
type Debugger struct {
	Interp     *jvm.Interp
	EntryClass string

	Breakpoints map[int]bool // instruction offset -> set
	StepMode    StepMode

	// ShowStaticFields toggles the TUI's statics panel (config.toml's
	// debugger.show_static_fields).
	ShowStaticFields bool

	// CommandHistory holds the last HistorySize commands run through
	// ExecuteCommand, oldest first (config.toml's debugger.history_size).
	CommandHistory []string
	HistorySize    int

	Output strings.Builder

	// Current execution state, refreshed on every OnStep callback.
	CurFrame *jvm.Frame
	CurInstr jvm.Instruction
	Halted   bool
	RunErr   error

	resumeCh chan struct{}
	doneCh   chan error
	started  bool
}

// NewDebugger builds a Debugger around interp, wiring its OnStep hook.
// showStaticFields and historySize come from the loaded config's
// [debugger] table; a historySize of 0 or less disables history tracking.
func NewDebugger(interp *jvm.Interp, entryClass string, showStaticFields bool, historySize int) *Debugger {
	d := &Debugger{
		Interp:           interp,
		EntryClass:       entryClass,
		Breakpoints:      make(map[int]bool),
		StepMode:         StepSingle,
		ShowStaticFields: showStaticFields,
		HistorySize:      historySize,
		resumeCh:         make(chan struct{}),
		doneCh:           make(chan error, 1),
	}
	interp.OnStep = d.onStep
	return d
}

// recordHistory appends cmd to CommandHistory, trimming from the front once
// HistorySize is exceeded. A non-positive HistorySize keeps no history.
func (d *Debugger) recordHistory(cmd string) {
	if d.HistorySize <= 0 {
		return
	}
	d.CommandHistory = append(d.CommandHistory, cmd)
	if over := len(d.CommandHistory) - d.HistorySize; over > 0 {
		d.CommandHistory = d.CommandHistory[over:]
	}
}

// onStep is called synchronously from the interpreter's dispatch loop after
// every executed instruction. It blocks the interpreter goroutine until the
// TUI calls Next or Continue, unless execution is in continue mode and the
// instruction just executed isn't at a breakpoint offset.
func (d *Debugger) onStep(interp *jvm.Interp, frame *jvm.Frame, instr jvm.Instruction) {
	d.CurFrame = frame
	d.CurInstr = instr

	if d.StepMode == StepSingle || d.Breakpoints[instr.Offset] {
		d.StepMode = StepSingle
		<-d.resumeCh
	}
}

// Start launches the interpreter on its own goroutine. OnStep fires after
// each instruction, so the very first pause happens once instruction zero
// has already run — matching the "run to next stop" semantics of the
// teacher's breakpoint REPL.
func (d *Debugger) Start() {
	if d.started {
		return
	}
	d.started = true
	go func() {
		d.doneCh <- d.Interp.Run(d.EntryClass)
	}()
}

// Next releases the interpreter for exactly one more instruction.
func (d *Debugger) Next() {
	if d.Halted {
		return
	}
	d.StepMode = StepSingle
	select {
	case d.resumeCh <- struct{}{}:
	case err := <-d.doneCh:
		d.finish(err)
	}
}

// Continue releases the interpreter until the next breakpoint or halt.
func (d *Debugger) Continue() {
	if d.Halted {
		return
	}
	d.StepMode = StepNone
	select {
	case d.resumeCh <- struct{}{}:
	case err := <-d.doneCh:
		d.finish(err)
	}
}

func (d *Debugger) finish(err error) {
	d.Halted = true
	d.RunErr = err
	if err != nil {
		fmt.Fprintf(&d.Output, "program finished: %v\n", err)
	} else {
		fmt.Fprintf(&d.Output, "program finished\n")
	}
}

// ExecuteCommand parses and runs one debugger command line, the way
// arm-emulator's Debugger.ExecuteCommand dispatches a command verb to a
// handler (trimmed to this interpreter's command set).
func (d *Debugger) ExecuteCommand(cmd string) error {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil
	}
	d.recordHistory(cmd)
	switch fields[0] {
	case "next", "n", "step", "s":
		d.Next()
	case "continue", "c":
		d.Continue()
	case "break", "b":
		if len(fields) < 2 {
			return fmt.Errorf("usage: break <offset>")
		}
		off, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("invalid offset %q: %w", fields[1], err)
		}
		d.Breakpoints[off] = true
		fmt.Fprintf(&d.Output, "breakpoint set at %d\n", off)
	case "delete", "d":
		if len(fields) < 2 {
			return fmt.Errorf("usage: delete <offset>")
		}
		off, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("invalid offset %q: %w", fields[1], err)
		}
		delete(d.Breakpoints, off)
	case "history", "hist":
		for i, c := range d.CommandHistory {
			fmt.Fprintf(&d.Output, "%d: %s\n", i, c)
		}
	case "help":
		fmt.Fprintf(&d.Output, "commands: next, continue, break <offset>, delete <offset>, history\n")
	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
	return nil
}

// StaticsForDisplay renders every known static field for the TUI's statics
// panel, or nil when ShowStaticFields is off.
func (d *Debugger) StaticsForDisplay() []string {
	if !d.ShowStaticFields {
		return nil
	}
	return d.Interp.Statics.ForDisplay(d.Interp.Pool)
}

// GetOutput drains and returns the accumulated output buffer.
func (d *Debugger) GetOutput() string {
	s := d.Output.String()
	d.Output.Reset()
	return s
}
