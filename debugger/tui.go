package debugger

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"minijvm/jvm"
)

// TUI is the interactive debug-level-2 front end, scaled down from
// lookbusy1344-arm_emulator/debugger/tui.go's panel layout to the state a
// stack-based interpreter actually exposes: the current instruction, the
// top frame's locals and operand stack, and the debugger's command output.
type TUI struct {
	Debugger *Debugger
	App      *tview.Application

	MainLayout   *tview.Flex
	InstrView    *tview.TextView
	LocalsView   *tview.TextView
	StackView    *tview.TextView
	StaticsView  *tview.TextView // nil unless Debugger.ShowStaticFields
	OutputView   *tview.TextView
	CommandInput *tview.InputField
}

// NewTUI builds a TUI around an already-constructed Debugger.
func NewTUI(d *Debugger) *TUI {
	t := &TUI{
		Debugger: d,
		App:      tview.NewApplication(),
	}
	t.initializeViews()
	t.buildLayout()
	t.setupKeyBindings()
	return t
}

func (t *TUI) initializeViews() {
	t.InstrView = tview.NewTextView().SetDynamicColors(true)
	t.InstrView.SetBorder(true).SetTitle(" Instruction ")

	t.LocalsView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.LocalsView.SetBorder(true).SetTitle(" Locals ")

	t.StackView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.StackView.SetBorder(true).SetTitle(" Operand stack ")

	if t.Debugger.ShowStaticFields {
		t.StaticsView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
		t.StaticsView.SetBorder(true).SetTitle(" Statics ")
	}

	t.OutputView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().SetLabel("> ")
	t.CommandInput.SetBorder(true).SetTitle(" Command (next/continue/break N/history/quit) ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
}

func (t *TUI) buildLayout() {
	top := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(t.InstrView, 0, 1, false).
		AddItem(t.LocalsView, 0, 1, false).
		AddItem(t.StackView, 0, 1, false)
	if t.StaticsView != nil {
		top.AddItem(t.StaticsView, 0, 1, false)
	}

	t.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 8, 0, false).
		AddItem(t.OutputView, 0, 1, false).
		AddItem(t.CommandInput, 3, 0, true)
}

func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF10:
			t.execute("next")
			return nil
		case tcell.KeyF5:
			t.execute("continue")
			return nil
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		}
		return event
	})
}

func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := t.CommandInput.GetText()
	t.CommandInput.SetText("")
	if cmd == "quit" || cmd == "q" {
		t.App.Stop()
		return
	}
	if cmd != "" {
		t.execute(cmd)
	}
}

func (t *TUI) execute(cmd string) {
	if err := t.Debugger.ExecuteCommand(cmd); err != nil {
		fmt.Fprintf(&t.Debugger.Output, "error: %v\n", err)
	}
	t.refresh()
}

func (t *TUI) refresh() {
	if out := t.Debugger.GetOutput(); out != "" {
		fmt.Fprint(t.OutputView, out)
		t.OutputView.ScrollToEnd()
	}

	if t.Debugger.Halted {
		t.InstrView.SetText("[yellow]halted[white]")
	} else if t.Debugger.CurFrame != nil {
		t.InstrView.SetText(fmt.Sprintf("%04d: %s", t.Debugger.CurInstr.Offset, jvm.OpSummary(t.Debugger.CurInstr)))
	}

	t.LocalsView.Clear()
	if f := t.Debugger.CurFrame; f != nil {
		for i := range f.LocalsLen() {
			v, _ := f.GetLocalForDisplay(i)
			fmt.Fprintf(t.LocalsView, "[%d] %s\n", i, v)
		}
	}

	t.StackView.Clear()
	if f := t.Debugger.CurFrame; f != nil {
		for _, v := range f.StackForDisplay() {
			fmt.Fprintf(t.StackView, "%s\n", v)
		}
	}

	if t.StaticsView != nil {
		t.StaticsView.Clear()
		for _, v := range t.Debugger.StaticsForDisplay() {
			fmt.Fprintf(t.StaticsView, "%s\n", v)
		}
	}

	t.App.Draw()
}

// Run starts the interpreter and hands control to the TUI event loop. It
// blocks until the user quits.
func (t *TUI) Run() error {
	t.Debugger.Start()
	t.refresh()
	return t.App.SetRoot(t.MainLayout, true).SetFocus(t.CommandInput).Run()
}
