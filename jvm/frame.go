package jvm

import "fmt"

// Frame is a per-invocation activation record: locals plus an operand
// stack (spec.md §3/§4.6), grounded on original_source/src/stackframe.rs's
// Stackframe.
type Frame struct {
	class        *Class
	locals       []Item
	operandStack *OperandStack
	code         []Instruction
	pc           int
}

func newFrame(class *Class, maxLocals int, code []Instruction) *Frame {
	locals := make([]Item, maxLocals)
	return &Frame{
		class:        class,
		locals:       locals,
		operandStack: newOperandStack(),
		code:         code,
	}
}

func (f *Frame) getLocal(i int) (Item, error) {
	if i < 0 || i >= len(f.locals) {
		return Item{}, newFatal(errStackUnderflow, fmt.Sprintf("local index %d out of range (max %d)", i, len(f.locals)))
	}
	return f.locals[i], nil
}

func (f *Frame) setLocal(i int, it Item) error {
	if i < 0 || i >= len(f.locals) {
		return newFatal(errStackUnderflow, fmt.Sprintf("local index %d out of range (max %d)", i, len(f.locals)))
	}
	f.locals[i] = it
	return nil
}

// LocalsLen reports how many local slots this frame has, for the debugger's
// locals panel.
func (f *Frame) LocalsLen() int { return len(f.locals) }

// GetLocalForDisplay renders local i as text for the debugger UI; an
// out-of-range index renders as "<invalid>" alongside the range error.
func (f *Frame) GetLocalForDisplay(i int) (string, error) {
	it, err := f.getLocal(i)
	if err != nil {
		return "<invalid>", err
	}
	return it.describe(), nil
}

// StackForDisplay renders the operand stack bottom-to-top as text for the
// debugger UI.
func (f *Frame) StackForDisplay() []string {
	out := make([]string, 0, len(f.operandStack.items))
	for _, it := range f.operandStack.items {
		out = append(out, it.describe())
	}
	return out
}

// CallStack is the interpreter's stack of active Frames (C8).
type CallStack struct {
	frames []*Frame
}

func newCallStack() *CallStack { return &CallStack{} }

func (cs *CallStack) push(f *Frame) { cs.frames = append(cs.frames, f) }

func (cs *CallStack) pop() (*Frame, error) {
	if len(cs.frames) == 0 {
		return nil, newFatal(errStackUnderflow, "pop from empty call stack")
	}
	f := cs.frames[len(cs.frames)-1]
	cs.frames = cs.frames[:len(cs.frames)-1]
	return f, nil
}

func (cs *CallStack) top() (*Frame, error) {
	if len(cs.frames) == 0 {
		return nil, newFatal(errStackUnderflow, "call stack is empty")
	}
	return cs.frames[len(cs.frames)-1], nil
}

func (cs *CallStack) depth() int { return len(cs.frames) }

// buildCalleeLocals drains the caller's operand stack into a fresh locals
// slice of size maxLocals (spec.md §4.6/§9's "single drain-reverse-push
// step"). widths lists each parameter's slot width in declared order
// (receiver, if any, first; 2 for long/double, 1 otherwise). Parameters
// are popped in reverse declared order, since the last-pushed argument is
// on top of the stack; within a parameter, slots are written to
// ascending local indices in the order they come off the stack, which
// already matches the low-then-high locals convention for a two-slot
// value (its low half was pushed last and so pops first).
func buildCalleeLocals(caller *OperandStack, widths []int, maxLocals int) ([]Item, error) {
	total := 0
	for _, w := range widths {
		total += w
	}
	locals := make([]Item, maxLocals)

	start := total
	for i := len(widths) - 1; i >= 0; i-- {
		w := widths[i]
		start -= w
		for slot := 0; slot < w; slot++ {
			it, err := caller.pop()
			if err != nil {
				return nil, err
			}
			locals[start+slot] = it
		}
	}
	return locals, nil
}
