package jvm

import (
	"fmt"
	"io"
	"runtime/debug"
)

// DebugLevel controls how much the interpreter prints as it runs
// (spec.md §6's CLI debug-level argument).
type DebugLevel int

const (
	DebugOff DebugLevel = iota
	DebugTrace
	DebugInteractive
)

// Interp is the interpreter context: the one place spec.md §9's shared
// mutable state (static-field table, class registry) is threaded through
// explicitly rather than as package globals, plus the call stack and
// output sink.
type Interp struct {
	Pool      *StringPool
	Statics   *StaticTable
	Registry  *ClassRegistry
	callStack *CallStack
	Out       io.Writer
	Debug     DebugLevel

	// OnStep, if set, is invoked once per executed instruction (after it
	// runs) with the frame that was current and the instruction executed.
	// The interactive debugger UI hooks this instead of reimplementing the
	// dispatch loop.
	OnStep func(interp *Interp, frame *Frame, instr Instruction)
}

// NewInterp constructs an interpreter context rooted at classDir.
func NewInterp(classDir string, out io.Writer, level DebugLevel) *Interp {
	pool := NewStringPool()
	statics := newStaticTable()
	registry := newClassRegistry(classDir, pool, statics)
	return &Interp{
		Pool:      pool,
		Statics:   statics,
		Registry:  registry,
		callStack: newCallStack(),
		Out:       out,
		Debug:     level,
	}
}

// Run loads entryClass, locates its main method, and executes it to
// completion (spec.md §6). Returns nil on a clean `return`, or the fatal
// error that aborted the program.
//
// The dispatch loop is allocation-heavy and short-lived, so the collector is
// disabled for its duration and restored on return, the way the teacher's
// RunProgram disables GC around execInstructions. A panicking bug in the
// interpreter (e.g. a decoder off-by-one) is converted into a regular
// *fatalError instead of crashing the host process.
func (interp *Interp) Run(entryClass string) (runErr error) {
	old := debug.SetGCPercent(-1)
	defer debug.SetGCPercent(old)

	defer func() {
		if r := recover(); r != nil {
			runErr = newFatal(errDecode, fmt.Sprintf("recovered panic: %v", r))
		}
	}()

	return interp.run(entryClass)
}

func (interp *Interp) run(entryClass string) error {
	nameID := interp.Pool.Intern(entryClass)
	class, err := interp.Registry.lookupOrLoad(nameID, interp)
	if err != nil {
		return err
	}
	if class.Custom == nil {
		return newFatal(errLinkage, "entry class is a built-in, not a loadable class file")
	}

	mainID, ok := class.Custom.ConstantPool.findIndexByUtf8("main")
	if !ok {
		return newFatal(errResolution, "no \"main\" identifier in entry class constant pool")
	}
	mainNameID, err := class.Custom.ConstantPool.utf8ID(mainID)
	if err != nil {
		return err
	}
	method, ok := class.Custom.findMethodByName(mainNameID)
	if !ok || method.Code == nil {
		return newFatal(errResolution, "entry class has no main method with a Code attribute")
	}

	frame := newFrame(class, method.Code.MaxLocals, method.Code.Instructions)
	interp.callStack.push(frame)
	return interp.runUntilDepth(0)
}

// invokeMethodDirect runs method on class in a fresh frame with no
// arguments drained (used for <clinit>, which spec.md §4.10 says runs
// "with max_locals slots and no arguments").
func (interp *Interp) invokeMethodDirect(class *Class, m *Method) error {
	if m.Code == nil {
		return nil
	}
	frame := newFrame(class, m.Code.MaxLocals, m.Code.Instructions)
	target := interp.callStack.depth()
	interp.callStack.push(frame)
	return interp.runUntilDepth(target)
}

// runUntilDepth executes instructions until the call stack returns to
// target depth (i.e. the frame that was on top when this was called has
// returned) or a fatal error occurs.
func (interp *Interp) runUntilDepth(target int) error {
	for interp.callStack.depth() > target {
		frame, err := interp.callStack.top()
		if err != nil {
			return err
		}
		if frame.pc < 0 || frame.pc >= len(frame.code) {
			return newFatal(errDecode, fmt.Sprintf("program counter %d out of range", frame.pc))
		}
		instr := frame.code[frame.pc]
		if instr.Op == OpNoop {
			return newFatal(errDecode, "decoder bug: landed on a Noop padding slot")
		}

		if err := interp.step(frame, instr); err != nil {
			return err
		}
		if interp.OnStep != nil {
			interp.OnStep(interp, frame, instr)
		}
		if interp.Debug >= DebugTrace && interp.Debug != DebugInteractive {
			fmt.Fprintf(interp.Out, "%04d: %s\n", instr.Offset, opName(instr.Op))
		}
	}
	return nil
}

// step executes one instruction against frame, advancing its pc (spec.md
// §4.7's dispatch loop). Instructions that transition the call stack
// (invoke, return) mutate interp.callStack directly.
func (interp *Interp) step(frame *Frame, instr Instruction) error {
	s := frame.operandStack
	fallthroughPC := frame.pc + instr.Width

	switch instr.Op {
	case OpAconstNull:
		s.push(nullItem())
	case OpIconst:
		s.push(intItem(instr.ConstVal))
	case OpLconst:
		s.pushLong(int64(instr.ConstVal))
	case OpFconst:
		s.push(floatItem(float32(instr.ConstVal)))
	case OpDconst:
		s.pushLong(int64(instr.ConstVal))
	case OpBipush, OpSipush:
		s.push(intItem(instr.IntArg))

	case OpLdc:
		if err := interp.execLdc(frame, instr); err != nil {
			return err
		}
	case OpLdc2W:
		hi, lo, err := frame.class.Custom.ConstantPool.longValue(instr.CPIndex)
		if err != nil {
			return err
		}
		s.push(longItem(hi))
		s.push(longItem(lo))

	case OpIload, OpFload, OpAload:
		it, err := frame.getLocal(instr.LocalIdx)
		if err != nil {
			return err
		}
		s.push(it)
	case OpLload, OpDload:
		lo, err := frame.getLocal(instr.LocalIdx)
		if err != nil {
			return err
		}
		hi, err := frame.getLocal(instr.LocalIdx + 1)
		if err != nil {
			return err
		}
		s.push(hi)
		s.push(lo)

	case OpIstore, OpFstore, OpAstore:
		it, err := s.pop()
		if err != nil {
			return err
		}
		if err := frame.setLocal(instr.LocalIdx, it); err != nil {
			return err
		}
	case OpLstore, OpDstore:
		lo, err := s.pop()
		if err != nil {
			return err
		}
		hi, err := s.pop()
		if err != nil {
			return err
		}
		if err := frame.setLocal(instr.LocalIdx, lo); err != nil {
			return err
		}
		if err := frame.setLocal(instr.LocalIdx+1, hi); err != nil {
			return err
		}

	case OpIaload, OpAaload, OpBaload:
		if err := interp.execArrayLoad(s); err != nil {
			return err
		}
	case OpLaload:
		if err := interp.execLongArrayLoad(s); err != nil {
			return err
		}
	case OpIastore, OpAastore, OpBastore:
		if err := interp.execArrayStore(s); err != nil {
			return err
		}
	case OpLastore:
		if err := interp.execLongArrayStore(s); err != nil {
			return err
		}

	case OpPop:
		if _, err := s.pop(); err != nil {
			return err
		}
	case OpDup:
		if err := s.dup(); err != nil {
			return err
		}

	case OpIadd:
		if err := s.intBinOp(iadd); err != nil {
			return err
		}
	case OpIsub:
		if err := s.intBinOp(isub); err != nil {
			return err
		}
	case OpImul:
		if err := s.intBinOp(imul); err != nil {
			return err
		}
	case OpIdiv:
		if err := s.intBinOp(idiv); err != nil {
			return err
		}
	case OpIrem:
		if err := s.intBinOp(irem); err != nil {
			return err
		}
	case OpLadd:
		if err := s.longBinOp(ladd); err != nil {
			return err
		}
	case OpLsub:
		if err := s.longBinOp(lsub); err != nil {
			return err
		}
	case OpLmul:
		if err := s.longBinOp(lmul); err != nil {
			return err
		}
	case OpLdiv:
		if err := s.longBinOp(ldiv); err != nil {
			return err
		}
	case OpLrem:
		if err := s.longBinOp(lrem); err != nil {
			return err
		}
	case OpFadd, OpFsub, OpFmul, OpFdiv:
		if err := interp.execFloatBinOp(s, instr.Op); err != nil {
			return err
		}
	case OpIinc:
		local, err := frame.getLocal(instr.LocalIdx)
		if err != nil {
			return err
		}
		if local.Kind != KindInt {
			return newFatal(errType, "iinc on non-Int local")
		}
		if err := frame.setLocal(instr.LocalIdx, intItem(local.Int+instr.IntArg)); err != nil {
			return err
		}

	case OpLcmp:
		if err := s.lcmp(); err != nil {
			return err
		}
	case OpFcmpg, OpFcmpl:
		if err := interp.execFcmp(s); err != nil {
			return err
		}

	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle:
		v, err := s.popInt()
		if err != nil {
			return err
		}
		if evalUnaryCond(instr.Op, v) {
			frame.pc = instr.TakenTarget
			return nil
		}
		frame.pc = instr.NotTakenTarget
		return nil

	case OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple:
		b, err := s.popInt()
		if err != nil {
			return err
		}
		a, err := s.popInt()
		if err != nil {
			return err
		}
		if evalBinaryCond(instr.Op, a, b) {
			frame.pc = instr.TakenTarget
			return nil
		}
		frame.pc = instr.NotTakenTarget
		return nil

	case OpGoto:
		frame.pc = instr.TakenTarget
		return nil

	case OpLookupswitch:
		key, err := s.popInt()
		if err != nil {
			return err
		}
		target := instr.Switch[0].Target // default
		for _, pair := range instr.Switch {
			if pair.HasKey && pair.Key == key {
				target = pair.Target
				break
			}
		}
		frame.pc = target
		return nil

	case OpIreturn, OpAreturn:
		return interp.execReturn(true)
	case OpReturn:
		return interp.execReturn(false)

	case OpGetstatic:
		if err := interp.execGetstatic(frame, instr); err != nil {
			return err
		}
	case OpPutstatic:
		if err := interp.execPutstatic(frame, instr); err != nil {
			return err
		}
	case OpGetfield:
		if err := interp.execGetfield(frame, instr); err != nil {
			return err
		}
	case OpPutfield:
		if err := interp.execPutfield(frame, instr); err != nil {
			return err
		}
	case OpNew:
		if err := interp.execNew(frame, instr); err != nil {
			return err
		}
	case OpNewarray:
		if err := interp.execNewarray(frame, instr); err != nil {
			return err
		}
	case OpAnewarray, OpMultianewarray:
		if err := interp.execAnewarray(frame, instr); err != nil {
			return err
		}

	case OpInvokevirtual, OpInvokespecial:
		if err := interp.execInvoke(frame, instr, true); err != nil {
			return err
		}
		return nil
	case OpInvokestatic:
		if err := interp.execInvoke(frame, instr, false); err != nil {
			return err
		}
		return nil

	default:
		return newFatal(errDecode, fmt.Sprintf("unhandled op %s", opName(instr.Op)))
	}

	frame.pc = fallthroughPC
	return nil
}

func evalUnaryCond(op Op, v int32) bool {
	switch op {
	case OpIfeq:
		return v == 0
	case OpIfne:
		return v != 0
	case OpIflt:
		return v < 0
	case OpIfge:
		return v >= 0
	case OpIfgt:
		return v > 0
	case OpIfle:
		return v <= 0
	}
	return false
}

func evalBinaryCond(op Op, a, b int32) bool {
	switch op {
	case OpIfIcmpeq:
		return a == b
	case OpIfIcmpne:
		return a != b
	case OpIfIcmplt:
		return a < b
	case OpIfIcmpge:
		return a >= b
	case OpIfIcmpgt:
		return a > b
	case OpIfIcmple:
		return a <= b
	}
	return false
}

func (interp *Interp) execLdc(frame *Frame, instr Instruction) error {
	cp := frame.class.Custom.ConstantPool
	entry, err := cp.at(instr.CPIndex)
	if err != nil {
		return err
	}
	switch entry.Tag {
	case tagStringRef:
		id, err := cp.stringUtf8ID(instr.CPIndex)
		if err != nil {
			return err
		}
		frame.operandStack.push(stringItem(id))
	case tagClassRef:
		frame.operandStack.push(classrefItem(entry.NameID))
	default:
		return newFatal(errType, "ldc on unsupported constant pool tag")
	}
	return nil
}

func (interp *Interp) execFloatBinOp(s *OperandStack, op Op) error {
	b, err := s.pop()
	if err != nil {
		return err
	}
	a, err := s.pop()
	if err != nil {
		return err
	}
	if a.Kind != KindFloat || b.Kind != KindFloat {
		return newFatal(errType, "float arithmetic on non-Float operand")
	}
	var r float32
	switch op {
	case OpFadd:
		r = a.Float + b.Float
	case OpFsub:
		r = a.Float - b.Float
	case OpFmul:
		r = a.Float * b.Float
	case OpFdiv:
		r = a.Float / b.Float
	}
	s.push(floatItem(r))
	return nil
}

func (interp *Interp) execFcmp(s *OperandStack) error {
	b, err := s.pop()
	if err != nil {
		return err
	}
	a, err := s.pop()
	if err != nil {
		return err
	}
	if a.Kind != KindFloat || b.Kind != KindFloat {
		return newFatal(errType, "fcmp on non-Float operand")
	}
	switch {
	case a.Float < b.Float:
		s.push(intItem(-1))
	case a.Float > b.Float:
		s.push(intItem(1))
	default:
		s.push(intItem(0))
	}
	return nil
}

// execReturn transfers the optional return value per spec.md §4.6: on
// ireturn/areturn the callee's top-of-stack item moves to the caller's
// operand stack; the callee frame is discarded. On return, no value
// transfers.
func (interp *Interp) execReturn(hasValue bool) error {
	callee, err := interp.callStack.pop()
	if err != nil {
		return err
	}
	if !hasValue {
		return nil
	}
	val, err := callee.operandStack.pop()
	if err != nil {
		return err
	}
	if interp.callStack.depth() == 0 {
		// Returning out of the program's entry method with a value has
		// nowhere to go; the value is simply discarded.
		return nil
	}
	caller, err := interp.callStack.top()
	if err != nil {
		return err
	}
	caller.operandStack.push(val)
	return nil
}

func (interp *Interp) execGetstatic(frame *Frame, instr Instruction) error {
	classNameID, fieldNameID, err := frame.class.Custom.ConstantPool.classAndFieldNames(instr.CPIndex)
	if err != nil {
		return err
	}
	// A field access against the class whose own bytecode is currently
	// executing never needs a registry round trip, even mid-<clinit>: the
	// frame already running *is* that class's load. This is what lets
	// <clinit> read its own statics without tripping the recursive-load
	// guard in ClassRegistry.lookupOrLoad.
	if classNameID != frame.class.NameID {
		if _, err := interp.Registry.lookupOrLoad(classNameID, interp); err != nil {
			return err
		}
	}
	pair := interp.Statics.get(classNameID, fieldNameID)
	frame.operandStack.push(pair.Primary)
	if pair.Primary.Kind == KindLong {
		frame.operandStack.push(pair.Secondary)
	}
	return nil
}

func (interp *Interp) execPutstatic(frame *Frame, instr Instruction) error {
	classNameID, fieldNameID, err := frame.class.Custom.ConstantPool.classAndFieldNames(instr.CPIndex)
	if err != nil {
		return err
	}
	// See execGetstatic: a class writing its own static field, including
	// from its own <clinit>, does not re-enter the loader.
	if classNameID != frame.class.NameID {
		if _, err := interp.Registry.lookupOrLoad(classNameID, interp); err != nil {
			return err
		}
	}
	val, err := frame.operandStack.pop()
	if err != nil {
		return err
	}
	pair := fieldPair{Primary: val}
	if val.Kind == KindLong {
		// The two-slot convention pushes high then low; the value just
		// popped (top of stack) is the low half, and this second pop
		// reaches the high half beneath it.
		hi, err := frame.operandStack.pop()
		if err != nil {
			return err
		}
		pair = fieldPair{Primary: hi, Secondary: val}
	}
	interp.Statics.set(classNameID, fieldNameID, pair)
	return nil
}

func (interp *Interp) execGetfield(frame *Frame, instr Instruction) error {
	_, fieldNameID, err := frame.class.Custom.ConstantPool.classAndFieldNames(instr.CPIndex)
	if err != nil {
		return err
	}
	objItem, err := frame.operandStack.pop()
	if err != nil {
		return err
	}
	if objItem.Kind != KindObjectref || objItem.Obj == nil {
		return newFatal(errType, "getfield on non-Objectref")
	}
	pair := objItem.Obj.Fields[fieldKey{objItem.Obj.ClassNameID, fieldNameID}]
	frame.operandStack.push(pair.Primary)
	if pair.Primary.Kind == KindLong {
		frame.operandStack.push(pair.Secondary)
	}
	return nil
}

func (interp *Interp) execPutfield(frame *Frame, instr Instruction) error {
	_, fieldNameID, err := frame.class.Custom.ConstantPool.classAndFieldNames(instr.CPIndex)
	if err != nil {
		return err
	}
	val, err := frame.operandStack.pop()
	if err != nil {
		return err
	}
	pair := fieldPair{Primary: val}
	if val.Kind == KindLong {
		hi, err := frame.operandStack.pop()
		if err != nil {
			return err
		}
		pair = fieldPair{Primary: hi, Secondary: val}
	}
	objItem, err := frame.operandStack.pop()
	if err != nil {
		return err
	}
	if objItem.Kind != KindObjectref || objItem.Obj == nil {
		return newFatal(errType, "putfield on non-Objectref")
	}
	objItem.Obj.Fields[fieldKey{objItem.Obj.ClassNameID, fieldNameID}] = pair
	return nil
}

func (interp *Interp) execNew(frame *Frame, instr Instruction) error {
	classNameID, err := frame.class.Custom.ConstantPool.classRef(instr.CPIndex)
	if err != nil {
		return err
	}
	class, err := interp.Registry.lookupOrLoad(classNameID, interp)
	if err != nil {
		return err
	}
	fields := make(map[fieldKey]fieldPair)
	if class.Custom != nil {
		for _, f := range class.Custom.Fields {
			if f.IsStatic {
				continue
			}
			desc, _ := interp.Pool.Lookup(f.DescID)
			fields[fieldKey{classNameID, f.NameID}] = defaultFieldPair(desc)
		}
	}
	obj := &Objectref{ClassNameID: classNameID, Fields: fields}
	frame.operandStack.push(Item{Kind: KindObjectref, Obj: obj})
	return nil
}

// arrayTypeTag values for newarray (class file format; only the kinds this
// engine distinguishes matter: int-like vs everything stored as KindInt
// here since there is no float/array-verifier distinction being enforced).
const (
	arrayTypeInt  = 10
	arrayTypeLong = 11
)

func (interp *Interp) execNewarray(frame *Frame, instr Instruction) error {
	count, err := frame.operandStack.popInt()
	if err != nil {
		return err
	}
	if count < 0 {
		return newFatal(errType, "negative array size")
	}
	elemKind := KindInt
	if instr.IntArg == arrayTypeLong {
		elemKind = KindLong
	}
	elems := make([]Item, count)
	for i := range elems {
		if elemKind == KindLong {
			elems[i] = Item{Kind: KindLong}
		} else {
			elems[i] = intItem(0)
		}
	}
	arr := &Arrayref{ElemKind: elemKind, Elems: elems}
	frame.operandStack.push(Item{Kind: KindArrayref, Arr: arr})
	return nil
}

func (interp *Interp) execAnewarray(frame *Frame, instr Instruction) error {
	count, err := frame.operandStack.popInt()
	if err != nil {
		return err
	}
	if count < 0 {
		return newFatal(errType, "negative array size")
	}
	elems := make([]Item, count)
	for i := range elems {
		elems[i] = nullItem()
	}
	arr := &Arrayref{ElemKind: KindObjectref, Elems: elems}
	frame.operandStack.push(Item{Kind: KindArrayref, Arr: arr})
	return nil
}

func popArrayAndIndex(s *OperandStack) (*Arrayref, int32, error) {
	idx, err := s.popInt()
	if err != nil {
		return nil, 0, err
	}
	arrItem, err := s.pop()
	if err != nil {
		return nil, 0, err
	}
	if arrItem.Kind != KindArrayref || arrItem.Arr == nil {
		return nil, 0, newFatal(errType, "array op on non-Arrayref")
	}
	if idx < 0 || int(idx) >= len(arrItem.Arr.Elems) {
		return nil, 0, newFatal(errType, fmt.Sprintf("array index %d out of bounds (len %d)", idx, len(arrItem.Arr.Elems)))
	}
	return arrItem.Arr, idx, nil
}

func (interp *Interp) execArrayLoad(s *OperandStack) error {
	arr, idx, err := popArrayAndIndex(s)
	if err != nil {
		return err
	}
	s.push(arr.Elems[idx])
	return nil
}

func (interp *Interp) execLongArrayLoad(s *OperandStack) error {
	arr, idx, err := popArrayAndIndex(s)
	if err != nil {
		return err
	}
	// Arrays store one Item per long element (Long64 holds the full
	// 64-bit value); re-split into the stack's two-slot convention on load.
	s.pushLong(arr.Elems[idx].Long64)
	return nil
}

func (interp *Interp) execArrayStore(s *OperandStack) error {
	val, err := s.popInt()
	if err != nil {
		return err
	}
	arr, idx, err := popArrayAndIndex(s)
	if err != nil {
		return err
	}
	arr.Elems[idx] = intItem(val)
	return nil
}

func (interp *Interp) execLongArrayStore(s *OperandStack) error {
	val, err := s.popLong()
	if err != nil {
		return err
	}
	arr, idx, err := popArrayAndIndex(s)
	if err != nil {
		return err
	}
	arr.Elems[idx] = Item{Kind: KindLong, Long64: val}
	return nil
}

// execInvoke resolves and dispatches invokevirtual/invokespecial/
// invokestatic (spec.md §4.7): the target class is resolved and loaded if
// needed, the method is found by exact (name, descriptor) match in that
// class, and the caller's operand stack is drained into the new frame's
// locals.
func (interp *Interp) execInvoke(frame *Frame, instr Instruction, hasReceiver bool) error {
	cp := frame.class.Custom.ConstantPool
	classNameID, methodNameID, descID, err := cp.classAndMethodNameAndDesc(instr.CPIndex)
	if err != nil {
		return err
	}
	target, err := interp.Registry.lookupOrLoad(classNameID, interp)
	if err != nil {
		return err
	}

	desc, _ := interp.Pool.Lookup(descID)

	if target.isBuiltIn() {
		widths := paramWidths(desc, true)
		total := 0
		for _, w := range widths {
			total += w
		}
		locals, err := buildCalleeLocals(frame.operandStack, widths, total)
		if err != nil {
			return err
		}
		tmp := &Frame{locals: locals, operandStack: newOperandStack()}
		bm, ok := target.BuiltIn.Methods[methodNameID]
		if !ok {
			return newFatal(errResolution, "no such built-in method")
		}
		result, err := execBuiltin(bm.Code, tmp, interp.Pool, interp.Out)
		if err != nil {
			return err
		}
		if result != nil {
			frame.operandStack.push(*result)
		}
		frame.pc += instr.Width
		return nil
	}

	method, ok := target.findMethod(methodNameID, descID)
	if !ok {
		return newFatal(errResolution, "method not found by exact (name, descriptor) match")
	}
	if method.Code == nil {
		return newFatal(errResolution, "invoked method has no Code attribute")
	}

	widths := paramWidths(desc, hasReceiver)
	locals, err := buildCalleeLocals(frame.operandStack, widths, method.Code.MaxLocals)
	if err != nil {
		return err
	}

	frame.pc += instr.Width // caller resumes here after the callee returns

	callee := newFrame(target, method.Code.MaxLocals, method.Code.Instructions)
	callee.locals = locals
	interp.callStack.push(callee)
	return nil
}
