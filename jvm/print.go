package jvm

import (
	"fmt"
	"io"
)

// Disassemble prints a parsed class's constant pool, fields, methods and
// instruction stream the way `original_source/src/constant.rs`'s Display
// impl renders a ConstantPool, extended with a per-method instruction
// listing (SPEC_FULL.md's CLI/disasm supplement).
func Disassemble(out io.Writer, pc *ParsedClass, pool *StringPool) {
	fmt.Fprintln(out, "Constant pool:")
	for i := 1; i < len(pc.ConstantPool.entries); i++ {
		e := pc.ConstantPool.entries[i]
		if e.Tag == tagNull {
			continue
		}
		fmt.Fprintf(out, "  #%d = %-12s %s\n", i, tagName(e.Tag), describeEntry(e, pool))
	}

	fmt.Fprintln(out, "\nFields:")
	for _, f := range pc.Fields {
		name, _ := pool.Lookup(f.NameID)
		desc, _ := pool.Lookup(f.DescID)
		static := ""
		if f.IsStatic {
			static = "static "
		}
		fmt.Fprintf(out, "  %s%s %s\n", static, name, desc)
	}

	fmt.Fprintln(out, "\nMethods:")
	for _, m := range pc.Methods {
		name, _ := pool.Lookup(m.NameID)
		desc, _ := pool.Lookup(m.DescID)
		fmt.Fprintf(out, "  %s %s\n", name, desc)
		if m.Code == nil {
			continue
		}
		for off, instr := range m.Code.Instructions {
			if instr.Op == OpNoop {
				continue
			}
			fmt.Fprintf(out, "    %04d: %s\n", off, describeInstruction(instr))
		}
	}
}

func describeEntry(e CPEntry, pool *StringPool) string {
	switch e.Tag {
	case tagClassRef:
		name, _ := pool.Lookup(e.NameID)
		return name
	case tagFieldRef, tagMethodRef:
		return fmt.Sprintf("class #%d, nat #%d", e.ClassIdx, e.NatIdx)
	case tagNameAndType:
		return fmt.Sprintf("name #%d, desc #%d", e.NameIdx, e.DescIdx)
	case tagUtf8:
		return string(e.Utf8Bytes)
	case tagStringRef:
		return fmt.Sprintf("utf8 #%d", e.Utf8Idx)
	case tagLong:
		v := int64(uint32(e.Hi))<<32 | int64(uint32(e.Lo))
		return fmt.Sprintf("%d", v)
	case tagDouble:
		return fmt.Sprintf("hi=%d lo=%d", e.Hi, e.Lo)
	}
	return ""
}

// OpSummary renders a single instruction the way Disassemble's per-method
// listing does, exported for the interactive debugger's instruction panel.
func OpSummary(instr Instruction) string { return describeInstruction(instr) }

func describeInstruction(instr Instruction) string {
	switch instr.Op {
	case OpBipush, OpSipush, OpNewarray:
		return fmt.Sprintf("%s %d", opName(instr.Op), instr.IntArg)
	case OpIload, OpLload, OpFload, OpDload, OpAload,
		OpIstore, OpLstore, OpFstore, OpDstore, OpAstore, OpIinc:
		return fmt.Sprintf("%s local=%d", opName(instr.Op), instr.LocalIdx)
	case OpLdc, OpLdc2W, OpGetstatic, OpPutstatic, OpGetfield, OpPutfield,
		OpNew, OpAnewarray, OpInvokevirtual, OpInvokespecial, OpInvokestatic:
		return fmt.Sprintf("%s #%d", opName(instr.Op), instr.CPIndex)
	case OpMultianewarray:
		return fmt.Sprintf("%s #%d dims=%d", opName(instr.Op), instr.CPIndex, instr.Dims)
	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle,
		OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple, OpGoto:
		return fmt.Sprintf("%s -> %d", opName(instr.Op), instr.TakenTarget)
	case OpLookupswitch:
		return fmt.Sprintf("%s (%d cases)", opName(instr.Op), len(instr.Switch)-1)
	default:
		return opName(instr.Op)
	}
}

// DumpState renders the diagnostic output required on a fatal error
// (spec.md §7): the current instruction, the top frame's operand stack,
// and (when applicable) the constant-pool entry involved.
func DumpState(out io.Writer, interp *Interp, err error) {
	fmt.Fprintf(out, "fatal: %v\n", err)
	frame, fErr := interp.callStack.top()
	if fErr != nil {
		return
	}
	if frame.pc >= 0 && frame.pc < len(frame.code) {
		instr := frame.code[frame.pc]
		fmt.Fprintf(out, "  at instruction %04d: %s\n", instr.Offset, describeInstruction(instr))
		if instr.CPIndex > 0 && frame.class != nil && frame.class.Custom != nil {
			if e, cpErr := frame.class.Custom.ConstantPool.at(instr.CPIndex); cpErr == nil {
				fmt.Fprintf(out, "  constant pool #%d = %s %s\n", instr.CPIndex, tagName(e.Tag), describeEntry(e, interp.Pool))
			}
		}
	}
	fmt.Fprintf(out, "  operand stack (depth %d):\n", frame.operandStack.depth())
	for i := len(frame.operandStack.items) - 1; i >= 0; i-- {
		fmt.Fprintf(out, "    [%d] kind=%d\n", i, frame.operandStack.items[i].Kind)
	}
}
