package jvm

import "fmt"

// Op is the decoded instruction opcode. Named and classified the way the
// teacher's Bytecode byte-enum in bytecode.go is (constants + a couple of
// classification helpers), adapted to the JVM opcode set named in spec.md
// §4.3.
type Op int

const (
	OpNoop Op = iota

	// constants
	OpAconstNull
	OpIconst
	OpLconst
	OpFconst
	OpDconst
	OpBipush
	OpSipush
	OpLdc
	OpLdc2W

	// loads
	OpIload
	OpLload
	OpFload
	OpDload
	OpAload
	OpIaload
	OpLaload
	OpAaload
	OpBaload

	// stores
	OpIstore
	OpLstore
	OpFstore
	OpDstore
	OpAstore
	OpIastore
	OpLastore
	OpAastore
	OpBastore

	// stack
	OpPop
	OpDup

	// arithmetic
	OpIadd
	OpLadd
	OpFadd
	OpIsub
	OpLsub
	OpFsub
	OpImul
	OpLmul
	OpFmul
	OpIdiv
	OpLdiv
	OpFdiv
	OpIrem
	OpLrem
	OpIinc

	// comparison
	OpLcmp
	OpFcmpg
	OpFcmpl

	// control
	OpIfeq
	OpIfne
	OpIflt
	OpIfge
	OpIfgt
	OpIfle
	OpIfIcmpeq
	OpIfIcmpne
	OpIfIcmplt
	OpIfIcmpge
	OpIfIcmpgt
	OpIfIcmple
	OpGoto
	OpLookupswitch
	OpIreturn
	OpAreturn
	OpReturn

	// object/field
	OpGetstatic
	OpPutstatic
	OpGetfield
	OpPutfield
	OpNew
	OpNewarray
	OpAnewarray
	OpMultianewarray

	// calls
	OpInvokevirtual
	OpInvokespecial
	OpInvokestatic
)

// rawOpcode is the single-byte value on the wire for each Op.
var rawOpcode = map[byte]Op{
	0x01: OpAconstNull,
	0x02: OpIconst, 0x03: OpIconst, 0x04: OpIconst, 0x05: OpIconst,
	0x06: OpIconst, 0x07: OpIconst, 0x08: OpIconst,
	0x09: OpLconst, 0x0a: OpLconst,
	0x0b: OpFconst, 0x0c: OpFconst, 0x0d: OpFconst,
	0x0e: OpDconst, 0x0f: OpDconst,
	0x10: OpBipush,
	0x11: OpSipush,
	0x12: OpLdc,
	0x14: OpLdc2W,

	0x15: OpIload, 0x16: OpLload, 0x17: OpFload, 0x18: OpDload, 0x19: OpAload,
	0x1a: OpIload, 0x1b: OpIload, 0x1c: OpIload, 0x1d: OpIload, // iload_0..3
	0x1e: OpLload, 0x1f: OpLload, 0x20: OpLload, 0x21: OpLload, // lload_0..3
	0x22: OpFload, 0x23: OpFload, 0x24: OpFload, 0x25: OpFload, // fload_0..3
	0x26: OpDload, 0x27: OpDload, 0x28: OpDload, 0x29: OpDload, // dload_0..3
	0x2a: OpAload, 0x2b: OpAload, 0x2c: OpAload, 0x2d: OpAload, // aload_0..3
	0x2e: OpIaload, 0x2f: OpLaload, 0x30: OpFaload_placeholder, 0x31: OpAaload, 0x32: OpBaload,

	0x36: OpIstore, 0x37: OpLstore, 0x38: OpFstore, 0x39: OpDstore, 0x3a: OpAstore,
	0x3b: OpIstore, 0x3c: OpIstore, 0x3d: OpIstore, 0x3e: OpIstore, // istore_0..3
	0x3f: OpLstore, 0x40: OpLstore, 0x41: OpLstore, 0x42: OpLstore, // lstore_0..3
	0x43: OpFstore, 0x44: OpFstore, 0x45: OpFstore, 0x46: OpFstore, // fstore_0..3
	0x47: OpDstore, 0x48: OpDstore, 0x49: OpDstore, 0x4a: OpDstore, // dstore_0..3
	0x4b: OpAstore, 0x4c: OpAstore, 0x4d: OpAstore, 0x4e: OpAstore, // astore_0..3
	0x4f: OpIastore, 0x50: OpLastore, 0x53: OpAastore, 0x54: OpBastore,

	0x57: OpPop,
	0x59: OpDup,

	0x60: OpIadd, 0x61: OpLadd, 0x62: OpFadd,
	0x64: OpIsub, 0x65: OpLsub, 0x66: OpFsub,
	0x68: OpImul, 0x69: OpLmul, 0x6a: OpFmul,
	0x6c: OpIdiv, 0x6d: OpLdiv, 0x6e: OpFdiv,
	0x70: OpIrem, 0x71: OpLrem,
	0x84: OpIinc,

	0x94: OpLcmp,
	0x96: OpFcmpl, 0x95: OpFcmpg,

	0x99: OpIfeq, 0x9a: OpIfne, 0x9b: OpIflt, 0x9c: OpIfge, 0x9d: OpIfgt, 0x9e: OpIfle,
	0x9f: OpIfIcmpeq, 0xa0: OpIfIcmpne, 0xa1: OpIfIcmplt, 0xa2: OpIfIcmpge, 0xa3: OpIfIcmpgt, 0xa4: OpIfIcmple,
	0xa7: OpGoto,
	0xab: OpLookupswitch,
	0xac: OpIreturn,
	0xb0: OpAreturn,
	0xb1: OpReturn,

	0xb2: OpGetstatic, 0xb3: OpPutstatic,
	0xb4: OpGetfield, 0xb5: OpPutfield,
	0xbb: OpNew,
	0xbc: OpNewarray,
	0xbd: OpAnewarray,
	0xc5: OpMultianewarray,

	0xb6: OpInvokevirtual,
	0xb7: OpInvokespecial,
	0xb8: OpInvokestatic,
}

// OpFaload_placeholder exists only so the rawOpcode table above can assign
// a distinct value to opcode 0x30 (faload); this engine has no float-array
// support (spec.md's opcode table omits faload) and decoding one is a
// DecodeError, matching "unrecognized opcode" for every byte this VM does
// not implement.
const OpFaload_placeholder Op = -1

// LookupswitchPair is one (key, target) entry, or the default entry when
// HasKey is false (spec.md §4.3/§4.8).
type LookupswitchPair struct {
	HasKey bool
	Key    int32
	Target int
}

// Instruction is a single decoded slot in the instruction stream. Most
// fields are populated only for the Op that needs them.
type Instruction struct {
	Op     Op
	Width  int // original byte width, 0 for Noop padding
	Offset int // byte offset == slot index

	IntArg    int32 // bipush/sipush/iinc immediate, newarray type tag
	CPIndex   int   // ldc/ldc2w/getstatic/putstatic/getfield/putfield/new/anewarray/invoke*
	Dims      int   // multianewarray dimension count
	LocalIdx  int   // iload/istore/iinc/etc
	ConstVal  int32 // iconst/lconst/fconst/dconst encoded small value

	TakenTarget    int // branch: index to jump to when condition holds
	NotTakenTarget int // branch: fall-through index

	Switch []LookupswitchPair
}

// decodeInstructions turns a raw Code-attribute byte array into a stream
// whose length equals len(code) and whose indices equal the original byte
// offsets (spec.md §3/§4.3): every opcode after the first byte of a
// multi-byte instruction becomes Noop padding.
func decodeInstructions(code []byte) ([]Instruction, error) {
	out := make([]Instruction, len(code))
	for i := range out {
		out[i] = Instruction{Op: OpNoop}
	}

	o := 0
	for o < len(code) {
		raw := code[o]
		op, ok := rawOpcode[raw]
		if !ok || op == OpFaload_placeholder {
			return nil, newFatal(errDecode, fmt.Sprintf("unrecognized opcode 0x%02x at offset %d", raw, o))
		}

		instr := Instruction{Op: op, Offset: o}
		width, err := decodeOperands(code, o, raw, &instr)
		if err != nil {
			return nil, err
		}
		instr.Width = width

		if o+width > len(code) {
			return nil, newFatal(errDecode, fmt.Sprintf("truncated instruction at offset %d", o))
		}
		out[o] = instr
		for k := o + 1; k < o+width; k++ {
			out[k] = Instruction{Op: OpNoop, Offset: k}
		}
		o += width
	}
	return out, nil
}

// decodeOperands fills in instr's operand fields and returns the
// instruction's total byte width. `raw` is the wire opcode byte (needed to
// distinguish e.g. iload_0 from iload, which share an Op but not a width).
func decodeOperands(code []byte, o int, raw byte, instr *Instruction) (int, error) {
	switch instr.Op {
	case OpAconstNull, OpPop, OpDup,
		OpIadd, OpLadd, OpFadd, OpIsub, OpLsub, OpFsub,
		OpImul, OpLmul, OpFmul, OpIdiv, OpLdiv, OpFdiv, OpIrem, OpLrem,
		OpLcmp, OpFcmpg, OpFcmpl,
		OpIreturn, OpAreturn, OpReturn,
		OpIaload, OpLaload, OpAaload, OpBaload,
		OpIastore, OpLastore, OpAastore, OpBastore:
		return 1, nil

	case OpIconst:
		instr.ConstVal = int32(raw) - 0x03 // iconst_m1(0x02)->-1 .. iconst_5(0x08)->5
		return 1, nil
	case OpLconst:
		instr.ConstVal = int32(raw) - 0x09
		return 1, nil
	case OpFconst:
		instr.ConstVal = int32(raw) - 0x0b
		return 1, nil
	case OpDconst:
		instr.ConstVal = int32(raw) - 0x0e
		return 1, nil

	case OpBipush:
		instr.IntArg = int32(int8(code[o+1])) // signed 8-bit (spec.md §4.3)
		return 2, nil
	case OpSipush:
		v, _, err := readNAsUint(code, o+1, 2)
		if err != nil {
			return 0, err
		}
		instr.IntArg = int32(int16(v))
		return 3, nil

	case OpLdc:
		v, _, err := readNAsUint(code, o+1, 1)
		if err != nil {
			return 0, err
		}
		instr.CPIndex = int(v)
		return 2, nil
	case OpLdc2W:
		v, _, err := readNAsUint(code, o+1, 2)
		if err != nil {
			return 0, err
		}
		instr.CPIndex = int(v)
		return 3, nil

	case OpIload, OpLload, OpFload, OpDload, OpAload:
		if raw >= 0x1a { // the _N short forms
			instr.LocalIdx = shortFormLocalIndex(raw, instr.Op)
			return 1, nil
		}
		v, _, err := readNAsUint(code, o+1, 1)
		if err != nil {
			return 0, err
		}
		instr.LocalIdx = int(v)
		return 2, nil

	case OpIstore, OpLstore, OpFstore, OpDstore, OpAstore:
		if raw >= 0x3b {
			instr.LocalIdx = shortFormLocalIndex(raw, instr.Op)
			return 1, nil
		}
		v, _, err := readNAsUint(code, o+1, 1)
		if err != nil {
			return 0, err
		}
		instr.LocalIdx = int(v)
		return 2, nil

	case OpIinc:
		localIdx, _, err := readNAsUint(code, o+1, 1)
		if err != nil {
			return 0, err
		}
		instr.LocalIdx = int(localIdx)
		instr.IntArg = int32(int8(code[o+2]))
		return 3, nil

	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle,
		OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple,
		OpGoto:
		v, _, err := readNAsUint(code, o+1, 2)
		if err != nil {
			return 0, err
		}
		offset := int32(int16(v))
		instr.TakenTarget = int((int32(o) + offset) & 0xFFFF)
		instr.NotTakenTarget = o + 3
		return 3, nil

	case OpGetstatic, OpPutstatic, OpGetfield, OpPutfield,
		OpNew, OpAnewarray, OpInvokevirtual, OpInvokespecial, OpInvokestatic:
		v, _, err := readNAsUint(code, o+1, 2)
		if err != nil {
			return 0, err
		}
		instr.CPIndex = int(v)
		return 3, nil

	case OpNewarray:
		v, _, err := readNAsUint(code, o+1, 1)
		if err != nil {
			return 0, err
		}
		instr.IntArg = int32(v)
		return 2, nil

	case OpMultianewarray:
		cpIdx, _, err := readNAsUint(code, o+1, 2)
		if err != nil {
			return 0, err
		}
		dims, _, err := readNAsUint(code, o+3, 1)
		if err != nil {
			return 0, err
		}
		instr.CPIndex = int(cpIdx)
		instr.Dims = int(dims)
		return 4, nil

	case OpLookupswitch:
		return decodeLookupswitch(code, o, instr)

	default:
		return 0, newFatal(errDecode, fmt.Sprintf("decoder has no width rule for op %d at offset %d", instr.Op, o))
	}
}

func shortFormLocalIndex(raw byte, op Op) int {
	switch op {
	case OpIload, OpIstore:
		base := byte(0x1a)
		if op == OpIstore {
			base = 0x3b
		}
		return int(raw - base)
	case OpLload, OpLstore:
		base := byte(0x1e)
		if op == OpLstore {
			base = 0x3f
		}
		return int(raw - base)
	case OpFload, OpFstore:
		base := byte(0x22)
		if op == OpFstore {
			base = 0x43
		}
		return int(raw - base)
	case OpDload, OpDstore:
		base := byte(0x26)
		if op == OpDstore {
			base = 0x47
		}
		return int(raw - base)
	case OpAload, OpAstore:
		base := byte(0x2a)
		if op == OpAstore {
			base = 0x4b
		}
		return int(raw - base)
	}
	return 0
}

// decodeLookupswitch reads the 4-byte default delta, 4-byte npairs, then
// npairs (key, offset) pairs, padding the rest of the span with Noop
// (spec.md §4.3).
func decodeLookupswitch(code []byte, o int, instr *Instruction) (int, error) {
	// The switch's own operand bytes are not byte-aligned to a fixed
	// boundary by this engine (the real class file format 4-byte-aligns
	// them after the opcode; original_source's implementation does not
	// reproduce that padding, and neither does this one — there is no
	// verifier or javac-produced input we need to interoperate with).
	cur := o + 1
	defaultDelta, cur, err := readNAsUint(code, cur, 4)
	if err != nil {
		return 0, err
	}
	npairs, cur, err := readNAsUint(code, cur, 4)
	if err != nil {
		return 0, err
	}

	instr.Switch = append(instr.Switch, LookupswitchPair{
		HasKey: false,
		Target: int((int32(o) + int32(defaultDelta)) & 0xFFFF),
	})

	for i := uint32(0); i < npairs; i++ {
		var key, offset uint32
		key, cur, err = readNAsUint(code, cur, 4)
		if err != nil {
			return 0, err
		}
		offset, cur, err = readNAsUint(code, cur, 4)
		if err != nil {
			return 0, err
		}
		instr.Switch = append(instr.Switch, LookupswitchPair{
			HasKey: true,
			Key:    int32(key),
			Target: int((int32(o) + int32(offset)) & 0xFFFF),
		})
	}

	return cur - o, nil
}

// opName renders an Op for disassembly/debug-trace output.
func opName(op Op) string {
	names := map[Op]string{
		OpNoop: "noop", OpAconstNull: "aconst_null", OpIconst: "iconst", OpLconst: "lconst",
		OpFconst: "fconst", OpDconst: "dconst", OpBipush: "bipush", OpSipush: "sipush",
		OpLdc: "ldc", OpLdc2W: "ldc2_w",
		OpIload: "iload", OpLload: "lload", OpFload: "fload", OpDload: "dload", OpAload: "aload",
		OpIaload: "iaload", OpLaload: "laload", OpAaload: "aaload", OpBaload: "baload",
		OpIstore: "istore", OpLstore: "lstore", OpFstore: "fstore", OpDstore: "dstore", OpAstore: "astore",
		OpIastore: "iastore", OpLastore: "lastore", OpAastore: "aastore", OpBastore: "bastore",
		OpPop: "pop", OpDup: "dup",
		OpIadd: "iadd", OpLadd: "ladd", OpFadd: "fadd",
		OpIsub: "isub", OpLsub: "lsub", OpFsub: "fsub",
		OpImul: "imul", OpLmul: "lmul", OpFmul: "fmul",
		OpIdiv: "idiv", OpLdiv: "ldiv", OpFdiv: "fdiv",
		OpIrem: "irem", OpLrem: "lrem", OpIinc: "iinc",
		OpLcmp: "lcmp", OpFcmpg: "fcmpg", OpFcmpl: "fcmpl",
		OpIfeq: "ifeq", OpIfne: "ifne", OpIflt: "iflt", OpIfge: "ifge", OpIfgt: "ifgt", OpIfle: "ifle",
		OpIfIcmpeq: "if_icmpeq", OpIfIcmpne: "if_icmpne", OpIfIcmplt: "if_icmplt",
		OpIfIcmpge: "if_icmpge", OpIfIcmpgt: "if_icmpgt", OpIfIcmple: "if_icmple",
		OpGoto: "goto", OpLookupswitch: "lookupswitch",
		OpIreturn: "ireturn", OpAreturn: "areturn", OpReturn: "return",
		OpGetstatic: "getstatic", OpPutstatic: "putstatic", OpGetfield: "getfield", OpPutfield: "putfield",
		OpNew: "new", OpNewarray: "newarray", OpAnewarray: "anewarray", OpMultianewarray: "multianewarray",
		OpInvokevirtual: "invokevirtual", OpInvokespecial: "invokespecial", OpInvokestatic: "invokestatic",
	}
	if n, ok := names[op]; ok {
		return n
	}
	return fmt.Sprintf("op(%d)", op)
}
