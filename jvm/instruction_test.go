package jvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInstructions_LengthInvariant(t *testing.T) {
	// iconst_1(1) sipush(3) goto(3) return(1) = 8 bytes
	code := []byte{0x04, 0x11, 0x00, 0x05, 0xa7, 0x00, 0x02, 0xb1}
	instrs, err := decodeInstructions(code)
	require.NoError(t, err)
	assert.Len(t, instrs, len(code))
}

func TestDecodeInstructions_NoopPadding(t *testing.T) {
	// sipush 0x0102 at offset 0 (3 bytes), then return at offset 3.
	code := []byte{0x11, 0x01, 0x02, 0xb1}
	instrs, err := decodeInstructions(code)
	require.NoError(t, err)

	require.Equal(t, OpSipush, instrs[0].Op)
	assert.Equal(t, 3, instrs[0].Width)
	assert.Equal(t, int32(0x0102), instrs[0].IntArg)

	assert.Equal(t, OpNoop, instrs[1].Op)
	assert.Equal(t, OpNoop, instrs[2].Op)
	assert.Equal(t, OpReturn, instrs[3].Op)
}

func TestDecodeInstructions_UnrecognizedOpcode(t *testing.T) {
	_, err := decodeInstructions([]byte{0xff})
	assert.ErrorIs(t, err, errDecode)
}

func TestDecodeInstructions_Truncated(t *testing.T) {
	// sipush needs 2 more bytes but only 1 is present.
	_, err := decodeInstructions([]byte{0x11, 0x00})
	assert.Error(t, err)
}

func TestDecodeOperands_IconstEncodesSignedRange(t *testing.T) {
	cases := []struct {
		raw  byte
		want int32
	}{
		{0x02, -1}, {0x03, 0}, {0x04, 1}, {0x05, 2}, {0x06, 3}, {0x07, 4}, {0x08, 5},
	}
	for _, c := range cases {
		instrs, err := decodeInstructions([]byte{c.raw})
		require.NoError(t, err)
		assert.Equal(t, OpIconst, instrs[0].Op)
		assert.Equal(t, c.want, instrs[0].ConstVal, "raw=0x%02x", c.raw)
	}
}

func TestDecodeOperands_LconstFconstDconst(t *testing.T) {
	instrs, err := decodeInstructions([]byte{0x09}) // lconst_0
	require.NoError(t, err)
	assert.Equal(t, int32(0), instrs[0].ConstVal)

	instrs, err = decodeInstructions([]byte{0x0c}) // fconst_1
	require.NoError(t, err)
	assert.Equal(t, int32(1), instrs[0].ConstVal)

	instrs, err = decodeInstructions([]byte{0x0f}) // dconst_1
	require.NoError(t, err)
	assert.Equal(t, int32(1), instrs[0].ConstVal)
}

func TestDecodeOperands_BipushSignExtends(t *testing.T) {
	instrs, err := decodeInstructions([]byte{0x10, 0xff}) // bipush -1
	require.NoError(t, err)
	assert.Equal(t, int32(-1), instrs[0].IntArg)
}

func TestDecodeOperands_ShortFormLocalIndex(t *testing.T) {
	instrs, err := decodeInstructions([]byte{0x1c}) // iload_2
	require.NoError(t, err)
	assert.Equal(t, OpIload, instrs[0].Op)
	assert.Equal(t, 2, instrs[0].LocalIdx)
	assert.Equal(t, 1, instrs[0].Width)

	instrs, err = decodeInstructions([]byte{0x3d}) // istore_2
	require.NoError(t, err)
	assert.Equal(t, OpIstore, instrs[0].Op)
	assert.Equal(t, 2, instrs[0].LocalIdx)
}

func TestDecodeOperands_WideFormLocalIndex(t *testing.T) {
	instrs, err := decodeInstructions([]byte{0x15, 0x07}) // iload 7
	require.NoError(t, err)
	assert.Equal(t, 7, instrs[0].LocalIdx)
	assert.Equal(t, 2, instrs[0].Width)
}

func TestDecodeOperands_BranchTargetWraparound(t *testing.T) {
	// goto at offset 0xFFFE with a +4 delta must wrap to 2, not 0x10002.
	// Exercised directly against decodeOperands since a full decode pass
	// would also have to decode 0xFFFE bytes of valid instructions leading
	// up to this offset, which isn't what this test is about.
	code := make([]byte, 0xFFFE+3)
	code[0xFFFE] = 0xa7
	code[0xFFFF] = 0x00
	code[0x10000] = 0x04

	instr := &Instruction{Op: OpGoto, Offset: 0xFFFE}
	width, err := decodeOperands(code, 0xFFFE, 0xa7, instr)
	require.NoError(t, err)
	assert.Equal(t, 3, width)
	assert.Equal(t, 2, instr.TakenTarget)
}

func TestDecodeOperands_IfIcmpleTargetsAndFallthrough(t *testing.T) {
	// if_icmple at offset 10, delta -4 -> target 6; fallthrough is 13.
	code := make([]byte, 13)
	code[10] = 0xa4
	code[11] = 0xff
	code[12] = 0xfc // -4 as int16

	instr := &Instruction{Op: OpIfIcmple, Offset: 10}
	width, err := decodeOperands(code, 10, 0xa4, instr)
	require.NoError(t, err)
	assert.Equal(t, 3, width)
	assert.Equal(t, 6, instr.TakenTarget)
	assert.Equal(t, 13, instr.NotTakenTarget)
}

func TestDecodeOperands_Iinc(t *testing.T) {
	instrs, err := decodeInstructions([]byte{0x84, 0x01, 0xff}) // iinc 1, -1
	require.NoError(t, err)
	assert.Equal(t, 1, instrs[0].LocalIdx)
	assert.Equal(t, int32(-1), instrs[0].IntArg)
	assert.Equal(t, 3, instrs[0].Width)
}

func TestDecodeOperands_Multianewarray(t *testing.T) {
	instrs, err := decodeInstructions([]byte{0xc5, 0x00, 0x05, 0x02})
	require.NoError(t, err)
	assert.Equal(t, 5, instrs[0].CPIndex)
	assert.Equal(t, 2, instrs[0].Dims)
	assert.Equal(t, 4, instrs[0].Width)
}

// TestDecodeLookupswitch exercises the engine's deliberately non-4-byte-
// aligned layout: opcode(1) + defaultDelta(4) + npairs(4) + npairs*(key(4)+target(4)).
func TestDecodeLookupswitch(t *testing.T) {
	var code []byte
	code = append(code, 0xab)                   // lookupswitch
	code = append(code, 0x00, 0x00, 0x00, 0x14)  // default delta -> offset 0+20=20
	code = append(code, 0x00, 0x00, 0x00, 0x02)  // npairs = 2
	code = append(code, 0x00, 0x00, 0x00, 0x01)  // key 1
	code = append(code, 0x00, 0x00, 0x00, 0x09)  // target offset 0+9=9
	code = append(code, 0x00, 0x00, 0x00, 0x02)  // key 2
	code = append(code, 0x00, 0x00, 0x00, 0x0e)  // target offset 0+14=14
	// len(code) == 25, comfortably past the highest target offset (20).

	instrs, err := decodeInstructions(code)
	require.NoError(t, err)
	got := instrs[0]
	require.Equal(t, OpLookupswitch, got.Op)
	require.Len(t, got.Switch, 3)

	assert.False(t, got.Switch[0].HasKey)
	assert.Equal(t, 20, got.Switch[0].Target)

	assert.True(t, got.Switch[1].HasKey)
	assert.Equal(t, int32(1), got.Switch[1].Key)
	assert.Equal(t, 9, got.Switch[1].Target)

	assert.True(t, got.Switch[2].HasKey)
	assert.Equal(t, int32(2), got.Switch[2].Key)
	assert.Equal(t, 14, got.Switch[2].Target)

	// opcode(1) + 4 + 4 + 2*(4+4) = 25 bytes, no alignment padding inserted.
	assert.Equal(t, 25, got.Width)
}

func TestOpName_KnownAndUnknown(t *testing.T) {
	assert.Equal(t, "iadd", opName(OpIadd))
	assert.Equal(t, "lookupswitch", opName(OpLookupswitch))
	assert.Contains(t, opName(Op(9999)), "op(")
}
