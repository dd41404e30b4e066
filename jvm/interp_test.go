package jvm

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeClass hand-assembles bytes via buildClassFile and drops them at
// <dir>/<name>.class, the on-disk layout loadClassFile expects.
func writeClass(t *testing.T, dir, name string, classBytes []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".class"), classBytes, 0o644))
}

func u16b(v int) (byte, byte) { return byte(v >> 8), byte(v) }

// TestInterp_PrintSumOfTwoInts mirrors the simplest println scenario: push
// System.out, compute 1+2, print the int result.
func TestInterp_PrintSumOfTwoInts(t *testing.T) {
	dir := t.TempDir()

	b := newClassBuilder()
	sysOut := b.fieldRef("java/lang/System", "out", "Ljava/io/PrintStream;")
	printlnRef := b.methodRef("java/io/PrintStream", "println", "(I)V")
	shi, slo := u16b(sysOut)
	phi, plo := u16b(printlnRef)

	code := []byte{
		0xb2, shi, slo, // getstatic System.out
		0x04,                 // iconst_1
		0x05,                 // iconst_2
		0x60,                 // iadd
		0xb6, phi, plo, // invokevirtual println(I)V
		0xb1, // return
	}
	classBytes := buildClassFile(b, "Main", nil, []methodSpec{
		{name: "main", desc: "()V", maxStack: 3, maxLocals: 0, code: code},
	})
	writeClass(t, dir, "Main", classBytes)

	var out bytes.Buffer
	interp := NewInterp(dir, &out, DebugOff)
	require.NoError(t, interp.Run("Main"))
	assert.Equal(t, "3\n", out.String())
}

// TestInterp_LoopSumsOneToTen exercises iinc, if_icmple, and goto together
// in a plain for-loop, with branch targets computed by hand.
func TestInterp_LoopSumsOneToTen(t *testing.T) {
	dir := t.TempDir()

	b := newClassBuilder()
	sysOut := b.fieldRef("java/lang/System", "out", "Ljava/io/PrintStream;")
	printlnRef := b.methodRef("java/io/PrintStream", "println", "(I)V")
	shi, slo := u16b(sysOut)
	phi, plo := u16b(printlnRef)

	code := []byte{
		0x03,             // 0: iconst_0            sum=0
		0x3b,             // 1: istore_0
		0x04,             // 2: iconst_1            i=1
		0x3c,             // 3: istore_1
		0xa7, 0x00, 0x0a, // 4: goto 14 (CHECK)
		0x1a,             // 7: LOOP: iload_0
		0x1b,             // 8: iload_1
		0x60,             // 9: iadd
		0x3b,             // 10: istore_0           sum += i
		0x84, 0x01, 0x01, // 11: iinc 1, 1          i++
		0x1b,                   // 14: CHECK: iload_1
		0x10, 0x0a,             // 15: bipush 10
		0xa4, 0xff, 0xf6,       // 17: if_icmple -10 -> 7 (LOOP)
		0xb2, shi, slo,         // 20: getstatic System.out
		0x1a,                   // 23: iload_0
		0xb6, phi, plo,         // 24: invokevirtual println(I)V
		0xb1,                   // 27: return
	}
	require.Equal(t, 28, len(code))

	classBytes := buildClassFile(b, "Main", nil, []methodSpec{
		{name: "main", desc: "()V", maxStack: 3, maxLocals: 2, code: code},
	})
	writeClass(t, dir, "Main", classBytes)

	var out bytes.Buffer
	interp := NewInterp(dir, &out, DebugOff)
	require.NoError(t, interp.Run("Main"))
	assert.Equal(t, "55\n", out.String())
}

// TestInterp_ObjectFieldRoundTrip exercises new/dup/putfield/getfield
// against a second class file, confirming putfield consumes its objectref
// (no implicit re-push) and the dup'd copy survives for the later getfield.
func TestInterp_ObjectFieldRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ptBuilder := newClassBuilder()
	ptBytes := buildClassFile(ptBuilder, "Pt", []fieldSpec{{name: "x", desc: "I"}}, nil)
	writeClass(t, dir, "Pt", ptBytes)

	b := newClassBuilder()
	sysOut := b.fieldRef("java/lang/System", "out", "Ljava/io/PrintStream;")
	printlnRef := b.methodRef("java/io/PrintStream", "println", "(I)V")
	ptClass := b.classRef("Pt")
	ptField := b.fieldRef("Pt", "x", "I")
	shi, slo := u16b(sysOut)
	phi, plo := u16b(printlnRef)
	chi, clo := u16b(ptClass)
	fhi, flo := u16b(ptField)

	code := []byte{
		0xb2, shi, slo, // 0: getstatic System.out
		0xbb, chi, clo, // 3: new Pt
		0x59,           // 6: dup
		0x10, 0x07,     // 7: bipush 7
		0xb5, fhi, flo, // 9: putfield Pt.x     (consumes value + objectref copy)
		0xb4, fhi, flo, // 12: getfield Pt.x    (consumes the surviving objectref copy)
		0xb6, phi, plo, // 15: invokevirtual println(I)V
		0xb1, // 18: return
	}
	require.Equal(t, 19, len(code))

	classBytes := buildClassFile(b, "Main", nil, []methodSpec{
		{name: "main", desc: "()V", maxStack: 4, maxLocals: 0, code: code},
	})
	writeClass(t, dir, "Main", classBytes)

	var out bytes.Buffer
	interp := NewInterp(dir, &out, DebugOff)
	require.NoError(t, interp.Run("Main"))
	assert.Equal(t, "7\n", out.String())
}

// TestInterp_LookupswitchDefault exercises a lookupswitch whose key matches
// neither case, falling through to the default arm.
func TestInterp_LookupswitchDefault(t *testing.T) {
	dir := t.TempDir()

	b := newClassBuilder()
	sysOut := b.fieldRef("java/lang/System", "out", "Ljava/io/PrintStream;")
	printlnRef := b.methodRef("java/io/PrintStream", "println", "(Ljava/lang/String;)V")
	one := b.stringRef("one")
	two := b.stringRef("two")
	other := b.stringRef("other")
	shi, slo := u16b(sysOut)
	phi, plo := u16b(printlnRef)

	// 5: lookupswitch, opcode(1)+default(4)+npairs(4)+2*(key(4)+target(4))
	// = 25 bytes, spanning offsets 5..29 with no alignment padding.
	code := []byte{
		0xb2, shi, slo, // 0: getstatic System.out
		0x10, 0x03, // 3: bipush 3
		0xab,
		0x00, 0x00, 0x00, 0x23, // default delta 35 -> offset 40
		0x00, 0x00, 0x00, 0x02, // npairs = 2
		0x00, 0x00, 0x00, 0x01, // key 1
		0x00, 0x00, 0x00, 0x19, // delta 25 -> offset 30
		0x00, 0x00, 0x00, 0x02, // key 2
		0x00, 0x00, 0x00, 0x1e, // delta 30 -> offset 35
	}
	code = append(code, 0x12, byte(one)) // 30: CASE1: ldc "one"
	code = append(code, 0xa7, 0x00, 0x0a) // 32: goto 42 (END)
	code = append(code, 0x12, byte(two)) // 35: CASE2: ldc "two"
	code = append(code, 0xa7, 0x00, 0x05) // 37: goto 42 (END)
	code = append(code, 0x12, byte(other)) // 40: DEFAULT: ldc "other"
	code = append(code, 0xb6, phi, plo)    // 42: END: invokevirtual println(Ljava/lang/String;)V
	code = append(code, 0xb1)              // 45: return
	require.Equal(t, 46, len(code))

	classBytes := buildClassFile(b, "Main", nil, []methodSpec{
		{name: "main", desc: "()V", maxStack: 2, maxLocals: 0, code: code},
	})
	writeClass(t, dir, "Main", classBytes)

	var out bytes.Buffer
	interp := NewInterp(dir, &out, DebugOff)
	require.NoError(t, interp.Run("Main"))
	assert.Equal(t, "other\n", out.String())
}

// TestInterp_StaticLongAcrossClinit exercises a static long field written
// by <clinit> before main ever runs, and read/printed across the
// two-slot-long convention.
func TestInterp_StaticLongAcrossClinit(t *testing.T) {
	dir := t.TempDir()

	b := newClassBuilder()
	sysOut := b.fieldRef("java/lang/System", "out", "Ljava/io/PrintStream;")
	printlnRef := b.methodRef("java/io/PrintStream", "println", "(J)V")
	longConstIdx := b.longConst(0x100000001) // 2^32 + 1 = 4294967297
	vField := b.fieldRef("Main", "v", "J")
	shi, slo := u16b(sysOut)
	phi, plo := u16b(printlnRef)
	lhi, llo := u16b(longConstIdx)
	vhi, vlo := u16b(vField)

	clinit := []byte{
		0x14, lhi, llo, // 0: ldc2_w longConst
		0xb3, vhi, vlo, // 3: putstatic Main.v
		0xb1, // 6: return
	}
	mainCode := []byte{
		0xb2, shi, slo, // 0: getstatic System.out
		0xb2, vhi, vlo, // 3: getstatic Main.v
		0xb6, phi, plo, // 6: invokevirtual println(J)V
		0xb1, // 9: return
	}

	classBytes := buildClassFile(b,
		"Main",
		[]fieldSpec{{name: "v", desc: "J", static: true}},
		[]methodSpec{
			{name: "<clinit>", desc: "()V", maxStack: 2, maxLocals: 0, code: clinit},
			{name: "main", desc: "()V", maxStack: 3, maxLocals: 0, code: mainCode},
		},
	)
	writeClass(t, dir, "Main", classBytes)

	var out bytes.Buffer
	interp := NewInterp(dir, &out, DebugOff)
	require.NoError(t, interp.Run("Main"))
	assert.Equal(t, "4294967297\n", out.String())
}

// TestInterp_MissingEntryClass exercises the load-failure path of Run when
// the entry class file does not exist on disk.
func TestInterp_MissingEntryClass(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	interp := NewInterp(dir, &out, DebugOff)
	err := interp.Run("DoesNotExist")
	assert.ErrorIs(t, err, errLinkage)
}
