package jvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRawConstantPool assembles the on-wire bytes for a constant pool
// without going through classBuilder's full class-file machinery, to unit
// test parseConstantPool in isolation.
func buildRawConstantPool() []byte {
	var buf []byte
	// #1 Utf8 "Foo"
	buf = append(buf, tagUtf8, 0, 3, 'F', 'o', 'o')
	// #2 ClassRef -> #1
	buf = append(buf, tagClassRef, 0, 1)
	// #3 Utf8 "x"
	buf = append(buf, tagUtf8, 0, 1, 'x')
	// #4 Utf8 "I"
	buf = append(buf, tagUtf8, 0, 1, 'I')
	// #5 NameAndType(#3, #4)
	buf = append(buf, tagNameAndType, 0, 3, 0, 4)
	// #6 FieldRef(#2, #5)
	buf = append(buf, tagFieldRef, 0, 2, 0, 5)
	// #7/#8(null) Long 0x100000001
	buf = append(buf, tagLong, 0, 0, 0, 1, 0, 0, 0, 1)
	// #9 StringRef -> #1
	buf = append(buf, tagStringRef, 0, 1)
	return buf
}

func TestParseConstantPool(t *testing.T) {
	pool := NewStringPool()
	buf := buildRawConstantPool()
	// 9 logical indices (#1..#9, #8 being the phantom Long null slot), plus
	// index 0 => count 10
	cp, off, err := parseConstantPool(buf, 0, 10, pool)
	require.NoError(t, err)
	assert.Equal(t, len(buf), off)

	nameID, err := cp.utf8ID(1)
	require.NoError(t, err)
	assert.Equal(t, "Foo", pool.MustLookup(nameID))

	classNameID, err := cp.classRef(2)
	require.NoError(t, err)
	assert.Equal(t, "Foo", pool.MustLookup(classNameID))

	classNameID2, fieldNameID, err := cp.classAndFieldNames(6)
	require.NoError(t, err)
	assert.Equal(t, "Foo", pool.MustLookup(classNameID2))
	assert.Equal(t, "x", pool.MustLookup(fieldNameID))

	hi, lo, err := cp.longValue(7)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hi)
	assert.Equal(t, int32(1), lo)

	strID, err := cp.stringUtf8ID(9)
	require.NoError(t, err)
	assert.Equal(t, "Foo", pool.MustLookup(strID))

	idx, ok := cp.findIndexByUtf8("x")
	assert.True(t, ok)
	assert.Equal(t, 3, idx)
}

func TestConstantPool_DereferenceNull(t *testing.T) {
	pool := NewStringPool()
	cp := newConstantPool(pool)
	_, err := cp.at(0)
	assert.Error(t, err)
}

func TestConstantPool_WrongTag(t *testing.T) {
	pool := NewStringPool()
	buf := buildRawConstantPool()
	cp, _, err := parseConstantPool(buf, 0, 10, pool)
	require.NoError(t, err)

	_, err = cp.classRef(1) // #1 is Utf8, not ClassRef
	assert.ErrorIs(t, err, errResolution)
}
