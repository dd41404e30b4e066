package jvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadNAsUint(t *testing.T) {
	buf := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0x01}

	v, off, err := readNAsUint(buf, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), v)
	assert.Equal(t, 4, off)

	v2, off2, err := readNAsUint(buf, off, 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v2)
	assert.Equal(t, 5, off2)
}

func TestReadNAsUint_Truncated(t *testing.T) {
	_, _, err := readNAsUint([]byte{0x00, 0x01}, 0, 4)
	assert.Error(t, err)
}

func TestReadNAsBytes(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	got, off, err := readNAsBytes(buf, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 4}, got)
	assert.Equal(t, 4, off)
}
