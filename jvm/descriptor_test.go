package jvm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamWidths(t *testing.T) {
	cases := []struct {
		desc        string
		hasReceiver bool
		want        []int
	}{
		{"()V", false, nil},
		{"()V", true, []int{1}},
		{"(I)V", true, []int{1, 1}},
		{"(J)V", true, []int{1, 2}},
		{"(D)V", false, []int{2}},
		{"(Ljava/lang/String;)V", true, []int{1, 1}},
		{"(II)I", false, []int{1, 1}},
		{"(IJLjava/lang/Object;)V", true, []int{1, 1, 2, 1}},
		{"([I)V", false, []int{1}},
	}
	for _, c := range cases {
		got := paramWidths(c.desc, c.hasReceiver)
		assert.Equal(t, c.want, got, "desc=%s hasReceiver=%v", c.desc, c.hasReceiver)
	}
}
