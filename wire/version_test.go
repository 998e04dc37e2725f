package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNegotiatePicksMaxIntersection(t *testing.T) {
	v, ok := Negotiate([]Version{1, 2}, []Version{1})
	assert.True(t, ok)
	assert.Equal(t, Version(1), v)
}

func TestNegotiateFailsOnEmptyIntersection(t *testing.T) {
	_, ok := Negotiate([]Version{2}, []Version{1})
	assert.False(t, ok)
}

func TestNegotiateOrderIndependent(t *testing.T) {
	a := []Version{3, 1, 5}
	b := []Version{5, 3, 2}

	v1, ok1 := Negotiate(a, b)
	v2, ok2 := Negotiate(b, a)

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, v1, v2)
	assert.Equal(t, Version(5), v1)
}
