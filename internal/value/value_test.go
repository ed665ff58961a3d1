package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_OwnedSingleRef(t *testing.T) {
	v := New(TypeString, []byte("hello"))
	assert.False(t, v.IsShared())
	assert.EqualValues(t, 1, v.RefCount())
}

func TestRetainRelease(t *testing.T) {
	v := New(TypeString, []byte("x"))
	v.Retain()
	assert.EqualValues(t, 2, v.RefCount())
	assert.False(t, v.Release())
	assert.True(t, v.Release())
}

func TestSharedNeverReleases(t *testing.T) {
	v := NewShared(TypeString, []byte("shared"))
	assert.True(t, v.IsShared())
	v.Retain()
	assert.EqualValues(t, SharedSentinel, v.RefCount())
	assert.False(t, v.Release())
	assert.EqualValues(t, SharedSentinel, v.RefCount())
}

func TestDuplicateIsIndependentCopy(t *testing.T) {
	v := New(TypeString, []byte("abc"))
	dup, err := v.Duplicate()
	require.NoError(t, err)
	assert.NotSame(t, v, dup)
	assert.EqualValues(t, 1, dup.RefCount())
	assert.Equal(t, v.Type, dup.Type)

	orig := v.Payload.([]byte)
	copied := dup.Payload.([]byte)
	orig[0] = 'z'
	assert.NotEqual(t, orig[0], copied[0])
}

func TestStampMVCCIsMonotonic(t *testing.T) {
	v := New(TypeString, []byte("x"))
	first := v.MVCC()
	v.StampMVCC(first) // same timestamp must still advance
	second := v.MVCC()
	assert.Greater(t, second, first)
	v.StampMVCC(second - 1) // a stale timestamp must not move it backward
	assert.GreaterOrEqual(t, v.MVCC(), second)
}

func TestHasExpirationFlag(t *testing.T) {
	v := New(TypeString, []byte("x"))
	assert.False(t, v.HasExpiration())
	v.SetHasExpiration(true)
	assert.True(t, v.HasExpiration())
	v.SetHasExpiration(false)
	assert.False(t, v.HasExpiration())
}

func TestTouchLFUSaturates(t *testing.T) {
	v := New(TypeString, []byte("x"))
	always := func() float64 { return 0 }
	for i := 0; i < 1000; i++ {
		v.TouchLFU(0, 0, 1.0, always)
	}
	assert.EqualValues(t, 255, v.Access().LFUCounter)
}
