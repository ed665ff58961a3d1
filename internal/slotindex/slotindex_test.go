package slotindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSlotIsStableAndBounded(t *testing.T) {
	s1 := HashSlot("foo")
	s2 := HashSlot("foo")
	assert.Equal(t, s1, s2)
	assert.Less(t, s1, uint16(SlotCount))
}

func TestHashTagGroupsRelatedKeys(t *testing.T) {
	a := HashSlot("user:{1000}:profile")
	b := HashSlot("user:{1000}:sessions")
	assert.Equal(t, a, b, "keys sharing a hash tag must land on the same slot")
}

func TestHashTagEmptyBracesFallsBackToWholeKey(t *testing.T) {
	assert.Equal(t, "foo{}bar", hashTag("foo{}bar"))
}

func TestAddDelAndCount(t *testing.T) {
	idx := New()
	slot := HashSlot("k1")
	idx.Add("k1")
	assert.Equal(t, 1, idx.CountInSlot(slot))
	assert.Contains(t, idx.KeysInSlot(slot), "k1")
	assert.Equal(t, 1, idx.Size())

	idx.Del("k1")
	assert.Equal(t, 0, idx.CountInSlot(slot))
	assert.Equal(t, 0, idx.Size())
}

func TestAddIsIdempotent(t *testing.T) {
	idx := New()
	idx.Add("k1")
	idx.Add("k1")
	assert.Equal(t, 1, idx.Size())
}

func TestRebuildReplacesContents(t *testing.T) {
	idx := New()
	idx.Add("stale")
	require.Equal(t, 1, idx.Size())

	idx.Rebuild(func(yield func(string) bool) {
		yield("fresh1")
		yield("fresh2")
	})

	assert.Equal(t, 2, idx.Size())
	assert.Equal(t, 0, idx.CountInSlot(HashSlot("stale")))
}
