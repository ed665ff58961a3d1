package dict

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashdb/flashdb/internal/value"
)

func TestInsertFindDelete(t *testing.T) {
	d := New()
	v := value.New(value.TypeString, []byte("v1"))

	assert.True(t, d.Insert("k1", v))
	assert.False(t, d.Insert("k1", v), "re-inserting an existing key must fail")

	got, ok := d.Find("k1")
	require.True(t, ok)
	assert.Same(t, v, got)

	removed, ok := d.Delete("k1")
	require.True(t, ok)
	assert.Same(t, v, removed)

	_, ok = d.Find("k1")
	assert.False(t, ok)
}

func TestSetOverwritesAndReportsPrevious(t *testing.T) {
	d := New()
	v1 := value.New(value.TypeString, []byte("v1"))
	v2 := value.New(value.TypeString, []byte("v2"))

	prev, existed := d.Set("k", v1)
	assert.Nil(t, prev)
	assert.False(t, existed)

	prev, existed = d.Set("k", v2)
	assert.Same(t, v1, prev)
	assert.True(t, existed)

	got, _ := d.Find("k")
	assert.Same(t, v2, got)
}

func TestSizeTracksInsertAndDelete(t *testing.T) {
	d := New()
	for i := 0; i < 50; i++ {
		d.Insert(fmt.Sprintf("key-%d", i), value.New(value.TypeString, nil))
	}
	assert.EqualValues(t, 50, d.Size())

	for i := 0; i < 20; i++ {
		d.Delete(fmt.Sprintf("key-%d", i))
	}
	assert.EqualValues(t, 30, d.Size())
}

func TestRandomReturnsOnlyPresentKeysOrEmpty(t *testing.T) {
	d := New()
	_, _, ok := d.Random()
	assert.False(t, ok)

	keys := make(map[string]bool)
	for i := 0; i < 10; i++ {
		k := fmt.Sprintf("k%d", i)
		keys[k] = true
		d.Insert(k, value.New(value.TypeString, nil))
	}
	k, v, ok := d.Random()
	require.True(t, ok)
	assert.True(t, keys[k])
	assert.NotNil(t, v)
}

func TestScanVisitsEveryKeyExactlyOncePerCycle(t *testing.T) {
	d := New()
	want := make(map[string]bool)
	for i := 0; i < 200; i++ {
		k := fmt.Sprintf("key-%d", i)
		want[k] = true
		d.Insert(k, value.New(value.TypeString, nil))
	}

	seen := make(map[string]bool)
	var cursor uint64
	for {
		cursor = d.Scan(cursor, func(key string, v *value.Value) bool {
			seen[key] = true
			return true
		})
		if cursor == 0 {
			break
		}
	}

	assert.Equal(t, want, seen)
}

func TestIterSafeStopsEarlyWhenCallbackReturnsFalse(t *testing.T) {
	d := New()
	for i := 0; i < 5; i++ {
		d.Insert(fmt.Sprintf("k%d", i), value.New(value.TypeString, nil))
	}
	count := 0
	d.IterSafe(func(key string, v *value.Value) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}
