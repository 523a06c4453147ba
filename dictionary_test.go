package stringdict

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringDictionaryInsertAndFinalize(t *testing.T) {
	d := newStringDictionary()

	var pre []int32
	for _, s := range []string{"pear", "apple", "pear", "fig", "", "apple", "banana"} {
		idx, err := d.Insert([]byte(s))
		require.NoError(t, err)
		pre = append(pre, idx)
	}
	require.Equal(t, []int32{0, 1, 0, 2, 3, 1, 4}, pre)
	require.Equal(t, 5, d.Count())
	require.False(t, d.Frozen())

	mapping, err := d.FinalizeSorted()
	require.NoError(t, err)
	require.True(t, d.Frozen())

	// "", apple, banana, fig, pear
	require.Equal(t, []int32{4, 1, 3, 0, 2}, mapping)
	require.Equal(t, []byte("applebananafigpear"), d.Blob())
	require.Equal(t, []int{0, 0, 5, 11, 14, 18}, d.Offsets())

	for i, s := range []string{"", "apple", "banana", "fig", "pear"} {
		v, err := d.ValueAt(i)
		require.NoError(t, err)
		require.Equal(t, s, string(v))
	}

	_, err = d.Insert([]byte("kiwi"))
	require.ErrorIs(t, err, ErrDictionaryState)
	_, err = d.FinalizeSorted()
	require.ErrorIs(t, err, ErrDictionaryState)
}

func TestStringDictionaryEmptyEntry(t *testing.T) {
	d := newStringDictionary()
	_, err := d.Insert([]byte{})
	require.NoError(t, err)
	_, err = d.FinalizeSorted()
	require.NoError(t, err)

	persisted, err := NewStringDictionary(nil, []int{0, 0})
	require.NoError(t, err)

	for _, dict := range []*StringDictionary{d, persisted} {
		require.Equal(t, 1, dict.Count())
		v, err := dict.ValueAt(0)
		require.NoError(t, err)
		require.NotNil(t, v)
		require.Len(t, v, 0)
	}
}

func TestStringDictionarySortedInvariant(t *testing.T) {
	d := newStringDictionary()
	for i := 0; i < 65535; i++ {
		_, err := d.Insert([]byte(strconv.Itoa(i % 1000)))
		require.NoError(t, err)
	}
	require.Equal(t, 1000, d.Count())

	mapping, err := d.FinalizeSorted()
	require.NoError(t, err)
	require.Len(t, mapping, 1000)

	prev, err := d.ValueAt(0)
	require.NoError(t, err)
	for i := 1; i < d.Count(); i++ {
		curr, err := d.ValueAt(i)
		require.NoError(t, err)
		require.Equal(t, 1, bytes.Compare(curr, prev), "entry %d", i)
		prev = curr
	}

	// the insertion index of "123" is 123.
	v, err := d.ValueAt(int(mapping[123]))
	require.NoError(t, err)
	require.Equal(t, "123", string(v))
}

func TestStringDictionaryValueAtOutOfRange(t *testing.T) {
	d, err := NewStringDictionary([]byte("abc"), []int{0, 1, 2, 3})
	require.NoError(t, err)

	_, err = d.ValueAt(3)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = d.ValueAt(-1)
	require.ErrorIs(t, err, ErrOutOfRange)

	v, err := d.ValueAt(2)
	require.NoError(t, err)
	require.Equal(t, []byte("c"), v)
	// views are capped so appends never clobber the blob.
	require.Equal(t, 1, cap(v))
}

func TestNewStringDictionaryValidation(t *testing.T) {
	testData := []struct {
		Name    string
		Blob    string
		Offsets []int
		Err     bool
	}{
		{Name: "empty", Blob: "", Offsets: []int{0}},
		{Name: "sorted", Blob: "0110", Offsets: []int{0, 1, 2, 4}},
		{Name: "no offsets", Blob: "", Offsets: nil, Err: true},
		{Name: "not starting at zero", Blob: "ab", Offsets: []int{1, 2}, Err: true},
		{Name: "decreasing", Blob: "ab", Offsets: []int{0, 2, 1}, Err: true},
		{Name: "size mismatch", Blob: "abc", Offsets: []int{0, 1, 2}, Err: true},
		{Name: "unsorted", Blob: "ba", Offsets: []int{0, 1, 2}, Err: true},
		{Name: "duplicate", Blob: "aa", Offsets: []int{0, 1, 2}, Err: true},
	}

	for _, tt := range testData {
		t.Run(tt.Name, func(t *testing.T) {
			d, err := NewStringDictionary([]byte(tt.Blob), tt.Offsets)
			if tt.Err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.True(t, d.Frozen())
		})
	}
}

func TestStringDictionarySearch(t *testing.T) {
	d := newStringDictionary()
	for _, s := range []string{"delta", "alpha", "charlie", "bravo"} {
		_, err := d.Insert([]byte(s))
		require.NoError(t, err)
	}

	_, ok := d.Search([]byte("alpha"))
	require.False(t, ok, "search needs a finalized dictionary")

	_, err := d.FinalizeSorted()
	require.NoError(t, err)

	rank, ok := d.Search([]byte("charlie"))
	require.True(t, ok)
	require.Equal(t, 2, rank)

	rank, ok = d.Search([]byte("bz"))
	require.False(t, ok)
	require.Equal(t, 2, rank)

	_, ok = d.Search([]byte("echo"))
	require.False(t, ok)
}

func TestStringDictionaryRefCount(t *testing.T) {
	alloc := newAllocTracker(0)
	d, err := NewStringDictionary([]byte("abc"), []int{0, 3})
	require.NoError(t, err)
	require.NoError(t, alloc.register(3))
	d.alloc = alloc

	d.Retain()
	d.Release()
	require.Equal(t, uint64(3), alloc.used())

	d.Release()
	require.Equal(t, uint64(0), alloc.used())

	require.Panics(t, d.Release)
}
