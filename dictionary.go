package stringdict

import (
	"bytes"
	"sort"
	"sync/atomic"

	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
)

const initialDictionaryCapacity = 1024

// StringDictionary is a set of distinct byte strings stored as one blob plus
// an offset table of length Count()+1, entry i being blob[offsets[i]:offsets[i+1]].
//
// A dictionary starts in building mode where Insert appends values in first
// seen order. FinalizeSorted reorders the entries into ascending byte order
// and freezes the dictionary; from then on it is immutable and may be shared
// by any number of batches and goroutines. Sharing is tracked with Retain and
// Release.
type StringDictionary struct {
	blob    []byte
	offsets []int

	indices *swiss.Map[string, int32]
	frozen  bool

	refs  int64
	alloc *allocTracker
}

// newStringDictionary returns an empty dictionary in building mode.
func newStringDictionary() *StringDictionary {
	return &StringDictionary{
		blob:    []byte{},
		offsets: []int{0},
		indices: swiss.NewMap[string, int32](initialDictionaryCapacity),
		refs:    1,
	}
}

// NewStringDictionary creates a frozen dictionary from a persisted blob and
// offset table. The entries must already be strictly ascending. The returned
// dictionary holds one reference.
func NewStringDictionary(blob []byte, offsets []int) (*StringDictionary, error) {
	if len(offsets) == 0 || offsets[0] != 0 {
		return nil, errors.New("dictionary: offset table must start with 0")
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, errors.Errorf("dictionary: offset %d (%d) is smaller than offset %d (%d)", i, offsets[i], i-1, offsets[i-1])
		}
	}
	if last := offsets[len(offsets)-1]; last != len(blob) {
		return nil, errors.Errorf("dictionary: last offset %d does not match blob size %d", last, len(blob))
	}
	if blob == nil {
		blob = []byte{}
	}

	d := &StringDictionary{
		blob:    blob,
		offsets: offsets,
		frozen:  true,
		refs:    1,
	}
	for i := 1; i < d.Count(); i++ {
		if bytes.Compare(d.entry(i-1), d.entry(i)) >= 0 {
			return nil, errors.Errorf("dictionary: entry %d is not greater than entry %d", i, i-1)
		}
	}

	return d, nil
}

func (d *StringDictionary) entry(i int) []byte {
	return d.blob[d.offsets[i]:d.offsets[i+1]:d.offsets[i+1]]
}

// Insert adds value unless an equal value is already present and returns the
// insertion index of the value. The bytes are copied.
func (d *StringDictionary) Insert(value []byte) (int32, error) {
	if d.frozen {
		return 0, errors.Wrap(ErrDictionaryState, "insert into a finalized dictionary")
	}

	key := string(value)
	if idx, ok := d.indices.Get(key); ok {
		return idx, nil
	}

	idx := int32(d.Count())
	d.blob = append(d.blob, value...)
	d.offsets = append(d.offsets, len(d.blob))
	d.indices.Put(key, idx)
	return idx, nil
}

// lookup returns the insertion index of value while building.
func (d *StringDictionary) lookup(value []byte) (int32, bool) {
	if d.indices == nil {
		return 0, false
	}
	return d.indices.Get(string(value))
}

// FinalizeSorted sorts the entries, freezes the dictionary and returns a
// mapping from insertion index to final rank. Indices handed out by Insert
// must be translated through the mapping before they are persisted.
func (d *StringDictionary) FinalizeSorted() ([]int32, error) {
	if d.frozen {
		return nil, errors.Wrap(ErrDictionaryState, "dictionary is already finalized")
	}

	n := d.Count()
	order := make([]int32, n)
	for i := range order {
		order[i] = int32(i)
	}
	sort.Slice(order, func(a, b int) bool {
		return bytes.Compare(d.entry(int(order[a])), d.entry(int(order[b]))) < 0
	})

	blob := make([]byte, 0, len(d.blob))
	offsets := make([]int, 1, n+1)
	mapping := make([]int32, n)
	for rank, old := range order {
		blob = append(blob, d.entry(int(old))...)
		offsets = append(offsets, len(blob))
		mapping[old] = int32(rank)
	}

	d.blob = blob
	d.offsets = offsets
	d.indices = nil
	d.frozen = true

	return mapping, nil
}

// Frozen reports whether FinalizeSorted has been called.
func (d *StringDictionary) Frozen() bool {
	return d.frozen
}

// Count returns the number of entries.
func (d *StringDictionary) Count() int {
	return len(d.offsets) - 1
}

// Size returns the size of the blob in bytes.
func (d *StringDictionary) Size() int {
	return len(d.blob)
}

// ValueAt returns the entry with the given rank. The returned slice is a view
// into the dictionary and must not be modified.
func (d *StringDictionary) ValueAt(rank int) ([]byte, error) {
	if rank < 0 || rank >= d.Count() {
		return nil, errors.Wrapf(ErrOutOfRange, "dictionary rank %d, count is %d", rank, d.Count())
	}
	return d.entry(rank), nil
}

// Search returns the rank of value in a finalized dictionary.
func (d *StringDictionary) Search(value []byte) (int, bool) {
	if !d.frozen {
		return 0, false
	}
	n := d.Count()
	i := sort.Search(n, func(i int) bool {
		return bytes.Compare(d.entry(i), value) >= 0
	})
	return i, i < n && bytes.Equal(d.entry(i), value)
}

// Blob returns the concatenated entries. It must not be modified.
func (d *StringDictionary) Blob() []byte {
	return d.blob
}

// Offsets returns the offset table. It must not be modified.
func (d *StringDictionary) Offsets() []int {
	return d.offsets
}

// Retain adds a reference.
func (d *StringDictionary) Retain() {
	atomic.AddInt64(&d.refs, 1)
}

// Release removes a reference. When the last reference is gone the memory of
// the blob is returned to the reader's memory budget.
func (d *StringDictionary) Release() {
	refs := atomic.AddInt64(&d.refs, -1)
	if refs < 0 {
		panic("stringdict: dictionary released too often")
	}
	if refs == 0 {
		d.alloc.release(uint64(len(d.blob)))
	}
}
