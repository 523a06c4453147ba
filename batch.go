package stringdict

import (
	"github.com/pkg/errors"
)

// BatchKind tells how the values of a ColumnBatch are held.
type BatchKind int

const (
	// BatchDirect holds plain values. It never has a dictionary attached.
	BatchDirect BatchKind = iota
	// BatchCompact holds a rank per row and a reference to a shared
	// dictionary. Values are views into the dictionary until Decode is
	// called.
	BatchCompact
)

func (k BatchKind) String() string {
	switch k {
	case BatchDirect:
		return "direct"
	case BatchCompact:
		return "compact"
	default:
		return "unknown"
	}
}

// ColumnBatch is a run of values of one character column. The accessors
// behave the same for both kinds, so a consumer that does not care about
// dictionaries can read any batch with ValueAt.
type ColumnBatch struct {
	kind    BatchKind
	numRows int

	// notNull is nil when the batch has no nulls.
	notNull []bool
	// index holds the rank per row of a compact batch, -1 for null rows.
	index []int32
	data  [][]byte

	dictionary *StringDictionary
	decoded    bool
	blob       []byte

	alloc    *allocTracker
	metrics  *Metrics
	released bool
}

func newDirectBatch(notNull []bool, data [][]byte) *ColumnBatch {
	return &ColumnBatch{
		kind:    BatchDirect,
		numRows: len(data),
		notNull: notNull,
		data:    data,
	}
}

// newCompactBatch builds a compact batch. On success the batch owns the
// caller's reference to dict.
func newCompactBatch(dict *StringDictionary, notNull []bool, index []int32) (*ColumnBatch, error) {
	data := make([][]byte, len(index))
	for i, rank := range index {
		if notNull != nil && !notNull[i] {
			continue
		}
		v, err := dict.ValueAt(int(rank))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
		data[i] = v
	}

	return &ColumnBatch{
		kind:       BatchCompact,
		numRows:    len(index),
		notNull:    notNull,
		index:      index,
		data:       data,
		dictionary: dict,
	}, nil
}

// Kind returns how the batch holds its values.
func (b *ColumnBatch) Kind() BatchKind {
	return b.kind
}

// IsEncoded reports whether the batch was delivered in compact form. It stays
// true after Decode.
func (b *ColumnBatch) IsEncoded() bool {
	return b.kind == BatchCompact
}

// Len returns the number of rows.
func (b *ColumnBatch) Len() int {
	return b.numRows
}

// HasNulls reports whether any row is null.
func (b *ColumnBatch) HasNulls() bool {
	for _, p := range b.notNull {
		if !p {
			return true
		}
	}
	return false
}

// IsNull reports whether row is null.
func (b *ColumnBatch) IsNull(row int) bool {
	return b.notNull != nil && !b.notNull[row]
}

// NotNull returns the presence flags of the rows, or nil if the batch has
// no nulls.
func (b *ColumnBatch) NotNull() []bool {
	return b.notNull
}

// ValueAt returns the value of row. Null rows return nil. The slice is a view
// that stays valid until the batch is released and must not be modified.
func (b *ColumnBatch) ValueAt(row int) ([]byte, error) {
	if row < 0 || row >= b.numRows {
		return nil, errors.Wrapf(ErrOutOfRange, "row %d, batch has %d rows", row, b.numRows)
	}
	return b.data[row], nil
}

// Values returns the views of all rows, nil for null rows.
func (b *ColumnBatch) Values() [][]byte {
	return b.data
}

// Index returns the dictionary rank of row, or -1 for a null row.
func (b *ColumnBatch) Index(row int) (int, error) {
	if b.kind != BatchCompact {
		return 0, ErrNoDictionary
	}
	if row < 0 || row >= b.numRows {
		return 0, errors.Wrapf(ErrOutOfRange, "row %d, batch has %d rows", row, b.numRows)
	}
	return int(b.index[row]), nil
}

// Indices returns the rank of every row of a compact batch, -1 for null rows.
// It returns nil for a direct batch.
func (b *ColumnBatch) Indices() []int32 {
	return b.index
}

// Dictionary returns the shared dictionary of a compact batch, or nil.
func (b *ColumnBatch) Dictionary() *StringDictionary {
	return b.dictionary
}

// DictionaryDecoded reports whether Decode has materialized the values.
func (b *ColumnBatch) DictionaryDecoded() bool {
	return b.decoded
}

// Decode copies the values of all present rows into one blob owned by the
// batch and points the value views at it. Calling it again has no effect.
// Decode fails with ErrNoDictionary on a direct batch.
func (b *ColumnBatch) Decode() error {
	if b.kind != BatchCompact || b.dictionary == nil {
		return errors.Wrapf(ErrNoDictionary, "decode of a %s batch", b.kind)
	}
	if b.decoded {
		return nil
	}

	size := 0
	for _, v := range b.data {
		size += len(v)
	}
	if err := b.alloc.register(uint64(size)); err != nil {
		return err
	}

	blob := make([]byte, 0, size)
	for i, v := range b.data {
		if b.notNull != nil && !b.notNull[i] {
			continue
		}
		start := len(blob)
		blob = append(blob, v...)
		b.data[i] = blob[start:len(blob):len(blob)]
	}

	b.blob = blob
	b.decoded = true
	b.metrics.decoded(size)
	return nil
}

// materialize turns a compact batch into a direct batch that no longer
// references the dictionary.
func (b *ColumnBatch) materialize() error {
	if err := b.Decode(); err != nil {
		return err
	}
	b.dictionary.Release()
	b.dictionary = nil
	b.index = nil
	b.kind = BatchDirect
	return nil
}

// slice returns the rows [from, to) of an undecoded batch as a new batch. A
// compact slice takes its own dictionary reference.
func (b *ColumnBatch) slice(from, to int) *ColumnBatch {
	s := &ColumnBatch{
		kind:       b.kind,
		numRows:    to - from,
		data:       append([][]byte(nil), b.data[from:to]...),
		dictionary: b.dictionary,
		alloc:      b.alloc,
		metrics:    b.metrics,
	}
	if b.notNull != nil {
		s.notNull = b.notNull[from:to:to]
	}
	if b.index != nil {
		s.index = b.index[from:to:to]
	}
	if s.dictionary != nil {
		s.dictionary.Retain()
	}
	return s
}

// Release gives back the memory of the decoded blob and the batch's
// dictionary reference. Values must not be used afterwards.
func (b *ColumnBatch) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.dictionary != nil {
		b.dictionary.Release()
	}
	b.alloc.release(uint64(len(b.blob)))
	b.blob = nil
	b.data = nil
	b.numRows = 0
}

// RowBatch is a run of rows over all columns of a file.
type RowBatch struct {
	NumRows int
	Columns []*ColumnBatch
}

// Decode materializes every compact column.
func (rb *RowBatch) Decode() error {
	for i, c := range rb.Columns {
		if c.Kind() != BatchCompact {
			continue
		}
		if err := c.Decode(); err != nil {
			return errors.Wrapf(err, "column %d", i)
		}
	}
	return nil
}

// Release releases all columns.
func (rb *RowBatch) Release() {
	for _, c := range rb.Columns {
		c.Release()
	}
}
