package stringdict

import (
	"github.com/pkg/errors"

	"github.com/fraugster/stringdict/format"
)

// OpenUnit rebuilds the values of one unit from its decompressed streams.
// With lazy set, a dictionary unit is returned as a compact batch; otherwise
// every unit is returned as a direct batch.
func OpenUnit(info *format.UnitInformation, streams map[format.StreamKind][]byte, lazy bool) (*ColumnBatch, error) {
	return openUnit(info, streams, lazy, nil, nil)
}

func openUnit(info *format.UnitInformation, streams map[format.StreamKind][]byte, lazy bool, alloc *allocTracker, metrics *Metrics) (*ColumnBatch, error) {
	if info.NumRows < 0 || info.NullCount < 0 || info.NullCount > info.NumRows {
		return nil, errors.Errorf("unit %s: invalid row counts", info)
	}
	numRows := int(info.NumRows)
	present := numRows - int(info.NullCount)

	notNull, err := readPresent(streams, numRows, int(info.NullCount))
	if err != nil {
		return nil, errors.Wrapf(err, "unit %s", info)
	}

	var b *ColumnBatch
	switch info.Encoding {
	case format.ColumnEncoding_DICTIONARY:
		b, err = openDictionaryUnit(info, streams, notNull, present, alloc)
	case format.ColumnEncoding_DIRECT:
		b, err = openDirectUnit(streams, notNull, present)
	default:
		err = errors.Errorf("unknown encoding %d", info.Encoding)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "unit %s", info)
	}
	b.alloc = alloc
	b.metrics = metrics

	if b.kind == BatchCompact && !lazy {
		if err := b.materialize(); err != nil {
			b.Release()
			return nil, err
		}
	}
	return b, nil
}

func requireStream(streams map[format.StreamKind][]byte, kind format.StreamKind) ([]byte, error) {
	data, ok := streams[kind]
	if !ok {
		return nil, errors.Errorf("missing %s stream", kind)
	}
	return data, nil
}

func readPresent(streams map[format.StreamKind][]byte, numRows, nullCount int) ([]bool, error) {
	if nullCount == 0 {
		return nil, nil
	}
	data, err := requireStream(streams, format.StreamKind_PRESENT)
	if err != nil {
		return nil, err
	}
	bits, err := decodeHybrid(data, numRows)
	if err != nil {
		return nil, errors.Wrap(err, "reading present stream failed")
	}

	notNull := make([]bool, numRows)
	nulls := 0
	for i, b := range bits {
		if b > 1 {
			return nil, errors.Errorf("present stream holds %d at row %d", b, i)
		}
		notNull[i] = b == 1
		if b == 0 {
			nulls++
		}
	}
	if nulls != nullCount {
		return nil, errors.Errorf("present stream has %d nulls, expected %d", nulls, nullCount)
	}
	return notNull, nil
}

func openDictionaryUnit(info *format.UnitInformation, streams map[format.StreamKind][]byte, notNull []bool, present int, alloc *allocTracker) (*ColumnBatch, error) {
	blob, err := requireStream(streams, format.StreamKind_DICTIONARY_DATA)
	if err != nil {
		return nil, err
	}
	offsetData, err := requireStream(streams, format.StreamKind_DICTIONARY_OFFSETS)
	if err != nil {
		return nil, err
	}
	rankData, err := requireStream(streams, format.StreamKind_DATA)
	if err != nil {
		return nil, err
	}
	if info.DictionarySize < 0 {
		return nil, errors.Errorf("invalid dictionary size %d", info.DictionarySize)
	}

	rawOffsets, err := decodeHybrid(offsetData, int(info.DictionarySize)+1)
	if err != nil {
		return nil, errors.Wrap(err, "reading dictionary offsets failed")
	}
	offsets := make([]int, len(rawOffsets))
	for i, o := range rawOffsets {
		offsets[i] = int(o)
	}

	ranks, err := decodeHybrid(rankData, present)
	if err != nil {
		return nil, errors.Wrap(err, "reading dictionary ranks failed")
	}

	if err := alloc.register(uint64(len(blob))); err != nil {
		return nil, err
	}
	dict, err := NewStringDictionary(blob, offsets)
	if err != nil {
		alloc.release(uint64(len(blob)))
		return nil, err
	}
	dict.alloc = alloc

	numRows := present
	if notNull != nil {
		numRows = len(notNull)
	}
	index := make([]int32, numRows)
	r := 0
	for i := range index {
		if notNull != nil && !notNull[i] {
			index[i] = -1
			continue
		}
		index[i] = int32(ranks[r])
		r++
	}

	b, err := newCompactBatch(dict, notNull, index)
	if err != nil {
		dict.Release()
		return nil, err
	}
	return b, nil
}

func openDirectUnit(streams map[format.StreamKind][]byte, notNull []bool, present int) (*ColumnBatch, error) {
	data, err := requireStream(streams, format.StreamKind_DATA)
	if err != nil {
		return nil, err
	}
	lengthData, err := requireStream(streams, format.StreamKind_LENGTH)
	if err != nil {
		return nil, err
	}
	lengths, err := decodeHybrid(lengthData, present)
	if err != nil {
		return nil, errors.Wrap(err, "reading lengths failed")
	}

	if data == nil {
		data = []byte{}
	}

	numRows := present
	if notNull != nil {
		numRows = len(notNull)
	}
	values := make([][]byte, numRows)
	pos, r := 0, 0
	for i := range values {
		if notNull != nil && !notNull[i] {
			continue
		}
		end := pos + int(lengths[r])
		if end > len(data) {
			return nil, errors.Errorf("row %d: value exceeds data stream of %d bytes", i, len(data))
		}
		values[i] = data[pos:end:end]
		pos = end
		r++
	}
	if pos != len(data) {
		return nil, errors.Errorf("data stream has %d bytes, lengths add up to %d", len(data), pos)
	}

	return newDirectBatch(notNull, values), nil
}
