package stringdict

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fraugster/stringdict/format"
)

func encodeTestUnit(t *testing.T, threshold float64, values []string, nullEvery int) (*format.UnitInformation, map[format.StreamKind][]byte) {
	enc := newTestEncoder(t, nil, threshold)
	for i, v := range values {
		enc.Accept([]byte(v), nullEvery > 0 && i%nullEvery == 0)
	}
	unit, err := enc.CloseUnit()
	require.NoError(t, err)
	t.Cleanup(unit.Release)

	info := &format.UnitInformation{
		NumRows:   int64(unit.NumRows),
		Encoding:  unit.Encoding,
		NullCount: int64(unit.NullCount),
	}
	if unit.Encoding == format.ColumnEncoding_DICTIONARY {
		info.DictionarySize = int32(unit.DistinctCount)
	}
	return info, streamMap(unit)
}

func cyclicValues(n, distinct int) []string {
	values := make([]string, n)
	for i := range values {
		values[i] = strconv.Itoa(i % distinct)
	}
	return values
}

func TestOpenUnitLazy(t *testing.T) {
	values := cyclicValues(5000, 100)
	info, streams := encodeTestUnit(t, 0.2, values, 2)
	require.Equal(t, format.ColumnEncoding_DICTIONARY, info.Encoding)

	b, err := OpenUnit(info, streams, true)
	require.NoError(t, err)
	defer b.Release()

	require.Equal(t, BatchCompact, b.Kind())
	require.True(t, b.IsEncoded())
	require.Equal(t, 100/2, b.Dictionary().Count())

	for i, v := range values {
		got, err := b.ValueAt(i)
		require.NoError(t, err)
		if i%2 == 0 {
			require.True(t, b.IsNull(i))
			require.Nil(t, got)
			rank, err := b.Index(i)
			require.NoError(t, err)
			require.Equal(t, -1, rank)
			continue
		}
		require.Equal(t, v, string(got))
		rank, err := b.Index(i)
		require.NoError(t, err)
		entry, err := b.Dictionary().ValueAt(rank)
		require.NoError(t, err)
		require.Equal(t, v, string(entry))
	}
}

func TestOpenUnitEager(t *testing.T) {
	values := cyclicValues(5000, 100)
	info, streams := encodeTestUnit(t, 0.2, values, 0)

	b, err := OpenUnit(info, streams, false)
	require.NoError(t, err)
	defer b.Release()

	require.Equal(t, BatchDirect, b.Kind())
	require.False(t, b.IsEncoded())
	require.Nil(t, b.Dictionary())
	require.False(t, b.HasNulls())
	require.ErrorIs(t, b.Decode(), ErrNoDictionary)

	for i, v := range values {
		got, err := b.ValueAt(i)
		require.NoError(t, err)
		require.Equal(t, v, string(got))
	}
}

func TestOpenUnitDirectIgnoresLazy(t *testing.T) {
	values := cyclicValues(1000, 1000)
	info, streams := encodeTestUnit(t, 0.2, values, 3)
	require.Equal(t, format.ColumnEncoding_DIRECT, info.Encoding)

	b, err := OpenUnit(info, streams, true)
	require.NoError(t, err)
	require.Equal(t, BatchDirect, b.Kind())

	for i, v := range values {
		got, err := b.ValueAt(i)
		require.NoError(t, err)
		if i%3 == 0 {
			require.Nil(t, got)
			continue
		}
		require.Equal(t, v, string(got))
	}
}

func TestOpenUnitCorrupt(t *testing.T) {
	values := cyclicValues(100, 10)

	testData := []struct {
		Name   string
		Modify func(info *format.UnitInformation, streams map[format.StreamKind][]byte)
	}{
		{
			Name: "missing dictionary",
			Modify: func(info *format.UnitInformation, streams map[format.StreamKind][]byte) {
				delete(streams, format.StreamKind_DICTIONARY_DATA)
			},
		},
		{
			Name: "missing present",
			Modify: func(info *format.UnitInformation, streams map[format.StreamKind][]byte) {
				delete(streams, format.StreamKind_PRESENT)
			},
		},
		{
			Name: "wrong null count",
			Modify: func(info *format.UnitInformation, streams map[format.StreamKind][]byte) {
				info.NullCount++
			},
		},
		{
			Name: "too many rows",
			Modify: func(info *format.UnitInformation, streams map[format.StreamKind][]byte) {
				info.NumRows += 100
			},
		},
		{
			Name: "dictionary too small",
			Modify: func(info *format.UnitInformation, streams map[format.StreamKind][]byte) {
				info.DictionarySize = 5
				streams[format.StreamKind_DICTIONARY_DATA] = streams[format.StreamKind_DICTIONARY_DATA][:5]
				offsets := []uint32{0, 1, 2, 3, 4, 5}
				buf := &bytes.Buffer{}
				require.NoError(t, encodeHybrid(buf, offsets))
				streams[format.StreamKind_DICTIONARY_OFFSETS] = buf.Bytes()
			},
		},
		{
			Name: "unknown encoding",
			Modify: func(info *format.UnitInformation, streams map[format.StreamKind][]byte) {
				info.Encoding = format.ColumnEncoding(7)
			},
		},
	}

	for _, tt := range testData {
		t.Run(tt.Name, func(t *testing.T) {
			info, streams := encodeTestUnit(t, 0.5, values, 4)
			require.Equal(t, format.ColumnEncoding_DICTIONARY, info.Encoding)
			tt.Modify(info, streams)

			_, err := OpenUnit(info, streams, true)
			require.Error(t, err)
		})
	}
}

func TestOpenUnitRankOutOfRange(t *testing.T) {
	info, streams := encodeTestUnit(t, 0.5, cyclicValues(100, 10), 0)
	info.DictionarySize = 5
	streams[format.StreamKind_DICTIONARY_DATA] = []byte("01234")
	buf := &bytes.Buffer{}
	require.NoError(t, encodeHybrid(buf, []uint32{0, 1, 2, 3, 4, 5}))
	streams[format.StreamKind_DICTIONARY_OFFSETS] = buf.Bytes()

	_, err := OpenUnit(info, streams, true)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestOpenUnitDirectLengthMismatch(t *testing.T) {
	info, streams := encodeTestUnit(t, 0, cyclicValues(100, 10), 0)
	streams[format.StreamKind_DATA] = append(streams[format.StreamKind_DATA], 'x')

	_, err := OpenUnit(info, streams, false)
	require.Error(t, err)

	streams[format.StreamKind_DATA] = streams[format.StreamKind_DATA][:10]
	_, err = OpenUnit(info, streams, false)
	require.Error(t, err)
}

func TestOpenUnitEmptyValues(t *testing.T) {
	values := make([]string, 100)
	for _, threshold := range []float64{0.8, 0} {
		info, streams := encodeTestUnit(t, threshold, values, 3)

		for _, lazy := range []bool{true, false} {
			b, err := OpenUnit(info, streams, lazy)
			require.NoError(t, err)

			check := func() {
				for i := range values {
					v, err := b.ValueAt(i)
					require.NoError(t, err)
					if i%3 == 0 {
						require.Nil(t, v, "row %d", i)
						continue
					}
					require.NotNil(t, v, "row %d encoding %s lazy=%t", i, info.Encoding, lazy)
					require.Len(t, v, 0)
				}
			}
			check()
			if b.IsEncoded() {
				require.NoError(t, b.Decode())
				check()
			}
			b.Release()
		}
	}
}
