package stringdict

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildData(bitWidth int, l int) []uint32 {
	if bitWidth > 32 || bitWidth < 0 {
		panic("wrong bitwidth")
	}

	res := make([]uint32, l)
	if bitWidth == 0 {
		return res
	}
	mask := uint32(1<<uint(bitWidth) - 1)
	for i := 0; i < l; i++ {
		res[i] = rand.Uint32() & mask
	}

	return res
}

func TestPack8(t *testing.T) {
	for bw := 0; bw <= 32; bw++ {
		var in [8]uint32
		copy(in[:], buildData(bw, 8))
		packed := pack8(in, bw)
		require.Len(t, packed, bw)
		require.Equal(t, in, unpack8(packed, bw), "bit width %d", bw)
	}
}

func TestHybrid(t *testing.T) {
	for i := 0; i <= 32; i++ {
		data := &bytes.Buffer{}
		enc := newHybridEncoder(data, i)
		to1 := buildData(i, 8*1024+5)
		assert.NoError(t, enc.encode(to1...))

		to2 := buildData(i, 1000)
		assert.NoError(t, enc.encode(to2...))

		assert.NoError(t, enc.Close())

		toR, err := decodeHybrid(data.Bytes(), len(to1)+len(to2))
		require.NoError(t, err, "bit width %d", i)
		assert.Equal(t, append(to1, to2...), toR, "bit width %d", i)
	}
}

func TestHybridRuns(t *testing.T) {
	var values []uint32
	values = append(values, 1, 2, 3)
	for i := 0; i < 100; i++ {
		values = append(values, 7)
	}
	values = append(values, 4, 5)
	for i := 0; i < 9; i++ {
		values = append(values, 0)
	}
	values = append(values, 6)

	data := &bytes.Buffer{}
	require.NoError(t, encodeHybrid(data, values))

	// 3 leading values + 5 taken from the run form one group, the rest of
	// the run is a single RLE run.
	require.Less(t, data.Len(), 20)

	got, err := decodeHybrid(data.Bytes(), len(values))
	require.NoError(t, err)
	require.Equal(t, values, got)
}

func TestHybridAllZero(t *testing.T) {
	data := &bytes.Buffer{}
	require.NoError(t, encodeHybrid(data, make([]uint32, 100)))
	require.Equal(t, byte(0), data.Bytes()[0])

	got, err := decodeHybrid(data.Bytes(), 100)
	require.NoError(t, err)
	require.Equal(t, make([]uint32, 100), got)
}

func TestHybridErrors(t *testing.T) {
	enc := newHybridEncoder(&bytes.Buffer{}, 3)
	require.Error(t, enc.encode(8))

	_, err := decodeHybrid(nil, 1)
	require.Error(t, err)

	_, err = decodeHybrid([]byte{33}, 1)
	require.Error(t, err)

	data := &bytes.Buffer{}
	require.NoError(t, encodeHybrid(data, []uint32{1, 2, 3}))
	// the padding of the last group provides at most 8 values.
	_, err = decodeHybrid(data.Bytes(), 9)
	require.Error(t, err)

	got, err := decodeHybrid(nil, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}
