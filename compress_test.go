package stringdict

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraugster/stringdict/format"
)

var loremBlock = []byte(`lorem ipsum dolor sit amet, consectetur adipiscing elit,
sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.
Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut
aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit in
voluptate velit esse cillum dolore eu fugiat nulla pariatur. Excepteur sint
occaecat cupidatat non proident, sunt in culpa qui officia deserunt mollit anim id est laborum.`)

var allCodecs = []format.CompressionCodec{
	format.CompressionCodec_UNCOMPRESSED,
	format.CompressionCodec_SNAPPY,
	format.CompressionCodec_GZIP,
	format.CompressionCodec_ZSTD,
}

func TestCompressor(t *testing.T) {
	for _, m := range allCodecs {
		bc, err := getBlockCompressor(m)
		require.NoError(t, err, "%s", m)

		b, err := bc.CompressBlock(loremBlock)
		require.NoError(t, err, "%s", m)

		buf, err := bc.DecompressBlock(b, len(loremBlock))
		require.NoError(t, err, "%s", m)
		assert.Equal(t, loremBlock, buf, "%s", m)

		_, err = bc.DecompressBlock(b, len(loremBlock)-1)
		assert.Error(t, err, "%s", m)
	}
}

func TestGzipCompressorFormat(t *testing.T) {
	bc, err := getBlockCompressor(format.CompressionCodec_GZIP)
	require.NoError(t, err)

	b, err := bc.CompressBlock(loremBlock)
	require.NoError(t, err)
	require.Greater(t, len(b), 2)
	assert.Equal(t, []byte{0x1f, 0x8b}, b[:2])
}

func TestCompressorEmptyBlock(t *testing.T) {
	for _, m := range allCodecs {
		bc, err := getBlockCompressor(m)
		require.NoError(t, err)

		b, err := bc.CompressBlock(nil)
		require.NoError(t, err, "%s", m)
		buf, err := bc.DecompressBlock(b, 0)
		require.NoError(t, err, "%s", m)
		assert.Empty(t, buf, "%s", m)
	}
}

func TestUnknownCompressor(t *testing.T) {
	_, err := getBlockCompressor(format.CompressionCodec(42))
	require.Error(t, err)
}

func TestReadStreamChecksum(t *testing.T) {
	bc, err := getBlockCompressor(format.CompressionCodec_SNAPPY)
	require.NoError(t, err)

	s, err := compressStream(bc, EncodedStream{Kind: format.StreamKind_DATA, Data: loremBlock})
	require.NoError(t, err)

	file := append([]byte("SDC1"), s.data...)
	info := &format.StreamInformation{
		Kind:               s.kind,
		Offset:             4,
		Length:             int64(len(s.data)),
		UncompressedLength: int64(s.uncompressedSize),
		Checksum:           int64(s.checksum),
	}

	data, err := readStream(bytes.NewReader(file), info, bc)
	require.NoError(t, err)
	require.Equal(t, loremBlock, data)

	file[10] ^= 0xff
	_, err = readStream(bytes.NewReader(file), info, bc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "checksum mismatch")

	info.Length = int64(len(file))
	_, err = readStream(bytes.NewReader(file), info, bc)
	require.Error(t, err)
}
