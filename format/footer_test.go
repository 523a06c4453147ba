package format

import (
	"context"
	"testing"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/stretchr/testify/require"
)

func writeAndRead(t *testing.T, in, out thrift.TStruct) {
	ctx := context.Background()
	buf := thrift.NewTMemoryBuffer()
	proto := thrift.NewTCompactProtocolConf(buf, &thrift.TConfiguration{})

	require.NoError(t, in.Write(ctx, proto))
	require.NoError(t, proto.Flush(ctx))
	require.NoError(t, out.Read(ctx, proto))
}

func TestFileFooterRoundTrip(t *testing.T) {
	in := &FileFooter{
		Version:   1,
		CreatedBy: "stringdict-test",
		Columns: []*ColumnInformation{
			{Name: "col1", Type: "string"},
			{Name: "col2", Type: "char(3)"},
		},
		NumRows:        20000,
		RowIndexStride: 10000,
		Compression:    CompressionCodec_SNAPPY,
		Stripes: []*StripeInformation{
			{
				Offset:   4,
				Length:   1234,
				FirstRow: 0,
				NumRows:  20000,
				Units: []*UnitInformation{
					{
						Column:         0,
						NumRows:        10000,
						Encoding:       ColumnEncoding_DICTIONARY,
						DictionarySize: 1000,
						NullCount:      5000,
						Streams: []*StreamInformation{
							{Kind: StreamKind_PRESENT, Offset: 4, Length: 10, UncompressedLength: 1250, Checksum: -42},
							{Kind: StreamKind_DICTIONARY_DATA, Offset: 14, Length: 100, UncompressedLength: 2890},
						},
					},
					{
						Column:   1,
						FirstRow: 10000,
						NumRows:  10000,
						Encoding: ColumnEncoding_DIRECT,
					},
				},
			},
		},
		KeyValueMetadata: []*KeyValue{{Key: "owner", Value: "fraugster"}},
	}

	out := &FileFooter{}
	writeAndRead(t, in, out)
	require.Equal(t, in, out)

	unit := out.Stripes[0].Units[0]
	require.Equal(t, int64(-42), unit.Stream(StreamKind_PRESENT).Checksum)
	require.Nil(t, unit.Stream(StreamKind_LENGTH))
}

func TestReadSkipsUnknownFields(t *testing.T) {
	in := &FileFooter{
		Version:        2,
		Columns:        []*ColumnInformation{{Name: "a", Type: "string"}},
		NumRows:        77,
		RowIndexStride: 5,
	}

	// StripeInformation shares only field 4 (i64) with FileFooter, everything
	// else must be skipped without error.
	out := &StripeInformation{}
	writeAndRead(t, in, out)
	require.Equal(t, int64(77), out.NumRows)
	require.Nil(t, out.Units)
	require.Zero(t, out.Offset)
}

func TestEnumStrings(t *testing.T) {
	for _, codec := range []CompressionCodec{
		CompressionCodec_UNCOMPRESSED,
		CompressionCodec_SNAPPY,
		CompressionCodec_GZIP,
		CompressionCodec_ZSTD,
	} {
		parsed, err := CompressionCodecFromString(codec.String())
		require.NoError(t, err)
		require.Equal(t, codec, parsed)
	}

	_, err := CompressionCodecFromString("LZ4")
	require.Error(t, err)

	require.Equal(t, "DICTIONARY", ColumnEncoding_DICTIONARY.String())
	require.Equal(t, "DICTIONARY_OFFSETS", StreamKind_DICTIONARY_OFFSETS.String())
	require.Equal(t, "<UNSET>", StreamKind(99).String())
}
