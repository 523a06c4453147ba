package cmds

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, opts genOptions) string {
	path := filepath.Join(t.TempDir(), "test.sdc")
	fl, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, generateFile(fl, opts))
	require.NoError(t, fl.Close())
	return path
}

func defaultGenOptions() genOptions {
	return genOptions{
		schema:      "struct<s:string,c:char(3)>",
		rows:        100,
		distinct:    10,
		nullEvery:   2,
		threshold:   0.5,
		stride:      50,
		stripeSize:  "1MiB",
		stripeRows:  60,
		compression: "zstd",
		concurrency: 2,
	}
}

func TestGenerateFileErrors(t *testing.T) {
	for _, modify := range []func(o *genOptions){
		func(o *genOptions) { o.distinct = 0 },
		func(o *genOptions) { o.stripeSize = "lots" },
		func(o *genOptions) { o.compression = "lz4" },
		func(o *genOptions) { o.threshold = 2 },
		func(o *genOptions) { o.schema = "struct<a:int>" },
	} {
		opts := defaultGenOptions()
		modify(&opts)
		require.Error(t, generateFile(&bytes.Buffer{}, opts))
	}
}

func TestCatFile(t *testing.T) {
	path := writeTestFile(t, defaultGenOptions())

	buf := &bytes.Buffer{}
	require.NoError(t, catFile(buf, path, 3, catOptions{lazy: true, ranks: true}))
	require.Equal(t, `s = <null>
c = "0  " (rank 0)

s = "1" (rank 0)
c = "1  " (rank 1)

s = <null>
c = "2  " (rank 2)

`, buf.String())

	buf.Reset()
	require.NoError(t, catFile(buf, path, -1, catOptions{batchSize: 7}))
	require.Equal(t, 100, strings.Count(buf.String(), "c = "))
	require.Equal(t, 50, strings.Count(buf.String(), "s = <null>"))
	require.NotContains(t, buf.String(), "rank")
}

func TestMetaFile(t *testing.T) {
	path := writeTestFile(t, defaultGenOptions())

	buf := &bytes.Buffer{}
	require.NoError(t, metaFile(buf, path, false))
	out := buf.String()
	require.Contains(t, out, "Schema: struct<s:string,c:char(3)>")
	require.Contains(t, out, "Created by: dict-tool")
	require.Contains(t, out, "Compression: ZSTD")
	require.Contains(t, out, "Num rows: 100")
	require.Contains(t, out, "Stripe: 1")
	require.Contains(t, out, "DICTIONARY")

	buf.Reset()
	require.NoError(t, metaFile(buf, path, true))
	require.Contains(t, buf.String(), "RowIndexStride: (int64) 50")

	require.Error(t, metaFile(buf, filepath.Join(t.TempDir(), "missing.sdc"), false))
}
