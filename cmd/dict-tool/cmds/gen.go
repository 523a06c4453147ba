package cmds

import (
	"io"
	"os"
	"strconv"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fraugster/stringdict"
)

type genOptions struct {
	schema      string
	rows        int64
	distinct    int64
	nullEvery   int64
	threshold   float64
	stride      int
	stripeSize  string
	stripeRows  int64
	compression string
	concurrency int
}

var genOpts genOptions

func init() {
	flags := genCmd.PersistentFlags()
	flags.StringVar(&genOpts.schema, "schema", "struct<s:string,v:varchar(2),c:char(3)>", "Type of the generated columns")
	flags.Int64VarP(&genOpts.rows, "rows", "n", 65535, "The number of rows to write")
	flags.Int64Var(&genOpts.distinct, "distinct", 1000, "Row i holds the value i modulo distinct")
	flags.Int64Var(&genOpts.nullEvery, "null-every", 2, "Every n-th row of the first column is null, 0 disables nulls")
	flags.Float64VarP(&genOpts.threshold, "threshold", "t", stringdict.DefaultDictionaryKeySizeThreshold, "Dictionary key size threshold, 0 disables dictionary encoding")
	flags.IntVar(&genOpts.stride, "stride", 10000, "Rows per row group, 0 makes every stripe one unit")
	flags.StringVar(&genOpts.stripeSize, "stripe-size", "64MiB", "Buffered stripe size after which a stripe is flushed")
	flags.Int64Var(&genOpts.stripeRows, "stripe-rows", 0, "Flush a stripe every n rows, 0 flushes by size only")
	flags.StringVarP(&genOpts.compression, "compression", "c", "snappy", "Compression method, valid values are none, snappy, gzip, zstd")
	flags.IntVar(&genOpts.concurrency, "concurrency", 1, "Number of goroutines compressing streams")
	rootCmd.AddCommand(genCmd)
}

var genCmd = &cobra.Command{
	Use:   "gen file-name.sdc",
	Short: "Write a file of cyclic test values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fl, err := os.Create(args[0])
		if err != nil {
			return errors.Wrap(err, "can not create the file")
		}

		if err := generateFile(fl, genOpts); err != nil {
			fl.Close()
			return err
		}
		return fl.Close()
	},
}

func generateFile(w io.Writer, opts genOptions) error {
	if opts.distinct <= 0 {
		return errors.Errorf("invalid number of distinct values %d", opts.distinct)
	}
	stripeSize, err := humanToByte(opts.stripeSize)
	if err != nil {
		return errors.Wrap(err, "invalid stripe size")
	}
	codec, err := parseCompression(opts.compression)
	if err != nil {
		return err
	}

	writer, err := stringdict.NewFileWriter(w,
		stringdict.WithSchema(opts.schema),
		stringdict.WithDictionaryKeySizeThreshold(opts.threshold),
		stringdict.WithRowIndexStride(opts.stride),
		stringdict.WithStripeSize(stripeSize),
		stringdict.WithCompression(codec),
		stringdict.WithConcurrency(opts.concurrency),
		stringdict.WithLogger(logger),
		stringdict.CreatedBy("dict-tool"),
	)
	if err != nil {
		return err
	}

	numCols := len(writer.Schema().Columns)
	row := make([][]byte, numCols)
	for i := int64(0); i < opts.rows; i++ {
		if opts.stripeRows > 0 && i > 0 && i%opts.stripeRows == 0 {
			if err := writer.FlushStripe(); err != nil {
				return err
			}
		}

		v := []byte(strconv.FormatInt(i%opts.distinct, 10))
		for c := range row {
			row[c] = v
		}
		if opts.nullEvery > 0 && i%opts.nullEvery == 0 {
			row[0] = nil
		}
		if err := writer.AddRow(row...); err != nil {
			return errors.Wrapf(err, "row %d", i)
		}
	}

	if err := writer.Close(); err != nil {
		return err
	}
	level.Info(logger).Log("msg", "file written", "rows", opts.rows, "columns", numCols, "bytes", writer.CurrentFileSize())
	return nil
}
