package cmds

import (
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/fraugster/stringdict"
)

type catOptions struct {
	lazy      bool
	ranks     bool
	batchSize int
}

// catFile prints the first n rows of the file, all of them if n is -1.
func catFile(w io.Writer, path string, n int64, opts catOptions) error {
	reader, closeFn, err := openFile(path)
	if err != nil {
		return err
	}
	defer closeFn()

	if opts.batchSize <= 0 {
		opts.batchSize = 1024
	}

	rr, err := reader.NewRowReader(stringdict.RowReaderOptions{LazyDecoding: opts.lazy})
	if err != nil {
		return err
	}
	defer rr.Close()

	cols := reader.Schema().Columns
	for printed := int64(0); n == -1 || printed < n; {
		max := opts.batchSize
		if n != -1 && n-printed < int64(max) {
			max = int(n - printed)
		}

		rb, err := rr.Next(max)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "reading rows at %d failed", rr.Row())
		}

		for i := 0; i < rb.NumRows; i++ {
			for c, col := range rb.Columns {
				if err := printValue(w, cols[c].Name, col, i, opts.ranks); err != nil {
					rb.Release()
					return err
				}
			}
			_, _ = fmt.Fprintln(w)
		}
		printed += int64(rb.NumRows)
		rb.Release()
	}
	return nil
}

func printValue(w io.Writer, name string, col *stringdict.ColumnBatch, row int, ranks bool) error {
	if col.IsNull(row) {
		_, _ = fmt.Fprintln(w, name+" = <null>")
		return nil
	}
	v, err := col.ValueAt(row)
	if err != nil {
		return err
	}
	if ranks && col.Kind() == stringdict.BatchCompact {
		rank, err := col.Index(row)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s = %q (rank %d)\n", name, v, rank)
		return nil
	}
	_, _ = fmt.Fprintf(w, "%s = %q\n", name, v)
	return nil
}
