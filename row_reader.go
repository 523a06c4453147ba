package stringdict

import (
	"io"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/fraugster/stringdict/format"
)

// RowReaderOptions is the read-session configuration of a RowReader.
type RowReaderOptions struct {
	// LazyDecoding returns dictionary units as compact batches. The caller
	// decides per batch whether to call Decode. Compact batches never span a
	// unit boundary.
	LazyDecoding bool
}

// unitGroup is the set of units of all columns that cover the same rows.
type unitGroup struct {
	stripe   int
	firstRow int64
	numRows  int64
	units    []*format.UnitInformation
}

// RowReader reads the rows of a file in order.
type RowReader struct {
	fr     *FileReader
	lazy   bool
	logger log.Logger

	groups []unitGroup

	current int
	loaded  []*ColumnBatch
	pos     int
	row     int64
}

// NewRowReader returns a reader positioned at the first row.
func (fr *FileReader) NewRowReader(opts RowReaderOptions) (*RowReader, error) {
	groups, err := buildUnitGroups(fr.footer)
	if err != nil {
		return nil, err
	}
	return &RowReader{
		fr:      fr,
		lazy:    opts.LazyDecoding,
		logger:  log.With(fr.logger, "lazy", opts.LazyDecoding),
		groups:  groups,
		current: -1,
	}, nil
}

func buildUnitGroups(footer *format.FileFooter) ([]unitGroup, error) {
	numCols := len(footer.Columns)
	var groups []unitGroup
	for s, stripe := range footer.Stripes {
		byRow := map[int64]*unitGroup{}
		var order []int64
		for _, u := range stripe.Units {
			if u.Column < 0 || int(u.Column) >= numCols {
				return nil, errors.Errorf("stripe %d: unit %s refers to unknown column", s, u)
			}
			g, ok := byRow[u.FirstRow]
			if !ok {
				g = &unitGroup{
					stripe:   s,
					firstRow: stripe.FirstRow + u.FirstRow,
					numRows:  u.NumRows,
					units:    make([]*format.UnitInformation, numCols),
				}
				byRow[u.FirstRow] = g
				order = append(order, u.FirstRow)
			}
			if g.numRows != u.NumRows || g.units[u.Column] != nil {
				return nil, errors.Errorf("stripe %d: unit %s does not line up with the other columns", s, u)
			}
			g.units[u.Column] = u
		}

		sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
		next := stripe.FirstRow
		for _, r := range order {
			g := byRow[r]
			for c, u := range g.units {
				if u == nil {
					return nil, errors.Errorf("stripe %d: no unit of column %d at row %d", s, c, g.firstRow)
				}
			}
			if g.firstRow != next {
				return nil, errors.Errorf("stripe %d: unit at row %d, expected %d", s, g.firstRow, next)
			}
			next += g.numRows
			groups = append(groups, *g)
		}
		if next != stripe.FirstRow+stripe.NumRows {
			return nil, errors.Errorf("stripe %d: units cover %d rows, stripe has %d", s, next-stripe.FirstRow, stripe.NumRows)
		}
	}
	return groups, nil
}

func (rr *RowReader) unload() {
	for _, b := range rr.loaded {
		b.Release()
	}
	rr.loaded = nil
	rr.current = -1
}

func (rr *RowReader) load(idx int) error {
	if idx == rr.current {
		return nil
	}
	rr.unload()

	g := &rr.groups[idx]
	loaded := make([]*ColumnBatch, 0, len(g.units))
	for _, u := range g.units {
		streams, err := rr.fr.readUnitStreams(u)
		if err == nil {
			var b *ColumnBatch
			if b, err = openUnit(u, streams, rr.lazy, rr.fr.alloc, rr.fr.metrics); err == nil {
				loaded = append(loaded, b)
				continue
			}
		}
		for _, b := range loaded {
			b.Release()
		}
		return errors.Wrapf(err, "stripe %d: loading rows at %d failed", g.stripe, g.firstRow)
	}

	level.Debug(rr.logger).Log("msg", "units loaded", "stripe", g.stripe, "first_row", g.firstRow, "rows", g.numRows)
	rr.loaded = loaded
	rr.current = idx
	return nil
}

// groupOf returns the index of the group holding row.
func (rr *RowReader) groupOf(row int64) int {
	return sort.Search(len(rr.groups), func(i int) bool {
		return rr.groups[i].firstRow+rr.groups[i].numRows > row
	})
}

// Row returns the number of the row the next batch starts with.
func (rr *RowReader) Row() int64 {
	return rr.row
}

// SeekToRow positions the reader so that the next batch starts with row.
// Seeking to the number of rows of the file positions the reader at its end.
func (rr *RowReader) SeekToRow(row int64) error {
	total := rr.fr.NumberOfRows()
	if row < 0 || row > total {
		return errors.Wrapf(ErrOutOfRange, "row %d, file has %d rows", row, total)
	}
	rr.row = row
	if row == total {
		rr.unload()
		return nil
	}

	idx := rr.groupOf(row)
	if err := rr.load(idx); err != nil {
		return err
	}
	rr.pos = int(row - rr.groups[idx].firstRow)
	return nil
}

// ensure loads the group holding the current row.
func (rr *RowReader) ensure() error {
	if rr.row >= rr.fr.NumberOfRows() {
		return io.EOF
	}
	if rr.current >= 0 && rr.pos < int(rr.groups[rr.current].numRows) {
		return nil
	}
	idx := rr.groupOf(rr.row)
	if err := rr.load(idx); err != nil {
		return err
	}
	rr.pos = int(rr.row - rr.groups[idx].firstRow)
	return nil
}

// Next returns up to maxRows rows, or io.EOF after the last row. The caller
// must Release the batch when done with it.
func (rr *RowReader) Next(maxRows int) (*RowBatch, error) {
	if maxRows <= 0 {
		return nil, errors.Errorf("invalid batch size %d", maxRows)
	}
	if err := rr.ensure(); err != nil {
		return nil, err
	}

	if rr.lazy {
		return rr.nextSlice(maxRows), nil
	}

	cols := make([]*directBuilder, len(rr.groups[rr.current].units))
	for i := range cols {
		cols[i] = &directBuilder{}
	}
	n := 0
	for n < maxRows {
		if err := rr.ensure(); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}
		part := rr.nextSlice(maxRows - n)
		for i, c := range part.Columns {
			cols[i].add(c)
		}
		n += part.NumRows
	}

	rb := &RowBatch{NumRows: n, Columns: make([]*ColumnBatch, len(cols))}
	for i, c := range cols {
		rb.Columns[i] = c.batch()
	}
	return rb, nil
}

// nextSlice returns up to maxRows rows of the loaded group.
func (rr *RowReader) nextSlice(maxRows int) *RowBatch {
	g := rr.groups[rr.current]
	n := int(g.numRows) - rr.pos
	if n > maxRows {
		n = maxRows
	}

	rb := &RowBatch{NumRows: n, Columns: make([]*ColumnBatch, len(rr.loaded))}
	for i, b := range rr.loaded {
		rb.Columns[i] = b.slice(rr.pos, rr.pos+n)
	}
	rr.pos += n
	rr.row += int64(n)
	return rb
}

// Close releases the loaded units.
func (rr *RowReader) Close() error {
	rr.unload()
	return nil
}

// directBuilder concatenates direct batches.
type directBuilder struct {
	data    [][]byte
	notNull []bool
	nulls   bool
}

func (db *directBuilder) add(b *ColumnBatch) {
	if b.notNull != nil && !db.nulls {
		db.notNull = make([]bool, len(db.data), len(db.data)+b.Len())
		for i := range db.notNull {
			db.notNull[i] = true
		}
		db.nulls = true
	}
	db.data = append(db.data, b.data...)
	if db.nulls {
		if b.notNull != nil {
			db.notNull = append(db.notNull, b.notNull...)
		} else {
			for i := 0; i < b.Len(); i++ {
				db.notNull = append(db.notNull, true)
			}
		}
	}
}

func (db *directBuilder) batch() *ColumnBatch {
	return newDirectBatch(db.notNull, db.data)
}
