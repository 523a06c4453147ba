package stringdict

import (
	"context"
	"encoding/binary"
	"io"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/fraugster/stringdict/dictschema"
	"github.com/fraugster/stringdict/format"
)

// FileIDKey is the metadata key under which every file stores a random
// identifier.
const FileIDKey = "stringdict.file_id"

// FileWriter is used to write character columns to a file. Always use
// NewFileWriter to create such an object.
type FileWriter struct {
	w *writePos

	version   int32
	createdBy string
	kvStore   map[string]string
	schema    *dictschema.Schema
	schemaErr error

	threshold      float64
	rowIndexStride int
	stripeSize     int64
	codec          format.CompressionCodec
	maxDictSize    int64
	concurrency    int
	logger         log.Logger
	metrics        *Metrics

	encoders    []*DictionaryEncoder
	pending     []*pendingUnit
	pendingSize int64

	unitFirstRow int64
	unitRows     int
	stripeRows   int64
	totalRows    int64
	stripes      []*format.StripeInformation

	closed bool
	err    error
}

// pendingUnit is a closed unit waiting for its stripe to be flushed.
type pendingUnit struct {
	column   int
	firstRow int64
	unit     *EncodedUnit
}

// FileWriterOption describes an option function that is applied to a FileWriter when it is created.
type FileWriterOption func(fw *FileWriter)

// NewFileWriter creates a new FileWriter. You can provide FileWriterOptions to
// influence the file writer's behaviour. Invalid options are reported as
// error.
func NewFileWriter(w io.Writer, options ...FileWriterOption) (*FileWriter, error) {
	fw := &FileWriter{
		w:           &writePos{w: w},
		version:     fileVersion,
		createdBy:   "stringdict",
		kvStore:     make(map[string]string),
		threshold:   DefaultDictionaryKeySizeThreshold,
		stripeSize:  DefaultStripeSize,
		codec:       format.CompressionCodec_UNCOMPRESSED,
		maxDictSize: DefaultMaxDictionarySize,
		concurrency: 1,
		logger:      log.NewNopLogger(),
	}

	for _, opt := range options {
		opt(fw)
	}

	if fw.schemaErr != nil {
		return nil, errors.Wrap(fw.schemaErr, "invalid schema")
	}
	if fw.schema == nil {
		fw.schema = &dictschema.Schema{Columns: []*dictschema.Column{{Name: "_col0", Kind: dictschema.String}}}
	}
	if len(fw.schema.Columns) == 0 {
		return nil, errors.New("schema has no columns")
	}
	if err := validateThreshold(fw.threshold); err != nil {
		return nil, err
	}
	if fw.rowIndexStride < 0 {
		return nil, errors.Errorf("invalid row index stride %d", fw.rowIndexStride)
	}
	if fw.stripeSize <= 0 {
		return nil, errors.Errorf("invalid stripe size %d", fw.stripeSize)
	}
	if fw.concurrency < 1 {
		return nil, errors.Errorf("invalid concurrency %d", fw.concurrency)
	}
	if _, err := getBlockCompressor(fw.codec); err != nil {
		return nil, err
	}

	for _, col := range fw.schema.Columns {
		enc, err := NewDictionaryEncoder(col, EncoderOptions{
			Threshold:         fw.threshold,
			MaxDictionarySize: fw.maxDictSize,
			Logger:            fw.logger,
			Metrics:           fw.metrics,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "column %s", col.Name)
		}
		fw.encoders = append(fw.encoders, enc)
	}

	if _, ok := fw.kvStore[FileIDKey]; !ok {
		fw.kvStore[FileIDKey] = uuid.NewString()
	}

	return fw, nil
}

// DefaultStripeSize is the buffered size after which a stripe is flushed.
const DefaultStripeSize = 64 * 1024 * 1024

// WithDictionaryKeySizeThreshold sets the highest distinct/total ratio of a
// unit that is still dictionary encoded. 0 disables dictionary encoding.
func WithDictionaryKeySizeThreshold(threshold float64) FileWriterOption {
	return func(fw *FileWriter) {
		fw.threshold = threshold
	}
}

// WithRowIndexStride sets the number of rows of a row group. Each row group
// is encoded independently. With a stride of 0 the whole stripe is one unit.
func WithRowIndexStride(stride int) FileWriterOption {
	return func(fw *FileWriter) {
		fw.rowIndexStride = stride
	}
}

// WithStripeSize sets the rough buffered size of a stripe before it shall be
// flushed automatically.
func WithStripeSize(size int64) FileWriterOption {
	return func(fw *FileWriter) {
		fw.stripeSize = size
	}
}

// WithCompression sets the compression codec used for all streams.
func WithCompression(codec format.CompressionCodec) FileWriterOption {
	return func(fw *FileWriter) {
		fw.codec = codec
	}
}

// WithMaxDictionarySize bounds the blob of a candidate dictionary. Units
// whose dictionary would grow beyond it are written directly.
func WithMaxDictionarySize(size int64) FileWriterOption {
	return func(fw *FileWriter) {
		fw.maxDictSize = size
	}
}

// WithConcurrency sets the number of goroutines that compress the streams of
// a stripe. The streams are written in order regardless.
func WithConcurrency(n int) FileWriterOption {
	return func(fw *FileWriter) {
		fw.concurrency = n
	}
}

// WithLogger sets the logger of the writer and its encoders.
func WithLogger(logger log.Logger) FileWriterOption {
	return func(fw *FileWriter) {
		fw.logger = logger
	}
}

// WithMetrics makes the writer update m.
func WithMetrics(m *Metrics) FileWriterOption {
	return func(fw *FileWriter) {
		fw.metrics = m
	}
}

// CreatedBy sets the creator of the file.
func CreatedBy(createdBy string) FileWriterOption {
	return func(fw *FileWriter) {
		fw.createdBy = createdBy
	}
}

// MetaData sets the meta data on the file.
func MetaData(data map[string]string) FileWriterOption {
	return func(fw *FileWriter) {
		fw.kvStore = make(map[string]string, len(data))
		for k, v := range data {
			fw.kvStore[k] = v
		}
	}
}

// WithColumns sets the columns of the file.
func WithColumns(cols ...*dictschema.Column) FileWriterOption {
	return func(fw *FileWriter) {
		fw.schema = &dictschema.Schema{Columns: cols}
	}
}

// WithSchema sets the columns of the file from a type string like
// "struct<a:string,b:char(3)>".
func WithSchema(text string) FileWriterOption {
	return func(fw *FileWriter) {
		fw.schema, fw.schemaErr = dictschema.ParseSchema(text)
	}
}

// Schema returns the columns written.
func (fw *FileWriter) Schema() *dictschema.Schema {
	return fw.schema
}

// ColumnValues is a run of values of one column for AddBatch.
type ColumnValues struct {
	Data [][]byte
	// NotNull marks the present rows. If it is nil, a row is null when its
	// Data entry is nil.
	NotNull []bool
}

func (cv *ColumnValues) isNull(row int) bool {
	if cv.NotNull != nil {
		return !cv.NotNull[row]
	}
	return cv.Data[row] == nil
}

// AddRow adds a row with one value per column. A nil value is null, an empty
// non-nil value is the empty string.
func (fw *FileWriter) AddRow(values ...[]byte) error {
	if err := fw.usable(); err != nil {
		return err
	}
	if len(values) != len(fw.encoders) {
		return errors.Errorf("row has %d values, schema has %d columns", len(values), len(fw.encoders))
	}

	for i, enc := range fw.encoders {
		enc.Accept(values[i], values[i] == nil)
	}
	return fw.rowAdded()
}

// AddBatch adds the rows of one ColumnValues per column. All columns must
// hold the same number of rows.
func (fw *FileWriter) AddBatch(cols ...ColumnValues) error {
	if err := fw.usable(); err != nil {
		return err
	}
	if len(cols) != len(fw.encoders) {
		return errors.Errorf("batch has %d columns, schema has %d", len(cols), len(fw.encoders))
	}
	numRows := len(cols[0].Data)
	for i := range cols {
		if len(cols[i].Data) != numRows {
			return errors.Errorf("column %d has %d rows, column 0 has %d", i, len(cols[i].Data), numRows)
		}
		if cols[i].NotNull != nil && len(cols[i].NotNull) != numRows {
			return errors.Errorf("column %d has %d presence flags for %d rows", i, len(cols[i].NotNull), numRows)
		}
	}

	for row := 0; row < numRows; row++ {
		for i, enc := range fw.encoders {
			enc.Accept(cols[i].Data[row], cols[i].isNull(row))
		}
		if err := fw.rowAdded(); err != nil {
			return err
		}
	}
	return nil
}

func (fw *FileWriter) usable() error {
	if fw.err != nil {
		return errors.Wrap(fw.err, "writer failed earlier")
	}
	if fw.closed {
		return errors.New("writer is closed")
	}
	return nil
}

func (fw *FileWriter) rowAdded() error {
	fw.unitRows++
	fw.stripeRows++

	if fw.rowIndexStride > 0 && fw.unitRows >= fw.rowIndexStride {
		if err := fw.closeUnit(); err != nil {
			fw.err = err
			return err
		}
	}

	if fw.CurrentStripeSize() >= fw.stripeSize {
		return fw.FlushStripe()
	}
	return nil
}

// closeUnit closes the open unit of every column. Units of all columns always
// cover the same rows.
func (fw *FileWriter) closeUnit() error {
	closed := make([]*pendingUnit, 0, len(fw.encoders))
	for i, enc := range fw.encoders {
		unit, err := enc.CloseUnit()
		if err != nil {
			for _, p := range closed {
				p.unit.Release()
			}
			return errors.Wrapf(err, "closing unit of column %s failed", enc.Column().Name)
		}
		closed = append(closed, &pendingUnit{column: i, firstRow: fw.unitFirstRow, unit: unit})
	}
	for _, p := range closed {
		for _, s := range p.unit.Streams {
			fw.pendingSize += int64(len(s.Data))
		}
	}

	fw.pending = append(fw.pending, closed...)
	fw.unitFirstRow += int64(fw.unitRows)
	fw.unitRows = 0
	return nil
}

// CurrentStripeSize returns a rough estimation of the uncompressed size of the
// current stripe.
func (fw *FileWriter) CurrentStripeSize() int64 {
	size := fw.pendingSize
	for _, enc := range fw.encoders {
		size += enc.BufferedSize()
	}
	return size
}

// CurrentFileSize returns the amount of data written to the file so far.
func (fw *FileWriter) CurrentFileSize() int64 {
	return fw.w.Pos()
}

// FlushStripe closes the open unit and writes the current stripe to the file.
func (fw *FileWriter) FlushStripe() error {
	if err := fw.usable(); err != nil {
		return err
	}
	if fw.stripeRows == 0 {
		return errors.New("nothing to write")
	}
	if err := fw.flushStripe(); err != nil {
		fw.err = err
		return err
	}
	return nil
}

func (fw *FileWriter) flushStripe() error {
	if fw.unitRows > 0 {
		if err := fw.closeUnit(); err != nil {
			return err
		}
	}
	defer fw.releasePending()

	if fw.w.Pos() == 0 {
		if err := writeFull(fw.w, magic); err != nil {
			return err
		}
	}

	bc, err := getBlockCompressor(fw.codec)
	if err != nil {
		return err
	}

	stored := make([][]*storedStream, len(fw.pending))
	var g errgroup.Group
	g.SetLimit(fw.concurrency)
	for i, p := range fw.pending {
		stored[i] = make([]*storedStream, len(p.unit.Streams))
		for j, s := range p.unit.Streams {
			i, j, s := i, j, s
			g.Go(func() error {
				st, err := compressStream(bc, s)
				if err != nil {
					return err
				}
				stored[i][j] = st
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stripe := &format.StripeInformation{
		Offset:   fw.w.Pos(),
		FirstRow: fw.totalRows,
		NumRows:  fw.stripeRows,
	}
	for i, p := range fw.pending {
		info := &format.UnitInformation{
			Column:    int32(p.column),
			FirstRow:  p.firstRow,
			NumRows:   int64(p.unit.NumRows),
			Encoding:  p.unit.Encoding,
			NullCount: int64(p.unit.NullCount),
		}
		if p.unit.Encoding == format.ColumnEncoding_DICTIONARY {
			info.DictionarySize = int32(p.unit.DistinctCount)
		}
		for _, st := range stored[i] {
			offset := fw.w.Pos()
			if err := writeFull(fw.w, st.data); err != nil {
				return err
			}
			info.Streams = append(info.Streams, &format.StreamInformation{
				Kind:               st.kind,
				Offset:             offset,
				Length:             int64(len(st.data)),
				UncompressedLength: int64(st.uncompressedSize),
				Checksum:           int64(st.checksum),
			})
			fw.metrics.streamWritten(st.kind, len(st.data))
		}
		stripe.Units = append(stripe.Units, info)
	}
	stripe.Length = fw.w.Pos() - stripe.Offset

	level.Debug(fw.logger).Log(
		"msg", "stripe flushed",
		"stripe", len(fw.stripes),
		"rows", stripe.NumRows,
		"units", len(stripe.Units),
		"bytes", stripe.Length,
	)
	fw.metrics.stripeWritten()

	fw.stripes = append(fw.stripes, stripe)
	fw.totalRows += fw.stripeRows
	fw.stripeRows = 0
	fw.unitFirstRow = 0
	return nil
}

func (fw *FileWriter) releasePending() {
	for _, p := range fw.pending {
		p.unit.Release()
	}
	fw.pending = nil
	fw.pendingSize = 0
}

// Close flushes the current stripe if necessary and writes the footer to the
// file. If you provided a file as io.Writer when creating the FileWriter, you
// still need to Close that file handle separately.
func (fw *FileWriter) Close() error {
	if err := fw.usable(); err != nil {
		return err
	}
	if fw.stripeRows > 0 {
		if err := fw.FlushStripe(); err != nil {
			return err
		}
	}
	fw.closed = true

	if fw.w.Pos() == 0 {
		if err := writeFull(fw.w, magic); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(fw.kvStore))
	for k := range fw.kvStore {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kv := make([]*format.KeyValue, 0, len(keys))
	for _, k := range keys {
		kv = append(kv, &format.KeyValue{Key: k, Value: fw.kvStore[k]})
	}

	columns := make([]*format.ColumnInformation, 0, len(fw.schema.Columns))
	for _, c := range fw.schema.Columns {
		columns = append(columns, &format.ColumnInformation{Name: c.Name, Type: c.Type()})
	}

	footer := &format.FileFooter{
		Version:          fw.version,
		CreatedBy:        fw.createdBy,
		Columns:          columns,
		NumRows:          fw.totalRows,
		RowIndexStride:   int64(fw.rowIndexStride),
		Compression:      fw.codec,
		Stripes:          fw.stripes,
		KeyValueMetadata: kv,
	}

	pos := fw.w.Pos()
	if err := writeThrift(context.Background(), footer, fw.w); err != nil {
		return err
	}

	ln := int32(fw.w.Pos() - pos)
	if err := binary.Write(fw.w, binary.LittleEndian, &ln); err != nil {
		return err
	}

	return writeFull(fw.w, magic)
}

// Abort discards all rows that have not been flushed yet. Nothing of the open
// stripe is written and the writer can not be used afterwards.
func (fw *FileWriter) Abort() {
	for _, enc := range fw.encoders {
		enc.Abort()
	}
	fw.releasePending()
	fw.stripeRows = 0
	fw.unitRows = 0
	fw.unitFirstRow = 0
	fw.closed = true
}
