package stringdict

import (
	"io"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/fraugster/stringdict/dictschema"
	"github.com/fraugster/stringdict/format"
)

// FileReader is used to read files written by FileWriter.
type FileReader struct {
	r      io.ReadSeeker
	footer *format.FileFooter
	schema *dictschema.Schema
	codec  BlockCompressor

	alloc   *allocTracker
	maxMem  uint64
	logger  log.Logger
	metrics *Metrics
}

// FileReaderOption is an option that can be passed on to NewFileReader.
type FileReaderOption func(*FileReader)

// WithMaximumMemorySize limits the memory held in dictionaries and decoded
// values by all row readers of the file. Reads that would exceed it fail with
// ErrMemoryLimit. 0 means no limit.
func WithMaximumMemorySize(maxSizeBytes uint64) FileReaderOption {
	return func(fr *FileReader) {
		fr.maxMem = maxSizeBytes
	}
}

// WithReaderLogger sets the logger of the reader.
func WithReaderLogger(logger log.Logger) FileReaderOption {
	return func(fr *FileReader) {
		fr.logger = logger
	}
}

// WithReaderMetrics makes the reader update m.
func WithReaderMetrics(m *Metrics) FileReaderOption {
	return func(fr *FileReader) {
		fr.metrics = m
	}
}

// NewFileReader reads and validates the footer of r.
func NewFileReader(r io.ReadSeeker, opts ...FileReaderOption) (*FileReader, error) {
	fr := &FileReader{
		r:      r,
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(fr)
	}
	fr.alloc = newAllocTracker(fr.maxMem)

	footer, err := ReadFileFooter(r, true)
	if err != nil {
		return nil, errors.Wrap(err, "reading file footer failed")
	}
	fr.footer = footer

	fr.schema = &dictschema.Schema{}
	for _, c := range footer.Columns {
		col, err := dictschema.ParseColumnType(c.Name, c.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "column %s", c.Name)
		}
		fr.schema.Columns = append(fr.schema.Columns, col)
	}

	if fr.codec, err = getBlockCompressor(footer.Compression); err != nil {
		return nil, err
	}

	return fr, nil
}

// NumberOfRows returns the number of rows in the file.
func (fr *FileReader) NumberOfRows() int64 {
	return fr.footer.NumRows
}

// NumberOfStripes returns the number of stripes in the file.
func (fr *FileReader) NumberOfStripes() int {
	return len(fr.footer.Stripes)
}

// Schema returns the columns of the file.
func (fr *FileReader) Schema() *dictschema.Schema {
	return fr.schema
}

// Footer returns the raw footer.
func (fr *FileReader) Footer() *format.FileFooter {
	return fr.footer
}

// CreatedBy returns the creator of the file.
func (fr *FileReader) CreatedBy() string {
	return fr.footer.CreatedBy
}

// MetaData returns the key/value meta data of the file.
func (fr *FileReader) MetaData() map[string]string {
	data := make(map[string]string, len(fr.footer.KeyValueMetadata))
	for _, kv := range fr.footer.KeyValueMetadata {
		data[kv.Key] = kv.Value
	}
	return data
}

// FileID returns the identifier the writer stored in the file, if any.
func (fr *FileReader) FileID() string {
	return fr.MetaData()[FileIDKey]
}

// MemoryUsed returns the number of bytes currently accounted against
// WithMaximumMemorySize.
func (fr *FileReader) MemoryUsed() uint64 {
	return fr.alloc.used()
}

func (fr *FileReader) readUnitStreams(info *format.UnitInformation) (map[format.StreamKind][]byte, error) {
	streams := make(map[format.StreamKind][]byte, len(info.Streams))
	for _, st := range info.Streams {
		if _, ok := streams[st.Kind]; ok {
			return nil, errors.Errorf("unit %s: duplicate %s stream", info, st.Kind)
		}
		data, err := readStream(fr.r, st, fr.codec)
		if err != nil {
			return nil, errors.Wrapf(err, "unit %s", info)
		}
		streams[st.Kind] = data
	}
	return streams, nil
}
