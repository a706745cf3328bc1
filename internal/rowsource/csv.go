package rowsource

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/gyeh/chargeload/internal/mapping"
)

// CSVSource streams a hospital CSV file. The header row index and text
// encoding come from the mapping descriptor; rows before the header are
// discarded, matching files that carry hospital metadata above the real
// column headers.
type CSVSource struct {
	file    *os.File
	csv     *csv.Reader
	headers []string
	colIdx  map[string]int
}

// OpenCSV opens path and positions the reader past the configured header row.
func OpenCSV(path string, headerRow int, encoding string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	s, err := newCSVSource(f, f, headerRow, encoding)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// NewCSVSource wraps an arbitrary reader; used by tests and the plan command.
func NewCSVSource(r io.Reader, headerRow int, encoding string) (*CSVSource, error) {
	return newCSVSource(nil, r, headerRow, encoding)
}

func newCSVSource(f *os.File, r io.Reader, headerRow int, encoding string) (*CSVSource, error) {
	if encoding == mapping.EncodingLatin {
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	}

	br := bufio.NewReaderSize(r, 256*1024)
	if bom, err := br.Peek(3); err == nil && len(bom) == 3 &&
		bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	s := &CSVSource{file: f, csv: cr, colIdx: make(map[string]int)}

	// Rows above the header carry hospital metadata, not column names.
	for i := 0; i < headerRow; i++ {
		if _, err := cr.Read(); err != nil {
			return nil, fmt.Errorf("skip pre-header row %d: %w", i, err)
		}
	}

	headers, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\ufeff")
	}
	for i, h := range headers {
		h = normalizeHeader(h)
		headers[i] = h
		if _, dup := s.colIdx[h]; !dup {
			s.colIdx[h] = i
		}
	}
	s.headers = headers
	return s, nil
}

// normalizeHeader trims spaces around each pipe-separated segment, so
// "code|1| type" and "code|1|type" address the same column.
func normalizeHeader(h string) string {
	parts := strings.Split(strings.TrimSpace(h), "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return strings.Join(parts, "|")
}

// Next returns the next data row, or io.EOF when the file is exhausted.
// Malformed records are a structural file error, fatal for this source.
func (s *CSVSource) Next() (Row, error) {
	record, err := s.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("read csv row: %w", err)
	}
	return &csvRow{src: s, record: record}, nil
}

// Close releases the underlying file, if any.
func (s *CSVSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// Headers returns the normalized column headers.
func (s *CSVSource) Headers() []string {
	return s.headers
}

type csvRow struct {
	src    *CSVSource
	record []string
}

func (r *csvRow) Get(col string) (string, bool) {
	idx, ok := r.src.colIdx[col]
	if !ok || idx >= len(r.record) {
		return "", false
	}
	return strings.TrimSpace(r.record[idx]), true
}

func (r *csvRow) Columns() []string {
	return r.src.headers
}
