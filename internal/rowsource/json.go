package rowsource

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// JSONSource streams records from a JSON file shaped either as a top-level
// array or as an object containing a named array of records. Records are
// decoded one at a time so file size never bounds memory.
type JSONSource struct {
	file    *os.File
	dec     *json.Decoder
	inArray bool
	depth   int // open-object tokens to unwind after the array (object form)
}

// OpenJSON opens path and advances to the first record array.
func OpenJSON(path string) (*JSONSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}
	s, err := newJSONSource(f, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// NewJSONSource wraps an arbitrary reader; used by tests and the plan command.
func NewJSONSource(r io.Reader) (*JSONSource, error) {
	return newJSONSource(nil, r)
}

func newJSONSource(f *os.File, r io.Reader) (*JSONSource, error) {
	s := &JSONSource{file: f, dec: json.NewDecoder(r)}
	if err := s.seekArray(); err != nil {
		return nil, err
	}
	return s, nil
}

// seekArray positions the decoder inside the record array: either the
// top-level array itself, or the first array-valued key of the top-level
// object.
func (s *JSONSource) seekArray() error {
	tok, err := s.dec.Token()
	if err != nil {
		return fmt.Errorf("read json: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("malformed json: expected array or object, got %v", tok)
	}

	switch delim {
	case '[':
		s.inArray = true
		return nil
	case '{':
		s.depth = 1
		for {
			keyTok, err := s.dec.Token()
			if err != nil {
				return fmt.Errorf("read json object: %w", err)
			}
			if d, ok := keyTok.(json.Delim); ok && d == '}' {
				return fmt.Errorf("malformed json: no record array found in object")
			}
			if _, ok := keyTok.(string); !ok {
				return fmt.Errorf("malformed json: unexpected token %v", keyTok)
			}
			if !s.dec.More() {
				return fmt.Errorf("malformed json: key without value")
			}
			// Peek at the value: arrays are streamed, anything else skipped.
			valTok, err := s.dec.Token()
			if err != nil {
				return fmt.Errorf("read json value: %w", err)
			}
			if d, ok := valTok.(json.Delim); ok {
				if d == '[' {
					s.inArray = true
					return nil
				}
				// Skip a nested object wholesale.
				if err := s.skipValue(d); err != nil {
					return err
				}
			}
			// Scalar values need no skipping.
		}
	default:
		return fmt.Errorf("malformed json: unexpected delimiter %v", delim)
	}
}

// skipValue consumes tokens until the container opened by d is closed.
func (s *JSONSource) skipValue(d json.Delim) error {
	depth := 1
	for depth > 0 {
		tok, err := s.dec.Token()
		if err != nil {
			return fmt.Errorf("skip json value: %w", err)
		}
		if dd, ok := tok.(json.Delim); ok {
			switch dd {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// Next decodes the next record, or io.EOF when the array is exhausted.
func (s *JSONSource) Next() (Row, error) {
	if !s.inArray {
		return nil, io.EOF
	}
	if !s.dec.More() {
		s.inArray = false
		return nil, io.EOF
	}
	var fields map[string]any
	if err := s.dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode json record: %w", err)
	}
	return &jsonRow{fields: fields}, nil
}

// Close releases the underlying file, if any.
func (s *JSONSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

type jsonRow struct {
	fields map[string]any
}

func (r *jsonRow) Get(col string) (string, bool) {
	v, ok := r.fields[col]
	if !ok {
		return "", false
	}
	if v == nil {
		return "", true
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		// Nested containers are not scalar cells.
		return "", false
	}
}

func (r *jsonRow) Columns() []string {
	cols := make([]string, 0, len(r.fields))
	for k := range r.fields {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Detail returns the raw value under col, including nested containers.
func (r *jsonRow) Detail(col string) (any, bool) {
	v, ok := r.fields[col]
	return v, ok
}

// NewJSONRow builds a Row from decoded fields; used by tests.
func NewJSONRow(fields map[string]any) NestedRow {
	return &jsonRow{fields: fields}
}
