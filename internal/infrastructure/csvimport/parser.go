// Package csvimport reads spreadsheet exports into header-keyed rows and
// collects per-row problems for bulk imports.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyFile is returned when the upload has no content
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the content is not UTF-8
	ErrInvalidEncoding = errors.New("CSV file must be UTF-8 encoded")

	// ErrMissingHeader is returned when the file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrTooManyRows is returned once the data rows exceed the parser limit
	ErrTooManyRows = errors.New("CSV file has too many rows")
)

// Parser reads a CSV stream with a header row. Headers are matched case-insensitively.
type Parser struct {
	delimiter rune
	maxRows   int
	headers   []string
	index     map[string]int
	line      int
	rows      int
	reader    *csv.Reader
}

// Option configures a Parser
type Option func(*Parser)

// WithDelimiter sets the field delimiter. Brazilian spreadsheet exports often use ';'.
func WithDelimiter(d rune) Option {
	return func(p *Parser) {
		p.delimiter = d
	}
}

// WithMaxRows caps the number of data rows
func WithMaxRows(n int) Option {
	return func(p *Parser) {
		p.maxRows = n
	}
}

// NewParser wraps r, strips a UTF-8 BOM and rejects non UTF-8 content
func NewParser(r io.Reader, opts ...Option) (*Parser, error) {
	p := &Parser{
		delimiter: ',',
		index:     make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}

	br := bufio.NewReader(r)
	head, err := br.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = br.Discard(3)
	}

	sample, err := br.Peek(4096)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(strings.TrimSpace(string(sample))) == 0 {
		return nil, ErrEmptyFile
	}
	if !utf8.Valid(trimPartialRune(sample)) {
		return nil, ErrInvalidEncoding
	}

	p.reader = csv.NewReader(br)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = true
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1
	return p, nil
}

// a peek may end mid-rune
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax-1 && len(b) > 0; i++ {
		if r, _ := utf8.DecodeLastRune(b); r != utf8.RuneError {
			break
		}
		b = b[:len(b)-1]
	}
	return b
}

// ParseHeader reads the header row
func (p *Parser) ParseHeader() error {
	record, err := p.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	p.line = 1

	p.headers = make([]string, 0, len(record))
	for i, h := range record {
		name := strings.ToLower(strings.TrimSpace(h))
		p.headers = append(p.headers, name)
		if name != "" {
			p.index[name] = i
		}
	}
	if len(p.index) == 0 {
		return ErrMissingHeader
	}
	return nil
}

// Headers returns the normalized header names
func (p *Parser) Headers() []string {
	return p.headers
}

// MissingHeaders returns the required columns absent from the header row
func (p *Parser) MissingHeaders(required ...string) []string {
	var missing []string
	for _, h := range required {
		if _, ok := p.index[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is a data row keyed by header. Line is the 1-based line in the file.
type Row struct {
	Line int
	Data map[string]string
}

// Get returns the trimmed value of a column, empty when absent
func (r *Row) Get(column string) string {
	return r.Data[column]
}

// IsEmpty reports whether every column is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow returns the next row or io.EOF
func (p *Parser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.line++
	if err != nil {
		return nil, fmt.Errorf("error reading line %d: %w", p.line, err)
	}

	row := &Row{Line: p.line, Data: make(map[string]string, len(p.index))}
	for name, i := range p.index {
		if i < len(record) {
			row.Data[name] = strings.TrimSpace(record[i])
		} else {
			row.Data[name] = ""
		}
	}
	if !row.IsEmpty() {
		p.rows++
		if p.maxRows > 0 && p.rows > p.maxRows {
			return nil, ErrTooManyRows
		}
	}
	return row, nil
}

// ReadAll reads the remaining rows, skipping blank ones
func (p *Parser) ReadAll() ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.ReadRow()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
}
