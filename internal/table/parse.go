package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrParse is matched by every error Parse returns for malformed input
var ErrParse = errors.New("malformed tabular data")

// ParseError reports where in the file parsing failed
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrParse) match any ParseError
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Options bound what Parse will accept
type Options struct {
	MaxRows   int  // 0 means unlimited
	Delimiter rune // defaults to ','
}

// Parse reads a CSV document with a header row into a Table named after
// the base of filename
func Parse(filename string, r io.Reader, opts Options) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Err: errors.New("file is empty")}
	}
	if err != nil {
		return nil, wrapCSVError(err)
	}

	columns := normalizeHeader(header)

	var raw [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapCSVError(err)
		}

		if opts.MaxRows > 0 && len(raw) >= opts.MaxRows {
			line, _ := reader.FieldPos(0)
			return nil, &ParseError{Line: line, Err: fmt.Errorf("file has more than %d rows", opts.MaxRows)}
		}
		raw = append(raw, record)
	}

	kinds := inferKinds(len(columns), raw)

	cols := make([]Column, len(columns))
	for i, name := range columns {
		cols[i] = Column{Name: name, Kind: kinds[i]}
	}

	rows := make([][]any, len(raw))
	for r, record := range raw {
		row := make([]any, len(record))
		for i, cell := range record {
			row[i] = convertCell(cell, kinds[i])
		}
		rows[r] = row
	}

	return New(filepath.Base(filename), cols, rows), nil
}

// wrapCSVError converts encoding/csv failures into ParseErrors
func wrapCSVError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Err: csvErr.Err}
	}
	return &ParseError{Err: err}
}

// normalizeHeader names blank columns "Unnamed: <i>" and suffixes
// repeated names with ".<n>", so every column name is unique
func normalizeHeader(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))

	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}

		if n, dup := seen[name]; dup {
			candidate := fmt.Sprintf("%s.%d", name, n)
			for seen[candidate] > 0 {
				n++
				candidate = fmt.Sprintf("%s.%d", name, n)
			}
			seen[name] = n + 1
			seen[candidate] = 1
			name = candidate
		} else {
			seen[name] = 1
		}

		names[i] = name
	}

	return names
}

// inferKinds marks a column numeric when every non-empty cell parses as a
// number and at least one cell is non-empty
func inferKinds(width int, raw [][]string) []Kind {
	kinds := make([]Kind, width)
	for i := range width {
		numeric, populated := true, false
		for _, record := range raw {
			cell := strings.TrimSpace(record[i])
			if cell == "" {
				continue
			}
			populated = true
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				numeric = false
				break
			}
		}

		if numeric && populated {
			kinds[i] = KindNumber
		} else {
			kinds[i] = KindText
		}
	}
	return kinds
}

// convertCell types a raw cell according to its column kind
func convertCell(cell string, kind Kind) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}

	if kind == KindNumber {
		if f, err := strconv.ParseFloat(cell, 64); err == nil {
			return f
		}
	}
	return cell
}
