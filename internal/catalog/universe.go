package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnknownField is returned for a field that is not tracked by the universe
var ErrUnknownField = errors.New("unknown categorical field")

// Universe holds the distinct values of each categorical field seen in the
// reference dataset, in order of first appearance. It is read-only after Parse.
type Universe struct {
	fields []string
	values map[string][]string
	known  map[string]map[string]struct{}
	rows   int
}

// Parse reads a CSV reference dataset with a header row and collects the
// distinct values of the given fields. Empty cells are skipped.
func Parse(r io.Reader, fields []string) (*Universe, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reference dataset is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	positions := make(map[string]int, len(header))
	for i, name := range header {
		// Tolerate a UTF-8 BOM on the first column.
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	u := &Universe{
		fields: append([]string(nil), fields...),
		values: make(map[string][]string, len(fields)),
		known:  make(map[string]map[string]struct{}, len(fields)),
	}

	cols := make([]int, len(fields))
	for i, f := range fields {
		pos, ok := positions[f]
		if !ok {
			return nil, fmt.Errorf("reference dataset has no %q column", f)
		}
		cols[i] = pos
		u.values[f] = nil
		u.known[f] = make(map[string]struct{})
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", u.rows+2, err)
		}
		u.rows++

		for i, f := range fields {
			v := strings.TrimSpace(record[cols[i]])
			if v == "" {
				continue
			}
			if _, seen := u.known[f][v]; seen {
				continue
			}
			u.known[f][v] = struct{}{}
			u.values[f] = append(u.values[f], v)
		}
	}

	return u, nil
}

// Fields returns the tracked categorical fields
func (u *Universe) Fields() []string {
	return append([]string(nil), u.fields...)
}

// Values returns the distinct values of a field in first-seen order
func (u *Universe) Values(field string) ([]string, error) {
	vals, ok := u.values[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return append([]string(nil), vals...), nil
}

// Contains reports whether value was seen for field
func (u *Universe) Contains(field, value string) bool {
	_, ok := u.known[field][value]
	return ok
}

// Rows returns the number of data rows read
func (u *Universe) Rows() int {
	return u.rows
}

// Snapshot returns every field's values, keyed by field name
func (u *Universe) Snapshot() map[string][]string {
	out := make(map[string][]string, len(u.fields))
	for _, f := range u.fields {
		out[f] = append([]string(nil), u.values[f]...)
	}
	return out
}
