// Package jsonl reads and writes the intermediate embedding file: one
// EmbeddedRecord per line, as an independent JSON object.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"featurerag/internal/domain"
)

// maxLineSize bounds a single line. Large embedding models produce vectors
// of several thousand floats.
var maxLineSize = 16 * 1024 * 1024

// ErrLineTooLong is passed to the line callback for a line longer than
// maxLineSize. The line is discarded and reading continues.
var ErrLineTooLong = fmt.Errorf("%w: line exceeds size limit", domain.ErrParse)

// WriteFile writes records to path, replacing any previous content.
// Line order matches record order.
func WriteFile(path string, records []domain.EmbeddedRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	if err := Write(w, records); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Close()
}

// Write encodes records to w, one JSON object per line.
func Write(w io.Writer, records []domain.EmbeddedRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, r := range records {
		if err := enc.Encode(normalize(r)); err != nil {
			return fmt.Errorf("failed to encode record %d (%s): %w", i, r.ID, err)
		}
	}
	return nil
}

// EncodeLine returns the JSON line for one record, without the newline.
func EncodeLine(r domain.EmbeddedRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, []domain.EmbeddedRecord{r}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ForEachLine calls fn for every line of r with its 1-based line number and
// surrounding whitespace removed. A line longer than maxLineSize is drained
// and reported to fn as a nil line with ErrLineTooLong. It stops at the
// first error from fn or from reading.
func ForEachLine(r io.Reader, fn func(lineNo int, line []byte, lineErr error) error) error {
	br := bufio.NewReaderSize(r, 64*1024)

	var (
		line    []byte
		tooLong bool
		lineNo  int
	)
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxLineSize {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read line %d: %w", lineNo+1, err)
		}
		if err != nil && len(line) == 0 && !tooLong {
			return nil
		}

		lineNo++
		var ferr error
		if tooLong {
			ferr = fn(lineNo, nil, ErrLineTooLong)
		} else {
			ferr = fn(lineNo, bytes.TrimSpace(line), nil)
		}
		if ferr != nil {
			return ferr
		}
		if err != nil {
			return nil
		}
		line = line[:0]
		tooLong = false
	}
}

// ReadFile decodes every line of path and fails on the first bad line.
func ReadFile(path string) ([]domain.EmbeddedRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	var records []domain.EmbeddedRecord
	err = ForEachLine(f, func(lineNo int, line []byte, lineErr error) error {
		if lineErr != nil {
			return fmt.Errorf("line %d: %w", lineNo, lineErr)
		}
		rec, err := DecodeLine(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

// DecodeLine parses one line. The returned error wraps
//   - domain.ErrParse when the line is not a JSON object or a field has the wrong type,
//   - domain.ErrMissingField when "id" or "vector" is absent,
//   - domain.ErrInvalidVector when "vector" is not a non-empty array of numbers.
//
// Absent optional fields decode as empty strings and empty slices.
func DecodeLine(line []byte) (domain.EmbeddedRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return domain.EmbeddedRecord{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	rawID, hasID := fields["id"]
	rawVector, hasVector := fields["vector"]
	if !hasID || !hasVector || isNull(rawID) {
		return domain.EmbeddedRecord{}, fmt.Errorf("%w: 'id' or 'vector'", domain.ErrMissingField)
	}

	vector, err := decodeVector(rawVector)
	if err != nil {
		return domain.EmbeddedRecord{}, err
	}

	rec := domain.EmbeddedRecord{Vector: vector}
	targets := []struct {
		name string
		dst  any
	}{
		{"id", &rec.ID},
		{"feature_name", &rec.FeatureName},
		{"category", &rec.Category},
		{"description", &rec.Description},
		{"how_it_helps", &rec.HowItHelps},
		{"use_cases", &rec.UseCases},
		{"keywords", &rec.Keywords},
	}
	for _, t := range targets {
		raw, ok := fields[t.name]
		if !ok || isNull(raw) {
			continue
		}
		if err := json.Unmarshal(raw, t.dst); err != nil {
			return domain.EmbeddedRecord{}, fmt.Errorf("%w: field %q: %v", domain.ErrParse, t.name, err)
		}
	}

	return normalize(rec), nil
}

func decodeVector(raw json.RawMessage) ([]float32, error) {
	var elems []json.RawMessage
	if isNull(raw) || json.Unmarshal(raw, &elems) != nil {
		return nil, fmt.Errorf("%w: not an array", domain.ErrInvalidVector)
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: empty", domain.ErrInvalidVector)
	}

	vector := make([]float32, len(elems))
	for i, e := range elems {
		if isNull(e) {
			return nil, fmt.Errorf("%w: element %d is null", domain.ErrInvalidVector, i)
		}
		if err := json.Unmarshal(e, &vector[i]); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", domain.ErrInvalidVector, i, err)
		}
	}
	return vector, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// normalize replaces nil slices with empty ones so absent arrays
// serialise as [] rather than null.
func normalize(r domain.EmbeddedRecord) domain.EmbeddedRecord {
	if r.Category == nil {
		r.Category = []string{}
	}
	if r.Description == nil {
		r.Description = []string{}
	}
	if r.UseCases == nil {
		r.UseCases = []string{}
	}
	if r.Keywords == nil {
		r.Keywords = []string{}
	}
	return r
}
