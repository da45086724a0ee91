// Package source reads numeric datasets from files, readers and Redis lists.
//
// Every value is parsed as a float64 and must be finite; anything else is
// rejected with sentinel.ErrMalformedValue so that the statistics core only
// ever receives well-formed real numbers. Sources are read-only.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/hyp3rd/ewrap"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/statkit/internal/sentinel"
)

// ListReader is the subset of a Redis client used to read a list.
// *redis.Client and *redis.ClusterClient satisfy it.
type ListReader interface {
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

// CSVOptions selects which part of a CSV document holds the dataset.
type CSVOptions struct {
	// Column is the zero-based column to read.
	Column int
	// Header skips the first record.
	Header bool
	// SkipBlank ignores records whose selected cell is empty.
	SkipBlank bool
}

// ParseValue converts one textual value into a finite float64.
func ParseValue(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, ewrap.Wrapf(sentinel.ErrMalformedValue, "%q", raw)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ewrap.Wrapf(sentinel.ErrMalformedValue, "%q is not finite", raw)
	}

	return v, nil
}

// ReadCSV reads one column of a CSV document.
func ReadCSV(r io.Reader, opts CSVOptions) ([]float64, error) {
	if opts.Column < 0 {
		return nil, ewrap.Wrapf(sentinel.ErrColumnOutOfRange, "column %d", opts.Column)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		values []float64
		line   int
	)

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, ewrap.Wrap(err, "read csv")
		}

		line++
		if line == 1 && opts.Header {
			continue
		}

		if opts.Column >= len(record) {
			return nil, ewrap.Wrapf(sentinel.ErrColumnOutOfRange, "line %d has %d columns", line, len(record))
		}

		cell := record[opts.Column]
		if opts.SkipBlank && strings.TrimSpace(cell) == "" {
			continue
		}

		v, err := ParseValue(cell)
		if err != nil {
			return nil, ewrap.Wrapf(err, "line %d", line)
		}

		values = append(values, v)
	}

	return values, nil
}

// ReadJSON reads a JSON array of numbers.
func ReadJSON(r io.Reader) ([]float64, error) {
	var raw []json.Number

	dec := json.NewDecoder(r)
	dec.UseNumber()

	err := dec.Decode(&raw)
	if err != nil {
		return nil, ewrap.Wrap(err, "decode json dataset")
	}

	values := make([]float64, len(raw))
	for i, n := range raw {
		v, err := ParseValue(n.String())
		if err != nil {
			return nil, ewrap.Wrapf(err, "index %d", i)
		}

		values[i] = v
	}

	return values, nil
}

// ReadFile reads a dataset from path, choosing the parser by extension:
// .csv and .txt are read as CSV, .json as a JSON array.
func ReadFile(path string, opts CSVOptions) ([]float64, error) {
	if path == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "path")
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, ewrap.Wrap(err, "open dataset")
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return ReadCSV(file, opts)
	case ".json":
		return ReadJSON(file)
	default:
		return nil, ewrap.Wrap(sentinel.ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// FromRedisList reads every element of the list stored at key.
func FromRedisList(ctx context.Context, client ListReader, key string) ([]float64, error) {
	if key == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "key")
	}

	raw, err := client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, ewrap.Wrapf(err, "lrange %s", key)
	}

	if len(raw) == 0 {
		return nil, ewrap.Wrap(sentinel.ErrEmptyDataset, key)
	}

	values := make([]float64, len(raw))
	for i, s := range raw {
		v, err := ParseValue(s)
		if err != nil {
			return nil, ewrap.Wrapf(err, "%s[%d]", key, i)
		}

		values[i] = v
	}

	return values, nil
}
