package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/longbridgeapp/assert"
	"github.com/redis/go-redis/v9"

	"github.com/hyp3rd/statkit/internal/sentinel"
)

type fakeList struct {
	values []string
	err    error
	keys   []string
}

func (f *fakeList) LRange(_ context.Context, key string, _, _ int64) *redis.StringSliceCmd {
	f.keys = append(f.keys, key)

	return redis.NewStringSliceResult(f.values, f.err)
}

func TestReadCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		opts     CSVOptions
		expected []float64
		err      error
	}{
		{
			name:     "first column",
			input:    "1,a\n2.5,b\n-3,c\n",
			expected: []float64{1, 2.5, -3},
		},
		{
			name:     "header and second column",
			input:    "id,value\n1, 10\n2, 20\n",
			opts:     CSVOptions{Column: 1, Header: true},
			expected: []float64{10, 20},
		},
		{
			name:     "blank cells skipped",
			input:    "1\n\n3\n",
			opts:     CSVOptions{SkipBlank: true},
			expected: []float64{1, 3},
		},
		{
			name:  "non numeric",
			input: "1\nabc\n",
			err:   sentinel.ErrMalformedValue,
		},
		{
			name:  "not finite",
			input: "1\nNaN\n",
			err:   sentinel.ErrMalformedValue,
		},
		{
			name:  "column missing",
			input: "1,2\n3\n",
			opts:  CSVOptions{Column: 1},
			err:   sentinel.ErrColumnOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := ReadCSV(strings.NewReader(tt.input), tt.opts)
			if tt.err != nil {
				assert.True(t, errors.Is(err, tt.err))

				return
			}

			assert.Nil(t, err)
			assert.Equal(t, tt.expected, values)
		})
	}
}

func TestReadJSON(t *testing.T) {
	values, err := ReadJSON(strings.NewReader(`[1, 2.5, -4e2]`))
	assert.Nil(t, err)
	assert.Equal(t, []float64{1, 2.5, -400}, values)

	_, err = ReadJSON(strings.NewReader(`[1, "x"]`))
	assert.False(t, err == nil)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "data.csv")
	assert.Nil(t, os.WriteFile(csvPath, []byte("4\n5\n6\n"), 0o600))

	values, err := ReadFile(csvPath, CSVOptions{})
	assert.Nil(t, err)
	assert.Equal(t, []float64{4, 5, 6}, values)

	jsonPath := filepath.Join(dir, "data.json")
	assert.Nil(t, os.WriteFile(jsonPath, []byte("[7, 8]"), 0o600))

	values, err = ReadFile(jsonPath, CSVOptions{})
	assert.Nil(t, err)
	assert.Equal(t, []float64{7, 8}, values)

	xlsxPath := filepath.Join(dir, "data.xlsx")
	assert.Nil(t, os.WriteFile(xlsxPath, []byte("PK"), 0o600))

	_, err = ReadFile(xlsxPath, CSVOptions{})
	assert.True(t, errors.Is(err, sentinel.ErrUnsupportedFormat))

	_, err = ReadFile("", CSVOptions{})
	assert.True(t, errors.Is(err, sentinel.ErrParamCannotBeEmpty))
}

func TestFromRedisList(t *testing.T) {
	ctx := context.Background()

	client := &fakeList{values: []string{"1", "2", "3.5"}}

	values, err := FromRedisList(ctx, client, "samples")
	assert.Nil(t, err)
	assert.Equal(t, []float64{1, 2, 3.5}, values)
	assert.Equal(t, []string{"samples"}, client.keys)

	_, err = FromRedisList(ctx, &fakeList{values: []string{"1", "inf"}}, "samples")
	assert.True(t, errors.Is(err, sentinel.ErrMalformedValue))

	_, err = FromRedisList(ctx, &fakeList{}, "samples")
	assert.True(t, errors.Is(err, sentinel.ErrEmptyDataset))

	_, err = FromRedisList(ctx, &fakeList{err: redis.Nil}, "samples")
	assert.True(t, errors.Is(err, redis.Nil))

	_, err = FromRedisList(ctx, client, "")
	assert.True(t, errors.Is(err, sentinel.ErrParamCannotBeEmpty))
}
