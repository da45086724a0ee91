package statkit

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
)

// Dataset is an immutable, versioned sequence of real numbers.
// A new Dataset replaces the previous one wholesale; it is never modified in place.
type Dataset struct {
	values      []float64
	version     uint64
	fingerprint uint64
}

// NewDataset copies values into a Dataset tagged with version.
func NewDataset(values []float64, version uint64) Dataset {
	cloned := slices.Clone(values)
	if cloned == nil {
		cloned = []float64{}
	}

	return Dataset{
		values:      cloned,
		version:     version,
		fingerprint: Fingerprint(cloned),
	}
}

// Len returns the number of values.
func (d Dataset) Len() int { return len(d.values) }

// IsEmpty reports whether the dataset holds no values.
func (d Dataset) IsEmpty() bool { return len(d.values) == 0 }

// Version returns the version the dataset was created with.
func (d Dataset) Version() uint64 { return d.version }

// Fingerprint returns the content hash of the values.
func (d Dataset) Fingerprint() uint64 { return d.fingerprint }

// Values returns a copy of the values.
func (d Dataset) Values() []float64 {
	cloned := slices.Clone(d.values)
	if cloned == nil {
		cloned = []float64{}
	}

	return cloned
}

// view exposes the backing slice to computations that only read it.
func (d Dataset) view() []float64 { return d.values }

// MarshalJSON encodes the dataset with its version and fingerprint.
func (d Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Version     uint64    `json:"version"`
		Fingerprint uint64    `json:"fingerprint"`
		Values      []float64 `json:"values"`
	}{d.version, d.fingerprint, d.Values()})
}

// Fingerprint hashes the IEEE-754 representation of values with xxhash64.
func Fingerprint(values []float64) uint64 {
	digest := xxhash.New()

	var buf [8]byte
	for _, v := range values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = digest.Write(buf[:])
	}

	return digest.Sum64()
}
