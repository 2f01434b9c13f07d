// Package catalog loads assessment catalogs and publishes them as immutable
// snapshots.
package catalog

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spigell/assessment-recommender/internal/assessment"
)

// Snapshot is an immutable view of the catalog. Callers only ever receive
// copies of its records.
type Snapshot struct {
	version  uint64
	source   string
	loadedAt time.Time
	records  []assessment.Record
}

// NewSnapshot copies records into a new snapshot.
func NewSnapshot(source string, records []assessment.Record) *Snapshot {
	cp := make([]assessment.Record, len(records))
	copy(cp, records)
	return &Snapshot{
		source:   source,
		loadedAt: time.Now().UTC(),
		records:  cp,
	}
}

// Version is assigned when the snapshot is published to a Store.
func (s *Snapshot) Version() uint64 { return s.version }

// Source names the catalog source the snapshot was loaded from.
func (s *Snapshot) Source() string { return s.source }

func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

func (s *Snapshot) Len() int { return len(s.records) }

// Records returns a copy of the catalog in insertion order.
func (s *Snapshot) Records() []assessment.Record {
	cp := make([]assessment.Record, len(s.records))
	copy(cp, s.records)
	return cp
}

// FindByName looks a record up by case-insensitive name.
func (s *Snapshot) FindByName(name string) (assessment.Record, bool) {
	for _, r := range s.records {
		if strings.EqualFold(r.Name, strings.TrimSpace(name)) {
			return r, true
		}
	}
	return assessment.Record{}, false
}

// TypeCount is the number of records of a single test type.
type TypeCount struct {
	TestType assessment.TestType `json:"test_type"`
	Count    int                 `json:"count"`
}

// CountByTestType summarises the catalog, sorted by test type.
func (s *Snapshot) CountByTestType() []TypeCount {
	counts := make(map[assessment.TestType]int)
	for _, r := range s.records {
		counts[r.TestType]++
	}

	out := make([]TypeCount, 0, len(counts))
	for tt, n := range counts {
		out = append(out, TypeCount{TestType: tt, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TestType < out[j].TestType })
	return out
}

// DumpToTmpFile writes the snapshot records as indented JSON into a temporary
// file and returns its name.
func (s *Snapshot) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "catalog_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.records); err != nil {
		return "", err
	}
	return file.Name(), nil
}
