package ranking

import (
	"encoding/json"
	"os"
)

// Results is an ordered list of ranked records.
type Results struct {
	Items []Result
}

func (r *Results) Len() int {
	return len(r.Items)
}

// Names returns record names in order.
func (r *Results) Names() []string {
	names := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		names = append(names, item.Record.Name)
	}
	return names
}

// Keep drops every result the predicate rejects, preserving the order of the
// rest, and returns the names of the dropped records.
func (r *Results) Keep(keep func(Result) bool) []string {
	var dropped []string
	kept := make([]Result, 0, len(r.Items))
	for _, item := range r.Items {
		if keep(item) {
			kept = append(kept, item)
			continue
		}
		dropped = append(dropped, item.Record.Name)
	}
	r.Items = kept
	return dropped
}

// Truncate keeps at most k leading results.
func (r *Results) Truncate(k int) {
	if k >= 0 && len(r.Items) > k {
		r.Items = r.Items[:k]
	}
}

// Clone returns a copy that can be filtered independently.
func (r *Results) Clone() *Results {
	items := make([]Result, len(r.Items))
	copy(items, r.Items)
	return &Results{Items: items}
}

// DumpToTmpFile writes the results as indented JSON into a temporary file and
// returns its name.
func (r *Results) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "recommendations_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	out := make([]map[string]any, 0, len(r.Items))
	for _, item := range r.Items {
		out = append(out, map[string]any{
			"record": item.Record,
			"index":  item.Index,
			"score":  item.Score,
		})
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return "", err
	}
	return file.Name(), nil
}
