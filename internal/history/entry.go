// Package history keeps the bounded, de-duplicated "recently viewed" and
// "recent searches" journals. Journals are a convenience: storage trouble is
// logged and folded into an empty journal, never returned to the caller.
package history

import (
	"encoding/json"
	"sort"
	"strings"
)

// Entry is one view or search. Timestamp is milliseconds since the epoch.
type Entry struct {
	Key       string `json:"key"`
	Timestamp int64  `json:"timestamp"`
	Tag       string `json:"tag,omitempty"`
}

// decodeEntries accepts a JSON array and keeps the elements that decode into
// an entry with a key. Anything that is not an array yields no entries.
func decodeEntries(raw string) ([]Entry, int, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, 0, err
	}

	out := make([]Entry, 0, len(items))
	dropped := 0
	for _, it := range items {
		var e Entry
		if err := json.Unmarshal(it, &e); err != nil || strings.TrimSpace(e.Key) == "" {
			dropped++
			continue
		}
		out = append(out, e)
	}
	return out, dropped, nil
}

func encodeEntries(entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// sortNewestFirst orders by timestamp descending; ties keep stored order.
func sortNewestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
}

// NormalizeQuery is the journal key for a search: trimmed, lower case, single
// spaces.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
