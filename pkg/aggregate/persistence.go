package aggregate

import (
	"encoding/gob"
	"fmt"
	"os"
)

// SnapshotData represents the serializable form of an aggregate
type SnapshotData struct {
	Entries []Entry
	Stats   Stats
}

// SaveToFile saves the aggregate to a binary file
func (a *Aggregator) SaveToFile(filename string) error {
	data := SnapshotData{
		Entries: a.entries,
		Stats:   a.stats,
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := gob.NewEncoder(file)
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	return file.Close()
}

// LoadFromFile replaces the aggregate with the contents of a binary file.
// Identities are not stored, so a loaded aggregate only deduplicates
// records added after loading among themselves.
func (a *Aggregator) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var data SnapshotData
	decoder := gob.NewDecoder(file)
	if err := decoder.Decode(&data); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}

	a.seen = make(map[string]struct{})
	a.index = make(map[string]int, len(data.Entries))
	a.entries = make([]Entry, 0, len(data.Entries))
	for _, e := range data.Entries {
		if e.Count < 1 {
			return fmt.Errorf("invalid count %d for key %q", e.Count, e.Key)
		}
		if _, ok := a.index[e.Key]; ok {
			return fmt.Errorf("duplicate key %q in snapshot", e.Key)
		}
		a.index[e.Key] = len(a.entries)
		a.entries = append(a.entries, e)
	}
	a.stats = data.Stats

	return nil
}
