package reader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dshills/knowthecode/pkg/types"
)

// LoadRecords decodes a JSON array of {path, content} file records
func LoadRecords(r io.Reader) ([]types.FileRecord, error) {
	var records []types.FileRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode file records: %w", err)
	}
	for i, rec := range records {
		if rec.Path == "" {
			return nil, fmt.Errorf("file record %d has no path", i)
		}
	}
	return records, nil
}

// LoadRecordsFile reads a records file from disk
func LoadRecordsFile(path string) ([]types.FileRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadRecords(f)
}

// SaveRecords writes records as an indented JSON array
func SaveRecords(w io.Writer, records []types.FileRecord) error {
	if records == nil {
		records = []types.FileRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}
