package state

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/awatari/storewatch/internal/models"
)

// ErrStateCorrupt means the state file exists but cannot be parsed. This is
// fatal for the run: proceeding would silently reset all progress.
var ErrStateCorrupt = errors.New("state file is corrupt")

// fileState is the on-disk shape. Seen is kept raw so a legacy boolean map
// can be migrated once at load time.
type fileState struct {
	Cursor       int                              `json:"cursor"`
	Seen         json.RawMessage                  `json:"seen,omitempty"`
	Pending      []models.AppID                   `json:"pending,omitempty"`
	Snapshots    map[models.AppID]models.Snapshot `json:"snapshots,omitempty"`
	NewEvents    []models.Event                   `json:"new_events,omitempty"`
	ChangeEvents []models.Event                   `json:"change_events,omitempty"`
	Ordering     []models.AppID                   `json:"ordering,omitempty"`
	Stats        Stats                            `json:"stats"`
}

// Load reads the crawl state from path. A missing file yields the default
// zero state; an unparsable file yields ErrStateCorrupt. Files ending in
// .gz are gzip-compressed.
func Load(path string) (*CrawlState, error) {
	const opn = "state.Load"

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("%s: failed to open state file: %w", opn, err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, gzErr := gzip.NewReader(file)
		if gzErr != nil {
			return nil, fmt.Errorf("%s: %w: %w", opn, ErrStateCorrupt, gzErr)
		}
		defer gz.Close()
		reader = gz
	}

	var raw fileState
	if err = json.NewDecoder(reader).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", opn, ErrStateCorrupt, err)
	}

	seen, err := decodeSeen(raw.Seen)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", opn, ErrStateCorrupt, err)
	}

	st := &CrawlState{
		Cursor:       raw.Cursor,
		Seen:         seen,
		Pending:      raw.Pending,
		Snapshots:    raw.Snapshots,
		NewEvents:    raw.NewEvents,
		ChangeEvents: raw.ChangeEvents,
		Ordering:     raw.Ordering,
		Stats:        raw.Stats,
	}
	if st.Snapshots == nil {
		st.Snapshots = make(map[models.AppID]models.Snapshot)
	}
	st.ClampCursor()

	return st, nil
}

// decodeSeen parses the seen-set. The current shape maps identifiers to
// structured entries; one legacy shape maps identifiers to booleans and is
// translated here, never branched on elsewhere.
func decodeSeen(raw json.RawMessage) (map[models.AppID]models.SeenEntry, error) {
	seen := make(map[models.AppID]models.SeenEntry)
	if len(raw) == 0 {
		return seen, nil
	}

	var current map[models.AppID]models.SeenEntry
	if err := json.Unmarshal(raw, &current); err == nil {
		return current, nil
	}

	// Legacy shape: {"123": true, ...}.
	var legacy map[string]bool
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return nil, fmt.Errorf("seen-set has unknown shape: %w", err)
	}
	for key, detected := range legacy {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("seen-set has non-numeric key %q: %w", key, err)
		}
		seen[models.AppID(id)] = models.SeenEntry{Detected: detected}
	}

	return seen, nil
}

// Save persists the crawl state by writing a temporary file in the target
// directory and atomically renaming it over the canonical path. A crash
// mid-write never corrupts the previously committed state.
func Save(path string, st *CrawlState) error {
	const opn = "state.Save"

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%s: failed to create state directory: %w", opn, err)
	}

	seen, err := json.Marshal(st.Seen)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal seen-set: %w", opn, err)
	}

	raw := fileState{
		Cursor:       st.Cursor,
		Seen:         seen,
		Pending:      st.Pending,
		Snapshots:    st.Snapshots,
		NewEvents:    st.NewEvents,
		ChangeEvents: st.ChangeEvents,
		Ordering:     st.Ordering,
		Stats:        st.Stats,
	}

	tmp, err := os.CreateTemp(dir, "state-*.tmp")
	if err != nil {
		return fmt.Errorf("%s: failed to create temp file: %w", opn, err)
	}
	tmpPath := tmp.Name()

	if err = writeState(tmp, &raw, strings.HasSuffix(path, ".gz")); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%s: %w", opn, err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%s: failed to commit state file: %w", opn, err)
	}

	return nil
}

// writeState encodes the state into the already-open temp file and closes
// it. Compression follows the canonical path's extension, not the temp
// file's.
func writeState(tmp *os.File, raw *fileState, compress bool) error {
	var writer io.Writer = tmp
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(tmp)
		writer = gz
	}

	if err := json.NewEncoder(writer).Encode(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to flush gzip stream: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	return nil
}
