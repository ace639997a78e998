package state_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/awatari/storewatch/internal/models"
	"github.com/awatari/storewatch/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *state.CrawlState {
	st := state.Default()
	st.Cursor = 42
	st.Ordering = []models.AppID{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	st.Pending = []models.AppID{20, 50}
	st.Seen[10] = models.SeenEntry{Detected: true, DetectedAt: 1700000000}
	st.Seen[20] = models.SeenEntry{}
	st.Snapshots[10] = models.Snapshot{
		Name:          "Sample Game",
		DescDigest:    "abcd1234",
		PriceFinal:    1480,
		PriceCurrency: "JPY",
		Languages:     []string{"english", "japanese"},
	}
	st.NewEvents = []models.Event{
		{AppID: 10, Kind: models.EventNew, Title: "Sample Game", Link: models.AppID(10).StoreURL(), Timestamp: 1700000001},
	}
	st.ChangeEvents = []models.Event{
		{AppID: 10, Kind: models.EventChanged, Title: "Sample Game", Summary: "price: 1000 JPY -> 1480 JPY", Timestamp: 1700000002},
	}
	st.Stats = state.Stats{LastRun: 1700000003, TotalApps: 10, LastPublished: 2}
	return st
}

func TestLoad_MissingFileYieldsDefault(t *testing.T) {
	st, err := state.Load(filepath.Join(t.TempDir(), "absent.json"))

	require.NoError(t, err)
	assert.Equal(t, 0, st.Cursor)
	assert.Empty(t, st.Pending)
	assert.NotNil(t, st.Seen)
	assert.NotNil(t, st.Snapshots)
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	testCases := []struct {
		name string
		file string
	}{
		{name: "plain json", file: "state.json"},
		{name: "gzip json", file: "state.json.gz"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tc.file)
			want := sampleState()
			// Cursor 42 exceeds the 10-item ordering and must clamp to 0
			// on load.
			want.Cursor = 7

			require.NoError(t, state.Save(path, want))

			got, err := state.Load(path)
			require.NoError(t, err)

			assert.Equal(t, want.Cursor, got.Cursor)
			assert.Equal(t, want.Ordering, got.Ordering)
			assert.Equal(t, want.Pending, got.Pending)
			assert.Equal(t, want.Seen, got.Seen)
			assert.Equal(t, want.Snapshots, got.Snapshots)
			assert.Equal(t, want.NewEvents, got.NewEvents)
			assert.Equal(t, want.ChangeEvents, got.ChangeEvents)
			assert.Equal(t, want.Stats, got.Stats)
		})
	}
}

func TestLoad_ClampsOutOfRangeCursor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st := sampleState() // cursor 42, ordering length 10

	require.NoError(t, state.Save(path, st))

	got, err := state.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Cursor)
}

func TestLoad_LegacySeenShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	legacy := `{"cursor":3,"seen":{"10":true,"20":false},"ordering":[10,20,30,40]}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	st, err := state.Load(path)

	require.NoError(t, err)
	assert.Equal(t, 3, st.Cursor)
	assert.Equal(t, models.SeenEntry{Detected: true}, st.Seen[10])
	assert.Equal(t, models.SeenEntry{Detected: false}, st.Seen[20])
}

func TestLoad_CorruptFile(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		_, err := state.Load(path)

		require.ErrorIs(t, err, state.ErrStateCorrupt)
	})

	t.Run("gz extension without gzip payload", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json.gz")
		require.NoError(t, os.WriteFile(path, []byte(`{"cursor":0}`), 0o644))

		_, err := state.Load(path)

		require.ErrorIs(t, err, state.ErrStateCorrupt)
	})

	t.Run("unknown seen shape", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"cursor":0,"seen":[1,2,3]}`), 0o644))

		_, err := state.Load(path)

		require.ErrorIs(t, err, state.ErrStateCorrupt)
	})
}

func TestSave_AtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	committed := sampleState()
	committed.Cursor = 5
	require.NoError(t, state.Save(path, committed))

	// Simulate a crash between temp-write and rename: a stray partial temp
	// file next to the canonical path.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state-crashed.tmp"), []byte(`{"curso`), 0o644))

	got, err := state.Load(path)

	require.NoError(t, err)
	assert.Equal(t, 5, got.Cursor)
	assert.Equal(t, committed.Seen, got.Seen)
}

func TestSave_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json.gz")

	require.NoError(t, state.Save(path, sampleState()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	require.NoError(t, state.Save(path, sampleState()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestMarkSeen(t *testing.T) {
	st := state.Default()

	t.Run("failed resolution creates an undetected entry", func(t *testing.T) {
		st.MarkSeen(10, false, 100)

		entry, ok := st.Seen[10]
		require.True(t, ok)
		assert.False(t, entry.Detected)
		assert.Zero(t, entry.DetectedAt)
	})

	t.Run("first detection stamps the timestamp", func(t *testing.T) {
		st.MarkSeen(10, true, 200)

		assert.Equal(t, models.SeenEntry{Detected: true, DetectedAt: 200}, st.Seen[10])
	})

	t.Run("later detections keep the original timestamp", func(t *testing.T) {
		st.MarkSeen(10, true, 300)

		assert.Equal(t, int64(200), st.Seen[10].DetectedAt)
	})
}

func TestPendingQueue(t *testing.T) {
	st := state.Default()

	st.EnqueuePending(10)
	st.EnqueuePending(20)
	st.EnqueuePending(10) // duplicate must be ignored

	require.Equal(t, []models.AppID{10, 20}, st.Pending)
	assert.True(t, st.IsPending(10))

	st.ResolvePending(10)

	assert.Equal(t, []models.AppID{20}, st.Pending)
	assert.False(t, st.IsPending(10))
}
