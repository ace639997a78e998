package feed_test

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/awatari/storewatch/internal/feed"
	"github.com/awatari/storewatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rssDoc mirrors just enough of RSS 2.0 to assert on the rendered output.
type rssDoc struct {
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
			GUID        string `xml:"guid"`
			Enclosure   *struct {
				URL string `xml:"url,attr"`
			} `xml:"enclosure"`
		} `xml:"item"`
	} `xml:"channel"`
}

func parseFeed(t *testing.T, path string) rssDoc {
	t.Helper()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc rssDoc
	require.NoError(t, xml.Unmarshal(raw, &doc))

	return doc
}

func TestWrite_NewEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed_new.xml")
	evs := []models.Event{
		{
			AppID:     440,
			Kind:      models.EventNew,
			Title:     "Sample Game",
			Link:      models.AppID(440).StoreURL(),
			Image:     "https://cdn.example.com/apps/440/header.jpg",
			Timestamp: 1700000100,
		},
		{
			AppID:     570,
			Kind:      models.EventNew,
			Title:     "Older Game",
			Link:      models.AppID(570).StoreURL(),
			Timestamp: 1700000000,
		},
	}

	require.NoError(t, feed.Write(path, models.EventNew, evs, time.Unix(1700000200, 0)))

	doc := parseFeed(t, path)
	assert.Equal(t, "Steam: Newly Published Store Pages", doc.Channel.Title)
	require.Len(t, doc.Channel.Items, 2)

	first := doc.Channel.Items[0]
	assert.Equal(t, "Sample Game", first.Title)
	assert.Equal(t, "https://store.steampowered.com/app/440", first.Link)
	assert.Equal(t, "storewatch:new:appid:440", first.GUID)
	assert.Equal(t, "Newly discovered store page.", first.Description)
	require.NotNil(t, first.Enclosure)
	assert.Equal(t, "https://cdn.example.com/apps/440/header.jpg", first.Enclosure.URL)

	// No image means no enclosure element.
	assert.Nil(t, doc.Channel.Items[1].Enclosure)
}

func TestWrite_ChangedEventsUseSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed_updates.xml")
	evs := []models.Event{
		{
			AppID:     440,
			Kind:      models.EventChanged,
			Title:     "Sample Game",
			Link:      models.AppID(440).StoreURL(),
			Summary:   "price: 1000 JPY -> 1480 JPY",
			Timestamp: 1700000100,
		},
	}

	require.NoError(t, feed.Write(path, models.EventChanged, evs, time.Unix(1700000200, 0)))

	doc := parseFeed(t, path)
	assert.Equal(t, "Steam: Store Page Updates", doc.Channel.Title)
	require.Len(t, doc.Channel.Items, 1)
	assert.Equal(t, "price: 1000 JPY -> 1480 JPY", doc.Channel.Items[0].Description)
	assert.Equal(t, "storewatch:changed:appid:440", doc.Channel.Items[0].GUID)
}

func TestWrite_EmptyListStillProducesValidFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed_new.xml")

	require.NoError(t, feed.Write(path, models.EventNew, nil, time.Unix(1700000200, 0)))

	doc := parseFeed(t, path)
	assert.Equal(t, "Steam: Newly Published Store Pages", doc.Channel.Title)
	assert.Empty(t, doc.Channel.Items)
}

func TestWrite_UnknownKind(t *testing.T) {
	err := feed.Write(filepath.Join(t.TempDir(), "feed.xml"), models.EventKind("bogus"), nil, time.Now())

	require.Error(t, err)
}

func TestWrite_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "feeds", "feed_new.xml")

	require.NoError(t, feed.Write(path, models.EventNew, nil, time.Now()))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
