// Package feed renders the bounded event lists into RSS 2.0 documents for
// downstream readers.
package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/awatari/storewatch/internal/models"
	"github.com/gorilla/feeds"
)

// Channel metadata per event kind.
var channels = map[models.EventKind]struct {
	title string
	desc  string
}{
	models.EventNew: {
		title: "Steam: Newly Published Store Pages",
		desc:  "Newly published Steam store pages detected by crawler.",
	},
	models.EventChanged: {
		title: "Steam: Store Page Updates",
		desc:  "Steam store updates: price, language and page changes.",
	},
}

const storefrontLink = "https://store.steampowered.com/"

// Write renders the events of one kind to path. The input is expected
// most-recent-first and the item order is preserved. An empty list still
// produces a valid feed document.
func Write(path string, kind models.EventKind, evs []models.Event, now time.Time) error {
	const opn = "feed.Write"

	ch, ok := channels[kind]
	if !ok {
		return fmt.Errorf("%s: unknown event kind %q", opn, kind)
	}

	rssFeed := &feeds.Feed{
		Title:       ch.title,
		Link:        &feeds.Link{Href: storefrontLink},
		Description: ch.desc,
		Created:     now,
	}

	for _, ev := range evs {
		item := &feeds.Item{
			Id:          ev.GUID(),
			Title:       ev.Title,
			Link:        &feeds.Link{Href: ev.Link},
			Description: itemDescription(ev),
			Created:     time.Unix(ev.Timestamp, 0).UTC(),
		}
		if ev.Image != "" {
			item.Enclosure = &feeds.Enclosure{Url: ev.Image, Type: "image/jpeg", Length: "0"}
		}
		rssFeed.Items = append(rssFeed.Items, item)
	}

	rss, err := rssFeed.ToRss()
	if err != nil {
		return fmt.Errorf("%s: failed to render feed: %w", opn, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err = os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%s: failed to create feed directory: %w", opn, err)
		}
	}

	if err = os.WriteFile(path, []byte(rss), 0o644); err != nil {
		return fmt.Errorf("%s: failed to write feed file: %w", opn, err)
	}

	return nil
}

// itemDescription renders the per-item body.
func itemDescription(ev models.Event) string {
	if ev.Summary != "" {
		return ev.Summary
	}
	if ev.Kind == models.EventNew {
		return "Newly discovered store page."
	}
	return "Store page updated."
}
