package snapshot

import (
	"sort"
	"strconv"
	"strings"

	"github.com/awatari/storewatch/internal/models"
)

// Field names used in change tuples and summaries.
const (
	FieldPrice       = "price"
	FieldLanguages   = "languages"
	FieldDescription = "description"
	FieldImage       = "image"
	FieldTitle       = "title"
	FieldGenres      = "genres"
	FieldPlatforms   = "platforms"
	FieldRelease     = "release"
)

// summaryPriority fixes the order in which changed fields are surfaced in a
// short summary label. Lower is more important.
var summaryPriority = map[string]int{
	FieldPrice:       0,
	FieldLanguages:   1,
	FieldDescription: 2,
	FieldImage:       3,
	FieldTitle:       4,
	FieldGenres:      5,
	FieldPlatforms:   6,
	FieldRelease:     7,
}

// maxSummaryItems caps how many individual changes a summary label carries.
const maxSummaryItems = 3

// Diff returns one change tuple per field whose value differs between the
// two snapshots. List-valued fields compare as sets. An empty result means
// the snapshots are semantically equal.
func Diff(old, current models.Snapshot) []models.FieldChange {
	var changes []models.FieldChange

	if old.PriceFinal != current.PriceFinal || old.PriceCurrency != current.PriceCurrency {
		changes = append(changes, models.FieldChange{
			Field: FieldPrice,
			Old:   formatPrice(old.PriceFinal, old.PriceCurrency),
			New:   formatPrice(current.PriceFinal, current.PriceCurrency),
		})
	}
	if !setsEqual(old.Languages, current.Languages) {
		changes = append(changes, models.FieldChange{
			Field: FieldLanguages,
			Old:   strings.Join(old.Languages, ", "),
			New:   strings.Join(current.Languages, ", "),
		})
	}
	if old.DescDigest != current.DescDigest {
		changes = append(changes, models.FieldChange{
			Field: FieldDescription,
			Old:   old.DescDigest,
			New:   current.DescDigest,
		})
	}
	if old.HeaderImage != current.HeaderImage {
		changes = append(changes, models.FieldChange{
			Field: FieldImage,
			Old:   old.HeaderImage,
			New:   current.HeaderImage,
		})
	}
	if old.Name != current.Name {
		changes = append(changes, models.FieldChange{
			Field: FieldTitle,
			Old:   old.Name,
			New:   current.Name,
		})
	}
	if !setsEqual(old.Genres, current.Genres) {
		changes = append(changes, models.FieldChange{
			Field: FieldGenres,
			Old:   strings.Join(old.Genres, ", "),
			New:   strings.Join(current.Genres, ", "),
		})
	}
	if !setsEqual(old.Platforms, current.Platforms) {
		changes = append(changes, models.FieldChange{
			Field: FieldPlatforms,
			Old:   strings.Join(old.Platforms, ", "),
			New:   strings.Join(current.Platforms, ", "),
		})
	}
	if old.ReleaseDate != current.ReleaseDate || old.ComingSoon != current.ComingSoon {
		changes = append(changes, models.FieldChange{
			Field: FieldRelease,
			Old:   formatRelease(old.ReleaseDate, old.ComingSoon),
			New:   formatRelease(current.ReleaseDate, current.ComingSoon),
		})
	}

	return changes
}

// Summarize renders a short human-readable label of the most important
// changes, at most maxSummaryItems of them.
func Summarize(changes []models.FieldChange) string {
	if len(changes) == 0 {
		return ""
	}

	ordered := make([]models.FieldChange, len(changes))
	copy(ordered, changes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return priorityOf(ordered[i].Field) < priorityOf(ordered[j].Field)
	})

	if len(ordered) > maxSummaryItems {
		ordered = ordered[:maxSummaryItems]
	}

	parts := make([]string, 0, len(ordered))
	for _, ch := range ordered {
		switch ch.Field {
		case FieldDescription:
			parts = append(parts, "description updated")
		case FieldImage:
			parts = append(parts, "artwork updated")
		default:
			parts = append(parts, ch.Field+": "+ch.Old+" -> "+ch.New)
		}
	}

	return strings.Join(parts, "; ")
}

func priorityOf(field string) int {
	if p, ok := summaryPriority[field]; ok {
		return p
	}
	return len(summaryPriority)
}

// setsEqual compares two sorted string sets.
func setsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func formatPrice(final int64, currency string) string {
	if currency == "" {
		return "free"
	}
	return strconv.FormatInt(final, 10) + " " + currency
}

func formatRelease(date string, comingSoon bool) string {
	if comingSoon {
		if date == "" {
			return "coming soon"
		}
		return "coming soon (" + date + ")"
	}
	if date == "" {
		return "unknown"
	}
	return date
}
