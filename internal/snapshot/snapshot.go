// Package snapshot reduces raw store records to comparable projections and
// computes field-level diffs between them.
package snapshot

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/awatari/storewatch/internal/models"
)

// Extract builds the normalized projection of a raw store record. It is a
// pure function: identical records always yield identical snapshots.
func Extract(rec *models.AppRecord) models.Snapshot {
	snap := models.Snapshot{
		Name:        strings.TrimSpace(rec.Name),
		DescDigest:  digest(rec.ShortDescription),
		Languages:   ParseLanguages(rec.SupportedLanguages),
		Genres:      genreSet(rec.Genres),
		Platforms:   platformSet(rec.Platforms),
		ReleaseDate: strings.TrimSpace(rec.ReleaseDate.Date),
		ComingSoon:  rec.ReleaseDate.ComingSoon,
		HeaderImage: stripQuery(rec.HeaderImage),
	}

	if rec.PriceOverview != nil {
		snap.PriceFinal = rec.PriceOverview.Final
		snap.PriceCurrency = rec.PriceOverview.Currency
	}

	return snap
}

// digest reduces free text to a short content hash so state stays bounded
// while remaining change-sensitive. Empty text digests to the empty string.
func digest(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(trimmed))
	return fmt.Sprintf("%x", sum[:8])
}

// genreSet projects genre descriptors to a sorted set of names.
func genreSet(genres []models.Genre) []string {
	set := make(map[string]struct{}, len(genres))
	for _, g := range genres {
		name := strings.TrimSpace(g.Description)
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// platformSet projects the platform flags to a sorted set of names.
func platformSet(p models.Platforms) []string {
	var out []string
	if p.Windows {
		out = append(out, "windows")
	}
	if p.Mac {
		out = append(out, "mac")
	}
	if p.Linux {
		out = append(out, "linux")
	}
	sort.Strings(out)
	return out
}

// stripQuery drops the volatile query parameters (cache busters, signed
// tokens) from an image URL so a re-signed URL does not count as a change.
func stripQuery(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String()
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
