package models

// Snapshot is the normalized, comparable projection of an application's
// current store attributes. Free text is digested rather than stored
// verbatim, list-valued fields are kept as sorted sets.
type Snapshot struct {
	Name          string   `json:"name"`
	DescDigest    string   `json:"desc_digest"`
	PriceFinal    int64    `json:"price_final"`
	PriceCurrency string   `json:"price_currency"`
	Languages     []string `json:"languages,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Platforms     []string `json:"platforms,omitempty"`
	ReleaseDate   string   `json:"release_date,omitempty"`
	ComingSoon    bool     `json:"coming_soon,omitempty"`
	HeaderImage   string   `json:"header_image,omitempty"`
}

// FieldChange is one differing field between two snapshots of the same
// application, with both values rendered as strings.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// SeenEntry records whether and when an identifier was first resolved to a
// published store page.
type SeenEntry struct {
	Detected   bool  `json:"detected"`
	DetectedAt int64 `json:"detected_at,omitempty"`
}
