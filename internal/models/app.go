package models

import "strconv"

// AppID is the opaque integer key that identifies one catalog item.
type AppID int64

// AppEntry is one element of the full catalog listing.
type AppEntry struct {
	AppID AppID  `json:"appid"`
	Name  string `json:"name"`
}

// PriceOverview mirrors the price block of the store details payload.
// Final is expressed in the smallest currency unit.
type PriceOverview struct {
	Final    int64  `json:"final"`
	Currency string `json:"currency"`
}

// ReleaseDate mirrors the release block of the store details payload.
type ReleaseDate struct {
	ComingSoon bool   `json:"coming_soon"`
	Date       string `json:"date"`
}

// Genre mirrors one genre descriptor of the store details payload.
type Genre struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Platforms mirrors the platform availability flags of the store details payload.
type Platforms struct {
	Windows bool `json:"windows"`
	Mac     bool `json:"mac"`
	Linux   bool `json:"linux"`
}

// AppRecord is the raw attribute set returned by a successful details fetch.
// It is transient: only its Snapshot projection is ever persisted.
type AppRecord struct {
	AppID              AppID          `json:"steam_appid"`
	Name               string         `json:"name"`
	Type               string         `json:"type"`
	IsFree             bool           `json:"is_free"`
	ShortDescription   string         `json:"short_description"`
	SupportedLanguages string         `json:"supported_languages"`
	HeaderImage        string         `json:"header_image"`
	Genres             []Genre        `json:"genres"`
	Platforms          Platforms      `json:"platforms"`
	PriceOverview      *PriceOverview `json:"price_overview"`
	ReleaseDate        ReleaseDate    `json:"release_date"`
}

// StoreURL returns the canonical store page link for an application.
func (id AppID) StoreURL() string {
	return "https://store.steampowered.com/app/" + id.String()
}

// String renders the identifier in its decimal form.
func (id AppID) String() string {
	return strconv.FormatInt(int64(id), 10)
}
