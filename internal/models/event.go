package models

// EventKind discriminates the two feed channels.
type EventKind string

// Supported event kinds.
const (
	EventNew     EventKind = "new"
	EventChanged EventKind = "changed"
)

// Event is one detected discovery or change, ready for publication.
type Event struct {
	AppID     AppID     `json:"appid"`
	Kind      EventKind `json:"kind"`
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Summary   string    `json:"summary,omitempty"`
	Image     string    `json:"image,omitempty"`
	Timestamp int64     `json:"ts"`
}

// GUID returns the stable identity key used by feed consumers.
func (e Event) GUID() string {
	return "storewatch:" + string(e.Kind) + ":appid:" + e.AppID.String()
}
