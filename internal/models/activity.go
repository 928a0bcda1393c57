package models

// Activity is one foreground-application interval reported to the remote API
type Activity struct {
	Type        string  `json:"tipe"` // "app" or "idle"
	Name        string  `json:"nama"`
	WindowTitle string  `json:"window_title"`
	URL         *string `json:"url,omitempty"`
	Duration    int64   `json:"durasi"`      // seconds
	RecordedAt  string  `json:"recorded_at"` // RFC 3339
}

// SyncRequest is the batch body sent to the remote sync endpoint
type SyncRequest struct {
	Token      string     `json:"token"`
	TrackingID int64      `json:"tracking_id"`
	BatchID    string     `json:"batch_id"`
	Activities []Activity `json:"activities"`
}

// Activity types
const (
	ActivityApp  = "app"
	ActivityIdle = "idle"
)

// SessionActivity is an activity tagged with the session it was recorded in
type SessionActivity struct {
	TrackingID int64
	Activity   Activity
}
