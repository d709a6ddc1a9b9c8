package archive

import "time"

// EntryID identifier type
type EntryID string

// Entry is an append-only copy of a successful analysis kept in SQL.
// It is independent of the local history: deleting history never removes entries.
type Entry struct {
	ID        EntryID   `json:"id"`
	Name      string    `json:"name"`
	ImagePath string    `json:"image_path"`
	MirrorURL string    `json:"mirror_url,omitempty"`
	MIMEType  string    `json:"mime_type"`
	Model     string    `json:"model"`
	Result    string    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// FailureKind classifies why an analysis attempt did not produce a record.
type FailureKind string

const (
	FailureConfig    FailureKind = "config"
	FailureAuth      FailureKind = "auth"
	FailureRateLimit FailureKind = "rate_limit"
	FailureOther     FailureKind = "other"
)

// Failure represents a persisted failed analysis attempt
type Failure struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Kind      FailureKind `json:"kind"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
}

// Page is one page of archive entries, newest first.
type Page struct {
	Data     []*Entry `json:"data"`
	Page     int      `json:"page"`
	PageSize int      `json:"pageSize"`
}
