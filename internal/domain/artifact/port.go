package artifact

import "context"

// HistoryRepository port untuk history analisa (urutan insert dipertahankan)
type HistoryRepository interface {
	Records() []Record
	Get(index int) (Record, bool)
	Len() int
	Append(rec Record) error
	DeleteAt(index int) error
	Clear() error
}

// AssetStore persists uploaded image bytes on local disk.
//
// Delete is best-effort: it never returns an error and never panics. A missing
// or undeletable file is silently ignored.
type AssetStore interface {
	Save(data []byte, mimeType, originalName string) (string, error)
	Delete(path string)
	Exists(path string) bool
}

// AssetMirror copies saved images to remote object storage.
type AssetMirror interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}
