package history

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/artifact-age/internal/domain/artifact"
)

// Entry is a record as shown in the history list.
type Entry struct {
	Index  int             `json:"index"`
	Label  string          `json:"label"`
	Record artifact.Record `json:"record"`
}

// Preview is a single record plus whether its image is still on disk.
type Preview struct {
	Entry
	ImageMissing bool `json:"image_missing"`
}

// Download is the text export of one record.
type Download struct {
	Filename string
	Body     string
}

// Service exposes the history to the presentation layer.
type Service struct {
	Repo   artifact.HistoryRepository
	Assets artifact.AssetStore
}

// List returns the history newest first. Index stays the insertion index.
func (s *Service) List() []Entry {
	records := s.Repo.Records()
	out := make([]Entry, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, newEntry(i, records[i]))
	}
	return out
}

// Preview returns the record at index, or false when there is none.
func (s *Service) Preview(index int) (Preview, bool) {
	rec, ok := s.Repo.Get(index)
	if !ok {
		return Preview{}, false
	}
	return Preview{
		Entry:        newEntry(index, rec),
		ImageMissing: !s.Assets.Exists(rec.ImagePath),
	}, true
}

// Download returns the result text of the record at index as a .txt export.
func (s *Service) Download(index int) (Download, bool) {
	rec, ok := s.Repo.Get(index)
	if !ok {
		return Download{}, false
	}
	return Download{
		Filename: fmt.Sprintf("artifact_analysis_%s.txt", strings.ReplaceAll(rec.Time, ":", "-")),
		Body:     rec.Result,
	}, true
}

// Delete removes one record and its image. Unknown indexes are ignored.
func (s *Service) Delete(index int) error { return s.Repo.DeleteAt(index) }

// Clear removes every record and image.
func (s *Service) Clear() error { return s.Repo.Clear() }

func newEntry(index int, rec artifact.Record) Entry {
	return Entry{
		Index:  index,
		Label:  fmt.Sprintf("%d. %s — %s", index+1, rec.Time, rec.Name),
		Record: rec,
	}
}

// Len returns the number of stored records.
func (s *Service) Len() int { return s.Repo.Len() }
