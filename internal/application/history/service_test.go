package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/artifact-age/internal/domain/artifact"
	infrahistory "github.com/bryanwahyu/artifact-age/internal/infra/history"
	"github.com/bryanwahyu/artifact-age/internal/infra/storage"
)

func setup(t *testing.T, names ...string) (*Service, []artifact.Record) {
	t.Helper()
	dir := t.TempDir()
	assets := storage.NewLocalStore(filepath.Join(dir, "img"))
	repo := infrahistory.Open(filepath.Join(dir, "history.json"), assets)

	var recs []artifact.Record
	for _, n := range names {
		p, err := assets.Save([]byte(n), "image/png", n)
		require.NoError(t, err)
		rec := artifact.Record{Time: "2024-06-01 12:30:45", Name: n, ImagePath: p, Result: "# " + n}
		require.NoError(t, repo.Append(rec))
		recs = append(recs, rec)
	}
	return &Service{Repo: repo, Assets: assets}, recs
}

func TestListNewestFirst(t *testing.T) {
	svc, recs := setup(t, "a.png", "b.png", "c.png")

	list := svc.List()
	require.Len(t, list, 3)
	assert.Equal(t, []int{2, 1, 0}, []int{list[0].Index, list[1].Index, list[2].Index})
	assert.Equal(t, recs[2], list[0].Record)
	assert.Equal(t, "3. 2024-06-01 12:30:45 — c.png", list[0].Label)
	assert.Equal(t, "1. 2024-06-01 12:30:45 — a.png", list[2].Label)
}

func TestListEmpty(t *testing.T) {
	svc, _ := setup(t)
	assert.Empty(t, svc.List())
}

func TestPreviewReportsMissingImage(t *testing.T) {
	svc, recs := setup(t, "a.png", "b.png")
	require.NoError(t, os.Remove(recs[0].ImagePath))

	p, ok := svc.Preview(0)
	require.True(t, ok)
	assert.True(t, p.ImageMissing)
	assert.Equal(t, recs[0], p.Record)

	p, ok = svc.Preview(1)
	require.True(t, ok)
	assert.False(t, p.ImageMissing)

	_, ok = svc.Preview(2)
	assert.False(t, ok)
}

func TestDownload(t *testing.T) {
	svc, _ := setup(t, "a.png")

	d, ok := svc.Download(0)
	require.True(t, ok)
	assert.Equal(t, "artifact_analysis_2024-06-01 12-30-45.txt", d.Filename)
	assert.Equal(t, "# a.png", d.Body)

	_, ok = svc.Download(-1)
	assert.False(t, ok)
}

func TestDeleteAndClear(t *testing.T) {
	svc, recs := setup(t, "a.png", "b.png", "c.png")

	require.NoError(t, svc.Delete(0))
	require.NoError(t, svc.Delete(10))
	list := svc.List()
	require.Len(t, list, 2)
	assert.Equal(t, recs[2], list[0].Record)
	assert.Equal(t, recs[1], list[1].Record)

	require.NoError(t, svc.Clear())
	assert.Empty(t, svc.List())
	for _, r := range recs {
		assert.False(t, svc.Assets.Exists(r.ImagePath))
	}
}
