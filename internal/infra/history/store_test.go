package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/artifact-age/internal/domain/artifact"
	"github.com/bryanwahyu/artifact-age/internal/infra/storage"
)

type fixture struct {
	dir    string
	path   string
	assets *storage.LocalStore
	store  *Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	assets := storage.NewLocalStore(filepath.Join(dir, "saved_images"))
	path := filepath.Join(dir, "history.json")
	return &fixture{dir: dir, path: path, assets: assets, store: Open(path, assets)}
}

func (f *fixture) addRecord(t *testing.T, name string) artifact.Record {
	t.Helper()
	imagePath, err := f.assets.Save([]byte(name), "image/jpeg", name)
	require.NoError(t, err)
	rec := artifact.Record{
		Time:      "2024-05-01 10:00:00",
		Name:      name,
		ImagePath: imagePath,
		Result:    "result for " + name,
	}
	require.NoError(t, f.store.Append(rec))
	return rec
}

func TestOpenMissingDocumentIsEmpty(t *testing.T) {
	f := newFixture(t)

	assert.Empty(t, f.store.Records())
	assert.Equal(t, 0, f.store.Len())
	_, err := os.Stat(f.path)
	assert.True(t, os.IsNotExist(err), "open must not create the document")
}

func TestLoadCorruptDocumentIsEmpty(t *testing.T) {
	for name, content := range map[string]string{
		"garbage":   "{not json",
		"object":    `{"time":"x"}`,
		"truncated": `[{"time":"2024`,
		"null":      "null",
		"empty":     "",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "history.json")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			s := Open(path, storage.NewLocalStore(t.TempDir()))
			assert.NotPanics(t, func() { s.Load() })
			assert.Empty(t, s.Load())
		})
	}
}

func TestAppendPersistsAcrossInstances(t *testing.T) {
	f := newFixture(t)
	f.addRecord(t, "first.jpg")
	last := f.addRecord(t, "second.jpg")

	reopened := Open(f.path, f.assets)
	records := reopened.Records()
	require.Len(t, records, 2)
	assert.Equal(t, last, records[len(records)-1])
	assert.Equal(t, "first.jpg", records[0].Name)
}

func TestDuplicatesAllowed(t *testing.T) {
	f := newFixture(t)
	rec := artifact.Record{Time: "t", Name: "same.jpg", Result: "r"}
	require.NoError(t, f.store.Append(rec))
	require.NoError(t, f.store.Append(rec))

	assert.Equal(t, 2, Open(f.path, f.assets).Len())
}

func TestDeleteAtRemovesRecordAndImage(t *testing.T) {
	f := newFixture(t)
	a := f.addRecord(t, "a.jpg")
	b := f.addRecord(t, "b.jpg")
	c := f.addRecord(t, "c.jpg")

	require.NoError(t, f.store.DeleteAt(1))

	assert.Equal(t, []artifact.Record{a, c}, f.store.Records())
	assert.False(t, f.assets.Exists(b.ImagePath))
	assert.True(t, f.assets.Exists(a.ImagePath))
	assert.True(t, f.assets.Exists(c.ImagePath))
	assert.Equal(t, []artifact.Record{a, c}, Open(f.path, f.assets).Records())
}

func TestDeleteAtOutOfRangeIsNoop(t *testing.T) {
	f := newFixture(t)
	a := f.addRecord(t, "a.jpg")
	b := f.addRecord(t, "b.jpg")
	before, err := os.ReadFile(f.path)
	require.NoError(t, err)

	for _, idx := range []int{-1, 2, 99} {
		require.NoError(t, f.store.DeleteAt(idx))
	}

	assert.Equal(t, []artifact.Record{a, b}, f.store.Records())
	assert.True(t, f.assets.Exists(a.ImagePath))
	assert.True(t, f.assets.Exists(b.ImagePath))
	after, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDeleteAtToleratesMissingImage(t *testing.T) {
	f := newFixture(t)
	a := f.addRecord(t, "a.jpg")
	require.NoError(t, os.Remove(a.ImagePath))

	require.NoError(t, f.store.DeleteAt(0))
	assert.Equal(t, 0, f.store.Len())
}

func TestClearRemovesEverything(t *testing.T) {
	f := newFixture(t)
	recs := []artifact.Record{f.addRecord(t, "a.jpg"), f.addRecord(t, "b.png")}

	require.NoError(t, f.store.Clear())

	assert.Equal(t, 0, f.store.Len())
	for _, r := range recs {
		assert.False(t, f.assets.Exists(r.ImagePath))
	}
	assert.Empty(t, Open(f.path, f.assets).Records())

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))
}

func TestClearTwice(t *testing.T) {
	f := newFixture(t)
	f.addRecord(t, "a.jpg")

	require.NoError(t, f.store.Clear())
	require.NoError(t, f.store.Clear())
	assert.Equal(t, 0, f.store.Len())
}

func TestDocumentFormat(t *testing.T) {
	f := newFixture(t)
	rec := artifact.Record{
		Time:      "2024-05-01 10:00:00",
		Name:      "تمثال <1>.jpg",
		ImagePath: "saved_images/x.jpg",
		Result:    "1 **Artifact / Structure type:** 陶器 & bronze",
	}
	require.NoError(t, f.store.Append(rec))

	data, err := os.ReadFile(f.path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "تمثال <1>.jpg")
	assert.Contains(t, text, "陶器 & bronze")
	assert.NotContains(t, text, `\u`)
	assert.True(t, strings.HasPrefix(text, "[\n  {\n    \"time\""), text)

	var raw []map[string]string
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, map[string]string{
		"time":       rec.Time,
		"name":       rec.Name,
		"image_path": rec.ImagePath,
		"result":     rec.Result,
	}, raw[0])
}

func TestAppendWriteFailureRollsBack(t *testing.T) {
	dir := t.TempDir()
	// A directory where the document should be makes every write fail.
	path := filepath.Join(dir, "history.json")
	require.NoError(t, os.Mkdir(path, 0o755))

	s := Open(path, storage.NewLocalStore(dir))
	err := s.Append(artifact.Record{Name: "a.jpg"})
	require.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestRecordsReturnsCopy(t *testing.T) {
	f := newFixture(t)
	f.addRecord(t, "a.jpg")

	recs := f.store.Records()
	recs[0].Name = "mutated"

	got, ok := f.store.Get(0)
	require.True(t, ok)
	assert.Equal(t, "a.jpg", got.Name)

	_, ok = f.store.Get(5)
	assert.False(t, ok)
}

func TestDeleteAtWriteFailureKeepsRecordAndImage(t *testing.T) {
	f := newFixture(t)
	rec := f.addRecord(t, "a.jpg")

	require.NoError(t, os.Remove(f.path))
	require.NoError(t, os.Mkdir(f.path, 0o755))

	require.Error(t, f.store.DeleteAt(0))
	assert.Equal(t, 1, f.store.Len())
	assert.FileExists(t, rec.ImagePath)
}

func TestClearWriteFailureKeepsRecordsAndImages(t *testing.T) {
	f := newFixture(t)
	a := f.addRecord(t, "a.jpg")
	b := f.addRecord(t, "b.jpg")

	require.NoError(t, os.Remove(f.path))
	require.NoError(t, os.Mkdir(f.path, 0o755))

	require.Error(t, f.store.Clear())
	assert.Equal(t, 2, f.store.Len())
	assert.FileExists(t, a.ImagePath)
	assert.FileExists(t, b.ImagePath)
}
