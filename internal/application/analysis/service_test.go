package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/artifact-age/internal/application"
	"github.com/bryanwahyu/artifact-age/internal/domain/ai"
	"github.com/bryanwahyu/artifact-age/internal/domain/archive"
	"github.com/bryanwahyu/artifact-age/internal/domain/artifact"
	"github.com/bryanwahyu/artifact-age/internal/infra/history"
	"github.com/bryanwahyu/artifact-age/internal/infra/storage"
)

type fakeAI struct {
	result string
	err    error
	calls  []ai.Request
}

func (f *fakeAI) Analyze(_ context.Context, req ai.Request) (string, error) {
	f.calls = append(f.calls, req)
	return f.result, f.err
}

func (f *fakeAI) Model() string { return "fake-vision" }

type fakeArchive struct {
	entries  []*archive.Entry
	failures []*archive.Failure
	err      error
}

func (f *fakeArchive) Save(_ context.Context, e *archive.Entry) error {
	f.entries = append(f.entries, e)
	return f.err
}

func (f *fakeArchive) SaveFailure(_ context.Context, fl *archive.Failure) error {
	f.failures = append(f.failures, fl)
	return f.err
}

func (f *fakeArchive) Paginate(context.Context, int, int) ([]*archive.Entry, error) {
	return f.entries, nil
}

func (f *fakeArchive) Ping(context.Context) error { return nil }

type fakeMirror struct {
	keys []string
	err  error
}

func (f *fakeMirror) Upload(_ context.Context, localPath, key string) (string, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return "", f.err
	}
	return "http://minio/bucket/" + key, nil
}

type failingHistory struct{ artifact.HistoryRepository }

func (failingHistory) Append(artifact.Record) error { return errors.New("disk full") }

var fixedNow = time.Date(2025, 2, 3, 4, 5, 6, 0, time.Local)

func newService(t *testing.T, client ai.Client) (*Service, *history.Store, *storage.LocalStore) {
	t.Helper()
	dir := t.TempDir()
	assets := storage.NewLocalStore(filepath.Join(dir, "saved_images"))
	store := history.Open(filepath.Join(dir, "history.json"), assets)
	svc := &Service{
		History: store,
		Assets:  assets,
		AI:      client,
		Clock:   application.FixedClock{T: fixedNow},
	}
	return svc, store, assets
}

func imageFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out
}

func TestAnalyzeStoresRecord(t *testing.T) {
	client := &fakeAI{result: "1 Type: vase"}
	svc, store, _ := newService(t, client)

	rec, err := svc.Analyze(context.Background(), artifact.Upload{
		Name: "relic.jpg", MIMEType: "image/jpeg", Data: []byte("ABC"),
	})
	require.NoError(t, err)

	records := store.Records()
	require.Len(t, records, 1)
	assert.Equal(t, rec, records[0])
	assert.Equal(t, "relic.jpg", records[0].Name)
	assert.Equal(t, "1 Type: vase", records[0].Result)
	assert.Equal(t, "2025-02-03 04:05:06", records[0].Time)

	data, err := os.ReadFile(records[0].ImagePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("ABC"), data)
	assert.Equal(t, ".jpg", filepath.Ext(records[0].ImagePath))

	require.Len(t, client.calls, 1)
	assert.Equal(t, "data:image/jpeg;base64,QUJD", client.calls[0].ImageDataURI)
	assert.Equal(t, "image/jpeg", client.calls[0].MIMEType)
	assert.Contains(t, client.calls[0].Prompt, "Risk Warnings")
}

func TestAnalyzeDefaultsMIMEType(t *testing.T) {
	client := &fakeAI{result: "ok"}
	svc, _, _ := newService(t, client)

	rec, err := svc.Analyze(context.Background(), artifact.Upload{Name: "x", Data: []byte("A")})
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(rec.ImagePath))
	assert.Equal(t, "data:image/jpeg;base64,QQ==", client.calls[0].ImageDataURI)
}

func TestAnalyzeProviderFailures(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind archive.FailureKind
		msg  string
	}{
		{"auth", fmt.Errorf("%w: 401", ai.ErrUnauthorized), archive.FailureAuth, "Invalid API key."},
		{"rate limit", fmt.Errorf("%w: 429", ai.ErrQuotaExceeded), archive.FailureRateLimit, "Rate limit exceeded."},
		{"other", errors.New("connection reset"), archive.FailureOther, "Error: connection reset"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, assets := newService(t, &fakeAI{err: tc.err})
			arch := &fakeArchive{}
			svc.Archive = arch
			before := store.Len()

			_, err := svc.Analyze(context.Background(), artifact.Upload{
				Name: "relic.jpg", MIMEType: "image/jpeg", Data: []byte("ABC"),
			})
			require.Error(t, err)
			assert.Equal(t, tc.kind, Kind(err))
			assert.Equal(t, tc.msg, Message(err))

			assert.Equal(t, before, store.Len())
			assert.Empty(t, imageFiles(t, assets.Dir()), "failed attempt must not leave an image behind")

			require.Len(t, arch.failures, 1)
			assert.Equal(t, tc.kind, arch.failures[0].Kind)
			assert.Empty(t, arch.entries)
		})
	}
}

func TestAnalyzeWithoutClient(t *testing.T) {
	svc, store, assets := newService(t, nil)

	_, err := svc.Analyze(context.Background(), artifact.Upload{Name: "a.png", MIMEType: "image/png", Data: []byte("x")})
	require.ErrorIs(t, err, ai.ErrMissingAPIKey)
	assert.Equal(t, "Please set OPENAI_API_KEY in your environment or config file.", Message(err))
	assert.Equal(t, 0, store.Len())
	_, statErr := os.Stat(assets.Dir())
	assert.True(t, os.IsNotExist(statErr), "images dir must not be touched")
}

func TestAnalyzeAppendFailureRemovesImage(t *testing.T) {
	svc, store, assets := newService(t, &fakeAI{result: "ok"})
	svc.History = failingHistory{HistoryRepository: store}

	_, err := svc.Analyze(context.Background(), artifact.Upload{Name: "a.png", MIMEType: "image/png", Data: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, "Error: disk full", Message(err))
	assert.Empty(t, imageFiles(t, assets.Dir()))
}

func TestAnalyzeMirrorsAndArchives(t *testing.T) {
	svc, store, _ := newService(t, &fakeAI{result: "ok"})
	arch := &fakeArchive{}
	mirror := &fakeMirror{}
	svc.Archive = arch
	svc.Mirror = mirror

	rec, err := svc.Analyze(context.Background(), artifact.Upload{Name: "a.png", MIMEType: "image/png", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	require.Len(t, mirror.keys, 1)
	assert.Equal(t, "images/"+filepath.Base(rec.ImagePath), mirror.keys[0])

	require.Len(t, arch.entries, 1)
	e := arch.entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "a.png", e.Name)
	assert.Equal(t, "image/png", e.MIMEType)
	assert.Equal(t, "fake-vision", e.Model)
	assert.Equal(t, "http://minio/bucket/"+mirror.keys[0], e.MirrorURL)
	assert.Equal(t, fixedNow, e.CreatedAt)
}

func TestAnalyzeSideChannelFailuresAreIgnored(t *testing.T) {
	svc, store, _ := newService(t, &fakeAI{result: "ok"})
	svc.Archive = &fakeArchive{err: errors.New("db down")}
	svc.Mirror = &fakeMirror{err: errors.New("minio down")}

	_, err := svc.Analyze(context.Background(), artifact.Upload{Name: "a.png", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}
