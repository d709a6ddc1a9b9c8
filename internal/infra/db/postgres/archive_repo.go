package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/artifact-age/internal/domain/archive"
)

type ArchiveRepository struct {
	db *sql.DB
}

func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// EnsureSchema creates the archive tables when they do not exist yet.
func (r *ArchiveRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS artifact_analyses (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  image_path TEXT NOT NULL,
  mirror_url TEXT NOT NULL DEFAULT '',
  mime_type TEXT NOT NULL,
  model TEXT NOT NULL,
  result TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_artifact_analyses_created ON artifact_analyses (created_at);`,
		`
CREATE TABLE IF NOT EXISTS artifact_analysis_failures (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  message TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
);`}
	for _, q := range stmts {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Save inserts or updates an archive entry
func (r *ArchiveRepository) Save(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO artifact_analyses
  (id, name, image_path, mirror_url, mime_type, model, result, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  mirror_url=EXCLUDED.mirror_url,
  result=EXCLUDED.result;
`
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		e.ID, stringOrDash(e.Name), stringOrDash(e.ImagePath), e.MirrorURL,
		stringOrDash(e.MIMEType), stringOrDash(e.Model), e.Result, created,
	)
	return err
}

// SaveFailure inserts a failed attempt
func (r *ArchiveRepository) SaveFailure(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO artifact_analysis_failures (name, kind, message, created_at)
VALUES ($1,$2,$3,$4)
RETURNING id;`
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return r.db.QueryRowContext(ctx, q, stringOrDash(f.Name), stringOrDash(string(f.Kind)), msg, created).Scan(&f.ID)
}

// Paginate returns a page of archive entries ordered by created_at desc
func (r *ArchiveRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Entry, error) {
	limit, offset := pageBounds(page, pageSize)

	const q = `
SELECT id, name, image_path, mirror_url, mime_type, model, result, created_at
FROM artifact_analyses
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2;
`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.ImagePath, &e.MirrorURL, &e.MIMEType, &e.Model, &e.Result, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *ArchiveRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
