package mysql

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
  id VARCHAR(64) PRIMARY KEY,
  name VARCHAR(512) NOT NULL,
  image_path VARCHAR(1024) NOT NULL,
  mirror_url VARCHAR(1024) NOT NULL DEFAULT '',
  mime_type VARCHAR(64) NOT NULL,
  model VARCHAR(128) NOT NULL,
  result MEDIUMTEXT NOT NULL,
  created_at DATETIME(6) NOT NULL,
  INDEX idx_artifact_analyses_created (created_at)
) CHARACTER SET utf8mb4;`, `
CREATE TABLE IF NOT EXISTS artifact_analysis_failures (
  id BIGINT AUTO_INCREMENT PRIMARY KEY,
  name VARCHAR(512) NOT NULL,
  kind VARCHAR(32) NOT NULL,
  message TEXT NOT NULL,
  created_at DATETIME(6) NOT NULL
) CHARACTER SET utf8mb4;`}
	for _, q := range stmts {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Save inserts an archive entry
func (r *ArchiveRepository) Save(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO artifact_analyses
  (id, name, image_path, mirror_url, mime_type, model, result, created_at)
VALUES (?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  mirror_url=VALUES(mirror_url), result=VALUES(result);
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
VALUES (?,?,?,?)
`
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	created := f.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, stringOrDash(f.Name), stringOrDash(string(f.Kind)), msg, created)
	return err
}

// Paginate returns a page of archive entries ordered by created_at desc
func (r *ArchiveRepository) Paginate(ctx context.Context, page, pageSize int) ([]*domain.Entry, error) {
	limit, offset := pageBounds(page, pageSize)

	const q = `
SELECT id, name, image_path, mirror_url, mime_type, model, result, created_at
FROM artifact_analyses
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
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

// Ping checks the connection; also used as a health check.
func (r *ArchiveRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
