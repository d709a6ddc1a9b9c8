package analysis

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/artifact-age/internal/application"
	"github.com/bryanwahyu/artifact-age/internal/domain/ai"
	"github.com/bryanwahyu/artifact-age/internal/domain/archive"
	"github.com/bryanwahyu/artifact-age/internal/domain/artifact"
	"github.com/bryanwahyu/artifact-age/internal/infra/ai/prompt"
)

// Service runs one analysis: save the image, ask the model, record the result.
// AI may be nil, which means no credential is configured. Mirror and Archive
// are optional side channels.
type Service struct {
	History artifact.HistoryRepository
	Assets  artifact.AssetStore
	AI      ai.Client
	Mirror  artifact.AssetMirror
	Archive archive.Repository
	Clock   application.Clock
	Logger  *zap.Logger
}

// Analyze processes one upload. On any failure after the image was saved the
// image is removed again, so a failed attempt leaves no file and no record.
func (s *Service) Analyze(ctx context.Context, up artifact.Upload) (artifact.Record, error) {
	log := s.logger().With(zap.String("name", up.Name))

	if s.AI == nil {
		s.recordFailure(ctx, up, ai.ErrMissingAPIKey)
		return artifact.Record{}, ai.ErrMissingAPIKey
	}

	mimeType := up.ContentType()
	imagePath, err := s.Assets.Save(up.Data, mimeType, up.Name)
	if err != nil {
		s.recordFailure(ctx, up, err)
		return artifact.Record{}, err
	}

	result, err := s.AI.Analyze(ctx, ai.Request{
		Prompt:       prompt.GetArtifactPrompt(),
		MIMEType:     mimeType,
		ImageDataURI: prompt.DataURI(mimeType, up.Data),
	})
	if err != nil {
		s.Assets.Delete(imagePath)
		log.Warn("analysis failed", zap.String("kind", string(Kind(err))), zap.Error(err))
		s.recordFailure(ctx, up, err)
		return artifact.Record{}, err
	}

	rec := artifact.Record{
		Time:      s.clock().Now().Format(artifact.TimeLayout),
		Name:      up.Name,
		ImagePath: imagePath,
		Result:    result,
	}
	if err := s.History.Append(rec); err != nil {
		s.Assets.Delete(imagePath)
		log.Error("append history failed", zap.Error(err))
		s.recordFailure(ctx, up, err)
		return artifact.Record{}, err
	}
	log.Info("analysis stored", zap.String("image_path", imagePath), zap.Int("result_chars", len(result)))

	s.archive(ctx, rec, mimeType)
	return rec, nil
}

// archive copies a stored record to the mirror and the SQL archive when they
// are configured. Failures are logged only.
func (s *Service) archive(ctx context.Context, rec artifact.Record, mimeType string) {
	var mirrorURL string
	if s.Mirror != nil {
		url, err := s.Mirror.Upload(ctx, rec.ImagePath, "images/"+filepath.Base(rec.ImagePath))
		if err != nil {
			s.logger().Warn("mirror upload failed", zap.String("image_path", rec.ImagePath), zap.Error(err))
		} else {
			mirrorURL = url
		}
	}
	if s.Archive == nil {
		return
	}
	model := ""
	if s.AI != nil {
		model = s.AI.Model()
	}
	entry := &archive.Entry{
		ID:        archive.EntryID(uuid.New().String()),
		Name:      rec.Name,
		ImagePath: rec.ImagePath,
		MirrorURL: mirrorURL,
		MIMEType:  mimeType,
		Model:     model,
		Result:    rec.Result,
		CreatedAt: s.clock().Now(),
	}
	if err := s.Archive.Save(ctx, entry); err != nil {
		s.logger().Warn("archive save failed", zap.Error(err))
	}
}

func (s *Service) recordFailure(ctx context.Context, up artifact.Upload, cause error) {
	if s.Archive == nil {
		return
	}
	f := &archive.Failure{
		Name:      up.Name,
		Kind:      Kind(cause),
		Message:   cause.Error(),
		CreatedAt: s.clock().Now(),
	}
	if err := s.Archive.SaveFailure(ctx, f); err != nil {
		s.logger().Warn("archive failure save failed", zap.Error(err))
	}
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Kind classifies an analysis error.
func Kind(err error) archive.FailureKind {
	switch {
	case errors.Is(err, ai.ErrMissingAPIKey):
		return archive.FailureConfig
	case errors.Is(err, ai.ErrUnauthorized):
		return archive.FailureAuth
	case errors.Is(err, ai.ErrQuotaExceeded):
		return archive.FailureRateLimit
	default:
		return archive.FailureOther
	}
}

// Message turns an analysis error into the text shown to the user.
func Message(err error) string {
	switch Kind(err) {
	case archive.FailureConfig:
		return "Please set OPENAI_API_KEY in your environment or config file."
	case archive.FailureAuth:
		return "Invalid API key."
	case archive.FailureRateLimit:
		return "Rate limit exceeded."
	default:
		return "Error: " + err.Error()
	}
}
