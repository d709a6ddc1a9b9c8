package httpserver

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/artifact-age/internal/application/analysis"
	apphistory "github.com/bryanwahyu/artifact-age/internal/application/history"
	"github.com/bryanwahyu/artifact-age/internal/domain/archive"
	"github.com/bryanwahyu/artifact-age/internal/domain/artifact"
	"github.com/bryanwahyu/artifact-age/internal/middleware"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultMaxUploadBytes = 20 << 20

// Options configures the optional parts of the router.
type Options struct {
	AccessToken    string
	AllowedOrigins []string
	Limiter        *middleware.RateLimiter
	HealthChecks   map[string]middleware.HealthChecker
	MaxUploadBytes int64
	Logger         *zap.Logger
}

type Router struct {
	accessToken string
	analysisSvc *analysis.Service
	historySvc  *apphistory.Service
	archive     archive.Repository
	renderer    *Renderer
	maxUpload   int64
	logger      *zap.Logger
}

// NewRouter builds the HTML UI and the JSON API. archiveRepo may be nil.
func NewRouter(analysisSvc *analysis.Service, historySvc *apphistory.Service, archiveRepo archive.Repository, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("template sub-FS: %v", err))
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(10, 1)
	}

	r := &Router{
		accessToken: opts.AccessToken,
		analysisSvc: analysisSvc,
		historySvc:  historySvc,
		archive:     archiveRepo,
		renderer:    NewRenderer(templateSub, logger),
		maxUpload:   maxUpload,
		logger:      logger,
	}

	mux := chi.NewRouter()
	mux.Use(middleware.Logging(logger), middleware.MetricsMiddleware)

	mux.Get("/health", middleware.HealthHandler(opts.HealthChecks))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Get("/", r.handleIndex)
	mux.Post("/session", r.handleSession)
	mux.Group(func(rt chi.Router) {
		rt.Use(middleware.TokenAuth(opts.AccessToken))

		rt.With(middleware.RateLimitMiddleware(limiter)).Post("/analyze", r.handleAnalyzePage)
		rt.Post("/history/clear", r.handleClearPage)
		rt.Route("/history/{index}", func(rt chi.Router) {
			rt.Get("/image", r.wrap(r.handleImage))
			rt.Get("/download", r.wrap(r.handleDownload))
			rt.Post("/delete", r.handleDeletePage)
		})
	})

	mux.Route("/api", func(rt chi.Router) {
		rt.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}))
		rt.Use(middleware.TokenAuth(opts.AccessToken))

		rt.With(middleware.RateLimitMiddleware(limiter)).Post("/analyses", r.wrap(r.handleAnalyzeAPI))
		rt.Get("/history", r.wrap(r.handleHistoryList))
		rt.Delete("/history", r.wrap(r.handleHistoryClear))
		rt.Get("/history/{index}", r.wrap(r.handleHistoryGet))
		rt.Delete("/history/{index}", r.wrap(r.handleHistoryDelete))
		rt.Get("/archive", r.wrap(r.handleArchiveList))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError carries an explicit status for request-level failures.
type httpError struct {
	status int
	msg    string
}

func (e *httpError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &httpError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

var errNotFound = &httpError{status: http.StatusNotFound, msg: "not found"}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var he *httpError
			if errors.As(err, &he) {
				_ = renderJSON(w, he.status, map[string]string{"error": "request", "message": he.msg})
				return
			}
			kind := analysis.Kind(err)
			_ = renderJSON(w, statusFor(kind), map[string]string{
				"error":   string(kind),
				"message": analysis.Message(err),
			})
		}
	}
}

func statusFor(kind archive.FailureKind) int {
	switch kind {
	case archive.FailureConfig:
		return http.StatusServiceUnavailable
	case archive.FailureAuth:
		return http.StatusBadGateway
	case archive.FailureRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// readUpload extracts the "image" form file, validated and size-limited.
func (r *Router) readUpload(w http.ResponseWriter, req *http.Request) (artifact.Upload, error) {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(r.maxUpload); err != nil {
		return artifact.Upload{}, badRequest("invalid upload: %v", err)
	}
	file, header, err := req.FormFile("image")
	if err != nil {
		return artifact.Upload{}, badRequest("image file is required")
	}
	defer file.Close()

	name := middleware.SanitizeFilename(header.Filename)
	mimeType := header.Header.Get("Content-Type")
	if err := middleware.ValidateUpload(name, mimeType); err != nil {
		return artifact.Upload{}, badRequest("%v", err)
	}
	mimeType = middleware.ImageType(name, mimeType)

	data, err := io.ReadAll(file)
	if err != nil {
		return artifact.Upload{}, badRequest("read upload: %v", err)
	}
	return artifact.Upload{Name: name, MIMEType: mimeType, Data: data}, nil
}

func (r *Router) analyze(req *http.Request, up artifact.Upload) (artifact.Record, error) {
	middleware.AnalysisStarted()
	rec, err := r.analysisSvc.Analyze(req.Context(), up)
	middleware.AnalysisFinished(err == nil)
	return rec, err
}

func indexParam(req *http.Request) (int, error) {
	i, err := middleware.ParseIndex(chi.URLParam(req, "index"))
	if err != nil {
		return 0, badRequest("%v", err)
	}
	return i, nil
}

// ==== HTML ====

func (r *Router) page(selected *apphistory.Preview) pageData {
	return pageData{Entries: r.historySvc.List(), Selected: selected}
}

// GET /?selected=<index>
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) {
	if !middleware.Authorized(req, r.accessToken) {
		r.renderer.renderPage(w, http.StatusOK, pageData{Locked: true})
		return
	}
	var selected *apphistory.Preview
	if v := req.URL.Query().Get("selected"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			if p, ok := r.historySvc.Preview(i); ok {
				selected = &p
			}
		}
	}
	r.renderer.renderPage(w, http.StatusOK, r.page(selected))
}

// POST /session (form field "token")
func (r *Router) handleSession(w http.ResponseWriter, req *http.Request) {
	if r.accessToken == "" {
		http.Redirect(w, req, "/", http.StatusSeeOther)
		return
	}
	if !middleware.TokenMatches(req.PostFormValue("token"), r.accessToken) {
		r.renderer.renderPage(w, http.StatusUnauthorized, pageData{Locked: true, Error: "Invalid access token."})
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    r.accessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, req, "/", http.StatusSeeOther)
}

// POST /analyze (multipart, field "image")
func (r *Router) handleAnalyzePage(w http.ResponseWriter, req *http.Request) {
	up, err := r.readUpload(w, req)
	if err != nil {
		data := r.page(nil)
		data.Error = err.Error()
		r.renderer.renderPage(w, http.StatusBadRequest, data)
		return
	}

	rec, err := r.analyze(req, up)
	if err != nil {
		data := r.page(nil)
		data.Error = analysis.Message(err)
		r.renderer.renderPage(w, statusFor(analysis.Kind(err)), data)
		return
	}

	var selected *apphistory.Preview
	if p, ok := r.historySvc.Preview(r.historySvc.Len() - 1); ok {
		selected = &p
	}
	data := r.page(selected)
	data.Result = &rec
	data.Success = "Analysis Complete! Saved to History."
	r.renderer.renderPage(w, http.StatusOK, data)
}

// POST /history/{index}/delete
func (r *Router) handleDeletePage(w http.ResponseWriter, req *http.Request) {
	if i, err := middleware.ParseIndex(chi.URLParam(req, "index")); err == nil {
		if err := r.historySvc.Delete(i); err != nil {
			r.logger.Error("delete history failed", zap.Int("index", i), zap.Error(err))
			data := r.page(nil)
			data.Error = analysis.Message(err)
			r.renderer.renderPage(w, http.StatusInternalServerError, data)
			return
		}
	}
	http.Redirect(w, req, "/", http.StatusSeeOther)
}

// POST /history/clear
func (r *Router) handleClearPage(w http.ResponseWriter, req *http.Request) {
	if err := r.historySvc.Clear(); err != nil {
		r.logger.Error("clear history failed", zap.Error(err))
		data := r.page(nil)
		data.Error = analysis.Message(err)
		r.renderer.renderPage(w, http.StatusInternalServerError, data)
		return
	}
	http.Redirect(w, req, "/", http.StatusSeeOther)
}

// GET /history/{index}/image
func (r *Router) handleImage(w http.ResponseWriter, req *http.Request) error {
	i, err := indexParam(req)
	if err != nil {
		return err
	}
	p, ok := r.historySvc.Preview(i)
	if !ok || p.ImageMissing {
		return errNotFound
	}
	http.ServeFile(w, req, p.Record.ImagePath)
	return nil
}

// GET /history/{index}/download
func (r *Router) handleDownload(w http.ResponseWriter, req *http.Request) error {
	i, err := indexParam(req)
	if err != nil {
		return err
	}
	d, ok := r.historySvc.Download(i)
	if !ok {
		return errNotFound
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Filename))
	_, err = io.WriteString(w, d.Body)
	return err
}

// ==== JSON API ====

// POST /api/analyses (multipart, field "image")
func (r *Router) handleAnalyzeAPI(w http.ResponseWriter, req *http.Request) error {
	up, err := r.readUpload(w, req)
	if err != nil {
		return err
	}
	rec, err := r.analyze(req, up)
	if err != nil {
		return err
	}
	return renderJSON(w, http.StatusCreated, map[string]any{
		"index":  r.historySvc.Len() - 1,
		"record": rec,
	})
}

// GET /api/history
func (r *Router) handleHistoryList(w http.ResponseWriter, req *http.Request) error {
	return renderJSON(w, http.StatusOK, r.historySvc.List())
}

// GET /api/history/{index}
func (r *Router) handleHistoryGet(w http.ResponseWriter, req *http.Request) error {
	i, err := indexParam(req)
	if err != nil {
		return err
	}
	p, ok := r.historySvc.Preview(i)
	if !ok {
		return errNotFound
	}
	return renderJSON(w, http.StatusOK, p)
}

// DELETE /api/history/{index}
func (r *Router) handleHistoryDelete(w http.ResponseWriter, req *http.Request) error {
	i, err := indexParam(req)
	if err != nil {
		return err
	}
	if err := r.historySvc.Delete(i); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// DELETE /api/history
func (r *Router) handleHistoryClear(w http.ResponseWriter, req *http.Request) error {
	if err := r.historySvc.Clear(); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /api/archive?page=&page_size=
func (r *Router) handleArchiveList(w http.ResponseWriter, req *http.Request) error {
	if r.archive == nil {
		return errNotFound
	}
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
	size = middleware.ValidateLimit(size)

	list, err := r.archive.Paginate(req.Context(), page, size)
	if err != nil {
		return err
	}
	return renderJSON(w, http.StatusOK, archive.Page{Data: list, Page: page, PageSize: size})
}
