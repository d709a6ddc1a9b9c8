package httpserver

import (
	"bytes"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	apphistory "github.com/bryanwahyu/artifact-age/internal/application/history"
	"github.com/bryanwahyu/artifact-age/internal/domain/artifact"
)

// pageData is the template data for the single-page UI.
type pageData struct {
	Title    string
	Entries  []apphistory.Entry
	Selected *apphistory.Preview
	Result   *artifact.Record
	Success  string
	Error    string
	Locked   bool
}

// Renderer executes the embedded page template.
type Renderer struct {
	page   *template.Template
	logger *zap.Logger
}

func NewRenderer(templateFS fs.FS, logger *zap.Logger) *Renderer {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}
	page := template.Must(template.New("index.html").Funcs(funcMap).ParseFS(templateFS, "index.html"))
	return &Renderer{page: page, logger: logger}
}

func (r *Renderer) renderPage(w http.ResponseWriter, status int, data pageData) {
	if data.Title == "" {
		data.Title = "Artifact Age Estimator"
	}
	var buf bytes.Buffer
	if err := r.page.Execute(&buf, data); err != nil {
		r.logger.Error("template execution error", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts the model's markdown answer to HTML using goldmark.
// goldmark drops raw HTML by default, so model output cannot inject markup.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
