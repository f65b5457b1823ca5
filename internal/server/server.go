// Package server exposes stored captures over HTTP: a render page that applies
// the latest stylesheet, and per-capture exports.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bdougie/boxshadow/internal/compiler"
	"github.com/bdougie/boxshadow/internal/models"
	"github.com/bdougie/boxshadow/internal/storage"
)

const defaultListLimit = 50

// SimilarFinder is implemented by stores that index frame signatures.
type SimilarFinder interface {
	SearchSimilarFrames(ctx context.Context, captureID int64, frameNumber, limit int) ([]models.FrameSearchResult, error)
}

// Server serves captures from a Storage
type Server struct {
	store  storage.Storage
	logger *slog.Logger
	router *chi.Mux
}

// New builds the router over store
func New(store storage.Storage, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	s := &Server{store: store, logger: logger, router: r}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/render", http.StatusFound)
	})
	r.Get("/render", s.handleRender)
	r.Post("/render", s.handleRender)

	r.Route("/captures", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleCapture)
			r.Get("/animation.css", s.handleCSS)
			r.Get("/index.html", s.handleHTML)
			r.Get("/codepen", s.handleCodepen)
			r.Get("/similar", s.handleSimilar)
		})
	})

	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("render server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

var renderPage = template.Must(template.New("render").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Video made with box-shadows</title>
<style>{{.CSS}}</style>
</head>
<body>
{{.Markup}}
{{if .Name}}<p>Capture {{.ID}}: {{.Name}}</p>{{else}}<p>No capture yet.</p>{{end}}
<form method="post" action="/render">
<textarea name="css" rows="12" cols="80">{{.Source}}</textarea>
<button type="submit">Render</button>
</form>
</body>
</html>
`))

type renderData struct {
	ID     int64
	Name   string
	CSS    template.CSS
	Source string
	Markup template.HTML
}

// handleRender shows the latest capture, or the stylesheet posted in the
// css form field.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	data := renderData{Markup: template.HTML(compiler.Markup)}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		data.Source = r.PostForm.Get("css")
		data.Name = "override"
	} else {
		c, err := s.store.LatestCapture(r.Context())
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			s.serverError(w, "Failed to load latest capture", err)
			return
		default:
			data.ID, data.Name, data.Source = c.ID, c.Name, c.CSS
		}
	}
	data.CSS = template.CSS(compiler.StyleText(data.Source))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderPage.Execute(w, data); err != nil {
		s.logger.Error("Failed to render page", "error", err)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := s.store.ListCaptures(r.Context(), limit)
	if err != nil {
		s.serverError(w, "Failed to list captures", err)
		return
	}
	if list == nil {
		list = []models.CaptureSummary{}
	}
	writeJSON(w, list)
}

func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCapture(w, r)
	if !ok {
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleCSS(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCapture(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write([]byte(c.CSS))
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCapture(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(compiler.HTMLDocument(c.CSS)))
}

func (s *Server) handleCodepen(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCapture(w, r)
	if !ok {
		return
	}
	payload, err := compiler.CodepenPayload(c.CSS)
	if err != nil {
		s.serverError(w, "Failed to build codepen payload", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// handleSimilar lists frames resembling ?frame=N of the capture.
func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	finder, ok := s.store.(SimilarFinder)
	if !ok {
		http.Error(w, "Similarity search needs the postgres store", http.StatusNotImplemented)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid capture id", http.StatusBadRequest)
		return
	}
	frame, err := queryInt(r, "frame", 0)
	if err != nil || frame < 0 {
		http.Error(w, "Invalid frame", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", 5)
	if err != nil || limit <= 0 {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	results, err := finder.SearchSimilarFrames(r.Context(), id, frame, limit)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Frame not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, "Failed to search frames", err)
		return
	}
	if results == nil {
		results = []models.FrameSearchResult{}
	}
	writeJSON(w, results)
}

func (s *Server) loadCapture(w http.ResponseWriter, r *http.Request) (*models.Capture, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid capture id", http.StatusBadRequest)
		return nil, false
	}
	c, err := s.store.GetCapture(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "Capture not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.serverError(w, "Failed to load capture", err)
		return nil, false
	}
	return c, true
}

func (s *Server) serverError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
