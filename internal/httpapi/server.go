package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joelkehle/paper-review/internal/logging"
	"github.com/joelkehle/paper-review/internal/paperreview"
	"github.com/joelkehle/paper-review/internal/textextract"
)

const (
	defaultMaxUploadBytes = textextract.DefaultMaxBytes
	multipartMemory       = 8 << 20
)

// Reviewer runs the review pipeline over extracted text.
type Reviewer interface {
	Run(ctx context.Context, rawText, filename string) (paperreview.ReviewReport, error)
}

type PDFRenderer interface {
	Render(ctx context.Context, report paperreview.ReviewReport) ([]byte, error)
}

type Options struct {
	Reviewer       Reviewer
	Renderer       PDFRenderer
	MaxUploadBytes int64
	Version        string
}

type Server struct {
	reviewer Reviewer
	renderer PDFRenderer
	maxBytes int64
	version  string
	started  time.Time
	log      *slog.Logger
}

type reviewRequest struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

func NewServer(opts Options) http.Handler {
	s := &Server{
		reviewer: opts.Reviewer,
		renderer: opts.Renderer,
		maxBytes: opts.MaxUploadBytes,
		version:  opts.Version,
		started:  time.Now(),
		log:      logging.New("httpapi"),
	}
	if s.maxBytes <= 0 {
		s.maxBytes = defaultMaxUploadBytes
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/v1/health", http.StatusTemporaryRedirect)
	})
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/reviews", s.handleReview)
		r.Post("/reviews/upload", s.handleUpload)
		r.Post("/render/pdf", s.handleRenderPDF)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"service":        "paper-review",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"pdf_rendering":  s.renderer != nil,
	})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBytes))
	if err := dec.Decode(&req); err != nil {
		if isTooLarge(err) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request", "too_large", "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "request", "bad_request", "invalid JSON body: "+err.Error())
		return
	}
	s.review(w, r, req.Text, req.Filename)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request", "too_large", "upload too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "request", "bad_request", "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "request", "bad_request", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "request", "bad_request", "read upload: "+err.Error())
		return
	}
	extracted, err := textextract.FromBytes(r.Context(), header.Filename, data)
	if err != nil {
		s.log.Warn("extraction failed", "request_id", middleware.GetReqID(r.Context()), "filename", header.Filename, "error", err)
		status := http.StatusUnprocessableEntity
		if !errors.Is(err, paperreview.ErrExtractionUnavailable) {
			status = http.StatusInternalServerError
		}
		writeError(w, r, status, "extract", paperreview.KindName(err), err.Error())
		return
	}
	s.log.Info("document extracted", "request_id", middleware.GetReqID(r.Context()),
		"filename", header.Filename, "method", extracted.Method, "pages", extracted.Pages, "chars", len(extracted.Text))
	s.review(w, r, extracted.Text, header.Filename)
}

func (s *Server) review(w http.ResponseWriter, r *http.Request, text, filename string) {
	if s.reviewer == nil {
		writeError(w, r, http.StatusServiceUnavailable, "pipeline", "unavailable", "review pipeline is not configured")
		return
	}
	report, err := s.reviewer.Run(r.Context(), text, filename)
	if err != nil {
		s.log.Error("review failed", "request_id", middleware.GetReqID(r.Context()),
			"filename", filename, "stage", paperreview.StageNameFromError(err), "kind", paperreview.KindName(err), "error", err)
		writeError(w, r, statusForError(err), paperreview.StageNameFromError(err), paperreview.KindName(err), err.Error())
		return
	}
	reviewID := ""
	if report.Metadata != nil {
		reviewID = report.Metadata.ReviewID
	}
	s.log.Info("review completed", "request_id", middleware.GetReqID(r.Context()), "review_id", reviewID,
		"filename", filename, "decision", report.Decision, "average_score", report.AverageScore)

	if strings.EqualFold(r.URL.Query().Get("format"), "markdown") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, paperreview.RenderMarkdown(report))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRenderPDF(w http.ResponseWriter, r *http.Request) {
	if s.renderer == nil {
		writeError(w, r, http.StatusNotImplemented, "render", "unavailable", "pdf rendering is not configured")
		return
	}
	var report paperreview.ReviewReport
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBytes)).Decode(&report); err != nil {
		writeError(w, r, http.StatusBadRequest, "request", "bad_request", "invalid report JSON: "+err.Error())
		return
	}
	if err := report.Scores.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, "request", "bad_request", err.Error())
		return
	}
	pdf, err := s.renderer.Render(r.Context(), report)
	if err != nil {
		s.log.Error("pdf render failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, r, http.StatusInternalServerError, "render", "internal", err.Error())
		return
	}
	name := strings.TrimSuffix(report.Filename, ".pdf")
	if name == "" {
		name = "review"
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sanitizeFilename(name)+`-review.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// statusForError maps pipeline failure kinds onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, paperreview.ErrExtractionUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, paperreview.ErrSchemaValidation):
		return http.StatusBadGateway
	case errors.Is(err, paperreview.ErrGenerationFailure):
		if paperreview.IsTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, stage, kind, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"stage":   stage,
			"kind":    kind,
			"message": message,
		},
		"request_id": middleware.GetReqID(r.Context()),
	})
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "request body too large")
}

func sanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\' || r == '/' || r < 0x20:
			return '_'
		}
		return r
	}, name)
}
