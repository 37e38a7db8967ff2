package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sandahk/medical-simulator-demo/internal/domain"
	"github.com/Sandahk/medical-simulator-demo/internal/id"
	"github.com/Sandahk/medical-simulator-demo/internal/pipeline"
	"github.com/Sandahk/medical-simulator-demo/internal/validate"
)

const multipartMaxMemory = 32 << 20

type imageProcessor interface {
	Process(ctx context.Context, src domain.DecodedImage, phase domain.Phase) (pipeline.Result, error)
}

type Options struct {
	RateLimiter    RateLimiter
	UserIDHeader   string
	MaxUploadBytes int64
	MaxConcurrent  int
	StaticDir      string
	Tracer         trace.Tracer
}

type Server struct {
	logger         *log.Logger
	processor      imageProcessor
	metrics        *metrics
	tracer         trace.Tracer
	rateLimiter    RateLimiter
	userIDHeader   string
	maxUploadBytes int64
	sem            chan struct{}
	staticDir      string
	mux            *http.ServeMux
}

func NewServer(logger *log.Logger, processor imageProcessor, opts Options) *Server {
	maxUploadBytes := opts.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	userIDHeader := opts.UserIDHeader
	if userIDHeader == "" {
		userIDHeader = "X-User-ID"
	}

	s := &Server{
		logger:         logger,
		processor:      processor,
		metrics:        newMetrics(),
		tracer:         opts.Tracer,
		rateLimiter:    opts.RateLimiter,
		userIDHeader:   userIDHeader,
		maxUploadBytes: maxUploadBytes,
		sem:            make(chan struct{}, maxConcurrent),
		staticDir:      opts.StaticDir,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.metrics.withHTTPMetrics(s.withTracing(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("POST /v1/process", s.handleProcess)
	if s.staticDir != "" {
		s.mux.Handle("GET /", http.FileServer(http.Dir(s.staticDir)))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type processResponse struct {
	Phase                string `json:"phase"`
	Format               string `json:"format"`
	Width                int    `json:"width"`
	Height               int    `json:"height"`
	ProcessedImageBase64 string `json:"processed_image_base64"`
}

type errorResponse struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

// handleProcess is the upload-validate-transform-respond path: multipart
// fields "file" and "phase" in, base64 PNG out. Nothing from the request
// survives past the response.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := id.New()
	w.Header().Set("X-Request-ID", reqID)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "uploaded file is too large", reqID)
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart form", reqID)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	phase, err := domain.ParsePhase(r.FormValue("phase"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), reqID)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "no file supplied", reqID)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.logger.Printf("read upload failed request_id=%s err=%v", reqID, err)
		s.writeError(w, http.StatusInternalServerError, "failed to read uploaded file", reqID)
		return
	}

	src, err := validate.DecodeUpload(header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		status := statusForError(err)
		s.logger.Printf("upload rejected request_id=%s filename=%q status=%d err=%v", reqID, header.Filename, status, err)
		s.writeError(w, status, clientDetail(err), reqID)
		return
	}

	ctx := r.Context()
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("image.phase", phase.String()),
		attribute.String("image.source_format", src.Format),
		attribute.Int("image.width", src.Width),
		attribute.Int("image.height", src.Height),
	)

	s.sem <- struct{}{}
	s.metrics.activeTransforms.Inc()
	result, err := s.processor.Process(ctx, src, phase)
	<-s.sem
	s.metrics.activeTransforms.Dec()

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.imagesProcessed.WithLabelValues(phase.String(), outcome).Inc()
	s.metrics.transformDuration.WithLabelValues(phase.String(), outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transform failed")
		s.logger.Printf("processing failed request_id=%s phase=%s err=%v", reqID, phase, err)
		s.writeError(w, http.StatusInternalServerError, "internal server error during image processing", reqID)
		return
	}

	s.metrics.pixelsProcessed.Add(float64(result.Width * result.Height))
	s.logger.Printf(
		"processed request_id=%s phase=%s width=%d height=%d bytes=%d duration=%s",
		reqID, phase, result.Width, result.Height, len(result.PNG), time.Since(start).Round(time.Millisecond),
	)

	writeJSON(w, http.StatusOK, processResponse{
		Phase:                result.Phase.String(),
		Format:               "png",
		Width:                result.Width,
		Height:               result.Height,
		ProcessedImageBase64: base64.StdEncoding.EncodeToString(result.PNG),
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, validate.ErrEmptyUpload), errors.Is(err, domain.ErrInvalidPhase):
		return http.StatusBadRequest
	case errors.Is(err, validate.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, validate.ErrUndecodable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// clientDetail strips wrapped context off validation errors so the response
// carries only the stable, user-facing message.
func clientDetail(err error) string {
	for _, sentinel := range []error{validate.ErrEmptyUpload, validate.ErrUnsupportedFormat, validate.ErrUndecodable} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "invalid upload"
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail, reqID string) {
	writeJSON(w, status, errorResponse{Detail: detail, RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
