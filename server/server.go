package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonwraymond/dispatchops/delivery"
	"github.com/jonwraymond/dispatchops/health"
	"github.com/jonwraymond/dispatchops/observe"
	"github.com/jonwraymond/dispatchops/provider"
	"github.com/jonwraymond/dispatchops/queue"
	"github.com/jonwraymond/dispatchops/status"
)

// maxBodyBytes bounds a /send request body.
const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Tracker answers status questions. *delivery.Orchestrator implements it.
type Tracker interface {
	Known(fingerprint string) bool
	Status(fingerprint string) (status.Record, bool)
	Stats() delivery.Stats
}

// Dispatcher accepts messages for later delivery. *queue.Drainer
// implements it.
type Dispatcher interface {
	Enqueue(ctx context.Context, msg provider.Message)
	Results() []queue.Result
}

// SendRequest is the body of POST /send.
type SendRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=998"`
	Body    string `json:"body" validate:"required"`
}

// Validate checks the request fields.
func (r *SendRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

// SendResponse is the body returned by POST /send.
type SendResponse struct {
	Message     string           `json:"message"`
	Fingerprint string           `json:"fingerprint"`
	Email       provider.Message `json:"email"`
}

// Server routes HTTP requests to the orchestrator and drainer.
type Server struct {
	tracker    Tracker
	dispatcher Dispatcher
	health     *health.Aggregator
	metrics    http.Handler
	logger     observe.Logger
	now        func() time.Time
	mux        *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger observe.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHealth mounts the health endpoints backed by agg.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) {
		s.health = agg
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithClock overrides the timestamp stamped on queued messages.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds the server and its routes.
func New(tracker Tracker, dispatcher Dispatcher, opts ...Option) *Server {
	s := &Server{
		tracker:    tracker,
		dispatcher: dispatcher,
		logger:     observe.NopLogger(),
		now:        time.Now,
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("POST /send", s.handleSend)
	s.mux.HandleFunc("GET /results", s.handleResults)
	s.mux.HandleFunc("GET /status/{fingerprint}", s.handleStatus)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	if s.health != nil {
		health.RegisterHandlers(s.mux, s.health)
	}
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
	return s
}

// Handler returns the root handler with request logging.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		s.mux.ServeHTTP(rw, r)
		s.logger.Debug(r.Context(), "http request",
			observe.F("method", r.Method),
			observe.F("path", r.URL.Path),
			observe.F("status", rw.code),
			observe.F("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg := provider.Message{
		To:        req.To,
		Subject:   req.Subject,
		Body:      req.Body,
		Timestamp: s.now(),
	}
	fp := status.Fingerprint(msg.To, msg.Subject, msg.Body)

	if s.tracker.Known(fp) {
		writeJSON(w, http.StatusOK, SendResponse{Message: "already sent", Fingerprint: fp, Email: msg})
		return
	}

	s.dispatcher.Enqueue(r.Context(), msg)
	writeJSON(w, http.StatusAccepted, SendResponse{Message: "queued", Fingerprint: fp, Email: msg})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dispatcher.Results())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	fp := r.PathValue("fingerprint")
	if err := status.ValidateFingerprint(fp); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, ok := s.tracker.Status(fp)
	if !ok {
		writeError(w, http.StatusNotFound, "no status for "+fp)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Stats())
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
