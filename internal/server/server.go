package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/go-tab-predict/internal/config"
	"github.com/example/go-tab-predict/internal/metrics"
	"github.com/example/go-tab-predict/internal/onnx"
	"github.com/example/go-tab-predict/internal/predict"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Predicter runs a forward pass and exposes the model signature.
type Predicter interface {
	Predict(ctx context.Context, req predict.Request) (predict.Result, error)
	Signature() onnx.Signature
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	modelName      string
	maxBodyBytes   int64
	workers        int
	requestTimeout time.Duration
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		modelName:      "model",
		maxBodyBytes:   1 << 20,
		workers:        2,
		requestTimeout: 30 * time.Second,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithModelName sets the model label used in logs and metrics.
func WithModelName(name string) Option {
	return func(o *options) { o.modelName = name }
}

// WithMaxBodyBytes sets the maximum allowed request body size for POST /predict.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) { o.maxBodyBytes = n }
}

// WithWorkers sets the maximum number of concurrent inference calls.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request inference deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	predictor Predicter
	opts      options
	sem       chan struct{} // semaphore for worker pool
	log       *slog.Logger
}

// NewHandler returns an http.Handler serving /health, /signature,
// POST /predict and /metrics.
func NewHandler(predictor Predicter, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		predictor: predictor,
		opts:      opts,
		log:       opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/signature", h.handleSignature)
	mux.HandleFunc("/predict", h.handlePredict)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"model":   h.opts.modelName,
		"version": buildVersion(),
	})
}

type signatureNode struct {
	Name  string  `json:"name"`
	DType string  `json:"dtype,omitempty"`
	Shape []int64 `json:"shape,omitempty"`
}

func (h *handler) handleSignature(w http.ResponseWriter, _ *http.Request) {
	sig := h.predictor.Signature()
	resp := struct {
		Inputs  []signatureNode `json:"inputs"`
		Outputs []signatureNode `json:"outputs"`
	}{
		Inputs:  make([]signatureNode, 0, len(sig.Inputs)),
		Outputs: make([]signatureNode, 0, len(sig.Outputs)),
	}
	for _, n := range sig.Inputs {
		resp.Inputs = append(resp.Inputs, signatureNode{Name: n.Name, DType: string(n.DType), Shape: n.Shape})
	}
	for _, n := range sig.Outputs {
		resp.Outputs = append(resp.Outputs, signatureNode{Name: n.Name, DType: string(n.DType), Shape: n.Shape})
	}
	writeJSON(w, http.StatusOK, resp)
}

type predictRequest struct {
	InputName string    `json:"input_name,omitempty"`
	Values    []float32 `json:"values"`
	Shape     []int64   `json:"shape"`
}

type predictOutput struct {
	Name   string  `json:"name"`
	DType  string  `json:"dtype"`
	Shape  []int64 `json:"shape"`
	Values any     `json:"values"`
}

type predictResponse struct {
	Prediction float64         `json:"prediction"`
	Outputs    []predictOutput `json:"outputs"`
	DurationMS int64           `json:"duration_ms"`
}

func (h *handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		metrics.RequestsRejectedTotal.WithLabelValues("method").Inc()
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.Body == nil {
		metrics.RequestsRejectedTotal.WithLabelValues("body").Inc()
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}

	var req predictRequest
	body := http.MaxBytesReader(w, r.Body, h.opts.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		metrics.RequestsRejectedTotal.WithLabelValues("json").Inc()
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if len(req.Values) == 0 {
		metrics.RequestsRejectedTotal.WithLabelValues("values").Inc()
		writeError(w, http.StatusBadRequest, "values field is required")
		return
	}

	// Acquire a worker slot, honouring context cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
		case <-r.Context().Done():
			metrics.RequestsRejectedTotal.WithLabelValues("cancelled").Inc()
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	metrics.RequestsInFlight.Inc()
	defer metrics.RequestsInFlight.Dec()

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()
	result, err := h.predictor.Predict(ctx, predict.Request{
		InputName: req.InputName,
		Values:    req.Values,
		Shape:     req.Shape,
	})
	elapsed := time.Since(start)
	metrics.ObserveInference(h.opts.modelName, elapsed, err)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			h.log.WarnContext(r.Context(), "predict timed out",
				slog.Int("values", len(req.Values)),
				slog.Int64("duration_ms", elapsed.Milliseconds()),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusGatewayTimeout, "prediction timed out")
			return
		}
		h.log.ErrorContext(r.Context(), "predict failed",
			slog.Int("values", len(req.Values)),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
			slog.String("error", err.Error()),
		)
		status := http.StatusInternalServerError
		if predict.IsInferenceError(err) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}

	scalar, err := result.Scalar()
	if err != nil {
		h.log.ErrorContext(r.Context(), "predict produced no tensor output",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := predictResponse{
		Prediction: scalar,
		DurationMS: elapsed.Milliseconds(),
	}
	for _, out := range result.Outputs {
		if out.Tensor == nil {
			continue
		}
		resp.Outputs = append(resp.Outputs, predictOutput{
			Name:   out.Name,
			DType:  string(out.Tensor.DType()),
			Shape:  out.Tensor.Shape(),
			Values: out.Tensor.Data(),
		})
	}

	h.log.InfoContext(r.Context(), "predict complete",
		slog.Int("values", len(req.Values)),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
		slog.Int("outputs", len(resp.Outputs)),
	)

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server — wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	predictor       Predicter
	shutdownTimeout time.Duration
}

func New(cfg config.Config, p Predicter) *Server {
	timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		cfg:             cfg,
		predictor:       p,
		shutdownTimeout: timeout,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

func (s *Server) Start(ctx context.Context) error {
	p := s.predictor
	if p == nil {
		concrete, err := predict.New(predict.Config{
			ModelName: "model",
			ModelPath: s.cfg.Paths.ModelPath,
			Runtime:   s.cfg.Runtime,
		})
		if err != nil {
			return fmt.Errorf("initialize predictor: %w", err)
		}
		defer concrete.Close()
		p = concrete
	}

	metrics.ModelLoaded.WithLabelValues("model").Set(1)
	defer metrics.ModelLoaded.WithLabelValues("model").Set(0)

	h := NewHandler(p,
		WithWorkers(s.cfg.Server.Workers),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout)*time.Second),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

// ProbeHTTP checks the /health endpoint of a running server.
func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
