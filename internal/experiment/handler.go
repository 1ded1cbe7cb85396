package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"knc/internal/httputil"
	"knc/internal/logging"
	"knc/internal/trainer"
)

const maxBodyBytes = 1 * 1024 * 1024

type request struct {
	DatasetID string  `json:"dataset"`
	Trials    int     `json:"trials"`
	TestRatio float64 `json:"testRatio"`
}

type response struct {
	DatasetID string  `json:"dataset"`
	Accuracy  Summary `json:"accuracy"`
}

func NewHandler(cfg *Config, samples trainer.SampleProvider, runner *Runner) (http.Handler, error) {
	if runner == nil {
		return nil, fmt.Errorf("experiment runner is not created")
	}
	return &handler{
		cfg:     cfg,
		samples: samples,
		runner:  runner,
	}, nil
}

type handler struct {
	samples trainer.SampleProvider
	runner  *Runner
	cfg     *Config
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
		_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
		return
	}

	if t := r.Header.Get("content-type"); len(t) < 16 || t[:16] != "application/json" {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		logger.Debug(fmt.Sprintf(`{"error": "%v"}`, "content-type is not application/json"))
		_, _ = fmt.Fprintf(w, `{"error": "%v"}`, "content-type is not application/json")
		return
	}

	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d := json.NewDecoder(r.Body)
	if err := d.Decode(&req); err != nil {
		httputil.DecodeErr(ctx, w, err)
		return
	}

	if req.Trials < MinTrials || req.Trials > h.cfg.MaxTrials {
		httputil.RespBadRequest(ctx, w, `{"error": "trials must be between %d and %d"}`, MinTrials, h.cfg.MaxTrials)
		return
	}

	samples, err := h.samples.Samples(req.DatasetID)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "unable to fetch samples, %v"}`, err)
		return
	}
	if len(samples) == 0 {
		httputil.RespBadRequest(ctx, w, `{"error": "dataset %s has no training data"}`, req.DatasetID)
		return
	}

	summary, err := h.runner.Run(samples, req.Trials, req.TestRatio)
	if err != nil {
		httputil.RespBadRequest(ctx, w, `{"error": "experiment error, %v"}`, err)
		return
	}

	bytes, err := json.Marshal(response{DatasetID: req.DatasetID, Accuracy: *summary})
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "%s", bytes)
}
