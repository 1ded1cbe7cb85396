package evaluate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"knc/internal/classifier"
	"knc/internal/geom"
	"knc/internal/httputil"
	"knc/internal/logging"
	"knc/internal/trainer"
)

const maxBodyBytes = 64 * 1024 * 1024

type request struct {
	DatasetID string `json:"dataset"`
	Data      []struct {
		Vec   []float64        `json:"vector"`
		Label classifier.Label `json:"label"`
	} `json:"data"`
}

type response struct {
	DatasetID string  `json:"dataset"`
	Accuracy  float64 `json:"accuracy"`
}

func NewHandler(cfg *Config, evaluator trainer.Evaluator) (http.Handler, error) {
	return &handler{
		cfg:       cfg,
		evaluator: evaluator,
	}, nil
}

type handler struct {
	evaluator trainer.Evaluator
	cfg       *Config
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

	if len(req.Data) > h.cfg.MaxDataItemsLen {
		httputil.RespBadRequest(ctx, w, `{"error": "data items is too large, max allowed len is %d"}`, h.cfg.MaxDataItemsLen)
		return
	}

	queries := make([]geom.Point, len(req.Data))
	truth := make([]classifier.Label, len(req.Data))
	for i := range req.Data {
		queries[i] = geom.NewPoint(req.Data[i].Vec)
		truth[i] = req.Data[i].Label
	}

	accuracy, err := h.evaluator.Evaluate(req.DatasetID, queries, truth)
	if err != nil {
		if errors.Is(err, classifier.ErrNotFitted) ||
			errors.Is(err, classifier.ErrInvalidInput) ||
			classifier.IsDimMismatch(err) {
			httputil.RespBadRequest(ctx, w, `{"error": "evaluate error, %v"}`, err)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "evaluate processing error, %v"}`, err)
		return
	}

	bytes, err := json.Marshal(response{DatasetID: req.DatasetID, Accuracy: accuracy})
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "%s", bytes)
}
