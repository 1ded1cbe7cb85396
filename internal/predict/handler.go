package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"knc/internal/classifier"
	"knc/internal/geom"
	"knc/internal/httputil"
	"knc/internal/logging"
	"knc/internal/obs"
	"knc/internal/trainer"
)

const maxBodyBytes = 64 * 1024 * 1024

type request struct {
	DatasetID string `json:"dataset"`
	Data      []struct {
		Vec []float64 `json:"vector"`
	} `json:"data"`
}

type response struct {
	DatasetID string `json:"dataset"`
	Data      []struct {
		Vec   []float64        `json:"vector"`
		Label classifier.Label `json:"label"`
	} `json:"data"`
}

func NewHandler(cfg *Config, predictor trainer.Predictor) (http.Handler, error) {
	return &handler{
		cfg:       cfg,
		predictor: predictor,
	}, nil
}

type handler struct {
	predictor trainer.Predictor
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
	for i := range req.Data {
		queries[i] = geom.NewPoint(req.Data[i].Vec)
	}

	started := time.Now()
	labels, err := h.predictor.Predict(req.DatasetID, queries)
	if err != nil {
		if errors.Is(err, classifier.ErrNotFitted) || classifier.IsDimMismatch(err) {
			httputil.RespBadRequest(ctx, w, `{"error": "predict error, %v"}`, err)
			return
		}
		httputil.RespInternalError(ctx, w, `{"error": "predict processing error, %v"}`, err)
		return
	}
	obs.RecordPredictions(ctx, req.DatasetID, int64(len(labels)), float64(time.Since(started).Milliseconds()))

	resp := response{
		DatasetID: req.DatasetID,
	}
	resp.Data = make([]struct {
		Vec   []float64        `json:"vector"`
		Label classifier.Label `json:"label"`
	}, len(labels))
	for i := range labels {
		resp.Data[i].Vec = req.Data[i].Vec
		resp.Data[i].Label = labels[i]
	}

	bytes, err := json.Marshal(resp)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "%s", bytes)
}
