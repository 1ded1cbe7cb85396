package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"knc/internal/classifier"
	"knc/internal/geom"
	"knc/internal/httputil"
	"knc/internal/logging"
	"knc/internal/obs"
	"knc/internal/sample/model"
	"knc/internal/trainer"
)

const maxBodyBytes = 64 * 1024 * 1024

type request struct {
	DatasetID string `json:"dataset"`
	Data      []struct {
		Vec       []float64        `json:"vector"`
		Label     classifier.Label `json:"label"`
		CreatedAt time.Time        `json:"createdAt"`
	} `json:"data"`
}

func NewHandler(cfg *Config, collector trainer.Collector) (http.Handler, error) {
	s := &handler{
		collector: collector,
		cfg:       cfg,
	}
	return s, nil
}

type handler struct {
	collector trainer.Collector
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

	if req.DatasetID == "" {
		httputil.RespBadRequest(ctx, w, `{"error": "dataset must not be empty"}`)
		return
	}

	defer func() {
		logger.Infof("collected %d samples for dataset %s", len(req.Data), req.DatasetID)
	}()
	go func() {
		sort.Slice(req.Data, func(i, j int) bool {
			return req.Data[i].CreatedAt.Before(req.Data[j].CreatedAt)
		})
		for _, dat := range req.Data {
			if err := h.collector.Collect(
				model.NewSample(req.DatasetID, geom.NewPoint(dat.Vec), dat.Label, dat.CreatedAt),
			); err != nil {
				logger.Errorf("error sending to collect service: %v", err)
			}
		}
		obs.RecordCollected(context.Background(), req.DatasetID, int64(len(req.Data)))
	}()
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status": "ok"}`)
}
