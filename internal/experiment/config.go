package experiment

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"KNC_EXPERIMENT_REQUEST_TIMEOUT" default:"120s"`
	MaxTrials      int           `envconfig:"KNC_EXPERIMENT_MAX_TRIALS" default:"100"`
	WorkerNum      int           `envconfig:"KNC_EXPERIMENT_WORKER_NUM" default:"4"`
}
