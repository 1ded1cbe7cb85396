package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"knc/internal/buildinfo"
	"knc/internal/collect"
	knc "knc/internal/config"
	"knc/internal/evaluate"
	"knc/internal/experiment"
	"knc/internal/logging"
	"knc/internal/obs"
	"knc/internal/predict"
	"knc/internal/server"
	"knc/internal/setup"
	"knc/internal/shutdown"
)

func main() {
	_, _ = fmt.Fprint(os.Stdout, buildinfo.Graffiti)
	_, _ = fmt.Fprintf(
		os.Stdout,
		"%s: %s, %s\n",
		buildinfo.Info.Name(),
		buildinfo.Info.Time(),
		buildinfo.Info.Tag(),
	)

	ctx, done := shutdown.New()
	logger := logging.FromContext(ctx)
	if err := run(ctx, done); err != nil {
		logger.Fatal(err)
	}

	defer done()
}

func run(ctx context.Context, cancel func()) error {
	config := knc.Config{}
	env, err := setup.Setup(ctx, &config)
	if err != nil {
		return fmt.Errorf("setup.Setup: %w", err)
	}
	defer env.Close(ctx)

	// flusher and collector both report through the shutdown channel
	shutdownCh := make(chan error, 2)
	manager, err := env.ProvideTrainer()(shutdownCh)
	if err != nil {
		return fmt.Errorf("trainer provider function error: %w", err)
	}

	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("trainer.Run: %w", err)
	}

	srv, err := server.New(config.SrvAddr)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	mux := http.NewServeMux()

	collectHandler, err := collect.NewHandler(&config.Collect, manager)
	if err != nil {
		return fmt.Errorf("collect.NewHandler: %w", err)
	}
	mux.Handle("/collect", collectHandler)

	predictHandler, err := predict.NewHandler(&config.Predict, manager)
	if err != nil {
		return fmt.Errorf("predict.NewHandler: %w", err)
	}
	mux.Handle("/predict", predictHandler)

	evaluateHandler, err := evaluate.NewHandler(&config.Evaluate, manager)
	if err != nil {
		return fmt.Errorf("evaluate.NewHandler: %w", err)
	}
	mux.Handle("/evaluate", evaluateHandler)

	runner, err := experiment.NewRunner(
		env.ProvideClassifier(),
		experiment.WithWorkerNum(config.Experiment.WorkerNum),
	)
	if err != nil {
		return fmt.Errorf("experiment.NewRunner: %w", err)
	}
	experimentHandler, err := experiment.NewHandler(&config.Experiment, manager, runner)
	if err != nil {
		return fmt.Errorf("experiment.NewHandler: %w", err)
	}
	mux.Handle("/experiment", experimentHandler)

	metricsHandler, err := obs.Exporter()
	if err != nil {
		return fmt.Errorf("obs.Exporter: %w", err)
	}
	mux.Handle("/metrics", metricsHandler)
	mux.Handle("/health", server.HandleHealth(ctx))

	go func() {
		if err := srv.ServeHTTPHandler(ctx, mux); err != nil {
			cancel()
		}
	}()

	go func() {
		if err := http.ListenAndServe("0.0.0.0:8080", nil); err != nil {
			cancel()
		}
	}()

	return <-shutdownCh
}
